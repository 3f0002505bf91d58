// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package loop

import (
	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/ccoveille/go-safecast"
	"golang.org/x/sys/unix"
)

// Control is an open handle on the loop control endpoint. It must not be
// used from several goroutines without external synchronization.
type Control struct {
	h *handle
}

// OpenControl opens the loop control endpoint read-write. The returned
// Control holds the endpoint until Close is called.
func OpenControl() (*Control, error) {
	return openControl(ControlPath)
}

func openControl(path string) (*Control, error) {
	h, err := openHandle(path, unix.O_RDWR)
	if err != nil {
		return nil, newOpError("open", path, err, ErrOS, controlOpenKinds)
	}
	return &Control{h: h}, nil
}

// NextFree asks the kernel for the first unused loop device, creating its
// node if needed, and returns the device path. Another process may claim
// the device before the caller attaches to it.
func (c *Control) NextFree() (string, error) {
	index, err := c.h.ioctl(CmdCtlGetFree, 0)
	if err != nil {
		return "", newOpError("get free", c.h.path, err, ErrOS, allocateKinds)
	}
	n, err := safecast.ToInt(uint64(index))
	if err != nil {
		return "", newOpError("get free", c.h.path, err, ErrOS, nil)
	}
	path := DevicePath(n)
	sylog.Debugf("Next free loop device is %s", path)
	return path, nil
}

// Add creates the loop device with the given index and returns its path.
// A negative index lets the kernel pick the first unused index.
func (c *Control) Add(index int) (string, error) {
	// the kernel picks the index, name the control endpoint in errors
	path := c.h.path
	if index >= 0 {
		path = DevicePath(index)
	}
	r, err := c.h.ioctl(CmdCtlAdd, uintptr(index))
	if err != nil {
		return "", newOpError("add", path, err, ErrOS, allocateKinds)
	}
	n, err := safecast.ToInt(uint64(r))
	if err != nil {
		return "", newOpError("add", path, err, ErrOS, nil)
	}
	return DevicePath(n), nil
}

// Remove deletes the loop device with the given index. The device must
// not be bound nor open.
func (c *Control) Remove(index int) error {
	if _, err := c.h.ioctl(CmdCtlRemove, uintptr(index)); err != nil {
		return newOpError("remove", DevicePath(index), err, ErrOS, removeKinds)
	}
	return nil
}

// Close releases the control endpoint. It is safe to call more than once;
// a failure to close is logged and otherwise ignored.
func (c *Control) Close() error {
	if c == nil || c.h == nil {
		return nil
	}
	if err := c.h.Close(); err != nil {
		sylog.Debugf("Could not close %s: %v", c.h.path, err)
	}
	return nil
}
