// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package loop

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/apptainer/loopctl/pkg/sylog"
	"golang.org/x/sys/unix"
)

// handle owns one file descriptor. It is closed at most once, either by
// Close or by the garbage collector if the owner forgot to.
type handle struct {
	fd   int
	path string
	once sync.Once
}

func openHandle(path string, mode int) (*handle, error) {
	fd, err := unix.Open(path, mode|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	h := &handle{fd: fd, path: path}
	runtime.SetFinalizer(h, func(h *handle) {
		sylog.Debugf("Releasing leaked descriptor for %s", h.path)
		h.Close()
	})
	return h, nil
}

// Close releases the descriptor. Calls after the first return nil.
func (h *handle) Close() error {
	var err error
	h.once.Do(func() {
		runtime.SetFinalizer(h, nil)
		err = unix.Close(h.fd)
		h.fd = -1
	})
	return err
}

// ioctl issues cmd with an integer argument and returns the kernel result.
func (h *handle) ioctl(cmd uintptr, arg uintptr) (uintptr, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(h.fd), cmd, arg)
	runtime.KeepAlive(h)
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

// ioctlPtr issues cmd with a pointer to a kernel structure.
func (h *handle) ioctlPtr(cmd uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(h.fd), cmd, uintptr(arg))
	runtime.KeepAlive(h)
	if errno != 0 {
		return errno
	}
	return nil
}

var (
	controlOpenKinds = kindMap{
		unix.ENOENT:     ErrDeviceUnavailable,
		unix.ENXIO:      ErrDeviceUnavailable,
		unix.EACCES:     ErrPermissionDenied,
		unix.EPERM:      ErrPermissionDenied,
		unix.ENODEV:     ErrUnsupported,
		unix.EOPNOTSUPP: ErrUnsupported,
	}
	allocateKinds = kindMap{
		unix.ENOSPC: ErrAllBusy,
		unix.EBUSY:  ErrAllBusy,
		unix.EAGAIN: ErrAllBusy,
		unix.EEXIST: ErrAllBusy,
		unix.EACCES: ErrPermissionDenied,
		unix.EPERM:  ErrPermissionDenied,
	}
	removeKinds = kindMap{
		unix.EBUSY:  ErrDetachRejected,
		unix.ENODEV: ErrDeviceUnavailable,
		unix.EACCES: ErrPermissionDenied,
		unix.EPERM:  ErrPermissionDenied,
	}
	// a device without backing file answers most requests with ENXIO
	statusKinds = kindMap{
		unix.ENXIO: ErrNotAttached,
	}
	configureKinds = kindMap{
		unix.ENOTTY: ErrUnsupported,
	}
)
