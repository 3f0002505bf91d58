// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2018-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package loop

import (
	"unsafe"

	"github.com/apptainer/loopctl/pkg/sylog"
	"golang.org/x/sys/unix"
)

func openDevice(op, device string) (*handle, error) {
	h, err := openHandle(device, unix.O_RDWR)
	if err != nil {
		return nil, newOpError(op, device, err, ErrDeviceOpen, nil)
	}
	return h, nil
}

func openBacking(op, path string, readOnly bool) (*handle, error) {
	mode := unix.O_RDWR
	if readOnly {
		mode = unix.O_RDONLY
	}
	h, err := openHandle(path, mode)
	if err != nil {
		return nil, newOpError(op, path, err, ErrBackingFileOpen, nil)
	}
	return h, nil
}

// Attach binds backing to device with default options: read-write, no
// offset and no size limit.
func Attach(device, backing string) error {
	return AttachWithOptions(device, backing, Options{})
}

// AttachWithOptions binds backing to device and records the backing file
// name, flags, offset and size limit in the device status. If the status
// cannot be set the binding is undone, so a failed attach leaves the
// device unbound. The binding outlives the call until Detach.
func AttachWithOptions(device, backing string, opts Options) error {
	loopHandle, err := openDevice("attach", device)
	if err != nil {
		return err
	}
	defer loopHandle.Close()

	file, err := openBacking("attach", backing, opts.ReadOnly)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := loopHandle.ioctl(CmdSetFd, uintptr(file.fd)); err != nil {
		return newOpError("attach", device, err, ErrAttachRejected, nil)
	}

	info := opts.Info(backing)
	if err := loopHandle.ioctlPtr(CmdSetStatus64, unsafe.Pointer(info)); err != nil {
		// If we hit an error then dissociate our image from the loop device
		if _, cerr := loopHandle.ioctl(CmdClrFd, 0); cerr != nil {
			sylog.Warningf("Could not release %s after failed attach: %v", device, cerr)
		}
		return newOpError("attach", device, err, ErrAttachRejected, nil)
	}

	sylog.Debugf("Attached %s to %s", backing, device)
	return nil
}

// Detach removes the backing file of device. Once the kernel drops the
// binding, the device can be attached again.
func Detach(device string) error {
	loopHandle, err := openDevice("detach", device)
	if err != nil {
		return err
	}
	defer loopHandle.Close()

	if _, err := loopHandle.ioctl(CmdClrFd, 0); err != nil {
		return newOpError("detach", device, err, ErrDetachRejected, statusKinds)
	}

	sylog.Debugf("Detached %s", device)
	return nil
}

// GetStatusFromPath returns the status record of the loop device at path.
// A device without backing file fails with ErrNotAttached.
func GetStatusFromPath(path string) (*Info64, error) {
	loopHandle, err := openDevice("status", path)
	if err != nil {
		return nil, err
	}
	defer loopHandle.Close()

	return getStatus(loopHandle)
}

// GetStatusFromFd gets info status about an opened loop device.
func GetStatusFromFd(fd uintptr) (*Info64, error) {
	info := &Info64{}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, CmdGetStatus64, uintptr(unsafe.Pointer(info)))
	if errno != 0 {
		return nil, newOpError("status", "fd", errno, ErrOS, statusKinds)
	}
	return info, nil
}

func getStatus(h *handle) (*Info64, error) {
	info := &Info64{}
	if err := h.ioctlPtr(CmdGetStatus64, unsafe.Pointer(info)); err != nil {
		return nil, newOpError("status", h.path, err, ErrOS, statusKinds)
	}
	return info, nil
}

// SetStatus writes info to device. Only the offset, size limit, name and
// the flags the kernel considers settable are applied.
func SetStatus(device string, info *Info64) error {
	loopHandle, err := openDevice("set status", device)
	if err != nil {
		return err
	}
	defer loopHandle.Close()

	if err := loopHandle.ioctlPtr(CmdSetStatus64, unsafe.Pointer(info)); err != nil {
		return newOpError("set status", device, err, ErrOS, statusKinds)
	}
	return nil
}

// SetCapacity makes device pick up a size change of its backing file.
func SetCapacity(device string) error {
	return simpleCommand("set capacity", device, CmdSetCapacity, 0)
}

// SetDirectIO switches direct I/O on or off for device.
func SetDirectIO(device string, enable bool) error {
	var arg uintptr
	if enable {
		arg = 1
	}
	return simpleCommand("set direct io", device, CmdSetDirectIO, arg)
}

// SetBlockSize changes the logical block size of device.
func SetBlockSize(device string, size uint32) error {
	return simpleCommand("set block size", device, CmdSetBlockSize, uintptr(size))
}

func simpleCommand(op, device string, cmd, arg uintptr) error {
	loopHandle, err := openDevice(op, device)
	if err != nil {
		return err
	}
	defer loopHandle.Close()

	if _, err := loopHandle.ioctl(cmd, arg); err != nil {
		return newOpError(op, device, err, ErrOS, statusKinds)
	}
	return nil
}

// ChangeFd replaces the backing file of a read-only device with backing,
// which must have the same size.
func ChangeFd(device, backing string) error {
	loopHandle, err := openDevice("change fd", device)
	if err != nil {
		return err
	}
	defer loopHandle.Close()

	file, err := openBacking("change fd", backing, true)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := loopHandle.ioctl(CmdChangeFd, uintptr(file.fd)); err != nil {
		return newOpError("change fd", device, err, ErrAttachRejected, statusKinds)
	}
	return nil
}

// Configure binds backing to device and applies opts, block size
// included, in a single call. Kernels older than 5.8 fail with
// ErrUnsupported.
func Configure(device, backing string, opts Options) error {
	loopHandle, err := openDevice("configure", device)
	if err != nil {
		return err
	}
	defer loopHandle.Close()

	file, err := openBacking("configure", backing, opts.ReadOnly)
	if err != nil {
		return err
	}
	defer file.Close()

	cfg := &configRecord{
		Fd:        uint32(file.fd),
		BlockSize: opts.BlockSize,
		Info:      *opts.Info(backing),
	}
	if err := loopHandle.ioctlPtr(CmdConfigure, unsafe.Pointer(cfg)); err != nil {
		return newOpError("configure", device, err, ErrAttachRejected, configureKinds)
	}

	sylog.Debugf("Configured %s on %s", backing, device)
	return nil
}
