// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

//go:build !linux

package loop

func unsupported(op, path string) error {
	return &OpError{Op: op, Path: path, Kind: ErrUnsupported}
}

// Control is an open handle on the loop control endpoint.
type Control struct{}

// OpenControl is not supported on this platform.
func OpenControl() (*Control, error) {
	return nil, unsupported("open", ControlPath)
}

// NextFree is not supported on this platform.
func (c *Control) NextFree() (string, error) {
	return "", unsupported("get free", ControlPath)
}

// Add is not supported on this platform.
func (c *Control) Add(index int) (string, error) {
	return "", unsupported("add", DevicePath(index))
}

// Remove is not supported on this platform.
func (c *Control) Remove(index int) error {
	return unsupported("remove", DevicePath(index))
}

// Close does nothing.
func (c *Control) Close() error {
	return nil
}

// Attach is not supported on this platform.
func Attach(device, backing string) error {
	return unsupported("attach", device)
}

// AttachWithOptions is not supported on this platform.
func AttachWithOptions(device, backing string, opts Options) error {
	return unsupported("attach", device)
}

// Detach is not supported on this platform.
func Detach(device string) error {
	return unsupported("detach", device)
}

// GetStatusFromPath is not supported on this platform.
func GetStatusFromPath(path string) (*Info64, error) {
	return nil, unsupported("status", path)
}

// GetStatusFromFd is not supported on this platform.
func GetStatusFromFd(fd uintptr) (*Info64, error) {
	return nil, unsupported("status", "fd")
}

// SetStatus is not supported on this platform.
func SetStatus(device string, info *Info64) error {
	return unsupported("set status", device)
}

// SetCapacity is not supported on this platform.
func SetCapacity(device string) error {
	return unsupported("set capacity", device)
}

// SetDirectIO is not supported on this platform.
func SetDirectIO(device string, enable bool) error {
	return unsupported("set direct io", device)
}

// SetBlockSize is not supported on this platform.
func SetBlockSize(device string, size uint32) error {
	return unsupported("set block size", device)
}

// ChangeFd is not supported on this platform.
func ChangeFd(device, backing string) error {
	return unsupported("change fd", device)
}

// Configure is not supported on this platform.
func Configure(device, backing string, opts Options) error {
	return unsupported("configure", device)
}
