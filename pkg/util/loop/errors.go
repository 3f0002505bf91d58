// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package loop

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Error kinds returned by this package. Every failure is an *OpError
// matching exactly one of them with errors.Is, plus ErrPermissionDenied
// when the kernel refused the caller's privileges.
var (
	ErrDeviceUnavailable = errors.New("loop control device unavailable")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrUnsupported       = errors.New("loop devices are not supported")
	ErrAllBusy           = errors.New("no free loop device")
	ErrDeviceOpen        = errors.New("could not open loop device")
	ErrBackingFileOpen   = errors.New("could not open backing file")
	ErrAttachRejected    = errors.New("backing file rejected by loop device")
	ErrDetachRejected    = errors.New("loop device refused to detach")
	ErrNotAttached       = errors.New("loop device has no backing file")
	ErrOS                = errors.New("loop device operation failed")
)

// OpError records a failed loop operation along with the errno
// reported by the kernel, if any.
type OpError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap returns the underlying errno.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *OpError) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	if target == ErrPermissionDenied {
		return e.Err != nil && errors.Is(e.Err, fs.ErrPermission)
	}
	return false
}

// Errno returns the OS error code carried by err, if any.
func Errno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// kindMap selects an error kind from the errno of a failed call.
type kindMap map[syscall.Errno]error

func newOpError(op, path string, err error, fallback error, kinds kindMap) error {
	kind := fallback
	if errno, ok := Errno(err); ok {
		if k, ok := kinds[errno]; ok {
			kind = k
		}
	}
	return &OpError{Op: op, Path: path, Kind: kind, Err: err}
}
