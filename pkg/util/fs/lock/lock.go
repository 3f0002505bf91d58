// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2018-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package lock serializes cooperating processes with flock(2). loopctl
// holds an exclusive lock on /dev between picking a free loop device and
// attaching to it, like other loop device tools do.
package lock

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Exclusive applies an exclusive lock on path and returns the descriptor
// holding it, to be passed to Release.
func Exclusive(path string) (fd int, err error) {
	fd, err = unix.Open(path, os.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	err = unix.Flock(fd, unix.LOCK_EX)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// TryExclusive applies an exclusive non-blocking lock on path. When the
// lock is held elsewhere acquired is false and no error is returned.
func TryExclusive(path string) (fd int, acquired bool, err error) {
	fd, err = unix.Open(path, os.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, false, err
	}
	err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return -1, false, nil
		}
		return -1, false, err
	}
	return fd, true, nil
}

// Release removes a lock on path referenced by fd
func Release(fd int) error {
	defer unix.Close(fd)
	return unix.Flock(fd, unix.LOCK_UN)
}
