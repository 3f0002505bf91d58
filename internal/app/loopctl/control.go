// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package loopctl

import (
	"strconv"
	"strings"

	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/apptainer/loopctl/pkg/util/loop"
	"github.com/ccoveille/go-safecast"
	"github.com/pkg/errors"
)

// ParseDevice returns the index of a loop device given as an index,
// a name like loop3 or a path like /dev/loop3.
func ParseDevice(arg string) (int, error) {
	if strings.HasPrefix(arg, loop.DevicePrefix) {
		return loop.DeviceIndex(arg)
	}
	s := strings.TrimPrefix(arg, "loop")
	if s == "" || (len(s) > 1 && s[0] == '0') || s[0] == '+' || s[0] == '-' {
		return -1, errors.Errorf("invalid loop device %q", arg)
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return -1, errors.Errorf("invalid loop device %q", arg)
	}
	index, err := safecast.ToInt(n)
	if err != nil {
		return -1, errors.Wrapf(err, "invalid loop device %q", arg)
	}
	return index, nil
}

// FindFree returns the path of the next free loop device. Nothing is
// attached, so the device may be taken by another process right after.
func FindFree() (string, error) {
	ctl, err := loop.OpenControl()
	if err != nil {
		return "", errors.Wrap(err, "could not open loop control")
	}
	defer ctl.Close()

	return ctl.NextFree()
}

// AddDevice creates the loop device with the given index, a negative
// index creates the first unused one.
func AddDevice(index int) (string, error) {
	ctl, err := loop.OpenControl()
	if err != nil {
		return "", errors.Wrap(err, "could not open loop control")
	}
	defer ctl.Close()

	device, err := ctl.Add(index)
	if err != nil {
		return "", err
	}
	sylog.Verbosef("Created %s", device)
	return device, nil
}

// RemoveDevice deletes the loop device with the given index.
func RemoveDevice(index int) error {
	ctl, err := loop.OpenControl()
	if err != nil {
		return errors.Wrap(err, "could not open loop control")
	}
	defer ctl.Close()

	if err := ctl.Remove(index); err != nil {
		return err
	}
	sylog.Verbosef("Removed %s", loop.DevicePath(index))
	return nil
}
