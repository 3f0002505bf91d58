// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2019-2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package require

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"testing"

	"golang.org/x/sys/unix"
)

var (
	hasLoopControl     bool
	hasLoopControlOnce sync.Once
)

// LoopControl checks that the loop control endpoint is present
// and is a character device, if not the current test is skipped
// with a message.
func LoopControl(t *testing.T) {
	hasLoopControlOnce.Do(func() {
		fi, err := os.Stat("/dev/loop-control")
		if err != nil {
			t.Logf("Could not use loop control: %s", err)
			return
		}
		hasLoopControl = fi.Mode()&os.ModeCharDevice != 0
	})
	if !hasLoopControl {
		t.Skipf("loop devices seem not supported")
	}
}

// Kernel checks that the running kernel version is at least
// major.minor, if not the current test is skipped with a message.
func Kernel(t *testing.T, major, minor int) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		t.Fatalf("error while reading kernel version: %s", err)
	}
	release := unix.ByteSliceToString(uts.Release[:])
	fields := strings.FieldsFunc(release, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if len(fields) < 2 {
		t.Fatalf("unexpected kernel release %q", release)
	}
	kMajor, _ := strconv.Atoi(fields[0])
	kMinor, _ := strconv.Atoi(fields[1])
	if kMajor < major || (kMajor == major && kMinor < minor) {
		t.Skipf("test requires kernel %d.%d or later, running %s", major, minor, release)
	}
}

// Command checks if the provided command is found
// in one the path defined in the PATH environment variable,
// if not found the current test is skipped with a message.
func Command(t *testing.T, command string) {
	_, err := exec.LookPath(command)
	if err != nil {
		t.Skipf("%s command not found in $PATH", command)
	}
}
