// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2018-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package test holds helpers shared by unit tests.
package test

import (
	"os"
	"path/filepath"
	"testing"
)

// EnsurePrivilege skips the current test unless it runs as root.
func EnsurePrivilege(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("test must be run with privilege")
	}
}

// DropPrivilege skips the current test if it runs as root, for tests
// checking the behavior of unprivileged callers.
func DropPrivilege(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("test must be run without privilege")
	}
}

// BackingFile creates a sparse file of the given size in a temporary
// directory removed at the end of the test, and returns its path.
func BackingFile(t *testing.T, name string, size int64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create backing file: %v", err)
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		t.Fatalf("failed to truncate backing file: %v", err)
	}
	return path
}

// OpenFds returns the number of descriptors currently open by the process.
func OpenFds(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Fatalf("failed to read open descriptors: %v", err)
	}
	return len(entries)
}
