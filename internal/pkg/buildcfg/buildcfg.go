// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package buildcfg holds values set at build time with -ldflags.
package buildcfg

//nolint:revive,stylecheck
const PACKAGE_NAME = "loopctl"

// PACKAGE_VERSION is overridden by the Makefile from git describe.
//
//nolint:revive,stylecheck
var PACKAGE_VERSION = "0.0.0-dev"
