// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2019-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmdline

import (
	"github.com/spf13/pflag"
)

// EnvPrefixes lists the recognized environment variable prefixes, by
// decreasing precedence.
var EnvPrefixes = []string{"LOOPCTL_"}

// EnvHandler applies the value of an environment variable to a flag.
type EnvHandler func(*pflag.Flag, string) error

// EnvSetValue is the default handler, it sets the flag value as if it
// was given on the command line.
func EnvSetValue(flag *pflag.Flag, value string) error {
	if flag.Changed {
		return nil
	}
	if err := flag.Value.Set(value); err != nil {
		return err
	}
	flag.DefValue = value
	return nil
}

// envKey returns the environment variable name for key at the given
// precedence. A negative precedence means no prefix.
func envKey(precedence int, key string) string {
	if precedence < 0 || precedence >= len(EnvPrefixes) {
		return key
	}
	return EnvPrefixes[precedence] + key
}
