// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2018-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apptainer/loopctl/pkg/util/loopconf"
)

func main() {
	switch len(os.Args) {
	case 3:
		inPath := filepath.Clean(os.Args[1])
		outPath := filepath.Clean(os.Args[2])
		genConf(inPath, outPath)
	case 2:
		outPath := filepath.Clean(os.Args[1])
		genConf("", outPath)
	default:
		fmt.Println("Usage: go run ./etc/conf [infile] <outfile>")
		os.Exit(1)
	}
}

// genConf writes a loopctl.toml file at out, keeping the options set in
// in when it exists and the defaults otherwise.
func genConf(in, out string) {
	c := loopconf.Default()
	if in != "" {
		if _, err := os.Stat(in); err == nil {
			c, err = loopconf.Load(in)
			if err != nil {
				fmt.Printf("Unable to parse %s: %s\n", in, err)
				os.Exit(1)
			}
		}
	}

	if err := loopconf.Save(c, out); err != nil {
		fmt.Printf("Unable to generate config file: %v\n", err)
		os.Exit(1)
	}
}
