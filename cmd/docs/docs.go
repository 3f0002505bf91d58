// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2019-2020, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"fmt"

	"github.com/apptainer/loopctl/cmd/internal/cli"
	"github.com/apptainer/loopctl/internal/pkg/buildcfg"
	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"golang.org/x/sys/unix"
)

// generators write the documentation of the command tree to a directory.
var generators = map[string]func(*cobra.Command, string) error{
	"markdown": doc.GenMarkdownTree,
	"man": func(rootCmd *cobra.Command, outDir string) error {
		header := &doc.GenManHeader{
			Title:   "LOOPCTL",
			Section: "8",
			Source:  "loopctl " + buildcfg.PACKAGE_VERSION,
		}
		return doc.GenManTree(rootCmd, header, outDir)
	},
	"rst": func(rootCmd *cobra.Command, outDir string) error {
		return doc.GenReSTTreeCustom(rootCmd, outDir, func(_ string) string {
			return ""
		}, func(name, ref string) string {
			return fmt.Sprintf(":ref:`%s <%s>`", name, ref)
		})
	},
}

func main() {
	var dir string
	rootCmd := &cobra.Command{
		ValidArgs: []string{"markdown", "man", "rst"},
		Args:      cobra.ExactArgs(1),
		Use:       "makeDocs {markdown | man | rst}",
		Short:     "Generates loopctl documentation",
		Run: func(_ *cobra.Command, args []string) {
			gen, ok := generators[args[0]]
			if !ok {
				sylog.Fatalf("Invalid output type %s", args[0])
			}
			if err := unix.Access(dir, unix.W_OK); err != nil {
				sylog.Fatalf("Given directory (%s) does not exist or is not writable by calling user", dir)
			}

			// commands are only registered by Init
			cli.Init()

			sylog.Infof("Creating loopctl %s docs at %s", args[0], dir)
			if err := gen(cli.RootCmd(), dir); err != nil {
				sylog.Fatalf("Failed to create %s docs: %s", args[0], err)
			}
		},
	}
	rootCmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory in which to put the generated documentation")
	rootCmd.Execute()
}
