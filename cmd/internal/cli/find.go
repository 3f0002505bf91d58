// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"fmt"

	"github.com/apptainer/loopctl/docs"
	"github.com/apptainer/loopctl/internal/app/loopctl"
	"github.com/apptainer/loopctl/pkg/cmdline"
	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/spf13/cobra"
)

func init() {
	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterCmd(findCmd)
	})
}

// loopctl find
var findCmd = &cobra.Command{
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		device, err := loopctl.FindFree()
		if err != nil {
			sylog.Fatalf("Could not find a free loop device: %s", err)
		}
		fmt.Println(device)
	},

	Use:     docs.FindUse,
	Short:   docs.FindShort,
	Long:    docs.FindLong,
	Example: docs.FindExample,
}
