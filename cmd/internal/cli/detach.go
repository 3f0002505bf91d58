// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"github.com/apptainer/loopctl/docs"
	"github.com/apptainer/loopctl/internal/app/loopctl"
	"github.com/apptainer/loopctl/pkg/cmdline"
	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/spf13/cobra"
)

func init() {
	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterCmd(detachCmd)
	})
}

// loopctl detach
var detachCmd = &cobra.Command{
	Args:                  cobra.MinimumNArgs(1),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		if err := loopctl.DetachDevices(args); err != nil {
			sylog.Fatalf("%s", err)
		}
	},

	Use:     docs.DetachUse,
	Short:   docs.DetachShort,
	Long:    docs.DetachLong,
	Example: docs.DetachExample,
}
