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
	"strconv"

	"github.com/apptainer/loopctl/docs"
	"github.com/apptainer/loopctl/internal/app/loopctl"
	"github.com/apptainer/loopctl/pkg/cmdline"
	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/spf13/cobra"
)

func init() {
	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterCmd(controlCmd)
		cmdManager.RegisterSubCmd(controlCmd, controlAddCmd)
		cmdManager.RegisterSubCmd(controlCmd, controlRemoveCmd)
	})
}

// loopctl control
var controlCmd = &cobra.Command{
	Run:                   nil,
	DisableFlagsInUseLine: true,

	Use:     docs.ControlUse,
	Short:   docs.ControlShort,
	Long:    docs.ControlLong,
	Example: docs.ControlExample,
}

// loopctl control add
var controlAddCmd = &cobra.Command{
	Args:                  cobra.RangeArgs(0, 1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		index := -1
		if len(args) > 0 {
			n, err := strconv.ParseUint(args[0], 10, 20)
			if err != nil {
				return cmdline.CommandError(fmt.Sprintf("invalid loop device index %q", args[0]))
			}
			index = int(n)
		}

		device, err := loopctl.AddDevice(index)
		if err != nil {
			sylog.Fatalf("Could not create loop device: %s", err)
		}
		fmt.Println(device)
		return nil
	},

	Use:     docs.ControlAddUse,
	Short:   docs.ControlAddShort,
	Long:    docs.ControlAddLong,
	Example: docs.ControlAddExample,
}

// loopctl control remove
var controlRemoveCmd = &cobra.Command{
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := loopctl.ParseDevice(args[0])
		if err != nil {
			return cmdline.CommandError(err.Error())
		}
		if err := loopctl.RemoveDevice(index); err != nil {
			sylog.Fatalf("Could not remove loop device: %s", err)
		}
		return nil
	},

	Use:     docs.ControlRemoveUse,
	Short:   docs.ControlRemoveShort,
	Long:    docs.ControlRemoveLong,
	Example: docs.ControlRemoveExample,
}
