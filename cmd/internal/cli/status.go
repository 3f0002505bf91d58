// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"os"
	"time"

	"github.com/apptainer/loopctl/docs"
	"github.com/apptainer/loopctl/internal/app/loopctl"
	"github.com/apptainer/loopctl/pkg/cmdline"
	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterCmd(statusCmd)
		cmdManager.RegisterCmd(listCmd)

		cmdManager.RegisterFlagForCmd(&statusJSONFlag, statusCmd, listCmd)
		cmdManager.RegisterFlagForCmd(&listWatchFlag, listCmd)
	})
}

// -j|--json
var statusJSON bool

var statusJSONFlag = cmdline.Flag{
	ID:           "statusJSONFlag",
	Value:        &statusJSON,
	DefaultValue: false,
	Name:         "json",
	ShortHand:    "j",
	Usage:        "print structured json instead of a table",
	EnvKeys:      []string{"JSON"},
}

// --watch
var listWatch string

var listWatchFlag = cmdline.Flag{
	ID:           "listWatchFlag",
	Value:        &listWatch,
	DefaultValue: "",
	Name:         "watch",
	Usage:        "print the list again after each interval (eg. 2s), until interrupted",
	Tag:          "<interval>",
}

// loopctl status
var statusCmd = &cobra.Command{
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		if err := loopctl.PrintStatus(os.Stdout, args[0], statusJSON); err != nil {
			sylog.Fatalf("Could not get loop device status: %s", err)
		}
	},

	Use:     docs.StatusUse,
	Short:   docs.StatusShort,
	Long:    docs.StatusLong,
	Example: docs.StatusExample,
}

// loopctl list
var listCmd = &cobra.Command{
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		if listWatch == "" {
			if err := loopctl.PrintList(os.Stdout, currentConfig(), statusJSON); err != nil {
				sylog.Fatalf("%s", err)
			}
			return
		}

		if statusJSON {
			sylog.Fatalf("--watch and --json can't be used together")
		}
		interval, err := time.ParseDuration(listWatch)
		if err != nil || interval <= 0 {
			sylog.Fatalf("Invalid watch interval %q", listWatch)
		}
		stream := term.IsTerminal(int(os.Stdout.Fd()))
		if err := loopctl.WatchList(cmd.Context(), os.Stdout, currentConfig(), interval, stream); err != nil {
			sylog.Fatalf("%s", err)
		}
	},

	Use:     docs.ListUse,
	Short:   docs.ListShort,
	Long:    docs.ListLong,
	Example: docs.ListExample,
}
