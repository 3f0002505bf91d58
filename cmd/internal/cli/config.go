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
	"github.com/apptainer/loopctl/pkg/cmdline"
	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/apptainer/loopctl/pkg/util/loopconf"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func init() {
	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterCmd(configCmd)
		cmdManager.RegisterSubCmd(configCmd, configShowCmd)
		cmdManager.RegisterSubCmd(configCmd, configInitCmd)
	})
}

// loopctl config
var configCmd = &cobra.Command{
	Run:                   nil,
	DisableFlagsInUseLine: true,

	Use:     docs.ConfigUse,
	Short:   docs.ConfigShort,
	Long:    docs.ConfigLong,
	Example: docs.ConfigExample,
}

// loopctl config show
var configShowCmd = &cobra.Command{
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		data, err := toml.Marshal(currentConfig())
		if err != nil {
			sylog.Fatalf("Could not encode configuration: %s", err)
		}
		fmt.Print(string(data))
	},

	Use:     docs.ConfigShowUse,
	Short:   docs.ConfigShowShort,
	Long:    docs.ConfigShowLong,
	Example: docs.ConfigShowExample,
}

// loopctl config init
var configInitCmd = &cobra.Command{
	Args:                  cobra.RangeArgs(0, 1),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		path := configurationFile
		if len(args) > 0 {
			path = args[0]
		}
		if err := loopconf.Save(currentConfig(), path); err != nil {
			sylog.Fatalf("Could not write configuration to %s: %s", path, err)
		}
		sylog.Infof("Configuration written to %s", path)
	},

	Use:     docs.ConfigInitUse,
	Short:   docs.ConfigInitShort,
	Long:    docs.ConfigInitLong,
	Example: docs.ConfigInitExample,
}
