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
	"github.com/apptainer/loopctl/pkg/util/loop"
	"github.com/apptainer/loopctl/pkg/util/loopconf"
	"github.com/ccoveille/go-safecast"
	units "github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func init() {
	addCmdInit(func(cmdManager *cmdline.CommandManager) {
		cmdManager.RegisterCmd(attachCmd)

		cmdManager.RegisterFlagForCmd(&attachOffsetFlag, attachCmd)
		cmdManager.RegisterFlagForCmd(&attachSizeLimitFlag, attachCmd)
		cmdManager.RegisterFlagForCmd(&attachReadOnlyFlag, attachCmd)
		cmdManager.RegisterFlagForCmd(&attachAutoClearFlag, attachCmd)
		cmdManager.RegisterFlagForCmd(&attachPartScanFlag, attachCmd)
		cmdManager.RegisterFlagForCmd(&attachDirectIOFlag, attachCmd)
		cmdManager.RegisterFlagForCmd(&attachBlockSizeFlag, attachCmd)
		cmdManager.RegisterFlagForCmd(&attachSharedFlag, attachCmd)
	})
}

var (
	attachOffset    string
	attachSizeLimit string
	attachReadOnly  bool
	attachAutoClear bool
	attachPartScan  bool
	attachDirectIO  bool
	attachBlockSize string
	attachShared    bool
)

// -o|--offset
var attachOffsetFlag = cmdline.Flag{
	ID:           "attachOffsetFlag",
	Value:        &attachOffset,
	DefaultValue: "0",
	Name:         "offset",
	ShortHand:    "o",
	Usage:        "start the device at this offset in the file",
	Tag:          "<size>",
	EnvKeys:      []string{"OFFSET"},
}

// --sizelimit
var attachSizeLimitFlag = cmdline.Flag{
	ID:           "attachSizeLimitFlag",
	Value:        &attachSizeLimit,
	DefaultValue: "0",
	Name:         "sizelimit",
	Usage:        "limit the device to this size, 0 uses the whole file",
	Tag:          "<size>",
	EnvKeys:      []string{"SIZELIMIT"},
}

// -r|--read-only
var attachReadOnlyFlag = cmdline.Flag{
	ID:           "attachReadOnlyFlag",
	Value:        &attachReadOnly,
	DefaultValue: false,
	Name:         "read-only",
	ShortHand:    "r",
	Usage:        "set up a read-only device",
	EnvKeys:      []string{"READ_ONLY"},
}

// --autoclear
var attachAutoClearFlag = cmdline.Flag{
	ID:           "attachAutoClearFlag",
	Value:        &attachAutoClear,
	DefaultValue: false,
	Name:         "autoclear",
	Usage:        "release the device when its last user closes it, attach then holds the device until interrupted (default from configuration)",
	EnvKeys:      []string{"AUTOCLEAR"},
}

// -P|--partscan
var attachPartScanFlag = cmdline.Flag{
	ID:           "attachPartScanFlag",
	Value:        &attachPartScan,
	DefaultValue: false,
	Name:         "partscan",
	ShortHand:    "P",
	Usage:        "scan the device for partitions",
	EnvKeys:      []string{"PARTSCAN"},
}

// --direct-io
var attachDirectIOFlag = cmdline.Flag{
	ID:           "attachDirectIOFlag",
	Value:        &attachDirectIO,
	DefaultValue: false,
	Name:         "direct-io",
	Usage:        "bypass the page cache when accessing the file",
	EnvKeys:      []string{"DIRECT_IO"},
}

// -b|--block-size
var attachBlockSizeFlag = cmdline.Flag{
	ID:           "attachBlockSizeFlag",
	Value:        &attachBlockSize,
	DefaultValue: "0",
	Name:         "block-size",
	ShortHand:    "b",
	Usage:        "logical block size of the device, 0 keeps the kernel default",
	Tag:          "<size>",
	EnvKeys:      []string{"BLOCK_SIZE"},
}

// --shared
var attachSharedFlag = cmdline.Flag{
	ID:           "attachSharedFlag",
	Value:        &attachShared,
	DefaultValue: false,
	Name:         "shared",
	Usage:        "reuse a device already bound to the file with the same options",
	EnvKeys:      []string{"SHARED"},
}

// parseSize parses a size given as a number of bytes with an optional
// binary unit suffix.
func parseSize(name, value string) (uint64, error) {
	n, err := units.RAMInBytes(value)
	if err != nil {
		return 0, cmdline.FlagError(fmt.Sprintf("invalid --%s value: %s", name, err))
	}
	size, err := safecast.ToUint64(n)
	if err != nil {
		return 0, cmdline.FlagError(fmt.Sprintf("invalid --%s value: %s", name, err))
	}
	return size, nil
}

func attachOptions(cmd *cobra.Command, cfg *loopconf.File) (loopctl.AttachOptions, error) {
	opts := loopctl.AttachOptions{
		Options: loop.Options{
			ReadOnly:  attachReadOnly,
			AutoClear: cfg.AutoClear,
			PartScan:  attachPartScan,
			DirectIO:  attachDirectIO,
		},
		Shared: attachShared,
	}
	if cmd.Flags().Changed("autoclear") {
		opts.AutoClear = attachAutoClear
	}

	var err error
	if opts.Offset, err = parseSize("offset", attachOffset); err != nil {
		return opts, err
	}
	if opts.SizeLimit, err = parseSize("sizelimit", attachSizeLimit); err != nil {
		return opts, err
	}
	blockSize, err := parseSize("block-size", attachBlockSize)
	if err != nil {
		return opts, err
	}
	if opts.BlockSize, err = safecast.ToUint32(blockSize); err != nil {
		return opts, cmdline.FlagError(fmt.Sprintf("invalid --block-size value: %s", err))
	}
	return opts, nil
}

// loopctl attach
var attachCmd = &cobra.Command{
	Args:                  cobra.RangeArgs(1, 2),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := currentConfig()

		opts, err := attachOptions(cmd, cfg)
		if err != nil {
			return err
		}
		if len(args) > 1 {
			opts.Device = args[1]
		}

		if !opts.AutoClear {
			device, err := loopctl.AttachFile(cfg, args[0], opts)
			if err != nil {
				sylog.Fatalf("%s", err)
			}
			fmt.Println(device)
			return nil
		}

		// the kernel detaches an autoclear device on last close, keep
		// it open until interrupted
		held, err := loopctl.HoldFile(cfg, args[0], opts)
		if err != nil {
			sylog.Fatalf("%s", err)
		}
		fmt.Println(held.Device)
		sylog.Infof("Holding %s until interrupted", held.Device)
		<-cmd.Context().Done()
		if err := held.Close(); err != nil {
			sylog.Warningf("Could not release %s: %s", held.Device, err)
		}
		return nil
	},

	Use:     docs.AttachUse,
	Short:   docs.AttachShort,
	Long:    docs.AttachLong,
	Example: docs.AttachExample,
}

// currentConfig returns the configuration loaded by the root command,
// or the defaults when none was loaded.
func currentConfig() *loopconf.File {
	if cfg := loopconf.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return loopconf.Default()
}
