// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2018-2023, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/apptainer/loopctl/docs"
	"github.com/apptainer/loopctl/internal/pkg/buildcfg"
	"github.com/apptainer/loopctl/pkg/cmdline"
	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/apptainer/loopctl/pkg/util/loopconf"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// cmdInits holds all the init function to be called
// for commands/flags registration.
var cmdInits = make([]func(*cmdline.CommandManager), 0)

// loopctl command flags
var (
	debug   bool
	nocolor bool
	silent  bool
	verbose bool
	quiet   bool

	configurationFile string
)

// -d|--debug
var loopctlDebugFlag = cmdline.Flag{
	ID:           "loopctlDebugFlag",
	Value:        &debug,
	DefaultValue: false,
	Name:         "debug",
	ShortHand:    "d",
	Usage:        "print debugging information (highest verbosity)",
	EnvKeys:      []string{"DEBUG"},
}

// --nocolor
var loopctlNoColorFlag = cmdline.Flag{
	ID:           "loopctlNoColorFlag",
	Value:        &nocolor,
	DefaultValue: false,
	Name:         "nocolor",
	Usage:        "print without color output (default False)",
	EnvKeys:      []string{"NOCOLOR"},
}

// -s|--silent
var loopctlSilentFlag = cmdline.Flag{
	ID:           "loopctlSilentFlag",
	Value:        &silent,
	DefaultValue: false,
	Name:         "silent",
	ShortHand:    "s",
	Usage:        "only print errors",
	EnvKeys:      []string{"SILENT"},
}

// -q|--quiet
var loopctlQuietFlag = cmdline.Flag{
	ID:           "loopctlQuietFlag",
	Value:        &quiet,
	DefaultValue: false,
	Name:         "quiet",
	ShortHand:    "q",
	Usage:        "suppress normal output",
	EnvKeys:      []string{"QUIET"},
}

// -v|--verbose
var loopctlVerboseFlag = cmdline.Flag{
	ID:           "loopctlVerboseFlag",
	Value:        &verbose,
	DefaultValue: false,
	Name:         "verbose",
	ShortHand:    "v",
	Usage:        "print additional information",
	EnvKeys:      []string{"VERBOSE"},
}

// -c|--config
var loopctlConfigFileFlag = cmdline.Flag{
	ID:           "loopctlConfigFileFlag",
	Value:        &configurationFile,
	DefaultValue: loopconf.DefaultPath,
	Name:         "config",
	ShortHand:    "c",
	Usage:        "specify a configuration file",
	Tag:          "<path>",
	EnvKeys:      []string{"CONFIG_FILE"},
}

func addCmdInit(cmdInit func(*cmdline.CommandManager)) {
	cmdInits = append(cmdInits, cmdInit)
}

func setSylogMessageLevel() {
	var level int

	if debug {
		level = 5
	} else if verbose {
		level = 4
	} else if quiet {
		level = -1
	} else if silent {
		level = -3
	} else {
		level = 1
	}

	useColor := true
	if nocolor || !term.IsTerminal(2) {
		useColor = false
	}
	if nocolor {
		color.NoColor = true
	}

	sylog.SetLevel(level, useColor)
}

func persistentPreRun(cmd *cobra.Command, args []string) error {
	setSylogMessageLevel()
	sylog.Debugf("loopctl version: %s", buildcfg.PACKAGE_VERSION)

	sylog.Debugf("Parsing configuration file %s", configurationFile)
	config, err := loopconf.Load(configurationFile)
	if err != nil {
		return fmt.Errorf("couldn't parse configuration file %s: %s", configurationFile, err)
	}
	loopconf.SetCurrentConfig(config)
	return nil
}

// Init initializes and registers all loopctl commands.
func Init() {
	cmdManager := cmdline.NewCommandManager(loopctlCmd)

	loopctlCmd.Flags().SetInterspersed(false)
	loopctlCmd.PersistentFlags().SetInterspersed(false)

	vt := fmt.Sprintf("%s version {{printf \"%%s\" .Version}}\n", buildcfg.PACKAGE_NAME)
	loopctlCmd.SetVersionTemplate(vt)

	// set persistent pre run function here to avoid initialization loop error
	loopctlCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		foundKeys := make(map[string]string)
		for precedence := range cmdline.EnvPrefixes {
			if err := cmdManager.UpdateCmdFlagFromEnv(loopctlCmd, precedence, foundKeys); err != nil {
				sylog.Fatalf("While parsing global environment variables: %s", err)
			}
		}
		for precedence := range cmdline.EnvPrefixes {
			if err := cmdManager.UpdateCmdFlagFromEnv(cmd, precedence, foundKeys); err != nil {
				sylog.Fatalf("While parsing environment variables: %s", err)
			}
		}
		if err := persistentPreRun(cmd, args); err != nil {
			sylog.Fatalf("While initializing: %s", err)
		}
		return nil
	}

	cmdManager.RegisterFlagForCmd(&loopctlDebugFlag, loopctlCmd)
	cmdManager.RegisterFlagForCmd(&loopctlNoColorFlag, loopctlCmd)
	cmdManager.RegisterFlagForCmd(&loopctlSilentFlag, loopctlCmd)
	cmdManager.RegisterFlagForCmd(&loopctlQuietFlag, loopctlCmd)
	cmdManager.RegisterFlagForCmd(&loopctlVerboseFlag, loopctlCmd)
	cmdManager.RegisterFlagForCmd(&loopctlConfigFileFlag, loopctlCmd)

	cmdManager.RegisterCmd(VersionCmd)

	// register all others commands/flags
	for _, cmdInit := range cmdInits {
		cmdInit(cmdManager)
	}

	// any error reported by command manager is considered as fatal
	cliErrors := len(cmdManager.GetError())
	if cliErrors > 0 {
		for _, e := range cmdManager.GetError() {
			sylog.Errorf("%s", e)
		}
		sylog.Fatalf("CLI command manager reported %d error(s)", cliErrors)
	}
}

// loopctlCmd is the base command when called without any subcommands
var loopctlCmd = &cobra.Command{
	TraverseChildren:      true,
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdline.CommandError("invalid command")
	},

	Use:           docs.LoopctlUse,
	Version:       buildcfg.PACKAGE_VERSION,
	Short:         docs.LoopctlShort,
	Long:          docs.LoopctlLong,
	Example:       docs.LoopctlExample,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// RootCmd returns the root loopctl cobra command.
func RootCmd() *cobra.Command {
	return loopctlCmd
}

// ExecuteLoopctl adds all child commands to the root command and sets
// flags appropriately. This is called by main.main(). It only needs to happen
// once to the root command (loopctl).
func ExecuteLoopctl() {
	Init()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	subCmd, err := loopctlCmd.ExecuteContextC(ctx)
	if err == nil {
		return
	}

	name := subCmd.Name()
	switch err.(type) {
	case cmdline.FlagError:
		usage := subCmd.Flags().FlagUsagesWrapped(getColumns())
		loopctlCmd.Printf("Error for command %q: %s\n\n", name, err)
		loopctlCmd.Printf("Options for %s command:\n\n%s\n", name, usage)
	case cmdline.CommandError:
		loopctlCmd.Println(subCmd.UsageString())
	default:
		loopctlCmd.Printf("Error for command %q: %s\n\n", name, err)
		loopctlCmd.Println(subCmd.UsageString())
	}
	loopctlCmd.Printf("Run '%s --help' for more detailed usage information.\n",
		loopctlCmd.CommandPath())
	cancel()
	os.Exit(1)
}

// GenBashCompletion writes the bash completion file to w.
func GenBashCompletion(w io.Writer, name string) error {
	Init()
	loopctlCmd.Use = name
	return loopctlCmd.GenBashCompletionV2(w, true)
}

// getColumns returns the width of the terminal on stdout, 80 when it
// is not a terminal.
func getColumns() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// VersionCmd displays installed loopctl version
var VersionCmd = &cobra.Command{
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(buildcfg.PACKAGE_VERSION)
	},

	Use:   docs.VersionUse,
	Short: docs.VersionShort,
}
