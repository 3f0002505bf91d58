// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2019-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package cmdline registers cobra commands and their flags, with flag
// values optionally taken from environment variables.
package cmdline

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CommandError is an error reported for an invalid command invocation,
// the usage of the command is displayed along with it.
type CommandError string

func (e CommandError) Error() string {
	return string(e)
}

// FlagError is an error reported for an invalid flag value, the flags
// of the command are displayed along with it.
type FlagError string

func (e FlagError) Error() string {
	return string(e)
}

// CommandManager holds the root command and its registered flags.
type CommandManager struct {
	rootCmd *cobra.Command
	fm      *flagManager
	errPool []error
}

// NewCommandManager instantiates a CommandManager for rootCmd.
func NewCommandManager(rootCmd *cobra.Command) *CommandManager {
	cm, err := newCommandManager(rootCmd)
	if err != nil {
		panic(err)
	}
	return cm
}

func newCommandManager(rootCmd *cobra.Command) (*CommandManager, error) {
	if rootCmd == nil {
		return nil, fmt.Errorf("nil root command passed")
	}
	return &CommandManager{
		rootCmd: rootCmd,
		fm:      newFlagManager(),
		errPool: make([]error, 0),
	}, nil
}

func (m *CommandManager) pushError(format string, a ...interface{}) {
	m.errPool = append(m.errPool, fmt.Errorf(format, a...))
}

// GetError returns the errors reported while registering commands
// and flags.
func (m *CommandManager) GetError() []error {
	return m.errPool
}

// GetRootCmd returns the root command.
func (m *CommandManager) GetRootCmd() *cobra.Command {
	return m.rootCmd
}

// RegisterCmd registers cmd as a child of the root command.
func (m *CommandManager) RegisterCmd(cmd *cobra.Command) {
	m.RegisterSubCmd(m.rootCmd, cmd)
}

// RegisterSubCmd registers child as a child of parent.
func (m *CommandManager) RegisterSubCmd(parent, child *cobra.Command) {
	if parent == nil || child == nil {
		m.pushError("nil command passed for registration")
		return
	}
	parent.AddCommand(child)
}

// RegisterFlagForCmd registers flag on each of cmds.
func (m *CommandManager) RegisterFlagForCmd(flag *Flag, cmds ...*cobra.Command) {
	if err := m.fm.registerFlagForCmd(flag, cmds...); err != nil {
		m.pushError("while registering flag: %s", err)
	}
}

// UpdateCmdFlagFromEnv updates the flags of cmd from environment
// variables using the prefix at index precedence of EnvPrefixes,
// a negative precedence means no prefix.
func (m *CommandManager) UpdateCmdFlagFromEnv(cmd *cobra.Command, precedence int, foundKeys map[string]string) error {
	return m.fm.updateCmdFlagFromEnv(cmd, precedence, foundKeys)
}
