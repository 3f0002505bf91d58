// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2019-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmdline

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag holds information about a command flag
type Flag struct {
	ID           string
	Value        interface{}
	DefaultValue interface{}
	Name         string
	ShortHand    string
	Usage        string
	Tag          string
	Deprecated   string
	Hidden       bool
	Required     bool
	EnvKeys      []string
	EnvHandler   EnvHandler
	// WithoutPrefix reads EnvKeys as full variable names.
	WithoutPrefix bool
}

// flagManager manages flags registered on commands.
type flagManager struct {
	flags map[string]*Flag
	// registered flags indexed by command and flag name
	cmdFlags map[*cobra.Command]map[string]*Flag
}

func newFlagManager() *flagManager {
	return &flagManager{
		flags:    make(map[string]*Flag),
		cmdFlags: make(map[*cobra.Command]map[string]*Flag),
	}
}

func (m *flagManager) setFlagOptions(flag *Flag, cmd *cobra.Command) {
	cmd.Flags().SetAnnotation(flag.Name, "argtag", []string{flag.Tag})
	cmd.Flags().SetAnnotation(flag.Name, "ID", []string{flag.ID})

	if len(flag.EnvKeys) > 0 {
		cmd.Flags().SetAnnotation(flag.Name, "envkey", flag.EnvKeys)
	}
	if flag.Deprecated != "" {
		cmd.Flags().MarkDeprecated(flag.Name, flag.Deprecated)
	}
	if flag.Hidden {
		cmd.Flags().MarkHidden(flag.Name)
	}
	if flag.Required {
		cmd.MarkFlagRequired(flag.Name)
	}

	if m.cmdFlags[cmd] == nil {
		m.cmdFlags[cmd] = make(map[string]*Flag)
	}
	m.cmdFlags[cmd][flag.Name] = flag
}

func (m *flagManager) registerFlagForCmd(flag *Flag, cmds ...*cobra.Command) error {
	if flag == nil {
		return fmt.Errorf("nil flag provided")
	}
	if len(cmds) == 0 {
		return fmt.Errorf("no command provided for flag %q", flag.Name)
	}
	for _, c := range cmds {
		if c == nil {
			return fmt.Errorf("nil command provided for flag %q", flag.Name)
		}
	}
	if f, ok := m.flags[flag.ID]; ok && f != flag {
		return fmt.Errorf("flag ID %q already registered", flag.ID)
	}

	var err error
	switch flag.DefaultValue.(type) {
	case string:
		err = m.registerStringVar(flag, cmds)
	case []string:
		err = m.registerStringSliceVar(flag, cmds)
	case map[string]string:
		err = m.registerStringMapVar(flag, cmds)
	case bool:
		err = m.registerBoolVar(flag, cmds)
	case int:
		err = m.registerIntVar(flag, cmds)
	case uint32:
		err = m.registerUint32Var(flag, cmds)
	case uint64:
		err = m.registerUint64Var(flag, cmds)
	default:
		return fmt.Errorf("flag of type %T is not supported", flag.DefaultValue)
	}
	if err != nil {
		return err
	}
	m.flags[flag.ID] = flag
	return nil
}

func valueError(flag *Flag) error {
	return fmt.Errorf("flag %q: value of type %T does not match default value of type %T", flag.Name, flag.Value, flag.DefaultValue)
}

func (m *flagManager) registerStringVar(flag *Flag, cmds []*cobra.Command) error {
	value, ok := flag.Value.(*string)
	if !ok {
		return valueError(flag)
	}
	for _, c := range cmds {
		c.Flags().StringVarP(value, flag.Name, flag.ShortHand, flag.DefaultValue.(string), flag.Usage)
		m.setFlagOptions(flag, c)
	}
	return nil
}

func (m *flagManager) registerStringSliceVar(flag *Flag, cmds []*cobra.Command) error {
	value, ok := flag.Value.(*[]string)
	if !ok {
		return valueError(flag)
	}
	for _, c := range cmds {
		c.Flags().StringSliceVarP(value, flag.Name, flag.ShortHand, flag.DefaultValue.([]string), flag.Usage)
		m.setFlagOptions(flag, c)
	}
	return nil
}

func (m *flagManager) registerStringMapVar(flag *Flag, cmds []*cobra.Command) error {
	value, ok := flag.Value.(*map[string]string)
	if !ok {
		return valueError(flag)
	}
	for _, c := range cmds {
		c.Flags().StringToStringVarP(value, flag.Name, flag.ShortHand, flag.DefaultValue.(map[string]string), flag.Usage)
		m.setFlagOptions(flag, c)
	}
	return nil
}

func (m *flagManager) registerBoolVar(flag *Flag, cmds []*cobra.Command) error {
	value, ok := flag.Value.(*bool)
	if !ok {
		return valueError(flag)
	}
	for _, c := range cmds {
		c.Flags().BoolVarP(value, flag.Name, flag.ShortHand, flag.DefaultValue.(bool), flag.Usage)
		m.setFlagOptions(flag, c)
	}
	return nil
}

func (m *flagManager) registerIntVar(flag *Flag, cmds []*cobra.Command) error {
	value, ok := flag.Value.(*int)
	if !ok {
		return valueError(flag)
	}
	for _, c := range cmds {
		c.Flags().IntVarP(value, flag.Name, flag.ShortHand, flag.DefaultValue.(int), flag.Usage)
		m.setFlagOptions(flag, c)
	}
	return nil
}

func (m *flagManager) registerUint32Var(flag *Flag, cmds []*cobra.Command) error {
	value, ok := flag.Value.(*uint32)
	if !ok {
		return valueError(flag)
	}
	for _, c := range cmds {
		c.Flags().Uint32VarP(value, flag.Name, flag.ShortHand, flag.DefaultValue.(uint32), flag.Usage)
		m.setFlagOptions(flag, c)
	}
	return nil
}

func (m *flagManager) registerUint64Var(flag *Flag, cmds []*cobra.Command) error {
	value, ok := flag.Value.(*uint64)
	if !ok {
		return valueError(flag)
	}
	for _, c := range cmds {
		c.Flags().Uint64VarP(value, flag.Name, flag.ShortHand, flag.DefaultValue.(uint64), flag.Usage)
		m.setFlagOptions(flag, c)
	}
	return nil
}

// updateCmdFlagFromEnv sets the flags of cmd from the environment
// variables matching their keys with the prefix of the given precedence.
// foundKeys records flags already set by a higher precedence prefix.
func (m *flagManager) updateCmdFlagFromEnv(cmd *cobra.Command, precedence int, foundKeys map[string]string) error {
	var errs []string

	registered := m.cmdFlags[cmd]

	cmd.Flags().VisitAll(func(pf *pflag.Flag) {
		flag, ok := registered[pf.Name]
		if !ok {
			return
		}
		if _, done := foundKeys[flag.ID]; done {
			return
		}
		for _, key := range flag.EnvKeys {
			name := key
			if !flag.WithoutPrefix {
				name = envKey(precedence, key)
			}
			value, set := os.LookupEnv(name)
			if !set {
				continue
			}
			handler := flag.EnvHandler
			if handler == nil {
				handler = EnvSetValue
			}
			if err := handler(pf, value); err != nil {
				errs = append(errs, fmt.Sprintf("while setting flag %q from %s: %s", pf.Name, name, err))
				return
			}
			foundKeys[flag.ID] = name
			return
		}
	})

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
