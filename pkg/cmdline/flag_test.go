// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2019-2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmdline

import (
	"testing"

	"github.com/spf13/cobra"
	"gotest.tools/v3/assert"
)

var (
	testString      string
	testBool        bool
	testStringSlice []string
	testInt         int
	testUint32      uint32
	testUint64      uint64
	testStringMap   map[string]string
)

func newTestCommands() (*cobra.Command, *cobra.Command) {
	root := &cobra.Command{Use: "root"}
	parent := &cobra.Command{Use: "parent"}
	root.AddCommand(parent)
	return root, parent
}

func TestCmdFlag(t *testing.T) {
	rootCmd, parentCmd := newTestCommands()

	ttData := []struct {
		desc       string
		flag       *Flag
		cmd        *cobra.Command
		envValue   string
		matchValue string
		// Alternative match to accommodate random map ordering
		altMatchValue   string
		expectedFailure bool
	}{
		{
			desc:            "nil flag",
			cmd:             rootCmd,
			expectedFailure: true,
		},
		{
			desc: "nil command",
			flag: &Flag{
				ID:           "testNilCmdFlag",
				Value:        &testString,
				DefaultValue: testString,
				Name:         "nil-cmd",
			},
			expectedFailure: true,
		},
		{
			desc: "bad type flag",
			flag: &Flag{
				ID:           "testBadTypeFlag",
				Value:        &testString,
				DefaultValue: &cobra.Command{},
				Name:         "bad-type",
				Usage:        "a bad type flag",
			},
			cmd:             parentCmd,
			expectedFailure: true,
		},
		{
			desc: "mismatched value flag",
			flag: &Flag{
				ID:           "testMismatchFlag",
				Value:        &testInt,
				DefaultValue: "",
				Name:         "mismatch",
				Usage:        "a flag with a wrong value type",
			},
			cmd:             parentCmd,
			expectedFailure: true,
		},
		{
			desc: "string flag",
			flag: &Flag{
				ID:           "testStringFlag",
				Value:        &testString,
				DefaultValue: testString,
				Name:         "string",
				ShortHand:    "s",
				Usage:        "a string flag",
				EnvKeys:      []string{"STRING"},
			},
			cmd:        parentCmd,
			envValue:   "a string",
			matchValue: "a string",
		},
		{
			desc: "string deprecated flag",
			flag: &Flag{
				ID:           "testStringDeprecatedFlag",
				Value:        &testString,
				DefaultValue: testString,
				Deprecated:   "deprecated",
				Name:         "string-dep",
				Usage:        "a deprecated string flag",
			},
			cmd: parentCmd,
		},
		{
			desc: "string hidden flag",
			flag: &Flag{
				ID:           "testStringHiddenFlag",
				Value:        &testString,
				DefaultValue: testString,
				Name:         "string-hidden",
				Usage:        "a hidden string flag",
				Hidden:       true,
			},
			cmd: parentCmd,
		},
		{
			desc: "boolean flag",
			flag: &Flag{
				ID:           "testBoolFlag",
				Value:        &testBool,
				DefaultValue: testBool,
				Name:         "bool",
				Usage:        "a boolean flag",
				EnvKeys:      []string{"BOOL"},
			},
			cmd:        parentCmd,
			envValue:   "1",
			matchValue: "true",
		},
		{
			desc: "string slice flag",
			flag: &Flag{
				ID:           "testStringSliceFlag",
				Value:        &testStringSlice,
				DefaultValue: testStringSlice,
				Name:         "string-slice",
				Usage:        "a string slice flag",
				EnvKeys:      []string{"STRING_SLICE"},
			},
			cmd:        parentCmd,
			envValue:   "arg1,arg2",
			matchValue: "[arg1,arg2]",
		},
		{
			desc: "string map flag",
			flag: &Flag{
				ID:           "testStringMapFlag",
				Value:        &testStringMap,
				DefaultValue: testStringMap,
				Name:         "string-map",
				Usage:        "a string map flag",
				EnvKeys:      []string{"STRING_MAP"},
			},
			cmd:           parentCmd,
			envValue:      "key1=arg1,key2=arg2",
			matchValue:    "[key1=arg1,key2=arg2]",
			altMatchValue: "[key2=arg2,key1=arg1]",
		},
		{
			desc: "int flag",
			flag: &Flag{
				ID:           "testIntFlag",
				Value:        &testInt,
				DefaultValue: testInt,
				Name:         "int",
				Usage:        "an int flag",
				EnvKeys:      []string{"INT"},
			},
			cmd:        parentCmd,
			envValue:   "-1234",
			matchValue: "-1234",
		},
		{
			desc: "uint32 flag",
			flag: &Flag{
				ID:           "testUint32Flag",
				Value:        &testUint32,
				DefaultValue: testUint32,
				Name:         "uint",
				ShortHand:    "u",
				Usage:        "a uint32 flag",
				EnvKeys:      []string{"UINT32"},
			},
			cmd:        parentCmd,
			envValue:   "1234",
			matchValue: "1234",
		},
		{
			desc: "uint64 flag",
			flag: &Flag{
				ID:           "testUint64Flag",
				Value:        &testUint64,
				DefaultValue: testUint64,
				Name:         "uint64",
				Usage:        "a uint64 flag",
				EnvKeys:      []string{"UINT64"},
			},
			cmd:        parentCmd,
			envValue:   "18446744073709551615",
			matchValue: "18446744073709551615",
		},
	}

	cm, err := newCommandManager(rootCmd)
	assert.NilError(t, err)

	cmds := make(map[*cobra.Command]struct{})

	for _, d := range ttData {
		t.Run(d.desc, func(t *testing.T) {
			cm.RegisterFlagForCmd(d.flag, d.cmd)
			defer func() { cm.errPool = make([]error, 0) }()

			if d.expectedFailure {
				assert.Assert(t, len(cm.GetError()) > 0, "unexpected success")
				return
			}
			assert.Assert(t, len(cm.GetError()) == 0, "unexpected failure: %v", cm.GetError())
			if d.envValue != "" {
				cmds[d.cmd] = struct{}{}
			}
		})
	}

	for _, d := range ttData {
		if d.envValue != "" && !d.expectedFailure {
			t.Setenv(d.flag.EnvKeys[0], d.envValue)
		}
	}

	for cmd := range cmds {
		assert.NilError(t, cm.UpdateCmdFlagFromEnv(cmd, -1, make(map[string]string)))
	}

	for _, d := range ttData {
		if d.flag == nil || d.cmd == nil || d.expectedFailure || d.envValue == "" {
			continue
		}
		v := d.cmd.Flags().Lookup(d.flag.Name).Value.String()
		if v != d.matchValue && (d.altMatchValue == "" || v != d.altMatchValue) {
			t.Errorf("unexpected value for %s, returned %s instead of %s", d.desc, v, d.matchValue)
		}
	}

	hidden := parentCmd.Flags().Lookup("string-hidden")
	assert.Assert(t, hidden.Hidden)
	dep := parentCmd.Flags().Lookup("string-dep")
	assert.Equal(t, dep.Deprecated, "deprecated")
}

func TestDuplicateFlagID(t *testing.T) {
	rootCmd, parentCmd := newTestCommands()
	cm := NewCommandManager(rootCmd)

	var a, b string
	flagA := &Flag{ID: "dupFlag", Value: &a, DefaultValue: "", Name: "a"}
	flagB := &Flag{ID: "dupFlag", Value: &b, DefaultValue: "", Name: "b"}

	// the same flag may be registered on several commands
	cm.RegisterFlagForCmd(flagA, rootCmd)
	cm.RegisterFlagForCmd(flagA, parentCmd)
	assert.Equal(t, len(cm.GetError()), 0)

	cm.RegisterFlagForCmd(flagB, parentCmd)
	assert.Equal(t, len(cm.GetError()), 1)
	assert.ErrorContains(t, cm.GetError()[0], `flag ID "dupFlag" already registered`)
}

func TestEnvPrecedence(t *testing.T) {
	rootCmd, _ := newTestCommands()
	cm := NewCommandManager(rootCmd)

	var value string
	flag := &Flag{
		ID:           "precedenceFlag",
		Value:        &value,
		DefaultValue: "default",
		Name:         "value",
		EnvKeys:      []string{"VALUE"},
	}
	cm.RegisterFlagForCmd(flag, rootCmd)
	assert.Equal(t, len(cm.GetError()), 0)

	t.Setenv("LOOPCTL_VALUE", "prefixed")
	t.Setenv("VALUE", "bare")

	foundKeys := make(map[string]string)
	assert.NilError(t, cm.UpdateCmdFlagFromEnv(rootCmd, 0, foundKeys))
	assert.NilError(t, cm.UpdateCmdFlagFromEnv(rootCmd, -1, foundKeys))
	assert.Equal(t, value, "prefixed")
	assert.Equal(t, foundKeys["precedenceFlag"], "LOOPCTL_VALUE")
}

func TestEnvDoesNotOverrideCommandLine(t *testing.T) {
	rootCmd, _ := newTestCommands()
	cm := NewCommandManager(rootCmd)

	var size uint64
	flag := &Flag{
		ID:           "sizeFlag",
		Value:        &size,
		DefaultValue: uint64(0),
		Name:         "size",
		EnvKeys:      []string{"SIZE"},
	}
	cm.RegisterFlagForCmd(flag, rootCmd)
	assert.NilError(t, rootCmd.ParseFlags([]string{"--size", "42"}))

	t.Setenv("LOOPCTL_SIZE", "7")
	assert.NilError(t, cm.UpdateCmdFlagFromEnv(rootCmd, 0, make(map[string]string)))
	assert.Equal(t, size, uint64(42))
}

func TestEnvBadValue(t *testing.T) {
	rootCmd, _ := newTestCommands()
	cm := NewCommandManager(rootCmd)

	var count int
	cm.RegisterFlagForCmd(&Flag{
		ID:           "countFlag",
		Value:        &count,
		DefaultValue: 0,
		Name:         "count",
		EnvKeys:      []string{"COUNT"},
	}, rootCmd)

	t.Setenv("LOOPCTL_COUNT", "many")
	err := cm.UpdateCmdFlagFromEnv(rootCmd, 0, make(map[string]string))
	assert.ErrorContains(t, err, `while setting flag "count" from LOOPCTL_COUNT`)
}
