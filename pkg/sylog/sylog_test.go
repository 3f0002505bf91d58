// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

//go:build sylog

package sylog

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	old := SetWriter(&buf)
	defer SetWriter(old)

	oldLevel := GetLevel()
	defer SetLevel(oldLevel, false)

	tests := []struct {
		name   string
		level  messageLevel
		logFn  func(string, ...interface{})
		output bool
	}{
		{"error at info", InfoLevel, Errorf, true},
		{"warning at info", InfoLevel, Warningf, true},
		{"info at info", InfoLevel, Infof, true},
		{"verbose at info", InfoLevel, Verbosef, false},
		{"debug at info", InfoLevel, Debugf, false},
		{"debug at debug", DebugLevel, Debugf, true},
		{"info at silent", ErrorLevel, Infof, false},
		{"error at silent", ErrorLevel, Errorf, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			SetLevel(int(tt.level), false)
			tt.logFn("message %d\n", 42)

			if !tt.output {
				assert.Equal(t, buf.String(), "")
				return
			}
			out := buf.String()
			assert.Assert(t, strings.HasSuffix(out, "message 42\n"), "got %q", out)
			assert.Equal(t, strings.Count(out, "\n"), 1)
		})
	}
}

func TestWriter(t *testing.T) {
	oldLevel := GetLevel()
	defer SetLevel(oldLevel, false)

	SetLevel(int(LogLevel), false)
	assert.Equal(t, Writer(), io.Discard)

	SetLevel(int(InfoLevel), false)
	assert.Assert(t, Writer() != io.Discard)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, WarnLevel.String(), "WARNING")
	assert.Equal(t, DebugLevel.String(), "DEBUG")
	assert.Equal(t, messageLevel(0).String(), "????")
}
