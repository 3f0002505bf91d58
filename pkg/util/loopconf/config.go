// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2019-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package loopconf reads and writes the loopctl configuration file.
package loopconf

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/ccoveille/go-safecast"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "/etc/loopctl/loopctl.toml"

// currentConfig corresponds to the current configuration, may
// be useful for packages requiring to share the same configuration.
var currentConfig *File

// SetCurrentConfig sets the provided configuration as the current
// configuration.
func SetCurrentConfig(config *File) {
	currentConfig = config
}

// GetCurrentConfig returns the current configuration if any.
func GetCurrentConfig() *File {
	return currentConfig
}

// File describes the loopctl.toml file options
type File struct {
	// MaxLoopDevices bounds the device indices scanned when listing or
	// looking for a shareable device.
	MaxLoopDevices uint `toml:"maxLoopDevices" json:"maxLoopDevices"`
	// SharedLoopDevices reuses a device already bound to the same file
	// with the same offset, size limit and read-only mode.
	SharedLoopDevices bool `toml:"sharedLoopDevices" json:"sharedLoopDevices"`
	// LockPath is locked while a free device is picked and attached.
	LockPath string `toml:"lockPath" json:"lockPath"`
	// AttachRetries is the number of extra attempts after another
	// process took the device we were about to attach.
	AttachRetries uint64 `toml:"attachRetries" json:"attachRetries"`
	// RetryInterval is the delay between attempts, as a Go duration.
	RetryInterval string `toml:"retryInterval" json:"retryInterval"`
	// AutoClear sets the autoclear flag on devices attached by loopctl
	// unless overridden on the command line. The attach command then
	// holds the device until interrupted.
	AutoClear bool `toml:"autoClear" json:"autoClear"`
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		MaxLoopDevices:    256,
		SharedLoopDevices: false,
		LockPath:          "/dev",
		AttachRetries:     5,
		RetryInterval:     "250ms",
		AutoClear:         false,
	}
}

// Interval returns RetryInterval as a duration.
func (f *File) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(f.RetryInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid retryInterval %q: %w", f.RetryInterval, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid retryInterval %q: negative duration", f.RetryInterval)
	}
	return d, nil
}

// MaxDevices returns MaxLoopDevices as an int.
func (f *File) MaxDevices() (int, error) {
	return safecast.ToInt(f.MaxLoopDevices)
}

// Validate checks option values.
func (f *File) Validate() error {
	if f.LockPath == "" {
		return errors.New("lockPath must not be empty")
	}
	if _, err := f.MaxDevices(); err != nil {
		return fmt.Errorf("invalid maxLoopDevices: %w", err)
	}
	if _, err := f.Interval(); err != nil {
		return err
	}
	return nil
}

// Load reads the configuration file at path over the defaults. A missing
// file at DefaultPath is not an error.
func Load(path string) (*File, error) {
	config := Default()

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
		sylog.Debugf("No configuration file at %s, using defaults", path)
		return config, nil
	} else if err != nil {
		return nil, fmt.Errorf("could not read configuration file: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return config, nil
}

// Save writes config to path, creating parent directories as needed.
func Save(config *File, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
