// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package loopctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/apptainer/loopctl/pkg/util/loop"
	"github.com/apptainer/loopctl/pkg/util/loopconf"
	"github.com/buger/goterm"
	units "github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// DeviceInfo is the status of a loop device as reported to users.
type DeviceInfo struct {
	Device      string `json:"device"`
	Bound       bool   `json:"bound"`
	BackingFile string `json:"backingFile,omitempty"`
	Inode       uint64 `json:"inode,omitempty"`
	Offset      uint64 `json:"offset"`
	SizeLimit   uint64 `json:"sizeLimit"`
	ReadOnly    bool   `json:"readOnly"`
	AutoClear   bool   `json:"autoClear"`
	PartScan    bool   `json:"partScan"`
	DirectIO    bool   `json:"directIO"`
}

func newDeviceInfo(device string, info *loop.Info64) DeviceInfo {
	return DeviceInfo{
		Device:      device,
		Bound:       true,
		BackingFile: info.BackingFile(),
		Inode:       info.Inode,
		Offset:      info.Offset,
		SizeLimit:   info.SizeLimit,
		ReadOnly:    info.ReadOnly(),
		AutoClear:   info.AutoClear(),
		PartScan:    info.PartScan(),
		DirectIO:    info.DirectIO(),
	}
}

// Flags returns the names of the flags set on the device.
func (d DeviceInfo) Flags() []string {
	var flags []string
	if d.ReadOnly {
		flags = append(flags, "ro")
	}
	if d.AutoClear {
		flags = append(flags, "autoclear")
	}
	if d.PartScan {
		flags = append(flags, "partscan")
	}
	if d.DirectIO {
		flags = append(flags, "dio")
	}
	return flags
}

// Status returns the status of device. An unbound device is reported
// with Bound unset rather than as an error.
func Status(device string) (DeviceInfo, error) {
	info, err := loop.GetStatusFromPath(device)
	if errors.Is(err, loop.ErrNotAttached) {
		return DeviceInfo{Device: device}, nil
	} else if err != nil {
		return DeviceInfo{}, err
	}
	// some kernels answer with an empty record for unbound devices
	if info.BackingFile() == "" && info.Inode == 0 {
		return DeviceInfo{Device: device}, nil
	}
	return newDeviceInfo(device, info), nil
}

// List returns the bound loop devices among the first
// cfg.MaxLoopDevices indices.
func List(cfg *loopconf.File) ([]DeviceInfo, error) {
	count, err := cfg.MaxDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceInfo, 0)
	for i := 0; i < count; i++ {
		device := loop.DevicePath(i)
		d, err := Status(device)
		if errors.Is(err, loop.ErrPermissionDenied) {
			return nil, err
		} else if err != nil {
			if !ignorableStatusError(err) {
				sylog.Debugf("Couldn't get status from %s: %v", device, err)
			}
			continue
		}
		if d.Bound {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// PrintStatus prints the status of device in a regular or a JSON
// format (if formatJSON is true) to the passed writer.
func PrintStatus(w io.Writer, device string, formatJSON bool) error {
	d, err := Status(device)
	if err != nil {
		return err
	}
	if formatJSON {
		return writeJSON(w, d)
	}
	return writeTable(w, []DeviceInfo{d})
}

// PrintList prints the bound loop devices in a regular or a JSON
// format (if formatJSON is true) to the passed writer.
func PrintList(w io.Writer, cfg *loopconf.File, formatJSON bool) error {
	devices, err := List(cfg)
	if err != nil {
		return errors.Wrap(err, "could not retrieve loop device list")
	}
	if formatJSON {
		return writeJSON(w, map[string][]DeviceInfo{"devices": devices})
	}
	return writeTable(w, devices)
}

// WatchList prints the bound loop devices every interval until ctx is
// done. With stream set the terminal is cleared before each table.
func WatchList(ctx context.Context, w io.Writer, cfg *loopconf.File, interval time.Duration, stream bool) error {
	for {
		devices, err := List(cfg)
		if err != nil {
			return errors.Wrap(err, "could not retrieve loop device list")
		}

		if stream {
			goterm.Clear()
			goterm.MoveCursor(1, 1)
			goterm.Flush()
		}
		if err := writeTable(w, devices); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("could not encode loop device status: %v", err)
	}
	return nil
}

func stateLabel(bound bool) string {
	if bound {
		return color.New(color.FgGreen).Sprint("bound")
	}
	return color.New(color.FgYellow).Sprint("unbound")
}

func writeTable(w io.Writer, devices []DeviceInfo) error {
	tabWriter := tabwriter.NewWriter(w, 0, 8, 4, ' ', 0)
	defer tabWriter.Flush()

	_, err := fmt.Fprintln(tabWriter, "DEVICE\tSTATE\tOFFSET\tSIZELIMIT\tFLAGS\tBACK-FILE")
	if err != nil {
		return fmt.Errorf("could not write list header: %v", err)
	}

	for _, d := range devices {
		state := stateLabel(d.Bound)
		offset, limit, flags := "-", "-", "-"
		if d.Bound {
			offset = units.BytesSize(float64(d.Offset))
			if d.SizeLimit != 0 {
				limit = units.BytesSize(float64(d.SizeLimit))
			}
			if f := d.Flags(); len(f) > 0 {
				flags = strings.Join(f, ",")
			}
		}
		_, err := fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%s\t%s\t%s\n", d.Device, state, offset, limit, flags, d.BackingFile)
		if err != nil {
			return fmt.Errorf("could not write loop device status: %v", err)
		}
	}
	return nil
}
