// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package loopctl

import (
	"strings"

	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/apptainer/loopctl/pkg/util/loop"
	"github.com/pkg/errors"
)

// DetachDevices detaches each of devices, going on after a failure.
// A single failure is returned as is so its kind can be checked.
func DetachDevices(devices []string) error {
	var failed []error

	for _, device := range devices {
		if err := loop.Detach(device); err != nil {
			failed = append(failed, err)
			continue
		}
		sylog.Verbosef("Detached %s", device)
	}

	switch len(failed) {
	case 0:
		return nil
	case 1:
		return failed[0]
	}

	msgs := make([]string, len(failed))
	for i, err := range failed {
		msgs[i] = err.Error()
	}
	return errors.Errorf("%d devices could not be detached: %s", len(failed), strings.Join(msgs, "; "))
}
