// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package sylog implements a basic leveled logger for loopctl. Messages are
// only written when built with the sylog tag, so that programs importing
// the loop packages stay silent unless they opt in.
package sylog
