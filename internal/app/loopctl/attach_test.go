// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package loopctl

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/apptainer/loopctl/internal/pkg/test"
	"github.com/apptainer/loopctl/internal/pkg/test/tool/require"
	"github.com/apptainer/loopctl/pkg/util/loop"
	"github.com/apptainer/loopctl/pkg/util/loopconf"
	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "all busy",
			err:  &loop.OpError{Op: "get free", Path: loop.ControlPath, Kind: loop.ErrAllBusy, Err: syscall.ENOSPC},
			want: true,
		},
		{
			name: "attach busy",
			err:  &loop.OpError{Op: "attach", Path: "/dev/loop0", Kind: loop.ErrAttachRejected, Err: syscall.EBUSY},
			want: true,
		},
		{
			name: "attach again",
			err:  &loop.OpError{Op: "attach", Path: "/dev/loop0", Kind: loop.ErrAttachRejected, Err: syscall.EAGAIN},
			want: true,
		},
		{
			name: "attach invalid",
			err:  &loop.OpError{Op: "attach", Path: "/dev/loop0", Kind: loop.ErrAttachRejected, Err: syscall.EINVAL},
		},
		{
			name: "device open",
			err:  &loop.OpError{Op: "attach", Path: "/dev/loop0", Kind: loop.ErrDeviceOpen, Err: syscall.EBUSY},
		},
		{
			name: "plain",
			err:  errors.New("plain"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, isTransient(tt.err), tt.want)
		})
	}
}

func testConfig(t *testing.T) *loopconf.File {
	cfg := loopconf.Default()
	cfg.LockPath = t.TempDir()
	cfg.AttachRetries = 1
	cfg.RetryInterval = "10ms"
	return cfg
}

// a regular file stands in for the device: it opens fine but rejects
// every loop command
func fakeDevice(t *testing.T) string {
	return test.BackingFile(t, "loopfake", 0)
}

func TestAttachFileBackingMissing(t *testing.T) {
	cfg := testConfig(t)
	backing := filepath.Join(t.TempDir(), "missing.img")

	_, err := AttachFile(cfg, backing, AttachOptions{Device: fakeDevice(t)})
	assert.Assert(t, errors.Is(err, loop.ErrBackingFileOpen), "got %v", err)
	assert.Assert(t, errors.Is(err, syscall.ENOENT))
	assert.ErrorContains(t, err, "while attaching "+backing)
}

func TestAttachFileRejected(t *testing.T) {
	cfg := testConfig(t)
	backing := test.BackingFile(t, "disk.img", 1<<20)

	_, err := AttachFile(cfg, backing, AttachOptions{Device: fakeDevice(t)})
	assert.Assert(t, errors.Is(err, loop.ErrAttachRejected), "got %v", err)

	// configure is refused as unsupported, the fallback attach is
	// then rejected
	opts := AttachOptions{Device: fakeDevice(t)}
	opts.BlockSize = 4096
	_, err = AttachFile(cfg, backing, opts)
	assert.Assert(t, errors.Is(err, loop.ErrAttachRejected), "got %v", err)
	assert.Assert(t, !errors.Is(err, loop.ErrUnsupported))
}

func TestAttachFileLockFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.LockPath = filepath.Join(t.TempDir(), "missing")
	backing := test.BackingFile(t, "disk.img", 1<<20)

	_, err := AttachFile(cfg, backing, AttachOptions{})
	assert.ErrorContains(t, err, "could not lock "+cfg.LockPath)
}

func TestAttachFileBadInterval(t *testing.T) {
	cfg := testConfig(t)
	cfg.RetryInterval = "soon"
	backing := test.BackingFile(t, "disk.img", 1<<20)

	_, err := AttachFile(cfg, backing, AttachOptions{})
	assert.ErrorContains(t, err, `invalid retryInterval "soon"`)
}

func TestAttachFile(t *testing.T) {
	test.EnsurePrivilege(t)
	require.LoopControl(t)

	cfg := testConfig(t)
	cfg.AttachRetries = 5
	backing := test.BackingFile(t, "shared.img", 1<<20)

	roOpts := AttachOptions{Options: loop.Options{ReadOnly: true}}
	first, err := AttachFile(cfg, backing, roOpts)
	assert.NilError(t, err)
	defer loop.Detach(first)
	assert.Assert(t, strings.HasPrefix(first, loop.DevicePrefix))

	// same file, same mode: the device is shared
	roOpts.Shared = true
	shared, err := AttachFile(cfg, backing, roOpts)
	assert.NilError(t, err)
	assert.Equal(t, shared, first)

	// a different mode can't share it
	rwOpts := AttachOptions{Shared: true}
	second, err := AttachFile(cfg, backing, rwOpts)
	assert.NilError(t, err)
	defer loop.Detach(second)
	assert.Assert(t, second != first)

	d, err := Status(first)
	assert.NilError(t, err)
	assert.Assert(t, d.Bound)
	assert.Assert(t, d.ReadOnly)

	devices, err := List(cfg)
	assert.NilError(t, err)
	found := 0
	for _, d := range devices {
		if d.Device == first || d.Device == second {
			found++
		}
	}
	assert.Equal(t, found, 2)

	assert.NilError(t, DetachDevices([]string{first, second}))
}

func TestAttachFileAutoClearUnheld(t *testing.T) {
	cfg := testConfig(t)
	backing := test.BackingFile(t, "disk.img", 1<<20)

	opts := AttachOptions{Device: fakeDevice(t)}
	opts.AutoClear = true
	_, err := AttachFile(cfg, backing, opts)
	assert.Assert(t, errors.Is(err, ErrAutoClearUnheld), "got %v", err)
}

func TestHoldFileRejected(t *testing.T) {
	cfg := testConfig(t)
	backing := test.BackingFile(t, "disk.img", 1<<20)
	device := fakeDevice(t)

	before := test.OpenFds(t)
	opts := AttachOptions{Device: device}
	opts.AutoClear = true
	a, err := HoldFile(cfg, backing, opts)
	assert.Assert(t, a == nil)
	assert.Assert(t, errors.Is(err, loop.ErrAttachRejected), "got %v", err)
	assert.Equal(t, test.OpenFds(t), before)

	_, err = HoldFile(cfg, backing, AttachOptions{Device: filepath.Join(t.TempDir(), "loop7")})
	assert.ErrorContains(t, err, "could not open")

	var nilAttachment *Attachment
	assert.NilError(t, nilAttachment.Close())
}

func TestEnsureNodeRefusesNonBlock(t *testing.T) {
	regular := test.BackingFile(t, "loop3", 0)
	assert.ErrorContains(t, ensureNode(regular, 3), regular+" is not a block device")
	assert.ErrorContains(t, ensureNode(os.DevNull, 3), os.DevNull+" is not a block device")

	under := filepath.Join(regular, "loop3")
	assert.ErrorContains(t, ensureNode(under, 3), "could not stat "+under)

	assert.ErrorContains(t, ensureNode(filepath.Join(t.TempDir(), "loop"), -1), "invalid loop device index -1")
}

func TestEnsureNodeCreatesMissing(t *testing.T) {
	test.EnsurePrivilege(t)

	path := filepath.Join(t.TempDir(), "loop1042")
	assert.NilError(t, ensureNode(path, 1042))

	var st unix.Stat_t
	assert.NilError(t, unix.Stat(path, &st))
	assert.Equal(t, st.Mode&unix.S_IFMT, uint32(unix.S_IFBLK))
	assert.Equal(t, unix.Major(uint64(st.Rdev)), uint32(loopMajor))
	assert.Equal(t, unix.Minor(uint64(st.Rdev)), uint32(1042))

	// existing block node is kept as is
	assert.NilError(t, ensureNode(path, 1042))
}

func TestHoldFileAutoClear(t *testing.T) {
	test.EnsurePrivilege(t)
	require.LoopControl(t)

	cfg := testConfig(t)
	cfg.AttachRetries = 5
	backing := test.BackingFile(t, "autoclear.img", 1<<20)

	opts := AttachOptions{Shared: true}
	opts.AutoClear = true
	held, err := HoldFile(cfg, backing, opts)
	assert.NilError(t, err)
	defer held.Close()

	info, err := loop.GetStatusFromPath(held.Device)
	assert.NilError(t, err)
	assert.Assert(t, info.AutoClear())

	// a second holder shares the device and keeps it bound on its own
	again, err := HoldFile(cfg, backing, opts)
	assert.NilError(t, err)
	assert.Equal(t, again.Device, held.Device)

	// a caller not holding the device gets its own
	plain, err := AttachFile(cfg, backing, AttachOptions{Shared: true})
	assert.NilError(t, err)
	defer loop.Detach(plain)
	assert.Assert(t, plain != held.Device)

	assert.NilError(t, held.Close())
	_, err = loop.GetStatusFromPath(held.Device)
	assert.NilError(t, err)

	assert.NilError(t, again.Close())
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		_, err := loop.GetStatusFromPath(held.Device)
		if errors.Is(err, loop.ErrNotAttached) {
			return poll.Success()
		}
		return poll.Continue("%s still bound: %v", held.Device, err)
	}, poll.WithTimeout(5*time.Second), poll.WithDelay(50*time.Millisecond))
}

func TestConfigureUnsupported(t *testing.T) {
	assert.Assert(t, configureUnsupported(&loop.OpError{Op: "configure", Kind: loop.ErrUnsupported, Err: syscall.ENOTTY}))
	assert.Assert(t, configureUnsupported(&loop.OpError{Op: "configure", Kind: loop.ErrAttachRejected, Err: syscall.EINVAL}))
	assert.Assert(t, !configureUnsupported(&loop.OpError{Op: "configure", Kind: loop.ErrAttachRejected, Err: syscall.EBUSY}))
	assert.Assert(t, !configureUnsupported(&loop.OpError{Op: "configure", Kind: loop.ErrDeviceOpen, Err: syscall.EINVAL}))
	assert.Assert(t, !configureUnsupported(nil))
}
