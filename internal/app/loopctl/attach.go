// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package loopctl implements the loopctl commands on top of the loop
// device package.
package loopctl

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/apptainer/loopctl/pkg/sylog"
	"github.com/apptainer/loopctl/pkg/util/fs/lock"
	"github.com/apptainer/loopctl/pkg/util/loop"
	"github.com/apptainer/loopctl/pkg/util/loopconf"
	"github.com/ccoveille/go-safecast"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// AttachOptions describes how a backing file is attached.
type AttachOptions struct {
	loop.Options
	// Device is the loop device to use, when empty a free one is
	// allocated.
	Device string
	// Shared reuses a device already bound to the same file with the
	// same offset, size limit and read-only mode.
	Shared bool
}

// ErrAutoClearUnheld is returned by AttachFile for autoclear attachments:
// the kernel releases such a device as soon as AttachFile closes it.
var ErrAutoClearUnheld = errors.New("autoclear devices must be held open, use HoldFile")

// loopMajor is the block major number of loop devices.
const loopMajor = 7

// Attachment is a loop device bound by HoldFile. The device stays open
// until Close, so an autoclear binding lasts until then.
type Attachment struct {
	Device string
	holder *os.File
}

// Close releases the device. An autoclear device is detached by the
// kernel if nothing else uses it.
func (a *Attachment) Close() error {
	if a == nil || a.holder == nil {
		return nil
	}
	return a.holder.Close()
}

// AttachFile binds backing to a loop device and returns the device path.
// Picking a free device and attaching to it happen under an exclusive
// lock on cfg.LockPath. When another process wins the race for the
// device, the attempt is retried cfg.AttachRetries times. Autoclear
// attachments fail with ErrAutoClearUnheld.
func AttachFile(cfg *loopconf.File, backing string, opts AttachOptions) (string, error) {
	if opts.AutoClear {
		return "", ErrAutoClearUnheld
	}
	a, err := attachFile(cfg, backing, opts, false)
	if err != nil {
		return "", err
	}
	return a.Device, nil
}

// HoldFile is AttachFile keeping the device open until the returned
// Attachment is closed. The device is opened before the binding is
// made, so an autoclear binding can't be released in between.
func HoldFile(cfg *loopconf.File, backing string, opts AttachOptions) (*Attachment, error) {
	return attachFile(cfg, backing, opts, true)
}

func attachFile(cfg *loopconf.File, backing string, opts AttachOptions, hold bool) (*Attachment, error) {
	path, err := filepath.Abs(backing)
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve %s", backing)
	}

	if opts.Device != "" {
		a, err := attachHeld(opts.Device, path, opts.Options, hold)
		if err != nil {
			return nil, errors.Wrapf(err, "while attaching %s", path)
		}
		return a, nil
	}

	fd, err := acquireLock(cfg.LockPath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not lock %s", cfg.LockPath)
	}
	defer lock.Release(fd)

	if opts.Shared || cfg.SharedLoopDevices {
		a, err := findShared(cfg, path, opts.Options, hold)
		if err != nil {
			return nil, err
		}
		if a != nil {
			sylog.Verbosef("Sharing loop device %s", a.Device)
			return a, nil
		}
	}

	interval, err := cfg.Interval()
	if err != nil {
		return nil, err
	}

	ctl, err := loop.OpenControl()
	if err != nil {
		return nil, errors.Wrap(err, "could not open loop control")
	}
	defer ctl.Close()

	var a *Attachment
	op := func() error {
		d, err := ctl.NextFree()
		if err != nil {
			return retryable(err)
		}
		index, err := loop.DeviceIndex(d)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := ensureNode(d, index); err != nil {
			return backoff.Permanent(err)
		}
		a, err = attachHeld(d, path, opts.Options, hold)
		if err != nil {
			return retryable(err)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		sylog.Debugf("Transient error, retrying in %s: %v", next, err)
	}

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), cfg.AttachRetries)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, errors.Wrapf(err, "while attaching %s", path)
	}

	sylog.Verbosef("Attached %s to %s", path, a.Device)
	return a, nil
}

// attachHeld attaches backing to device, first opening device when
// hold is set.
func attachHeld(device, backing string, opts loop.Options, hold bool) (*Attachment, error) {
	a := &Attachment{Device: device}
	if hold {
		f, err := os.OpenFile(device, os.O_RDONLY, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open %s", device)
		}
		a.holder = f
	}
	if err := attachDevice(device, backing, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// ensureNode creates the block node of loop device index at path when
// it is missing, as happens with a static /dev. An existing path must
// be a block device.
func ensureNode(path string, index int) error {
	var st unix.Stat_t
	err := unix.Stat(path, &st)
	if err == nil {
		if st.Mode&unix.S_IFMT != unix.S_IFBLK {
			return errors.Errorf("%s is not a block device", path)
		}
		return nil
	}
	if !errors.Is(err, unix.ENOENT) {
		return errors.Wrapf(err, "could not stat %s", path)
	}

	minor, err := safecast.ToUint32(index)
	if err != nil {
		return errors.Wrapf(err, "invalid loop device index %d", index)
	}
	dev, err := safecast.ToInt(unix.Mkdev(loopMajor, minor))
	if err != nil {
		return errors.Wrapf(err, "invalid device number for %s", path)
	}

	sylog.Debugf("Creating missing device node %s", path)
	if err := unix.Mknod(path, unix.S_IFBLK|0o660, dev); err != nil && !errors.Is(err, unix.EEXIST) {
		return errors.Wrapf(err, "could not create %s", path)
	}
	return nil
}

// acquireLock takes the exclusive lock on path, logging when it has to
// wait for another process.
func acquireLock(path string) (int, error) {
	fd, acquired, err := lock.TryExclusive(path)
	if err != nil {
		return -1, err
	}
	if acquired {
		return fd, nil
	}
	sylog.Verbosef("Waiting for lock on %s", path)
	return lock.Exclusive(path)
}

// retryable marks err as permanent unless another process probably
// took the device between allocation and attach.
func retryable(err error) error {
	if isTransient(err) {
		return err
	}
	return backoff.Permanent(err)
}

func isTransient(err error) bool {
	if errors.Is(err, loop.ErrAllBusy) {
		return true
	}
	if !errors.Is(err, loop.ErrAttachRejected) {
		return false
	}
	errno, ok := loop.Errno(err)
	return ok && (errno == syscall.EBUSY || errno == syscall.EAGAIN)
}

// attachDevice attaches backing to device. A block size requires the
// single-call configure command, older kernels fall back to an attach
// followed by a block size change. The status record alone does not
// switch direct I/O on, so it is set after the attach.
func attachDevice(device, backing string, opts loop.Options) error {
	if opts.BlockSize != 0 {
		err := loop.Configure(device, backing, opts)
		if !configureUnsupported(err) {
			return err
		}
		sylog.Debugf("Configure command not supported, setting block size after attach")
	}

	if err := loop.AttachWithOptions(device, backing, opts); err != nil {
		return err
	}

	if opts.BlockSize != 0 {
		if err := loop.SetBlockSize(device, opts.BlockSize); err != nil {
			if derr := loop.Detach(device); derr != nil {
				sylog.Warningf("Could not detach %s: %v", device, derr)
			}
			return err
		}
	}
	if opts.DirectIO {
		if err := loop.SetDirectIO(device, true); err != nil {
			sylog.Warningf("Could not enable direct I/O on %s: %v", device, err)
		}
	}
	return nil
}

// configureUnsupported reports whether the kernel does not know the
// configure command. Kernels before 5.8 answer EINVAL to unknown loop
// commands rather than ENOTTY.
func configureUnsupported(err error) bool {
	if errors.Is(err, loop.ErrUnsupported) {
		return true
	}
	errno, ok := loop.Errno(err)
	return ok && errno == syscall.EINVAL && errors.Is(err, loop.ErrAttachRejected)
}

// findShared looks for a device already bound to backing with the same
// offset, size limit and read-only mode. Without hold, autoclear devices
// are skipped since their last user may release them at any time. With
// hold, the match is checked again once the device is open.
func findShared(cfg *loopconf.File, backing string, opts loop.Options, hold bool) (*Attachment, error) {
	var st unix.Stat_t
	if err := unix.Stat(backing, &st); err != nil {
		return nil, errors.Wrapf(err, "could not stat %s", backing)
	}
	// cast to uint64 as st.Dev is uint32 on MIPS
	dev := uint64(st.Dev)

	count, err := cfg.MaxDevices()
	if err != nil {
		return nil, err
	}

	want := opts.Info(backing)
	for i := 0; i < count; i++ {
		device := loop.DevicePath(i)
		info, err := loop.GetStatusFromPath(device)
		if err != nil {
			if !ignorableStatusError(err) {
				sylog.Debugf("Couldn't get status from %s: %v", device, err)
			}
			continue
		}
		if !sameBinding(info, want, st.Ino, dev) {
			continue
		}
		if !hold {
			if info.AutoClear() {
				sylog.Debugf("Not sharing %s, it is released on last close", device)
				continue
			}
			return &Attachment{Device: device}, nil
		}

		f, err := os.OpenFile(device, os.O_RDONLY, 0)
		if err != nil {
			sylog.Debugf("Couldn't open %s: %v", device, err)
			continue
		}
		// the device may have been released before it was opened
		info, err = loop.GetStatusFromFd(f.Fd())
		if err != nil || !sameBinding(info, want, st.Ino, dev) {
			f.Close()
			continue
		}
		return &Attachment{Device: device, holder: f}, nil
	}
	return nil, nil
}

func sameBinding(info, want *loop.Info64, ino, dev uint64) bool {
	return info.Inode == ino && info.Device == dev &&
		info.ReadOnly() == want.ReadOnly() &&
		info.Offset == want.Offset && info.SizeLimit == want.SizeLimit
}

// ignorableStatusError reports errors expected while scanning devices:
// missing nodes and unbound devices.
func ignorableStatusError(err error) bool {
	return errors.Is(err, loop.ErrNotAttached) || errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ENXIO)
}
