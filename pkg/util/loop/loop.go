// Copyright (c) 2021 Apptainer a Series of LF Projects LLC
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2018-2021, Sylabs Inc. All rights reserved.
// Copyright (c) 2021, Genomics plc.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package loop drives the Linux loop device interface: it allocates free
// devices through the loop control endpoint, binds regular files to loop
// block devices, releases those bindings and reads the 64-bit status
// record the kernel keeps for each device.
//
// Device operations are stateless. Each call opens its own handle on the
// device node, issues its ioctls and releases the handle before returning,
// whatever the outcome.
package loop

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// ControlPath is the system-wide loop control endpoint.
	ControlPath = "/dev/loop-control"
	// DevicePrefix is prepended to a device index to form its node path.
	DevicePrefix = "/dev/loop"
)

// Loop device flags values
const (
	FlagsReadOnly  = 1
	FlagsAutoClear = 4
	FlagsPartScan  = 8
	FlagsDirectIO  = 16
)

// Loop device encryption types
const (
	CryptNone      = 0
	CryptXor       = 1
	CryptDes       = 2
	CryptFish2     = 3
	CryptBlow      = 4
	CryptCast128   = 5
	CryptIdea      = 6
	CryptDummy     = 9
	CryptSkipJack  = 10
	CryptCryptoAPI = 18
	CryptMax       = 20
)

// Loop device IOCTL commands
const (
	CmdSetFd        = 0x4C00
	CmdClrFd        = 0x4C01
	CmdSetStatus    = 0x4C02
	CmdGetStatus    = 0x4C03
	CmdSetStatus64  = 0x4C04
	CmdGetStatus64  = 0x4C05
	CmdChangeFd     = 0x4C06
	CmdSetCapacity  = 0x4C07
	CmdSetDirectIO  = 0x4C08
	CmdSetBlockSize = 0x4C09
	CmdConfigure    = 0x4C0A
)

// Loop control IOCTL commands, issued on ControlPath
const (
	CmdCtlAdd     = 0x4C80
	CmdCtlRemove  = 0x4C81
	CmdCtlGetFree = 0x4C82
)

// Sizes of the fixed-width fields of Info64.
const (
	NameSize = 64
	KeySize  = 32
)

// Info64 contains information about a loop device. Field order and widths
// mirror struct loop_info64 from <linux/loop.h>; it is passed to the kernel
// as is.
type Info64 struct {
	Device         uint64
	Inode          uint64
	Rdevice        uint64
	Offset         uint64
	SizeLimit      uint64
	Number         uint32
	EncryptType    uint32
	EncryptKeySize uint32
	Flags          uint32
	FileName       [NameSize]byte
	CryptName      [NameSize]byte
	EncryptKey     [KeySize]byte
	Init           [2]uint64
}

// BackingFile returns the backing file name recorded for the device,
// up to the first NUL byte.
func (info *Info64) BackingFile() string {
	return cString(info.FileName[:])
}

// SetBackingFile records name in FileName. Names longer than the field
// are truncated so that the field always ends with a NUL byte.
func (info *Info64) SetBackingFile(name string) {
	info.FileName = [NameSize]byte{}
	copy(info.FileName[:NameSize-1], name)
}

// CryptoName returns the legacy crypto algorithm name.
func (info *Info64) CryptoName() string {
	return cString(info.CryptName[:])
}

// ReadOnly reports whether the read-only flag is set.
func (info *Info64) ReadOnly() bool { return info.Flags&FlagsReadOnly != 0 }

// AutoClear reports whether the device detaches itself on last close.
func (info *Info64) AutoClear() bool { return info.Flags&FlagsAutoClear != 0 }

// PartScan reports whether the kernel scans the device for partitions.
func (info *Info64) PartScan() bool { return info.Flags&FlagsPartScan != 0 }

// DirectIO reports whether the device bypasses the page cache.
func (info *Info64) DirectIO() bool { return info.Flags&FlagsDirectIO != 0 }

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// configRecord mirrors struct loop_config used by CmdConfigure.
type configRecord struct {
	Fd        uint32
	BlockSize uint32
	Info      Info64
	Reserved  [8]uint64
}

// Options describes how a backing file is bound to a loop device.
type Options struct {
	// ReadOnly opens the backing file read-only and marks the device so.
	ReadOnly bool
	// AutoClear detaches the device when its last user closes it.
	AutoClear bool
	// PartScan asks the kernel to scan the device for partitions.
	PartScan bool
	// DirectIO bypasses the page cache of the backing file.
	DirectIO bool
	// Offset is the byte offset into the backing file where data starts.
	Offset uint64
	// SizeLimit caps the device size in bytes, 0 uses the whole file.
	SizeLimit uint64
	// BlockSize is the logical block size, honored by Configure only.
	BlockSize uint32
}

// Info returns the status record that binds backing with these options.
func (o Options) Info(backing string) *Info64 {
	info := &Info64{
		Offset:    o.Offset,
		SizeLimit: o.SizeLimit,
	}
	if o.ReadOnly {
		info.Flags |= FlagsReadOnly
	}
	if o.AutoClear {
		info.Flags |= FlagsAutoClear
	}
	if o.PartScan {
		info.Flags |= FlagsPartScan
	}
	if o.DirectIO {
		info.Flags |= FlagsDirectIO
	}
	info.SetBackingFile(backing)
	return info
}

// DevicePath returns the node path of the loop device with the given index.
func DevicePath(index int) string {
	return DevicePrefix + strconv.Itoa(index)
}

// DeviceIndex returns the index of the loop device node at path, which must
// have been formed by DevicePath.
func DeviceIndex(path string) (int, error) {
	s := strings.TrimPrefix(path, DevicePrefix)
	if s == path || s == "" {
		return -1, fmt.Errorf("%s is not a loop device path", path)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strconv.Itoa(n) != s {
		return -1, fmt.Errorf("%s is not a loop device path", path)
	}
	return n, nil
}
