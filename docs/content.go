// Copyright (c) Contributors to the Apptainer project, established as
//   Apptainer a Series of LF Projects LLC.
//   For website terms of use, trademark policy, privacy policy and other
//   project policies see https://lfprojects.org/policies
// Copyright (c) 2017-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package docs

// Global content for help and man pages
const (

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// main loopctl command
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	LoopctlUse   string = `loopctl [global options...]`
	LoopctlShort string = `Set up and control Linux loop devices`
	LoopctlLong  string = `
  loopctl binds regular files to loop block devices, releases them and
  reports their status. Free devices are allocated through the loop control
  device, /dev/loop-control, which requires a kernel with loop support.`
	LoopctlExample string = `
  $ loopctl help <command> [<subcommand>]
  $ loopctl help attach
  $ loopctl help control add`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// find
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	FindUse   string = `find`
	FindShort string = `Print the next free loop device`
	FindLong  string = `
  The find command asks the kernel for the first unused loop device and
  prints its path. The device is not reserved: another process may take it
  before you use it, attach allocates and binds under a lock instead.`
	FindExample string = `
  $ loopctl find
  /dev/loop3`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// attach
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	AttachUse   string = `attach [attach options...] <file> [<device>]`
	AttachShort string = `Bind a file to a loop device`
	AttachLong  string = `
  The attach command binds a regular file to a loop device and prints the
  device path. Without a device argument the next free device is allocated,
  and the attempt is retried when another process takes it first.

  Offsets and size limits accept unit suffixes like 512, 4k or 1MiB.

  With --autoclear the kernel detaches the device once nothing uses it
  anymore, so attach keeps the device open until interrupted.`
	AttachExample string = `
  $ loopctl attach disk.img
  /dev/loop0

  $ loopctl attach --read-only --offset 1MiB --sizelimit 64MiB disk.img /dev/loop5
  /dev/loop5

  $ loopctl attach --read-only --shared disk.img

  $ loopctl attach --autoclear disk.img
  /dev/loop1`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// detach
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	DetachUse   string = `detach <device>...`
	DetachShort string = `Release the file bound to loop devices`
	DetachLong  string = `
  The detach command removes the backing file of each given loop device.
  A device still in use, mounted for example, refuses to detach.`
	DetachExample string = `
  $ loopctl detach /dev/loop0 /dev/loop1`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// status
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	StatusUse   string = `status [status options...] <device>`
	StatusShort string = `Show the status of a loop device`
	StatusLong  string = `
  The status command shows the backing file, offset, size limit and flags
  of a loop device as recorded by the kernel. Backing file names longer than
  63 characters are truncated by the kernel.`
	StatusExample string = `
  $ loopctl status /dev/loop0
  DEVICE        STATE    OFFSET    SIZELIMIT    FLAGS    BACK-FILE
  /dev/loop0    bound    0B        -            ro       /tmp/disk.img

  $ loopctl status --json /dev/loop0`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// list
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	ListUse   string = `list [list options...]`
	ListShort string = `List bound loop devices`
	ListLong  string = `
  The list command shows every bound loop device among the first
  maxLoopDevices indices set in the configuration file. With --watch the
  table is printed again after each interval until interrupted.`
	ListExample string = `
  $ loopctl list
  $ loopctl list --json
  $ loopctl list --watch 2s`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// control
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	ControlUse   string = `control`
	ControlShort string = `Create and remove loop devices`
	ControlLong  string = `
  The control commands create and remove loop device nodes through the loop
  control device. They usually require root privileges.`
	ControlExample string = `
  All control commands have their own help output:

  $ loopctl help control add
  $ loopctl control remove --help`

	ControlAddUse   string = `add [<index>]`
	ControlAddShort string = `Create a loop device`
	ControlAddLong  string = `
  The control add command creates the loop device with the given index, or
  the first unused one when no index is given, and prints its path.`
	ControlAddExample string = `
  $ sudo loopctl control add 42
  /dev/loop42`

	ControlRemoveUse   string = `remove <index|device>`
	ControlRemoveShort string = `Remove a loop device`
	ControlRemoveLong  string = `
  The control remove command deletes an unbound loop device.`
	ControlRemoveExample string = `
  $ sudo loopctl control remove 42
  $ sudo loopctl control remove /dev/loop42`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// config
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	ConfigUse   string = `config`
	ConfigShort string = `Manage the loopctl configuration`
	ConfigLong  string = `
  The config commands show or write the loopctl configuration file.`
	ConfigExample string = `
  $ loopctl config show
  $ sudo loopctl config init`

	ConfigShowUse   string = `show`
	ConfigShowShort string = `Print the effective configuration`
	ConfigShowLong  string = `
  The config show command prints the configuration in use, defaults
  included, in TOML format.`
	ConfigShowExample string = `
  $ loopctl config show
  $ loopctl --config ./loopctl.toml config show`

	ConfigInitUse   string = `init [<path>]`
	ConfigInitShort string = `Write the effective configuration to a file`
	ConfigInitLong  string = `
  The config init command writes the configuration in use to the given
  path, the configuration file path by default.`
	ConfigInitExample string = `
  $ sudo loopctl config init
  $ loopctl config init ./loopctl.toml`

	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	// version
	// ~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~
	VersionUse   string = `version`
	VersionShort string = `Show the version for loopctl`
)
