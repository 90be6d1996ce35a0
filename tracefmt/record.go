// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

// Record is the common interface implemented by all decoded record
// types delivered from a ring-buffer session.
type Record interface {
	Type() RecordType
	Common() *RecordCommon
}

// RecordCommon stores fields common to all record types. Which of
// the optional fields are valid is given by Format, a bitmask of
// SampleFormat* values.
type RecordCommon struct {
	Format    SampleFormat
	PID, TID  int
	Time      uint64
	ID        uint64
	StreamID  uint64
	CPU, Res  uint32
}

func (r *RecordCommon) Common() *RecordCommon { return r }

// RecordSample records a profiling sample: an instruction pointer,
// optionally a call chain and/or captured user registers and stack
// bytes, depending on RecordCommon.Format.
type RecordSample struct {
	RecordCommon

	CPUMode CPUMode
	ExactIP bool

	IP   uint64
	Addr uint64

	Period uint64

	Callchain []uint64

	RegsUserABI SampleRegsABI
	RegsUser    []uint64

	// StackUser is the raw captured user-stack bytes, starting at
	// the sampled RSP. StackUserDynSize is the portion the kernel
	// actually wrote (it may copy less than requested near the
	// top of the stack).
	StackUser        []byte
	StackUserDynSize uint64

	Weight uint64
}

func (r *RecordSample) Type() RecordType { return RecordTypeSample }

// RecordMmap records that a process mapped or unmapped a region of
// address space — the event that seeds and updates the module map
// (package procmap).
type RecordMmap struct {
	RecordCommon

	Data bool // non-executable (data) mapping, from header misc

	Addr, Len  uint64
	FileOffset uint64

	// Device/Inode identify the backing file, forming a
	// procmap.ModuleKey; both zero for anonymous mappings.
	Device, Inode uint64

	Prot, Flags uint32
	Filename    string
}

func (r *RecordMmap) Type() RecordType { return RecordTypeMmap }

// RecordComm records a process's command name, typically set after
// exec.
type RecordComm struct {
	RecordCommon

	Exec bool
	Comm string
}

func (r *RecordComm) Type() RecordType { return RecordTypeComm }

// RecordExit records that a process or thread exited.
type RecordExit struct {
	RecordCommon

	PPID, PTID int
}

func (r *RecordExit) Type() RecordType { return RecordTypeExit }

// RecordFork records that a process called clone to fork or create a
// thread.
type RecordFork struct {
	RecordCommon

	PPID, PTID int
}

func (r *RecordFork) Type() RecordType { return RecordTypeFork }

// RecordLost records that the kernel could not write some number of
// samples because the ring buffer was full.
type RecordLost struct {
	RecordCommon

	NumLost uint64
}

func (r *RecordLost) Type() RecordType { return RecordTypeLost }

// RecordUnknown is a record of a type this package does not decode
// in detail. Its raw bytes are preserved so a caller can still
// advance past it; per §7 this does not count as a DecodeError by
// itself.
type RecordUnknown struct {
	RecordCommon

	RawType RecordType
	Data    []byte
}

func (r *RecordUnknown) Type() RecordType { return r.RawType }
