// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

// The constants below mirror the Linux perf_event ABI
// (include/uapi/linux/perf_event.h). They are carried over from the
// perf.data parser this package grew out of, since the live ring
// buffer session speaks the exact same wire format as the file
// format: only the transport differs.

// An EventType is a general class of performance event
// (perf_type_id).
type EventType uint32

const (
	EventTypeHardware EventType = iota
	EventTypeSoftware
	EventTypeTracepoint
	EventTypeHWCache
	EventTypeRaw
	EventTypeBreakpoint
)

// SampleFormat is a bitmask of the fields recorded by a sample
// (perf_event_sample_format). Which fields are present in a given
// RecordSample, and at what offset, depends entirely on this mask —
// this is the field that decides where the offsets a DataFieldRef
// holds land in a sample.
type SampleFormat uint64

const (
	SampleFormatIP SampleFormat = 1 << iota
	SampleFormatTID
	SampleFormatTime
	SampleFormatAddr
	SampleFormatRead
	SampleFormatCallchain
	SampleFormatID
	SampleFormatCPU
	SampleFormatPeriod
	SampleFormatStreamID
	SampleFormatRaw
	SampleFormatBranchStack
	SampleFormatRegsUser
	SampleFormatStackUser
	SampleFormatWeight
	SampleFormatDataSrc
	SampleFormatIdentifier
	SampleFormatTransaction
	SampleFormatRegsIntr
)

// ReadFormat is a bitmask of the fields recorded in the read value(s)
// of a sample (perf_event_read_format). Not exercised by the sampling
// configuration this package builds (§6 requires only
// IP|TID|TIME|CPU|STACK_USER|REGS_USER), but kept for completeness of
// the wire format and for any Raw field a consumer wants to inspect.
type ReadFormat uint64

const (
	ReadFormatTotalTimeEnabled ReadFormat = 1 << iota
	ReadFormatTotalTimeRunning
	ReadFormatID
	ReadFormatGroup
)

// EventFlags is a bitmask of boolean properties of an event
// (perf_event_attr bitfield).
type EventFlags uint64

const (
	EventFlagDisabled EventFlags = 1 << iota
	EventFlagInherit
	EventFlagPinned
	EventFlagExclusive
	EventFlagExcludeUser
	EventFlagExcludeKernel
	EventFlagExcludeHypervisor
	EventFlagExcludeIdle
	EventFlagMmap
	EventFlagComm
	EventFlagFreq
	EventFlagInheritStat
	EventFlagEnableOnExec
	EventFlagTask
	EventFlagWakeupWatermark

	eventFlagPreciseShift = 15
	eventFlagPreciseMask  = 0x3 << eventFlagPreciseShift

	EventFlagMmapData EventFlags = 1 << iota
	EventFlagSampleIDAll
	EventFlagExcludeHost
	EventFlagExcludeGuest
)

// EventPrecision indicates the precision of instruction pointers
// recorded by an event (precise_ip). §6 requires requesting the
// highest level the kernel supports, falling back 3→2→1→0.
type EventPrecision uint8

const (
	EventPrecisionArbitrarySkid EventPrecision = iota
	EventPrecisionConstantSkid
	EventPrecisionTryZeroSkid
	EventPrecisionZeroSkip
)

// PreciseFlags packs an EventPrecision into the two reserved
// perf_event_attr bits, matching the kernel's own bit-packing
// (bits 15-16 of the flags word).
func PreciseFlags(p EventPrecision) EventFlags {
	return EventFlags(p) << eventFlagPreciseShift & eventFlagPreciseMask
}

// RecordType indicates the type of a record delivered on the ring
// (perf_event_header.type / PERF_RECORD_*).
type RecordType uint32

const (
	RecordTypeMmap RecordType = 1 + iota
	RecordTypeLost
	RecordTypeComm
	RecordTypeExit
	RecordTypeThrottle
	RecordTypeUnthrottle
	RecordTypeFork
	RecordTypeRead
	RecordTypeSample
	RecordTypeMmap2
	RecordTypeAux
	RecordTypeItraceStart
	RecordTypeLostSamples
	RecordTypeSwitch
	RecordTypeSwitchCPUWide
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeMmap:
		return "Mmap"
	case RecordTypeLost:
		return "Lost"
	case RecordTypeComm:
		return "Comm"
	case RecordTypeExit:
		return "Exit"
	case RecordTypeThrottle:
		return "Throttle"
	case RecordTypeUnthrottle:
		return "Unthrottle"
	case RecordTypeFork:
		return "Fork"
	case RecordTypeRead:
		return "Read"
	case RecordTypeSample:
		return "Sample"
	case RecordTypeMmap2:
		return "Mmap2"
	case RecordTypeAux:
		return "Aux"
	case RecordTypeItraceStart:
		return "ItraceStart"
	case RecordTypeLostSamples:
		return "LostSamples"
	case RecordTypeSwitch:
		return "Switch"
	case RecordTypeSwitchCPUWide:
		return "SwitchCPUWide"
	}
	return "Unknown"
}

// RecordMisc is the perf_event_header.misc bitfield
// (PERF_RECORD_MISC_*).
type RecordMisc uint16

const (
	RecordMiscCPUModeMask RecordMisc = 7
	RecordMiscMmapData    RecordMisc = 1 << 13
	RecordMiscCommExec    RecordMisc = 1 << 13
	RecordMiscForkExec    RecordMisc = 1 << 13
	RecordMiscSwitchOut   RecordMisc = 1 << 13
	RecordMiscExactIP     RecordMisc = 1 << 14
)

// CPUMode indicates the privilege level a sample was taken at
// (PERF_RECORD_MISC_CPUMODE_*).
type CPUMode uint16

const (
	CPUModeUnknown CPUMode = iota
	CPUModeKernel
	CPUModeUser
	CPUModeHypervisor
	CPUModeGuestKernel
	CPUModeGuestUser
)

func CPUModeFromMisc(misc RecordMisc) CPUMode {
	return CPUMode(misc & RecordMiscCPUModeMask)
}

// SampleRegsABI indicates the register ABI of a sample's captured
// registers, for architectures that support more than one.
type SampleRegsABI uint64

const (
	SampleRegsABINone SampleRegsABI = iota
	SampleRegsABI32
	SampleRegsABI64
)

// Special markers used in RecordSample.Callchain to mark boundaries
// between stack types (perf_callchain_context).
const (
	CallchainHV          uint64 = 0xffffffffffffffe0
	CallchainKernel      uint64 = 0xffffffffffffff80
	CallchainUser        uint64 = 0xfffffffffffffe00
	CallchainGuest       uint64 = 0xfffffffffffff800
	CallchainGuestKernel uint64 = 0xfffffffffffff780
	CallchainGuestUser   uint64 = 0xfffffffffffff600
)
