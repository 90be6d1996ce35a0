// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package perfring implements the Linux perf ring-buffer session
// described in spec.md §4.2: perf_event_open configuration, the
// 1+2^k page mmap layout, and a per-CPU consumer loop that decodes
// framed records out of the shared ring.
//
// The record field layout and bitmask-conditional decode order are
// adapted from perffile/records.go's parseSample/parseCommon (same
// kernel ABI, same conditional field order), retargeted from a
// file-backed bufferedSectionReader onto a live mmap'd ring slice.
// The ring's wraparound-safe copy and the per-CPU epoll fan-in loop
// are grounded on two other_examples files: yonch-memory-collector's
// pkg/perf/ring.go (PeekCopy's split-copy-around-the-end shape, here
// adapted from the producer side to the consumer side of the same
// ring) and cilium's vendored ebpf perf reader.go (Reader.Read's
// per-CPU-tagged epoll loop, addToEpoll's CPU-in-Pad trick).
package perfring

import (
	"golang.org/x/sys/unix"
)

// EventSpec names one event source to sample, in the (type, config)
// shape perf_event_open itself takes.
type EventSpec struct {
	Type   uint32 // e.g. unix.PERF_TYPE_HARDWARE, PERF_TYPE_SOFTWARE
	Config uint64 // e.g. unix.PERF_COUNT_HW_CPU_CYCLES
}

// Config holds every session-wide knob spec §6 lists as required
// perf_event_attr configuration.
type Config struct {
	Event EventSpec

	// SampleFreq selects frequency-based sampling (attr.freq = 1);
	// spec §6 requires sample_freq rather than a fixed period.
	SampleFreq uint64

	// StackBytes is the user-stack capture size, 8192-32768 per
	// spec §6.
	StackBytes uint32

	// WantPreciseIP requests the given precise_ip level, falling
	// back to lower levels; BuildAttr itself only sets the
	// requested value, the fallback probe sequence is the
	// session's responsibility (attempting PerfEventOpen and
	// retrying with a lower level on EOPNOTSUPP/EINVAL).
	WantPreciseIP uint8

	// RingPages is k in "ring size (1+2^k) pages"; must be in
	// 3..8 per spec §6.
	RingPages uint
}

// sampleTypeMask is the fixed SampleFormat this session always
// requests: IP | TID | TIME | CPU | STACK_USER | REGS_USER, the
// minimum spec §6 mandates.
const sampleTypeMask = unix.PERF_SAMPLE_IP |
	unix.PERF_SAMPLE_TID |
	unix.PERF_SAMPLE_TIME |
	unix.PERF_SAMPLE_CPU |
	unix.PERF_SAMPLE_STACK_USER |
	unix.PERF_SAMPLE_REGS_USER

// regsUserMask selects IP, SP, and BP at minimum, per spec §6.
// Offsets follow the x86-64 perf_regs enum (PERF_REG_X86_IP=8,
// PERF_REG_X86_SP=7, PERF_REG_X86_BP=6).
const regsUserMask = 1<<8 | 1<<7 | 1<<6

// attrBitPreciseIPLo is the low bit of precise_ip, a 2-bit field at
// bits 15-16 of perf_event_attr's packed Bits word. x/sys/unix names
// the single-bit flags individually (PerfBitFreq and so on) but has
// no constant for this multi-bit field, so its position is taken
// directly from the kernel's include/uapi/linux/perf_event.h layout.
const attrBitPreciseIPLo = 15

// BuildAttr constructs the perf_event_attr the kernel expects for cfg,
// per spec §6's field list.
func BuildAttr(cfg Config) *unix.PerfEventAttr {
	attr := &unix.PerfEventAttr{
		Type:              cfg.Event.Type,
		Size:              unix.PERF_ATTR_SIZE_VER5,
		Config:            cfg.Event.Config,
		Sample:            cfg.SampleFreq,
		Sample_type:       uint64(sampleTypeMask),
		Sample_regs_user:  uint64(regsUserMask),
		Sample_stack_user: cfg.StackBytes,
		Bits:              unix.PerfBitFreq | unix.PerfBitExcludeIdle | unix.PerfBitExcludeHv,
	}
	attr.Bits |= uint64(cfg.WantPreciseIP&0x3) << attrBitPreciseIPLo
	return attr
}

// RingBytes returns the total byte size of the mmap region BuildAttr's
// session should request: one metadata page plus 2^k data pages.
func RingBytes(ringPages uint, pageSize int) int {
	return pageSize * (1 + (1 << ringPages))
}
