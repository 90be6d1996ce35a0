// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aggregator accumulates the live state of one traced machine
// — processes, threads, modules, and samples — and exposes it as the
// format-neutral export record stream described in spec.md §4.7 and
// §6, so that any number of format writers (aggregator/writer) can
// walk the same snapshot independently.
//
// This adapts the teacher repo's perfsession.Session.Update
// type-switch dispatch (lazy pid creation, mutate-in-place on
// mmap/fork/exit) from a perf-specific PIDInfo model into the
// generic Machine/Process/Thread/Module/Sample export shape.
package aggregator

import "time"

// EventKind names the kind of trace event a Sample records. Callers
// extend this as new sample-producing event types are wired up;
// aggregator itself treats it as an opaque label.
type EventKind string

// MachineInfo is the concrete form of §3/§6's Machine export record:
// one fact recorded once per export stream. It is a distinct type
// from procmap.Machine (the live pid->Process map mutated on every
// Comm/Fork/Exit/Mmap record) — see SPEC_FULL.md's Data Model
// addendum for why the two "Machine" uses in spec.md get distinct Go
// names here.
type MachineInfo struct {
	BootTS time.Time
	CPUs   int
	OS     string
}

// ProcessInfo is the §6 Process export record.
type ProcessInfo struct {
	PID     int
	Name    string
	Cmdline []string
	StartTS time.Time
	EndTS   *time.Time
}

// ThreadInfo is the §6 Thread export record.
type ThreadInfo struct {
	PID, TID int
	Name     string
	StartTS  time.Time
	EndTS    *time.Time
}

// ModuleKeyInfo mirrors procmap.ModuleKey so that aggregator does not
// need to import procmap just for this one value type; the aggregator
// receives already-resolved keys from its caller (the sample handler),
// keeping the export record model decoupled from the live module map.
type ModuleKeyInfo struct {
	Device, Inode uint64
}

// ModuleInfo is the §6 Module export record.
type ModuleInfo struct {
	PID        int
	Key        ModuleKeyInfo
	Start, End uint64
	FileOffset uint64
	Path       string
	Anonymous  bool
}

// Frame is one entry of a Callstack export record: a resolved module
// (if any), the address relative to that module's start (rva), and
// the raw, unadjusted instruction pointer.
type Frame struct {
	ModuleKey *ModuleKeyInfo
	RVA       uint64
	RawIP     uint64
}

// Callstack is the §6 Callstack export record, keyed by the id
// intern.Callstacks assigned its raw address sequence.
type Callstack struct {
	ID     uint32
	Frames []Frame
}

// Sample is the §6 Sample export record.
type Sample struct {
	PID, TID    int
	TS          time.Time
	CPU         int
	Event       EventKind
	CallstackID uint32
}
