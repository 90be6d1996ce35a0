// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregator

import (
	"sort"
	"time"

	"github.com/aclements/go-traceprobe/intern"
)

type threadKey struct{ pid, tid int }

// Aggregator accumulates one machine's export state across an entire
// session: it is written to by dispatch handlers as records arrive,
// and read from (via Snapshot) by format writers once the session
// ends. It is not safe for concurrent use — per spec §5, the
// concurrency model assigns one aggregator shard per consumer thread,
// merged into a global aggregator only at stop via a single-consumer
// handoff.
type Aggregator struct {
	machine    MachineInfo
	machineSet bool

	processes map[int]*ProcessInfo
	threads   map[threadKey]*ThreadInfo
	modules   map[int][]*ModuleInfo

	samples []Sample

	strings    *intern.Strings
	callstacks *intern.Callstacks
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		processes:  make(map[int]*ProcessInfo),
		threads:    make(map[threadKey]*ThreadInfo),
		modules:    make(map[int][]*ModuleInfo),
		strings:    intern.NewStrings(),
		callstacks: intern.NewCallstacks(),
	}
}

// SetMachine records the session's single Machine export fact. It is
// expected to be called once, near session start.
func (a *Aggregator) SetMachine(info MachineInfo) {
	a.machine = info
	a.machineSet = true
}

// EnsureProcess returns the ProcessInfo for pid, creating it with
// startTS if this is the first time pid has been seen — mirroring the
// teacher's ensurePID lazy-creation pattern, needed because samples
// can precede the Comm record that would otherwise have created the
// process (spec §4.3).
func (a *Aggregator) EnsureProcess(pid int, startTS time.Time) *ProcessInfo {
	p, ok := a.processes[pid]
	if !ok {
		p = &ProcessInfo{PID: pid, StartTS: startTS}
		a.processes[pid] = p
	}
	return p
}

// SetProcessComm records pid's command name and argv, as reported by
// a Comm/exec record.
func (a *Aggregator) SetProcessComm(pid int, name string, cmdline []string) {
	p := a.EnsureProcess(pid, time.Time{})
	p.Name = name
	p.Cmdline = cmdline
}

// ExitProcess marks pid as exited at ts. The ProcessInfo is kept (not
// deleted) so that samples attributed to it before exit still resolve
// correctly in the export stream.
func (a *Aggregator) ExitProcess(pid int, ts time.Time) {
	p := a.EnsureProcess(pid, ts)
	t := ts
	p.EndTS = &t
}

// EnsureThread is EnsureProcess's analogue for threads.
func (a *Aggregator) EnsureThread(pid, tid int, startTS time.Time) *ThreadInfo {
	key := threadKey{pid, tid}
	th, ok := a.threads[key]
	if !ok {
		th = &ThreadInfo{PID: pid, TID: tid, StartTS: startTS}
		a.threads[key] = th
	}
	return th
}

// ExitThread marks (pid,tid) as exited at ts.
func (a *Aggregator) ExitThread(pid, tid int, ts time.Time) {
	th := a.EnsureThread(pid, tid, ts)
	t := ts
	th.EndTS = &t
}

// AddModule records a newly mapped module for pid. Unlike
// procmap.Process (which tracks only the currently-live mapping for
// unwinding), the aggregator keeps every module ever seen, since a
// sample taken while an earlier mapping was live still needs to
// resolve against it in the export stream.
func (a *Aggregator) AddModule(pid int, m ModuleInfo) {
	m.PID = pid
	a.modules[pid] = append(a.modules[pid], &m)
}

// InternString interns b into the shared string table, returning its
// stable id for use in String export records.
func (a *Aggregator) InternString(b []byte) uint32 {
	return a.strings.Intern(b)
}

// InternCallstack interns frames into the shared call-stack table,
// returning its stable id for use as a Sample's CallstackID.
func (a *Aggregator) InternCallstack(frames []uint64) uint32 {
	return a.callstacks.Intern(frames)
}

// AddSample appends one Sample export record.
func (a *Aggregator) AddSample(s Sample) {
	a.samples = append(a.samples, s)
}

// Snapshot returns a read-only view of everything accumulated so far,
// for format writers to walk. Per spec §4.7, multiple writers may run
// over the same snapshot; Snapshot never mutates the aggregator, so
// sharing one snapshot across writers is safe.
func (a *Aggregator) Snapshot() *Snapshot {
	return &Snapshot{a: a}
}

// Snapshot is a read-only view over an Aggregator's accumulated
// state, intended for aggregator/writer implementations.
type Snapshot struct {
	a *Aggregator
}

// Machine returns the session's single Machine export record.
func (s *Snapshot) Machine() (MachineInfo, bool) {
	return s.a.machine, s.a.machineSet
}

// Processes returns every known process, ordered by PID for
// deterministic writer output.
func (s *Snapshot) Processes() []*ProcessInfo {
	out := make([]*ProcessInfo, 0, len(s.a.processes))
	for _, p := range s.a.processes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Threads returns every known thread belonging to pid, ordered by
// TID.
func (s *Snapshot) Threads(pid int) []*ThreadInfo {
	var out []*ThreadInfo
	for k, th := range s.a.threads {
		if k.pid == pid {
			out = append(out, th)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TID < out[j].TID })
	return out
}

// Modules returns every module ever recorded for pid, in the order
// they were mapped.
func (s *Snapshot) Modules(pid int) []*ModuleInfo {
	return s.a.modules[pid]
}

// Samples returns every recorded sample, in the order Dispatch
// appended them (producer order within a ring, per spec §5; callers
// needing a global time order across multiple rings must sort by TS
// themselves, per spec §5's "aggregator does not re-sort globally").
func (s *Snapshot) Samples() []Sample {
	return s.a.samples
}

// String resolves an interned string id.
func (s *Snapshot) String(id uint32) (string, bool) {
	b, ok := s.a.strings.Lookup(id)
	return string(b), ok
}

// Callstack resolves an interned call-stack id to its raw address
// sequence (innermost frame first).
func (s *Snapshot) Callstack(id uint32) ([]uint64, bool) {
	return s.a.callstacks.Lookup(id)
}
