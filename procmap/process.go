// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procmap

// Process tracks the module map for one traced process, keyed by
// PID. It generalizes the teacher repo's PIDInfo: munmap's
// overlap-splitting logic becomes Insert's evictOverlapping call, and
// the teacher's linear mapFind scan becomes a binary search via
// ranges[*Module].
type Process struct {
	PID  int
	Comm string

	mods ranges[*Module]
}

// NewProcess creates a process with no modules mapped yet.
func NewProcess(pid int, comm string) *Process {
	return &Process{PID: pid, Comm: comm}
}

// Insert records m as newly mapped into this process. Per spec §4.3
// Invariant 4, any existing module range overlapping m's range is
// evicted (split or removed) first, so the process's module ranges
// never overlap afterward.
func (p *Process) Insert(m *Module) {
	p.evictOverlapping(m.Start, m.End)
	p.mods.add(m.Start, m.End, m)
}

// Unmap removes any mapped range overlapping [addr, addr+length),
// splitting modules whose range only partially overlaps, mirroring
// the teacher's PIDInfo.munmap.
func (p *Process) Unmap(addr, length uint64) {
	p.evictOverlapping(addr, addr+length)
}

// evictOverlapping removes every module range overlapping [lo, hi).
// A module that only partly overlaps keeps its surviving prefix and
// suffix, each as its own Module whose Start, End and FileOffset
// describe just that piece.
func (p *Process) evictOverlapping(lo, hi uint64) {
	p.mods.removeOverlapping(lo, hi)
	for i := range p.mods.rs {
		e := &p.mods.rs[i]
		if e.val.Start != e.lo || e.val.End != e.hi {
			m := *e.val
			m.FileOffset += e.lo - m.Start
			m.Start, m.End = e.lo, e.hi
			e.val = &m
		}
	}
}

// Find returns the module containing ip, by binary search over the
// process's sorted module ranges.
func (p *Process) Find(ip uint64) (*Module, bool) {
	return p.mods.get(ip)
}

// Modules returns every module currently mapped into the process, in
// no particular order.
func (p *Process) Modules() []*Module {
	ents := p.mods.all()
	out := make([]*Module, len(ents))
	for i, e := range ents {
		out[i] = e.val
	}
	return out
}

// Fork returns a copy of p for a newly forked child PID. The child
// starts with the same module map as the parent at the moment of
// fork, then diverges independently (spec §4.3: fork clones the
// parent's address space).
func (p *Process) Fork(childPID int) *Process {
	child := NewProcess(childPID, p.Comm)
	for _, e := range p.mods.all() {
		m := *e.val
		child.mods.add(m.Start, m.End, &m)
	}
	return child
}
