// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package procmap tracks, for every live process, the set of mapped
// modules (file-backed or anonymous) covering its address space, and
// resolves an instruction pointer to the module that contains it.
// This generalizes the teacher repo's perfsession.Session/PIDInfo/Mmap
// trio (one flat map, one linear mapFind scan) into a binary-search
// lookup per spec.md §4.3 Invariant 4: "module ranges within a
// process never overlap."
package procmap

// ModuleKey identifies the backing file of a module: the device and
// inode perf reports in PERF_RECORD_MMAP2, or the zero value for an
// anonymous mapping.
type ModuleKey struct {
	Device uint64
	Inode  uint64
}

// UnwindKind records which unwind strategy a module's code should
// use, decided once when the module is mapped and cached on it
// afterward (spec §4.3: "the unwinder consults this decision rather
// than re-probing on every sample").
type UnwindKind int

const (
	// UnwindUnknown means no unwind decision has been made yet,
	// e.g. because the module's debug info hasn't been loaded.
	UnwindUnknown UnwindKind = iota
	// UnwindDWARF means CFI is available and should be preferred.
	UnwindDWARF
	// UnwindProlog means no usable CFI was found and the heuristic
	// prolog scanner should be used instead.
	UnwindProlog
)

func (k UnwindKind) String() string {
	switch k {
	case UnwindDWARF:
		return "dwarf"
	case UnwindProlog:
		return "prolog"
	default:
		return "unknown"
	}
}

// Module describes one contiguous virtual address range mapped into
// a process, and the file (if any) backing it.
type Module struct {
	Key ModuleKey

	// Start and End are the virtual address bounds [Start, End) of
	// this mapping at the time it was recorded.
	Start, End uint64

	// FileOffset is the byte offset into the backing file at which
	// this mapping begins.
	FileOffset uint64

	// Path is the backing file's path, or "" for anonymous
	// mappings and special regions like [vdso] or [stack].
	Path string

	// Anonymous is true for mappings with no backing file (heap,
	// stack, anonymous mmap, JIT-generated code).
	Anonymous bool

	// Unwind is the strategy the unwinder should use for code in
	// this module.
	Unwind UnwindKind
}

// Contains reports whether ip falls within this module's mapped
// range.
func (m *Module) Contains(ip uint64) bool {
	return m.Start <= ip && ip < m.End
}
