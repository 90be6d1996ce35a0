// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package prologscan implements the heuristic stack-scanning unwind
// step (spec §4.5) used when no DWARF CFI is available for a module
// (JIT-generated code, stripped binaries, or a module dwarfcfi could
// not parse): scan words up the stack from the current stack pointer
// looking for a value that plausibly is a return address, rather than
// trusting a precise frame-pointer chain.
//
// There is no direct teacher precedent for this (the name-alike
// cmd/prologuer measured something unrelated — see DESIGN.md); the
// bounded-retry byte-budget loop shape is grounded on
// perffile/buf.go's bufferedSectionReader.fill(), generalized from
// "try to fill a read buffer" to "try to find a plausible word within
// a byte budget".
package prologscan

import "encoding/binary"

// DefaultScanBytes is the maximum number of stack bytes scanned
// looking for a single return address, per spec §4.5's per-frame
// scan budget.
const DefaultScanBytes = 512

// IsCodeAddr reports whether addr plausibly points into executable
// code, so that it's a plausible return address. Callers typically
// implement this against a procmap.Machine/Process lookup.
type IsCodeAddr func(addr uint64) bool

// Scanner finds a plausible return address by scanning stack memory.
type Scanner struct {
	// MaxBytes bounds how far up the stack to scan before giving
	// up on this frame. Zero means DefaultScanBytes.
	MaxBytes int
}

// NewScanner creates a scanner using DefaultScanBytes.
func NewScanner() *Scanner {
	return &Scanner{MaxBytes: DefaultScanBytes}
}

// Result describes what the scan found.
type Result struct {
	// RetAddr is the candidate return address, valid only if Found.
	RetAddr uint64
	// StackOffset is the byte offset within stack, from its start,
	// at which RetAddr was found.
	StackOffset int
	Found       bool
}

// Scan walks 8-byte-aligned words in stack (stack[0] corresponding to
// the current stack pointer) looking for the first word for which
// isCode reports true. It never reads past MaxBytes (or
// DefaultScanBytes if unset) or past the end of stack, whichever
// comes first.
//
// This is deliberately a "first plausible hit" heuristic, not a
// disassembler: spec §4.5 accepts the occasional false positive in
// exchange for working without any debug information.
func (s *Scanner) Scan(stack []byte, isCode IsCodeAddr) Result {
	budget := s.MaxBytes
	if budget == 0 {
		budget = DefaultScanBytes
	}
	limit := len(stack)
	if budget < limit {
		limit = budget
	}

	const wordSize = 8
	for off := 0; off+wordSize <= limit; off += wordSize {
		word := binary.LittleEndian.Uint64(stack[off : off+wordSize])
		if word == 0 {
			continue
		}
		if isCode(word) {
			return Result{RetAddr: word, StackOffset: off, Found: true}
		}
	}
	return Result{}
}
