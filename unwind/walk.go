// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unwind drives the per-sample stack walk described in spec
// §4.6: starting from the sampled PC/SP, repeatedly resolve the
// current module's unwind rule (DWARF CFI first, a single heuristic
// prolog-scan step as fallback), recover the caller's PC and CFA, and
// continue until a depth limit, a missing rule, or a
// non-strictly-increasing stack pointer stops the walk.
//
// The step/continue split mirrors delve's stackIterator.Next /
// advanceRegs pair: one function decides whether to keep going, a
// second performs the arithmetic to land on the next frame.
package unwind

import (
	"github.com/aclements/go-traceprobe/dwarfcfi"
	"github.com/aclements/go-traceprobe/procmap"
	"github.com/aclements/go-traceprobe/prologscan"
)

// MaxDepth bounds the number of frames a single Walk will produce,
// per spec §4.6's fixed depth limit.
const MaxDepth = 1024

// Regs is the minimal register set the walker needs: the current
// instruction pointer and stack pointer.
type Regs struct {
	IP, SP uint64
}

// StackReader reads raw stack bytes captured with the sample. addr is
// an absolute stack address; Read fills out with the bytes at addr
// and reports whether they were actually captured (a sample's stack
// dump has a finite size, per spec §4.2's StackUser capture limit).
type StackReader interface {
	Read(addr uint64, out []byte) bool
}

// StoppedReason explains why a Walk produced fewer than MaxDepth
// frames. Names and meanings follow spec §3's literal
// UnwindResult.stopped_reason enum (Ok, NoModule, DwarfError,
// StackExhausted, DepthLimit, BadSample).
type StoppedReason int

const (
	// StoppedDepthLimit means Walk filled every requested frame
	// slot and stopped only because it ran out of room, not
	// because unwinding itself failed.
	StoppedDepthLimit StoppedReason = iota
	// StoppedOk means the walk reached a frame with no further
	// caller (return address of zero) — a complete, successful
	// unwind.
	StoppedOk
	// StoppedNoModule means the current PC didn't resolve to any
	// known module.
	StoppedNoModule
	// StoppedDwarfError means neither DWARF CFI nor the prolog
	// scanner could produce an unwind rule for the current frame.
	StoppedDwarfError
	// StoppedStackExhausted means a step failed and the stack word
	// at the current stack pointer lies outside the captured stack
	// bytes.
	StoppedStackExhausted
	// StoppedBadSample means the computed next CFA did not
	// strictly increase, which would otherwise loop forever (spec
	// §4.6's termination invariant) — a sign of an inconsistent
	// register/stack capture rather than a missing unwind rule.
	StoppedBadSample
)

func (r StoppedReason) String() string {
	switch r {
	case StoppedDepthLimit:
		return "depth limit"
	case StoppedOk:
		return "ok"
	case StoppedNoModule:
		return "no module"
	case StoppedDwarfError:
		return "dwarf error"
	case StoppedStackExhausted:
		return "stack exhausted"
	case StoppedBadSample:
		return "bad sample"
	default:
		return "unknown"
	}
}

// Result summarizes one call to Walk.
type Result struct {
	FramesWritten uint32
	Stopped       StoppedReason
}

// CFILoader resolves a module to its parsed CFI table, loading and
// caching it on first use. It returns ok=false if the module has no
// usable CFI (not yet probed, unsupported format, or load failure) so
// the walker falls back to prolog scanning.
type CFILoader interface {
	Load(m *procmap.Module) (*dwarfcfi.Table, bool)
}

// Walker performs stack walks for samples belonging to one machine's
// set of tracked processes.
type Walker struct {
	Machine *procmap.Machine
	CFI     CFILoader
	Scanner *prologscan.Scanner
}

// NewWalker creates a walker using a default prologscan.Scanner.
func NewWalker(machine *procmap.Machine, cfi CFILoader) *Walker {
	return &Walker{Machine: machine, CFI: cfi, Scanner: prologscan.NewScanner()}
}

// Walk fills frames (innermost first) starting from regs, reading
// stack memory through stack, and returns how many frames it wrote
// and why it stopped. Per spec §4.6's pseudocode, the sampled PC
// itself is always the first frame (push(rip)) before any caller is
// recovered, so a PC that resolves to no module still yields one
// frame rather than zero. frames must have length >= 1; Walk writes
// at most len(frames) entries and at most MaxDepth regardless of
// len(frames).
func (w *Walker) Walk(pid int, regs Regs, stack StackReader, frames []uint64) Result {
	max := len(frames)
	if max > MaxDepth {
		max = MaxDepth
	}
	if max == 0 {
		return Result{Stopped: StoppedDepthLimit}
	}

	frames[0] = regs.IP
	n := 1
	pc, sp := regs.IP, regs.SP
	for n < max {
		mod, ok := w.Machine.Module(pid, pc)
		if !ok {
			return Result{FramesWritten: uint32(n), Stopped: StoppedNoModule}
		}

		cfa, retAddr, ok := w.step(pid, mod, pc, sp, stack)
		if !ok {
			var word [8]byte
			if !stack.Read(sp, word[:]) {
				return Result{FramesWritten: uint32(n), Stopped: StoppedStackExhausted}
			}
			return Result{FramesWritten: uint32(n), Stopped: StoppedDwarfError}
		}
		if cfa == 0 {
			return Result{FramesWritten: uint32(n), Stopped: StoppedStackExhausted}
		}
		if cfa <= sp {
			return Result{FramesWritten: uint32(n), Stopped: StoppedBadSample}
		}
		if retAddr == 0 {
			return Result{FramesWritten: uint32(n), Stopped: StoppedOk}
		}

		frames[n] = retAddr
		n++
		pc, sp = retAddr, cfa
	}
	return Result{FramesWritten: uint32(n), Stopped: StoppedDepthLimit}
}

// step advances one frame: given the module containing pc and the
// current stack pointer sp, it returns the caller's CFA and return
// address. It prefers DWARF CFI; on any DWARF failure it falls back
// to a single prolog-scan step, per spec §4.6 ("a module with no
// DWARF, or whose DWARF doesn't cover this pc, degrades to one
// heuristic step rather than aborting the whole walk").
func (w *Walker) step(pid int, mod *procmap.Module, pc, sp uint64, stack StackReader) (cfa, retAddr uint64, ok bool) {
	if tbl, haveCFI := w.cfiFor(mod); haveCFI {
		if row, err := tbl.Resolve(pc); err == nil {
			if c, ra, ok := w.applyCFIRow(row, sp, stack); ok {
				return c, ra, true
			}
		}
	}
	return w.prologStep(pid, sp, stack)
}

func (w *Walker) cfiFor(mod *procmap.Module) (*dwarfcfi.Table, bool) {
	if w.CFI == nil || mod.Unwind == procmap.UnwindProlog {
		return nil, false
	}
	return w.CFI.Load(mod)
}

func (w *Walker) applyCFIRow(row dwarfcfi.Row, sp uint64, stack StackReader) (cfa, retAddr uint64, ok bool) {
	// Only the register+offset CFA rule is modeled; see dwarfcfi.Row.
	// Only rsp (DWARF register 7 on x86-64) is tracked, so a CFA based
	// on any other register fails the step.
	if row.CFAReg != 7 {
		return 0, 0, false
	}
	cfa = sp + uint64(int64(row.CFAOffset))
	if !row.RetAddrValid {
		return cfa, 0, true
	}
	var buf [8]byte
	addr := uint64(int64(cfa) + row.RetAddrOffset)
	if !stack.Read(addr, buf[:]) {
		return 0, 0, false
	}
	retAddr = leU64(buf[:])
	return cfa, retAddr, true
}

// prologStep performs one heuristic step: scan upward from sp for a
// plausible return address, then treat the word immediately above it
// as the new CFA (the classic "pushed return address, CFA is one word
// above it" shape for code with a standard call/ret convention).
func (w *Walker) prologStep(pid int, sp uint64, stack StackReader) (cfa, retAddr uint64, ok bool) {
	var buf [prologscan.DefaultScanBytes]byte
	if !stack.Read(sp, buf[:]) {
		return 0, 0, false
	}
	res := w.Scanner.Scan(buf[:], func(addr uint64) bool { return w.looksLikeCode(pid, addr) })
	if !res.Found {
		return 0, 0, false
	}
	return sp + uint64(res.StackOffset) + 8, res.RetAddr, true
}

func (w *Walker) looksLikeCode(pid int, addr uint64) bool {
	// A conservative stand-in for "points into an executable
	// module": any module at all counts, since procmap doesn't
	// track per-mapping protection bits. Real deployments can
	// swap this for a tighter check via a custom CFILoader.
	_, ok := w.Machine.Module(pid, addr)
	return ok
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
