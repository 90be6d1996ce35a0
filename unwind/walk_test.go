// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unwind

import (
	"encoding/binary"
	"testing"

	"github.com/aclements/go-traceprobe/procmap"
)

// fakeStack is a StackReader backed by a byte slice addressed from a
// fixed base.
type fakeStack struct {
	base uint64
	data []byte
}

func (s *fakeStack) Read(addr uint64, out []byte) bool {
	if addr < s.base {
		return false
	}
	off := addr - s.base
	if off+uint64(len(out)) > uint64(len(s.data)) {
		return false
	}
	copy(out, s.data[off:off+uint64(len(out))])
	return true
}

func putWord(data []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(data[off:], v)
}

func TestWalkOneFrameThenRunsDry(t *testing.T) {
	m := procmap.NewMachine()
	p := m.Ensure(1)
	p.Insert(&procmap.Module{Start: 0x1000, End: 0x9000, Path: "a.out"})

	// One plausible return address at offset 8, an all-zero region
	// above it: Walk pushes the sampled IP first, the first prolog
	// step finds 0x1500, the second finds nothing and the walk
	// stops with StoppedDwarfError.
	stackBytes := make([]byte, 4096)
	putWord(stackBytes, 8, 0x1500)

	fs := &fakeStack{base: 0x7000, data: stackBytes}
	w := NewWalker(m, nil)

	frames := make([]uint64, 8)
	res := w.Walk(1, Regs{IP: 0x1000, SP: 0x7000}, fs, frames)
	if res.FramesWritten != 2 || frames[0] != 0x1000 || frames[1] != 0x1500 || res.Stopped != StoppedDwarfError {
		t.Fatalf("got %+v frames=%v, want 2 frames = [0x1000 0x1500] then StoppedDwarfError", res, frames[:res.FramesWritten])
	}
}

func TestWalkRespectsDepthLimit(t *testing.T) {
	m := procmap.NewMachine()
	p := m.Ensure(1)
	p.Insert(&procmap.Module{Start: 0x1000, End: 0x9000, Path: "a.out"})

	// Build a stack where every 8-byte word points back into the
	// module, so the scanner always finds an
	// immediate hit and the walk only terminates via the frame
	// buffer/depth limit.
	stackBytes := make([]byte, 4096)
	for i := 0; i+8 <= len(stackBytes); i += 8 {
		putWord(stackBytes, i, 0x1000+uint64(i))
	}
	fs := &fakeStack{base: 0x7000, data: stackBytes}
	w := NewWalker(m, nil)

	frames := make([]uint64, 4)
	res := w.Walk(1, Regs{IP: 0x1000, SP: 0x7000}, fs, frames)
	if res.Stopped != StoppedDepthLimit || res.FramesWritten != 4 {
		t.Fatalf("got %+v, want depth limit at 4 frames", res)
	}
}

func TestWalkNoModuleStopsImmediately(t *testing.T) {
	m := procmap.NewMachine()
	m.Ensure(1)
	w := NewWalker(m, nil)
	frames := make([]uint64, 4)
	res := w.Walk(1, Regs{IP: 0xdead, SP: 0x7000}, &fakeStack{}, frames)
	if res.Stopped != StoppedNoModule || res.FramesWritten != 1 || frames[0] != 0xdead {
		t.Fatalf("got %+v, want StoppedNoModule with the sampled IP as the one frame", res)
	}
}
