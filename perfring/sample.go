// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfring

import (
	"fmt"

	"github.com/aclements/go-traceprobe/tracefmt"
)

// Sample is a decoded PERF_RECORD_SAMPLE: the fixed field set this
// session always requests (spec §6: "must include IP | TID | TIME |
// CPU | STACK_USER | REGS_USER").
type Sample struct {
	IP   uint64
	PID  int
	TID  int
	Time uint64
	CPU  uint32

	// RegsUser holds exactly the registers named by regsUserMask
	// (IP, SP, BP), in ascending register-number order.
	RegsUser [3]uint64

	// StackUser is the captured user-stack bytes, and
	// StackUserDynSize is how much of the capture the kernel
	// actually had available (the two can differ: the kernel
	// always writes the configured capture size, padding with
	// zeros beyond the live stack).
	StackUser        []byte
	StackUserDynSize uint64
}

// DecodeSample decodes a PERF_RECORD_SAMPLE body using this session's
// fixed field order. It follows perffile/records.go's parseSample
// exactly for the subset of fields sampleTypeMask/regsUserMask
// select: PERF_SAMPLE_IP, _TID, _TIME, _CPU's ordering relative to
// each other is fixed by the kernel ABI regardless of which other
// bits are set, so this decode order is correct as long as BuildAttr
// keeps requesting exactly this sampleTypeMask.
func DecodeSample(body []byte) (Sample, error) {
	c := tracefmt.NewCursor(body)

	var s Sample
	s.IP = c.U64() // PERF_SAMPLE_IP
	s.PID = int(c.I32()) // PERF_SAMPLE_TID
	s.TID = int(c.I32())
	s.Time = c.U64() // PERF_SAMPLE_TIME
	s.CPU = c.U32() // PERF_SAMPLE_CPU
	c.U32()         // reserved companion word

	// PERF_SAMPLE_REGS_USER: a u64 ABI word (ignored here; x86-64
	// is the only ABI this session configures) followed by one u64
	// per requested register, in ascending register-number order
	// (BP=6, SP=7, IP=8 per regsUserMask).
	c.U64()
	regs := c.U64s(3)
	copy(s.RegsUser[:], regs)

	// PERF_SAMPLE_STACK_USER: a u64 size, that many bytes, then
	// (only if size > 0) a trailing u64 giving how much of the
	// capture was live stack.
	size := int(c.U64())
	s.StackUser = c.Bytes(size)
	if size > 0 {
		s.StackUserDynSize = c.U64()
	}

	if err := c.Err(); err != nil {
		return Sample{}, fmt.Errorf("perfring: decode sample: %w", err)
	}
	return s, nil
}
