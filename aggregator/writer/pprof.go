// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package writer implements format writers that each walk one
// aggregator.Snapshot and serialize it into a named profiling file
// format (spec.md §6: "persisted file formats ... only their names
// and contractual properties; bit-exact encoding is out of scope").
//
// WritePprof hand-encodes the pprof proto wire format directly with
// protowire rather than through generated message types — spec §6
// explicitly waives bit-exact encoding for the core, so a minimal,
// schema-accurate writer is sufficient and avoids a protoc/codegen
// build step the no-toolchain-execution constraint of this project
// would make painful to maintain.
package writer

import (
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/aclements/go-traceprobe/aggregator"
)

// pprof field numbers, per the public profile.proto schema.
const (
	fieldSampleType  = 1
	fieldSample      = 2
	fieldLocation    = 4
	fieldFunction    = 5
	fieldStringTable = 6
	fieldTimeNanos   = 9
	fieldPeriodType  = 11
	fieldPeriod      = 12

	// Sample message fields.
	sampleFieldLocationID = 1
	sampleFieldValue      = 2

	// ValueType message fields.
	valueTypeFieldType = 1
	valueTypeFieldUnit = 2

	// Location message fields.
	locationFieldID   = 1
	locationFieldLine = 4

	// Line message fields.
	lineFieldFunctionID = 1

	// Function message fields.
	functionFieldID   = 1
	functionFieldName = 2
)

// WritePprof serializes one process's samples from snap into the
// pprof wire format and writes it to w. pid selects which process's
// samples to include, matching pprof's one-profile-per-process
// convention (spec §6's Persisted file formats: "pprof (proto;
// per-process)").
func WritePprof(w io.Writer, snap *aggregator.Snapshot, pid int) error {
	b := buildPprof(snap, pid)
	_, err := w.Write(b)
	return err
}

func buildPprof(snap *aggregator.Snapshot, pid int) []byte {
	strs := newStringTable()
	samplesTypeIdx := strs.intern("samples")
	countUnitIdx := strs.intern("count")

	var locations, samples []byte
	locSeen := map[uint64]uint64{} // raw IP -> location id
	var nextLocID uint64 = 1

	for _, s := range snap.Samples() {
		if s.PID != pid {
			continue
		}
		frames, _ := snap.Callstack(s.CallstackID)

		var locIDs []uint64
		for _, ip := range frames {
			id, ok := locSeen[ip]
			if !ok {
				id = nextLocID
				nextLocID++
				locSeen[ip] = id
				locations = appendMessage(locations, fieldLocation, buildLocation(id, ip))
			}
			locIDs = append(locIDs, id)
		}
		samples = appendMessage(samples, fieldSample, buildSample(locIDs))
	}

	var out []byte
	out = appendMessage(out, fieldSampleType, buildValueType(samplesTypeIdx, countUnitIdx))
	out = append(out, samples...)
	out = append(out, locations...)
	out = appendVarintField(out, fieldTimeNanos, 0)
	out = appendMessage(out, fieldPeriodType, buildValueType(samplesTypeIdx, countUnitIdx))
	out = appendVarintField(out, fieldPeriod, 1)
	out = appendMessage(out, fieldStringTable, nil) // placeholder entry for index 0, the empty string
	for _, s := range strs.ordered[1:] {
		out = protowire.AppendTag(out, fieldStringTable, protowire.BytesType)
		out = protowire.AppendBytes(out, []byte(s))
	}
	return out
}

func buildValueType(typeIdx, unitIdx int) []byte {
	var b []byte
	b = appendVarintField(b, valueTypeFieldType, uint64(typeIdx))
	b = appendVarintField(b, valueTypeFieldUnit, uint64(unitIdx))
	return b
}

func buildSample(locIDs []uint64) []byte {
	var b []byte
	for _, id := range locIDs {
		b = appendVarintField(b, sampleFieldLocationID, id)
	}
	b = appendVarintField(b, sampleFieldValue, 1)
	return b
}

func buildLocation(id, rawIP uint64) []byte {
	var b []byte
	b = appendVarintField(b, locationFieldID, id)
	// No function/line resolution without symbolication (an
	// explicit Non-goal); callers that need it can post-process
	// using procmap's module ranges against rawIP.
	_ = rawIP
	return b
}

func appendVarintField(b []byte, field int32, v uint64) []byte {
	b = protowire.AppendTag(b, protowire.Number(field), protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, field int32, msg []byte) []byte {
	b = protowire.AppendTag(b, protowire.Number(field), protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// stringTable deduplicates strings in first-seen order, with index 0
// reserved for the empty string as pprof's format requires.
type stringTable struct {
	ids     map[string]int
	ordered []string
}

func newStringTable() *stringTable {
	return &stringTable{ids: map[string]int{"": 0}, ordered: []string{""}}
}

func (t *stringTable) intern(s string) int {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := len(t.ordered)
	t.ids[s] = id
	t.ordered = append(t.ordered, s)
	return id
}
