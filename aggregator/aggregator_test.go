// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregator

import (
	"testing"
	"time"
)

func TestEnsureProcessIsIdempotent(t *testing.T) {
	a := New()
	p1 := a.EnsureProcess(1, time.Unix(0, 0))
	p2 := a.EnsureProcess(1, time.Unix(100, 0))
	if p1 != p2 {
		t.Fatal("EnsureProcess must return the same record for a pid seen twice")
	}
	if p1.StartTS != time.Unix(0, 0) {
		t.Fatal("second EnsureProcess call must not clobber the original StartTS")
	}
}

func TestSnapshotOrdersByID(t *testing.T) {
	a := New()
	a.EnsureProcess(30, time.Time{})
	a.EnsureProcess(10, time.Time{})
	a.EnsureProcess(20, time.Time{})

	snap := a.Snapshot()
	procs := snap.Processes()
	if len(procs) != 3 || procs[0].PID != 10 || procs[1].PID != 20 || procs[2].PID != 30 {
		t.Fatalf("got %v, want PIDs in ascending order", procs)
	}
}

func TestInterningIsSharedAcrossSamples(t *testing.T) {
	a := New()
	id1 := a.InternCallstack([]uint64{0x1000, 0x2000})
	id2 := a.InternCallstack([]uint64{0x1000, 0x2000})
	if id1 != id2 {
		t.Fatal("identical call stacks must intern to the same id")
	}

	a.AddSample(Sample{PID: 1, TID: 1, CallstackID: id1, Event: "cpu-cycles"})
	a.AddSample(Sample{PID: 1, TID: 1, CallstackID: id2, Event: "cpu-cycles"})

	snap := a.Snapshot()
	samples := snap.Samples()
	if len(samples) != 2 || samples[0].CallstackID != samples[1].CallstackID {
		t.Fatalf("got %v, want both samples to share one callstack id", samples)
	}
	frames, ok := snap.Callstack(id1)
	if !ok || len(frames) != 2 || frames[0] != 0x1000 || frames[1] != 0x2000 {
		t.Fatalf("Callstack(%d) = %v, %v", id1, frames, ok)
	}
}

func TestExitMarksEndTSWithoutDroppingRecord(t *testing.T) {
	a := New()
	a.EnsureProcess(5, time.Unix(0, 0))
	a.ExitProcess(5, time.Unix(10, 0))

	snap := a.Snapshot()
	procs := snap.Processes()
	if len(procs) != 1 {
		t.Fatalf("process must survive exit so past samples still resolve, got %d processes", len(procs))
	}
	if procs[0].EndTS == nil || !procs[0].EndTS.Equal(time.Unix(10, 0)) {
		t.Fatalf("got EndTS %v, want 10s", procs[0].EndTS)
	}
}
