// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"errors"
	"testing"

	"github.com/aclements/go-traceprobe/tracefmt"
)

func TestDispatchOrderAndErrorAccumulation(t *testing.T) {
	r := NewRegistry(nil)
	format := tracefmt.NewEventFormat("test")
	e := r.Register(1, "test", format)

	var order []string
	e.AddHandler(func(tracefmt.EventData) error {
		order = append(order, "A")
		return errors.New("boom")
	})
	e.AddHandler(func(tracefmt.EventData) error {
		order = append(order, "B")
		return nil
	})

	errs := r.Dispatch(1, nil, tracefmt.EventData{Format: format})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Fatalf("handlers ran in wrong order or were skipped: %v", order)
	}

	// Subsequent records still reach both handlers.
	order = nil
	r.Dispatch(1, nil, tracefmt.EventData{Format: format})
	if len(order) != 2 {
		t.Fatalf("second dispatch: got %v, want both handlers invoked", order)
	}
}

func TestDispatchUnknownEventID(t *testing.T) {
	r := NewRegistry(nil)
	errs := r.Dispatch(999, nil, tracefmt.EventData{})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1 SchemaError", len(errs))
	}
	var se *tracefmt.SchemaError
	if !errors.As(errs[0], &se) {
		t.Fatalf("got %T, want *tracefmt.SchemaError", errs[0])
	}
}

func TestDynamicOffsetsAppliedBeforeHandlers(t *testing.T) {
	r := NewRegistry(nil)
	format := tracefmt.NewEventFormat("test")
	ref := tracefmt.NewDataFieldRef(0)
	fr := format.AddField(tracefmt.EventField{Name: "pid", Kind: tracefmt.KindU32, ByteSize: 4, Location: tracefmt.RelativeOffset, Dynamic: ref})
	e := r.Register(1, "test", format)

	data := make([]byte, 16)
	data[8] = 7
	var seenA, seenB uint32
	e.AddHandler(func(d tracefmt.EventData) error {
		v, _ := tracefmt.GetU32(d, fr)
		seenA = v
		return nil
	})
	e.AddHandler(func(d tracefmt.EventData) error {
		v, _ := tracefmt.GetU32(d, fr)
		seenB = v
		return nil
	})

	r.Dispatch(1, map[tracefmt.FieldRef]uint32{fr: 8}, tracefmt.EventData{EventData: data, Format: format})
	if seenA != 7 || seenB != 7 {
		t.Fatalf("got seenA=%d seenB=%d, want both 7 (update must land before either handler runs)", seenA, seenB)
	}
}
