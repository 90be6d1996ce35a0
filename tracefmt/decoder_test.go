// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import "testing"

func TestGetU32Bounds(t *testing.T) {
	f := NewEventFormat("test")
	ref := f.AddField(EventField{Name: "x", Kind: KindU32, ByteSize: 4, ByteOffset: 4})

	d := EventData{EventData: make([]byte, 8), Format: f}
	d.EventData[4], d.EventData[5], d.EventData[6], d.EventData[7] = 1, 0, 0, 0
	v, err := GetU32(d, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Fatalf("got %d, want 1", v)
	}

	// Invariant: no read beyond event_data.
	short := EventData{EventData: make([]byte, 6), Format: f}
	if _, err := GetU32(short, ref); err == nil {
		t.Fatal("expected SchemaError for out-of-bounds field")
	}
}

func TestAddFieldOverlapPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on overlapping fixed fields")
		}
	}()
	f := NewEventFormat("test")
	f.AddField(EventField{Name: "a", ByteOffset: 0, ByteSize: 8})
	f.AddField(EventField{Name: "b", ByteOffset: 4, ByteSize: 8})
}

func TestDynamicFieldRef(t *testing.T) {
	ref := NewDataFieldRef(0)
	f := NewEventFormat("test")
	fr := f.AddField(EventField{Name: "pid", Kind: KindU32, ByteSize: 4, Location: RelativeOffset, Dynamic: ref})

	data := make([]byte, 16)
	data[8], data[9], data[10], data[11] = 42, 0, 0, 0
	ref.Set(8)

	d := EventData{EventData: data, Format: f}
	v, err := GetU32(d, fr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
}

func TestCursorFraming(t *testing.T) {
	buf := []byte{1, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0}
	c := NewCursor(buf)
	a := c.U32()
	b := c.U64()
	if c.Err() != nil {
		t.Fatalf("unexpected error: %v", c.Err())
	}
	if a != 1 || b != 2 {
		t.Fatalf("got a=%d b=%d, want a=1 b=2", a, b)
	}

	c2 := NewCursor(buf[:4])
	c2.U64()
	if c2.Err() == nil {
		t.Fatal("expected DecodeError for short read")
	}
}
