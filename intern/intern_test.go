// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intern

import "testing"

func TestStringsIdentity(t *testing.T) {
	t1 := NewStrings()
	a := t1.Intern([]byte("libc.so"))
	b := t1.Intern([]byte("libc.so"))
	c := t1.Intern([]byte("libm.so"))
	if a != b {
		t.Fatalf("intern(x) != intern(x): %d != %d", a, b)
	}
	if a == c {
		t.Fatalf("intern(x) == intern(y) for distinct x, y")
	}
}

func TestStringsEmptyIsZero(t *testing.T) {
	tbl := NewStrings()
	if id := tbl.Intern(nil); id != 0 {
		t.Fatalf("got id %d for empty string, want 0", id)
	}
	if id := tbl.Intern([]byte{}); id != 0 {
		t.Fatalf("got id %d for empty string, want 0", id)
	}
}

func TestStringsLookupRoundTrip(t *testing.T) {
	tbl := NewStrings()
	id := tbl.Intern([]byte("/usr/bin/foo"))
	got, ok := tbl.Lookup(id)
	if !ok || string(got) != "/usr/bin/foo" {
		t.Fatalf("Lookup(%d) = %q, %v, want %q, true", id, got, ok, "/usr/bin/foo")
	}
}

func TestCallstacksSequenceSensitive(t *testing.T) {
	tbl := NewCallstacks()
	a := tbl.Intern([]uint64{0x1, 0x23})
	b := tbl.Intern([]uint64{0x12, 0x3})
	if a == b {
		t.Fatal("distinct address sequences must not collide")
	}

	c := tbl.Intern([]uint64{0x1, 0x23})
	if a != c {
		t.Fatal("identical sequences must intern to the same id")
	}

	// No de-duplication of recursion: a repeated cycle is a
	// distinct stack from the non-repeated one.
	rec := tbl.Intern([]uint64{0x1, 0x2, 0x1, 0x2})
	once := tbl.Intern([]uint64{0x1, 0x2})
	if rec == once {
		t.Fatal("recursive and non-recursive stacks must not collide")
	}
}

func TestCallstacksLookupRoundTrip(t *testing.T) {
	tbl := NewCallstacks()
	frames := []uint64{0x400100, 0x400200, 0x400300}
	id := tbl.Intern(frames)
	got, ok := tbl.Lookup(id)
	if !ok || len(got) != len(frames) {
		t.Fatalf("Lookup(%d) = %v, %v", id, got, ok)
	}
	for i := range frames {
		if got[i] != frames[i] {
			t.Fatalf("frame %d: got %#x, want %#x", i, got[i], frames[i])
		}
	}
}
