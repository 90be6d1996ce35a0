// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procmap

import "testing"

func TestProcessFindBinarySearch(t *testing.T) {
	p := NewProcess(100, "test")
	p.Insert(&Module{Key: ModuleKey{Inode: 1}, Start: 0x1000, End: 0x2000, Path: "/lib/a.so"})
	p.Insert(&Module{Key: ModuleKey{Inode: 2}, Start: 0x3000, End: 0x4000, Path: "/lib/b.so"})
	p.Insert(&Module{Key: ModuleKey{Inode: 3}, Start: 0x5000, End: 0x6000, Path: "/lib/c.so"})

	cases := []struct {
		ip      uint64
		wantOK  bool
		wantLib string
	}{
		{0x1500, true, "/lib/a.so"},
		{0x3500, true, "/lib/b.so"},
		{0x5fff, true, "/lib/c.so"},
		{0x2500, false, ""},
		{0x999, false, ""},
		{0x6000, false, ""},
	}
	for _, c := range cases {
		got, ok := p.Find(c.ip)
		if ok != c.wantOK {
			t.Errorf("Find(%#x): ok = %v, want %v", c.ip, ok, c.wantOK)
			continue
		}
		if ok && got.Path != c.wantLib {
			t.Errorf("Find(%#x): got %q, want %q", c.ip, got.Path, c.wantLib)
		}
	}
}

func TestProcessInsertEvictsOverlap(t *testing.T) {
	p := NewProcess(100, "test")
	p.Insert(&Module{Key: ModuleKey{Inode: 1}, Start: 0x1000, End: 0x4000, Path: "old"})
	// New mapping overlaps the middle of the old one.
	p.Insert(&Module{Key: ModuleKey{Inode: 2}, Start: 0x2000, End: 0x3000, Path: "new"})

	assertNoOverlap(t, p)

	if got, ok := p.Find(0x1500); !ok || got.Path != "old" {
		t.Errorf("prefix of old mapping should survive, got %v %v", got, ok)
	}
	if got, ok := p.Find(0x2500); !ok || got.Path != "new" {
		t.Errorf("new mapping should win in its range, got %v %v", got, ok)
	}
	if got, ok := p.Find(0x3500); !ok || got.Path != "old" {
		t.Errorf("suffix of old mapping should survive, got %v %v", got, ok)
	}
}

func TestProcessUnmap(t *testing.T) {
	p := NewProcess(100, "test")
	p.Insert(&Module{Start: 0x1000, End: 0x2000, Path: "a"})
	p.Unmap(0x1000, 0x1000)
	if _, ok := p.Find(0x1500); ok {
		t.Error("module should be gone after Unmap covers its whole range")
	}
}

func TestProcessForkIndependent(t *testing.T) {
	parent := NewProcess(1, "parent")
	parent.Insert(&Module{Start: 0x1000, End: 0x2000, Path: "a"})
	child := parent.Fork(2)

	child.Insert(&Module{Start: 0x3000, End: 0x4000, Path: "b"})
	if _, ok := parent.Find(0x3500); ok {
		t.Error("parent must not see mappings the child creates after fork")
	}
	if _, ok := child.Find(0x1500); !ok {
		t.Error("child should inherit the parent's mappings as of fork time")
	}
}

// assertNoOverlap checks spec.md §4.3 Invariant 4: module ranges
// within a process never overlap.
func assertNoOverlap(t *testing.T, p *Process) {
	t.Helper()
	mods := p.Modules()
	for i := range mods {
		for j := range mods {
			if i == j {
				continue
			}
			a, b := mods[i], mods[j]
			if a.Start < b.End && b.Start < a.End {
				t.Fatalf("modules overlap: [%#x,%#x) and [%#x,%#x)", a.Start, a.End, b.Start, b.End)
			}
		}
	}
}
