// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procmap

import "testing"

func TestMachineEnsureIsIdempotent(t *testing.T) {
	m := NewMachine()
	a := m.Ensure(42)
	b := m.Ensure(42)
	if a != b {
		t.Fatal("Ensure must return the same Process for a pid seen twice")
	}
}

func TestMachineForkAndExit(t *testing.T) {
	m := NewMachine()
	parent := m.Ensure(1)
	parent.Insert(&Module{Start: 0x1000, End: 0x2000, Path: "a"})

	m.Fork(1, 2)
	child := m.Lookup(2)
	if child == nil {
		t.Fatal("fork should create the child process")
	}
	if _, ok := child.Find(0x1500); !ok {
		t.Error("child should inherit parent's mapping")
	}

	m.Exit(2)
	if m.Lookup(2) != nil {
		t.Error("exit should remove the process")
	}
}

func TestMachineModuleFallsBackToKernel(t *testing.T) {
	m := NewMachine()
	m.kernel.Insert(&Module{Start: 0xffff000000000000, End: 0xffffffffffffffff, Path: "[kernel]"})

	user := m.Ensure(7)
	user.Insert(&Module{Start: 0x1000, End: 0x2000, Path: "a.out"})

	if mod, ok := m.Module(7, 0x1500); !ok || mod.Path != "a.out" {
		t.Errorf("expected user mapping, got %v %v", mod, ok)
	}
	if mod, ok := m.Module(7, 0xffff000000001000); !ok || mod.Path != "[kernel]" {
		t.Errorf("expected kernel fallback, got %v %v", mod, ok)
	}
}
