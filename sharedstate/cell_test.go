// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sharedstate

import "testing"

func TestOwningReadWrite(t *testing.T) {
	c := NewOwning(0)
	c.Write(func(v *int) { *v = 42 })
	got := -1
	c.Read(func(v *int) { got = *v })
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestViewIsReadOnlyAndShared(t *testing.T) {
	c := NewOwning("a")
	ro := c.View()
	c.Write(func(v *string) { *v = "b" })
	got := ""
	ro.Read(func(v *string) { got = *v })
	if got != "b" {
		t.Fatalf("got %q, want %q (view should see the owner's writes)", got, "b")
	}
}

func TestReentrantWritePanics(t *testing.T) {
	c := NewOwning(0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on reentrant write during an active read borrow")
		}
	}()
	c.Read(func(v *int) {
		c.Write(func(v2 *int) { *v2 = 1 })
	})
}

func TestCloneSharesState(t *testing.T) {
	c := NewOwning(1)
	clone := *c
	clone.Write(func(v *int) { *v = 2 })
	got := 0
	c.Read(func(v *int) { got = *v })
	if got != 2 {
		t.Fatalf("got %d, want 2 (clones must share state)", got)
	}
}
