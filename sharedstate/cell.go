// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sharedstate provides single-threaded, interior-mutable
// cells that can be handed out to many observers while exactly one
// mutator holds the canonical value — the "hand out many observers,
// one mutator" pattern described in SPEC_FULL.md's design notes.
//
// Owning[T] and ReadOnly[T] are not safe to share across goroutines:
// the core they support (package dispatch, package perfring) is
// single-threaded per session by design, so no locking is done here.
// What IS enforced, cheaply, is the no-reentrant-write-during-read
// invariant: a cell panics rather than silently corrupt state if a
// Write callback is (re-)entered while a Read borrow from the same
// cell is still on the stack.
package sharedstate

// Owning is a single-threaded interior-mutable cell. Clones (via
// View, or by copying the Owning value itself — it is a thin wrapper
// around a pointer) share the same backing state.
type Owning[T any] struct {
	state *cellState[T]
}

type cellState[T any] struct {
	value    T
	borrowed bool
}

// NewOwning creates a new cell holding v.
func NewOwning[T any](v T) *Owning[T] {
	return &Owning[T]{state: &cellState[T]{value: v}}
}

// Read invokes fn with a pointer to the current value for the
// duration of the call. fn must not mutate through the pointer —
// Write is provided for that — though nothing stops it at the type
// level, matching the teacher repo's general preference for trusting
// callers over adding runtime guards that individual call sites don't
// need (see DESIGN.md).
func (o *Owning[T]) Read(fn func(v *T)) {
	s := o.state
	if s.borrowed {
		panic("sharedstate: reentrant access while a borrow is active")
	}
	s.borrowed = true
	defer func() { s.borrowed = false }()
	fn(&s.value)
}

// Write invokes fn with a mutable pointer to the current value. It
// panics if called while a Read (or another Write) borrow from the
// same cell is already active, per the cell's stated invariant.
func (o *Owning[T]) Write(fn func(v *T)) {
	s := o.state
	if s.borrowed {
		panic("sharedstate: reentrant write while a borrow is active")
	}
	s.borrowed = true
	defer func() { s.borrowed = false }()
	fn(&s.value)
}

// View returns a ReadOnly handle sharing this cell's state. The
// returned handle denies mutation at the API level (there is no
// Write method on ReadOnly).
func (o *Owning[T]) View() ReadOnly[T] {
	return ReadOnly[T]{state: o.state}
}

// ReadOnly is a cloneable, read-only view of an Owning cell.
type ReadOnly[T any] struct {
	state *cellState[T]
}

// Read invokes fn with a pointer to the current value, as
// Owning.Read.
func (r ReadOnly[T]) Read(fn func(v *T)) {
	s := r.state
	if s.borrowed {
		panic("sharedstate: reentrant access while a borrow is active")
	}
	s.borrowed = true
	defer func() { s.borrowed = false }()
	fn(&s.value)
}
