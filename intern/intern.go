// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package intern deduplicates the two variable-length keys the
// export aggregator accumulates by the million: strings (module
// paths, process names) and call-stack address sequences. Both map
// their key to a stable uint32 id for the life of the table.
package intern

// Strings interns []byte keys. id 0 is reserved for the empty
// string, matching spec §3's InternedStrings.
type Strings struct {
	ids     map[string]uint32
	strings [][]byte
}

// NewStrings creates an empty string table, with id 0 already bound
// to the empty string.
func NewStrings() *Strings {
	return &Strings{
		ids:     map[string]uint32{"": 0},
		strings: [][]byte{{}},
	}
}

// Intern returns the stable id for b, assigning a new one if b has
// not been seen before. intern(x) == intern(x) and intern(x) ==
// intern(y) iff x and y are byte-equal.
func (t *Strings) Intern(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	if id, ok := t.ids[string(b)]; ok {
		return id
	}
	id := uint32(len(t.strings))
	cp := append([]byte(nil), b...)
	t.strings = append(t.strings, cp)
	t.ids[string(cp)] = id
	return id
}

// Lookup returns the bytes for a previously interned id.
func (t *Strings) Lookup(id uint32) ([]byte, bool) {
	if int(id) >= len(t.strings) {
		return nil, false
	}
	return t.strings[id], true
}

// Len returns the number of distinct strings interned, including the
// reserved empty string at id 0.
func (t *Strings) Len() int { return len(t.strings) }

// Callstacks interns call-stack address sequences (innermost frame
// first). Unlike Strings, hashing is sequence-sensitive and there is
// no canonicalization of recursive cycles: two stacks differing only
// in how many times a cycle repeats are distinct entries.
type Callstacks struct {
	ids    map[string]uint32
	stacks [][]uint64
}

// NewCallstacks creates an empty call-stack table.
func NewCallstacks() *Callstacks {
	return &Callstacks{ids: map[string]uint32{}}
}

// Intern returns the stable id for frames, assigning a new one if
// this exact sequence has not been seen before.
func (t *Callstacks) Intern(frames []uint64) uint32 {
	key := callstackKey(frames)
	if id, ok := t.ids[key]; ok {
		return id
	}
	id := uint32(len(t.stacks))
	cp := append([]uint64(nil), frames...)
	t.stacks = append(t.stacks, cp)
	t.ids[key] = id
	return id
}

// Lookup returns the frames for a previously interned id.
func (t *Callstacks) Lookup(id uint32) ([]uint64, bool) {
	if int(id) >= len(t.stacks) {
		return nil, false
	}
	return t.stacks[id], true
}

// Len returns the number of distinct call stacks interned.
func (t *Callstacks) Len() int { return len(t.stacks) }

// callstackKey builds a string key that is sequence-sensitive: two
// address sequences collide only if they agree on every element in
// order. A fixed-width encoding (rather than a delimiter) avoids any
// ambiguity between e.g. [0x1, 0x23] and [0x12, 0x3].
func callstackKey(frames []uint64) string {
	buf := make([]byte, 0, len(frames)*8)
	for _, f := range frames {
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[i] = byte(f >> (8 * i))
		}
		buf = append(buf, b[:]...)
	}
	return string(buf)
}
