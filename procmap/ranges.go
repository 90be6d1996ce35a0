// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procmap

import "sort"

// ranges stores values associated with disjoint ranges of uint64
// addresses and supports binary-search lookup. It is the generic
// form of the teacher repo's perfsession.Ranges, parameterized over
// the stored value instead of interface{}.
type ranges[T any] struct {
	rs     []rangeEnt[T]
	sorted bool
}

type rangeEnt[T any] struct {
	lo, hi uint64
	val    T
}

// add inserts val for range [lo, hi). Overlapping an existing range
// is the caller's responsibility to avoid: Process.Insert calls
// evictOverlapping first, and Process.Fork copies ranges that are
// already disjoint.
func (r *ranges[T]) add(lo, hi uint64, val T) {
	r.rs = append(r.rs, rangeEnt[T]{lo, hi, val})
	r.sorted = false
}

// get returns the value for the range containing addr, by binary
// search over sorted ranges (spec §4.3: "Lookup is binary search by
// start, then a range check").
func (r *ranges[T]) get(addr uint64) (val T, ok bool) {
	if r == nil {
		return val, false
	}
	if !r.sorted {
		sort.Slice(r.rs, func(i, j int) bool { return r.rs[i].lo < r.rs[j].lo })
		r.sorted = true
	}
	i := sort.Search(len(r.rs), func(i int) bool { return addr < r.rs[i].hi })
	if i < len(r.rs) && r.rs[i].lo <= addr && addr < r.rs[i].hi {
		return r.rs[i].val, true
	}
	return val, false
}

// removeOverlapping deletes (possibly splitting) every range
// overlapping [lo, hi), returning the overlapping values — the new
// mapping is assumed to have evicted them (spec §4.3: "overlapping
// ranges from a new mapping evict older overlaps").
func (r *ranges[T]) removeOverlapping(lo, hi uint64) []T {
	var evicted []T
	kept := make([]rangeEnt[T], 0, len(r.rs))
	for _, e := range r.rs {
		switch {
		case e.hi <= lo || e.lo >= hi:
			// No overlap.
			kept = append(kept, e)
		default:
			evicted = append(evicted, e.val)
			// Partial overlap on the low side: keep the
			// surviving prefix.
			if e.lo < lo {
				kept = append(kept, rangeEnt[T]{e.lo, lo, e.val})
			}
			// Partial overlap on the high side: keep the
			// surviving suffix.
			if e.hi > hi {
				kept = append(kept, rangeEnt[T]{hi, e.hi, e.val})
			}
		}
	}
	r.rs = kept
	r.sorted = false
	return evicted
}

// all returns every range currently stored, in no particular order.
func (r *ranges[T]) all() []rangeEnt[T] {
	return r.rs
}
