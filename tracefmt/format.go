// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import (
	"fmt"

	"github.com/aclements/go-traceprobe/sharedstate"
)

// FieldKind is the primitive type of an EventField.
type FieldKind int

const (
	KindU8 FieldKind = iota
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindBytes
	KindString
)

// LocationKind describes how a field's position in a record is
// determined.
type LocationKind int

const (
	// FixedOffset fields sit at a constant byte offset for every
	// record of this format.
	FixedOffset LocationKind = iota
	// RelativeOffset fields sit at an offset that is recomputed by
	// the producer of the format (e.g. the ring-buffer session,
	// whose sample layout shifts with the configured sample-type
	// bitmask) and communicated through a DataFieldRef.
	RelativeOffset
	// VariableLength fields are preceded by a length field (named
	// by LenField) giving their byte size.
	VariableLength
)

// A FieldRef is an opaque token indexing into an EventFormat's field
// list. Handlers obtain a FieldRef once, at registration time, and
// reuse it on every dispatch: looking a field up by FieldRef is
// array indexing, never name scanning.
type FieldRef int

// DataFieldRef is a FieldRef whose backing byte offset can be
// mutated by the pipeline between records — typically by the
// ring-buffer session, when the wire layout of supporting fields
// (pid/tid/cpu/time) shifts because the configured sample-type mask
// differs from one event to the next. It wraps a shared,
// single-threaded cell: handlers that captured the ref re-read the
// current value on every dispatch instead of caching it.
type DataFieldRef struct {
	cell *sharedstate.Owning[uint32]
}

// NewDataFieldRef creates a DataFieldRef with an initial byte offset.
func NewDataFieldRef(initial uint32) DataFieldRef {
	return DataFieldRef{cell: sharedstate.NewOwning(initial)}
}

// Get returns the field's current byte offset.
func (d DataFieldRef) Get() uint32 {
	var v uint32
	d.cell.Read(func(x *uint32) { v = *x })
	return v
}

// Set updates the field's byte offset. Per the resolved Open
// Question in SPEC_FULL.md, callers must perform this update before
// any handler runs for the record the new offset describes.
func (d DataFieldRef) Set(v uint32) {
	d.cell.Write(func(x *uint32) { *x = v })
}

// EventField describes one named, typed field of an EventFormat.
type EventField struct {
	Name   string
	Kind   FieldKind
	Signed bool

	Location LocationKind

	// ByteOffset is used when Location == FixedOffset.
	ByteOffset int

	// Dynamic is used when Location == RelativeOffset; it
	// overrides ByteOffset.
	Dynamic DataFieldRef

	// ByteSize is the fixed size in bytes of this field's value.
	// Zero for VariableLength fields, whose size is given at
	// decode time by LenField.
	ByteSize int

	// LenField names the field (already decoded) that gives this
	// field's byte length, when Location == VariableLength.
	LenField FieldRef
}

// EventFormat is a named schema: an ordered list of EventFields.
// Fields never overlap for fixed layouts, and fixed offsets are
// non-decreasing — AddField enforces both when it can (i.e. for
// every field whose Location is FixedOffset).
type EventFormat struct {
	Name   string
	Fields []EventField
}

// NewEventFormat creates an empty format.
func NewEventFormat(name string) *EventFormat {
	return &EventFormat{Name: name}
}

// AddField appends a field to the format and returns its FieldRef.
// It panics if a FixedOffset field would overlap or precede the
// previous FixedOffset field — this is a schema-construction-time
// programmer error, not a per-record decode error, so it is not
// reported as a SchemaError.
func (f *EventFormat) AddField(field EventField) FieldRef {
	if field.Location == FixedOffset {
		for i := len(f.Fields) - 1; i >= 0; i-- {
			prev := f.Fields[i]
			if prev.Location != FixedOffset {
				continue
			}
			if field.ByteOffset < prev.ByteOffset+prev.ByteSize {
				panic(fmt.Sprintf("tracefmt: field %q at offset %d overlaps or precedes field %q ending at %d",
					field.Name, field.ByteOffset, prev.Name, prev.ByteOffset+prev.ByteSize))
			}
			break
		}
	}
	f.Fields = append(f.Fields, field)
	return FieldRef(len(f.Fields) - 1)
}

// Field returns the field description for ref.
func (f *EventFormat) Field(ref FieldRef) EventField {
	return f.Fields[ref]
}

// SchemaError reports a decode-time violation of an EventFormat: an
// out-of-bounds field read, an unknown event id, or a malformed
// variable-length descriptor. Dispatch continues after a
// SchemaError; it is accumulated into the per-dispatch error list
// (see package dispatch).
type SchemaError struct {
	Format string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("tracefmt: %s.%s: %s", e.Format, e.Field, e.Reason)
}
