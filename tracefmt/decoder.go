// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import "encoding/binary"

// EventData is a read-only view of one record's bytes, valid only
// for the duration of a single dispatch.
type EventData struct {
	// FullData is the ring-buffer record including surrounding
	// metadata (the perf_event_header and any sample_id trailer).
	FullData []byte
	// EventData is the payload region addressed by field offsets.
	EventData []byte
	// Format describes EventData's schema.
	Format *EventFormat
}

func (d EventData) offset(field EventField) int {
	if field.Location == RelativeOffset {
		return int(field.Dynamic.Get())
	}
	return field.ByteOffset
}

func (d EventData) bytes(ref FieldRef) ([]byte, *SchemaError) {
	if int(ref) < 0 || int(ref) >= len(d.Format.Fields) {
		return nil, &SchemaError{Format: d.Format.Name, Field: "?", Reason: "unknown field ref"}
	}
	field := d.Format.Field(ref)
	size := field.ByteSize
	off := d.offset(field)
	if field.Location == VariableLength {
		n, err := GetU32(d, field.LenField)
		if err != nil {
			return nil, err
		}
		size = int(n)
	}
	if off < 0 || size < 0 || off+size > len(d.EventData) {
		return nil, &SchemaError{
			Format: d.Format.Name,
			Field:  field.Name,
			Reason: "field extends past end of event data",
		}
	}
	return d.EventData[off : off+size], nil
}

// GetU8 reads an unsigned 8-bit field.
func GetU8(d EventData, ref FieldRef) (uint8, *SchemaError) {
	b, err := d.bytes(ref)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// GetU16 reads a little-endian unsigned 16-bit field.
func GetU16(d EventData, ref FieldRef) (uint16, *SchemaError) {
	b, err := d.bytes(ref)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// GetU32 reads a little-endian unsigned 32-bit field.
func GetU32(d EventData, ref FieldRef) (uint32, *SchemaError) {
	b, err := d.bytes(ref)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// GetU64 reads a little-endian unsigned 64-bit field.
func GetU64(d EventData, ref FieldRef) (uint64, *SchemaError) {
	b, err := d.bytes(ref)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// GetI32 reads a little-endian signed 32-bit field.
func GetI32(d EventData, ref FieldRef) (int32, *SchemaError) {
	v, err := GetU32(d, ref)
	return int32(v), err
}

// GetI64 reads a little-endian signed 64-bit field.
func GetI64(d EventData, ref FieldRef) (int64, *SchemaError) {
	v, err := GetU64(d, ref)
	return int64(v), err
}

// GetBytes reads a fixed-size or variable-length byte field.
func GetBytes(d EventData, ref FieldRef) ([]byte, *SchemaError) {
	return d.bytes(ref)
}

// GetString reads a variable-length field as a string.
func GetString(d EventData, ref FieldRef) (string, *SchemaError) {
	b, err := d.bytes(ref)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// A Cursor is a sequential, bounds-checked decoder over a single
// record's bytes: each read both returns a value and advances past
// it, mirroring the kernel's own fixed field order (which is exactly
// how perf and ETW records are actually laid out — there is no way
// to decode field N without having consumed fields 0..N-1's bytes,
// since their presence and size vary per record).
//
// Unlike an EventFormat/FieldRef pair, a Cursor does not support
// random access; it reads a record body front to back, as
// perfring.DecodeSample does for the sample records a dispatch
// handler receives.
type Cursor struct {
	buf   []byte
	order binary.ByteOrder
	err   *DecodeError
}

// NewCursor creates a Cursor over buf using little-endian order,
// the only order the Linux perf ABI and this package's decoders use.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf, order: binary.LittleEndian}
}

// DecodeError reports a malformed record: a short read past the end
// of the buffer. The caller skips the record; no count of such
// records is kept. It is not treated as a SchemaError since the shape of
// the data itself is suspect, not just one field's offset.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "tracefmt: decode: " + e.Reason }

// Err returns the first error encountered by any Cursor method, or
// nil. Once set, subsequent reads return zero values without
// panicking.
func (c *Cursor) Err() *DecodeError { return c.err }

func (c *Cursor) fail(reason string) {
	if c.err == nil {
		c.err = &DecodeError{Reason: reason}
	}
}

func (c *Cursor) take(n int) []byte {
	if c.err != nil || n < 0 || n > len(c.buf) {
		c.fail("short record")
		// Fixed-width reads (at most 8 bytes) still get n zero bytes;
		// a negative or larger length gets an empty slice.
		if n < 0 || n > 8 {
			n = 0
		}
		return make([]byte, n)
	}
	b := c.buf[:n]
	c.buf = c.buf[n:]
	return b
}

// Remaining returns the number of unconsumed bytes.
func (c *Cursor) Remaining() int { return len(c.buf) }

// Skip discards n bytes.
func (c *Cursor) Skip(n int) { c.take(n) }

// Bytes reads n raw bytes.
func (c *Cursor) Bytes(n int) []byte {
	b := c.take(n)
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() uint16 { return c.order.Uint16(c.take(2)) }

// U32 reads a little-endian uint32.
func (c *Cursor) U32() uint32 { return c.order.Uint32(c.take(4)) }

// U64 reads a little-endian uint64.
func (c *Cursor) U64() uint64 { return c.order.Uint64(c.take(8)) }

// I32 reads a little-endian int32.
func (c *Cursor) I32() int32 { return int32(c.U32()) }

// I64 reads a little-endian int64.
func (c *Cursor) I64() int64 { return int64(c.U64()) }

// U64s reads n little-endian uint64s.
func (c *Cursor) U64s(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = c.U64()
	}
	return out
}

// U32If reads a uint32 if cond is true, else returns 0 without
// consuming any bytes. This mirrors the perf wire format, where
// whole fields are present or absent based on the sample-type mask.
func (c *Cursor) U32If(cond bool) uint32 {
	if !cond {
		return 0
	}
	return c.U32()
}

// U64If reads a uint64 if cond is true, else returns 0.
func (c *Cursor) U64If(cond bool) uint64 {
	if !cond {
		return 0
	}
	return c.U64()
}

// CString reads a NUL-terminated string, consuming through (and
// including) the first NUL byte found. If no NUL is found, it
// consumes the rest of the buffer and fails the cursor.
func (c *Cursor) CString() string {
	if c.err != nil {
		return ""
	}
	for i, b := range c.buf {
		if b == 0 {
			s := string(c.buf[:i])
			c.buf = c.buf[i+1:]
			return s
		}
	}
	c.fail("unterminated string")
	return ""
}

// LenString reads a uint32 length prefix followed by that many
// bytes of a (possibly NUL-padded) string.
func (c *Cursor) LenString() string {
	n := int(c.U32())
	b := c.take(n)
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}
