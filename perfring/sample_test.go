// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfring

import (
	"encoding/binary"
	"testing"

	"golang.org/x/sys/unix"
)

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func TestDecodeSampleRoundTrip(t *testing.T) {
	var body []byte
	body = putU64(body, 0xdeadbeef)      // IP
	body = putU32(body, 42)              // PID
	body = putU32(body, 43)              // TID
	body = putU64(body, 123456789)       // Time
	body = putU32(body, 3)               // CPU
	body = putU32(body, 0)               // reserved
	body = putU64(body, 0)               // regs ABI
	body = putU64(body, 0x10)            // BP
	body = putU64(body, 0x20)            // SP
	body = putU64(body, 0x30)            // IP reg
	stack := []byte{1, 2, 3, 4}
	body = putU64(body, uint64(len(stack)))
	body = append(body, stack...)
	body = putU64(body, uint64(len(stack))) // dyn size

	s, err := DecodeSample(body)
	if err != nil {
		t.Fatalf("DecodeSample: %v", err)
	}
	if s.IP != 0xdeadbeef || s.PID != 42 || s.TID != 43 || s.Time != 123456789 || s.CPU != 3 {
		t.Fatalf("got %+v", s)
	}
	if s.RegsUser != [3]uint64{0x10, 0x20, 0x30} {
		t.Fatalf("got regs %v, want [0x10 0x20 0x30]", s.RegsUser)
	}
	if len(s.StackUser) != 4 || s.StackUserDynSize != 4 {
		t.Fatalf("got stack %v dynsize %d", s.StackUser, s.StackUserDynSize)
	}
}

func TestDecodeSampleShortRecordErrors(t *testing.T) {
	_, err := DecodeSample([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected an error decoding a truncated sample")
	}
}

func TestBuildAttrSetsFixedSampleMask(t *testing.T) {
	cfg := Config{
		Event:         EventSpec{Type: 0, Config: 0},
		SampleFreq:    997,
		StackBytes:    16384,
		WantPreciseIP: 2,
		RingPages:     7,
	}
	attr := BuildAttr(cfg)
	if attr.Sample_type != uint64(sampleTypeMask) {
		t.Errorf("got Sample_type=%#x, want %#x", attr.Sample_type, uint64(sampleTypeMask))
	}
	if attr.Sample != 997 {
		t.Errorf("got Sample=%d, want 997", attr.Sample)
	}
	if attr.Sample_stack_user != 16384 {
		t.Errorf("got Sample_stack_user=%d, want 16384", attr.Sample_stack_user)
	}
	if attr.Bits&unix.PerfBitFreq == 0 {
		t.Error("expected freq bit set")
	}
}

func TestRingBytesIsOnePlusPowerOfTwoPages(t *testing.T) {
	got := RingBytes(3, 4096)
	want := 4096 * (1 + 8)
	if got != want {
		t.Errorf("RingBytes(3, 4096) = %d, want %d", got, want)
	}
}
