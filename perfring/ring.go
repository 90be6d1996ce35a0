// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfring

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// recordHeader mirrors struct perf_event_header: an 8-byte framing
// prefix on every record in the ring.
type recordHeader struct {
	Type uint32
	Misc uint16
	Size uint16
}

const recordHeaderSize = 8

// ring is one CPU's mmap'd perf ring buffer, consumer side: the
// kernel advances metaPage.Data_head as a producer, this reader
// advances Data_tail to tell the kernel how much it has consumed.
//
// The wraparound-safe copy in readAt is the consumer-side mirror of
// yonch-memory-collector's PerfRing.PeekCopy (producer side, copying
// into the ring); here the same split-at-buffer-end shape copies out
// of it.
type ring struct {
	fd   int
	cpu  int
	mmap []byte // the full mapping: one metadata page + data pages
	data []byte // data[0:] is the ring's data region, meta-page excluded
	mask uint64
}

// openRing opens and maps one CPU's perf ring.
func openRing(attr *unix.PerfEventAttr, cpu int, ringPages uint) (*ring, error) {
	fd, err := unix.PerfEventOpen(attr, -1, cpu, -1, 0)
	// Lower precise_ip one level at a time while the kernel rejects it.
	for err == unix.EOPNOTSUPP || err == unix.EINVAL {
		level := (attr.Bits >> attrBitPreciseIPLo) & 0x3
		if level == 0 {
			break
		}
		attr.Bits = attr.Bits&^(0x3<<attrBitPreciseIPLo) | (level-1)<<attrBitPreciseIPLo
		fd, err = unix.PerfEventOpen(attr, -1, cpu, -1, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("perfring: PerfEventOpen(cpu=%d): %w", cpu, err)
	}

	pageSize := unix.Getpagesize()
	totalBytes := RingBytes(ringPages, pageSize)
	mmap, err := unix.Mmap(fd, 0, totalBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("perfring: mmap(cpu=%d): %w", cpu, err)
	}

	dataBytes := uint64(totalBytes - pageSize)
	return &ring{
		fd:   fd,
		cpu:  cpu,
		mmap: mmap,
		data: mmap[pageSize:],
		mask: dataBytes - 1,
	}, nil
}

func (r *ring) meta() *unix.PerfEventMmapPage {
	return (*unix.PerfEventMmapPage)(unsafe.Pointer(&r.mmap[0]))
}

// dataHead returns the producer's current write position, with the
// acquire-ordering the kernel's own documentation requires before
// reading any ring contents (see include/uapi/linux/perf_event.h's
// "before an application can read ... data_head").
func (r *ring) dataHead() uint64 {
	return atomic.LoadUint64(&r.meta().Data_head)
}

// commit advances Data_tail to tail, releasing the consumed bytes
// back to the kernel.
func (r *ring) commit(tail uint64) {
	atomic.StoreUint64(&r.meta().Data_tail, tail)
}

func (r *ring) dataTail() uint64 {
	return atomic.LoadUint64(&r.meta().Data_tail)
}

// readAt copies len(buf) bytes starting logicalOff bytes into the
// ring's data region (logicalOff is an unwrapped, ever-increasing
// byte offset; readAt wraps it through mask), splitting the copy at
// the buffer's physical end if the read straddles it.
func (r *ring) readAt(logicalOff uint64, buf []byte) {
	start := logicalOff & r.mask
	end := start + uint64(len(buf))
	if end > uint64(len(r.data)) {
		// Wraps: copy the tail of the buffer, then the head.
		firstLen := uint64(len(r.data)) - start
		copy(buf, r.data[start:])
		copy(buf[firstLen:], r.data[:uint64(len(buf))-firstLen])
	} else {
		copy(buf, r.data[start:start+uint64(len(buf))])
	}
}

// peekHeader reads the framing header at the current tail without
// consuming it.
func (r *ring) peekHeader(tail uint64) recordHeader {
	var buf [recordHeaderSize]byte
	r.readAt(tail, buf[:])
	return recordHeader{
		Type: binary.LittleEndian.Uint32(buf[0:4]),
		Misc: binary.LittleEndian.Uint16(buf[4:6]),
		Size: binary.LittleEndian.Uint16(buf[6:8]),
	}
}

func (r *ring) close() error {
	if err := unix.Munmap(r.mmap); err != nil {
		unix.Close(r.fd)
		return err
	}
	return unix.Close(r.fd)
}
