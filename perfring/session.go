// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package perfring

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// Record is one decoded-to-framing-only record read off some CPU's
// ring: the raw perf_event_header fields plus its body, ready for
// dispatch.Registry.Dispatch or perfring's own sample decoder.
type Record struct {
	CPU  int
	Type uint32
	Misc uint16
	Data []byte
}

// LostRecord describes a PERF_RECORD_LOST: the kernel telling the
// consumer it fell behind the producer and dropped NumLost records.
// Read never returns a LostRecord and the session keeps no count of
// lost records; a PERF_RECORD_LOST reaches the caller as an ordinary
// Record whose Type is PERF_RECORD_LOST.
type LostRecord struct {
	CPU     int
	NumLost uint64
}

// ErrClosed is returned by Read after Stop (or Close) has been
// called and every ring has been drained.
var ErrClosed = errors.New("perfring: session closed")

// Session fans in per-CPU perf rings through one shared epoll
// instance, following the cilium-ebpf perf reader's Reader.Read
// shape: each ready fd is tagged with its CPU via the epoll event's
// Pad word, and one wakeup drains that CPU's ring completely before
// returning to epoll_wait.
type Session struct {
	rings     []*ring
	epollFd   int
	closeFd   int
	events    []unix.EpollEvent
	pending   []*ring // rings still being drained from the last epoll wakeup
	stopped   bool
	drainOnly bool // true once Stop has been called: no more epoll_wait, just drain
}

// NewSession opens one ring per entry in cpus and registers them all
// into a shared epoll instance.
func NewSession(cfg Config, cpus []int) (*Session, error) {
	attr := BuildAttr(cfg)
	s := &Session{}

	epollFd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("perfring: epoll_create1: %w", err)
	}
	s.epollFd = epollFd

	closeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epollFd)
		return nil, fmt.Errorf("perfring: eventfd: %w", err)
	}
	s.closeFd = closeFd
	if err := s.addToEpoll(closeFd, -1); err != nil {
		s.Close()
		return nil, err
	}

	for _, cpu := range cpus {
		r, err := openRing(attr, cpu, cfg.RingPages)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := s.addToEpoll(r.fd, cpu); err != nil {
			s.Close()
			return nil, err
		}
		s.rings = append(s.rings, r)
	}
	s.events = make([]unix.EpollEvent, len(s.rings)+1)
	return s, nil
}

// addToEpoll registers fd for readability, packing cpu into the
// event's Pad field the way cilium's addToEpoll does, so Read can
// recover which ring woke up without a second lookup.
func (s *Session) addToEpoll(fd, cpu int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd), Pad: int32(cpu)}
	return unix.EpollCtl(s.epollFd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Read blocks until a record is available on any ring and returns it.
// It returns ErrClosed once Stop has drained every ring. Per spec §5's
// cancellation rule, Stop does not abort an in-flight record: the
// consumer never returns mid-record.
func (s *Session) Read() (Record, error) {
	for {
		if rec, ok := s.drainPending(); ok {
			return rec, nil
		}
		if s.drainOnly {
			return Record{}, ErrClosed
		}
		if err := s.wait(); err != nil {
			return Record{}, err
		}
	}
}

// drainPending pulls the next record out of whichever ring the last
// epoll wakeup marked ready, draining that ring fully (per cilium's
// Reader.Read: "drain the last-ready ring, then move to the next")
// before moving on to rings discovered by the next epoll_wait.
func (s *Session) drainPending() (Record, bool) {
	for len(s.pending) > 0 {
		r := s.pending[len(s.pending)-1]
		tail := r.dataTail()
		head := r.dataHead()
		if tail == head {
			s.pending = s.pending[:len(s.pending)-1]
			continue
		}
		hdr := r.peekHeader(tail)
		body := make([]byte, int(hdr.Size)-recordHeaderSize)
		r.readAt(tail+recordHeaderSize, body)
		r.commit(tail + uint64(hdr.Size))
		return Record{CPU: r.cpu, Type: hdr.Type, Misc: hdr.Misc, Data: body}, true
	}
	return Record{}, false
}

// wait blocks on epoll_wait and queues every ring it reports ready
// for draining. Waking on closeFd (cpu tagged -1) switches the
// session into drain-only mode instead of returning an error, so any
// bytes already visible in data_head are still delivered.
func (s *Session) wait() error {
	n, err := unix.EpollWait(s.epollFd, s.events, -1)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("perfring: epoll_wait: %w", err)
	}
	for i := 0; i < n; i++ {
		cpu := int(s.events[i].Pad)
		if cpu == -1 {
			s.drainOnly = true
			for _, r := range s.rings {
				s.pending = append(s.pending, r)
			}
			continue
		}
		for _, r := range s.rings {
			if r.cpu == cpu {
				s.pending = append(s.pending, r)
				break
			}
		}
	}
	return nil
}

// Stop makes Read drain every ring until it finds it empty and then
// report ErrClosed. The drain is not bounded by the data_head seen at
// Stop: records the kernel writes while the drain runs are delivered
// too. Stop does not block; call Read until it returns ErrClosed to
// observe full drain.
func (s *Session) Stop() error {
	if s.stopped {
		return nil
	}
	s.stopped = true
	var one [8]byte
	one[0] = 1
	_, err := unix.Write(s.closeFd, one[:])
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return err
	}
	return nil
}

// StopAfter is a convenience wrapper that calls Stop once d has
// elapsed, for callers expressing cancellation as a wall-clock
// deadline (spec §5: "timeouts are expressed as a wall-clock deadline
// checked between drain iterations").
func (s *Session) StopAfter(d time.Duration) {
	time.AfterFunc(d, func() { s.Stop() })
}

// Close releases every OS resource the session holds. It does not
// drain remaining ring contents; call Stop and read to ErrClosed
// first if that data matters.
func (s *Session) Close() error {
	var firstErr error
	for _, r := range s.rings {
		if err := r.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.closeFd != 0 {
		unix.Close(s.closeFd)
	}
	if s.epollFd != 0 {
		unix.Close(s.epollFd)
	}
	return firstErr
}

var _ io.Closer = (*Session)(nil)
