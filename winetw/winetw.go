// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package winetw declares the Windows ETW ingress surface that
// SPEC_FULL.md §6 names. ETW session bring-up is explicitly out of
// scope (spec.md §1: "out of scope ... with only their interfaces
// specified in §6"), so this package has no Windows-specific
// implementation: every platform gets the same interface and the same
// "not implemented" stub, matching perfring's role for Linux but with
// none of its syscall body.
package winetw

import (
	"context"
	"errors"

	"github.com/aclements/go-traceprobe/tracefmt"
)

// ProviderGUID identifies an ETW provider, e.g. "{...}" formatted GUID
// text.
type ProviderGUID string

// Level is an ETW trace level (TRACE_LEVEL_* in the Windows SDK).
type Level uint8

// Keywords is an ETW keyword bitmask selecting which events a
// provider emits.
type Keywords uint64

// Record is a decoded ETW event, reusing the same event-data shape
// the Linux ingress path hands to dispatch.Handler.
type Record = tracefmt.EventData

// Session is the Windows analog of perfring.Session: start a session
// against a provider and read decoded records from a channel until
// Stop or ctx cancellation.
type Session interface {
	Start(ctx context.Context, provider ProviderGUID, level Level, keywords Keywords) (<-chan Record, error)
	Stop() error
}

// ErrNotImplemented is returned by NewSession on every platform: ETW
// session bring-up is out of scope per spec.md §1.
var ErrNotImplemented = errors.New("winetw: not implemented on this platform")

// NewSession always returns ErrNotImplemented. It exists so callers
// (cmd/traceprobe) can depend on the winetw.Session interface without
// a build-tag'd Windows-only implementation file.
func NewSession() (Session, error) {
	return nil, ErrNotImplemented
}
