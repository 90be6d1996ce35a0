// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/aclements/go-traceprobe/aggregator"
	"github.com/aclements/go-traceprobe/internal/config"
	"github.com/aclements/go-traceprobe/procmap"
	"github.com/aclements/go-traceprobe/winetw"
)

// etwSession adapts winetw.Session to sampleSession. Since
// winetw.NewSession always returns ErrNotImplemented (ETW session
// bring-up is out of scope per spec.md §1), this path only exists so
// the CLI links and fails with a clear error on non-Linux platforms,
// rather than not compiling there at all.
type etwSession struct {
	cancel context.CancelFunc
}

func newSampleSession(cfg *config.Config, machine *procmap.Machine, agg *aggregator.Aggregator, lg logrus.FieldLogger) (sampleSession, error) {
	if _, err := winetw.NewSession(); err != nil {
		return nil, err
	}
	// Unreachable until winetw grows a real implementation.
	_, cancel := context.WithCancel(context.Background())
	return &etwSession{cancel: cancel}, nil
}

func (s *etwSession) run() error   { return nil }
func (s *etwSession) stop()        { s.cancel() }
func (s *etwSession) close() error { return nil }

var _ sampleSession = (*etwSession)(nil)
