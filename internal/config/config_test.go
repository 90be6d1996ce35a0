// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
event: cycles
sample_freq: 997
output_format: pprof
output_path: /tmp/out.pprof
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("got LogLevel %q, want info", cfg.LogLevel)
	}
	if cfg.StackBytes != 16384 {
		t.Errorf("got StackBytes %d, want 16384", cfg.StackBytes)
	}
	if cfg.RingPages != 7 {
		t.Errorf("got RingPages %d, want 7", cfg.RingPages)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `log_level: debug`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a config missing required fields")
	}
}

func TestLoadRejectsOutOfRangeStackBytes(t *testing.T) {
	path := writeConfig(t, `
event: cycles
sample_freq: 997
output_format: pprof
output_path: /tmp/out.pprof
stack_bytes: 100
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for stack_bytes outside [8192, 32768]")
	}
}

func TestLoadRejectsUnknownOutputFormat(t *testing.T) {
	path := writeConfig(t, `
event: cycles
sample_freq: 997
output_format: xml
output_path: /tmp/out.pprof
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized output_format")
	}
}

func TestLoadAcceptsExplicitCPUList(t *testing.T) {
	path := writeConfig(t, `
event: cycles
sample_freq: 997
output_format: perf_view
output_path: /tmp/out
cpus: [0, 1, 2, 3]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CPUs) != 4 {
		t.Errorf("got CPUs %v, want 4 entries", cfg.CPUs)
	}
}
