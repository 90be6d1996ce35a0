// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides YAML configuration loading and validation
// for the trace probe session: which event to sample, how often, how
// much stack to capture, and where to write the result.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for a session.
type Config struct {
	// Event selects the perf event to sample, e.g. "cycles" or
	// "cpu-clock". Required.
	Event string `yaml:"event"`

	// SampleFreq is the sampling frequency in Hz. Required, must be
	// positive.
	SampleFreq uint64 `yaml:"sample_freq"`

	// StackBytes is the user-stack capture size in bytes; must be
	// in [8192, 32768] per spec §6. Defaults to 16384 when omitted.
	StackBytes uint32 `yaml:"stack_bytes"`

	// RingPages is k in "ring size (1+2^k) pages"; must be in
	// [3, 8]. Defaults to 7 when omitted.
	RingPages uint `yaml:"ring_pages"`

	// OutputFormat selects the export writer: "pprof", "perf_view",
	// or "nettrace". Required.
	OutputFormat string `yaml:"output_format"`

	// OutputPath is the file to write the exported profile to.
	// Required.
	OutputPath string `yaml:"output_path"`

	// LogLevel sets the minimum log severity: "debug", "info",
	// "warn", or "error". Defaults to "info" when omitted.
	LogLevel string `yaml:"log_level"`

	// CPUs restricts sampling to the given CPU numbers. Empty means
	// every online CPU.
	CPUs []int `yaml:"cpus,omitempty"`
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validOutputFormats = map[string]bool{
	"pprof":     true,
	"perf_view": true,
	"nettrace":  true,
}

// Load reads the YAML file at path, unmarshals it into Config,
// applies defaults, and validates all required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.StackBytes == 0 {
		cfg.StackBytes = 16384
	}
	if cfg.RingPages == 0 {
		cfg.RingPages = 7
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Event == "" {
		errs = append(errs, errors.New("event is required"))
	}
	if cfg.SampleFreq == 0 {
		errs = append(errs, errors.New("sample_freq must be positive"))
	}
	if cfg.StackBytes < 8192 || cfg.StackBytes > 32768 {
		errs = append(errs, fmt.Errorf("stack_bytes %d must be in [8192, 32768]", cfg.StackBytes))
	}
	if cfg.RingPages < 3 || cfg.RingPages > 8 {
		errs = append(errs, fmt.Errorf("ring_pages %d must be in [3, 8]", cfg.RingPages))
	}
	if !validOutputFormats[cfg.OutputFormat] {
		errs = append(errs, fmt.Errorf("output_format %q must be one of: pprof, perf_view, nettrace", cfg.OutputFormat))
	}
	if cfg.OutputPath == "" {
		errs = append(errs, errors.New("output_path is required"))
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}

	return errors.Join(errs...)
}
