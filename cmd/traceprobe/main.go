// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command traceprobe samples one machine's CPU activity over a
// configured Linux perf event and exports the result to a named
// profiling format. On other platforms it exits with the winetw
// package's "not implemented" error. It is the CLI glue
// SPEC_FULL.md §1 calls out as an external collaborator: argument
// parsing, process discovery at session start, and session lifetime
// are all ambient concerns wired here rather than specified.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aclements/go-traceprobe/aggregator"
	"github.com/aclements/go-traceprobe/aggregator/writer"
	"github.com/aclements/go-traceprobe/internal/config"
	"github.com/aclements/go-traceprobe/procmap"
)

func main() {
	var (
		flagConfig   = flag.String("config", "", "session config `file` (YAML)")
		flagDuration = flag.Duration("duration", 10*time.Second, "how long to sample before stopping")
	)
	flag.Parse()
	if *flagConfig == "" || flag.NArg() > 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatal(err)
	}

	lg := logrus.StandardLogger()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		lg.SetLevel(lvl)
	}

	agg := aggregator.New()
	agg.SetMachine(aggregator.MachineInfo{BootTS: time.Now(), OS: runtime.GOOS})
	machine := procmap.NewMachine()

	sess, err := newSampleSession(cfg, machine, agg, lg)
	if err != nil {
		log.Fatal(err)
	}

	ctx := make(chan os.Signal, 1)
	signal.Notify(ctx, os.Interrupt)
	timer := time.AfterFunc(*flagDuration, func() { sess.stop() })
	defer timer.Stop()
	go func() {
		<-ctx
		lg.Info("traceprobe: interrupted, stopping session")
		sess.stop()
	}()

	if err := sess.run(); err != nil {
		lg.WithError(err).Error("traceprobe: session ended with error")
	}
	if err := sess.close(); err != nil {
		lg.WithError(err).Warn("traceprobe: error releasing session resources")
	}

	if err := writeOutput(cfg, agg.Snapshot()); err != nil {
		log.Fatal(err)
	}
}

func writeOutput(cfg *config.Config, snap *aggregator.Snapshot) error {
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("traceprobe: creating %q: %w", cfg.OutputPath, err)
	}
	defer f.Close()

	switch cfg.OutputFormat {
	case "pprof":
		for _, p := range snap.Processes() {
			if err := writer.WritePprof(f, snap, p.PID); err != nil {
				return err
			}
		}
		return nil
	case "perf_view":
		return writer.WritePerfView(f, snap)
	case "nettrace":
		return writer.WriteNettrace(f, snap)
	default:
		return fmt.Errorf("traceprobe: unknown output_format %q", cfg.OutputFormat)
	}
}

// sampleSession is the platform-specific ingestion loop: run reads
// and dispatches records until the session is stopped, stop requests
// a clean shutdown without losing already-visible records, and close
// releases OS resources. session_linux.go and session_other.go each
// provide newSampleSession and an implementation of this interface.
type sampleSession interface {
	run() error
	stop()
	close() error
}
