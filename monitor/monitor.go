// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor provides the periodic telemetry task agents: network
// interface counters and CPU load. Samples feed the observer plan and
// the health check.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumen-devices/lumencore/lib/clock"
	"github.com/lumen-devices/lumencore/lib/port"
)

// Sample is one monitor reading.
type Sample struct {
	// Source names the monitored resource ("net" or "cpu").
	Source string `cbor:"source"`

	// Values maps metric names to readings: bytes per second for net,
	// load averages for cpu.
	Values map[string]float64 `cbor:"values"`

	Timestamp time.Time `cbor:"timestamp"`
}

// Probe reads one raw measurement. Implementations wrap /proc files;
// tests substitute fixed readings.
type Probe interface {
	// Read returns the current counters or gauges.
	Read() (map[string]float64, error)
}

// Command is the monitor input; monitors only react to port closure,
// so the type exists to fix the port's input side.
type Command struct{}

// Agent samples a probe at a fixed interval. Counter deltas versus
// gauges are the probe's concern: the agent just forwards what Read
// returns.
type Agent struct {
	name     string
	source   string
	probe    Probe
	interval time.Duration
	clk      clock.Clock
	logger   *slog.Logger
}

// New creates a monitor agent sampling probe every interval.
func New(name, source string, probe Probe, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Agent {
	return &Agent{name: name, source: source, probe: probe, interval: interval, clk: clk, logger: logger}
}

func (a *Agent) Name() string { return a.name }

// RunTask samples until the port closes. Samples are emitted with
// drop-on-full semantics: telemetry must never apply backpressure to
// the system it observes. A failing probe is logged and skipped; the
// resource may be legitimately absent (no network during provisioning).
func (a *Agent) RunTask(ctx context.Context, p *port.Inner[Command, Sample]) error {
	ticker := a.clk.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.Closed():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			values, err := a.probe.Read()
			if err != nil {
				a.logger.Debug("probe read failed", "agent", a.name, "error", err)
				continue
			}
			sample := Sample{Source: a.source, Values: values, Timestamp: now}
			if err := p.SendNow(sample); err != nil {
				return nil
			}
		}
	}
}
