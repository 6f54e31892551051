// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// NetProbe reads interface byte counters from /proc/net/dev and
// reports per-interface deltas since the previous read. The first read
// reports zeros, which downstream consumers treat as warmup.
type NetProbe struct {
	path string
	last map[string][2]uint64
}

// NewNetProbe creates a probe over /proc/net/dev.
func NewNetProbe() *NetProbe {
	return &NetProbe{path: "/proc/net/dev", last: make(map[string][2]uint64)}
}

// Read returns rx/tx byte deltas keyed "<iface>_rx" and "<iface>_tx".
// The loopback interface is skipped.
func (p *NetProbe) Read() (map[string]float64, error) {
	file, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", p.path, err)
	}
	defer file.Close()

	values := make(map[string]float64)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "lo" {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 9 {
			continue
		}
		rx, err1 := strconv.ParseUint(fields[0], 10, 64)
		tx, err2 := strconv.ParseUint(fields[8], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		prev := p.last[name]
		p.last[name] = [2]uint64{rx, tx}
		values[name+"_rx"] = float64(rx - min(prev[0], rx))
		values[name+"_tx"] = float64(tx - min(prev[1], tx))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.path, err)
	}
	return values, nil
}

// CPUProbe reads load averages from /proc/loadavg.
type CPUProbe struct {
	path string
}

// NewCPUProbe creates a probe over /proc/loadavg.
func NewCPUProbe() *CPUProbe {
	return &CPUProbe{path: "/proc/loadavg"}
}

// Read returns load1, load5, and load15.
func (p *CPUProbe) Read() (map[string]float64, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.path, err)
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return nil, fmt.Errorf("malformed loadavg %q", string(data))
	}
	values := make(map[string]float64, 3)
	for i, key := range []string{"load1", "load5", "load15"} {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing loadavg field %d: %w", i, err)
		}
		values[key] = v
	}
	return values, nil
}
