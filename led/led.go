// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package led is the ring-LED actuator handle. Pattern changes are
// fire-and-forget and the last requested pattern is readable, which is
// what reset_hardware verifies.
package led

import (
	"sync"

	"github.com/lumen-devices/lumencore/lib/broadcast"
)

// Pattern enumerates the ring patterns.
type Pattern string

const (
	PatternOff      Pattern = "off"
	PatternBoot     Pattern = "boot"
	PatternIdle     Pattern = "idle"
	PatternSpinner  Pattern = "spinner"
	PatternProgress Pattern = "progress"
	PatternSuccess  Pattern = "success"
	PatternError    Pattern = "error"
)

// Engine is the cloneable actuator handle.
type Engine struct {
	state *state
}

type state struct {
	mu       sync.Mutex
	current  Pattern
	patterns *broadcast.Sender[Pattern]
}

// New creates an engine showing PatternOff.
func New() Engine {
	return Engine{state: &state{
		current:  PatternOff,
		patterns: broadcast.New[Pattern](8),
	}}
}

// Set requests a ring pattern. Never blocks.
func (e Engine) Set(p Pattern) {
	e.state.mu.Lock()
	e.state.current = p
	e.state.mu.Unlock()
	e.state.patterns.Send(p)
}

// Current returns the last requested pattern.
func (e Engine) Current() Pattern {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()
	return e.state.current
}

// Subscribe returns a receiver over future pattern changes.
func (e Engine) Subscribe() *broadcast.Receiver[Pattern] {
	return e.state.patterns.Subscribe()
}
