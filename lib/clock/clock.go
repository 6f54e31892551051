// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time so plan deadlines and monitor cadences
// are testable. Production code injects Real(); tests inject Fake()
// and advance time explicitly.
package clock

import "time"

// Clock is the time source injected into plans and monitor agents.
// Code that would call time.Now, time.After, time.NewTicker, or
// time.Sleep takes a Clock instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel receiving the current time once d has
	// elapsed. A non-positive d fires immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker delivers ticks on C at the given interval. Panics if
	// d <= 0.
	NewTicker(d time.Duration) *Ticker

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Ticker wraps a periodic timer. The C channel has capacity 1; if the
// consumer falls behind, ticks are dropped rather than queued.
type Ticker struct {
	// C delivers ticks.
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No ticks are delivered after Stop
// returns. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }
