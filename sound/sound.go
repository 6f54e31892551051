// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package sound is the audio actuator handle. Cue playback is
// fire-and-forget; the handle never blocks the caller on the audio
// device.
package sound

import (
	"sync/atomic"

	"github.com/lumen-devices/lumencore/lib/broadcast"
)

// Cue enumerates the audio cues plans can play.
type Cue string

const (
	CueBoot          Cue = "boot"
	CueQRAccepted    Cue = "qr_accepted"
	CueCaptureStart  Cue = "capture_start"
	CueSignupSuccess Cue = "signup_success"
	CueSignupFailure Cue = "signup_failure"
	CueError         Cue = "error"
)

// Player is the cloneable actuator handle.
type Player struct {
	cues   *broadcast.Sender[Cue]
	volume *atomic.Int32
}

// New creates a player at the given volume (0 to 100).
func New(volume int) Player {
	p := Player{
		cues:   broadcast.New[Cue](8),
		volume: new(atomic.Int32),
	}
	p.volume.Store(int32(volume))
	return p
}

// Play queues a cue. Never blocks.
func (p Player) Play(cue Cue) {
	p.cues.Send(cue)
}

// SetVolume adjusts playback volume, clamped to 0..100.
func (p Player) SetVolume(volume int) {
	p.volume.Store(int32(min(max(volume, 0), 100)))
}

// Volume returns the current playback volume.
func (p Player) Volume() int {
	return int(p.volume.Load())
}

// Subscribe returns a receiver over future cues, consumed by the
// audio engine and by the observer.
func (p Player) Subscribe() *broadcast.Receiver[Cue] {
	return p.cues.Subscribe()
}
