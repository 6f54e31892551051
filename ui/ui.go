// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package ui is the user-interface actuator handle. Methods are
// fire-and-forget: a slow or absent UI engine never blocks a plan.
package ui

import (
	"github.com/lumen-devices/lumencore/lib/broadcast"
)

// EventKind enumerates the UI states a plan can request.
type EventKind string

const (
	EventIdle            EventKind = "idle"
	EventQRScanOperator  EventKind = "qr_scan_operator"
	EventQRScanUser      EventKind = "qr_scan_user"
	EventQRScanAccepted  EventKind = "qr_scan_accepted"
	EventCapturing       EventKind = "capturing"
	EventProcessing      EventKind = "processing"
	EventSignupSuccess   EventKind = "signup_success"
	EventSignupFailure   EventKind = "signup_failure"
	EventNetworkRequired EventKind = "network_required"
	EventError           EventKind = "error"
)

// Event is one UI state request.
type Event struct {
	Kind EventKind `cbor:"kind"`

	// Detail optionally refines the state, like the error kind behind
	// EventError.
	Detail string `cbor:"detail,omitempty"`
}

// Handle is the cloneable actuator handle given to plans and the
// observer. The zero value is not usable; construct with New.
type Handle struct {
	events *broadcast.Sender[Event]
}

// New creates a UI handle whose event history is observable by up to
// capacity recent events.
func New(capacity int) Handle {
	return Handle{events: broadcast.New[Event](capacity)}
}

// Show requests a UI state. Never blocks.
func (h Handle) Show(kind EventKind) {
	h.events.Send(Event{Kind: kind})
}

// ShowError requests the error state with a detail tag.
func (h Handle) ShowError(detail string) {
	h.events.Send(Event{Kind: EventError, Detail: detail})
}

// Subscribe returns a receiver over future UI events. Used by the
// observer and by the livestream downstream.
func (h Handle) Subscribe() *broadcast.Receiver[Event] {
	return h.events.Subscribe()
}
