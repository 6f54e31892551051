// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"testing"
	"time"

	"github.com/lumen-devices/lumencore/lib/logging"
	"github.com/lumen-devices/lumencore/lib/orbid"
	"github.com/lumen-devices/lumencore/livestream"
	"github.com/lumen-devices/lumencore/mcu"
	"github.com/lumen-devices/lumencore/ui"
)

const framePipeline = `
checks:
  - id: too_few_frames
    operands:
      n: capture.frame_count
    rule: "n < 1"
`

const alwaysFraudPipeline = `
checks:
  - id: tripwire
    operands:
      n: capture.frame_count
    rule: "n >= 0"
`

func testSignup(t *testing.T, definition string) *Signup {
	t.Helper()
	return &Signup{
		Pipeline:        mustPipeline(t, definition),
		Region:          orbid.RegionEurope,
		Logger:          logging.Discard(),
		Oneshot:         true,
		CaptureDuration: 150 * time.Millisecond,
		QRTimeout:       5 * time.Second,
	}
}

func TestSignupHappyPath(t *testing.T) {
	b, f := buildTestBroker(t, nil)
	go runFakeCamera(f.rgb)
	go runFakeMCU(f.mcu)
	go runFakeQR(f.qr, "op:alice", "usr:bob")

	uiSub := b.UI.Subscribe()
	s := testSignup(t, framePipeline)
	if err := s.Run(context.Background(), b); err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := s.Result
	if r == nil {
		t.Fatal("Result not set")
	}
	if !r.Accepted {
		t.Errorf("Accepted = false, triggered %v", r.Report.TriggeredChecks())
	}
	if r.Operator != "alice" || r.User != "bob" {
		t.Errorf("Operator=%q User=%q, want alice/bob", r.Operator, r.User)
	}
	if len(r.Records) == 0 {
		t.Fatal("no capture records")
	}

	// Identifiers share one session and count upward.
	session := r.Records[0].ID.Session
	for i, rec := range r.Records {
		if rec.ID.Session != session {
			t.Fatalf("record %d has a different session", i)
		}
		if rec.ID.Counter != uint32(i) {
			t.Errorf("record %d counter = %d", i, rec.ID.Counter)
		}
		if rec.Record.Digest == [32]byte{} {
			t.Errorf("record %d has a zero digest", i)
		}
	}

	sawSuccess := false
	for {
		event, ok, err := uiSub.TryRecv()
		if err != nil || !ok {
			break
		}
		if event.Kind == ui.EventSignupSuccess {
			sawSuccess = true
		}
	}
	if !sawSuccess {
		t.Error("UI never showed signup_success")
	}
}

func TestSignupFraudDetected(t *testing.T) {
	b, f := buildTestBroker(t, nil)
	go runFakeCamera(f.rgb)
	go runFakeMCU(f.mcu)
	go runFakeQR(f.qr, "op:alice", "usr:bob")

	uiSub := b.UI.Subscribe()
	s := testSignup(t, alwaysFraudPipeline)
	if err := s.Run(context.Background(), b); err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := s.Result
	if r == nil {
		t.Fatal("Result not set")
	}
	if r.Accepted {
		t.Error("Accepted = true, want fraud-positive rejection")
	}
	if got := r.Report.TriggeredChecks(); len(got) != 1 || got[0] != "tripwire" {
		t.Errorf("TriggeredChecks = %v, want [tripwire]", got)
	}

	sawFailure := false
	for {
		event, ok, err := uiSub.TryRecv()
		if err != nil || !ok {
			break
		}
		if event.Kind == ui.EventSignupFailure {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Error("UI never showed signup_failure")
	}
}

func TestSignupStartsOnButton(t *testing.T) {
	b, f := buildTestBroker(t, nil)

	s := testSignup(t, framePipeline)
	s.Oneshot = false
	done := make(chan error, 1)
	go func() { done <- s.waitForStart(context.Background(), b) }()

	// Re-press until observed: the plan's subscription attaches
	// asynchronously and only sees events sent after it.
	deadline := time.After(5 * time.Second)
	for {
		if err := f.mcu.SendNow(mcu.Event{Kind: mcu.EventButtonPressed}); err != nil {
			t.Fatalf("SendNow: %v", err)
		}
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("waitForStart: %v", err)
			}
			return
		case <-deadline:
			t.Fatal("waitForStart did not return after button press")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSignupStartsOnRemoteEvent(t *testing.T) {
	b, f := buildTestBroker(t, nil)

	s := testSignup(t, framePipeline)
	s.Oneshot = false
	done := make(chan error, 1)
	go func() { done <- s.waitForStart(context.Background(), b) }()

	event := livestream.Event{
		Kind:   livestream.EventUIEvents,
		Events: []livestream.UIEvent{{Type: "button", Target: "start"}},
	}
	deadline := time.After(5 * time.Second)
	for {
		if err := f.intake.SendNow(event); err != nil {
			t.Fatalf("SendNow: %v", err)
		}
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("waitForStart: %v", err)
			}
			return
		case <-deadline:
			t.Fatal("waitForStart did not return after remote start")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
