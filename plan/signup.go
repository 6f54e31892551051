// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumen-devices/lumencore/broker"
	"github.com/lumen-devices/lumencore/fraud"
	"github.com/lumen-devices/lumencore/led"
	"github.com/lumen-devices/lumencore/lib/orbid"
	"github.com/lumen-devices/lumencore/livestream"
	"github.com/lumen-devices/lumencore/mcu"
	"github.com/lumen-devices/lumencore/sensor"
	"github.com/lumen-devices/lumencore/sound"
	"github.com/lumen-devices/lumencore/ui"
)

// irPulseMicros is the IR illumination pulse width during capture.
const irPulseMicros = 300

// CaptureRecord pairs a notarized frame digest with its minted
// identifier.
type CaptureRecord struct {
	ID     orbid.ID
	Record sensor.Record
}

// SignupResult is the outcome of one completed signup.
type SignupResult struct {
	Operator string
	User     string

	Records       []CaptureRecord
	FramesDropped uint64

	Report   *fraud.Report
	Accepted bool
}

// Signup is the master plan: wait for a start trigger, scan the
// operator and user QR codes, run the capture window, notarize and
// identify the frames, evaluate the fraud pipeline, and surface the
// outcome. A fraud-positive evaluation is a completed signup with a
// negative outcome, not an error.
type Signup struct {
	Pipeline *fraud.Pipeline
	Region   orbid.Region
	Logger   *slog.Logger

	// Oneshot skips the idle wait and starts immediately.
	Oneshot bool

	CaptureDuration time.Duration
	QRTimeout       time.Duration

	// Result is set when Run returns nil.
	Result *SignupResult
}

func (s *Signup) Name() string { return "signup" }

func (s *Signup) Run(ctx context.Context, b *broker.Broker) error {
	if err := s.waitForStart(ctx, b); err != nil {
		return err
	}

	operator := &QRScan{Kind: QROperator, Timeout: s.QRTimeout}
	if err := operator.Run(ctx, b); err != nil {
		return s.fail(ctx, b, err)
	}
	user := &QRScan{Kind: QRUser, Timeout: s.QRTimeout}
	if err := user.Run(ctx, b); err != nil {
		return s.fail(ctx, b, err)
	}

	b.UI.Show(ui.EventCapturing)
	b.Sound.Play(sound.CueCaptureStart)
	b.LED.Set(led.PatternProgress)
	records, dropped, err := s.capture(ctx, b)
	if err != nil {
		return s.fail(ctx, b, err)
	}

	b.UI.Show(ui.EventProcessing)
	b.LED.Set(led.PatternSpinner)
	gen, err := orbid.NewGenerator(s.Region)
	if err != nil {
		return s.fail(ctx, b, err)
	}
	identified := make([]CaptureRecord, len(records))
	for i, r := range records {
		identified[i] = CaptureRecord{ID: gen.NewID(), Record: r}
	}

	report, err := s.Pipeline.Evaluate(s.datum(identified, dropped))
	if err != nil {
		return s.fail(ctx, b, err)
	}

	s.Result = &SignupResult{
		Operator:      operator.Payload,
		User:          user.Payload,
		Records:       identified,
		FramesDropped: dropped,
		Report:        report,
		Accepted:      !report.FraudDetected(),
	}
	if s.Result.Accepted {
		b.UI.Show(ui.EventSignupSuccess)
		b.Sound.Play(sound.CueSignupSuccess)
		b.LED.Set(led.PatternSuccess)
	} else {
		s.Logger.Warn("fraud pipeline triggered", "checks", report.TriggeredChecks())
		b.UI.Show(ui.EventSignupFailure)
		b.Sound.Play(sound.CueSignupFailure)
		b.LED.Set(led.PatternError)
	}
	return b.ResetHardware(ctx, 5*time.Second)
}

// waitForStart parks in the idle state until the device button is
// pressed or the operator app sends a start event.
func (s *Signup) waitForStart(ctx context.Context, b *broker.Broker) error {
	if s.Oneshot {
		return nil
	}
	b.UI.Show(ui.EventIdle)
	b.LED.Set(led.PatternIdle)

	mcuSub := b.SubscribeMCUEvents()
	intakeSub := b.SubscribeIntake()

	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	start := make(chan struct{}, 2)
	go func() {
		for {
			event, err := mcuSub.Recv(recvCtx)
			if err != nil {
				if isLag(err) {
					continue
				}
				return
			}
			if event.Kind == mcu.EventButtonPressed {
				start <- struct{}{}
				return
			}
		}
	}()
	go func() {
		for {
			event, err := intakeSub.Recv(recvCtx)
			if err != nil {
				if isLag(err) {
					continue
				}
				return
			}
			if event.Kind != livestream.EventUIEvents {
				continue
			}
			for _, remote := range event.Events {
				if remote.Target == "start" {
					start <- struct{}{}
					return
				}
			}
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-start:
		return nil
	}
}

// capture runs the camera with IR illumination for the capture window
// and collects the notary's records. Drops are read from the camera
// edge after the window closes.
func (s *Signup) capture(ctx context.Context, b *broker.Broker) ([]sensor.Record, uint64, error) {
	rgb, err := b.RGB()
	if err != nil {
		return nil, 0, err
	}
	notary, err := b.Notary()
	if err != nil {
		return nil, 0, err
	}

	if err := b.SendMCU(ctx, mcu.Command{Kind: mcu.CommandSetIRLed, OnMicros: irPulseMicros}); err != nil {
		return nil, 0, err
	}
	if err := rgb.Send(ctx, sensor.Command{Kind: sensor.CommandStart}); err != nil {
		return nil, 0, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for {
			m, err := rgb.Recv(runCtx)
			if err != nil {
				return
			}
			if err := notary.SendNowChained(m.Value, m.Seq); err != nil {
				return
			}
		}
	}()

	recordCh := make(chan sensor.Record, 64)
	go func() {
		for {
			m, err := notary.Recv(runCtx)
			if err != nil {
				return
			}
			recordCh <- m.Value
		}
	}()

	var records []sensor.Record
	deadline := b.Clock().After(s.CaptureDuration)
collect:
	for {
		select {
		case <-deadline:
			break collect
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case r := <-recordCh:
			records = append(records, r)
		}
	}
	cancel()

	if err := rgb.Send(ctx, sensor.Command{Kind: sensor.CommandStop}); err != nil {
		return nil, 0, err
	}
	if err := b.SendMCU(ctx, mcu.Command{Kind: mcu.CommandSetIRLed, OnMicros: 0}); err != nil {
		return nil, 0, err
	}
	return records, rgb.OutputDrops(), nil
}

// datum builds the fraud-pipeline input from the capture.
func (s *Signup) datum(records []CaptureRecord, dropped uint64) map[string]any {
	return map[string]any{
		"capture": map[string]any{
			"frame_count":      len(records),
			"dropped":          int(dropped),
			"duration_seconds": s.CaptureDuration.Seconds(),
		},
	}
}

// fail surfaces the failure state and resets the actuators before
// propagating the error. Cancellation propagates untouched.
func (s *Signup) fail(ctx context.Context, b *broker.Broker, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.Logger.Error("signup failed", "error", err)
	b.UI.ShowError(err.Error())
	b.Sound.Play(sound.CueError)
	b.LED.Set(led.PatternError)

	resetCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if resetErr := b.ResetHardware(resetCtx, 5*time.Second); resetErr != nil {
		s.Logger.Warn("hardware reset after failure", "error", resetErr)
	}
	return err
}
