// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/config"
	"github.com/lumen-devices/lumencore/led"
	"github.com/lumen-devices/lumencore/lib/broadcast"
	"github.com/lumen-devices/lumencore/lib/logging"
	"github.com/lumen-devices/lumencore/lib/port"
	"github.com/lumen-devices/lumencore/mcu"
	"github.com/lumen-devices/lumencore/sensor"
)

// fakes bundles the inner ends of the fake ports driving a test
// broker.
type fakes struct {
	rgb *port.Inner[sensor.Command, *sensor.Frame]
	mcu *port.Inner[mcu.Command, mcu.Event]
	qr  *port.Inner[*sensor.Frame, string]
}

func buildTestBroker(t *testing.T) (*Broker, *fakes) {
	t.Helper()
	rgbInner, rgbOuter := port.New[sensor.Command, *sensor.Frame](commandDepth, frameDepth)
	mcuInner, mcuOuter := port.New[mcu.Command, mcu.Event](commandDepth, telemetryDepth)
	qrInner, qrOuter := port.New[*sensor.Frame, string](frameDepth, commandDepth)

	snap := config.NewSnapshot(config.Default())
	b, err := NewBuilder(logging.Discard(), snap).
		WithFakeRGB(rgbOuter).
		WithFakeMCU(mcuOuter).
		WithFakeQR(qrOuter).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return b, &fakes{rgb: rgbInner, mcu: mcuInner, qr: qrInner}
}

// drainMCUCommands consumes commands the broker sends the fake MCU
// (resets issue several) and returns them.
func drainMCUCommands(t *testing.T, f *fakes, want int) []mcu.Command {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var cmds []mcu.Command
	for len(cmds) < want {
		m, err := f.mcu.Recv(ctx)
		if err != nil {
			t.Fatalf("fake mcu Recv: %v", err)
		}
		cmds = append(cmds, m.Value)
	}
	return cmds
}

func TestBuildPerformsInitialReset(t *testing.T) {
	b, f := buildTestBroker(t)
	defer b.Shutdown(context.Background())

	cmds := drainMCUCommands(t, f, 3)
	if cmds[0].Kind != mcu.CommandSetIRLed || cmds[0].OnMicros != 0 {
		t.Errorf("first reset command = %+v, want ir led off", cmds[0])
	}
	if b.LED.Current() != led.PatternOff {
		t.Errorf("LED = %q after build, want off", b.LED.Current())
	}

	// The camera was told to run at the nominal rate.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := f.rgb.Recv(ctx)
	if err != nil {
		t.Fatalf("fake rgb Recv: %v", err)
	}
	if m.Value.Kind != sensor.CommandSetFrameRate || m.Value.FrameRate != config.Default().Capture.FrameRate {
		t.Errorf("camera reset command = %+v, want nominal frame rate", m.Value)
	}
}

func TestResetHardwareIsIdempotent(t *testing.T) {
	b, f := buildTestBroker(t)
	defer b.Shutdown(context.Background())
	drainMCUCommands(t, f, 3)

	b.LED.Set(led.PatternSpinner)
	if err := b.ResetHardware(context.Background(), time.Second); err != nil {
		t.Fatalf("ResetHardware: %v", err)
	}
	first := drainMCUCommands(t, f, 3)
	if b.LED.Current() != led.PatternOff {
		t.Error("LED not off after reset")
	}

	if err := b.ResetHardware(context.Background(), time.Second); err != nil {
		t.Fatalf("ResetHardware again: %v", err)
	}
	second := drainMCUCommands(t, f, 3)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("reset command %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
	if b.LED.Current() != led.PatternOff {
		t.Error("LED not off after second reset")
	}
}

func TestSubscriptionLag(t *testing.T) {
	b, f := buildTestBroker(t)
	defer b.Shutdown(context.Background())
	drainMCUCommands(t, f, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := b.SubscribeMCUEvents()
	for i := 0; i < 200; i++ {
		if err := f.mcu.Send(ctx, mcu.Event{Kind: mcu.EventAmbientLight, Value: 1}); err != nil {
			t.Fatalf("fake mcu Send: %v", err)
		}
	}

	// The subscriber slept through 200 events with a ring of
	// broadcastDepth; the first receive reports the lag, then delivery
	// resumes.
	var lagged *broadcast.LaggedError
	var sawLag bool
	for i := 0; i < 200; i++ {
		_, err := sub.Recv(ctx)
		if err == nil {
			continue
		}
		if errors.As(err, &lagged) {
			sawLag = true
			break
		}
		t.Fatalf("Recv: %v", err)
	}
	if !sawLag {
		t.Fatal("subscriber never observed a lag notification")
	}
	if lagged.Missed < 1 {
		t.Errorf("Missed = %d, want >= 1", lagged.Missed)
	}
	if _, err := sub.Recv(ctx); err != nil {
		t.Fatalf("Recv after lag: %v", err)
	}
}

func TestAgentGoneAfterFakeCloses(t *testing.T) {
	b, f := buildTestBroker(t)
	defer b.Shutdown(context.Background())
	drainMCUCommands(t, f, 3)

	f.qr.Close()

	qr, err := b.QR()
	if err != nil {
		t.Fatalf("QR: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = qr.Recv(ctx)
	var gone *agent.GoneError
	if !errors.As(err, &gone) {
		t.Fatalf("Recv on closed agent = %v, want GoneError", err)
	}
	if gone.Name != AgentQRDecode {
		t.Errorf("Name = %q, want %q", gone.Name, AgentQRDecode)
	}

	// The rest of the broker is unaffected.
	if !b.Alive(AgentMCU) {
		t.Error("mcu agent reported dead")
	}
	if b.Alive(AgentQRDecode) {
		t.Error("qr agent reported alive after close")
	}
}

func TestShutdownClosesEverything(t *testing.T) {
	b, f := buildTestBroker(t)
	drainMCUCommands(t, f, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Consume the reset's frame-rate command so the closed port is
	// observed empty.
	if _, err := f.rgb.Recv(ctx); err != nil {
		t.Fatalf("fake rgb Recv: %v", err)
	}

	sub := b.SubscribeMCUEvents()
	b.Shutdown(context.Background())

	if _, err := f.rgb.Recv(ctx); !errors.Is(err, port.ErrClosed) {
		t.Errorf("fake rgb Recv after shutdown = %v, want ErrClosed", err)
	}
	if _, err := sub.Recv(ctx); !errors.Is(err, broadcast.ErrClosed) {
		t.Errorf("subscription Recv after shutdown = %v, want broadcast closed", err)
	}
}

func TestMissingAgentIsGone(t *testing.T) {
	snap := config.NewSnapshot(config.Default())
	b, err := NewBuilder(logging.Discard(), snap).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer b.Shutdown(context.Background())

	if _, err := b.RGB(); err == nil {
		t.Error("RGB on an empty broker succeeded, want agent_gone")
	}
	var gone *agent.GoneError
	if err := b.SendMCU(context.Background(), mcu.Command{Kind: mcu.CommandPing}); !errors.As(err, &gone) {
		t.Errorf("SendMCU = %v, want GoneError", err)
	}
}
