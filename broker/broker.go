// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/config"
	"github.com/lumen-devices/lumencore/led"
	"github.com/lumen-devices/lumencore/lib/broadcast"
	"github.com/lumen-devices/lumencore/lib/clock"
	"github.com/lumen-devices/lumencore/livestream"
	"github.com/lumen-devices/lumencore/mcu"
	"github.com/lumen-devices/lumencore/monitor"
	"github.com/lumen-devices/lumencore/sensor"
	"github.com/lumen-devices/lumencore/sound"
	"github.com/lumen-devices/lumencore/ui"
)

// Stable agent names. They key log records, last-error lookups, and
// the process-agent registry.
const (
	AgentRGBCamera  = "rgb-camera"
	AgentNotary     = "frame-notary"
	AgentMCU        = "mcu"
	AgentQRDecode   = "qr-decode"
	AgentNetMonitor = "net-monitor"
	AgentCPUMonitor = "cpu-monitor"
	AgentLivestream = "livestream"
)

// Broker owns the live agents. Construct with Builder.Build.
type Broker struct {
	logger *slog.Logger
	cfg    *config.Snapshot
	clk    clock.Clock

	// Actuator handles. Cheap, thread-safe, fire-and-forget; agents
	// and plans clone them freely.
	UI    ui.Handle
	Sound sound.Player
	LED   led.Engine

	rgb    *agent.Handle[sensor.Command, *sensor.Frame]
	notary *agent.Handle[*sensor.Frame, sensor.Record]
	mcu    *agent.Handle[mcu.Command, mcu.Event]
	qr     *agent.Handle[*sensor.Frame, string]
	netMon *agent.Handle[monitor.Command, monitor.Sample]
	cpuMon *agent.Handle[monitor.Command, monitor.Sample]
	intake *agent.Handle[livestream.Command, livestream.Event]

	mcuEvents    *broadcast.Sender[mcu.Event]
	samples      *broadcast.Sender[monitor.Sample]
	intakeEvents *broadcast.Sender[livestream.Event]

	pumps  sync.WaitGroup
	agents []registered
}

// registered is the broker's lifecycle view of one agent, uniform
// across handle types.
type registered struct {
	name  string
	close func()
	kill  func()
	done  <-chan struct{}
	err   func() error
}

func register[I, O any](b *Broker, h *agent.Handle[I, O]) {
	b.agents = append(b.agents, registered{
		name:  h.Name(),
		close: h.Close,
		kill:  h.Kill,
		done:  h.Done(),
		err:   h.Err,
	})
}

// Config returns the shared configuration snapshot.
func (b *Broker) Config() *config.Snapshot { return b.cfg }

// Clock returns the broker's time source. Plans take their deadlines
// from it so tests can drive time.
func (b *Broker) Clock() clock.Clock { return b.clk }

// RGB returns the camera handle, or agent_gone if the camera was not
// built.
func (b *Broker) RGB() (*agent.Handle[sensor.Command, *sensor.Frame], error) {
	if b.rgb == nil {
		return nil, &agent.GoneError{Name: AgentRGBCamera}
	}
	return b.rgb, nil
}

// Notary returns the frame notary handle.
func (b *Broker) Notary() (*agent.Handle[*sensor.Frame, sensor.Record], error) {
	if b.notary == nil {
		return nil, &agent.GoneError{Name: AgentNotary}
	}
	return b.notary, nil
}

// QR returns the QR decoder handle.
func (b *Broker) QR() (*agent.Handle[*sensor.Frame, string], error) {
	if b.qr == nil {
		return nil, &agent.GoneError{Name: AgentQRDecode}
	}
	return b.qr, nil
}

// SendMCU enqueues a command for the microcontroller.
func (b *Broker) SendMCU(ctx context.Context, cmd mcu.Command) error {
	if b.mcu == nil {
		return &agent.GoneError{Name: AgentMCU}
	}
	return b.mcu.Send(ctx, cmd)
}

// SubscribeMCUEvents returns a receiver over microcontroller events.
func (b *Broker) SubscribeMCUEvents() *broadcast.Receiver[mcu.Event] {
	return b.mcuEvents.Subscribe()
}

// SubscribeSamples returns a receiver over monitor samples.
func (b *Broker) SubscribeSamples() *broadcast.Receiver[monitor.Sample] {
	return b.samples.Subscribe()
}

// SubscribeIntake returns a receiver over livestream intake events.
func (b *Broker) SubscribeIntake() *broadcast.Receiver[livestream.Event] {
	return b.intakeEvents.Subscribe()
}

// LastError returns the recorded terminal error for an agent, nil for
// a live or cleanly exited agent, and agent_gone for an unknown name.
func (b *Broker) LastError(name string) error {
	for _, a := range b.agents {
		if a.name == name {
			return a.err()
		}
	}
	return &agent.GoneError{Name: name}
}

// Alive reports whether the named agent is built and has not
// terminated.
func (b *Broker) Alive(name string) bool {
	for _, a := range b.agents {
		if a.name != name {
			continue
		}
		select {
		case <-a.done:
			return false
		default:
			return true
		}
	}
	return false
}

// AgentNames returns the names of all built agents.
func (b *Broker) AgentNames() []string {
	names := make([]string, 0, len(b.agents))
	for _, a := range b.agents {
		names = append(names, a.name)
	}
	return names
}

// ResetHardware returns the actuators to their documented default
// state: IR LEDs off, fan at nominal, liquid lens neutral, frame rate
// nominal, ring LED off. Idempotent; all binaries and plans share this
// one implementation. Agents that were not built are skipped.
func (b *Broker) ResetHardware(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if b.mcu != nil {
		defaults := []mcu.Command{
			{Kind: mcu.CommandSetIRLed, OnMicros: 0},
			{Kind: mcu.CommandSetFan, Percent: 50},
			{Kind: mcu.CommandLiquidLens, Percent: 50},
		}
		for _, cmd := range defaults {
			if err := b.SendMCU(ctx, cmd); err != nil {
				return resetError(err)
			}
		}
	}
	if b.rgb != nil {
		nominal := b.cfg.Get().Capture.FrameRate
		if err := b.rgb.Send(ctx, sensor.Command{Kind: sensor.CommandSetFrameRate, FrameRate: nominal}); err != nil {
			return resetError(err)
		}
	}
	b.LED.Set(led.PatternOff)
	return nil
}

func resetError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &agent.TimeoutError{Operation: "reset_hardware"}
	}
	return err
}

// Shutdown closes every agent's input, waits for each to drain up to
// the configured deadline, then force-terminates what remains (which
// only affects process agents; in-process agents cannot be killed,
// only abandoned). Broadcast subscribers observe closure after the
// pumps drain.
func (b *Broker) Shutdown(ctx context.Context) {
	drain := b.cfg.Get().Shutdown.DrainTimeout.Duration
	if drain <= 0 {
		drain = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, drain)
	defer cancel()

	for _, a := range b.agents {
		a.close()
	}
	for _, a := range b.agents {
		select {
		case <-a.done:
		case <-ctx.Done():
			b.logger.Warn("agent did not drain, killing", "agent", a.name)
			a.kill()
		}
	}
	b.pumps.Wait()
	b.mcuEvents.Close()
	b.samples.Close()
	b.intakeEvents.Close()
	b.logger.Info("broker shut down")
}

// pump forwards an agent's outputs into a broadcast channel until the
// agent terminates.
func pump[I, O any](b *Broker, h *agent.Handle[I, O], cast *broadcast.Sender[O]) {
	b.pumps.Add(1)
	go func() {
		defer b.pumps.Done()
		for {
			m, err := h.Recv(context.Background())
			if err != nil {
				return
			}
			cast.Send(m.Value)
		}
	}()
}
