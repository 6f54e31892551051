// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/config"
	"github.com/lumen-devices/lumencore/led"
	"github.com/lumen-devices/lumencore/lib/broadcast"
	"github.com/lumen-devices/lumencore/lib/clock"
	"github.com/lumen-devices/lumencore/lib/port"
	"github.com/lumen-devices/lumencore/livestream"
	"github.com/lumen-devices/lumencore/mcu"
	"github.com/lumen-devices/lumencore/monitor"
	"github.com/lumen-devices/lumencore/sensor"
	"github.com/lumen-devices/lumencore/sound"
	"github.com/lumen-devices/lumencore/ui"
)

// Port capacities. Frame edges are shallow so backpressure drops at
// the sensor; command edges are deep enough that a plan never stalls
// issuing a handful of commands.
const (
	commandDepth   = 8
	frameDepth     = 2
	telemetryDepth = 16
	broadcastDepth = 64
)

// Builder accumulates the broker configuration. Each binary wires a
// different subset of agents; tests substitute fake ports.
type Builder struct {
	logger *slog.Logger
	cfg    *config.Snapshot
	clk    clock.Clock

	cameraDevice sensor.Device
	mcuLink      mcu.Link
	listener     net.Listener
	qrAgent      bool
	monitors     bool

	fakeRGB    *agent.Handle[sensor.Command, *sensor.Frame]
	fakeMCU    *agent.Handle[mcu.Command, mcu.Event]
	fakeQR     *agent.Handle[*sensor.Frame, string]
	fakeIntake *agent.Handle[livestream.Command, livestream.Event]
}

// NewBuilder starts a builder with the shared configuration snapshot.
func NewBuilder(logger *slog.Logger, cfg *config.Snapshot) *Builder {
	return &Builder{logger: logger, cfg: cfg, clk: clock.Real()}
}

// WithClock substitutes the time source.
func (bl *Builder) WithClock(clk clock.Clock) *Builder {
	bl.clk = clk
	return bl
}

// WithCameraDevice wires the RGB camera thread agent over the device.
func (bl *Builder) WithCameraDevice(dev sensor.Device) *Builder {
	bl.cameraDevice = dev
	return bl
}

// WithMCULink wires the microcontroller thread agent over the link.
func (bl *Builder) WithMCULink(link mcu.Link) *Builder {
	bl.mcuLink = link
	return bl
}

// WithListener wires the livestream intake over an already-bound
// listener.
func (bl *Builder) WithListener(listener net.Listener) *Builder {
	bl.listener = listener
	return bl
}

// WithQRDecoder wires the qr-decode process agent. The agent must be
// registered in this binary under AgentQRDecode.
func (bl *Builder) WithQRDecoder() *Builder {
	bl.qrAgent = true
	return bl
}

// WithMonitors wires the net and cpu monitor agents.
func (bl *Builder) WithMonitors() *Builder {
	bl.monitors = true
	return bl
}

// WithFakeRGB substitutes a fake port for the camera agent. The test
// drives the inner end.
func (bl *Builder) WithFakeRGB(outer *port.Outer[sensor.Command, *sensor.Frame]) *Builder {
	bl.fakeRGB = agent.NewHandle(AgentRGBCamera, outer)
	return bl
}

// WithFakeMCU substitutes a fake port for the microcontroller agent.
func (bl *Builder) WithFakeMCU(outer *port.Outer[mcu.Command, mcu.Event]) *Builder {
	bl.fakeMCU = agent.NewHandle(AgentMCU, outer)
	return bl
}

// WithFakeQR substitutes a fake port for the QR decoder.
func (bl *Builder) WithFakeQR(outer *port.Outer[*sensor.Frame, string]) *Builder {
	bl.fakeQR = agent.NewHandle(AgentQRDecode, outer)
	return bl
}

// WithFakeIntake substitutes a fake port for the livestream intake.
func (bl *Builder) WithFakeIntake(outer *port.Outer[livestream.Command, livestream.Event]) *Builder {
	bl.fakeIntake = agent.NewHandle(AgentLivestream, outer)
	return bl
}

// Build constructs the configured agents, starts the broadcast pumps,
// and performs the initial hardware reset. On error the partially
// built broker is shut down.
func (bl *Builder) Build(ctx context.Context) (*Broker, error) {
	cfg := bl.cfg.Get()
	b := &Broker{
		logger:       bl.logger,
		cfg:          bl.cfg,
		clk:          bl.clk,
		UI:           ui.New(broadcastDepth),
		Sound:        sound.New(cfg.Sound.Volume),
		LED:          led.New(),
		mcuEvents:    broadcast.New[mcu.Event](broadcastDepth),
		samples:      broadcast.New[monitor.Sample](broadcastDepth),
		intakeEvents: broadcast.New[livestream.Event](broadcastDepth),
	}

	if err := bl.buildAgents(ctx, b); err != nil {
		b.Shutdown(ctx)
		return nil, err
	}

	if b.mcu != nil {
		pump(b, b.mcu, b.mcuEvents)
	}
	if b.netMon != nil {
		pump(b, b.netMon, b.samples)
	}
	if b.cpuMon != nil {
		pump(b, b.cpuMon, b.samples)
	}
	if b.intake != nil {
		pump(b, b.intake, b.intakeEvents)
	}

	if err := b.ResetHardware(ctx, 5*time.Second); err != nil {
		b.Shutdown(ctx)
		return nil, fmt.Errorf("initial hardware reset: %w", err)
	}
	bl.logger.Info("broker built", "agents", b.AgentNames())
	return b, nil
}

func (bl *Builder) buildAgents(ctx context.Context, b *Broker) error {
	cfg := bl.cfg.Get()

	switch {
	case bl.fakeRGB != nil:
		b.rgb = bl.fakeRGB
	case bl.cameraDevice != nil:
		camera := sensor.NewCamera(AgentRGBCamera, bl.cameraDevice, cfg.Capture.Rotation, bl.logger)
		h, err := agent.SpawnThread[sensor.Command, *sensor.Frame](bl.logger, camera, commandDepth, frameDepth)
		if err != nil {
			return fmt.Errorf("spawning camera: %w", err)
		}
		b.rgb = h
	}
	if b.rgb != nil {
		register(b, b.rgb)
		b.notary = agent.SpawnTask[*sensor.Frame, sensor.Record](
			ctx, bl.logger, sensor.NewNotary(AgentNotary), frameDepth, telemetryDepth)
		register(b, b.notary)
	}

	switch {
	case bl.fakeMCU != nil:
		b.mcu = bl.fakeMCU
	case bl.mcuLink != nil:
		h, err := agent.SpawnThread[mcu.Command, mcu.Event](
			bl.logger, mcu.New(AgentMCU, bl.mcuLink, bl.logger), commandDepth, telemetryDepth)
		if err != nil {
			return fmt.Errorf("spawning mcu link: %w", err)
		}
		b.mcu = h
	}
	if b.mcu != nil {
		register(b, b.mcu)
	}

	switch {
	case bl.fakeQR != nil:
		b.qr = bl.fakeQR
	case bl.qrAgent:
		h, err := agent.SpawnProcess[*sensor.Frame, string](
			ctx, bl.logger, AgentQRDecode, nil, frameDepth, commandDepth)
		if err != nil {
			return fmt.Errorf("spawning qr decoder: %w", err)
		}
		b.qr = h
	}
	if b.qr != nil {
		register(b, b.qr)
	}

	if bl.monitors {
		b.netMon = agent.SpawnTask[monitor.Command, monitor.Sample](ctx, bl.logger,
			monitor.New(AgentNetMonitor, "net", monitor.NewNetProbe(), 5*time.Second, bl.clk, bl.logger),
			1, telemetryDepth)
		register(b, b.netMon)
		b.cpuMon = agent.SpawnTask[monitor.Command, monitor.Sample](ctx, bl.logger,
			monitor.New(AgentCPUMonitor, "cpu", monitor.NewCPUProbe(), 5*time.Second, bl.clk, bl.logger),
			1, telemetryDepth)
		register(b, b.cpuMon)
	}

	switch {
	case bl.fakeIntake != nil:
		b.intake = bl.fakeIntake
	case bl.listener != nil:
		b.intake = agent.SpawnTask[livestream.Command, livestream.Event](ctx, bl.logger,
			livestream.New(AgentLivestream, bl.listener, bl.logger), 1, telemetryDepth)
	}
	if b.intake != nil {
		register(b, b.intake)
	}

	return nil
}
