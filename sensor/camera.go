// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"errors"
	"log/slog"
	"time"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/lib/port"
	"github.com/lumen-devices/lumencore/lib/wake"
)

// Device is the opaque blocking capture interface behind a camera
// agent. Exactly one agent holds a device; cross-agent access is
// prevented by construction because only the agent keeps the
// descriptor.
type Device interface {
	// Start begins streaming. After Start, Fd becomes readable
	// whenever a frame is available.
	Start() error

	// Stop ends streaming. Idempotent.
	Stop() error

	// Fd returns the device descriptor to multiplex in poll(2).
	Fd() int

	// ReadFrame dequeues one captured frame. Called only after Fd
	// signaled readiness; must not block indefinitely.
	ReadFrame() (*Frame, error)

	// SetFrameRate reconfigures the capture cadence.
	SetFrameRate(fps int) error

	Close() error
}

// CommandKind enumerates camera agent commands.
type CommandKind string

const (
	CommandStart        CommandKind = "start"
	CommandStop         CommandKind = "stop"
	CommandSetFrameRate CommandKind = "set_frame_rate"
)

// Command is one camera agent input.
type Command struct {
	Kind CommandKind `cbor:"kind"`

	// FrameRate applies to CommandSetFrameRate.
	FrameRate int `cbor:"frame_rate,omitempty"`
}

// Camera is the thread agent adapting a blocking capture device. It
// emits rotated frames with drop-on-full semantics: the device is
// never stalled by a slow consumer, and the port's drop counter
// accounts for every discarded frame.
type Camera struct {
	name     string
	device   Device
	rotation int
	logger   *slog.Logger
}

// NewCamera wraps a device in an agent. rotation is the clockwise
// display rotation in degrees.
func NewCamera(name string, device Device, rotation int, logger *slog.Logger) *Camera {
	return &Camera{name: name, device: device, rotation: rotation, logger: logger}
}

func (c *Camera) Name() string { return c.name }

// RunThread is the agent body. It waits on the device descriptor and
// the wake descriptor together while streaming, and on the wake alone
// while idle.
func (c *Camera) RunThread(p *port.Inner[Command, *Frame], waiter *wake.Waiter) error {
	defer c.device.Close()
	streaming := false
	defer func() {
		if streaming {
			if err := c.device.Stop(); err != nil {
				c.logger.Warn("stopping device at exit", "agent", c.name, "error", err)
			}
		}
	}()

	for {
		var ready wake.Readiness
		var err error
		if streaming {
			ready, err = waiter.Wait(c.device.Fd(), time.Second)
		} else {
			var woken bool
			woken, err = waiter.WaitEvent(-1)
			ready = wake.Readiness{Woken: woken}
		}
		if err != nil {
			return err
		}

		// Commands are drained on every wake, and opportunistically
		// after device activity, so a Stop is not delayed behind a
		// burst of frames.
		stop, err := c.drainCommands(p, &streaming)
		if stop || err != nil {
			return err
		}

		if ready.Device && streaming {
			frame, err := c.device.ReadFrame()
			if err != nil {
				return &agent.HardwareError{Device: c.name, Cause: err}
			}
			rotated, err := Rotate(frame, c.rotation)
			if err != nil {
				return err
			}
			if err := p.SendNow(rotated); err != nil {
				return err
			}
		}
	}
}

// drainCommands applies all pending commands. Returns stop=true when
// the port closed.
func (c *Camera) drainCommands(p *port.Inner[Command, *Frame], streaming *bool) (bool, error) {
	for {
		m, ok, err := p.TryRecv()
		if errors.Is(err, port.ErrClosed) {
			return true, nil
		}
		if err != nil {
			return true, err
		}
		if !ok {
			return false, nil
		}
		switch m.Value.Kind {
		case CommandStart:
			if !*streaming {
				if err := c.device.Start(); err != nil {
					return true, &agent.HardwareError{Device: c.name, Cause: err}
				}
				*streaming = true
			}
		case CommandStop:
			if *streaming {
				if err := c.device.Stop(); err != nil {
					return true, &agent.HardwareError{Device: c.name, Cause: err}
				}
				*streaming = false
			}
		case CommandSetFrameRate:
			if err := c.device.SetFrameRate(m.Value.FrameRate); err != nil {
				return true, &agent.HardwareError{Device: c.name, Cause: err}
			}
		default:
			c.logger.Warn("unknown camera command", "agent", c.name, "kind", m.Value.Kind)
		}
	}
}
