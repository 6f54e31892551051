// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcu drives the microcontroller serial link. The MCU owns the
// IR LEDs, the fan, the button, and the ambient sensors; the core
// talks to it through framed CBOR messages over a UART.
//
// The link agent is a thread agent: it blocks in poll(2) on the serial
// descriptor and is woken when the broker enqueues a command.
package mcu

import (
	"errors"
	"log/slog"
	"time"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/lib/codec"
	"github.com/lumen-devices/lumencore/lib/port"
	"github.com/lumen-devices/lumencore/lib/wake"
)

// Link is the opaque serial transport. One frame is one complete
// message payload; framing on the wire is the link's concern.
type Link interface {
	// Fd returns the descriptor to multiplex in poll(2).
	Fd() int

	// ReadFrame dequeues one received payload. Called only after Fd
	// signaled readiness; must not block indefinitely.
	ReadFrame() ([]byte, error)

	// WriteFrame queues one payload for transmission.
	WriteFrame(payload []byte) error

	Close() error
}

// CommandKind enumerates MCU commands.
type CommandKind string

const (
	CommandSetIRLed   CommandKind = "set_ir_led"
	CommandSetFan     CommandKind = "set_fan"
	CommandLiquidLens CommandKind = "liquid_lens"
	CommandPing       CommandKind = "ping"
)

// Command is one message to the MCU.
type Command struct {
	Kind CommandKind `cbor:"kind"`

	// OnMicros is the IR LED on-duration per frame, 0 means off.
	// Applies to CommandSetIRLed.
	OnMicros int `cbor:"on_micros,omitempty"`

	// Percent applies to CommandSetFan (fan speed) and
	// CommandLiquidLens (focus position, 50 is neutral).
	Percent int `cbor:"percent,omitempty"`
}

// EventKind enumerates MCU events.
type EventKind string

const (
	EventButtonPressed EventKind = "button_pressed"
	EventTemperature   EventKind = "temperature"
	EventAmbientLight  EventKind = "ambient_light"
	EventAck           EventKind = "ack"
)

// Event is one message from the MCU.
type Event struct {
	Kind EventKind `cbor:"kind"`

	// Value carries the reading for temperature (celsius) and ambient
	// light (lux).
	Value float64 `cbor:"value,omitempty"`
}

// Agent is the serial link thread agent.
type Agent struct {
	name   string
	link   Link
	logger *slog.Logger
}

// New wraps a link in an agent.
func New(name string, link Link, logger *slog.Logger) *Agent {
	return &Agent{name: name, link: link, logger: logger}
}

func (a *Agent) Name() string { return a.name }

// RunThread pumps commands down the link and events up the port until
// the port closes. Events arriving faster than the broker drains them
// are dropped at this edge; sensor readings are periodic and a missed
// one is replaced by the next.
func (a *Agent) RunThread(p *port.Inner[Command, Event], waiter *wake.Waiter) error {
	defer a.link.Close()
	for {
		ready, err := waiter.Wait(a.link.Fd(), time.Second)
		if err != nil {
			return err
		}

		stop, err := a.drainCommands(p)
		if stop || err != nil {
			return err
		}

		if ready.Device {
			payload, err := a.link.ReadFrame()
			if err != nil {
				return &agent.HardwareError{Device: a.name, Cause: err}
			}
			var event Event
			if err := codec.Unmarshal(payload, &event); err != nil {
				return &agent.DecodeError{Name: a.name, Cause: err}
			}
			if err := p.SendNow(event); err != nil {
				return err
			}
		}
	}
}

func (a *Agent) drainCommands(p *port.Inner[Command, Event]) (bool, error) {
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
		payload, err := codec.Marshal(m.Value)
		if err != nil {
			return true, err
		}
		if err := a.link.WriteFrame(payload); err != nil {
			return true, &agent.HardwareError{Device: a.name, Cause: err}
		}
	}
}
