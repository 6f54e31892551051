// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package livestream is the TCP event intake for the operator app.
//
// A listener on a fixed port accepts exactly one client at a time. The
// client sends length-prefixed CBOR frames, each carrying a list of
// remote UI events. The intake agent surfaces the connection lifecycle
// and the events as a single output stream; on disconnect it reverts
// to listening.
package livestream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/lib/codec"
	"github.com/lumen-devices/lumencore/lib/port"
)

// UIEvent is one remote interaction from the operator app.
type UIEvent struct {
	// Type is the interaction kind, like "tap" or "button".
	Type string `cbor:"type"`

	// Target names the control for button events.
	Target string `cbor:"target,omitempty"`

	// X and Y are normalized tap coordinates in [0,1].
	X float64 `cbor:"x,omitempty"`
	Y float64 `cbor:"y,omitempty"`
}

// EventKind enumerates intake stream events.
type EventKind string

const (
	EventConnected EventKind = "connected"
	EventClosed    EventKind = "closed"
	EventUIEvents  EventKind = "ui_events"
)

// Event is one intake stream element.
type Event struct {
	Kind EventKind `cbor:"kind"`

	// Addr is the client address for EventConnected.
	Addr string `cbor:"addr,omitempty"`

	// Events carries the payload for EventUIEvents.
	Events []UIEvent `cbor:"events,omitempty"`
}

// Command is the intake input; the agent only reacts to port closure.
type Command struct{}

// Intake is the task agent owning the listener.
type Intake struct {
	name     string
	listener net.Listener
	logger   *slog.Logger
}

// New wraps an already-bound listener. The agent takes ownership and
// closes it on exit.
func New(name string, listener net.Listener, logger *slog.Logger) *Intake {
	return &Intake{name: name, listener: listener, logger: logger}
}

func (in *Intake) Name() string { return in.name }

// Addr returns the bound listener address.
func (in *Intake) Addr() net.Addr { return in.listener.Addr() }

// RunTask accepts and serves clients until the port closes. Accept and
// read block on the network, which parks only this goroutine.
func (in *Intake) RunTask(ctx context.Context, p *port.Inner[Command, Event]) error {
	// Closing the listener and the live connection is the only way to
	// unblock Accept and Read when the port closes.
	var mu sync.Mutex
	var liveConn net.Conn
	setConn := func(c net.Conn) {
		mu.Lock()
		liveConn = c
		mu.Unlock()
	}
	go func() {
		select {
		case <-p.Closed():
		case <-ctx.Done():
		}
		in.listener.Close()
		mu.Lock()
		if liveConn != nil {
			liveConn.Close()
		}
		mu.Unlock()
	}()
	defer in.listener.Close()

	for {
		conn, err := in.listener.Accept()
		if err != nil {
			select {
			case <-p.Closed():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		setConn(conn)
		in.logger.Info("livestream client connected", "agent", in.name, "addr", conn.RemoteAddr().String())
		if err := p.Send(ctx, Event{Kind: EventConnected, Addr: conn.RemoteAddr().String()}); err != nil {
			conn.Close()
			return nil
		}

		err = in.serve(ctx, p, conn)
		conn.Close()
		setConn(nil)
		if err != nil {
			return err
		}
		if err := p.Send(ctx, Event{Kind: EventClosed}); err != nil {
			return nil
		}
		in.logger.Info("livestream client disconnected", "agent", in.name)
	}
}

// serve reads event frames from one client until it disconnects. A
// malformed frame is treated like a disconnect: the client is dropped
// and the listener resumes. Returns non-nil only for terminal agent
// errors.
func (in *Intake) serve(ctx context.Context, p *port.Inner[Command, Event], conn net.Conn) error {
	for {
		payload, err := codec.ReadFrame(conn)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			select {
			case <-p.Closed():
			case <-ctx.Done():
			default:
				in.logger.Warn("dropping livestream client", "agent", in.name,
					"error", &agent.DecodeError{Name: in.name, Cause: err})
			}
			return nil
		}
		var events []UIEvent
		if err := codec.Unmarshal(payload, &events); err != nil {
			in.logger.Warn("dropping livestream client", "agent", in.name,
				"error", &agent.DecodeError{Name: in.name, Cause: err})
			return nil
		}
		if err := p.Send(ctx, Event{Kind: EventUIEvents, Events: events}); err != nil {
			return nil
		}
	}
}
