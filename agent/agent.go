// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lumen-devices/lumencore/lib/port"
	"github.com/lumen-devices/lumencore/lib/wake"
)

// Agent is the common surface of all agent kinds.
type Agent interface {
	// Name returns the stable agent name used in logs, error kinds,
	// and the process-agent registry.
	Name() string
}

// Task is an agent running as a goroutine on the shared runtime. It
// must suspend only at port operations and timers.
type Task[I, O any] interface {
	Agent

	// RunTask drives the agent until the port closes, ctx is
	// cancelled, or a terminal error occurs.
	RunTask(ctx context.Context, p *port.Inner[I, O]) error
}

// Thread is an agent owning a dedicated OS thread. It may block in
// native syscalls; the waiter unblocks it when input arrives or the
// port closes.
type Thread[I, O any] interface {
	Agent

	// RunThread drives the agent on its locked thread until the port
	// closes or a terminal error occurs.
	RunThread(p *port.Inner[I, O], waiter *wake.Waiter) error
}

// Process is an agent executing inside a child process. RunProcess is
// called in the child; the parent only pumps framed messages.
type Process[I, O any] interface {
	Agent

	// RunProcess drives the agent in the child until its port closes.
	RunProcess(ctx context.Context, p *port.Inner[I, O]) error
}

// Handle is the broker-side grip on a live agent: the outer port plus
// lifecycle state. A handle whose agent died is never reused.
type Handle[I, O any] struct {
	name  string
	outer *port.Outer[I, O]
	done  <-chan struct{}

	// kill force-terminates the agent's child process. Nil for
	// in-process substrates.
	kill func()

	mu  sync.Mutex
	err error
}

// newHandle returns the handle plus the channel the spawner closes
// once the agent has fully terminated.
func newHandle[I, O any](name string, outer *port.Outer[I, O]) (*Handle[I, O], chan struct{}) {
	done := make(chan struct{})
	return &Handle[I, O]{name: name, outer: outer, done: done}, done
}

// NewHandle wraps a bare outer port in a handle. The broker builder
// uses it to substitute fake ports for real agents in tests: the fake
// agent is whatever the test does with the inner end. The handle is
// done exactly when the port is closed; there is no window where a
// closed port still reports a live agent.
func NewHandle[I, O any](name string, outer *port.Outer[I, O]) *Handle[I, O] {
	return &Handle[I, O]{name: name, outer: outer, done: outer.Closed()}
}

// Name returns the agent name.
func (h *Handle[I, O]) Name() string { return h.name }

// Send enqueues a command for the agent, suspending until space is
// available. A closed port surfaces as a GoneError.
func (h *Handle[I, O]) Send(ctx context.Context, v I) error {
	return h.wrapClosed(h.outer.Send(ctx, v))
}

// SendNow enqueues a command, dropping it when the queue is full.
func (h *Handle[I, O]) SendNow(v I) error {
	return h.wrapClosed(h.outer.SendNow(v))
}

// SendNowChained is SendNow with a chain identifier.
func (h *Handle[I, O]) SendNowChained(v I, chain uint64) error {
	return h.wrapClosed(h.outer.SendNowChained(v, chain))
}

// Recv returns the agent's next output message.
func (h *Handle[I, O]) Recv(ctx context.Context) (port.Message[O], error) {
	m, err := h.outer.Recv(ctx)
	return m, h.wrapClosed(err)
}

// TryRecv returns the agent's next output message without suspending.
func (h *Handle[I, O]) TryRecv() (port.Message[O], bool, error) {
	m, ok, err := h.outer.TryRecv()
	return m, ok, h.wrapClosed(err)
}

// Close closes the port, requesting the agent to stop. Idempotent.
func (h *Handle[I, O]) Close() { h.outer.Close() }

// Kill force-terminates a process agent's child. No-op for in-process
// substrates. Used by the broker after the shutdown deadline.
func (h *Handle[I, O]) Kill() {
	if h.kill != nil {
		h.kill()
	}
}

// Done returns a channel closed once the agent has terminated.
func (h *Handle[I, O]) Done() <-chan struct{} { return h.done }

// Wait blocks until the agent terminates or ctx is cancelled, and
// returns the agent's terminal error.
func (h *Handle[I, O]) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the recorded terminal error, nil while the agent is
// alive or after a clean exit.
func (h *Handle[I, O]) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// OutputDrops reports frames dropped by the agent's SendNow edge.
func (h *Handle[I, O]) OutputDrops() uint64 { return h.outer.OutputDrops() }

// setErr records the first terminal error; later errors are ignored
// so a decode error is not overwritten by the exit status it caused.
func (h *Handle[I, O]) setErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err == nil {
		h.err = err
	}
}

func (h *Handle[I, O]) wrapClosed(err error) error {
	if errors.Is(err, port.ErrClosed) {
		return &GoneError{Name: h.name, Cause: h.Err()}
	}
	return err
}

// finish records the outcome of an agent run. Port closure and
// context cancellation are clean exits.
func finish[I, O any](logger *slog.Logger, h *Handle[I, O], err error) {
	switch {
	case err == nil, errors.Is(err, port.ErrClosed), errors.Is(err, context.Canceled):
		logger.Debug("agent finished", "agent", h.name)
	default:
		h.setErr(err)
		logger.Error("agent terminated", "agent", h.name, "error", err)
	}
}

// guard converts a panic in an agent body into a terminal error, so a
// panicking task agent is observed as agent_gone rather than taking
// down the process.
func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return f()
}

type panicError struct{ value any }

func (e *panicError) Error() string {
	return "agent panicked: " + toString(e.value)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic"
}
