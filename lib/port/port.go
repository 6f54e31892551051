// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package port

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by port operations after either end closed the
// port. Receivers see it only once all in-flight messages are drained.
var ErrClosed = errors.New("port closed")

// ErrFull is returned by TrySend when the queue is at capacity.
var ErrFull = errors.New("port queue full")

// Message wraps a value traveling through a port queue.
type Message[T any] struct {
	// Value is the payload.
	Value T `cbor:"value"`

	// Seq is the per-queue sequence number, assigned in order of
	// successful enqueue starting at zero. Messages dropped by SendNow
	// never consume a number, so receivers observe a contiguous
	// sequence; drops are visible only through the drop counters.
	Seq uint64 `cbor:"seq"`

	// Chain correlates a message with the message it was derived from
	// (an inference output with its source frame). Zero means the
	// message is not part of a chain.
	Chain uint64 `cbor:"chain,omitempty"`
}

// queue is one bounded SPSC direction of a port.
type queue[T any] struct {
	ch        chan Message[T]
	closed    chan struct{}
	closeOnce sync.Once

	// seq is the sequence number of the next successfully enqueued
	// message. Incremented only on successful enqueue so receivers
	// never observe gaps.
	seq atomic.Uint64

	// drops counts messages discarded by SendNow on a full queue.
	drops atomic.Uint64

	// onSend, when set, is invoked after every successful enqueue and
	// on close. Thread agents register their wake handle here so a
	// blocked poll(2) returns when input arrives.
	onSend atomic.Pointer[func()]
}

func newQueue[T any](capacity int) *queue[T] {
	return &queue[T]{
		ch:     make(chan Message[T], capacity),
		closed: make(chan struct{}),
	}
}

func (q *queue[T]) notify() {
	if f := q.onSend.Load(); f != nil {
		(*f)()
	}
}

func (q *queue[T]) close() {
	q.closeOnce.Do(func() {
		close(q.closed)
		q.notify()
	})
}

func (q *queue[T]) trySend(v T, chain uint64) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	m := Message[T]{Value: v, Seq: q.seq.Load(), Chain: chain}
	select {
	case q.ch <- m:
		q.seq.Add(1)
		q.notify()
		return nil
	case <-q.closed:
		return ErrClosed
	default:
		return ErrFull
	}
}

func (q *queue[T]) send(ctx context.Context, v T, chain uint64) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	m := Message[T]{Value: v, Seq: q.seq.Load(), Chain: chain}
	select {
	case q.ch <- m:
		q.seq.Add(1)
		q.notify()
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *queue[T]) sendNow(v T, chain uint64) error {
	err := q.trySend(v, chain)
	if errors.Is(err, ErrFull) {
		q.drops.Add(1)
		return nil
	}
	return err
}

func (q *queue[T]) tryRecv() (Message[T], bool, error) {
	select {
	case m := <-q.ch:
		return m, true, nil
	default:
	}
	select {
	case m := <-q.ch:
		return m, true, nil
	case <-q.closed:
		// A sender may have enqueued right before closing; deliver
		// that message before reporting the closure.
		select {
		case m := <-q.ch:
			return m, true, nil
		default:
		}
		return Message[T]{}, false, ErrClosed
	default:
		return Message[T]{}, false, nil
	}
}

func (q *queue[T]) recv(ctx context.Context) (Message[T], error) {
	select {
	case m := <-q.ch:
		return m, nil
	default:
	}
	select {
	case m := <-q.ch:
		return m, nil
	case <-q.closed:
		select {
		case m := <-q.ch:
			return m, nil
		default:
		}
		return Message[T]{}, ErrClosed
	case <-ctx.Done():
		return Message[T]{}, ctx.Err()
	}
}

// Inner is the agent-side end of a port: it receives input values and
// sends output values.
type Inner[I, O any] struct {
	in  *queue[I]
	out *queue[O]
}

// Outer is the broker-side end of a port: it sends input values and
// receives output values.
type Outer[I, O any] struct {
	in  *queue[I]
	out *queue[O]
}

// New creates a port pair. inputCapacity bounds the broker→agent queue
// and outputCapacity the agent→broker queue. A capacity of zero makes
// the queue a rendezvous point.
func New[I, O any](inputCapacity, outputCapacity int) (*Inner[I, O], *Outer[I, O]) {
	in := newQueue[I](inputCapacity)
	out := newQueue[O](outputCapacity)
	return &Inner[I, O]{in: in, out: out}, &Outer[I, O]{in: in, out: out}
}

// Recv returns the next input message, suspending until one arrives,
// the port closes, or ctx is cancelled.
func (p *Inner[I, O]) Recv(ctx context.Context) (Message[I], error) {
	return p.in.recv(ctx)
}

// TryRecv returns the next input message without suspending. The bool
// reports whether a message was returned; an empty open queue returns
// (zero, false, nil).
func (p *Inner[I, O]) TryRecv() (Message[I], bool, error) {
	return p.in.tryRecv()
}

// Send enqueues an output value, suspending until space is available.
func (p *Inner[I, O]) Send(ctx context.Context, v O) error {
	return p.out.send(ctx, v, 0)
}

// SendChained enqueues an output value carrying the given chain
// identifier.
func (p *Inner[I, O]) SendChained(ctx context.Context, v O, chain uint64) error {
	return p.out.send(ctx, v, chain)
}

// TrySend enqueues an output value, failing with ErrFull at capacity.
func (p *Inner[I, O]) TrySend(v O) error {
	return p.out.trySend(v, 0)
}

// SendNow enqueues an output value, dropping it (and counting the
// drop) when the queue is full. Never suspends; errors only when the
// port is closed.
func (p *Inner[I, O]) SendNow(v O) error {
	return p.out.sendNow(v, 0)
}

// SendNowChained is SendNow with a chain identifier.
func (p *Inner[I, O]) SendNowChained(v O, chain uint64) error {
	return p.out.sendNow(v, chain)
}

// Close closes both directions of the port. Idempotent; wakes the peer.
func (p *Inner[I, O]) Close() {
	p.in.close()
	p.out.close()
}

// Closed returns a channel that is closed once the port is closed.
func (p *Inner[I, O]) Closed() <-chan struct{} { return p.in.closed }

// OutputDrops reports how many output messages SendNow discarded.
func (p *Inner[I, O]) OutputDrops() uint64 { return p.out.drops.Load() }

// Send enqueues an input value for the agent, suspending until space
// is available.
func (p *Outer[I, O]) Send(ctx context.Context, v I) error {
	return p.in.send(ctx, v, 0)
}

// SendChained enqueues an input value carrying the given chain
// identifier.
func (p *Outer[I, O]) SendChained(ctx context.Context, v I, chain uint64) error {
	return p.in.send(ctx, v, chain)
}

// TrySend enqueues an input value, failing with ErrFull at capacity.
func (p *Outer[I, O]) TrySend(v I) error {
	return p.in.trySend(v, 0)
}

// SendNow enqueues an input value, dropping it on a full queue.
func (p *Outer[I, O]) SendNow(v I) error {
	return p.in.sendNow(v, 0)
}

// SendNowChained is SendNow with a chain identifier.
func (p *Outer[I, O]) SendNowChained(v I, chain uint64) error {
	return p.in.sendNow(v, chain)
}

// Recv returns the next output message from the agent.
func (p *Outer[I, O]) Recv(ctx context.Context) (Message[O], error) {
	return p.out.recv(ctx)
}

// TryRecv returns the next output message without suspending.
func (p *Outer[I, O]) TryRecv() (Message[O], bool, error) {
	return p.out.tryRecv()
}

// Close closes both directions of the port. Idempotent; wakes the peer.
func (p *Outer[I, O]) Close() {
	p.in.close()
	p.out.close()
}

// Closed returns a channel that is closed once the port is closed.
func (p *Outer[I, O]) Closed() <-chan struct{} { return p.in.closed }

// InputDrops reports how many input messages SendNow discarded.
func (p *Outer[I, O]) InputDrops() uint64 { return p.in.drops.Load() }

// OutputDrops reports how many output messages the agent's SendNow
// discarded. This is the counter a consumer inspects to account for
// frames dropped at the sensor edge.
func (p *Outer[I, O]) OutputDrops() uint64 { return p.out.drops.Load() }

// OnInputSend registers f to run after every successful input enqueue
// and on close. Used by the thread-agent substrate to signal the wake
// descriptor of a thread blocked in poll(2). Must be set before the
// port is used.
func (p *Outer[I, O]) OnInputSend(f func()) {
	p.in.onSend.Store(&f)
}
