// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package broadcast provides a bounded multi-consumer broadcast queue
// with lag signaling.
//
// Each receiver keeps its own cursor into a shared ring of the last N
// sent values. A receiver that falls more than N behind gets a
// LaggedError reporting how many values it missed, its cursor jumps to
// the oldest retained value, and delivery resumes. Slow consumers are
// allowed to miss messages but never silently desynchronize.
//
// Senders never block: Send overwrites the oldest retained value.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Recv after the sender closed and all
// retained values have been delivered.
var ErrClosed = errors.New("broadcast channel closed")

// LaggedError reports that a receiver fell behind and missed values.
// The receiver's cursor has been advanced to the oldest retained
// value; the next Recv resumes delivery.
type LaggedError struct {
	// Missed is the number of values skipped over.
	Missed uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("lagged behind by %d messages", e.Missed)
}

// Sender is the producing end of a broadcast channel.
type Sender[T any] struct {
	mu       sync.Mutex
	ring     []T
	capacity uint64

	// head is the sequence number of the next value to be sent. The
	// retained window is [head-min(head,capacity), head).
	head   uint64
	closed bool

	// notify is closed and replaced on every Send, and closed for the
	// last time on Close. Receivers block on it.
	notify chan struct{}
}

// New creates a broadcast channel retaining the last capacity values.
func New[T any](capacity int) *Sender[T] {
	if capacity <= 0 {
		panic("broadcast: capacity must be positive")
	}
	return &Sender[T]{
		ring:     make([]T, capacity),
		capacity: uint64(capacity),
		notify:   make(chan struct{}),
	}
}

// Send publishes v to all receivers, overwriting the oldest retained
// value when the ring is full. Never blocks. Sends after Close are
// discarded.
func (s *Sender[T]) Send(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ring[s.head%s.capacity] = v
	s.head++
	close(s.notify)
	s.notify = make(chan struct{})
}

// Close marks the channel closed. Receivers drain the retained window
// and then observe ErrClosed. Idempotent.
func (s *Sender[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.notify)
}

// Subscribe returns a new receiver positioned at the current head: it
// observes only values sent after the subscription.
func (s *Sender[T]) Subscribe() *Receiver[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Receiver[T]{sender: s, cursor: s.head}
}

// Receiver is one consuming cursor of a broadcast channel. Not safe
// for concurrent use by multiple goroutines.
type Receiver[T any] struct {
	sender *Sender[T]
	cursor uint64
}

// take advances the cursor under the sender's lock. Exactly one of the
// return conditions holds: a value, a lag, closed, or empty (wait on
// the returned channel).
func (r *Receiver[T]) take() (value T, ok bool, wait chan struct{}, err error) {
	s := r.sender
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest uint64
	if s.head > s.capacity {
		oldest = s.head - s.capacity
	}
	if r.cursor < oldest {
		missed := oldest - r.cursor
		r.cursor = oldest
		return value, false, nil, &LaggedError{Missed: missed}
	}
	if r.cursor == s.head {
		if s.closed {
			return value, false, nil, ErrClosed
		}
		return value, false, s.notify, nil
	}
	value = s.ring[r.cursor%s.capacity]
	r.cursor++
	return value, true, nil, nil
}

// Recv returns the next value, suspending until one is available. A
// receiver that fell behind gets a LaggedError once, then resumes from
// the oldest retained value.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	for {
		value, ok, wait, err := r.take()
		if err != nil {
			var zero T
			return zero, err
		}
		if ok {
			return value, nil
		}
		select {
		case <-wait:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryRecv returns the next value without suspending. The bool reports
// whether a value was returned; an empty open channel returns
// (zero, false, nil).
func (r *Receiver[T]) TryRecv() (T, bool, error) {
	value, ok, _, err := r.take()
	return value, ok, err
}
