// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package wake bridges blocking threads into the cooperative runtime
// through a kernel event descriptor.
//
// A thread agent blocks in poll(2) on its device descriptor and the
// wake descriptor, whichever becomes ready first. Whoever enqueues a
// message on the agent's input calls Wake to unblock it. The eventfd
// counter is drained inside Wait so a fired wake is consumed exactly
// once; a wake fired before the next Wait makes that Wait return
// immediately.
//
// Wake handles are reference counted. The descriptor is closed only
// when the last Wake and the Waiter have both been closed, so a wake
// racing an agent shutdown never writes to a recycled descriptor.
package wake

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// eventFD is the shared descriptor behind a Wake/Waiter pair.
type eventFD struct {
	fd   int
	refs atomic.Int32
}

func (e *eventFD) release() {
	if e.refs.Add(-1) == 0 {
		unix.Close(e.fd)
	}
}

// Wake is the runtime-side handle. Calling Wake unblocks the paired
// Waiter. Safe for concurrent use.
type Wake struct {
	shared *eventFD
	closed atomic.Bool
}

// Waiter is the thread-side handle, held by a thread agent.
type Waiter struct {
	shared *eventFD
	closed atomic.Bool
}

// NewPair creates a connected Wake/Waiter pair over a fresh eventfd.
func NewPair() (*Wake, *Waiter, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, nil, fmt.Errorf("creating eventfd: %w", err)
	}
	shared := &eventFD{fd: fd}
	shared.refs.Store(2)
	return &Wake{shared: shared}, &Waiter{shared: shared}, nil
}

// Wake increments the event counter, unblocking a pending or future
// Wait. Any positive increment wakes; redundant wakes coalesce into
// the counter and are drained together.
func (w *Wake) Wake() {
	if w.closed.Load() {
		return
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	// EAGAIN means the counter is saturated; the waiter is guaranteed
	// to observe readiness anyway.
	_, _ = unix.Write(w.shared.fd, buf[:])
}

// Clone returns another handle to the same wake descriptor.
func (w *Wake) Clone() *Wake {
	w.shared.refs.Add(1)
	return &Wake{shared: w.shared}
}

// Close releases this handle. The descriptor is closed when the last
// handle is released. Idempotent.
func (w *Wake) Close() {
	if w.closed.CompareAndSwap(false, true) {
		w.shared.release()
	}
}

// Readiness reports which descriptors became ready during a Wait.
type Readiness struct {
	// Device is set when the device descriptor is readable (or has
	// hung up; the subsequent device read surfaces the error).
	Device bool

	// Woken is set when the wake event fired. The event counter has
	// already been drained.
	Woken bool
}

// Wait blocks until the device descriptor or the wake event becomes
// ready, bounded by timeout. A negative timeout blocks indefinitely.
// Returns a zero Readiness when the timeout elapsed.
func (wt *Waiter) Wait(deviceFD int, timeout time.Duration) (Readiness, error) {
	fds := []unix.PollFd{
		{Fd: int32(deviceFD), Events: unix.POLLIN},
		{Fd: int32(wt.shared.fd), Events: unix.POLLIN},
	}
	if err := poll(fds, timeout); err != nil {
		return Readiness{}, err
	}
	var r Readiness
	if fds[0].Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0 {
		r.Device = true
	}
	if fds[1].Revents&unix.POLLIN != 0 {
		r.Woken = true
		wt.drain()
	}
	return r, nil
}

// WaitEvent blocks only on the wake event, bounded by timeout. Returns
// true when the wake fired (counter drained), false on timeout.
func (wt *Waiter) WaitEvent(timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{
		{Fd: int32(wt.shared.fd), Events: unix.POLLIN},
	}
	if err := poll(fds, timeout); err != nil {
		return false, err
	}
	if fds[0].Revents&unix.POLLIN != 0 {
		wt.drain()
		return true, nil
	}
	return false, nil
}

// Close releases the waiter's reference to the descriptor. Idempotent.
func (wt *Waiter) Close() {
	if wt.closed.CompareAndSwap(false, true) {
		wt.shared.release()
	}
}

// drain zeroes the eventfd counter. Without the drain, every
// subsequent Wait would return immediately.
func (wt *Waiter) drain() {
	var buf [8]byte
	for {
		if _, err := unix.Read(wt.shared.fd, buf[:]); err != nil {
			return
		}
	}
}

// poll wraps unix.Poll with EINTR retry and deadline accounting.
func poll(fds []unix.PollFd, timeout time.Duration) error {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		ms := -1
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			ms = int(remaining.Milliseconds())
		}
		_, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		return nil
	}
}
