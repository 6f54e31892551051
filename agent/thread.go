// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"log/slog"
	"runtime"

	"github.com/lumen-devices/lumencore/lib/port"
	"github.com/lumen-devices/lumencore/lib/wake"
)

// SpawnThread starts a thread agent on a dedicated OS thread. Input
// enqueued through the handle fires the agent's wake descriptor, so a
// thread blocked in poll(2) on its device observes the arrival without
// a timeout race. Closing the port also fires the wake.
func SpawnThread[I, O any](logger *slog.Logger, a Thread[I, O], inputCapacity, outputCapacity int) (*Handle[I, O], error) {
	inner, outer := port.New[I, O](inputCapacity, outputCapacity)
	wk, waiter, err := wake.NewPair()
	if err != nil {
		return nil, err
	}
	outer.OnInputSend(wk.Wake)
	h, done := newHandle(a.Name(), outer)

	logger.Debug("spawning thread agent", "agent", a.Name())
	go func() {
		runtime.LockOSThread()
		// The thread is not unlocked: an agent that wedged a native
		// library on it must not have its thread recycled.
		defer close(done)
		defer func() {
			inner.Close()
			waiter.Close()
			wk.Close()
		}()
		err := guard(func() error { return a.RunThread(inner, waiter) })
		finish(logger, h, err)
	}()
	return h, nil
}
