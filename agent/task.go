// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"log/slog"

	"github.com/lumen-devices/lumencore/lib/port"
)

// SpawnTask starts a task agent on a fresh goroutine and returns the
// broker-side handle. The port closes when the agent returns.
func SpawnTask[I, O any](ctx context.Context, logger *slog.Logger, a Task[I, O], inputCapacity, outputCapacity int) *Handle[I, O] {
	inner, outer := port.New[I, O](inputCapacity, outputCapacity)
	h, done := newHandle(a.Name(), outer)

	logger.Debug("spawning task agent", "agent", a.Name())
	go func() {
		defer close(done)
		defer inner.Close()
		err := guard(func() error { return a.RunTask(ctx, inner) })
		finish(logger, h, err)
	}()
	return h
}
