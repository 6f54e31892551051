// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging initializes the process-wide structured log sink.
// Init is idempotent: the first call wins, later calls return the same
// logger. This is the only process-wide mutable state in the core
// besides the certificate store setup in the backend client.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	initOnce sync.Once
	root     *slog.Logger
)

// Init configures the process-wide JSON logger on stderr at the given
// level and installs it as the slog default. Idempotent; returns the
// root logger.
func Init(level slog.Level) *slog.Logger {
	initOnce.Do(func() {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		root = slog.New(handler)
		slog.SetDefault(root)
	})
	return root
}

// ForAgent returns a logger tagging every record with the agent name.
func ForAgent(name string) *slog.Logger {
	return Logger().With("agent", name)
}

// ForPlan returns a logger tagging every record with the plan name.
func ForPlan(name string) *slog.Logger {
	return Logger().With("plan", name)
}

// Logger returns the root logger, initializing at Info level if Init
// has not run yet.
func Logger() *slog.Logger {
	return Init(slog.LevelInfo)
}

// Discard returns a logger that drops everything. For tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
