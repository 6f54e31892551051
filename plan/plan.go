// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package plan contains the workflow state machines that drive the
// broker: warmup, QR scan, WiFi provisioning, health check, and the
// signup master plan.
//
// A plan borrows the broker while running and owns nothing: cancelling
// a plan cancels its subscriptions and helper goroutines but never
// kills agents. Every wait a plan performs carries an explicit
// timeout; there are no implicit deadlines. Plans leave the actuators
// in the documented default state through Broker.ResetHardware.
package plan

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lumen-devices/lumencore/broker"
)

// Runner is the uniform plan surface used by the composition
// primitives. Typed outcomes live on the concrete plan structs;
// callers read them after Run returns.
type Runner interface {
	// Name identifies the plan in logs and timeout errors.
	Name() string

	// Run drives the plan to completion or error. Cancelling ctx must
	// stop the plan promptly and leave the borrowed agents in a
	// consistent state.
	Run(ctx context.Context, b *broker.Broker) error
}

// First runs all plans concurrently and returns the name and error of
// the first to finish. The losers are cancelled and awaited before
// First returns, so no plan outlives the call.
func First(ctx context.Context, b *broker.Broker, plans ...Runner) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(plans))
	var wg sync.WaitGroup
	for _, p := range plans {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- result{name: p.Name(), err: p.Run(ctx, b)}
		}()
	}

	winner := <-results
	cancel()
	wg.Wait()
	return winner.name, winner.err
}

// WithObserver runs main with observer overlaid. The observer is
// cancelled when main completes; its own outcome never affects main's.
// An observer that fails early is logged and main continues.
func WithObserver(ctx context.Context, logger *slog.Logger, b *broker.Broker, main, observer Runner) error {
	obsCtx, cancelObs := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := observer.Run(obsCtx, b); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("observer plan failed", "plan", observer.Name(), "error", err)
		}
	}()

	err := main.Run(ctx, b)
	cancelObs()
	<-done
	return err
}
