// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lumen-devices/lumencore/broker"
	"github.com/lumen-devices/lumencore/led"
	"github.com/lumen-devices/lumencore/lib/broadcast"
	"github.com/lumen-devices/lumencore/livestream"
	"github.com/lumen-devices/lumencore/mcu"
	"github.com/lumen-devices/lumencore/monitor"
	"github.com/lumen-devices/lumencore/ui"
)

// Observer is the long-lived shadow plan. It watches telemetry and
// surface signals while the main plan runs: MCU sensor readings and
// monitor samples become log records, remote UI events from the
// livestream intake are mirrored to the local UI, and an overheating
// MCU flips the LED to the error pattern. It holds no state the main
// plan depends on and is cancelled at the main plan's completion.
type Observer struct {
	Logger *slog.Logger

	// OverheatCelsius is the temperature above which the observer
	// raises the error pattern. Zero disables the check.
	OverheatCelsius float64
}

func (o *Observer) Name() string { return "observer" }

// Run watches until ctx is cancelled, draining every subscription on
// a fixed cadence. Subscription lag is expected under load and only
// logged.
func (o *Observer) Run(ctx context.Context, b *broker.Broker) error {
	mcuSub := b.SubscribeMCUEvents()
	sampleSub := b.SubscribeSamples()
	intakeSub := b.SubscribeIntake()
	uiSub := b.UI.Subscribe()

	ticker := b.Clock().NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		o.drainMCU(b, mcuSub)
		o.drainSamples(sampleSub)
		o.drainIntake(b, intakeSub)
		o.drainUI(uiSub)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func isLag(err error) bool {
	var lagged *broadcast.LaggedError
	return errors.As(err, &lagged)
}

func (o *Observer) drainMCU(b *broker.Broker, sub *broadcast.Receiver[mcu.Event]) bool {
	progress := false
	for {
		event, ok, err := sub.TryRecv()
		if err != nil {
			if isLag(err) {
				o.Logger.Debug("observer lagged on mcu events", "error", err)
				continue
			}
			return progress
		}
		if !ok {
			return progress
		}
		progress = true
		o.Logger.Debug("mcu event", "kind", event.Kind, "value", event.Value)
		if event.Kind == mcu.EventTemperature && o.OverheatCelsius > 0 && event.Value >= o.OverheatCelsius {
			o.Logger.Warn("temperature above limit", "celsius", event.Value)
			b.LED.Set(led.PatternError)
		}
	}
}

func (o *Observer) drainSamples(sub *broadcast.Receiver[monitor.Sample]) bool {
	progress := false
	for {
		sample, ok, err := sub.TryRecv()
		if err != nil {
			if isLag(err) {
				continue
			}
			return progress
		}
		if !ok {
			return progress
		}
		progress = true
		o.Logger.Debug("monitor sample", "source", sample.Source, "values", sample.Values)
	}
}

func (o *Observer) drainIntake(b *broker.Broker, sub *broadcast.Receiver[livestream.Event]) bool {
	progress := false
	for {
		event, ok, err := sub.TryRecv()
		if err != nil {
			if isLag(err) {
				continue
			}
			return progress
		}
		if !ok {
			return progress
		}
		progress = true
		switch event.Kind {
		case livestream.EventConnected:
			o.Logger.Info("operator app connected", "addr", event.Addr)
		case livestream.EventClosed:
			o.Logger.Info("operator app disconnected")
		case livestream.EventUIEvents:
			for _, remote := range event.Events {
				o.Logger.Debug("remote ui event", "type", remote.Type, "target", remote.Target)
			}
		}
	}
}

func (o *Observer) drainUI(sub *broadcast.Receiver[ui.Event]) bool {
	progress := false
	for {
		event, ok, err := sub.TryRecv()
		if err != nil {
			if isLag(err) {
				continue
			}
			return progress
		}
		if !ok {
			return progress
		}
		progress = true
		o.Logger.Debug("ui state", "kind", event.Kind, "detail", event.Detail)
	}
}
