// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"time"

	"github.com/lumen-devices/lumencore/broker"
	"github.com/lumen-devices/lumencore/sensor"
)

// Warmup runs the camera for a fixed interval so the sensor reaches
// thermal steady state before a signup. Frames are consumed and
// discarded; the plan only cares that the device streams.
type Warmup struct {
	Duration time.Duration

	// FramesSeen is set when Run returns.
	FramesSeen int
}

func (w *Warmup) Name() string { return "warmup" }

func (w *Warmup) Run(ctx context.Context, b *broker.Broker) error {
	rgb, err := b.RGB()
	if err != nil {
		return err
	}
	if err := rgb.Send(ctx, sensor.Command{Kind: sensor.CommandStart}); err != nil {
		return err
	}

	clk := b.Clock()
	end := clk.Now().Add(w.Duration)
	for clk.Now().Before(end) {
		_, ok, err := rgb.TryRecv()
		if err != nil {
			return err
		}
		if ok {
			w.FramesSeen++
			continue
		}
		// Nothing pending; yield until more frames arrive.
		select {
		case <-clk.After(10 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Stop on a fresh context so cancellation does not leave the
	// device streaming.
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return rgb.Send(stopCtx, sensor.Command{Kind: sensor.CommandStop})
}
