// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/broker"
	"github.com/lumen-devices/lumencore/sensor"
	"github.com/lumen-devices/lumencore/sound"
	"github.com/lumen-devices/lumencore/ui"
)

// QRKind selects the scan schema.
type QRKind string

const (
	// QROperator expects an operator badge payload, "op:<id>".
	QROperator QRKind = "operator"

	// QRUser expects a user session payload, "usr:<token>".
	QRUser QRKind = "user"
)

// prefix returns the payload prefix this kind accepts.
func (k QRKind) prefix() string {
	if k == QROperator {
		return "op:"
	}
	return "usr:"
}

// QRScan runs the camera, feeds frames to the QR decoder, and waits
// for a payload matching the requested schema. Payloads of the wrong
// schema are ignored and scanning continues.
//
// On timeout the plan returns timeout("qr_scan") and leaves the camera
// port open: the caller decides whether to retry or reset.
type QRScan struct {
	Kind    QRKind
	Timeout time.Duration

	// Payload is the accepted payload with the schema prefix removed,
	// set when Run returns nil.
	Payload string
}

func (q *QRScan) Name() string { return "qr_scan" }

func (q *QRScan) Run(ctx context.Context, b *broker.Broker) error {
	rgb, err := b.RGB()
	if err != nil {
		return err
	}
	qr, err := b.QR()
	if err != nil {
		return err
	}

	switch q.Kind {
	case QROperator:
		b.UI.Show(ui.EventQRScanOperator)
	default:
		b.UI.Show(ui.EventQRScanUser)
	}
	if err := rgb.Send(ctx, sensor.Command{Kind: sensor.CommandStart}); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Frame pump: camera to decoder, drop-on-full so a slow decoder
	// costs frames, not memory.
	go func() {
		for {
			m, err := rgb.Recv(runCtx)
			if err != nil {
				return
			}
			if err := qr.SendNowChained(m.Value, m.Seq); err != nil {
				return
			}
		}
	}()

	type decoded struct {
		payload string
		err     error
	}
	results := make(chan decoded, 1)
	go func() {
		for {
			m, err := qr.Recv(runCtx)
			if err != nil {
				results <- decoded{err: err}
				return
			}
			if strings.HasPrefix(m.Value, q.Kind.prefix()) {
				results <- decoded{payload: strings.TrimPrefix(m.Value, q.Kind.prefix())}
				return
			}
		}
	}()

	select {
	case <-b.Clock().After(q.Timeout):
		return &agent.TimeoutError{Operation: "qr_scan"}
	case <-ctx.Done():
		return ctx.Err()
	case r := <-results:
		if r.err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("qr scan: %w", r.err)
		}
		q.Payload = r.payload
		b.UI.Show(ui.EventQRScanAccepted)
		b.Sound.Play(sound.CueQRAccepted)
		return nil
	}
}
