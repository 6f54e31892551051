// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"errors"
	"time"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/broker"
	"github.com/lumen-devices/lumencore/mcu"
)

// ErrUnhealthy is returned by the health check when any agent is down
// or the MCU does not acknowledge a ping. Per-agent detail is in
// HealthCheck.Status.
var ErrUnhealthy = errors.New("device unhealthy")

// HealthCheck verifies the device end to end: every built agent must
// be alive, and the MCU must acknowledge a ping within PingTimeout.
type HealthCheck struct {
	PingTimeout time.Duration

	// Status maps agent names to their failure, nil for healthy
	// agents. Set when Run returns.
	Status map[string]error
}

func (h *HealthCheck) Name() string { return "health_check" }

func (h *HealthCheck) Run(ctx context.Context, b *broker.Broker) error {
	h.Status = make(map[string]error)
	for _, name := range b.AgentNames() {
		if b.Alive(name) {
			h.Status[name] = nil
			continue
		}
		if err := b.LastError(name); err != nil {
			h.Status[name] = err
		} else {
			h.Status[name] = &agent.GoneError{Name: name}
		}
	}

	if err := h.pingMCU(ctx, b); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.Status[broker.AgentMCU] = err
	}

	for _, err := range h.Status {
		if err != nil {
			return ErrUnhealthy
		}
	}
	return nil
}

// pingMCU subscribes before sending so the acknowledgement cannot be
// missed.
func (h *HealthCheck) pingMCU(ctx context.Context, b *broker.Broker) error {
	sub := b.SubscribeMCUEvents()

	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ack := make(chan error, 1)
	go func() {
		for {
			event, err := sub.Recv(recvCtx)
			if err != nil {
				if isLag(err) {
					continue
				}
				ack <- err
				return
			}
			if event.Kind == mcu.EventAck {
				ack <- nil
				return
			}
		}
	}()

	if err := b.SendMCU(ctx, mcu.Command{Kind: mcu.CommandPing}); err != nil {
		return err
	}
	select {
	case <-b.Clock().After(h.PingTimeout):
		return &agent.TimeoutError{Operation: "mcu_ping"}
	case <-ctx.Done():
		return ctx.Err()
	case err := <-ack:
		return err
	}
}
