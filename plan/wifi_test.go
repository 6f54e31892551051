// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/lumen-devices/lumencore/lib/logging"
)

// scriptedNet is a Network whose link comes up after a successful
// Apply or Join.
type scriptedNet struct {
	up       bool
	known    []string
	joinErr  error
	applyErr error

	joins   int
	applies int
}

func (n *scriptedNet) LinkUp(ctx context.Context) (bool, error) { return n.up, nil }

func (n *scriptedNet) KnownNetworks(ctx context.Context) ([]string, error) { return n.known, nil }

func (n *scriptedNet) Join(ctx context.Context, ssid string) error {
	n.joins++
	if n.joinErr != nil {
		return n.joinErr
	}
	n.up = true
	return nil
}

func (n *scriptedNet) Apply(ctx context.Context, ssid, psk string) error {
	n.applies++
	if n.applyErr != nil {
		return n.applyErr
	}
	n.up = true
	return nil
}

func staticCredentials(ssid, psk string, count *int) Credentials {
	return func(ctx context.Context) (string, string, error) {
		if count != nil {
			*count++
		}
		return ssid, psk, nil
	}
}

func TestWiFiLinkAlreadyUp(t *testing.T) {
	b, _ := buildTestBroker(t, nil)
	net := &scriptedNet{up: true}

	prompts := 0
	w := &WiFi{
		Net:        net,
		Prompt:     staticCredentials("lab", "secret", &prompts),
		MaxRetries: 2,
		Logger:     logging.Discard(),
	}
	if err := w.Run(context.Background(), b); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if prompts != 0 || net.applies != 0 {
		t.Errorf("prompts=%d applies=%d, want no provisioning on a live link", prompts, net.applies)
	}
}

func TestWiFiJoinsKnownNetwork(t *testing.T) {
	b, _ := buildTestBroker(t, nil)
	net := &scriptedNet{known: []string{"lab"}}

	prompts := 0
	w := &WiFi{
		Net:        net,
		Prompt:     staticCredentials("lab", "secret", &prompts),
		MaxRetries: 2,
		Logger:     logging.Discard(),
	}
	if err := w.Run(context.Background(), b); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if net.joins != 1 || prompts != 0 {
		t.Errorf("joins=%d prompts=%d, want one join and no prompt", net.joins, prompts)
	}
}

func TestWiFiProvisionsNewNetwork(t *testing.T) {
	b, _ := buildTestBroker(t, nil)
	net := &scriptedNet{}

	prompts := 0
	w := &WiFi{
		Net:        net,
		Prompt:     staticCredentials("lab", "secret", &prompts),
		MaxRetries: 2,
		Logger:     logging.Discard(),
	}
	if err := w.Run(context.Background(), b); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if prompts != 1 || net.applies != 1 {
		t.Errorf("prompts=%d applies=%d, want one prompt and one apply", prompts, net.applies)
	}
}

func TestWiFiExhaustsRetries(t *testing.T) {
	b, _ := buildTestBroker(t, nil)
	net := &scriptedNet{applyErr: errors.New("association failed")}

	prompts := 0
	w := &WiFi{
		Net:        net,
		Prompt:     staticCredentials("lab", "secret", &prompts),
		MaxRetries: 2,
		Logger:     logging.Discard(),
	}
	err := w.Run(context.Background(), b)
	if !errors.Is(err, ErrNoNetwork) {
		t.Fatalf("Run = %v, want ErrNoNetwork", err)
	}
	// The initial attempt plus MaxRetries re-prompts.
	if prompts != 3 || net.applies != 3 {
		t.Errorf("prompts=%d applies=%d, want 3 of each", prompts, net.applies)
	}
}
