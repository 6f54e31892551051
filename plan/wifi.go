// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lumen-devices/lumencore/broker"
	"github.com/lumen-devices/lumencore/ui"
)

// ErrNoNetwork is returned by the WiFi plan after exhausting its
// retries.
var ErrNoNetwork = errors.New("no network")

// Network abstracts the platform's connection manager. The production
// implementation shells out to the system service; tests substitute a
// scripted fake.
type Network interface {
	// LinkUp reports whether the device currently has connectivity.
	LinkUp(ctx context.Context) (bool, error)

	// KnownNetworks lists already-provisioned SSIDs.
	KnownNetworks(ctx context.Context) ([]string, error)

	// Join connects to a known SSID.
	Join(ctx context.Context, ssid string) error

	// Apply provisions and connects to a new network.
	Apply(ctx context.Context, ssid, psk string) error
}

// Credentials supplies an SSID and passphrase for provisioning,
// typically decoded from an operator QR payload or the livestream
// intake.
type Credentials func(ctx context.Context) (ssid, psk string, err error)

// wifiState is the plan's explicit state.
type wifiState int

const (
	wifiCheckLink wifiState = iota
	wifiQueryKnownNetworks
	wifiPrompt
	wifiApply
	wifiVerify
	wifiDone
)

// WiFi provisions network connectivity:
// CheckLink, QueryKnownNetworks, Prompt, Apply, Verify, then Done or a
// bounded retry. Exhausted retries return ErrNoNetwork.
type WiFi struct {
	Net        Network
	Prompt     Credentials
	MaxRetries int
	Logger     *slog.Logger
}

func (w *WiFi) Name() string { return "wifi" }

func (w *WiFi) Run(ctx context.Context, b *broker.Broker) error {
	state := wifiCheckLink
	retries := 0
	var ssid, psk string

	// retry counts one failed attempt and routes back to the prompt.
	retry := func() (wifiState, error) {
		retries++
		if retries > w.MaxRetries {
			return wifiDone, ErrNoNetwork
		}
		return wifiPrompt, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch state {
		case wifiCheckLink:
			up, err := w.Net.LinkUp(ctx)
			if err != nil {
				return fmt.Errorf("checking link: %w", err)
			}
			if up {
				state = wifiDone
				continue
			}
			state = wifiQueryKnownNetworks

		case wifiQueryKnownNetworks:
			known, err := w.Net.KnownNetworks(ctx)
			if err != nil {
				return fmt.Errorf("querying known networks: %w", err)
			}
			if len(known) > 0 {
				if err := w.Net.Join(ctx, known[0]); err != nil {
					w.Logger.Warn("joining known network failed", "ssid", known[0], "error", err)
					state = wifiPrompt
					continue
				}
				state = wifiVerify
				continue
			}
			state = wifiPrompt

		case wifiPrompt:
			b.UI.Show(ui.EventNetworkRequired)
			var err error
			ssid, psk, err = w.Prompt(ctx)
			if err != nil {
				return fmt.Errorf("prompting for credentials: %w", err)
			}
			state = wifiApply

		case wifiApply:
			if err := w.Net.Apply(ctx, ssid, psk); err != nil {
				w.Logger.Warn("applying network failed", "ssid", ssid, "error", err)
				var retryErr error
				if state, retryErr = retry(); retryErr != nil {
					return retryErr
				}
				continue
			}
			state = wifiVerify

		case wifiVerify:
			up, err := w.Net.LinkUp(ctx)
			if err != nil {
				return fmt.Errorf("verifying link: %w", err)
			}
			if up {
				state = wifiDone
				continue
			}
			var retryErr error
			if state, retryErr = retry(); retryErr != nil {
				return retryErr
			}

		case wifiDone:
			return nil
		}
	}
}
