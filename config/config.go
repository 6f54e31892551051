// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads and persists the orb's TOML configuration.
//
// The file is read once at startup. A missing or unparseable file
// falls back to the documented defaults so a corrupted flash partition
// degrades the device instead of bricking it. A remote refresh
// overwrites the local copy atomically before the rest of the system
// boots further.
package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// InvalidError reports a rejected configuration field.
type InvalidError struct {
	Field  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("configuration invalid: %s: %s", e.Field, e.Reason)
}

// Config is the orb's persistent configuration.
type Config struct {
	// Region selects the record-identifier region code.
	Region string `toml:"region"`

	Backend    Backend    `toml:"backend"`
	Capture    Capture    `toml:"capture"`
	Livestream Livestream `toml:"livestream"`
	Fraud      Fraud      `toml:"fraud"`
	Sound      Sound      `toml:"sound"`
	Shutdown   Shutdown   `toml:"shutdown"`
}

// Backend locates the signup backend.
type Backend struct {
	URL            string   `toml:"url"`
	ConnectTimeout duration `toml:"connect_timeout"`
}

// Capture configures the camera sensors.
type Capture struct {
	FrameRate int `toml:"frame_rate"`
	Width     int `toml:"width"`
	Height    int `toml:"height"`

	// Rotation is the clockwise rotation, in degrees, applied inside
	// the sensor agent to bring raw frames into display orientation.
	Rotation int `toml:"rotation"`

	// WarmupSeconds is how long the warmup plan runs the cameras
	// before a signup.
	WarmupSeconds int `toml:"warmup_seconds"`
}

// Livestream configures the TCP event intake.
type Livestream struct {
	Port int `toml:"port"`
}

// Fraud locates the check pipeline definition.
type Fraud struct {
	PipelinePath string `toml:"pipeline_path"`
}

// Sound configures the audio actuator.
type Sound struct {
	Volume int `toml:"volume"`
}

// Shutdown bounds the broker drain at shutdown.
type Shutdown struct {
	DrainTimeout duration `toml:"drain_timeout"`
}

// duration makes time.Duration TOML-encodable as a string like "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the documented fallback configuration.
func Default() Config {
	return Config{
		Region: "europe",
		Backend: Backend{
			URL:            "https://signup.example.org",
			ConnectTimeout: duration{10 * time.Second},
		},
		Capture: Capture{
			FrameRate:     30,
			Width:         1280,
			Height:        960,
			Rotation:      0,
			WarmupSeconds: 30,
		},
		Livestream: Livestream{Port: 9771},
		Fraud:      Fraud{PipelinePath: "/etc/lumencore/fraud.yaml"},
		Sound:      Sound{Volume: 80},
		Shutdown:   Shutdown{DrainTimeout: duration{5 * time.Second}},
	}
}

// Validate rejects configurations the rest of the system cannot run
// with.
func (c Config) Validate() error {
	if c.Region == "" {
		return &InvalidError{Field: "region", Reason: "empty"}
	}
	if c.Capture.FrameRate <= 0 {
		return &InvalidError{Field: "capture.frame_rate", Reason: "must be positive"}
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return &InvalidError{Field: "capture.width", Reason: "dimensions must be positive"}
	}
	switch c.Capture.Rotation {
	case 0, 90, 180, 270:
	default:
		return &InvalidError{Field: "capture.rotation", Reason: "must be 0, 90, 180, or 270"}
	}
	if c.Livestream.Port < 0 || c.Livestream.Port > 65535 {
		return &InvalidError{Field: "livestream.port", Reason: "out of range"}
	}
	return nil
}

// Load reads the configuration file. A missing or unparseable file is
// logged and replaced with the defaults; an invalid but well-formed
// file is an error, since silently discarding operator intent would
// mask misconfiguration.
func Load(logger *slog.Logger, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("config file unreadable, using defaults", "path", path, "error", err)
		return Default(), nil
	}
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		logger.Warn("config file unparseable, using defaults", "path", path, "error", err)
		return Default(), nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Store persists the configuration atomically: write a temp file in
// the same directory, fsync, rename over the target.
func Store(cfg Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// Fetcher retrieves the remote configuration during boot.
type Fetcher interface {
	Fetch(ctx context.Context) (Config, error)
}

// Refresh fetches the remote configuration and overwrites the local
// copy atomically. A fetch failure leaves the local file untouched and
// returns the error; the caller decides whether to boot on the stale
// copy.
func Refresh(ctx context.Context, logger *slog.Logger, f Fetcher, path string) (Config, error) {
	cfg, err := f.Fetch(ctx)
	if err != nil {
		return Config{}, fmt.Errorf("fetching remote config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := Store(cfg, path); err != nil {
		return Config{}, err
	}
	logger.Info("config refreshed", "path", path)
	return cfg, nil
}
