// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/lumen-devices/lumencore/broker"
	"github.com/lumen-devices/lumencore/config"
	"github.com/lumen-devices/lumencore/lib/logging"
	"github.com/lumen-devices/lumencore/lib/version"
	"github.com/lumen-devices/lumencore/mcu"
	"github.com/lumen-devices/lumencore/plan"
	"github.com/lumen-devices/lumencore/sensor"
)

const (
	sensorBytesPerPixel = 2
	pingTimeout         = 2 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	flagSet := pflag.NewFlagSet("orb-health-check", pflag.ContinueOnError)
	configPath := flagSet.StringP("config", "c", "/etc/lumencore/config.toml", "persistent configuration file")
	cameraDev := flagSet.String("camera-dev", "/dev/lumen-sensor0", "sensor bridge device")
	mcuDev := flagSet.String("mcu-dev", "/dev/ttyS1", "MCU UART device")
	showVersion := flagSet.Bool("version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if *showVersion {
		fmt.Printf("orb-health-check %s\n", version.Info())
		return 0
	}

	logger := logging.Init(slog.LevelWarn)
	cfg, err := config.Load(logger, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	camera, err := sensor.OpenRaw(*cameraDev, cfg.Capture.Width, cfg.Capture.Height, sensorBytesPerPixel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	link, err := mcu.OpenSerial(*mcuDev)
	if err != nil {
		camera.Close()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	b, err := broker.NewBuilder(logger, config.NewSnapshot(cfg)).
		WithCameraDevice(camera).
		WithMCULink(link).
		WithMonitors().
		Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	defer b.Shutdown(context.Background())

	check := &plan.HealthCheck{PingTimeout: pingTimeout}
	runErr := check.Run(ctx, b)

	names := make([]string, 0, len(check.Status))
	for name := range check.Status {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if status := check.Status[name]; status != nil {
			fmt.Printf("%s: %v\n", name, status)
		} else {
			fmt.Printf("%s: ok\n", name)
		}
	}

	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, plan.ErrUnhealthy):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		return 2
	}
}
