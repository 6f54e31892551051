// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/broker"
	"github.com/lumen-devices/lumencore/config"
	"github.com/lumen-devices/lumencore/fraud"
	"github.com/lumen-devices/lumencore/lib/logging"
	"github.com/lumen-devices/lumencore/lib/orbid"
	"github.com/lumen-devices/lumencore/lib/process"
	"github.com/lumen-devices/lumencore/lib/version"
	"github.com/lumen-devices/lumencore/mcu"
	"github.com/lumen-devices/lumencore/plan"
	"github.com/lumen-devices/lumencore/sensor"
)

const (
	// sensorBytesPerPixel matches the bridge output: RAW10 in a 16-bit
	// container.
	sensorBytesPerPixel = 2

	captureDuration = 10 * time.Second
	qrScanTimeout   = 2 * time.Minute
	overheatLimit   = 75.0
)

var errFraudRejected = errors.New("signup rejected by fraud pipeline")

func init() {
	// Registered before RunChild so the re-exec'd child finds it.
	sensor.RegisterQRDecoder(broker.AgentQRDecode, sensor.DecodeEmbedded)
}

func main() {
	agent.RunChild()
	if err := run(); err != nil {
		process.FatalCode(exitCode(err), err)
	}
}

func exitCode(err error) int {
	var invalid *config.InvalidError
	switch {
	case errors.As(err, &invalid):
		return 2
	case errors.Is(err, errFraudRejected):
		return 3
	default:
		return 1
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("orb-core", pflag.ContinueOnError)
	configPath := flagSet.StringP("config", "c", "/etc/lumencore/config.toml", "persistent configuration file")
	logLevel := flagSet.String("log-level", "info", "log level: debug, info, warn, error")
	cameraDev := flagSet.String("camera-dev", "/dev/lumen-sensor0", "sensor bridge device")
	mcuDev := flagSet.String("mcu-dev", "/dev/ttyS1", "MCU UART device")
	oneshot := flagSet.Bool("oneshot", false, "run a single signup immediately and exit")
	showVersion := flagSet.Bool("version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("orb-core %s\n", version.Info())
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", *logLevel)
	}
	logger := logging.Init(level)

	cfg, err := config.Load(logger, *configPath)
	if err != nil {
		return err
	}
	region, err := orbid.ParseRegion(cfg.Region)
	if err != nil {
		return &config.InvalidError{Field: "region", Reason: err.Error()}
	}
	pipeline, err := fraud.LoadPipeline(cfg.Fraud.PipelinePath)
	if err != nil {
		return err
	}

	camera, err := sensor.OpenRaw(*cameraDev, cfg.Capture.Width, cfg.Capture.Height, sensorBytesPerPixel)
	if err != nil {
		return err
	}
	link, err := mcu.OpenSerial(*mcuDev)
	if err != nil {
		camera.Close()
		return err
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Livestream.Port))
	if err != nil {
		camera.Close()
		link.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := broker.NewBuilder(logger, config.NewSnapshot(cfg)).
		WithCameraDevice(camera).
		WithMCULink(link).
		WithListener(listener).
		WithQRDecoder().
		WithMonitors().
		Build(ctx)
	if err != nil {
		return err
	}
	defer b.Shutdown(context.Background())

	warmup := &plan.Warmup{Duration: time.Duration(cfg.Capture.WarmupSeconds) * time.Second}
	if err := warmup.Run(ctx, b); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	logger.Info("warmup complete", "frames", warmup.FramesSeen)

	observer := &plan.Observer{Logger: logging.ForPlan("observer"), OverheatCelsius: overheatLimit}
	newSignup := func() *plan.Signup {
		return &plan.Signup{
			Pipeline:        pipeline,
			Region:          region,
			Logger:          logging.ForPlan("signup"),
			Oneshot:         *oneshot,
			CaptureDuration: captureDuration,
			QRTimeout:       qrScanTimeout,
		}
	}

	if *oneshot {
		signup := newSignup()
		if err := plan.WithObserver(ctx, logger, b, signup, observer); err != nil {
			return err
		}
		if !signup.Result.Accepted {
			return errFraudRejected
		}
		return nil
	}

	for ctx.Err() == nil {
		signup := newSignup()
		if err := plan.WithObserver(ctx, logger, b, signup, observer); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("signup plan failed", "error", err)
			continue
		}
		logger.Info("signup complete",
			"accepted", signup.Result.Accepted,
			"records", len(signup.Result.Records),
			"dropped", signup.Result.FramesDropped)
	}
	return nil
}
