// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"

	"github.com/spf13/pflag"

	"github.com/lumen-devices/lumencore/config"
	"github.com/lumen-devices/lumencore/lib/logging"
	"github.com/lumen-devices/lumencore/lib/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	flagSet := pflag.NewFlagSet("orb-backend-connect", pflag.ContinueOnError)
	configPath := flagSet.StringP("config", "c", "/etc/lumencore/config.toml", "persistent configuration file")
	showVersion := flagSet.Bool("version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if *showVersion {
		fmt.Printf("orb-backend-connect %s\n", version.Info())
		return 0
	}

	logger := logging.Init(slog.LevelWarn)
	cfg, err := config.Load(logger, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	address, err := backendAddress(cfg.Backend.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	conn, err := net.DialTimeout("tcp", address, cfg.Backend.ConnectTimeout.Duration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend unreachable: %v\n", err)
		return 1
	}
	conn.Close()
	fmt.Printf("backend reachable: %s\n", address)
	return 0
}

// backendAddress extracts host:port from the backend URL, filling the
// scheme's default port.
func backendAddress(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing backend url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("backend url %q has no host", raw)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	switch u.Scheme {
	case "http":
		return net.JoinHostPort(u.Hostname(), "80"), nil
	case "https", "":
		return net.JoinHostPort(u.Hostname(), "443"), nil
	default:
		return "", fmt.Errorf("backend url scheme %q has no default port", u.Scheme)
	}
}
