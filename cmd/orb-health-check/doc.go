// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// orb-health-check builds a broker over the real hardware, runs the
// health-check plan, and prints one status line per agent. The factory
// and field diagnostics scripts parse the output and branch on the
// exit code.
//
// Exit codes: 0 healthy, 1 unhealthy (per-agent detail on stdout),
// 2 setup error (configuration, device open).
package main
