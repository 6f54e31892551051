// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// orb-core is the main device binary. It builds the broker over the
// real hardware (sensor bridge, MCU UART, livestream listener, QR
// decoder subprocess, monitors), runs the warmup plan, and then drives
// the signup master plan in a loop with the observer overlaid. With
// --oneshot it runs a single signup immediately and exits, mapping a
// fraud-positive outcome to exit code 3.
//
// The binary re-execs itself to host the qr-decode process agent; the
// child invocation is selected by the LUMENCORE_AGENT environment
// variable and never reaches the normal flow.
//
// Exit codes: 0 success, 1 runtime error, 2 invalid configuration,
// 3 signup rejected by the fraud pipeline (oneshot only).
package main
