// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent defines the unit of computation of the orb core and
// its three execution substrates.
//
// An agent is a named unit with one input type and one output type,
// connected to the broker through a bounded port pair (lib/port). The
// substrate is chosen by how the agent interacts with the outside
// world:
//
//   - Task agents run as goroutines on the shared runtime. They
//     suspend only at port operations and timers and must not make
//     unbounded blocking syscalls. Routing work: the MCU parser,
//     monitors, the livestream intake.
//   - Thread agents own a locked OS thread and may block in native
//     syscalls. They multiplex their device descriptor with a wake
//     descriptor (lib/wake), so input enqueued by the broker unblocks
//     a pending poll(2). Driver adapters: cameras, serial links.
//   - Process agents run in a child process created by re-invoking
//     the current binary with a selector environment variable.
//     Messages cross the pipe as length-prefixed CBOR. A segfault in
//     crash-prone native inference code loses one worker and one
//     frame, not the whole system.
//
// An agent terminates by returning from its run entry point, by its
// port closing, or with an error. Termination closes the outer port;
// the broker observes the error through the handle and never reuses
// the handle afterwards.
package agent
