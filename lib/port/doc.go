// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package port provides the bounded, typed channel pair that connects
// an agent to the broker.
//
// A port is two independent single-producer single-consumer queues: one
// carrying the agent's input type, one carrying its output type. The
// agent holds the Inner end, the broker holds the Outer end. Each
// message is tagged with a per-queue monotonically increasing sequence
// number and an optional chain identifier for correlating derived
// messages (a frame and the inference output computed from it).
//
// Send semantics are selected per call site:
//
//   - TrySend fails with ErrFull when the queue is at capacity.
//   - Send suspends until space is available, the port closes, or the
//     context is cancelled.
//   - SendNow drops the new message when the queue is full and returns
//     success. This is the back-pressure policy for frame streams:
//     sensors never block, consumers see the most recent arrivals, and
//     the drop is observable through the per-queue drop counter.
//
// A capacity of zero makes the queue a rendezvous point: a send
// succeeds only while the peer is actively receiving.
//
// Closing either end closes the whole port. Close is idempotent and
// wakes all pending operations; a receiver drains at most one in-flight
// message before observing ErrClosed.
package port
