// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package sensor owns the camera capture path: shared immutable
// frames, the camera thread agent, rotation into display orientation,
// and the frame notary.
//
// Frames travel the hottest edges in the system. The camera agent
// emits them with drop-on-full semantics so a lagging consumer costs
// frames at the sensor, never unbounded memory downstream. Frame
// payloads are shared by pointer and immutable by contract: no
// consumer may write to Pixels.
//
// Rotation happens inside the camera agent's thread, next to the
// device read. Plans never touch pixels.
package sensor
