// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package broker owns all live agents and their outer ports.
//
// The broker is built once at startup from a Builder carrying the
// shared configuration snapshot, the actuator handles, and optionally
// fake ports substituted for real agents in tests. Plans borrow the
// broker while running: they drive agent ports directly, so the
// topology (which agent feeds which) is explicit in the plan rather
// than hidden in broker fan-out.
//
// Telemetry-shaped outputs (MCU events, monitor samples, livestream
// events) are the exception: several consumers need them at once, so
// the broker pumps them into bounded broadcast channels. A lagging
// subscriber gets a lag notification instead of silently
// desynchronizing.
//
// An agent's death closes its outer port; every operation on the
// handle afterwards reports the agent gone, and the broker keeps the
// terminal error for the health check. Handles are never reused.
package broker
