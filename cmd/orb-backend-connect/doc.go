// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// orb-backend-connect verifies that the configured backend is
// reachable: it resolves the backend URL from the persistent
// configuration and opens a TCP connection within the configured
// connect timeout. Provisioning scripts run it after WiFi setup to
// confirm end-to-end connectivity before handing the device to an
// operator.
//
// Exit codes: 0 reachable, 1 unreachable, 2 configuration error.
package main
