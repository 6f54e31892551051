// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers shared by the
// orb-core, orb-health-check, and orb-backend-connect binaries: fatal
// error reporting before the structured logger exists, and exit status
// decoding for process-agent children.
package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// FatalCode writes "error: err" to stderr and exits with the given
// code. The top-level binaries map error kinds to categorized exit
// codes with this.
func FatalCode(code int, err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(code)
}

// ExitStatus extracts the exit status from an error returned by
// exec.Cmd.Wait. A child killed by a signal is reported as 128+signal,
// following shell convention. The bool is false when err carries no
// exit status (startup failure, I/O error).
func ExitStatus(err error) (int, bool) {
	var exitError *exec.ExitError
	if !errors.As(err, &exitError) {
		return 0, false
	}
	if code := exitError.ExitCode(); code >= 0 {
		return code, true
	}
	if status, ok := exitError.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), true
	}
	return 0, true
}
