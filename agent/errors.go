// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import "fmt"

// GoneError reports that a required agent's port is closed. Cause
// carries the agent's terminal error when one was recorded.
type GoneError struct {
	Name  string
	Cause error
}

func (e *GoneError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("agent %s gone: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("agent %s gone", e.Name)
}

func (e *GoneError) Unwrap() error { return e.Cause }

// TimeoutError reports that a named operation exceeded its deadline.
type TimeoutError struct {
	Operation string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s", e.Operation)
}

// SubprocessError reports that a process agent's child exited
// abnormally.
type SubprocessError struct {
	Name   string
	Status int
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("process agent %s exited with status %d", e.Name, e.Status)
}

// DecodeError reports that a framed payload failed binary schema
// validation. For a process agent this is terminal: the child is
// killed and the outer port closes.
type DecodeError struct {
	Name  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("agent %s payload decode failed: %v", e.Name, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// HardwareError reports that opening or attaching a device failed
// terminally.
type HardwareError struct {
	Device string
	Cause  error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("hardware %s unreachable: %v", e.Device, e.Cause)
}

func (e *HardwareError) Unwrap() error { return e.Cause }
