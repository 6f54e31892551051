// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/lumen-devices/lumencore/lib/codec"
	"github.com/lumen-devices/lumencore/lib/port"
	"github.com/lumen-devices/lumencore/lib/process"
)

const (
	agentEnv = "LUMENCORE_AGENT"
	argsEnv  = "LUMENCORE_AGENT_ARGS"
)

// SpawnProcess starts the process agent registered under name in a
// child created by re-invoking the current executable. args is
// CBOR-encoded and handed to the child's registered constructor.
// Messages cross the child's stdin/stdout as length-prefixed CBOR;
// stderr lines are relayed to the logger. A child exiting abnormally
// records a SubprocessError on the handle.
func SpawnProcess[I, O any](ctx context.Context, logger *slog.Logger, name string, args any, inputCapacity, outputCapacity int) (*Handle[I, O], error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	encoded, err := codec.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding agent args: %w", err)
	}

	cmd := exec.Command(self)
	cmd.Env = append(os.Environ(),
		agentEnv+"="+name,
		argsEnv+"="+base64.StdEncoding.EncodeToString(encoded),
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting agent %s: %w", name, err)
	}

	inner, outer := port.New[I, O](inputCapacity, outputCapacity)
	h, done := newHandle(name, outer)
	h.kill = func() { _ = cmd.Process.Kill() }
	logger.Debug("spawned process agent", "agent", name, "pid", cmd.Process.Pid)

	// Input pump: broker commands travel down the child's stdin.
	go func() {
		defer stdin.Close()
		for {
			m, err := inner.Recv(ctx)
			if err != nil {
				return
			}
			if err := codec.WriteMessage(stdin, m); err != nil {
				logger.Error("agent stdin write failed", "agent", name, "error", err)
				inner.Close()
				return
			}
		}
	}()

	// Output pump: child results travel up its stdout. A frame that
	// fails to decode is terminal; the child is killed rather than
	// resynchronized.
	outputDone := make(chan struct{})
	go func() {
		defer close(outputDone)
		for {
			var m port.Message[O]
			err := codec.ReadMessage(stdout, &m)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				h.setErr(&DecodeError{Name: name, Cause: err})
				_ = cmd.Process.Kill()
				return
			}
			if err := inner.SendChained(ctx, m.Value, m.Chain); err != nil {
				return
			}
		}
	}()

	// Stderr relay: the child's plain-text diagnostics become log
	// records attributed to the agent.
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			logger.Info("agent stderr", "agent", name, "line", scanner.Text())
		}
	}()

	// Reaper. The exit status is recorded only after both stdout and
	// stderr are drained, so a decode error is not masked by the kill
	// it triggered.
	go func() {
		defer close(done)
		<-outputDone
		<-stderrDone
		err := cmd.Wait()
		inner.Close()
		if status, ok := process.ExitStatus(err); ok && status != 0 {
			h.setErr(&SubprocessError{Name: name, Status: status})
			logger.Error("process agent exited", "agent", name, "status", status)
			return
		}
		if err != nil {
			h.setErr(fmt.Errorf("waiting for agent %s: %w", name, err))
			return
		}
		logger.Debug("process agent exited", "agent", name)
	}()

	return h, nil
}
