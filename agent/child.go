// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lumen-devices/lumencore/lib/codec"
	"github.com/lumen-devices/lumencore/lib/port"
	"github.com/lumen-devices/lumencore/lib/process"
)

var (
	registryMu sync.Mutex
	registry   = map[string]func(args []byte) error{}
)

// RegisterProcess makes a process agent spawnable under its name. The
// constructor receives the CBOR args the parent passed to
// SpawnProcess. Call from an init function of the package defining the
// agent; every binary that spawns the agent must also link it.
func RegisterProcess[I, O any](name string, construct func(args []byte) (Process[I, O], error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("agent: duplicate process registration %q", name))
	}
	registry[name] = func(args []byte) error {
		a, err := construct(args)
		if err != nil {
			return fmt.Errorf("constructing agent %s: %w", name, err)
		}
		return runChild(a)
	}
}

// RunChild checks whether this invocation is a re-exec'd process-agent
// child and, if so, runs the agent and exits the process. Must be the
// first call in main of every binary that spawns process agents; it
// returns (without effect) in the parent.
func RunChild() {
	name := os.Getenv(agentEnv)
	if name == "" {
		return
	}
	args, err := base64.StdEncoding.DecodeString(os.Getenv(argsEnv))
	if err != nil {
		process.Fatal(fmt.Errorf("decoding agent args: %w", err))
	}
	registryMu.Lock()
	run, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		process.Fatal(fmt.Errorf("unknown process agent %q", name))
	}
	if err := run(args); err != nil {
		process.Fatal(err)
	}
	os.Exit(0)
}

// runChild bridges the child's stdin/stdout pipes onto a local port
// pair and drives the agent against it.
func runChild[I, O any](a Process[I, O]) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inner, outer := port.New[I, O](1, 1)

	// Parent commands arrive on stdin; EOF means the parent closed
	// the port and the agent should wind down.
	go func() {
		defer outer.Close()
		for {
			var m port.Message[I]
			if err := codec.ReadMessage(os.Stdin, &m); err != nil {
				if err != io.EOF {
					fmt.Fprintf(os.Stderr, "reading command frame: %v\n", err)
				}
				return
			}
			if err := outer.SendChained(ctx, m.Value, m.Chain); err != nil {
				return
			}
		}
	}()

	// Agent output goes back up stdout, one frame per message.
	outputDone := make(chan struct{})
	go func() {
		defer close(outputDone)
		for {
			m, err := outer.Recv(ctx)
			if err != nil {
				return
			}
			if err := codec.WriteMessage(os.Stdout, m); err != nil {
				cancel()
				return
			}
		}
	}()

	err := guard(func() error { return a.RunProcess(ctx, inner) })
	inner.Close()
	<-outputDone
	return err
}
