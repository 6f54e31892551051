// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package agent_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lumen-devices/lumencore/agent"
	"github.com/lumen-devices/lumencore/lib/codec"
	"github.com/lumen-devices/lumencore/lib/logging"
	"github.com/lumen-devices/lumencore/lib/port"
	"github.com/lumen-devices/lumencore/lib/wake"
)

func TestMain(m *testing.M) {
	agent.RunChild()
	os.Exit(m.Run())
}

// echoTask doubles every input.
type echoTask struct{}

func (echoTask) Name() string { return "echo-task" }

func (echoTask) RunTask(ctx context.Context, p *port.Inner[int, int]) error {
	for {
		m, err := p.Recv(ctx)
		if err != nil {
			return err
		}
		if err := p.SendChained(ctx, m.Value*2, m.Seq); err != nil {
			return err
		}
	}
}

func TestTaskAgentEchoes(t *testing.T) {
	ctx := context.Background()
	h := agent.SpawnTask[int, int](ctx, logging.Discard(), echoTask{}, 4, 4)

	for i := 0; i < 5; i++ {
		if err := h.Send(ctx, i); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
		m, err := h.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if m.Value != i*2 {
			t.Errorf("Recv = %d, want %d", m.Value, i*2)
		}
		if m.Chain != uint64(i) {
			t.Errorf("Chain = %d, want %d", m.Chain, i)
		}
	}

	h.Close()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("Wait after clean close: %v", err)
	}
}

// failTask terminates with an error on its first input.
type failTask struct{}

func (failTask) Name() string { return "fail-task" }

func (failTask) RunTask(ctx context.Context, p *port.Inner[int, int]) error {
	if _, err := p.Recv(ctx); err != nil {
		return err
	}
	return errors.New("deliberate failure")
}

func TestTaskAgentErrorSurfacesAsGone(t *testing.T) {
	ctx := context.Background()
	h := agent.SpawnTask[int, int](ctx, logging.Discard(), failTask{}, 1, 1)

	if err := h.Send(ctx, 1); err != nil {
		t.Fatalf("Send: %v", err)
	}
	<-h.Done()

	_, err := h.Recv(ctx)
	var gone *agent.GoneError
	if !errors.As(err, &gone) {
		t.Fatalf("Recv after failure = %v, want GoneError", err)
	}
	if gone.Name != "fail-task" {
		t.Errorf("GoneError.Name = %q, want %q", gone.Name, "fail-task")
	}
	if gone.Cause == nil || !strings.Contains(gone.Cause.Error(), "deliberate failure") {
		t.Errorf("GoneError.Cause = %v, want the agent error", gone.Cause)
	}
}

// panicTask panics on its first input.
type panicTask struct{}

func (panicTask) Name() string { return "panic-task" }

func (panicTask) RunTask(ctx context.Context, p *port.Inner[int, int]) error {
	if _, err := p.Recv(ctx); err != nil {
		return err
	}
	panic("boom")
}

func TestTaskAgentPanicIsContained(t *testing.T) {
	ctx := context.Background()
	h := agent.SpawnTask[int, int](ctx, logging.Discard(), panicTask{}, 1, 1)

	if err := h.Send(ctx, 1); err != nil {
		t.Fatalf("Send: %v", err)
	}
	<-h.Done()
	if err := h.Err(); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Err after panic = %v, want panic message", err)
	}
}

func TestFakeHandleDoneTracksPortClosure(t *testing.T) {
	// Liveness of a fake handle is the port's closed channel itself:
	// done must be observable on the very next statement after Close,
	// with no goroutine handoff in between.
	for i := 0; i < 100; i++ {
		inner, outer := port.New[int, int](1, 1)
		h := agent.NewHandle("fake", outer)

		select {
		case <-h.Done():
			t.Fatal("handle done before the port closed")
		default:
		}

		inner.Close()
		select {
		case <-h.Done():
		default:
			t.Fatalf("iteration %d: handle not done immediately after the port closed", i)
		}
	}
}

// sumThread drains all pending input on every wake and reports the
// running sum, the way a driver thread drains its command queue after
// a poll returns.
type sumThread struct{}

func (sumThread) Name() string { return "sum-thread" }

func (sumThread) RunThread(p *port.Inner[int, int], waiter *wake.Waiter) error {
	sum := 0
	for {
		woken, err := waiter.WaitEvent(5 * time.Second)
		if err != nil {
			return err
		}
		if !woken {
			return errors.New("wake never fired")
		}
		for {
			m, ok, err := p.TryRecv()
			if err != nil {
				return nil
			}
			if !ok {
				break
			}
			sum += m.Value
			if err := p.TrySend(sum); err != nil {
				return err
			}
		}
	}
}

func TestThreadAgentWakesOnInput(t *testing.T) {
	ctx := context.Background()
	h, err := agent.SpawnThread[int, int](logging.Discard(), sumThread{}, 8, 8)
	if err != nil {
		t.Fatalf("SpawnThread: %v", err)
	}

	want := 0
	for _, v := range []int{3, 4, 5} {
		if err := h.Send(ctx, v); err != nil {
			t.Fatalf("Send(%d): %v", v, err)
		}
		want += v
		m, err := h.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if m.Value != want {
			t.Errorf("sum = %d, want %d", m.Value, want)
		}
	}

	// Close fires the wake too, so the blocked thread exits promptly.
	h.Close()
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Wait(waitCtx); err != nil {
		t.Fatalf("Wait after close: %v", err)
	}
}

type echoProcArgs struct {
	Prefix string `cbor:"prefix"`
}

// echoProc prefixes every input line; it exercises the pipe codec and
// chain forwarding across the process boundary.
type echoProc struct {
	prefix string
}

func (echoProc) Name() string { return "echo-proc" }

func (a echoProc) RunProcess(ctx context.Context, p *port.Inner[string, string]) error {
	for {
		m, err := p.Recv(ctx)
		if err != nil {
			return nil
		}
		if err := p.SendChained(ctx, a.prefix+m.Value, m.Chain); err != nil {
			return nil
		}
	}
}

// crashProc simulates a native-code failure by exiting nonzero on the
// first command.
type crashProc struct{}

func (crashProc) Name() string { return "crash-proc" }

func (crashProc) RunProcess(ctx context.Context, p *port.Inner[string, string]) error {
	if _, err := p.Recv(ctx); err != nil {
		return nil
	}
	os.Exit(1)
	return nil
}

func init() {
	agent.RegisterProcess("echo-proc", func(args []byte) (agent.Process[string, string], error) {
		var a echoProcArgs
		if err := codec.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return echoProc{prefix: a.Prefix}, nil
	})
	agent.RegisterProcess("crash-proc", func(args []byte) (agent.Process[string, string], error) {
		return crashProc{}, nil
	})
}

func TestProcessAgentRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h, err := agent.SpawnProcess[string, string](ctx, logging.Discard(), "echo-proc", echoProcArgs{Prefix: "re: "}, 1, 1)
	if err != nil {
		t.Fatalf("SpawnProcess: %v", err)
	}
	defer h.Kill()

	for i := 0; i < 3; i++ {
		in := fmt.Sprintf("message %d", i)
		if err := h.Send(ctx, in); err != nil {
			t.Fatalf("Send: %v", err)
		}
		m, err := h.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if want := "re: " + in; m.Value != want {
			t.Errorf("Recv = %q, want %q", m.Value, want)
		}
	}

	h.Close()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("Wait after clean close: %v", err)
	}
}

func TestProcessAgentCrashIsContained(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h, err := agent.SpawnProcess[string, string](ctx, logging.Discard(), "crash-proc", nil, 1, 1)
	if err != nil {
		t.Fatalf("SpawnProcess: %v", err)
	}
	defer h.Kill()

	if err := h.Send(ctx, "go"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := h.Wait(ctx); err == nil {
		t.Fatal("Wait returned nil, want SubprocessError")
	}

	var sub *agent.SubprocessError
	if !errors.As(h.Err(), &sub) {
		t.Fatalf("Err = %v, want SubprocessError", h.Err())
	}
	if sub.Status != 1 {
		t.Errorf("Status = %d, want 1", sub.Status)
	}

	// The crashed agent's port reports it gone.
	_, err = h.Recv(ctx)
	var gone *agent.GoneError
	if !errors.As(err, &gone) {
		t.Fatalf("Recv after crash = %v, want GoneError", err)
	}
}
