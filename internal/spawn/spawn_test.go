package spawn

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"
)

type exitEvent struct {
	handle Handle
	status ExitStatus
}

func waitExit(t *testing.T, ch <-chan exitEvent) exitEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for exit notification")
		return exitEvent{}
	}
}

func shCommand(script string) Command {
	return Command{Path: "/bin/sh", Args: []string{"sh", "-c", script}}
}

func TestExecBackend_ReportsExitCode(t *testing.T) {
	b := NewExecBackend(Options{})
	ch := make(chan exitEvent, 1)

	h, id, err := b.Spawn(shCommand("exit 3"), func(h Handle, st ExitStatus) {
		ch <- exitEvent{h, st}
	})
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	if !h.Live() {
		t.Fatalf("Spawn() handle = %d, want live pid", h)
	}
	if id == NoWatch {
		t.Fatal("Spawn() returned NoWatch")
	}

	ev := waitExit(t, ch)
	if ev.handle != h {
		t.Fatalf("exit handle = %d, want %d", ev.handle, h)
	}
	if ev.status.Signaled || ev.status.Code != 3 {
		t.Fatalf("status = %+v, want code 3", ev.status)
	}
	if ev.status.String() != "exited with status 3" {
		t.Fatalf("String() = %q", ev.status.String())
	}
}

func TestExecBackend_KillReportsSignal(t *testing.T) {
	b := NewExecBackend(Options{})
	ch := make(chan exitEvent, 1)

	h, _, err := b.Spawn(Command{Path: "sleep", Args: []string{"sleep", "30"}}, func(h Handle, st ExitStatus) {
		ch <- exitEvent{h, st}
	})
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	if err := b.Kill(h); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}

	ev := waitExit(t, ch)
	if !ev.status.Signaled || ev.status.Signal != syscall.SIGTERM {
		t.Fatalf("status = %+v, want SIGTERM", ev.status)
	}
	if ev.status.Success() {
		t.Fatal("signaled exit reported as success")
	}
}

func TestExecBackend_UnwatchSuppressesNotification(t *testing.T) {
	b := NewExecBackend(Options{})
	ch := make(chan exitEvent, 1)

	h, id, err := b.Spawn(Command{Path: "sleep", Args: []string{"sleep", "30"}}, func(h Handle, st ExitStatus) {
		ch <- exitEvent{h, st}
	})
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	b.Unwatch(id)
	b.Unwatch(id)
	if err := b.Kill(h); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for b.Running() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.Running() != 0 {
		t.Fatal("child was not reaped")
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected exit notification: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestExecBackend_KillAfterReapFails(t *testing.T) {
	b := NewExecBackend(Options{})
	ch := make(chan exitEvent, 1)

	h, _, err := b.Spawn(shCommand("exit 0"), func(h Handle, st ExitStatus) {
		ch <- exitEvent{h, st}
	})
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	ev := waitExit(t, ch)
	if !ev.status.Success() {
		t.Fatalf("status = %+v, want success", ev.status)
	}

	if err := b.Kill(h); !errors.Is(err, os.ErrProcessDone) {
		t.Fatalf("Kill() error = %v, want os.ErrProcessDone", err)
	}
	if err := b.Kill(NoHandle); !errors.Is(err, os.ErrProcessDone) {
		t.Fatalf("Kill(NoHandle) error = %v, want os.ErrProcessDone", err)
	}
}

func TestExecBackend_SpawnFailure(t *testing.T) {
	b := NewExecBackend(Options{})
	called := false

	h, id, err := b.Spawn(Command{Path: "termtab-no-such-binary"}, func(Handle, ExitStatus) {
		called = true
	})
	if err == nil {
		t.Fatal("expected spawn error")
	}
	var spawnErr *Error
	if !errors.As(err, &spawnErr) {
		t.Fatalf("error type = %T, want *spawn.Error", err)
	}
	if spawnErr.Command != "termtab-no-such-binary" {
		t.Fatalf("Command = %q", spawnErr.Command)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("error = %v, want exec.ErrNotFound", err)
	}
	if !strings.HasPrefix(err.Error(), "termtab-no-such-binary: ") {
		t.Fatalf("Error() = %q", err.Error())
	}
	if h != NoHandle || id != NoWatch {
		t.Fatalf("got handle=%d watch=%d, want sentinels", h, id)
	}
	if b.Running() != 0 {
		t.Fatalf("Running() = %d after failed spawn", b.Running())
	}
	if called {
		t.Fatal("onExit fired for a failed spawn")
	}
}

func TestExecBackend_DispatchesThroughLoop(t *testing.T) {
	posted := make(chan func(), 1)
	b := NewExecBackend(Options{Dispatch: func(fn func()) bool {
		posted <- fn
		return true
	}})
	ch := make(chan exitEvent, 1)

	if _, _, err := b.Spawn(shCommand("exit 0"), func(h Handle, st ExitStatus) {
		ch <- exitEvent{h, st}
	}); err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}

	var fn func()
	select {
	case fn = <-posted:
	case <-time.After(5 * time.Second):
		t.Fatal("exit callback was not dispatched")
	}
	select {
	case <-ch:
		t.Fatal("callback ran before the dispatcher invoked it")
	default:
	}
	fn()
	waitExit(t, ch)
}

func TestPTYBackend_RunsShell(t *testing.T) {
	b := NewPTYBackend(PTYOptions{Rows: 24, Cols: 80})
	ch := make(chan exitEvent, 1)

	h, _, err := b.Spawn(shCommand("test -t 0 && exit 7"), func(h Handle, st ExitStatus) {
		ch <- exitEvent{h, st}
	})
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	ev := waitExit(t, ch)
	if ev.handle != h {
		t.Fatalf("exit handle = %d, want %d", ev.handle, h)
	}
	if ev.status.Code != 7 {
		t.Fatalf("status = %+v, want code 7 (stdin should be a tty)", ev.status)
	}
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Command{Path: "/usr/bin/xterm", Args: []string{"xterm"}}, "xterm"},
		{Command{Path: "/bin/bash", Args: []string{"-bash"}}, "bash"},
		{Command{Args: []string{"-zsh"}}, "zsh"},
		{Command{}, ""},
	}
	for _, tt := range tests {
		if got := tt.cmd.Name(); got != tt.want {
			t.Errorf("Name(%+v) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	err := &Error{Command: "xterm", Err: os.ErrNotExist}
	if got := err.Error(); got != "xterm: file does not exist" {
		t.Fatalf("Error() = %q", got)
	}
	sig := &SignalError{Handle: 42, Err: os.ErrProcessDone}
	if !errors.Is(sig, os.ErrProcessDone) {
		t.Fatal("SignalError does not unwrap")
	}
	if got := sig.Error(); got != "kill 42: os: process already finished" {
		t.Fatalf("Error() = %q", got)
	}
}
