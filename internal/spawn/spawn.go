package spawn

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

// Handle identifies a spawned child process. It is the child's pid.
type Handle int

// NoHandle marks a slot with no process, or one that was already reaped.
const NoHandle Handle = -1

// Live reports whether h refers to a process that has not been released.
func (h Handle) Live() bool {
	return h > 0
}

// WatchID identifies an exit-notification registration.
type WatchID uint64

// NoWatch marks a slot with no exit watch registered.
const NoWatch WatchID = 0

// ExitStatus describes how a child process ended.
type ExitStatus struct {
	Code     int
	Signal   syscall.Signal
	Signaled bool
}

// StatusFromProcessState converts a reaped process state into an ExitStatus.
func StatusFromProcessState(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return ExitStatus{Code: -1}
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitStatus{Code: -1, Signal: ws.Signal(), Signaled: true}
	}
	return ExitStatus{Code: ps.ExitCode()}
}

// Success reports a clean zero exit.
func (s ExitStatus) Success() bool {
	return !s.Signaled && s.Code == 0
}

func (s ExitStatus) String() string {
	if s.Signaled {
		return fmt.Sprintf("exited with signal %d", int(s.Signal))
	}
	return fmt.Sprintf("exited with status %d", s.Code)
}

// Command is a fully resolved child invocation. Args carries the complete
// argument vector including argv[0], which may differ from Path (login
// shells use "-sh" style names).
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Name returns the short command name used in diagnostics.
func (c Command) Name() string {
	if c.Path != "" {
		return filepath.Base(c.Path)
	}
	if len(c.Args) > 0 {
		return strings.TrimPrefix(filepath.Base(c.Args[0]), "-")
	}
	return ""
}

func (c Command) build() (*exec.Cmd, error) {
	if strings.TrimSpace(c.Path) == "" {
		return nil, errors.New("empty command")
	}

	path := c.Path
	if !strings.Contains(path, "/") {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	args := c.Args
	if len(args) == 0 {
		args = []string{c.Path}
	}

	return &exec.Cmd{
		Path: path,
		Args: append([]string(nil), args...),
		Dir:  c.Dir,
		Env:  c.Env,
	}, nil
}

// ExitFunc receives the exit notification for one spawned child.
type ExitFunc func(h Handle, status ExitStatus)

// Backend launches child processes and delivers their exit notifications.
//
// onExit fires at most once per successful Spawn, and exactly once unless
// the watch was removed with Unwatch first.
type Backend interface {
	Spawn(cmd Command, onExit ExitFunc) (Handle, WatchID, error)
	Kill(h Handle) error
	Unwatch(id WatchID)
}

// Error reports a child that could not be launched.
type Error struct {
	Command string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SignalError reports a termination request that could not be delivered,
// usually because the process already exited.
type SignalError struct {
	Handle Handle
	Err    error
}

func (e *SignalError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("kill %d: %v", int(e.Handle), e.Err)
}

func (e *SignalError) Unwrap() error {
	return e.Err
}
