package spawn

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
)

// Dispatcher runs an exit callback on the caller's event goroutine. It
// returns false when the callback was dropped (loop already stopped).
type Dispatcher func(fn func()) bool

// Options configures an exec or pty backend.
type Options struct {
	// Dispatch delivers exit callbacks. When nil, callbacks run on the
	// goroutine that reaped the child.
	Dispatch Dispatcher
	// Stdout and Stderr receive the child's output (exec backend only).
	// Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// tracker owns the handle and watch tables shared by both backends.
type tracker struct {
	mu        sync.Mutex
	nextWatch WatchID
	procs     map[Handle]*os.Process
	watches   map[WatchID]ExitFunc

	dispatch Dispatcher
	logger   *slog.Logger
}

func newTracker(opts Options) *tracker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &tracker{
		procs:    make(map[Handle]*os.Process),
		watches:  make(map[WatchID]ExitFunc),
		dispatch: opts.Dispatch,
		logger:   logger,
	}
}

func (t *tracker) track(proc *os.Process, onExit ExitFunc) (Handle, WatchID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := Handle(proc.Pid)
	t.nextWatch++
	id := t.nextWatch
	t.procs[h] = proc
	if onExit != nil {
		t.watches[id] = onExit
	}
	return h, id
}

// reap waits for the child, drops it from the process table and fires the
// watch if it is still registered.
func (t *tracker) reap(h Handle, id WatchID, wait func() (*os.ProcessState, error), cleanup func()) {
	ps, err := wait()
	if cleanup != nil {
		cleanup()
	}
	if err != nil && ps == nil {
		t.logger.Warn("wait failed", "pid", int(h), "error", err)
	}
	status := StatusFromProcessState(ps)

	t.mu.Lock()
	delete(t.procs, h)
	onExit, ok := t.watches[id]
	delete(t.watches, id)
	t.mu.Unlock()

	if !ok {
		t.logger.Debug("child reaped without watch", "pid", int(h), "status", status.String())
		return
	}

	fire := func() { onExit(h, status) }
	if t.dispatch == nil {
		fire()
		return
	}
	if !t.dispatch(fire) {
		t.logger.Debug("exit notification dropped", "pid", int(h))
	}
}

// Kill sends SIGTERM to a child that has not been reaped yet.
func (t *tracker) Kill(h Handle) error {
	if !h.Live() {
		return os.ErrProcessDone
	}

	t.mu.Lock()
	proc, ok := t.procs[h]
	t.mu.Unlock()
	if !ok {
		return os.ErrProcessDone
	}
	return proc.Signal(syscall.SIGTERM)
}

// Unwatch removes an exit watch. The child is still reaped in the
// background, but its notification is discarded.
func (t *tracker) Unwatch(id WatchID) {
	if id == NoWatch {
		return
	}
	t.mu.Lock()
	delete(t.watches, id)
	t.mu.Unlock()
}

// Running returns the number of children not yet reaped.
func (t *tracker) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.procs)
}

// ExecBackend spawns plain child processes. It is used for xterm, which
// draws into the container window itself and needs no terminal of ours.
type ExecBackend struct {
	*tracker
	stdout io.Writer
	stderr io.Writer
}

// NewExecBackend creates a backend that launches children with os/exec.
func NewExecBackend(opts Options) *ExecBackend {
	return &ExecBackend{
		tracker: newTracker(opts),
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
	}
}

// Spawn starts cmd and registers onExit for its termination.
func (b *ExecBackend) Spawn(c Command, onExit ExitFunc) (Handle, WatchID, error) {
	cmd, err := c.build()
	if err != nil {
		return NoHandle, NoWatch, &Error{Command: c.Name(), Err: err}
	}
	cmd.Stdout = b.stdout
	cmd.Stderr = b.stderr

	if err := cmd.Start(); err != nil {
		return NoHandle, NoWatch, &Error{Command: c.Name(), Err: err}
	}

	h, id := b.track(cmd.Process, onExit)
	b.logger.Debug("spawned", "command", c.Name(), "pid", int(h), "watch", uint64(id))

	go b.reap(h, id, func() (*os.ProcessState, error) {
		err := cmd.Wait()
		return cmd.ProcessState, err
	}, nil)

	return h, id, nil
}
