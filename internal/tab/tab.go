package tab

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/termtab/internal/spawn"
)

// ID is the stable identity of a tab. Indices shift as tabs close or move;
// IDs never do.
type ID string

// NewID returns a fresh random tab identity.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}

// Short returns the first eight characters, enough for display.
func (id ID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// State is the lifecycle phase of a tab.
type State int

const (
	Spawning State = iota
	Running
	Exiting
	Closed
)

func (s State) String() string {
	switch s {
	case Spawning:
		return "spawning"
	case Running:
		return "running"
	case Exiting:
		return "exiting"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ContainerRef is the UI host's handle for a tab's content area. For the
// X11 host it is the child window xterm embeds into.
type ContainerRef struct {
	Window uint32
}

// IsZero reports whether the reference names no container.
func (r ContainerRef) IsZero() bool {
	return r.Window == 0
}

// Slot tracks one tab's child process and exit watch.
//
// A slot with a live handle always has exactly one live watch; Release
// drops both together.
type Slot struct {
	id        ID
	label     string
	command   string
	container ContainerRef
	created   time.Time

	backend spawn.Backend
	handle  spawn.Handle
	watch   spawn.WatchID
	state   State
}

// Open launches the process described by spec into container and registers
// onExit for its termination. On failure nothing stays registered and the
// error is a *spawn.Error.
func Open(backend spawn.Backend, spec Spec, container ContainerRef, onExit spawn.ExitFunc) (*Slot, error) {
	s := &Slot{
		id:        NewID(),
		label:     spec.DefaultLabel(),
		container: container,
		created:   time.Now(),
		backend:   backend,
		handle:    spawn.NoHandle,
		watch:     spawn.NoWatch,
		state:     Spawning,
	}

	cmd, err := spec.Command(container)
	if err != nil {
		return nil, &spawn.Error{Command: filepath.Base(spec.program()), Err: err}
	}
	s.command = cmd.Name()

	h, w, err := backend.Spawn(cmd, onExit)
	if err != nil {
		s.Release()
		return nil, err
	}
	s.handle = h
	s.watch = w
	s.state = Running
	return s, nil
}

func (s *Slot) ID() ID                  { return s.id }
func (s *Slot) Label() string           { return s.label }
func (s *Slot) Command() string         { return s.command }
func (s *Slot) Container() ContainerRef { return s.container }
func (s *Slot) Created() time.Time      { return s.created }
func (s *Slot) Handle() spawn.Handle    { return s.handle }
func (s *Slot) Watch() spawn.WatchID    { return s.watch }
func (s *Slot) State() State            { return s.state }

// Rename replaces the tab label.
func (s *Slot) Rename(label string) {
	s.label = label
}

// RequestTermination sends SIGTERM to a live process. A slot without a live
// process is left alone.
func (s *Slot) RequestTermination() error {
	if !s.handle.Live() {
		return nil
	}
	s.state = Exiting
	if err := s.backend.Kill(s.handle); err != nil {
		return &spawn.SignalError{Handle: s.handle, Err: err}
	}
	return nil
}

// Release removes the exit watch and forgets the process handle. It is
// idempotent and safe on a partially constructed slot.
func (s *Slot) Release() {
	if s.watch != spawn.NoWatch && s.backend != nil {
		s.backend.Unwatch(s.watch)
	}
	s.watch = spawn.NoWatch
	s.handle = spawn.NoHandle
}

// Detach marks the slot dead and releases its watch, returning the handle
// it held so the caller can signal it later.
func (s *Slot) Detach() spawn.Handle {
	h := s.handle
	s.state = Exiting
	s.Release()
	return h
}

// Reaped records that the process already exited. The watch has fired, so
// there is nothing left to kill or unregister.
func (s *Slot) Reaped() {
	s.state = Exiting
	s.handle = spawn.NoHandle
	s.watch = spawn.NoWatch
}

// MarkClosed records that the slot left its registry.
func (s *Slot) MarkClosed() {
	s.state = Closed
}
