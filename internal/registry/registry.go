package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/1broseidon/termtab/internal/spawn"
	"github.com/1broseidon/termtab/internal/tab"
)

var (
	// ErrNotFound is returned when no tab matches an identity or handle.
	ErrNotFound = errors.New("tab not found")
	// ErrIndexOutOfRange is returned for an index outside 0 <= i < Len().
	ErrIndexOutOfRange = errors.New("tab index out of range")
)

// Registry is the ordered set of tabs owned by one window. Order is display
// order. Exit dispatch is keyed by process handle and owned here, so several
// windows can share one spawn.Backend.
//
// A Registry is not safe for concurrent use; every call happens on the
// owning window's event goroutine.
type Registry struct {
	backend  spawn.Backend
	onExit   spawn.ExitFunc
	logger   *slog.Logger
	order    []tab.ID
	slots    map[tab.ID]*tab.Slot
	byHandle map[spawn.Handle]*tab.Slot
}

// Config holds the collaborators of a Registry.
type Config struct {
	Backend spawn.Backend
	// OnExit receives every exit notification for slots of this registry.
	OnExit spawn.ExitFunc
	Logger *slog.Logger
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		backend:  cfg.Backend,
		onExit:   cfg.OnExit,
		logger:   logger,
		slots:    make(map[tab.ID]*tab.Slot),
		byHandle: make(map[spawn.Handle]*tab.Slot),
	}
}

// Len returns the number of tabs.
func (r *Registry) Len() int {
	return len(r.order)
}

// Open spawns a new tab into container and appends it. On failure the
// registry is unchanged.
func (r *Registry) Open(spec tab.Spec, container tab.ContainerRef) (int, *tab.Slot, error) {
	s, err := tab.Open(r.backend, spec, container, r.onExit)
	if err != nil {
		return -1, nil, err
	}

	r.order = append(r.order, s.ID())
	r.slots[s.ID()] = s
	r.byHandle[s.Handle()] = s

	r.logger.Debug("tab opened", "tab", s.ID().Short(), "index", len(r.order)-1, "pid", int(s.Handle()))
	return len(r.order) - 1, s, nil
}

// Close terminates and releases the tab at index and removes it, keeping the
// order of the remaining tabs. empty reports whether the registry is now
// empty. A termination failure is logged, not returned.
func (r *Registry) Close(index int) (s *tab.Slot, empty bool, err error) {
	if index < 0 || index >= len(r.order) {
		return nil, len(r.order) == 0, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(r.order))
	}

	s = r.slots[r.order[index]]
	if err := s.RequestTermination(); err != nil {
		r.logger.Warn("terminate tab", "tab", s.ID().Short(), "error", err)
	}
	r.remove(index)
	return s, len(r.order) == 0, nil
}

// Reaped removes the tab whose process h already exited. The watch has fired
// so no signal is sent.
func (r *Registry) Reaped(h spawn.Handle) (int, *tab.Slot, error) {
	index, err := r.FindByHandle(h)
	if err != nil {
		return -1, nil, err
	}
	s := r.slots[r.order[index]]
	delete(r.byHandle, h)
	s.Reaped()
	r.remove(index)
	return index, s, nil
}

// CloseAll empties the registry in two phases. First every slot is marked
// dead and its watch released, so exit notifications arriving meanwhile
// miss; then every snapshotted process is signalled. It returns the removed
// slots in display order.
func (r *Registry) CloseAll() []*tab.Slot {
	closed := make([]*tab.Slot, 0, len(r.order))
	handles := make([]spawn.Handle, 0, len(r.order))

	for _, id := range r.order {
		s := r.slots[id]
		if h := s.Detach(); h.Live() {
			handles = append(handles, h)
		}
		s.MarkClosed()
		closed = append(closed, s)
	}
	r.order = nil
	r.slots = make(map[tab.ID]*tab.Slot)
	r.byHandle = make(map[spawn.Handle]*tab.Slot)

	for _, h := range handles {
		if err := r.backend.Kill(h); err != nil {
			r.logger.Warn("terminate tab", "error", &spawn.SignalError{Handle: h, Err: err})
		}
	}
	return closed
}

// FindByHandle returns the index of the tab running process h.
func (r *Registry) FindByHandle(h spawn.Handle) (int, error) {
	if !h.Live() {
		return -1, ErrNotFound
	}
	s, ok := r.byHandle[h]
	if !ok {
		return -1, ErrNotFound
	}
	return r.FindByID(s.ID())
}

// FindByID returns the current index of the tab with the given identity.
func (r *Registry) FindByID(id tab.ID) (int, error) {
	if _, ok := r.slots[id]; !ok {
		return -1, ErrNotFound
	}
	for i, existing := range r.order {
		if existing == id {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// Get returns the slot with the given identity.
func (r *Registry) Get(id tab.ID) (*tab.Slot, bool) {
	s, ok := r.slots[id]
	return s, ok
}

// At returns the slot at index.
func (r *Registry) At(index int) (*tab.Slot, error) {
	if index < 0 || index >= len(r.order) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(r.order))
	}
	return r.slots[r.order[index]], nil
}

// Move relocates the tab at from to position to, shifting the tabs between.
func (r *Registry) Move(from, to int) error {
	n := len(r.order)
	if from < 0 || from >= n {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, from, n)
	}
	if to < 0 || to >= n {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, to, n)
	}
	if from == to {
		return nil
	}
	id := r.order[from]
	r.order = append(r.order[:from], r.order[from+1:]...)
	r.order = append(r.order[:to], append([]tab.ID{id}, r.order[to:]...)...)
	return nil
}

// Slots returns the tabs in display order.
func (r *Registry) Slots() []*tab.Slot {
	out := make([]*tab.Slot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.slots[id])
	}
	return out
}

func (r *Registry) remove(index int) {
	id := r.order[index]
	s := r.slots[id]
	delete(r.byHandle, s.Handle())
	s.Release()
	s.MarkClosed()

	delete(r.slots, id)
	r.order = append(r.order[:index], r.order[index+1:]...)
}
