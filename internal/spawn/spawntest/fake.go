// Package spawntest provides an in-memory spawn.Backend for tests.
package spawntest

import (
	"fmt"
	"os"
	"sync"

	"github.com/1broseidon/termtab/internal/spawn"
)

// Proc is one fake child.
type Proc struct {
	Handle  spawn.Handle
	Watch   spawn.WatchID
	Command spawn.Command
	Exited  bool

	onExit spawn.ExitFunc
}

// Backend records every spawn, kill and unwatch. Exits are driven by the
// test through Exit.
type Backend struct {
	mu        sync.Mutex
	nextPid   int
	nextWatch spawn.WatchID

	procs     map[spawn.Handle]*Proc
	order     []*Proc
	watches   map[spawn.WatchID]*Proc
	kills     []spawn.Handle
	unwatched []spawn.WatchID

	// FailCommands makes Spawn fail for the named commands (spawn.Command.Name).
	FailCommands map[string]error
	// OnKill runs after a kill is recorded, outside the lock. Tests use it to
	// deliver an exit notification re-entrantly.
	OnKill func(h spawn.Handle)
}

// New returns an empty fake backend. Pids start at 1000.
func New() *Backend {
	return &Backend{
		nextPid:      1000,
		procs:        make(map[spawn.Handle]*Proc),
		watches:      make(map[spawn.WatchID]*Proc),
		FailCommands: make(map[string]error),
	}
}

func (b *Backend) Spawn(cmd spawn.Command, onExit spawn.ExitFunc) (spawn.Handle, spawn.WatchID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.FailCommands[cmd.Name()]; ok {
		if err == nil {
			err = fmt.Errorf("exec: %q: executable file not found in $PATH", cmd.Name())
		}
		return spawn.NoHandle, spawn.NoWatch, &spawn.Error{Command: cmd.Name(), Err: err}
	}

	b.nextPid++
	b.nextWatch++
	p := &Proc{
		Handle:  spawn.Handle(b.nextPid),
		Watch:   b.nextWatch,
		Command: cmd,
		onExit:  onExit,
	}
	b.procs[p.Handle] = p
	b.watches[p.Watch] = p
	b.order = append(b.order, p)
	return p.Handle, p.Watch, nil
}

func (b *Backend) Kill(h spawn.Handle) error {
	b.mu.Lock()
	b.kills = append(b.kills, h)
	p, ok := b.procs[h]
	hook := b.OnKill
	b.mu.Unlock()

	if hook != nil {
		hook(h)
	}
	if !ok || p.Exited {
		return os.ErrProcessDone
	}
	return nil
}

func (b *Backend) Unwatch(id spawn.WatchID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unwatched = append(b.unwatched, id)
	delete(b.watches, id)
}

// Exit simulates the child h terminating. The exit callback runs
// synchronously if its watch is still registered; the return value reports
// whether it ran.
func (b *Backend) Exit(h spawn.Handle, status spawn.ExitStatus) bool {
	b.mu.Lock()
	p, ok := b.procs[h]
	if !ok || p.Exited {
		b.mu.Unlock()
		return false
	}
	p.Exited = true
	_, watched := b.watches[p.Watch]
	delete(b.watches, p.Watch)
	b.mu.Unlock()

	if !watched || p.onExit == nil {
		return false
	}
	p.onExit(h, status)
	return true
}

// Spawned returns every successful spawn in order.
func (b *Backend) Spawned() []*Proc {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Proc(nil), b.order...)
}

// Last returns the most recent successful spawn, or nil.
func (b *Backend) Last() *Proc {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.order) == 0 {
		return nil
	}
	return b.order[len(b.order)-1]
}

// Kills returns every handle passed to Kill, in order.
func (b *Backend) Kills() []spawn.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]spawn.Handle(nil), b.kills...)
}

// KillCount returns how many times h was signalled.
func (b *Backend) KillCount(h spawn.Handle) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, k := range b.kills {
		if k == h {
			n++
		}
	}
	return n
}

// Unwatched returns every watch id passed to Unwatch.
func (b *Backend) Unwatched() []spawn.WatchID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]spawn.WatchID(nil), b.unwatched...)
}

// LiveWatches counts registered watches.
func (b *Backend) LiveWatches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watches)
}

// Watched reports whether id is still registered.
func (b *Backend) Watched(id spawn.WatchID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.watches[id]
	return ok
}
