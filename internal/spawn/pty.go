package spawn

import (
	"io"
	"os"

	"github.com/creack/pty"
)

// PTYBackend runs each child on its own pseudo-terminal. It backs the
// direct-shell tab kind, where no external emulator owns the terminal.
type PTYBackend struct {
	*tracker
	size   *pty.Winsize
	output func(h Handle) io.Writer
}

// PTYOptions extends Options with terminal geometry.
type PTYOptions struct {
	Options
	Rows uint16
	Cols uint16
	// Output returns the sink for a child's terminal output. Nil discards it.
	Output func(h Handle) io.Writer
}

// NewPTYBackend creates a backend that starts children with creack/pty.
func NewPTYBackend(opts PTYOptions) *PTYBackend {
	var size *pty.Winsize
	if opts.Rows > 0 && opts.Cols > 0 {
		size = &pty.Winsize{Rows: opts.Rows, Cols: opts.Cols}
	}
	return &PTYBackend{
		tracker: newTracker(opts.Options),
		size:    size,
		output:  opts.Output,
	}
}

// Spawn starts cmd attached to a fresh pty and registers onExit.
func (b *PTYBackend) Spawn(c Command, onExit ExitFunc) (Handle, WatchID, error) {
	cmd, err := c.build()
	if err != nil {
		return NoHandle, NoWatch, &Error{Command: c.Name(), Err: err}
	}

	master, err := pty.StartWithSize(cmd, b.size)
	if err != nil {
		return NoHandle, NoWatch, &Error{Command: c.Name(), Err: err}
	}

	h, id := b.track(cmd.Process, onExit)
	b.logger.Debug("spawned on pty", "command", c.Name(), "pid", int(h), "tty", master.Name())

	sink := io.Discard
	if b.output != nil {
		if w := b.output(h); w != nil {
			sink = w
		}
	}
	// The master must be drained or the child blocks once the pty buffer fills.
	go func() {
		_, _ = io.Copy(sink, master)
	}()

	go b.reap(h, id, func() (*os.ProcessState, error) {
		err := cmd.Wait()
		return cmd.ProcessState, err
	}, func() {
		_ = master.Close()
	})

	return h, id, nil
}
