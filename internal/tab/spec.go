package tab

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/1broseidon/termtab/internal/spawn"
)

// Kind selects how a tab's terminal is provided.
type Kind string

const (
	// KindXTerm embeds an external xterm into the tab container with -into.
	KindXTerm Kind = "xterm"
	// KindShell runs the shell directly on a pseudo-terminal.
	KindShell Kind = "shell"
)

const (
	DefaultXTerm = "xterm"
	DefaultClass = "Terminal"
	fallbackSh   = "/bin/sh"
)

// ErrLoginWithShell rejects a spec that asks for a login shell and names an
// explicit shell at the same time.
var ErrLoginWithShell = errors.New("login shell and explicit shell are mutually exclusive")

// Spec describes how to launch the process behind a tab.
type Spec struct {
	Kind      Kind
	Shell     string // explicit shell; empty means the user's default
	Login     bool
	Directory string
	XTerm     string // xterm binary; empty means DefaultXTerm
	Class     string // WM_CLASS passed to xterm; empty means DefaultClass
	ExtraArgs []string
	Env       []string
	Label     string // initial tab label; empty means DefaultLabel
}

// DefaultShell returns $SHELL, or /bin/sh when unset.
func DefaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return fallbackSh
}

// Validate checks the spec for conflicting options.
func (s Spec) Validate() error {
	switch s.Kind {
	case "", KindXTerm, KindShell:
	default:
		return errors.New("unknown tab kind " + strconv.Quote(string(s.Kind)))
	}
	if s.Login && s.Shell != "" {
		return ErrLoginWithShell
	}
	return nil
}

func (s Spec) kind() Kind {
	if s.Kind == "" {
		return KindXTerm
	}
	return s.Kind
}

func (s Spec) xterm() string {
	if s.XTerm != "" {
		return s.XTerm
	}
	return DefaultXTerm
}

// Command builds the argument vector for this spec. For xterm tabs the
// container window id is passed with -into; shell tabs ignore it.
func (s Spec) Command(container ContainerRef) (spawn.Command, error) {
	if err := s.Validate(); err != nil {
		return spawn.Command{}, err
	}

	switch s.kind() {
	case KindShell:
		shell := s.Shell
		if shell == "" {
			shell = DefaultShell()
		}
		argv0 := filepath.Base(shell)
		if s.Login {
			argv0 = "-" + argv0
		}
		return spawn.Command{
			Path: shell,
			Args: []string{argv0},
			Dir:  s.Directory,
			Env:  s.Env,
		}, nil

	default:
		if container.IsZero() {
			return spawn.Command{}, errors.New("xterm tab needs a container window")
		}
		class := s.Class
		if class == "" {
			class = DefaultClass
		}
		xterm := s.xterm()
		args := []string{
			filepath.Base(xterm),
			"-into", strconv.FormatUint(uint64(container.Window), 10),
			"-class", class,
		}
		args = append(args, s.ExtraArgs...)
		if s.Login {
			args = append(args, "-ls")
		}
		if s.Shell != "" {
			args = append(args, s.Shell)
		}
		return spawn.Command{
			Path: xterm,
			Args: args,
			Dir:  s.Directory,
			Env:  s.Env,
		}, nil
	}
}

// program is the executable a spec would launch.
func (s Spec) program() string {
	if s.kind() == KindShell {
		if s.Shell != "" {
			return s.Shell
		}
		return DefaultShell()
	}
	return s.xterm()
}

// DefaultLabel is the label a new tab gets before any rename.
func (s Spec) DefaultLabel() string {
	if s.Label != "" {
		return s.Label
	}
	if s.kind() == KindShell {
		shell := s.Shell
		if shell == "" {
			shell = DefaultShell()
		}
		return filepath.Base(shell)
	}
	return filepath.Base(s.xterm())
}
