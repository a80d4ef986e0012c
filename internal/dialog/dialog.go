// Package dialog asks the user to confirm closing a window or to type a new
// tab label. Backends shell out to zenity, rofi or dmenu, or draw a huh form
// on the controlling terminal.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"

	"github.com/1broseidon/termtab/internal/lifecycle"
)

// ErrCancelled is returned by a backend when the user closes the dialog
// without answering. Dialog methods translate it into a negative answer.
var ErrCancelled = errors.New("dialog cancelled")

// Names accepted by New.
const (
	NameAuto     = "auto"
	NameZenity   = "zenity"
	NameRofi     = "rofi"
	NameDmenu    = "dmenu"
	NameTerminal = "terminal"
	NameNone     = "none"
)

var lookPath = exec.LookPath

var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// New returns the dialog named by the config. "auto" picks the first of
// zenity, rofi, dmenu found in PATH, then the terminal when stdin is a TTY,
// and finally None.
func New(name string, logger *slog.Logger) (lifecycle.Dialog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameAuto:
		d := detect()
		logger.Debug("dialog backend selected", "backend", describe(d))
		return d, nil
	case NameZenity, NameRofi, NameDmenu:
		n := strings.ToLower(strings.TrimSpace(name))
		if _, err := lookPath(n); err != nil {
			return nil, fmt.Errorf("dialog backend %q not found in PATH", n)
		}
		return NewMenu(n), nil
	case NameTerminal:
		return NewTerminal(), nil
	case NameNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown dialog backend: %q (expected: auto, zenity, rofi, dmenu, terminal, none)", name)
	}
}

func detect() lifecycle.Dialog {
	for _, n := range []string{NameZenity, NameRofi, NameDmenu} {
		if _, err := lookPath(n); err == nil {
			return NewMenu(n)
		}
	}
	if isTerminal() {
		return NewTerminal()
	}
	return None{}
}

func describe(d lifecycle.Dialog) string {
	switch v := d.(type) {
	case *Menu:
		return v.command
	case *Terminal:
		return NameTerminal
	default:
		return NameNone
	}
}

// None answers without asking: close requests are confirmed and rename
// prompts are cancelled.
type None struct{}

func (None) Confirm(ctx context.Context, title, message string) (bool, error) {
	return true, nil
}

func (None) PromptText(ctx context.Context, title, message, initial string) (string, bool, error) {
	return "", false, nil
}
