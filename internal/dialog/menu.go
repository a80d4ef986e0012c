package dialog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	answerYes = "Yes"
	answerNo  = "No"
)

// runFunc runs a dialog program and returns its trimmed stdout.
type runFunc func(ctx context.Context, name string, args []string, stdin string) (string, error)

// Menu shows dialogs through an external program.
type Menu struct {
	command string
	run     runFunc
}

// NewMenu returns a dialog backed by zenity, rofi or dmenu.
func NewMenu(command string) *Menu {
	return &Menu{command: command, run: runCommand}
}

func (m *Menu) Confirm(ctx context.Context, title, message string) (bool, error) {
	var args []string
	var stdin string
	switch m.command {
	case NameZenity:
		args = []string{"--question", "--title", title, "--text", message, "--ok-label", answerYes, "--cancel-label", answerNo}
	case NameRofi:
		args = []string{"-dmenu", "-i", "-no-custom", "-p", title, "-mesg", message}
		stdin = answerNo + "\n" + answerYes + "\n"
	default:
		// dmenu has no message bar, so the question is the prompt.
		args = []string{"-i", "-p", message}
		stdin = answerNo + "\n" + answerYes + "\n"
	}

	out, err := m.run(ctx, m.command, args, stdin)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return false, nil
		}
		return false, err
	}
	if m.command == NameZenity {
		return true, nil
	}
	return out == answerYes, nil
}

func (m *Menu) PromptText(ctx context.Context, title, message, initial string) (string, bool, error) {
	var args []string
	var stdin string
	switch m.command {
	case NameZenity:
		args = []string{"--entry", "--title", title, "--text", message, "--entry-text", initial}
	case NameRofi:
		args = []string{"-dmenu", "-p", message, "-mesg", title, "-filter", initial}
	default:
		// dmenu cannot prefill its input; offer the current label as the
		// only item so Enter keeps it.
		args = []string{"-p", message}
		stdin = initial + "\n"
	}

	out, err := m.run(ctx, m.command, args, stdin)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return "", false, nil
		}
		return "", false, err
	}
	return out, true, nil
}

func runCommand(ctx context.Context, name string, args []string, stdin string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	text := strings.TrimRight(string(out), "\r\n")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if isCancelExit(err) {
			return "", ErrCancelled
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s failed: %s", name, msg)
		}
		return "", fmt.Errorf("%s failed: %w", name, err)
	}
	return text, nil
}

// isCancelExit reports whether err is the exit status a dialog program uses
// when the user dismisses it: 1 for Escape or "No", 130 for Ctrl+C and
// 5 for a zenity timeout.
func isCancelExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	switch exitErr.ExitCode() {
	case 1, 5, 130:
		return true
	default:
		return false
	}
}
