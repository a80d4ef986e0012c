// Package tui is an interactive tab switcher for a running termtab. It talks
// to the instance over IPC only.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/termtab/internal/ipc"
)

// Client is the IPC surface the TUI needs.
type Client interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() ([]ipc.WindowData, error)
	ListTabs(window int) (*ipc.TabsData, error)
	NewTab(p ipc.NewTabPayload) (*ipc.TabData, error)
	CloseTab(ref ipc.TabRef) error
	CloseAll(window int, force bool) (bool, error)
	SelectTab(ref ipc.TabRef) error
	RenameTab(ref ipc.TabRef, label *string) (*ipc.RenameData, error)
	MoveTab(window, from, to int) error
}

var _ Client = (*ipc.Client)(nil)

// Run starts the TUI and blocks until the user quits.
func Run(client Client) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
