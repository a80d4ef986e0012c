package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/1broseidon/termtab/internal/ipc"
	"github.com/1broseidon/termtab/internal/tui"
)

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: termtab tui")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive tab switcher for the running instance.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓     Navigate tabs")
		fmt.Fprintln(os.Stderr, "  Enter        Show selected tab")
		fmt.Fprintln(os.Stderr, "  n            Open a tab")
		fmt.Fprintln(os.Stderr, "  x            Close selected tab")
		fmt.Fprintln(os.Stderr, "  r            Rename selected tab")
		fmt.Fprintln(os.Stderr, "  J/K          Move selected tab down/up")
		fmt.Fprintln(os.Stderr, "  X            Close every tab of the window")
		fmt.Fprintln(os.Stderr, "  Tab          Next window")
		fmt.Fprintln(os.Stderr, "  q, Esc       Quit")
		return 0
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := tui.Run(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
