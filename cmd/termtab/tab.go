package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/1broseidon/termtab/internal/ipc"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	currentStyle = cellStyle.Bold(true).Foreground(lipgloss.Color("42"))
)

func printTabUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  termtab tab new [--window N] [--shell PATH | --login] [--dir DIR] [--label TEXT] [--json]")
	fmt.Fprintln(w, "  termtab tab close [--window N] (--id ID | <index>)")
	fmt.Fprintln(w, "  termtab tab list [--window N] [--json]")
	fmt.Fprintln(w, "  termtab tab current [--window N] [--json]")
	fmt.Fprintln(w, "  termtab tab select [--window N] (--id ID | <index>)")
	fmt.Fprintln(w, "  termtab tab rename [--window N] (--id ID | <index>) [label]")
	fmt.Fprintln(w, "  termtab tab move [--window N] <from> <to>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Without --window the most recently opened window is used.")
}

// tabFlags registers the flags shared by commands that address one tab.
func tabFlags(fs *flag.FlagSet) (window *int, id *string) {
	window = fs.Int("window", 0, "Window id (default: most recent window)")
	id = fs.String("id", "", "Tab id (instead of an index)")
	return window, id
}

// parseTabRef builds a reference from --id or the first positional argument
// and returns the remaining arguments.
func parseTabRef(window int, id string, args []string) (ipc.TabRef, []string, error) {
	ref := ipc.TabRef{Window: window}
	if id != "" {
		ref.ID = id
		return ref, args, nil
	}
	if len(args) == 0 {
		return ref, nil, errors.New("requires --id or <index>")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 0 {
		return ref, nil, fmt.Errorf("invalid tab index %q", args[0])
	}
	ref.Index = &idx
	return ref, args[1:], nil
}

func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func renderTabsTable(tabs []ipc.TabData) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("#", "LABEL", "COMMAND", "PID", "STATE", "ID").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(tabs) && tabs[row].Current:
				return currentStyle
			default:
				return cellStyle
			}
		})
	for _, td := range tabs {
		idx := strconv.Itoa(td.Index)
		if td.Current {
			idx = "*" + idx
		}
		t.Row(idx, td.Label, td.Command, strconv.Itoa(td.PID), td.State, td.ID)
	}
	return t.String()
}

func renderWindowsTable(windows []ipc.WindowData) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("WINDOW", "TABS", "CURRENT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, w := range windows {
		t.Row(strconv.Itoa(w.ID), strconv.Itoa(w.Tabs), w.Current)
	}
	return t.String()
}

func printTab(td *ipc.TabData, jsonOut bool) int {
	if jsonOut {
		return printJSON(td)
	}
	fmt.Printf("id:      %s\n", td.ID)
	fmt.Printf("window:  %d\n", td.Window)
	fmt.Printf("index:   %d\n", td.Index)
	fmt.Printf("label:   %s\n", td.Label)
	fmt.Printf("command: %s\n", td.Command)
	fmt.Printf("pid:     %d\n", td.PID)
	fmt.Printf("state:   %s\n", td.State)
	return 0
}

func runTab(args []string) int {
	if len(args) == 0 {
		printTabUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printTabUsage(os.Stdout)
		return 0
	}

	client := ipc.NewClient()
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	switch args[0] {
	case "new":
		window := fs.Int("window", 0, "Window id (default: most recent window)")
		shell := fs.String("shell", "", "Shell to run instead of the configured one")
		login := fs.Bool("login", false, "Start the default shell as a login shell")
		dir := fs.String("dir", "", "Working directory")
		label := fs.String("label", "", "Initial tab label")
		jsonOut := fs.Bool("json", false, "Print the new tab as JSON")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		if *login && *shell != "" {
			fmt.Fprintln(os.Stderr, "--login cannot be combined with --shell")
			return 2
		}
		td, err := client.NewTab(ipc.NewTabPayload{
			Window:    *window,
			Shell:     *shell,
			Login:     *login,
			Directory: *dir,
			Label:     *label,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return printTab(td, *jsonOut)

	case "close", "select":
		window, id := tabFlags(fs)
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		ref, rest, err := parseTabRef(*window, *id, fs.Args())
		if err == nil && len(rest) > 0 {
			err = fmt.Errorf("unexpected arguments: %v", rest)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "tab %s: %v\n", args[0], err)
			return 2
		}
		if args[0] == "close" {
			err = client.CloseTab(ref)
		} else {
			err = client.SelectTab(ref)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	case "list":
		window := fs.Int("window", 0, "Window id (default: most recent window)")
		jsonOut := fs.Bool("json", false, "Output as JSON")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		data, err := client.ListTabs(*window)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *jsonOut {
			return printJSON(data)
		}
		fmt.Printf("window: %d\n", data.Window)
		fmt.Println(renderTabsTable(data.Tabs))
		return 0

	case "current":
		window := fs.Int("window", 0, "Window id (default: most recent window)")
		jsonOut := fs.Bool("json", false, "Output as JSON")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		td, err := client.CurrentTab(*window)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return printTab(td, *jsonOut)

	case "rename":
		window, id := tabFlags(fs)
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		ref, rest, err := parseTabRef(*window, *id, fs.Args())
		if err != nil {
			fmt.Fprintf(os.Stderr, "tab rename: %v\n", err)
			return 2
		}
		var label *string
		switch len(rest) {
		case 0:
			// The window shows its rename dialog.
		case 1:
			label = &rest[0]
		default:
			fmt.Fprintln(os.Stderr, "tab rename takes at most one label")
			return 2
		}
		data, err := client.RenameTab(ref, label)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if !data.Renamed {
			fmt.Println("rename cancelled")
			return 0
		}
		fmt.Printf("label: %s\n", data.Label)
		return 0

	case "move":
		window := fs.Int("window", 0, "Window id (default: most recent window)")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		if fs.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "tab move requires <from> <to>")
			return 2
		}
		from, err1 := strconv.Atoi(fs.Arg(0))
		to, err2 := strconv.Atoi(fs.Arg(1))
		if err1 != nil || err2 != nil || from < 0 || to < 0 {
			fmt.Fprintln(os.Stderr, "tab move: positions must be non-negative integers")
			return 2
		}
		if err := client.MoveTab(*window, from, to); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown tab command: %s\n\n", args[0])
		printTabUsage(os.Stderr)
		return 2
	}
}

// confirmCloseAll asks on the controlling terminal. It reports false when
// the user declines or aborts.
var confirmCloseAll = func(tabs int) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Close window").
			Description(fmt.Sprintf("You are about to close %d tabs. Are you sure you want to continue?", tabs)).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func runCloseAll(args []string) int {
	fs := flag.NewFlagSet("close-all", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: termtab close-all [--window N] [--force]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Close every tab of a window. With several tabs open the user is")
		fmt.Fprintln(os.Stderr, "asked first: on this terminal when it is interactive, otherwise in")
		fmt.Fprintln(os.Stderr, "the window's dialog.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	window := fs.Int("window", 0, "Window id (default: most recent window)")
	force := fs.Bool("force", false, "Close without asking")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client := ipc.NewClient()
	if !*force && term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := client.ListTabs(*window)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if len(data.Tabs) > 1 {
			ok, err := confirmCloseAll(len(data.Tabs))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			if !ok {
				fmt.Println("close-all cancelled")
				return 0
			}
		}
		*window = data.Window
		*force = true
	}

	closed, err := client.CloseAll(*window, *force)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !closed {
		fmt.Println("close-all cancelled")
	}
	return 0
}

func runWindow(args []string) int {
	usage := func(w io.Writer) {
		fmt.Fprintln(w, "Usage:")
		fmt.Fprintln(w, "  termtab window new [--json]")
		fmt.Fprintln(w, "  termtab window list [--json]")
	}
	if len(args) == 0 {
		usage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(os.Stdout)
		return 0
	}

	client := ipc.NewClient()
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Output as JSON")

	switch args[0] {
	case "new":
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		w, err := client.NewWindow()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *jsonOut {
			return printJSON(w)
		}
		fmt.Printf("window: %d\n", w.ID)
		return 0

	case "list":
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		windows, err := client.ListWindows()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *jsonOut {
			return printJSON(ipc.WindowsData{Windows: windows})
		}
		fmt.Println(renderWindowsTable(windows))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown window command: %s\n\n", args[0])
		usage(os.Stderr)
		return 2
	}
}
