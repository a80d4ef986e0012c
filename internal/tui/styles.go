package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/termtab/internal/ipc"
)

var (
	activeWindowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("62")).
				Padding(0, 2)

	inactiveWindowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	windowBarStyle = lipgloss.NewStyle().
			MarginBottom(1)

	windowGap = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			SetString(" ")

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// renderWindowBar renders one cell per window, highlighting the active one.
func renderWindowBar(windows []ipc.WindowData, active, width int) string {
	if len(windows) == 0 {
		return windowBarStyle.Width(width).Render(inactiveWindowStyle.Render("no windows"))
	}
	cells := make([]string, 0, len(windows))
	for i, w := range windows {
		label := fmt.Sprintf("%d:window %d (%d)", i+1, w.ID, w.Tabs)
		if i == active {
			cells = append(cells, activeWindowStyle.Render(label))
		} else {
			cells = append(cells, inactiveWindowStyle.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, intersperse(cells, windowGap.Render())...)
	return windowBarStyle.Width(width).Render(row)
}

// intersperse inserts sep between each element of items.
func intersperse(items []string, sep string) []string {
	if len(items) <= 1 {
		return items
	}
	result := make([]string, 0, len(items)*2-1)
	for i, item := range items {
		if i > 0 {
			result = append(result, sep)
		}
		result = append(result, item)
	}
	return result
}

func renderStatusBar(status *ipc.StatusData, width int) string {
	var text string
	if status != nil {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{
			dot + " termtab running",
			fmt.Sprintf("pid:%d", status.PID),
			"backend:" + status.Backend,
			fmt.Sprintf("tabs:%d", status.Tabs),
		}
		text = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		text = dot + " termtab not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(text)
}

func renderHelpBar(width int) string {
	help := "enter: select  n: new  x: close  r: rename  J/K: move  X: close all  tab: next window  q: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}
