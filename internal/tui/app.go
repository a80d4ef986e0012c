package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/termtab/internal/ipc"
)

const refreshInterval = time.Second

type mode int

const (
	modeBrowse mode = iota
	modeRename
	modeConfirmCloseAll
)

// tabItem implements list.Item for one tab.
type tabItem struct {
	tab ipc.TabData
}

func (i tabItem) Title() string {
	prefix := "  "
	if i.tab.Current {
		prefix = "* "
	}
	return fmt.Sprintf("%s%d  %s", prefix, i.tab.Index, i.tab.Label)
}

func (i tabItem) Description() string {
	return fmt.Sprintf("    %s  pid %d  %s", i.tab.Command, i.tab.PID, i.tab.State)
}

func (i tabItem) FilterValue() string { return i.tab.Label }

// refreshMsg carries a snapshot of the running instance.
type refreshMsg struct {
	status  *ipc.StatusData
	windows []ipc.WindowData
	tabs    *ipc.TabsData
	err     error
}

// actionMsg is sent after an IPC action completes.
type actionMsg struct {
	text string
	err  error
}

type tickMsg time.Time

type clearStatusMsg struct{}

// model is the root bubbletea model.
type model struct {
	client Client

	list  list.Model
	input textinput.Model
	mode  mode

	status  *ipc.StatusData
	windows []ipc.WindowData
	active  int
	loaded  bool
	err     error

	statusText string
	renaming   ipc.TabRef

	width  int
	height int
}

func newModel(client Client) model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("62"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("62"))

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Tabs"
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	ti := textinput.New()
	ti.Placeholder = "new label"
	ti.CharLimit = 128

	return model{
		client: client,
		list:   l,
		input:  ti,
	}
}

// windowID is the id of the window whose tabs are shown, or 0 for the most
// recently opened one.
func (m model) windowID() int {
	if m.active < 0 || m.active >= len(m.windows) {
		return 0
	}
	return m.windows[m.active].ID
}

func (m model) selected() (ipc.TabData, bool) {
	item, ok := m.list.SelectedItem().(tabItem)
	if !ok {
		return ipc.TabData{}, false
	}
	return item.tab, true
}

func (m model) refresh(window int) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		status, err := client.GetStatus()
		if err != nil {
			return refreshMsg{err: err}
		}
		windows, err := client.ListWindows()
		if err != nil {
			return refreshMsg{err: err}
		}
		known := false
		for _, w := range windows {
			if w.ID == window {
				known = true
				break
			}
		}
		if !known {
			window = 0
		}
		tabs, err := client.ListTabs(window)
		if err != nil {
			return refreshMsg{err: err}
		}
		return refreshMsg{status: status, windows: windows, tabs: tabs}
	}
}

func (m model) action(text string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: text}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.refresh(0), tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, m.listHeight())
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(m.windowID()), tick())

	case refreshMsg:
		m.applyRefresh(msg)
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.statusText = errorStyle.Render(msg.err.Error())
		} else {
			m.statusText = msg.text
		}
		clearCmd := tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })
		return m, tea.Batch(m.refresh(m.windowID()), clearCmd)

	case clearStatusMsg:
		m.statusText = ""
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeRename:
			return m.updateRename(msg)
		case modeConfirmCloseAll:
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) applyRefresh(msg refreshMsg) {
	if msg.err != nil {
		m.err = msg.err
		m.status = nil
		m.windows = nil
		m.active = 0
		m.list.SetItems(nil)
		return
	}
	m.err = nil
	m.status = msg.status
	m.windows = msg.windows
	m.active = len(m.windows) - 1
	for i, w := range m.windows {
		if w.ID == msg.tabs.Window {
			m.active = i
			break
		}
	}

	items := make([]list.Item, 0, len(msg.tabs.Tabs))
	current := -1
	for i, td := range msg.tabs.Tabs {
		items = append(items, tabItem{tab: td})
		if td.Current {
			current = i
		}
	}
	m.list.SetItems(items)
	if !m.loaded && current >= 0 {
		m.list.Select(current)
	}
	if m.list.Index() >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
	m.loaded = true
}

func (m model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	window := m.windowID()
	client := m.client

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit

	case "tab", "shift+tab":
		if len(m.windows) < 2 {
			return m, nil
		}
		step := 1
		if msg.String() == "shift+tab" {
			step = -1
		}
		m.active = (m.active + step + len(m.windows)) % len(m.windows)
		m.loaded = false
		return m, m.refresh(m.windowID())

	case "n":
		return m, m.action("opened tab", func() error {
			_, err := client.NewTab(ipc.NewTabPayload{Window: window})
			return err
		})

	case "X":
		if len(m.list.Items()) > 1 {
			m.mode = modeConfirmCloseAll
			return m, nil
		}
		return m, m.action("closed window", func() error {
			_, err := client.CloseAll(window, true)
			return err
		})
	}

	td, ok := m.selected()
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	ref := ipc.TabRef{Window: window, ID: td.ID}

	switch msg.String() {
	case "enter":
		return m, m.action("selected "+td.Label, func() error {
			return client.SelectTab(ref)
		})

	case "x", "delete":
		return m, m.action("closed "+td.Label, func() error {
			return client.CloseTab(ref)
		})

	case "r":
		m.mode = modeRename
		m.renaming = ref
		m.input.SetValue(td.Label)
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink

	case "J", "K":
		to := td.Index + 1
		if msg.String() == "K" {
			to = td.Index - 1
		}
		if to < 0 || to >= len(m.list.Items()) {
			return m, nil
		}
		from := td.Index
		m.list.Select(to)
		return m, m.action(fmt.Sprintf("moved %s to %d", td.Label, to), func() error {
			return client.MoveTab(window, from, to)
		})
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		label := strings.TrimSpace(m.input.Value())
		m.mode = modeBrowse
		m.input.Blur()
		if label == "" {
			return m, nil
		}
		client, ref := m.client, m.renaming
		return m, m.action("renamed to "+label, func() error {
			_, err := client.RenameTab(ref, &label)
			return err
		})
	case "esc":
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = modeBrowse
		client, window := m.client, m.windowID()
		return m, m.action("closed window", func() error {
			_, err := client.CloseAll(window, true)
			return err
		})
	case "n", "N", "esc":
		m.mode = modeBrowse
	}
	return m, nil
}

func (m model) listHeight() int {
	// status bar (1) + window bar (2) + footer (2)
	h := m.height - 5
	if h < 1 {
		h = 1
	}
	return h
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.width)
	windowBar := renderWindowBar(m.windows, m.active, m.width)

	var content string
	if m.err != nil {
		content = lipgloss.NewStyle().
			Width(m.width).
			Height(m.listHeight()).
			Align(lipgloss.Center, lipgloss.Center).
			Render(errorStyle.Render("cannot reach termtab: " + m.err.Error()))
	} else {
		content = m.list.View()
	}

	var footer string
	switch m.mode {
	case modeRename:
		footer = promptStyle.Render("rename: ") + m.input.View()
	case modeConfirmCloseAll:
		footer = promptStyle.Render(fmt.Sprintf("Close %d tabs? [y/n]", len(m.list.Items())))
	default:
		footer = m.statusText
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		windowBar,
		content,
		footer,
		renderHelpBar(m.width),
	)
}
