package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/termtab/internal/ipc"
)

type fakeClient struct {
	windows  []ipc.WindowData
	tabs     map[int][]ipc.TabData
	down     bool
	selected []ipc.TabRef
	closed   []ipc.TabRef
	closeAll []int
	renamed  []string
	moved    [][3]int
	opened   []int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		windows: []ipc.WindowData{{ID: 1, Tabs: 2}, {ID: 2, Tabs: 1}},
		tabs: map[int][]ipc.TabData{
			1: {
				{ID: "a", Window: 1, Index: 0, Label: "vim", Command: "xterm", PID: 10, State: "running"},
				{ID: "b", Window: 1, Index: 1, Label: "logs", Command: "xterm", PID: 11, State: "running", Current: true},
			},
			2: {
				{ID: "c", Window: 2, Index: 0, Label: "htop", Command: "xterm", PID: 12, State: "running", Current: true},
			},
		},
	}
}

func (c *fakeClient) GetStatus() (*ipc.StatusData, error) {
	if c.down {
		return nil, errors.New("connection refused")
	}
	return &ipc.StatusData{PID: 1, Windows: len(c.windows), Tabs: 3, Backend: "xterm", Running: true}, nil
}

func (c *fakeClient) ListWindows() ([]ipc.WindowData, error) { return c.windows, nil }

func (c *fakeClient) ListTabs(window int) (*ipc.TabsData, error) {
	if window == 0 {
		window = c.windows[len(c.windows)-1].ID
	}
	tabs, ok := c.tabs[window]
	if !ok {
		return nil, fmt.Errorf("window %d: %w", window, ipc.ErrNoWindow)
	}
	return &ipc.TabsData{Window: window, Tabs: tabs}, nil
}

func (c *fakeClient) NewTab(p ipc.NewTabPayload) (*ipc.TabData, error) {
	c.opened = append(c.opened, p.Window)
	return &ipc.TabData{ID: "new", Window: p.Window}, nil
}

func (c *fakeClient) CloseTab(ref ipc.TabRef) error {
	c.closed = append(c.closed, ref)
	return nil
}

func (c *fakeClient) CloseAll(window int, force bool) (bool, error) {
	c.closeAll = append(c.closeAll, window)
	return true, nil
}

func (c *fakeClient) SelectTab(ref ipc.TabRef) error {
	c.selected = append(c.selected, ref)
	return nil
}

func (c *fakeClient) RenameTab(ref ipc.TabRef, label *string) (*ipc.RenameData, error) {
	c.renamed = append(c.renamed, ref.ID+"="+*label)
	return &ipc.RenameData{Renamed: true, Label: *label}, nil
}

func (c *fakeClient) MoveTab(window, from, to int) error {
	c.moved = append(c.moved, [3]int{window, from, to})
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// update feeds msg to m and returns the new model and its command.
func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

// loaded returns a model that has seen one refresh of window.
func loaded(t *testing.T, c *fakeClient, window int) model {
	t.Helper()
	m := newModel(c)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, m.refresh(window)())
	return m
}

// runAction executes an action command and asserts it succeeded.
func runAction(t *testing.T, cmd tea.Cmd) actionMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	raw := cmd()
	msg, ok := raw.(actionMsg)
	if !ok {
		t.Fatalf("command returned %T, want actionMsg", raw)
	}
	if msg.err != nil {
		t.Fatalf("action failed: %v", msg.err)
	}
	return msg
}

func TestRefreshShowsLatestWindow(t *testing.T) {
	m := loaded(t, newFakeClient(), 0)
	if m.windowID() != 2 {
		t.Fatalf("windowID() = %d, want 2", m.windowID())
	}
	if len(m.list.Items()) != 1 {
		t.Fatalf("items = %d", len(m.list.Items()))
	}
	if !strings.Contains(m.View(), "htop") {
		t.Fatal("view does not show the tab label")
	}
}

func TestRefreshSelectsCurrentTab(t *testing.T) {
	m := loaded(t, newFakeClient(), 1)
	td, ok := m.selected()
	if !ok || td.ID != "b" {
		t.Fatalf("selected = %+v, %v", td, ok)
	}
}

func TestRefreshError(t *testing.T) {
	c := newFakeClient()
	c.down = true
	m := loaded(t, c, 0)
	if m.err == nil || len(m.list.Items()) != 0 {
		t.Fatalf("err = %v, items = %d", m.err, len(m.list.Items()))
	}
	if !strings.Contains(m.View(), "cannot reach termtab") {
		t.Fatal("view does not report the error")
	}
}

func TestTabActions(t *testing.T) {
	c := newFakeClient()
	m := loaded(t, c, 1)

	_, cmd := update(t, m, key("enter"))
	runAction(t, cmd)
	if len(c.selected) != 1 || c.selected[0].ID != "b" || c.selected[0].Window != 1 {
		t.Fatalf("selected = %+v", c.selected)
	}

	_, cmd = update(t, m, key("x"))
	runAction(t, cmd)
	if len(c.closed) != 1 || c.closed[0].ID != "b" {
		t.Fatalf("closed = %+v", c.closed)
	}

	_, cmd = update(t, m, key("n"))
	runAction(t, cmd)
	if len(c.opened) != 1 || c.opened[0] != 1 {
		t.Fatalf("opened = %v", c.opened)
	}

	next, cmd := update(t, m, key("K"))
	runAction(t, cmd)
	if len(c.moved) != 1 || c.moved[0] != [3]int{1, 1, 0} {
		t.Fatalf("moved = %v", c.moved)
	}
	if next.list.Index() != 0 {
		t.Fatalf("cursor = %d, want 0", next.list.Index())
	}

	if _, cmd := update(t, m, key("J")); cmd != nil {
		t.Fatal("moving the last tab down should be a no-op")
	}
}

func TestRename(t *testing.T) {
	c := newFakeClient()
	m := loaded(t, c, 1)

	m, _ = update(t, m, key("r"))
	if m.mode != modeRename || m.input.Value() != "logs" {
		t.Fatalf("mode = %v, value = %q", m.mode, m.input.Value())
	}
	m.input.SetValue("  tail  ")
	m, cmd := update(t, m, key("enter"))
	runAction(t, cmd)
	if m.mode != modeBrowse {
		t.Fatalf("mode = %v after enter", m.mode)
	}
	if len(c.renamed) != 1 || c.renamed[0] != "b=tail" {
		t.Fatalf("renamed = %v", c.renamed)
	}

	m, _ = update(t, m, key("r"))
	m, cmd = update(t, m, key("esc"))
	if m.mode != modeBrowse || cmd != nil || len(c.renamed) != 1 {
		t.Fatal("esc should cancel the rename")
	}
}

func TestCloseAllConfirm(t *testing.T) {
	c := newFakeClient()
	m := loaded(t, c, 1)

	m, cmd := update(t, m, key("X"))
	if m.mode != modeConfirmCloseAll || cmd != nil {
		t.Fatalf("mode = %v", m.mode)
	}
	if !strings.Contains(m.View(), "Close 2 tabs?") {
		t.Fatal("view does not show the confirmation")
	}
	m, _ = update(t, m, key("n"))
	if m.mode != modeBrowse || len(c.closeAll) != 0 {
		t.Fatal("n should cancel")
	}

	m, _ = update(t, m, key("X"))
	_, cmd = update(t, m, key("y"))
	runAction(t, cmd)
	if len(c.closeAll) != 1 || c.closeAll[0] != 1 {
		t.Fatalf("closeAll = %v", c.closeAll)
	}

	// A single tab closes without asking.
	single := loaded(t, c, 2)
	_, cmd = update(t, single, key("X"))
	runAction(t, cmd)
	if len(c.closeAll) != 2 || c.closeAll[1] != 2 {
		t.Fatalf("closeAll = %v", c.closeAll)
	}
}

func TestWindowSwitch(t *testing.T) {
	c := newFakeClient()
	m := loaded(t, c, 2)

	m, cmd := update(t, m, key("tab"))
	if m.windowID() != 1 {
		t.Fatalf("windowID() = %d, want 1", m.windowID())
	}
	m, _ = update(t, m, cmd())
	if len(m.list.Items()) != 2 {
		t.Fatalf("items = %d", len(m.list.Items()))
	}
}

func TestQuit(t *testing.T) {
	m := loaded(t, newFakeClient(), 0)
	_, cmd := update(t, m, key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}
