package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/termtab/internal/config"
	"github.com/1broseidon/termtab/internal/ipc"
	"github.com/1broseidon/termtab/internal/lifecycle"
	"github.com/1broseidon/termtab/internal/lifecycle/lifecycletest"
	"github.com/1broseidon/termtab/internal/spawn"
	"github.com/1broseidon/termtab/internal/spawn/spawntest"
)

type fixture struct {
	app     *App
	backend *spawntest.Backend
	dialog  *lifecycletest.Dialog

	mu     sync.Mutex
	hosts  map[int]*lifecycletest.Host
	events map[int]lifecycle.Events

	cancel context.CancelFunc
	errCh  chan error
}

func newFixture(t *testing.T, loaded *config.LoadResult, prepare func(*fixture)) *fixture {
	t.Helper()
	f := &fixture{
		backend: spawntest.New(),
		dialog:  &lifecycletest.Dialog{},
		hosts:   make(map[int]*lifecycletest.Host),
		events:  make(map[int]lifecycle.Events),
		errCh:   make(chan error, 1),
	}
	if prepare != nil {
		prepare(f)
	}
	a, err := New(Config{
		Loaded:  loaded,
		Backend: f.backend,
		Dialog:  f.dialog,
		Hosts: func(id int, cfg *config.Config, ev lifecycle.Events) (lifecycle.Host, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			h := lifecycletest.NewHost()
			f.hosts[id] = h
			f.events[id] = ev
			return h, nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	f.app = a

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { f.errCh <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-f.errCh:
		case <-time.After(5 * time.Second):
			t.Error("app did not stop")
		}
	})
	return f
}

func (f *fixture) host(id int) *lifecycletest.Host {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hosts[id]
}

func (f *fixture) eventsFor(id int) lifecycle.Events {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (f *fixture) waitWindows(t *testing.T, n int) {
	t.Helper()
	waitFor(t, "windows", func() bool {
		ws, err := f.app.ListWindows()
		return err == nil && len(ws) == n
	})
}

func (f *fixture) waitExit(t *testing.T) error {
	t.Helper()
	select {
	case err := <-f.errCh:
		f.errCh <- err
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("app did not exit")
		return nil
	}
}

// exit delivers a child exit on the loop, as the real backends do.
func (f *fixture) exit(t *testing.T, pid int, status spawn.ExitStatus) {
	t.Helper()
	if err := f.app.Loop().Do(context.Background(), func() {
		f.backend.Exit(spawn.Handle(pid), status)
	}); err != nil {
		t.Fatalf("deliver exit: %v", err)
	}
}

func TestRunExitsWhenLastTabExits(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.waitWindows(t, 1)

	tabs, err := f.app.ListTabs(0)
	if err != nil || len(tabs.Tabs) != 1 {
		t.Fatalf("ListTabs() = %+v, %v", tabs, err)
	}
	if tabs.Tabs[0].Label != "xterm" || !tabs.Tabs[0].Current {
		t.Fatalf("default tab = %+v", tabs.Tabs[0])
	}

	f.exit(t, tabs.Tabs[0].PID, spawn.ExitStatus{Code: 0})
	if err := f.waitExit(t); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if f.host(1).Closes() != 1 {
		t.Fatalf("host closes = %d", f.host(1).Closes())
	}
}

func TestRunFirstTabFailure(t *testing.T) {
	f := newFixture(t, nil, func(f *fixture) {
		f.backend.FailCommands["xterm"] = nil
	})
	err := f.waitExit(t)
	var spawnErr *spawn.Error
	if !errors.As(err, &spawnErr) || spawnErr.Command != "xterm" {
		t.Fatalf("Run() = %v, want spawn error", err)
	}
}

func TestTabOperations(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.waitWindows(t, 1)

	second, err := f.app.NewTab(ipc.NewTabPayload{Label: "logs"})
	if err != nil {
		t.Fatalf("NewTab() error: %v", err)
	}
	if second.Index != 1 || second.Label != "logs" || !second.Current || second.State != "running" {
		t.Fatalf("NewTab() = %+v", second)
	}

	cur, err := f.app.CurrentTab(0)
	if err != nil || cur.ID != second.ID {
		t.Fatalf("CurrentTab() = %+v, %v", cur, err)
	}

	zero := 0
	if err := f.app.SelectTab(ipc.TabRef{Index: &zero}); err != nil {
		t.Fatalf("SelectTab(0) error: %v", err)
	}
	cur, _ = f.app.CurrentTab(0)
	if cur.Index != 0 {
		t.Fatalf("current index = %d after select", cur.Index)
	}

	label := "build"
	data, err := f.app.RenameTab(context.Background(), ipc.RenameTabPayload{TabRef: ipc.TabRef{ID: second.ID}, Label: &label})
	if err != nil || !data.Renamed || data.Label != "build" {
		t.Fatalf("RenameTab() = %+v, %v", data, err)
	}

	if err := f.app.MoveTab(ipc.MoveTabPayload{From: 1, To: 0}); err != nil {
		t.Fatalf("MoveTab() error: %v", err)
	}
	tabs, _ := f.app.ListTabs(0)
	if tabs.Tabs[0].Label != "build" || tabs.Tabs[1].Label != "xterm" {
		t.Fatalf("after move = %+v", tabs.Tabs)
	}
	if got := f.host(1).Labels(); got[0] != "build" {
		t.Fatalf("host labels = %v", got)
	}

	if err := f.app.CloseTab(ipc.TabRef{ID: second.ID}); err != nil {
		t.Fatalf("CloseTab() error: %v", err)
	}
	if err := f.app.CloseTab(ipc.TabRef{ID: second.ID}); err == nil {
		t.Fatal("second CloseTab() succeeded")
	}
	tabs, _ = f.app.ListTabs(0)
	if len(tabs.Tabs) != 1 {
		t.Fatalf("tabs after close = %d", len(tabs.Tabs))
	}

	big := 7
	if err := f.app.SelectTab(ipc.TabRef{Index: &big}); err == nil {
		t.Fatal("SelectTab(7) succeeded")
	}
	if _, err := f.app.ListTabs(9); !errors.Is(err, ipc.ErrNoWindow) {
		t.Fatalf("ListTabs(9) = %v, want ErrNoWindow", err)
	}
}

func TestNewTabOverrides(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.waitWindows(t, 1)

	if _, err := f.app.NewTab(ipc.NewTabPayload{Shell: "/bin/zsh", Directory: "/tmp"}); err != nil {
		t.Fatalf("NewTab() error: %v", err)
	}
	cmd := f.backend.Last().Command
	if cmd.Args[len(cmd.Args)-1] != "/bin/zsh" || cmd.Dir != "/tmp" {
		t.Fatalf("command = %+v", cmd)
	}

	if _, err := f.app.NewTab(ipc.NewTabPayload{Login: true}); err != nil {
		t.Fatalf("NewTab(login) error: %v", err)
	}
	cmd = f.backend.Last().Command
	if cmd.Args[len(cmd.Args)-1] != "-ls" {
		t.Fatalf("login command = %+v", cmd.Args)
	}
}

func TestNewTabShellReplacesConfiguredLogin(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LoginShell = true
	f := newFixture(t, &config.LoadResult{Config: cfg}, nil)
	f.waitWindows(t, 1)

	if args := f.backend.Last().Command.Args; args[len(args)-1] != "-ls" {
		t.Fatalf("default tab args = %v, want login", args)
	}
	if _, err := f.app.NewTab(ipc.NewTabPayload{Shell: "/bin/zsh"}); err != nil {
		t.Fatalf("NewTab(shell) error: %v", err)
	}
	args := f.backend.Last().Command.Args
	if args[len(args)-1] != "/bin/zsh" || hasArgs(args, "-ls") {
		t.Fatalf("args = %v, want /bin/zsh without -ls", args)
	}
}

func TestCloseAllConfirmation(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.waitWindows(t, 1)
	if _, err := f.app.NewTab(ipc.NewTabPayload{}); err != nil {
		t.Fatalf("NewTab() error: %v", err)
	}

	closed, err := f.app.CloseAll(context.Background(), ipc.CloseAllPayload{})
	if err != nil || closed {
		t.Fatalf("CloseAll(declined) = %v, %v", closed, err)
	}
	if got := f.dialog.Confirms(); len(got) != 1 {
		t.Fatalf("confirms = %v", got)
	}

	f.dialog.ConfirmAnswer = true
	closed, err = f.app.CloseAll(context.Background(), ipc.CloseAllPayload{})
	if err != nil || !closed {
		t.Fatalf("CloseAll(confirmed) = %v, %v", closed, err)
	}
	if err := f.waitExit(t); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(f.backend.Kills()) != 2 {
		t.Fatalf("kills = %v", f.backend.Kills())
	}
}

func TestMultipleWindows(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.waitWindows(t, 1)

	w, err := f.app.NewWindow()
	if err != nil || w.ID != 2 || w.Tabs != 1 {
		t.Fatalf("NewWindow() = %+v, %v", w, err)
	}
	tabs, _ := f.app.ListTabs(0)
	if tabs.Window != 2 {
		t.Fatalf("default window = %d, want most recent", tabs.Window)
	}

	closed, err := f.app.CloseAll(context.Background(), ipc.CloseAllPayload{Window: 1, Force: true})
	if err != nil || !closed {
		t.Fatalf("CloseAll(force) = %v, %v", closed, err)
	}
	f.waitWindows(t, 1)
	select {
	case err := <-f.errCh:
		t.Fatalf("app exited with a window still open: %v", err)
	default:
	}

	status, err := f.app.Status()
	if err != nil || status.Windows != 1 || status.Tabs != 1 || !status.Running {
		t.Fatalf("Status() = %+v, %v", status, err)
	}
}

func TestHostEvents(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.waitWindows(t, 1)
	ev := f.eventsFor(1)

	ev.NewTab()
	waitFor(t, "second tab", func() bool {
		tabs, err := f.app.ListTabs(1)
		return err == nil && len(tabs.Tabs) == 2
	})

	ev.PrevTab()
	waitFor(t, "prev tab", func() bool {
		cur, err := f.app.CurrentTab(1)
		return err == nil && cur.Index == 0
	})

	ev.SelectTab(1)
	waitFor(t, "select", func() bool {
		cur, err := f.app.CurrentTab(1)
		return err == nil && cur.Index == 1
	})

	ev.CloseTab()
	waitFor(t, "close current", func() bool {
		tabs, err := f.app.ListTabs(1)
		return err == nil && len(tabs.Tabs) == 1
	})

	ev.NewWindow()
	f.waitWindows(t, 2)

	// One tab left, so closing the window does not ask.
	ev.CloseWindow()
	f.waitWindows(t, 1)
	if len(f.dialog.Confirms()) != 0 {
		t.Fatalf("unexpected confirm: %v", f.dialog.Confirms())
	}
}

func TestShutdownOnCancel(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.waitWindows(t, 1)
	if _, err := f.app.NewWindow(); err != nil {
		t.Fatalf("NewWindow() error: %v", err)
	}

	f.cancel()
	if err := f.waitExit(t); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(f.backend.Kills()) != 2 {
		t.Fatalf("kills = %v, want both default tabs", f.backend.Kills())
	}
}

func TestReloadAppliesClosePolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("confirm_close: true\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	f := newFixture(t, loaded, nil)
	f.waitWindows(t, 1)
	if _, err := f.app.NewTab(ipc.NewTabPayload{}); err != nil {
		t.Fatalf("NewTab() error: %v", err)
	}

	if err := os.WriteFile(path, []byte("confirm_close: false\nxterm:\n  class: Reloaded\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.app.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	status, _ := f.app.Status()
	if status.ConfigPath != path {
		t.Fatalf("config path = %q", status.ConfigPath)
	}

	if _, err := f.app.NewTab(ipc.NewTabPayload{}); err != nil {
		t.Fatalf("NewTab() error: %v", err)
	}
	if !hasArgs(f.backend.Last().Command.Args, "-class", "Reloaded") {
		t.Fatalf("reload not applied to new tab: %v", f.backend.Last().Command.Args)
	}

	closed, err := f.app.CloseAll(context.Background(), ipc.CloseAllPayload{})
	if err != nil || !closed {
		t.Fatalf("CloseAll() = %v, %v", closed, err)
	}
	if len(f.dialog.Confirms()) != 0 {
		t.Fatal("confirm_close: false still asked")
	}
}

func hasArgs(args []string, want ...string) bool {
	for i := 0; i+len(want) <= len(args); i++ {
		ok := true
		for j := range want {
			if args[i+j] != want[j] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func TestHeadlessHost(t *testing.T) {
	host, err := Headless(nil)(3, config.DefaultConfig(), lifecycle.Events{})
	if err != nil {
		t.Fatalf("Headless() error: %v", err)
	}
	a, _ := host.CreateTabContainer("a")
	b, _ := host.CreateTabContainer("b")
	if a == b || a.IsZero() {
		t.Fatalf("containers = %v, %v", a, b)
	}
	if _, ok := host.CurrentTabIndex(); ok {
		t.Fatal("current tab before select")
	}
	host.SelectTab(1)
	host.MoveTab(1, 0)
	if i, _ := host.CurrentTabIndex(); i != 0 {
		t.Fatalf("current after move = %d", i)
	}

	// b is current at index 0; moving a across it shifts the selection.
	c, _ := host.CreateTabContainer("c")
	host.MoveTab(1, 0)
	if i, _ := host.CurrentTabIndex(); i != 1 {
		t.Fatalf("current after moving a before b = %d, want 1", i)
	}
	host.MoveTab(0, 2)
	if i, _ := host.CurrentTabIndex(); i != 0 {
		t.Fatalf("current after moving a past b = %d, want 0", i)
	}

	host.DestroyTabContainer(c)
	host.DestroyTabContainer(b)
	host.DestroyTabContainer(a)
	if _, ok := host.CurrentTabIndex(); ok {
		t.Fatal("current tab after destroying all")
	}
}
