// Package app runs termtab's windows on one event loop and serves IPC
// requests against them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/1broseidon/termtab/internal/actionlog"
	"github.com/1broseidon/termtab/internal/config"
	"github.com/1broseidon/termtab/internal/eventloop"
	"github.com/1broseidon/termtab/internal/lifecycle"
	"github.com/1broseidon/termtab/internal/spawn"
	"github.com/1broseidon/termtab/internal/tab"
)

// HostFactory creates the UI for a new window. events must be reported for
// user actions; the app already routes them onto its event loop.
type HostFactory func(id int, cfg *config.Config, events lifecycle.Events) (lifecycle.Host, error)

// Config holds the collaborators of an App.
type Config struct {
	Loaded  *config.LoadResult
	Hosts   HostFactory
	Dialog  lifecycle.Dialog
	Backend spawn.Backend
	Actions actionlog.Recorder
	Loop    *eventloop.Loop
	Logger  *slog.Logger
}

// App owns every window. Fields below loop are only touched on the loop.
type App struct {
	loop    *eventloop.Loop
	backend spawn.Backend
	kind    string
	hosts   HostFactory
	dialog  lifecycle.Dialog
	actions actionlog.Recorder
	logger  *slog.Logger
	started time.Time

	cfg        *config.Config
	configPath string
	windows    map[int]*lifecycle.Controller
	nextID     int
	ctx        context.Context
	cancel     context.CancelFunc
}

// New creates an app. Without a Backend one is built from the loaded config:
// an exec backend for xterm tabs, a pty backend for direct shells.
func New(cfg Config) (*App, error) {
	if cfg.Hosts == nil {
		return nil, errors.New("app: host factory is required")
	}
	loaded := cfg.Loaded
	if loaded == nil {
		loaded = &config.LoadResult{Config: config.DefaultConfig()}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loop := cfg.Loop
	if loop == nil {
		loop = eventloop.New()
	}
	actions := cfg.Actions
	if actions == nil {
		actions = (*actionlog.Logger)(nil)
	}

	a := &App{
		loop:       loop,
		backend:    cfg.Backend,
		kind:       loaded.Config.Backend,
		hosts:      cfg.Hosts,
		dialog:     cfg.Dialog,
		actions:    actions,
		logger:     logger,
		started:    time.Now(),
		cfg:        loaded.Config,
		configPath: loaded.Path,
		windows:    make(map[int]*lifecycle.Controller),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	if a.backend == nil {
		a.backend = newBackend(loaded.Config, loop, logger)
	}
	return a, nil
}

func newBackend(cfg *config.Config, loop *eventloop.Loop, logger *slog.Logger) spawn.Backend {
	opts := spawn.Options{Dispatch: loop.Post, Logger: logger}
	if cfg.Backend == string(tab.KindShell) {
		return spawn.NewPTYBackend(spawn.PTYOptions{Options: opts, Rows: 24, Cols: 80})
	}
	opts.Stdout = os.Stdout
	opts.Stderr = os.Stderr
	return spawn.NewExecBackend(opts)
}

// Loop returns the event loop the app runs on.
func (a *App) Loop() *eventloop.Loop {
	return a.loop
}

// Run opens the first window and processes events until the last window
// closes or ctx is cancelled. On cancellation every window is closed
// without confirmation.
func (a *App) Run(ctx context.Context) error {
	go a.loop.Run(context.Background())
	defer a.cancel()

	var openErr error
	if err := a.loop.Do(ctx, func() {
		_, openErr = a.openWindow()
	}); err != nil {
		a.loop.Stop()
		return err
	}
	if openErr != nil {
		a.loop.Stop()
		<-a.loop.Done()
		return openErr
	}

	select {
	case <-a.loop.Done():
		return nil
	case <-ctx.Done():
		a.logger.Info("shutting down", "reason", ctx.Err())
		a.cancel()
		a.loop.Do(context.Background(), a.closeAll)
		a.loop.Stop()
		<-a.loop.Done()
		return nil
	}
}

func (a *App) closeAll() {
	for _, id := range a.windowIDs() {
		a.windows[id].ForceCloseAll()
	}
}

// openWindow creates a window with one default tab. If that tab cannot be
// started the window is torn down again.
func (a *App) openWindow() (*lifecycle.Controller, error) {
	a.nextID++
	id := a.nextID

	var ctrl *lifecycle.Controller
	onLoop := func(fn func(c *lifecycle.Controller)) func() {
		return func() {
			a.loop.Post(func() {
				if ctrl != nil && !ctrl.Terminated() {
					fn(ctrl)
				}
			})
		}
	}
	events := lifecycle.Events{
		CloseWindow: onLoop(func(c *lifecycle.Controller) { c.RequestCloseAll(nil) }),
		NewTab: onLoop(func(c *lifecycle.Controller) {
			if _, _, err := c.OpenTab(); err != nil {
				a.logger.Warn("new tab failed", "window", id, "error", err)
			}
		}),
		CloseTab: onLoop(func(c *lifecycle.Controller) { c.CloseCurrent() }),
		NextTab:  onLoop(func(c *lifecycle.Controller) { c.NextTab() }),
		PrevTab:  onLoop(func(c *lifecycle.Controller) { c.PrevTab() }),
		RenameTab: onLoop(func(c *lifecycle.Controller) {
			c.RenameCurrent(func(_ bool, err error) {
				if err != nil {
					a.logger.Warn("rename failed", "window", id, "error", err)
				}
			})
		}),
		NewWindow: func() {
			a.loop.Post(func() {
				if _, err := a.openWindow(); err != nil {
					a.logger.Warn("new window failed", "error", err)
				}
			})
		},
		SelectTab: func(index int) {
			onLoop(func(c *lifecycle.Controller) { c.SelectTab(index) })()
		},
	}

	host, err := a.hosts(id, a.cfg, events)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	ctrl = lifecycle.New(lifecycle.Config{
		WindowID:    id,
		Backend:     a.backend,
		Host:        host,
		Dialog:      a.dialog,
		Spec:        func() tab.Spec { return a.cfg.Resolve() },
		SkipConfirm: !a.cfg.ConfirmClose,
		Post:        a.loop.Post,
		OnTerminate: func() { a.windowClosed(id) },
		Actions:     a.actions,
		Context:     a.ctx,
		Logger:      a.logger,
	})
	a.windows[id] = ctrl
	a.actions.Log(actionlog.ActionNewWindow, id, -1, nil)

	if _, _, err := ctrl.OpenTab(); err != nil {
		ctrl.ForceCloseAll()
		return nil, err
	}
	a.logger.Info("window opened", "window", id)
	return ctrl, nil
}

func (a *App) windowClosed(id int) {
	delete(a.windows, id)
	if len(a.windows) == 0 {
		a.logger.Info("last window closed, exiting")
		a.loop.Stop()
	}
}

func (a *App) windowIDs() []int {
	ids := make([]int, 0, len(a.windows))
	for id := range a.windows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// window resolves a window id; zero picks the most recently opened one.
func (a *App) window(id int) (int, *lifecycle.Controller, error) {
	if id == 0 {
		ids := a.windowIDs()
		if len(ids) == 0 {
			return 0, nil, errNoWindow(0)
		}
		id = ids[len(ids)-1]
	}
	ctrl, ok := a.windows[id]
	if !ok {
		return 0, nil, errNoWindow(id)
	}
	return id, ctrl, nil
}

// ApplyConfig swaps the configuration used for new tabs and close policy.
// The process backend is fixed at startup. It must not be called on the loop.
func (a *App) ApplyConfig(res *config.LoadResult) error {
	return a.loop.Do(context.Background(), func() {
		if res.Config.Backend != a.kind {
			a.logger.Warn("backend change takes effect after restart", "running", a.kind, "configured", res.Config.Backend)
			res.Config.Backend = a.kind
		}
		a.cfg = res.Config
		if res.Path != "" {
			a.configPath = res.Path
		}
		for _, ctrl := range a.windows {
			ctrl.SetSkipConfirm(!res.Config.ConfirmClose)
		}
		a.logger.Info("configuration reloaded", "path", a.configPath)
	})
}
