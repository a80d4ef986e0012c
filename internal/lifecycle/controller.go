// Package lifecycle ties tab slots to their window: it reacts to child exits
// and user close requests, and terminates the window when its last tab goes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/1broseidon/termtab/internal/actionlog"
	"github.com/1broseidon/termtab/internal/registry"
	"github.com/1broseidon/termtab/internal/spawn"
	"github.com/1broseidon/termtab/internal/tab"
)

var (
	// ErrTerminated is returned once the window has closed.
	ErrTerminated = errors.New("window terminated")
	// ErrNoActiveTab is returned when the host reports no current tab.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrDialogPending is returned while another dialog is open for this window.
	ErrDialogPending = errors.New("a dialog is already open")
)

const (
	closeAllTitle   = "Warning"
	closeAllMessage = "There are multiple tabs opened. Do you really want to close every tab opened in this window?"
	renameTitle     = "Rename tab"
	renameMessage   = "Rename this tab as:"
)

// Host is the UI side of a window: it owns tab containers and the visible
// tab strip.
type Host interface {
	CreateTabContainer(label string) (tab.ContainerRef, error)
	DestroyTabContainer(ref tab.ContainerRef)
	SetTabLabel(ref tab.ContainerRef, label string)
	CurrentTabIndex() (int, bool)
	SelectTab(index int)
	MoveTab(from, to int)
	// Close destroys the window itself. It is called once, after the last
	// tab is gone.
	Close()
}

// Events are the user actions a Host reports, such as a key press or the
// window manager's close button. A Host may call them from any goroutine.
type Events struct {
	CloseWindow func()
	NewTab      func()
	CloseTab    func()
	NextTab     func()
	PrevTab     func()
	RenameTab   func()
	NewWindow   func()
	SelectTab   func(index int)
}

// Dialog asks the user questions. Implementations may block; the controller
// never calls them on the event goroutine.
type Dialog interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
	PromptText(ctx context.Context, title, message, initial string) (string, bool, error)
}

// Config holds the collaborators of a Controller.
type Config struct {
	// WindowID labels log lines and action log entries.
	WindowID int
	Backend  spawn.Backend
	Host     Host
	Dialog   Dialog
	// Spec returns the spec for tabs opened without an explicit one. It is
	// read on every open so config reloads apply to new tabs.
	Spec func() tab.Spec
	// SkipConfirm closes every tab without asking even when several are open.
	SkipConfirm bool
	// Post runs fn on the event goroutine. Dialog answers come back through it.
	Post func(fn func()) bool
	// Go starts a dialog. Defaults to a new goroutine.
	Go func(fn func())
	// OnTerminate runs on the event goroutine once the window has closed.
	OnTerminate func()
	Actions     actionlog.Recorder
	Context     context.Context
	Logger      *slog.Logger
}

// TabInfo is a snapshot of one tab.
type TabInfo struct {
	ID      tab.ID
	Index   int
	Label   string
	Command string
	PID     int
	State   tab.State
	Current bool
}

// Controller owns one window's tabs. Every method must be called on the
// event goroutine.
type Controller struct {
	window      int
	reg         *registry.Registry
	host        Host
	dialog      Dialog
	spec        func() tab.Spec
	skipConfirm bool
	post        func(func()) bool
	goFn        func(func())
	onTerminate func()
	actions     actionlog.Recorder
	ctx         context.Context
	logger      *slog.Logger

	dialogOpen bool
	terminated bool
}

// New creates a controller with an empty registry.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("window", cfg.WindowID)

	c := &Controller{
		window:      cfg.WindowID,
		host:        cfg.Host,
		dialog:      cfg.Dialog,
		spec:        cfg.Spec,
		skipConfirm: cfg.SkipConfirm,
		post:        cfg.Post,
		goFn:        cfg.Go,
		onTerminate: cfg.OnTerminate,
		actions:     cfg.Actions,
		ctx:         cfg.Context,
		logger:      logger,
	}
	if c.spec == nil {
		c.spec = func() tab.Spec { return tab.Spec{} }
	}
	if c.goFn == nil {
		c.goFn = func(fn func()) { go fn() }
	}
	if c.post == nil {
		c.post = func(fn func()) bool { fn(); return true }
	}
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	if c.actions == nil {
		c.actions = (*actionlog.Logger)(nil)
	}
	c.reg = registry.New(registry.Config{
		Backend: cfg.Backend,
		OnExit:  c.HandleExit,
		Logger:  logger,
	})
	return c
}

// WindowID returns the id this controller was created with.
func (c *Controller) WindowID() int {
	return c.window
}

// SetSkipConfirm changes the close-all policy for later requests.
func (c *Controller) SetSkipConfirm(skip bool) {
	c.skipConfirm = skip
}

// Len returns the number of open tabs.
func (c *Controller) Len() int {
	return c.reg.Len()
}

// Terminated reports whether the window has closed.
func (c *Controller) Terminated() bool {
	return c.terminated
}

// OpenTab opens a tab with the default spec.
func (c *Controller) OpenTab() (int, *tab.Slot, error) {
	return c.OpenTabWith(c.spec())
}

// OpenTabWith creates a container, spawns spec into it and selects the new
// tab. On failure the container is destroyed and the registry is unchanged.
func (c *Controller) OpenTabWith(spec tab.Spec) (int, *tab.Slot, error) {
	if c.terminated {
		return -1, nil, ErrTerminated
	}
	if err := spec.Validate(); err != nil {
		return -1, nil, fmt.Errorf("invalid tab spec: %w", err)
	}

	ref, err := c.host.CreateTabContainer(spec.DefaultLabel())
	if err != nil {
		return -1, nil, fmt.Errorf("create tab container: %w", err)
	}

	index, s, err := c.reg.Open(spec, ref)
	if err != nil {
		c.host.DestroyTabContainer(ref)
		c.logger.Error("failed to open tab", "error", err)
		c.actions.Log(actionlog.ActionSpawnFailed, c.window, -1, map[string]interface{}{"error": err.Error()})
		return -1, nil, err
	}

	c.host.SelectTab(index)
	c.logger.Info("tab opened", "tab", s.ID().Short(), "index", index, "command", s.Command(), "pid", int(s.Handle()))
	c.actions.Log(actionlog.ActionOpenTab, c.window, index, map[string]interface{}{
		"tab":     s.ID().Short(),
		"command": s.Command(),
		"pid":     int(s.Handle()),
	})
	return index, s, nil
}

// HandleExit is the exit notification for every tab of this window. A
// handle that no longer belongs to a tab is ignored.
func (c *Controller) HandleExit(h spawn.Handle, status spawn.ExitStatus) {
	index, s, err := c.reg.Reaped(h)
	if err != nil {
		return
	}

	if status.Signaled || status.Code != 0 {
		c.logger.Warn("tab process exited", "tab", s.ID().Short(), "command", s.Command(), "pid", int(h), "status", status.String())
	} else {
		c.logger.Debug("tab process exited", "tab", s.ID().Short(), "pid", int(h))
	}
	c.host.DestroyTabContainer(s.Container())
	c.actions.Log(actionlog.ActionTabExit, c.window, index, map[string]interface{}{
		"tab":    s.ID().Short(),
		"status": status.String(),
	})
	c.checkEmpty()
}

// CloseTab closes the tab with the given identity.
func (c *Controller) CloseTab(id tab.ID) error {
	if c.terminated {
		return ErrTerminated
	}
	index, err := c.reg.FindByID(id)
	if err != nil {
		return fmt.Errorf("close tab %s: %w", id.Short(), err)
	}
	return c.CloseTabAt(index)
}

// CloseTabAt terminates and removes the tab at index.
func (c *Controller) CloseTabAt(index int) error {
	if c.terminated {
		return ErrTerminated
	}
	s, _, err := c.reg.Close(index)
	if err != nil {
		return err
	}
	c.host.DestroyTabContainer(s.Container())
	c.logger.Info("tab closed", "tab", s.ID().Short(), "index", index)
	c.actions.Log(actionlog.ActionCloseTab, c.window, index, map[string]interface{}{"tab": s.ID().Short()})
	c.checkEmpty()
	return nil
}

// RenameCurrent opens the rename dialog for the tab the host shows.
func (c *Controller) RenameCurrent(done func(renamed bool, err error)) {
	info, ok := c.ActiveTab()
	if !ok {
		if done != nil {
			done(false, ErrNoActiveTab)
		}
		return
	}
	c.RenameTab(info.ID, done)
}

// CloseCurrent closes the tab the host shows.
func (c *Controller) CloseCurrent() error {
	index, err := c.CurrentIndex()
	if err != nil {
		return err
	}
	return c.CloseTabAt(index)
}

// CurrentIndex returns the host's current tab.
func (c *Controller) CurrentIndex() (int, error) {
	if c.terminated {
		return -1, ErrTerminated
	}
	index, ok := c.host.CurrentTabIndex()
	if !ok || index < 0 || index >= c.reg.Len() {
		return -1, ErrNoActiveTab
	}
	return index, nil
}

// ActiveTab reports whether there is a current tab and returns it.
func (c *Controller) ActiveTab() (TabInfo, bool) {
	index, err := c.CurrentIndex()
	if err != nil {
		return TabInfo{}, false
	}
	s, err := c.reg.At(index)
	if err != nil {
		return TabInfo{}, false
	}
	return c.info(index, s, true), true
}

// Tabs returns every tab in display order.
func (c *Controller) Tabs() []TabInfo {
	current := -1
	if index, err := c.CurrentIndex(); err == nil {
		current = index
	}
	slots := c.reg.Slots()
	out := make([]TabInfo, 0, len(slots))
	for i, s := range slots {
		out = append(out, c.info(i, s, i == current))
	}
	return out
}

func (c *Controller) info(index int, s *tab.Slot, current bool) TabInfo {
	return TabInfo{
		ID:      s.ID(),
		Index:   index,
		Label:   s.Label(),
		Command: s.Command(),
		PID:     int(s.Handle()),
		State:   s.State(),
		Current: current,
	}
}

// RequestCloseAll is the window-close path. With more than one tab the user
// is asked first; declining or a dialog failure leaves everything open. done,
// if set, runs on the event goroutine with the outcome.
func (c *Controller) RequestCloseAll(done func(closed bool, err error)) {
	if done == nil {
		done = func(bool, error) {}
	}
	if c.terminated {
		done(false, ErrTerminated)
		return
	}
	if c.reg.Len() <= 1 || c.skipConfirm || c.dialog == nil {
		c.ForceCloseAll()
		done(true, nil)
		return
	}
	if c.dialogOpen {
		done(false, ErrDialogPending)
		return
	}

	c.dialogOpen = true
	c.goFn(func() {
		ok, err := c.dialog.Confirm(c.ctx, closeAllTitle, closeAllMessage)
		c.post(func() {
			c.dialogOpen = false
			switch {
			case err != nil:
				c.logger.Warn("close confirmation failed", "error", err)
				done(false, err)
			case !ok:
				c.logger.Debug("close all cancelled")
				done(false, nil)
			case c.terminated:
				done(true, nil)
			default:
				c.ForceCloseAll()
				done(true, nil)
			}
		})
	})
}

// ForceCloseAll closes every tab without asking and terminates the window.
func (c *Controller) ForceCloseAll() {
	if c.terminated {
		return
	}
	closed := c.reg.CloseAll()
	for _, s := range closed {
		c.host.DestroyTabContainer(s.Container())
	}
	c.logger.Info("closed all tabs", "count", len(closed))
	c.actions.Log(actionlog.ActionCloseAll, c.window, -1, map[string]interface{}{"count": len(closed)})
	c.terminate()
}

// RenameTab asks the user for a new label, starting from the current one.
// The tab may close while the dialog is open; the answer is then dropped.
func (c *Controller) RenameTab(id tab.ID, done func(renamed bool, err error)) {
	if done == nil {
		done = func(bool, error) {}
	}
	if c.terminated {
		done(false, ErrTerminated)
		return
	}
	s, ok := c.reg.Get(id)
	if !ok {
		done(false, fmt.Errorf("rename tab %s: %w", id.Short(), registry.ErrNotFound))
		return
	}
	if c.dialog == nil {
		done(false, errors.New("no dialog available"))
		return
	}
	if c.dialogOpen {
		done(false, ErrDialogPending)
		return
	}

	c.dialogOpen = true
	initial := s.Label()
	c.goFn(func() {
		label, ok, err := c.dialog.PromptText(c.ctx, renameTitle, renameMessage, initial)
		c.post(func() {
			c.dialogOpen = false
			if err != nil {
				c.logger.Warn("rename dialog failed", "error", err)
				done(false, err)
				return
			}
			if !ok {
				done(false, nil)
				return
			}
			if err := c.SetTabLabel(id, label); err != nil {
				done(false, nil)
				return
			}
			done(true, nil)
		})
	})
}

// SetTabLabel renames a tab directly.
func (c *Controller) SetTabLabel(id tab.ID, label string) error {
	if c.terminated {
		return ErrTerminated
	}
	s, ok := c.reg.Get(id)
	if !ok {
		return fmt.Errorf("rename tab %s: %w", id.Short(), registry.ErrNotFound)
	}
	index, _ := c.reg.FindByID(id)
	s.Rename(label)
	c.host.SetTabLabel(s.Container(), label)
	c.actions.Log(actionlog.ActionRenameTab, c.window, index, map[string]interface{}{"tab": id.Short(), "label": label})
	return nil
}

// MoveTab reorders a tab and mirrors the change in the host.
func (c *Controller) MoveTab(from, to int) error {
	if c.terminated {
		return ErrTerminated
	}
	if err := c.reg.Move(from, to); err != nil {
		return err
	}
	if from != to {
		c.host.MoveTab(from, to)
		c.actions.Log(actionlog.ActionMoveTab, c.window, to, map[string]interface{}{"from": from})
	}
	return nil
}

// SelectTab shows the tab at index.
func (c *Controller) SelectTab(index int) error {
	if c.terminated {
		return ErrTerminated
	}
	if _, err := c.reg.At(index); err != nil {
		return err
	}
	c.host.SelectTab(index)
	return nil
}

// NextTab selects the tab after the current one, wrapping around.
func (c *Controller) NextTab() error {
	return c.cycle(1)
}

// PrevTab selects the tab before the current one, wrapping around.
func (c *Controller) PrevTab() error {
	return c.cycle(-1)
}

func (c *Controller) cycle(delta int) error {
	index, err := c.CurrentIndex()
	if err != nil {
		return err
	}
	n := c.reg.Len()
	return c.SelectTab(((index+delta)%n + n) % n)
}

// FindByID returns the current index of a tab.
func (c *Controller) FindByID(id tab.ID) (int, error) {
	return c.reg.FindByID(id)
}

// At returns the tab at index.
func (c *Controller) At(index int) (TabInfo, error) {
	s, err := c.reg.At(index)
	if err != nil {
		return TabInfo{}, err
	}
	current, _ := c.host.CurrentTabIndex()
	return c.info(index, s, current == index), nil
}

func (c *Controller) checkEmpty() {
	if c.reg.Len() == 0 {
		c.terminate()
	}
}

func (c *Controller) terminate() {
	if c.terminated {
		return
	}
	c.terminated = true
	c.host.Close()
	c.logger.Info("window closed")
	c.actions.Log(actionlog.ActionCloseWindow, c.window, -1, nil)
	if c.onTerminate != nil {
		c.onTerminate()
	}
}
