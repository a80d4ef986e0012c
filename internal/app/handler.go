package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/1broseidon/termtab/internal/config"
	"github.com/1broseidon/termtab/internal/ipc"
	"github.com/1broseidon/termtab/internal/lifecycle"
	"github.com/1broseidon/termtab/internal/tab"
)

var _ ipc.Handler = (*App)(nil)

// requestTimeout bounds how long a non-interactive request waits for the loop.
const requestTimeout = 5 * time.Second

func errNoWindow(id int) error {
	if id == 0 {
		return fmt.Errorf("no open window: %w", ipc.ErrNoWindow)
	}
	return fmt.Errorf("window %d: %w", id, ipc.ErrNoWindow)
}

// do runs fn on the loop and returns its error.
func (a *App) do(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	var err error
	if doErr := a.loop.Do(ctx, func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

func tabData(window int, info lifecycle.TabInfo) ipc.TabData {
	return ipc.TabData{
		ID:      string(info.ID),
		Window:  window,
		Index:   info.Index,
		Label:   info.Label,
		Command: info.Command,
		PID:     info.PID,
		State:   info.State.String(),
		Current: info.Current,
	}
}

func windowData(id int, ctrl *lifecycle.Controller) ipc.WindowData {
	wd := ipc.WindowData{ID: id, Tabs: ctrl.Len()}
	if info, ok := ctrl.ActiveTab(); ok {
		wd.Current = info.Label
	}
	return wd
}

// resolveTab turns a reference into a tab id, looking indexes up first so a
// later reorder cannot retarget the request.
func resolveTab(ctrl *lifecycle.Controller, ref ipc.TabRef) (tab.ID, error) {
	if ref.ID != "" {
		id := tab.ID(ref.ID)
		if _, err := ctrl.FindByID(id); err != nil {
			return "", fmt.Errorf("tab %s: %w", id.Short(), err)
		}
		return id, nil
	}
	info, err := ctrl.At(*ref.Index)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (a *App) Status() (ipc.StatusData, error) {
	var status ipc.StatusData
	err := a.do(func() error {
		tabs := 0
		for _, ctrl := range a.windows {
			tabs += ctrl.Len()
		}
		status = ipc.StatusData{
			PID:           os.Getpid(),
			Windows:       len(a.windows),
			Tabs:          tabs,
			UptimeSeconds: int64(time.Since(a.started).Seconds()),
			ConfigPath:    a.configPath,
			Backend:       a.kind,
			Running:       true,
		}
		return nil
	})
	return status, err
}

// Reload reads the config file again and applies it.
func (a *App) Reload() error {
	var path string
	if err := a.do(func() error { path = a.configPath; return nil }); err != nil {
		return err
	}

	var res *config.LoadResult
	var err error
	if path == "" {
		res, err = config.LoadWithSources()
	} else {
		res, err = config.LoadFromPath(path)
	}
	if err != nil {
		a.logger.Warn("config reload failed", "error", err)
		return err
	}
	return a.ApplyConfig(res)
}

func (a *App) ListWindows() ([]ipc.WindowData, error) {
	var out []ipc.WindowData
	err := a.do(func() error {
		for _, id := range a.windowIDs() {
			out = append(out, windowData(id, a.windows[id]))
		}
		return nil
	})
	return out, err
}

func (a *App) ListTabs(window int) (ipc.TabsData, error) {
	var data ipc.TabsData
	err := a.do(func() error {
		id, ctrl, err := a.window(window)
		if err != nil {
			return err
		}
		data.Window = id
		data.Tabs = []ipc.TabData{}
		for _, info := range ctrl.Tabs() {
			data.Tabs = append(data.Tabs, tabData(id, info))
		}
		return nil
	})
	return data, err
}

func (a *App) NewTab(p ipc.NewTabPayload) (ipc.TabData, error) {
	var data ipc.TabData
	err := a.do(func() error {
		id, ctrl, err := a.window(p.Window)
		if err != nil {
			return err
		}
		// The request's shell or login flag replaces the configured default
		// as a whole; the request itself may not carry both.
		spec := a.cfg.Resolve()
		if p.Shell != "" {
			spec.Shell = p.Shell
			spec.Login = false
		}
		if p.Login {
			spec.Login = true
			spec.Shell = ""
		}
		if p.Directory != "" {
			spec.Directory = p.Directory
		}
		if p.Label != "" {
			spec.Label = p.Label
		}
		index, _, err := ctrl.OpenTabWith(spec)
		if err != nil {
			return err
		}
		info, err := ctrl.At(index)
		if err != nil {
			return err
		}
		data = tabData(id, info)
		return nil
	})
	return data, err
}

func (a *App) CloseTab(ref ipc.TabRef) error {
	return a.do(func() error {
		_, ctrl, err := a.window(ref.Window)
		if err != nil {
			return err
		}
		id, err := resolveTab(ctrl, ref)
		if err != nil {
			return err
		}
		return ctrl.CloseTab(id)
	})
}

type outcome struct {
	ok  bool
	err error
}

// await waits for a dialog continuation started by start.
func (a *App) await(ctx context.Context, start func(done func(bool, error)) error) (bool, error) {
	results := make(chan outcome, 1)
	done := func(ok bool, err error) { results <- outcome{ok, err} }
	if err := a.do(func() error { return start(done) }); err != nil {
		return false, err
	}
	select {
	case r := <-results:
		return r.ok, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	case <-a.loop.Done():
		select {
		case r := <-results:
			return r.ok, r.err
		default:
			return false, lifecycle.ErrTerminated
		}
	}
}

func (a *App) CloseAll(ctx context.Context, p ipc.CloseAllPayload) (bool, error) {
	return a.await(ctx, func(done func(bool, error)) error {
		_, ctrl, err := a.window(p.Window)
		if err != nil {
			return err
		}
		if p.Force {
			ctrl.ForceCloseAll()
			done(true, nil)
			return nil
		}
		ctrl.RequestCloseAll(done)
		return nil
	})
}

func (a *App) CurrentTab(window int) (ipc.TabData, error) {
	var data ipc.TabData
	err := a.do(func() error {
		id, ctrl, err := a.window(window)
		if err != nil {
			return err
		}
		info, ok := ctrl.ActiveTab()
		if !ok {
			return lifecycle.ErrNoActiveTab
		}
		data = tabData(id, info)
		return nil
	})
	return data, err
}

func (a *App) SelectTab(ref ipc.TabRef) error {
	return a.do(func() error {
		_, ctrl, err := a.window(ref.Window)
		if err != nil {
			return err
		}
		id, err := resolveTab(ctrl, ref)
		if err != nil {
			return err
		}
		index, err := ctrl.FindByID(id)
		if err != nil {
			return err
		}
		return ctrl.SelectTab(index)
	})
}

func (a *App) RenameTab(ctx context.Context, p ipc.RenameTabPayload) (ipc.RenameData, error) {
	var id tab.ID
	var ctrl *lifecycle.Controller
	renamed, err := a.await(ctx, func(done func(bool, error)) error {
		var err error
		_, ctrl, err = a.window(p.Window)
		if err != nil {
			return err
		}
		id, err = resolveTab(ctrl, p.TabRef)
		if err != nil {
			return err
		}
		if p.Label != nil {
			if err := ctrl.SetTabLabel(id, *p.Label); err != nil {
				return err
			}
			done(true, nil)
			return nil
		}
		ctrl.RenameTab(id, done)
		return nil
	})
	if err != nil || !renamed {
		return ipc.RenameData{Renamed: false}, err
	}

	var data ipc.RenameData
	err = a.do(func() error {
		data.Renamed = true
		index, err := ctrl.FindByID(id)
		if err != nil {
			return nil
		}
		if info, err := ctrl.At(index); err == nil {
			data.Label = info.Label
		}
		return nil
	})
	return data, err
}

func (a *App) MoveTab(p ipc.MoveTabPayload) error {
	return a.do(func() error {
		_, ctrl, err := a.window(p.Window)
		if err != nil {
			return err
		}
		return ctrl.MoveTab(p.From, p.To)
	})
}

func (a *App) NewWindow() (ipc.WindowData, error) {
	var data ipc.WindowData
	err := a.do(func() error {
		ctrl, err := a.openWindow()
		if err != nil {
			return err
		}
		data = windowData(ctrl.WindowID(), ctrl)
		return nil
	})
	return data, err
}
