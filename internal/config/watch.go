package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watch reloads path whenever it or one of its included files changes and
// passes the result to onChange. The parent directories are watched rather
// than the files, so editors that replace the file on save are seen. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, path string, opts WatchOptions, onChange func(*LoadResult, error)) error {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]struct{})
	targets := make(map[string]struct{})
	track := func(files []string) {
		for _, f := range files {
			abs, err := filepath.Abs(f)
			if err != nil {
				continue
			}
			targets[abs] = struct{}{}
			dir := filepath.Dir(abs)
			if _, ok := watched[dir]; ok {
				continue
			}
			if err := w.Add(dir); err != nil {
				logger.Warn("cannot watch config directory", "dir", dir, "error", err)
				continue
			}
			watched[dir] = struct{}{}
		}
	}

	track([]string{path})
	if res, err := LoadFromPath(path); err == nil {
		track(res.Files)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			if _, ok := targets[abs]; !ok {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			res, err := LoadFromPath(path)
			if err == nil {
				track(res.Files)
			}
			onChange(res, err)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
