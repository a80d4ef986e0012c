package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/termtab/internal/tab"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Window.Title != "Terminal" || cfg.Window.Width != 600 || cfg.Window.Height != 400 {
		t.Fatalf("unexpected window defaults: %+v", cfg.Window)
	}
	if !cfg.ConfirmClose {
		t.Fatal("expected confirm_close to default to true")
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend != "xterm" {
		t.Fatalf("expected backend xterm, got %q", res.Config.Backend)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Dialog != "auto" {
		t.Fatalf("expected dialog auto, got %q", res.Config.Dialog)
	}
}

func TestLoadFromPath_OverridesAndSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"backend: shell",
		"shell: /bin/zsh",
		"confirm_close: false",
		"window:",
		"  width: 800",
		"keys:",
		"  new_tab: Mod4-t",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Backend != "shell" || cfg.Shell != "/bin/zsh" || cfg.ConfirmClose {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 400 {
		t.Fatalf("expected partial window override, got %+v", cfg.Window)
	}
	if cfg.Keys.NewTab != "Mod4-t" || cfg.Keys.CloseTab != "Control-Shift-w" {
		t.Fatalf("expected partial keys override, got %+v", cfg.Keys)
	}

	val, src, err := Explain(res, "window.width")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 800 || src.Kind != SourceFile || src.Line != 5 {
		t.Fatalf("explain window.width = %v from %+v", val, src)
	}
	_, src, err = Explain(res, "window.title")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if src.Kind != SourceDefault {
		t.Fatalf("expected default source, got %+v", src)
	}
}

func TestLoadFromPath_RejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "backnd: xterm\n")

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestLoadFromPath_LoginShellConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "login_shell: true\nshell: /bin/bash\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "login_shell" {
		t.Fatalf("expected path login_shell, got %q", verr.Path)
	}
	if verr.Source.File == "" || verr.Source.Line != 1 {
		t.Fatalf("expected source context, got %+v", verr.Source)
	}
	if !strings.Contains(err.Error(), ":1:") {
		t.Fatalf("expected file:line in message, got %q", err.Error())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"backend", func(c *Config) { c.Backend = "vte" }, "backend"},
		{"dialog", func(c *Config) { c.Dialog = "kdialog" }, "dialog"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"width", func(c *Config) { c.Window.Width = 0 }, "window.width"},
		{"xterm path", func(c *Config) { c.XTerm.Path = " " }, "xterm.path"},
		{"max files", func(c *Config) { c.Logging.MaxFiles = -1 }, "logging.max_files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Fatalf("Validate() = %v, want error at %s", err, tt.path)
			}
		})
	}

	shellOnly := DefaultConfig()
	shellOnly.Backend = "shell"
	shellOnly.XTerm.Path = ""
	if err := shellOnly.Validate(); err != nil {
		t.Fatalf("shell backend should not need xterm.path: %v", err)
	}
}

func TestLoadFromPath_Includes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, filepath.Join(dir, "conf.d", "10-xterm.yaml"), "xterm:\n  class: XTabbed\n  args: [\"-fa\", \"Monospace\"]\n")
	writeFile(t, filepath.Join(dir, "conf.d", "20-window.yaml"), "window:\n  title: Tabs\n")
	writeFile(t, path, "include: conf.d\nwindow:\n  height: 500\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.XTerm.Class != "XTabbed" || len(cfg.XTerm.Args) != 2 {
		t.Fatalf("include not applied: %+v", cfg.XTerm)
	}
	if cfg.Window.Title != "Tabs" || cfg.Window.Height != 500 {
		t.Fatalf("window merge wrong: %+v", cfg.Window)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", res.Files)
	}
	_, src, _ := Explain(res, "xterm.class")
	if !strings.HasSuffix(src.File, "10-xterm.yaml") {
		t.Fatalf("xterm.class source = %+v", src)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "include: b.yaml\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg := DefaultConfig()
	cfg.LoginShell = true
	cfg.Directory = "~/src"
	cfg.XTerm.Args = []string{"-fa", "Mono"}

	spec := cfg.Resolve()
	if spec.Kind != tab.KindXTerm || !spec.Login || spec.Shell != "" {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.Directory != "/home/tester/src" {
		t.Fatalf("directory = %q", spec.Directory)
	}
	if spec.XTerm != "xterm" || spec.Class != "Terminal" {
		t.Fatalf("xterm = %q class = %q", spec.XTerm, spec.Class)
	}
	spec.ExtraArgs[0] = "mutated"
	if cfg.XTerm.Args[0] != "-fa" {
		t.Fatal("Resolve shares the args slice with the config")
	}
}

func TestGetLoggingConfigDefaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	lc := DefaultConfig().GetLoggingConfig()
	if lc.File != "/home/tester/.local/share/termtab/actions.log" {
		t.Fatalf("file = %q", lc.File)
	}
	if lc.MaxSizeMB != 10 || lc.MaxFiles != 3 || lc.Level != "info" {
		t.Fatalf("unexpected defaults: %+v", lc)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath: %v", err)
	}
	if path != "/xdg/termtab/config.yaml" {
		t.Fatalf("path = %q", path)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	path, _ = DefaultConfigPath()
	if path != "/home/tester/.config/termtab/config.yaml" {
		t.Fatalf("path = %q", path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Window.Title = "Saved"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if res.Config.Window.Title != "Saved" {
		t.Fatalf("title = %q", res.Config.Window.Title)
	}

	bad := DefaultConfig()
	bad.Backend = "nope"
	if err := bad.Save(path); err == nil {
		t.Fatal("expected Save to validate")
	}
}

func TestExplainUnknownPath(t *testing.T) {
	res, _ := LoadFromPath(filepath.Join(t.TempDir(), "none.yaml"))
	if _, _, err := Explain(res, "layouts.grid"); err == nil {
		t.Fatal("expected unknown path error")
	}
	for _, p := range Paths() {
		if _, _, err := Explain(res, p); err != nil {
			t.Fatalf("Explain(%q): %v", p, err)
		}
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "window:\n  title: One\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan *LoadResult, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, WatchOptions{Debounce: 20 * time.Millisecond}, func(res *LoadResult, err error) {
			if err == nil {
				results <- res
			}
		})
	}()

	// Keep writing until the watcher has registered and picked a change up.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case res := <-results:
			if res.Config.Window.Title != "Two" {
				t.Fatalf("title = %q, want Two", res.Config.Window.Title)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch returned %v", err)
			}
			return
		case <-tick.C:
			writeFile(t, path, "window:\n  title: Two\n")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
