package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/termtab/internal/tab"
)

const (
	DefaultWindowTitle  = "Terminal"
	DefaultWindowWidth  = 600
	DefaultWindowHeight = 400
)

// XTermConfig controls the embedded xterm.
type XTermConfig struct {
	// Path is the xterm binary (default: xterm, looked up on PATH)
	Path string `yaml:"path"`
	// Class is the WM_CLASS passed with -class (default: Terminal)
	Class string `yaml:"class"`
	// Args are extra arguments placed before -ls and the shell
	Args []string `yaml:"args,omitempty"`
}

// WindowConfig controls the top-level window.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// KeysConfig holds xgbutil key sequences, e.g. "Control-Shift-t".
// An empty sequence disables the binding.
type KeysConfig struct {
	NewTab     string `yaml:"new_tab"`
	CloseTab   string `yaml:"close_tab"`
	CloseAll   string `yaml:"close_all"`
	NextTab    string `yaml:"next_tab"`
	PrevTab    string `yaml:"prev_tab"`
	RenameTab  string `yaml:"rename_tab"`
	NewWindow  string `yaml:"new_window"`
	Fullscreen string `yaml:"fullscreen"`
}

// LoggingConfig configures the tab action log.
type LoggingConfig struct {
	// Enabled turns action logging on/off
	Enabled bool `yaml:"enabled,omitempty"`
	// Level controls logging verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// File is the log file path (default: ~/.local/share/termtab/actions.log)
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
}

// Config is the effective configuration.
type Config struct {
	// Backend selects how tabs run: "xterm" embeds an xterm into each tab,
	// "shell" runs the shell on a pty (headless mode)
	Backend string `yaml:"backend"`
	// Shell is an explicit shell; empty uses $SHELL
	Shell string `yaml:"shell,omitempty"`
	// LoginShell starts the default shell as a login shell. It cannot be
	// combined with Shell.
	LoginShell bool   `yaml:"login_shell"`
	Directory  string `yaml:"directory,omitempty"`

	XTerm XTermConfig `yaml:"xterm"`

	// ConfirmClose asks before closing a window with several tabs
	ConfirmClose bool `yaml:"confirm_close"`
	// Dialog selects the dialog backend: auto, zenity, rofi, dmenu, terminal, none
	Dialog string `yaml:"dialog"`

	// Display overrides $DISPLAY for the X connection
	Display  string `yaml:"display,omitempty"`
	LogLevel string `yaml:"log_level"`

	Window  WindowConfig  `yaml:"window"`
	Keys    KeysConfig    `yaml:"keys"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:      string(tab.KindXTerm),
		XTerm:        XTermConfig{Path: tab.DefaultXTerm, Class: tab.DefaultClass},
		ConfirmClose: true,
		Dialog:       "auto",
		LogLevel:     "info",
		Window: WindowConfig{
			Title:  DefaultWindowTitle,
			Width:  DefaultWindowWidth,
			Height: DefaultWindowHeight,
		},
		Keys: KeysConfig{
			NewTab:     "Control-Shift-t",
			CloseTab:   "Control-Shift-w",
			CloseAll:   "Control-Shift-q",
			NextTab:    "Control-Next",
			PrevTab:    "Control-Prior",
			RenameTab:  "Control-Shift-r",
			NewWindow:  "Control-Shift-n",
			Fullscreen: "F11",
		},
	}
}

// Resolve turns the configuration into the spec for a new tab.
func (c *Config) Resolve() tab.Spec {
	spec := tab.Spec{
		Kind:      tab.Kind(c.Backend),
		Shell:     c.Shell,
		Login:     c.LoginShell,
		Directory: expandHome(c.Directory),
		XTerm:     c.XTerm.Path,
		Class:     c.XTerm.Class,
	}
	if len(c.XTerm.Args) > 0 {
		spec.ExtraArgs = append([]string(nil), c.XTerm.Args...)
	}
	return spec
}

// GetLoggingConfig returns the logging configuration with defaults applied.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{}
	}
	cfg := c.Logging
	if cfg.File == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = os.Getenv("HOME")
		}
		if home == "" {
			home = "."
		}
		cfg.File = filepath.Join(home, ".local/share/termtab/actions.log")
	}
	cfg.File = expandHome(cfg.File)
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 3
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return cfg
}

// Save writes the configuration to path, or the standard location when path
// is empty.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for invalid or conflicting values.
func (c *Config) Validate() error {
	switch tab.Kind(c.Backend) {
	case tab.KindXTerm, tab.KindShell:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: xterm, shell")}
	}
	if c.LoginShell && strings.TrimSpace(c.Shell) != "" {
		return &ValidationError{Path: "login_shell", Err: fmt.Errorf("login_shell cannot be combined with shell %q; a login shell always uses $SHELL", c.Shell)}
	}
	if c.Backend == string(tab.KindXTerm) && strings.TrimSpace(c.XTerm.Path) == "" {
		return &ValidationError{Path: "xterm.path", Err: fmt.Errorf("xterm.path must not be empty")}
	}
	if c.Backend == string(tab.KindXTerm) && strings.TrimSpace(c.XTerm.Class) == "" {
		return &ValidationError{Path: "xterm.class", Err: fmt.Errorf("xterm.class must not be empty")}
	}
	switch c.Dialog {
	case "auto", "zenity", "rofi", "dmenu", "terminal", "none":
	default:
		return &ValidationError{Path: "dialog", Err: fmt.Errorf("dialog must be one of: auto, zenity, rofi, dmenu, terminal, none")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.Window.Width <= 0 {
		return &ValidationError{Path: "window.width", Err: fmt.Errorf("width must be > 0")}
	}
	if c.Window.Height <= 0 {
		return &ValidationError{Path: "window.height", Err: fmt.Errorf("height must be > 0")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
