package config

import (
	"fmt"
	"sort"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	backend
//	shell
//	login_shell
//	directory
//	xterm.path
//	xterm.class
//	xterm.args
//	confirm_close
//	dialog
//	display
//	log_level
//	window.title
//	window.width
//	keys.<action>
//	logging.enabled
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// Paths lists every path Explain accepts, sorted.
func Paths() []string {
	out := make([]string, 0, len(lookupTable))
	for path := range lookupTable {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

var lookupTable = map[string]func(*Config) any{
	"backend":             func(c *Config) any { return c.Backend },
	"shell":               func(c *Config) any { return c.Shell },
	"login_shell":         func(c *Config) any { return c.LoginShell },
	"directory":           func(c *Config) any { return c.Directory },
	"xterm.path":          func(c *Config) any { return c.XTerm.Path },
	"xterm.class":         func(c *Config) any { return c.XTerm.Class },
	"xterm.args":          func(c *Config) any { return c.XTerm.Args },
	"confirm_close":       func(c *Config) any { return c.ConfirmClose },
	"dialog":              func(c *Config) any { return c.Dialog },
	"display":             func(c *Config) any { return c.Display },
	"log_level":           func(c *Config) any { return c.LogLevel },
	"window.title":        func(c *Config) any { return c.Window.Title },
	"window.width":        func(c *Config) any { return c.Window.Width },
	"window.height":       func(c *Config) any { return c.Window.Height },
	"keys.new_tab":        func(c *Config) any { return c.Keys.NewTab },
	"keys.close_tab":      func(c *Config) any { return c.Keys.CloseTab },
	"keys.close_all":      func(c *Config) any { return c.Keys.CloseAll },
	"keys.next_tab":       func(c *Config) any { return c.Keys.NextTab },
	"keys.prev_tab":       func(c *Config) any { return c.Keys.PrevTab },
	"keys.rename_tab":     func(c *Config) any { return c.Keys.RenameTab },
	"keys.new_window":     func(c *Config) any { return c.Keys.NewWindow },
	"keys.fullscreen":     func(c *Config) any { return c.Keys.Fullscreen },
	"logging.enabled":     func(c *Config) any { return c.Logging.Enabled },
	"logging.level":       func(c *Config) any { return c.Logging.Level },
	"logging.file":        func(c *Config) any { return c.Logging.File },
	"logging.max_size_mb": func(c *Config) any { return c.Logging.MaxSizeMB },
	"logging.max_files":   func(c *Config) any { return c.Logging.MaxFiles },
}

func lookupValue(cfg *Config, path string) (any, error) {
	path = strings.TrimSpace(path)
	get, ok := lookupTable[path]
	if !ok {
		return nil, fmt.Errorf("unknown config path %q", path)
	}
	return get(cfg), nil
}
