package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawXTerm struct {
	Path  *string  `yaml:"path"`
	Class *string  `yaml:"class"`
	Args  []string `yaml:"args"`
}

type RawWindow struct {
	Title  *string `yaml:"title"`
	Width  *int    `yaml:"width"`
	Height *int    `yaml:"height"`
}

type RawKeys struct {
	NewTab     *string `yaml:"new_tab"`
	CloseTab   *string `yaml:"close_tab"`
	CloseAll   *string `yaml:"close_all"`
	NextTab    *string `yaml:"next_tab"`
	PrevTab    *string `yaml:"prev_tab"`
	RenameTab  *string `yaml:"rename_tab"`
	NewWindow  *string `yaml:"new_window"`
	Fullscreen *string `yaml:"fullscreen"`
}

type RawLoggingConfig struct {
	Enabled   *bool   `yaml:"enabled"`
	Level     *string `yaml:"level"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

// RawConfig is one YAML file as written: unset fields stay nil so layers
// can be merged before defaults apply.
type RawConfig struct {
	Include      IncludeList       `yaml:"include"`
	Backend      *string           `yaml:"backend"`
	Shell        *string           `yaml:"shell"`
	LoginShell   *bool             `yaml:"login_shell"`
	Directory    *string           `yaml:"directory"`
	XTerm        *RawXTerm         `yaml:"xterm"`
	ConfirmClose *bool             `yaml:"confirm_close"`
	Dialog       *string           `yaml:"dialog"`
	Display      *string           `yaml:"display"`
	LogLevel     *string           `yaml:"log_level"`
	Window       *RawWindow        `yaml:"window"`
	Keys         *RawKeys          `yaml:"keys"`
	Logging      *RawLoggingConfig `yaml:"logging"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Backend != nil {
		out.Backend = overlay.Backend
	}
	if overlay.Shell != nil {
		out.Shell = overlay.Shell
	}
	if overlay.LoginShell != nil {
		out.LoginShell = overlay.LoginShell
	}
	if overlay.Directory != nil {
		out.Directory = overlay.Directory
	}
	if overlay.XTerm != nil {
		x := RawXTerm{}
		if out.XTerm != nil {
			x = *out.XTerm
		}
		if overlay.XTerm.Path != nil {
			x.Path = overlay.XTerm.Path
		}
		if overlay.XTerm.Class != nil {
			x.Class = overlay.XTerm.Class
		}
		if overlay.XTerm.Args != nil {
			x.Args = overlay.XTerm.Args
		}
		out.XTerm = &x
	}
	if overlay.ConfirmClose != nil {
		out.ConfirmClose = overlay.ConfirmClose
	}
	if overlay.Dialog != nil {
		out.Dialog = overlay.Dialog
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Window != nil {
		w := RawWindow{}
		if out.Window != nil {
			w = *out.Window
		}
		if overlay.Window.Title != nil {
			w.Title = overlay.Window.Title
		}
		if overlay.Window.Width != nil {
			w.Width = overlay.Window.Width
		}
		if overlay.Window.Height != nil {
			w.Height = overlay.Window.Height
		}
		out.Window = &w
	}
	if overlay.Keys != nil {
		k := RawKeys{}
		if out.Keys != nil {
			k = *out.Keys
		}
		mergeString(&k.NewTab, overlay.Keys.NewTab)
		mergeString(&k.CloseTab, overlay.Keys.CloseTab)
		mergeString(&k.CloseAll, overlay.Keys.CloseAll)
		mergeString(&k.NextTab, overlay.Keys.NextTab)
		mergeString(&k.PrevTab, overlay.Keys.PrevTab)
		mergeString(&k.RenameTab, overlay.Keys.RenameTab)
		mergeString(&k.NewWindow, overlay.Keys.NewWindow)
		mergeString(&k.Fullscreen, overlay.Keys.Fullscreen)
		out.Keys = &k
	}
	if overlay.Logging != nil {
		l := RawLoggingConfig{}
		if out.Logging != nil {
			l = *out.Logging
		}
		if overlay.Logging.Enabled != nil {
			l.Enabled = overlay.Logging.Enabled
		}
		mergeString(&l.Level, overlay.Logging.Level)
		mergeString(&l.File, overlay.Logging.File)
		if overlay.Logging.MaxSizeMB != nil {
			l.MaxSizeMB = overlay.Logging.MaxSizeMB
		}
		if overlay.Logging.MaxFiles != nil {
			l.MaxFiles = overlay.Logging.MaxFiles
		}
		out.Logging = &l
	}

	return out
}

func mergeString(dst **string, src *string) {
	if src != nil {
		*dst = src
	}
}
