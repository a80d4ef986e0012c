package config

import (
	"fmt"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw on top of the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Backend != nil {
		cfg.Backend = *raw.Backend
	}
	if raw.Shell != nil {
		cfg.Shell = *raw.Shell
	}
	if raw.LoginShell != nil {
		cfg.LoginShell = *raw.LoginShell
	}
	if raw.Directory != nil {
		cfg.Directory = *raw.Directory
	}
	if raw.XTerm != nil {
		if raw.XTerm.Path != nil {
			cfg.XTerm.Path = *raw.XTerm.Path
		}
		if raw.XTerm.Class != nil {
			cfg.XTerm.Class = *raw.XTerm.Class
		}
		if raw.XTerm.Args != nil {
			cfg.XTerm.Args = append([]string(nil), raw.XTerm.Args...)
		}
	}
	if raw.ConfirmClose != nil {
		cfg.ConfirmClose = *raw.ConfirmClose
	}
	if raw.Dialog != nil {
		cfg.Dialog = *raw.Dialog
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.Window != nil {
		if raw.Window.Title != nil {
			cfg.Window.Title = *raw.Window.Title
		}
		if raw.Window.Width != nil {
			cfg.Window.Width = *raw.Window.Width
		}
		if raw.Window.Height != nil {
			cfg.Window.Height = *raw.Window.Height
		}
	}
	if raw.Keys != nil {
		applyString(&cfg.Keys.NewTab, raw.Keys.NewTab)
		applyString(&cfg.Keys.CloseTab, raw.Keys.CloseTab)
		applyString(&cfg.Keys.CloseAll, raw.Keys.CloseAll)
		applyString(&cfg.Keys.NextTab, raw.Keys.NextTab)
		applyString(&cfg.Keys.PrevTab, raw.Keys.PrevTab)
		applyString(&cfg.Keys.RenameTab, raw.Keys.RenameTab)
		applyString(&cfg.Keys.NewWindow, raw.Keys.NewWindow)
		applyString(&cfg.Keys.Fullscreen, raw.Keys.Fullscreen)
	}
	if raw.Logging != nil {
		if raw.Logging.Enabled != nil {
			cfg.Logging.Enabled = *raw.Logging.Enabled
		}
		applyString(&cfg.Logging.Level, raw.Logging.Level)
		applyString(&cfg.Logging.File, raw.Logging.File)
		cfg.Logging.MaxSizeMB = derefInt(raw.Logging.MaxSizeMB, cfg.Logging.MaxSizeMB)
		cfg.Logging.MaxFiles = derefInt(raw.Logging.MaxFiles, cfg.Logging.MaxFiles)
	}

	return cfg, nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
