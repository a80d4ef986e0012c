package mcp

import "github.com/1broseidon/termtab/internal/ipc"

// WindowInput selects a window. Zero means the most recently opened one.
type WindowInput struct {
	Window int `json:"window,omitempty" jsonschema:"Window id (default: the most recently opened window)"`
}

// TabRefInput selects a tab by id or index.
type TabRefInput struct {
	Window int    `json:"window,omitempty" jsonschema:"Window id (default: the most recently opened window)"`
	ID     string `json:"id,omitempty" jsonschema:"Tab id as returned by list_tabs. Takes precedence over index."`
	Index  *int   `json:"index,omitempty" jsonschema:"Zero-based tab position, used when id is empty"`
}

func (in TabRefInput) ref() ipc.TabRef {
	return ipc.TabRef{Window: in.Window, ID: in.ID, Index: in.Index}
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []ipc.WindowData `json:"windows"`
}

// ListTabsOutput is the output for the list_tabs tool.
type ListTabsOutput struct {
	Window int           `json:"window"`
	Tabs   []ipc.TabData `json:"tabs"`
}

// OpenTabInput is the input for the open_tab tool.
type OpenTabInput struct {
	Window    int    `json:"window,omitempty" jsonschema:"Window id (default: the most recently opened window)"`
	Shell     string `json:"shell,omitempty" jsonschema:"Shell to run instead of the configured one. Cannot be combined with login."`
	Login     bool   `json:"login,omitempty" jsonschema:"Start the default shell as a login shell"`
	Directory string `json:"directory,omitempty" jsonschema:"Working directory for the new tab"`
	Label     string `json:"label,omitempty" jsonschema:"Initial tab label (default: command name)"`
}

// TabOutput wraps a single tab.
type TabOutput struct {
	Tab ipc.TabData `json:"tab"`
}

// CloseTabOutput is the output for the close_tab tool.
type CloseTabOutput struct {
	Closed bool `json:"closed"`
}

// CloseAllInput is the input for the close_all tool.
type CloseAllInput struct {
	Window int  `json:"window,omitempty" jsonschema:"Window id (default: the most recently opened window)"`
	Force  bool `json:"force,omitempty" jsonschema:"Close without asking the user even when several tabs are open"`
}

// CloseAllOutput is the output for the close_all tool.
type CloseAllOutput struct {
	Closed bool `json:"closed"`
}

// SelectTabOutput is the output for the select_tab tool.
type SelectTabOutput struct {
	Selected bool `json:"selected"`
}

// RenameTabInput is the input for the rename_tab tool.
type RenameTabInput struct {
	Window int    `json:"window,omitempty" jsonschema:"Window id (default: the most recently opened window)"`
	ID     string `json:"id,omitempty" jsonschema:"Tab id as returned by list_tabs. Takes precedence over index."`
	Index  *int   `json:"index,omitempty" jsonschema:"Zero-based tab position, used when id is empty"`
	Label *string `json:"label,omitempty" jsonschema:"New label. When omitted the user is asked in a dialog."`
}

// RenameTabOutput is the output for the rename_tab tool.
type RenameTabOutput struct {
	Renamed bool   `json:"renamed"`
	Label   string `json:"label,omitempty"`
}

// MoveTabInput is the input for the move_tab tool.
type MoveTabInput struct {
	Window int `json:"window,omitempty" jsonschema:"Window id (default: the most recently opened window)"`
	From   int `json:"from" jsonschema:"Current zero-based position"`
	To     int `json:"to" jsonschema:"New zero-based position"`
}

// MoveTabOutput is the output for the move_tab tool.
type MoveTabOutput struct {
	Moved bool `json:"moved"`
}

// NewWindowInput is the input for the new_window tool.
type NewWindowInput struct{}

// WindowOutput wraps a single window.
type WindowOutput struct {
	Window ipc.WindowData `json:"window"`
}
