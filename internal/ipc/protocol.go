package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandListWindows CommandType = "LIST_WINDOWS"
	CommandListTabs    CommandType = "LIST_TABS"
	CommandNewTab      CommandType = "NEW_TAB"
	CommandCloseTab    CommandType = "CLOSE_TAB"
	CommandCloseAll    CommandType = "CLOSE_ALL"
	CommandCurrentTab  CommandType = "CURRENT_TAB"
	CommandSelectTab   CommandType = "SELECT_TAB"
	CommandRenameTab   CommandType = "RENAME_TAB"
	CommandMoveTab     CommandType = "MOVE_TAB"
	CommandNewWindow   CommandType = "NEW_WINDOW"
)

// Error codes let clients tell lookup misses from real failures.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeOutOfRange    = "OUT_OF_RANGE"
	CodeNoActiveTab   = "NO_ACTIVE_TAB"
	CodeNoWindow      = "NO_WINDOW"
	CodeDialogPending = "DIALOG_PENDING"
	CodeSpawnFailed   = "SPAWN_FAILED"
	CodeInvalid       = "INVALID"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	PID           int    `json:"pid"`
	Windows       int    `json:"windows"`
	Tabs          int    `json:"tabs"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	ConfigPath    string `json:"config_path,omitempty"`
	Backend       string `json:"backend"`
	Running       bool   `json:"running"`
}

// WindowData describes one top-level window.
type WindowData struct {
	ID      int    `json:"id"`
	Tabs    int    `json:"tabs"`
	Current string `json:"current,omitempty"` // label of the current tab
}

type WindowsData struct {
	Windows []WindowData `json:"windows"`
}

// TabData describes one tab.
type TabData struct {
	ID      string `json:"id"`
	Window  int    `json:"window"`
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Command string `json:"command"`
	PID     int    `json:"pid"`
	State   string `json:"state"`
	Current bool   `json:"current"`
}

type TabsData struct {
	Window int       `json:"window"`
	Tabs   []TabData `json:"tabs"`
}

// WindowPayload selects a window. Zero means the most recently opened one.
type WindowPayload struct {
	Window int `json:"window,omitempty"`
}

// TabRef selects a tab by id, or by index when ID is empty.
type TabRef struct {
	Window int    `json:"window,omitempty"`
	ID     string `json:"id,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

type NewTabPayload struct {
	Window    int    `json:"window,omitempty"`
	Shell     string `json:"shell,omitempty"`
	Login     bool   `json:"login,omitempty"`
	Directory string `json:"directory,omitempty"`
	Label     string `json:"label,omitempty"`
}

type CloseAllPayload struct {
	Window int  `json:"window,omitempty"`
	Force  bool `json:"force,omitempty"`
}

type CloseAllData struct {
	Closed bool `json:"closed"`
}

// RenameTabPayload renames a tab. Without Label the window's rename dialog
// is shown.
type RenameTabPayload struct {
	TabRef
	Label *string `json:"label,omitempty"`
}

type RenameData struct {
	Renamed bool   `json:"renamed"`
	Label   string `json:"label"`
}

type MoveTabPayload struct {
	Window int `json:"window,omitempty"`
	From   int `json:"from"`
	To     int `json:"to"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// RemoteError is an ERROR response surfaced by the client.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return "termtab: " + e.Message
}

// NotFound reports whether the server could not find the tab or window.
func (e *RemoteError) NotFound() bool {
	return e.Code == CodeNotFound || e.Code == CodeOutOfRange || e.Code == CodeNoWindow
}
