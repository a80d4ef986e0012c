package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/termtab/internal/runtimepath"
)

// InteractiveTimeout bounds requests that may wait on a dialog.
const InteractiveTimeout = 10 * time.Minute

// Client handles IPC communication with a running termtab
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to termtab: %w (is termtab running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, &RemoteError{Code: resp.Code, Message: resp.Error}
	}

	return &resp, nil
}

func (c *Client) call(cmd CommandType, payload any, out any, timeout time.Duration) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req, timeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Reload asks termtab to reload its configuration.
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil, c.timeout)
}

// GetStatus retrieves application status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status, c.timeout); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListWindows returns every open window.
func (c *Client) ListWindows() ([]WindowData, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data, c.timeout); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// ListTabs returns the tabs of a window in display order.
func (c *Client) ListTabs(window int) (*TabsData, error) {
	var data TabsData
	if err := c.call(CommandListTabs, WindowPayload{Window: window}, &data, c.timeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// NewTab opens a tab.
func (c *Client) NewTab(p NewTabPayload) (*TabData, error) {
	var data TabData
	if err := c.call(CommandNewTab, p, &data, c.timeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// CloseTab closes one tab.
func (c *Client) CloseTab(ref TabRef) error {
	return c.call(CommandCloseTab, ref, nil, c.timeout)
}

// CloseAll closes every tab of a window. Without force the window may ask
// for confirmation, so the call can block until the user answers.
func (c *Client) CloseAll(window int, force bool) (bool, error) {
	var data CloseAllData
	timeout := c.timeout
	if !force {
		timeout = InteractiveTimeout
	}
	if err := c.call(CommandCloseAll, CloseAllPayload{Window: window, Force: force}, &data, timeout); err != nil {
		return false, err
	}
	return data.Closed, nil
}

// CurrentTab returns the tab a window shows.
func (c *Client) CurrentTab(window int) (*TabData, error) {
	var data TabData
	if err := c.call(CommandCurrentTab, WindowPayload{Window: window}, &data, c.timeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// SelectTab shows a tab.
func (c *Client) SelectTab(ref TabRef) error {
	return c.call(CommandSelectTab, ref, nil, c.timeout)
}

// RenameTab renames a tab. With a nil label the window's rename dialog is
// shown and the call waits for it.
func (c *Client) RenameTab(ref TabRef, label *string) (*RenameData, error) {
	var data RenameData
	timeout := c.timeout
	if label == nil {
		timeout = InteractiveTimeout
	}
	if err := c.call(CommandRenameTab, RenameTabPayload{TabRef: ref, Label: label}, &data, timeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// MoveTab reorders a tab.
func (c *Client) MoveTab(window, from, to int) error {
	return c.call(CommandMoveTab, MoveTabPayload{Window: window, From: from, To: to}, nil, c.timeout)
}

// NewWindow opens a window with one default tab.
func (c *Client) NewWindow() (*WindowData, error) {
	var data WindowData
	if err := c.call(CommandNewWindow, nil, &data, c.timeout); err != nil {
		return nil, err
	}
	return &data, nil
}

// Ping checks if termtab is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
