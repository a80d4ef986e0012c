package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/termtab/internal/ipc"
)

type fakeClient struct {
	tabs       []ipc.TabData
	closed     []ipc.TabRef
	forced     []bool
	declineAll bool
	renamed    []*string
	moved      [][2]int
	newTab     []ipc.NewTabPayload
	err        error
}

func (c *fakeClient) ListWindows() ([]ipc.WindowData, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []ipc.WindowData{{ID: 1, Tabs: len(c.tabs)}}, nil
}

func (c *fakeClient) ListTabs(window int) (*ipc.TabsData, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &ipc.TabsData{Window: 1, Tabs: c.tabs}, nil
}

func (c *fakeClient) NewTab(p ipc.NewTabPayload) (*ipc.TabData, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.newTab = append(c.newTab, p)
	td := ipc.TabData{ID: fmt.Sprintf("t%d", len(c.tabs)), Window: 1, Index: len(c.tabs), Label: p.Label, PID: 100, State: "running"}
	c.tabs = append(c.tabs, td)
	return &td, nil
}

func (c *fakeClient) CloseTab(ref ipc.TabRef) error {
	c.closed = append(c.closed, ref)
	return c.err
}

func (c *fakeClient) CloseAll(window int, force bool) (bool, error) {
	c.forced = append(c.forced, force)
	return force || !c.declineAll, c.err
}

func (c *fakeClient) CurrentTab(window int) (*ipc.TabData, error) {
	if len(c.tabs) == 0 {
		return nil, &ipc.RemoteError{Code: ipc.CodeNoActiveTab, Message: "no active tab"}
	}
	return &c.tabs[len(c.tabs)-1], nil
}

func (c *fakeClient) SelectTab(ref ipc.TabRef) error { return c.err }

func (c *fakeClient) RenameTab(ref ipc.TabRef, label *string) (*ipc.RenameData, error) {
	c.renamed = append(c.renamed, label)
	if label == nil {
		return &ipc.RenameData{Renamed: false}, nil
	}
	return &ipc.RenameData{Renamed: true, Label: *label}, nil
}

func (c *fakeClient) MoveTab(window, from, to int) error {
	c.moved = append(c.moved, [2]int{from, to})
	return c.err
}

func (c *fakeClient) NewWindow() (*ipc.WindowData, error) {
	return &ipc.WindowData{ID: 2, Tabs: 1}, nil
}

func intPtr(v int) *int { return &v }

func TestValidateRef(t *testing.T) {
	tests := []struct {
		name    string
		in      TabRefInput
		wantErr bool
	}{
		{"id", TabRefInput{ID: "abc"}, false},
		{"index", TabRefInput{Index: intPtr(0)}, false},
		{"neither", TabRefInput{}, true},
		{"negative", TabRefInput{Index: intPtr(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRef(tt.in, "close_tab")
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateRef() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleOpenTab(t *testing.T) {
	fc := &fakeClient{}
	s := NewServer(fc, nil)
	ctx := context.Background()

	_, out, err := s.handleOpenTab(ctx, nil, OpenTabInput{Directory: "/tmp", Label: "build"})
	if err != nil {
		t.Fatalf("handleOpenTab() error: %v", err)
	}
	if out.Tab.Label != "build" || out.Tab.PID != 100 {
		t.Fatalf("tab = %+v", out.Tab)
	}
	if fc.newTab[0].Directory != "/tmp" {
		t.Fatalf("payload = %+v", fc.newTab[0])
	}

	if _, _, err := s.handleOpenTab(ctx, nil, OpenTabInput{Login: true, Shell: "/bin/zsh"}); err == nil {
		t.Fatal("expected error for login with shell")
	}
	if len(fc.newTab) != 1 {
		t.Fatalf("rejected request reached the client")
	}
}

func TestHandleCloseAll(t *testing.T) {
	fc := &fakeClient{declineAll: true}
	s := NewServer(fc, nil)
	ctx := context.Background()

	res, out, err := s.handleCloseAll(ctx, nil, CloseAllInput{})
	if err != nil || out.Closed {
		t.Fatalf("handleCloseAll() = %+v, %v", out, err)
	}
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("expected an explanation for the declined close, got %+v", res)
	}

	_, out, err = s.handleCloseAll(ctx, nil, CloseAllInput{Force: true})
	if err != nil || !out.Closed {
		t.Fatalf("handleCloseAll(force) = %+v, %v", out, err)
	}
	if len(fc.forced) != 2 || fc.forced[0] || !fc.forced[1] {
		t.Fatalf("force flags = %v", fc.forced)
	}
}

func TestHandleRenameAndMove(t *testing.T) {
	fc := &fakeClient{}
	s := NewServer(fc, nil)
	ctx := context.Background()

	label := "logs"
	_, out, err := s.handleRenameTab(ctx, nil, RenameTabInput{ID: "t0", Label: &label})
	if err != nil || !out.Renamed || out.Label != "logs" {
		t.Fatalf("handleRenameTab() = %+v, %v", out, err)
	}
	_, out, err = s.handleRenameTab(ctx, nil, RenameTabInput{Index: intPtr(0)})
	if err != nil || out.Renamed {
		t.Fatalf("handleRenameTab(dialog) = %+v, %v", out, err)
	}
	if fc.renamed[1] != nil {
		t.Fatal("dialog rename should pass a nil label")
	}

	if _, _, err := s.handleMoveTab(ctx, nil, MoveTabInput{From: -1, To: 0}); err == nil {
		t.Fatal("expected error for negative position")
	}
	if _, mv, err := s.handleMoveTab(ctx, nil, MoveTabInput{From: 2, To: 0}); err != nil || !mv.Moved {
		t.Fatalf("handleMoveTab() = %+v, %v", mv, err)
	}
	if len(fc.moved) != 1 || fc.moved[0] != [2]int{2, 0} {
		t.Fatalf("moved = %v", fc.moved)
	}
}

func TestHandleErrorsPassThrough(t *testing.T) {
	fc := &fakeClient{err: &ipc.RemoteError{Code: ipc.CodeNotFound, Message: "tab not found"}}
	s := NewServer(fc, nil)
	ctx := context.Background()

	_, _, err := s.handleCloseTab(ctx, nil, TabRefInput{ID: "gone"})
	var remote *ipc.RemoteError
	if !errors.As(err, &remote) || !remote.NotFound() {
		t.Fatalf("handleCloseTab() error = %v", err)
	}
	if _, _, err := s.handleCurrentTab(ctx, nil, WindowInput{}); err == nil {
		t.Fatal("expected no active tab error")
	}
}

func connect(t *testing.T, fc TabClient) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	s := NewServer(fc, nil)
	serverT, clientT := mcpsdk.NewInMemoryTransports()
	ss, err := s.mcpServer.Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestToolsOverTransport(t *testing.T) {
	fc := &fakeClient{tabs: []ipc.TabData{{ID: "t0", Label: "vim", State: "running", Current: true}}}
	cs := connect(t, fc)
	ctx := context.Background()

	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_windows", "list_tabs", "open_tab", "close_tab", "close_all", "current_tab", "select_tab", "rename_tab", "move_tab", "new_window"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}

	res, err := cs.CallTool(ctx, &mcpsdk.CallToolParams{Name: "list_tabs", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool(list_tabs): %v", err)
	}
	if res.IsError {
		t.Fatalf("list_tabs returned an error result: %+v", res.Content)
	}
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("content = %T", res.Content[0])
	}
	var out ListTabsOutput
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(out.Tabs) != 1 || out.Tabs[0].Label != "vim" {
		t.Fatalf("tabs = %+v", out.Tabs)
	}

	res, err = cs.CallTool(ctx, &mcpsdk.CallToolParams{Name: "close_tab", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool(close_tab): %v", err)
	}
	if !res.IsError {
		t.Fatal("close_tab without a reference should fail")
	}
	msg := res.Content[0].(*mcpsdk.TextContent).Text
	if !strings.Contains(msg, "id or index") {
		t.Fatalf("error text = %q", msg)
	}
}
