package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/termtab/internal/ipc"
)

func validateRef(in TabRefInput, tool string) error {
	if in.ID == "" && in.Index == nil {
		return fmt.Errorf("%s: id or index is required", tool)
	}
	if in.Index != nil && *in.Index < 0 {
		return fmt.Errorf("%s: index must be >= 0", tool)
	}
	return nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ WindowInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.client.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	if windows == nil {
		windows = []ipc.WindowData{}
	}
	return nil, ListWindowsOutput{Windows: windows}, nil
}

func (s *Server) handleListTabs(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, ListTabsOutput, error) {
	data, err := s.client.ListTabs(args.Window)
	if err != nil {
		return nil, ListTabsOutput{}, err
	}
	tabs := data.Tabs
	if tabs == nil {
		tabs = []ipc.TabData{}
	}
	return nil, ListTabsOutput{Window: data.Window, Tabs: tabs}, nil
}

func (s *Server) handleOpenTab(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenTabInput) (*mcpsdk.CallToolResult, TabOutput, error) {
	if args.Login && args.Shell != "" {
		return nil, TabOutput{}, fmt.Errorf("open_tab: login and shell cannot be combined")
	}
	td, err := s.client.NewTab(ipc.NewTabPayload{
		Window:    args.Window,
		Shell:     args.Shell,
		Login:     args.Login,
		Directory: args.Directory,
		Label:     args.Label,
	})
	if err != nil {
		s.logger.Warn("open_tab failed", "error", err)
		return nil, TabOutput{}, err
	}
	s.logger.Info("open_tab", "window", td.Window, "tab", td.ID, "pid", td.PID)
	return nil, TabOutput{Tab: *td}, nil
}

func (s *Server) handleCloseTab(_ context.Context, _ *mcpsdk.CallToolRequest, args TabRefInput) (*mcpsdk.CallToolResult, CloseTabOutput, error) {
	if err := validateRef(args, "close_tab"); err != nil {
		return nil, CloseTabOutput{}, err
	}
	if err := s.client.CloseTab(args.ref()); err != nil {
		return nil, CloseTabOutput{Closed: false}, err
	}
	return nil, CloseTabOutput{Closed: true}, nil
}

func (s *Server) handleCloseAll(_ context.Context, _ *mcpsdk.CallToolRequest, args CloseAllInput) (*mcpsdk.CallToolResult, CloseAllOutput, error) {
	closed, err := s.client.CloseAll(args.Window, args.Force)
	if err != nil {
		return nil, CloseAllOutput{}, err
	}
	if !closed {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: "The user declined to close the window."},
			},
		}, CloseAllOutput{Closed: false}, nil
	}
	return nil, CloseAllOutput{Closed: true}, nil
}

func (s *Server) handleCurrentTab(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, TabOutput, error) {
	td, err := s.client.CurrentTab(args.Window)
	if err != nil {
		return nil, TabOutput{}, err
	}
	return nil, TabOutput{Tab: *td}, nil
}

func (s *Server) handleSelectTab(_ context.Context, _ *mcpsdk.CallToolRequest, args TabRefInput) (*mcpsdk.CallToolResult, SelectTabOutput, error) {
	if err := validateRef(args, "select_tab"); err != nil {
		return nil, SelectTabOutput{}, err
	}
	if err := s.client.SelectTab(args.ref()); err != nil {
		return nil, SelectTabOutput{}, err
	}
	return nil, SelectTabOutput{Selected: true}, nil
}

func (s *Server) handleRenameTab(_ context.Context, _ *mcpsdk.CallToolRequest, args RenameTabInput) (*mcpsdk.CallToolResult, RenameTabOutput, error) {
	ref := TabRefInput{Window: args.Window, ID: args.ID, Index: args.Index}
	if err := validateRef(ref, "rename_tab"); err != nil {
		return nil, RenameTabOutput{}, err
	}
	data, err := s.client.RenameTab(ref.ref(), args.Label)
	if err != nil {
		return nil, RenameTabOutput{}, err
	}
	return nil, RenameTabOutput{Renamed: data.Renamed, Label: data.Label}, nil
}

func (s *Server) handleMoveTab(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveTabInput) (*mcpsdk.CallToolResult, MoveTabOutput, error) {
	if args.From < 0 || args.To < 0 {
		return nil, MoveTabOutput{}, fmt.Errorf("move_tab: positions must be >= 0")
	}
	if err := s.client.MoveTab(args.Window, args.From, args.To); err != nil {
		return nil, MoveTabOutput{}, err
	}
	return nil, MoveTabOutput{Moved: true}, nil
}

func (s *Server) handleNewWindow(_ context.Context, _ *mcpsdk.CallToolRequest, _ NewWindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	wd, err := s.client.NewWindow()
	if err != nil {
		return nil, WindowOutput{}, err
	}
	return nil, WindowOutput{Window: *wd}, nil
}
