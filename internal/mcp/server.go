// Package mcp exposes termtab's tabs to agents as MCP tools over stdio. Every
// tool is a thin call into the running instance's IPC socket.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/termtab/internal/ipc"
)

const (
	ServerName    = "termtab"
	ServerVersion = "0.1.0"
)

// TabClient is the subset of the IPC client the tools use.
type TabClient interface {
	ListWindows() ([]ipc.WindowData, error)
	ListTabs(window int) (*ipc.TabsData, error)
	NewTab(p ipc.NewTabPayload) (*ipc.TabData, error)
	CloseTab(ref ipc.TabRef) error
	CloseAll(window int, force bool) (bool, error)
	CurrentTab(window int) (*ipc.TabData, error)
	SelectTab(ref ipc.TabRef) error
	RenameTab(ref ipc.TabRef, label *string) (*ipc.RenameData, error)
	MoveTab(window, from, to int) error
	NewWindow() (*ipc.WindowData, error)
}

var _ TabClient = (*ipc.Client)(nil)

// Server is the MCP server for termtab.
type Server struct {
	mcpServer *mcpsdk.Server
	client    TabClient
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards tool calls to client.
func NewServer(client TabClient, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		client: client,
		logger: logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List termtab windows with their tab count and the label of the tab each one shows.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_tabs",
		Description: "List the tabs of a window in display order with id, label, command, pid and state.",
	}, s.handleListTabs)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_tab",
		Description: "Open a new tab running the configured terminal, optionally with another shell, a login shell or a working directory. The new tab is selected.",
	}, s.handleOpenTab)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_tab",
		Description: "Close one tab and terminate its process. Closing the last tab closes the window.",
	}, s.handleCloseTab)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_all",
		Description: "Close every tab of a window and the window itself. Unless force is set, the user is asked first when more than one tab is open; closed is false if they decline.",
	}, s.handleCloseAll)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "current_tab",
		Description: "Return the tab a window is showing.",
	}, s.handleCurrentTab)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "select_tab",
		Description: "Show a tab.",
	}, s.handleSelectTab)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "rename_tab",
		Description: "Set a tab's label. Without a label the user is asked in a rename dialog and the call waits for the answer.",
	}, s.handleRenameTab)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_tab",
		Description: "Move a tab to another position in the tab bar.",
	}, s.handleMoveTab)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "new_window",
		Description: "Open a new window with one default tab.",
	}, s.handleNewWindow)
}
