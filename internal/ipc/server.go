package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/termtab/internal/lifecycle"
	"github.com/1broseidon/termtab/internal/registry"
	"github.com/1broseidon/termtab/internal/runtimepath"
	"github.com/1broseidon/termtab/internal/spawn"
	"github.com/1broseidon/termtab/internal/tab"
)

// ErrNoWindow is returned by a Handler when the requested window does not exist.
var ErrNoWindow = errors.New("no such window")

// Handler executes IPC commands. Methods are called from connection
// goroutines; implementations hand the work to their event loop.
type Handler interface {
	Status() (StatusData, error)
	Reload() error
	ListWindows() ([]WindowData, error)
	ListTabs(window int) (TabsData, error)
	NewTab(p NewTabPayload) (TabData, error)
	CloseTab(ref TabRef) error
	CloseAll(ctx context.Context, p CloseAllPayload) (bool, error)
	CurrentTab(window int) (TabData, error)
	SelectTab(ref TabRef) error
	RenameTab(ctx context.Context, p RenameTabPayload) (RenameData, error)
	MoveTab(p MoveTabPayload) error
	NewWindow() (WindowData, error)
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	handler      Handler
	logger       *slog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a server on the standard socket path.
func NewServer(handler Handler, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, handler, logger), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections. A socket left behind by a dead
// instance is replaced; a live one is an error.
func (s *Server) Start() error {
	if conn, err := net.Dial("unix", s.socketPath); err == nil {
		conn.Close()
		return fmt.Errorf("another termtab instance is listening on %s", s.socketPath)
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// One JSON request per line.
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command)

	switch req.Command {
	case CommandReload:
		return respond(nil, s.handler.Reload())

	case CommandGetStatus:
		status, err := s.handler.Status()
		return respond(status, err)

	case CommandListWindows:
		windows, err := s.handler.ListWindows()
		return respond(WindowsData{Windows: windows}, err)

	case CommandListTabs:
		var p WindowPayload
		if resp := decode(req.Payload, &p); resp != nil {
			return resp
		}
		tabs, err := s.handler.ListTabs(p.Window)
		return respond(tabs, err)

	case CommandNewTab:
		var p NewTabPayload
		if resp := decode(req.Payload, &p); resp != nil {
			return resp
		}
		if p.Login && p.Shell != "" {
			return codedError(CodeInvalid, tab.ErrLoginWithShell.Error())
		}
		data, err := s.handler.NewTab(p)
		return respond(data, err)

	case CommandCloseTab:
		var p TabRef
		if resp := decodeRef(req.Payload, &p); resp != nil {
			return resp
		}
		return respond(nil, s.handler.CloseTab(p))

	case CommandCloseAll:
		var p CloseAllPayload
		if resp := decode(req.Payload, &p); resp != nil {
			return resp
		}
		closed, err := s.handler.CloseAll(s.ctx, p)
		return respond(CloseAllData{Closed: closed}, err)

	case CommandCurrentTab:
		var p WindowPayload
		if resp := decode(req.Payload, &p); resp != nil {
			return resp
		}
		data, err := s.handler.CurrentTab(p.Window)
		return respond(data, err)

	case CommandSelectTab:
		var p TabRef
		if resp := decodeRef(req.Payload, &p); resp != nil {
			return resp
		}
		return respond(nil, s.handler.SelectTab(p))

	case CommandRenameTab:
		var p RenameTabPayload
		if resp := decodeRef(req.Payload, &p); resp != nil {
			return resp
		}
		data, err := s.handler.RenameTab(s.ctx, p)
		return respond(data, err)

	case CommandMoveTab:
		var p MoveTabPayload
		if resp := decode(req.Payload, &p); resp != nil {
			return resp
		}
		return respond(nil, s.handler.MoveTab(p))

	case CommandNewWindow:
		data, err := s.handler.NewWindow()
		return respond(data, err)

	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func decode(payload json.RawMessage, out any) *Response {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return codedError(CodeInvalid, fmt.Sprintf("Invalid payload: %v", err))
	}
	return nil
}

type tabRefHolder interface {
	ref() TabRef
}

func (r TabRef) ref() TabRef { return r }

func decodeRef[T tabRefHolder](payload json.RawMessage, out *T) *Response {
	if resp := decode(payload, out); resp != nil {
		return resp
	}
	r := (*out).ref()
	if r.ID == "" && r.Index == nil {
		return codedError(CodeInvalid, "tab id or index is required")
	}
	return nil
}

func respond(data any, err error) *Response {
	if err != nil {
		return codedError(errorCode(err), err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func codedError(code, msg string) *Response {
	resp := NewErrorResponse(msg)
	resp.Code = code
	return resp
}

func errorCode(err error) string {
	var spawnErr *spawn.Error
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, registry.ErrIndexOutOfRange):
		return CodeOutOfRange
	case errors.Is(err, lifecycle.ErrNoActiveTab):
		return CodeNoActiveTab
	case errors.Is(err, lifecycle.ErrDialogPending):
		return CodeDialogPending
	case errors.Is(err, ErrNoWindow), errors.Is(err, lifecycle.ErrTerminated):
		return CodeNoWindow
	case errors.As(err, &spawnErr):
		return CodeSpawnFailed
	default:
		return ""
	}
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop shuts the server down, cancels pending interactive requests and
// waits for open connections.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
	s.wg.Wait()
}
