package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/1broseidon/termtab/internal/actionlog"
	"github.com/1broseidon/termtab/internal/app"
	"github.com/1broseidon/termtab/internal/config"
	"github.com/1broseidon/termtab/internal/dialog"
	"github.com/1broseidon/termtab/internal/ipc"
	"github.com/1broseidon/termtab/internal/tab"
	"github.com/1broseidon/termtab/internal/x11"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runRun(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "tab":
		os.Exit(runTab(os.Args[2:]))
	case "close-all":
		os.Exit(runCloseAll(os.Args[2:]))
	case "window":
		os.Exit(runWindow(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: termtab <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Open a tabbed terminal window (foreground)")
	fmt.Fprintln(w, "  status              Show status of the running instance")
	fmt.Fprintln(w, "  reload              Reload configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tab new             Open a tab")
	fmt.Fprintln(w, "  tab close           Close a tab")
	fmt.Fprintln(w, "  tab list            List tabs of a window")
	fmt.Fprintln(w, "  tab current         Show the current tab")
	fmt.Fprintln(w, "  tab select          Show a tab")
	fmt.Fprintln(w, "  tab rename          Rename a tab")
	fmt.Fprintln(w, "  tab move            Reorder a tab")
	fmt.Fprintln(w, "  close-all           Close every tab of a window")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  window new          Open another window")
	fmt.Fprintln(w, "  window list         List windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config path         Print the config file path")
	fmt.Fprintln(w, "  config init         Write a default config file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open interactive tab switcher")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'termtab <command> --help' for command-specific options.")
}

// loadConfig loads path, or the standard location when path is empty.
func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openActionLog(cfg *config.Config) *actionlog.Logger {
	lc := cfg.GetLoggingConfig()
	actions, err := actionlog.New(actionlog.Config{
		Enabled:   lc.Enabled,
		Level:     actionlog.ParseLevel(lc.Level),
		FilePath:  lc.File,
		MaxSizeMB: lc.MaxSizeMB,
		MaxFiles:  lc.MaxFiles,
	})
	if err != nil {
		log.Printf("Warning: action log disabled: %v", err)
		return nil
	}
	return actions
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: termtab run [--config PATH] [--display DISPLAY] [--headless]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Open a window with one tab and serve IPC until the last window closes.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("config", "", "Config file path (default: ~/.config/termtab/config.yaml)")
	display := fs.String("display", "", "X display (default: display from config, then $DISPLAY)")
	headless := fs.Bool("headless", false, "Run shells on ptys without any X window")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "run takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	if *headless {
		cfg.Backend = string(tab.KindShell)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", res.Path, "backend", cfg.Backend, "dialog", cfg.Dialog)

	dlg, err := dialog.New(cfg.Dialog, logger)
	if err != nil {
		log.Fatalf("Failed to set up dialogs: %v", err)
	}

	var conn *x11.Connection
	var hosts app.HostFactory
	if *headless {
		hosts = app.Headless(logger)
	} else {
		d := *display
		if d == "" {
			d = cfg.Display
		}
		conn, err = x11.NewConnection(d)
		if err != nil {
			log.Fatalf("Failed to connect to display: %v", err)
		}
		defer conn.Close()
		hosts = x11.Factory(conn, logger)
	}

	actions := openActionLog(cfg)
	defer actions.Close()

	a, err := app.New(app.Config{
		Loaded:  res,
		Hosts:   hosts,
		Dialog:  dlg,
		Actions: actions,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ipcServer, err := ipc.NewServer(a, logger)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if res.Path != "" {
		go func() {
			err := config.Watch(ctx, res.Path, config.WatchOptions{Logger: logger}, func(next *config.LoadResult, err error) {
				if err != nil {
					logger.Warn("config reload failed", "error", err)
					return
				}
				if err := a.ApplyConfig(next); err != nil {
					logger.Warn("config reload not applied", "error", err)
				}
			})
			if err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received SIGHUP, reloading config")
					if err := a.Reload(); err != nil {
						logger.Warn("config reload failed", "error", err)
					}
				default:
					logger.Info("shutting down", "signal", sig.String())
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if conn != nil {
		go conn.EventLoop()
	}

	runErr := a.Run(ctx)
	if conn != nil {
		conn.Quit()
	}
	if runErr != nil {
		logger.Error("termtab exited", "error", runErr)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: termtab status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show status of the running instance via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("running:        %v\n", status.Running)
	fmt.Printf("pid:            %d\n", status.PID)
	fmt.Printf("backend:        %s\n", status.Backend)
	fmt.Printf("windows:        %d\n", status.Windows)
	fmt.Printf("tabs:           %d\n", status.Tabs)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	if status.ConfigPath != "" {
		fmt.Printf("config:         %s\n", status.ConfigPath)
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: termtab reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the running instance to re-read its configuration.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reload takes no arguments")
		fs.Usage()
		return 2
	}

	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config: reloaded")
	return 0
}
