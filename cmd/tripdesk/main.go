package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/natsbus"
	"github.com/mtzanidakis/tripdesk/internal/orchestrator"
	"github.com/mtzanidakis/tripdesk/internal/registry"
	"github.com/mtzanidakis/tripdesk/internal/scheduler"
	"github.com/mtzanidakis/tripdesk/internal/store"
	"github.com/mtzanidakis/tripdesk/internal/telegram"
	"github.com/mtzanidakis/tripdesk/internal/tools"
	"github.com/mtzanidakis/tripdesk/internal/web"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("tripdesk %s\n", version)
		return
	case "gateway":
		err = runGateway()
	case "chat":
		err = runChatCommand()
	case "tools":
		err = printTools(os.Stdout)
	case "backup":
		err = runBackup(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error(os.Args[1]+" failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: tripdesk <command>

Commands:
  gateway    Start the gateway (web, telegram, tool RPC)
  chat       Interactive trip planning session on the terminal
  tools      Print the tool descriptors
  backup     Write the ledger to a .tar.zst archive
  restore    Restore the ledger from a .tar.zst archive
  version    Print version
`)
}

// setupLogging installs the default slog handler.
func setupLogging(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: logLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printTools(w io.Writer) error {
	descs := tools.NewServer().ListTools()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(descs)
}

func runGateway() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Log)

	slog.Info("starting tripdesk gateway", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SQLite ledger
	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()
	slog.Info("store initialized", "path", cfg.Store.Path)

	// Handler registry
	reg := registry.New(db)
	if err := reg.Sync(); err != nil {
		return fmt.Errorf("sync handler registry: %w", err)
	}

	// Tools are served on the bus when it runs; handlers then reach them
	// the same way external callers do.
	toolServer := tools.NewServer()
	var provider tools.Provider = toolServer

	var bus *natsbus.Bus
	var events *natsbus.Client
	if cfg.NATS.Enabled {
		bus, err = natsbus.New(cfg.NATS)
		if err != nil {
			return fmt.Errorf("init nats: %w", err)
		}
		defer bus.Close()
		slog.Info("nats started", "port", bus.Port())

		rpc, err := natsbus.NewClient(bus)
		if err != nil {
			return fmt.Errorf("init tool rpc client: %w", err)
		}
		defer rpc.Close()
		if _, err := tools.Serve(rpc, toolServer); err != nil {
			return fmt.Errorf("serve tools: %w", err)
		}
		slog.Info("tool rpc started", "tools", toolServer.Names())

		events, err = natsbus.NewClient(bus)
		if err != nil {
			return fmt.Errorf("init events client: %w", err)
		}
		defer events.Close()
		provider = tools.NewRemote(events, 5*time.Second)
	}

	builder := orchestrator.NewBuilder(cfg, reg, provider, db, events)
	sessions := orchestrator.NewSessions(builder.New)

	// Idle reaper
	go sessions.StartIdleReaper(ctx, cfg.Orchestrator.SessionIdleTimeout)

	// Ledger retention
	pruner, err := scheduler.NewPruner(db, cfg.Store, events)
	if err != nil {
		return fmt.Errorf("init pruner: %w", err)
	}
	if pruner != nil {
		go pruner.Start(ctx)
	}

	// Telegram bot
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram, sessions)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		go func() {
			if err := bot.Start(ctx); err != nil {
				slog.Error("telegram bot error", "error", err)
			}
		}()
	} else {
		slog.Warn("telegram token not set, bot disabled")
	}

	// Web API
	if cfg.Web.Enabled {
		srv := web.NewServer(db, bus, sessions, reg, provider, cfg.Web, version)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("web server error", "error", err)
			}
		}()
		slog.Info("web server started", "port", cfg.Web.Port)
	}

	// Wait for shutdown, reloading on SIGHUP
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			cfg = reload(cfg, builder)
			continue
		}
		slog.Info("shutting down", "signal", sig)
		break
	}
	cancel()
	return nil
}

// reload applies the reloadable parts of a fresh config and returns the
// config now in effect.
func reload(cur *config.Config, builder *orchestrator.Builder) *config.Config {
	next, err := config.Load()
	if err != nil {
		slog.Error("config reload failed", "error", err)
		return cur
	}

	diff := config.Diff(cur, next)
	for _, field := range diff.NonReloadable {
		slog.Warn("config change requires restart", "field", field)
	}
	if !diff.HasChanges() {
		slog.Info("config reloaded, nothing to apply")
		return cur
	}

	builder.Apply(diff)
	cur.Router = next.Router
	cur.Defaults = next.Defaults
	cur.Orchestrator.Parallel = next.Orchestrator.Parallel
	return cur
}
