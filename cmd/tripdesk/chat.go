package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/mtzanidakis/tripdesk/internal/agent"
	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/orchestrator"
	"github.com/mtzanidakis/tripdesk/internal/registry"
	"github.com/mtzanidakis/tripdesk/internal/store"
	"github.com/mtzanidakis/tripdesk/internal/tools"
)

func runChatCommand() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Log)

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	reg := registry.New(db)
	if err := reg.Sync(); err != nil {
		return fmt.Errorf("sync handler registry: %w", err)
	}

	builder := orchestrator.NewBuilder(cfg, reg, tools.NewServer(), db, nil)
	orch, err := builder.New("", "cli")
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return runChat(ctx, os.Stdin, os.Stdout, orch)
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

// runChat reads one message per line until EOF or an exit word.
func runChat(ctx context.Context, in io.Reader, out io.Writer, orch *orchestrator.Orchestrator) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Trip desk ready. Ask about trips, weather or budgets; type 'exit' to quit.")

	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isExit(line) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		resp, err := orch.ProcessRequest(ctx, line)
		if err != nil {
			return fmt.Errorf("process request: %w", err)
		}

		if resp.Status == agent.StatusInputRequired {
			fmt.Fprintf(out, "\n[needs more input] %s\n", resp.Message)
			continue
		}
		fmt.Fprintf(out, "\n[summary]\n%s\n", resp.Message)

		if len(resp.DetailedResults) == 0 {
			continue
		}
		fmt.Fprint(out, "\nShow detailed results? (y/N): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			data, err := json.MarshalIndent(resp.DetailedResults, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal details: %w", err)
			}
			fmt.Fprintln(out, string(data))
		}
	}
}
