// Command ttool lists and invokes the gateway's tools over NATS.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mtzanidakis/tripdesk/internal/natsbus"
	"github.com/mtzanidakis/tripdesk/internal/tools"
)

func parseArgs(args []string) map[string]string {
	result := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if len(args[i]) > 2 && args[i][:2] == "--" && i+1 < len(args) {
			result[args[i][2:]] = args[i+1]
			i++
		}
	}
	return result
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  ttool list")
	fmt.Fprintln(os.Stderr, `  ttool call --name "..." [--params '{"key": "value"}']`)
	os.Exit(1)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	if len(os.Args) < 2 {
		usage()
	}

	client, err := natsbus.NewClientFromURL(natsURL)
	if err != nil {
		fatal("%v", err)
	}
	defer client.Close()

	remote := tools.NewRemote(client, 10*time.Second)
	if err := run(context.Background(), remote, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		client.Close()
		fatal("%v", err)
	}
}

var errUnknownCommand = errors.New("unknown command")

func run(ctx context.Context, p tools.Provider, command string, rest []string, out io.Writer) error {
	switch command {
	case "list":
		descs, err := p.Tools(ctx)
		if err != nil {
			return err
		}
		if len(descs) == 0 {
			fmt.Fprintln(out, "No tools found.")
			return nil
		}
		names := make([]string, 0, len(descs))
		for name := range descs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			d := descs[name]
			fmt.Fprintf(out, "  %s  %s\n", d.Name, d.Description)
			params := make([]string, 0, len(d.Parameters))
			for p := range d.Parameters {
				params = append(params, p)
			}
			sort.Strings(params)
			for _, p := range params {
				fmt.Fprintf(out, "      --%s  %s\n", p, d.Parameters[p])
			}
		}
		return nil

	case "call":
		args := parseArgs(rest)
		if args["name"] == "" {
			return errors.New("--name is required")
		}
		params := map[string]any{}
		if raw := strings.TrimSpace(args["params"]); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params); err != nil {
				return fmt.Errorf("invalid --params: %w", err)
			}
		}

		res := p.CallTool(ctx, args["name"], params)
		if err := res.Err(); err != nil {
			return err
		}
		data, err := json.MarshalIndent(res.Result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil

	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, command)
	}
}
