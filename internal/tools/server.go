package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mtzanidakis/tripdesk/internal/metrics"
)

// Provider is anything that can list and invoke tools: the in-process
// Server or a Remote reached over the bus.
type Provider interface {
	Tools(ctx context.Context) (map[string]Descriptor, error)
	CallTool(ctx context.Context, name string, params map[string]any) Result
}

// Server is the tool registry. Invocation never fails fatally; every
// failure is returned as an error envelope.
type Server struct {
	tools map[string]Tool
}

// NewServer registers the given tools, or the builtin set when none are given.
func NewServer(tools ...Tool) *Server {
	if len(tools) == 0 {
		tools = Builtin()
	}
	s := &Server{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		s.tools[t.desc.Name] = t
	}
	return s
}

// ListTools returns the descriptor of every registered tool.
func (s *Server) ListTools() map[string]Descriptor {
	out := make(map[string]Descriptor, len(s.tools))
	for name, t := range s.tools {
		out[name] = t.desc
	}
	return out
}

// Names returns the registered tool names in sorted order.
func (s *Server) Names() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) Tools(_ context.Context) (map[string]Descriptor, error) {
	return s.ListTools(), nil
}

// CallTool invokes the named tool with params.
func (s *Server) CallTool(ctx context.Context, name string, params map[string]any) (res Result) {
	t, ok := s.tools[name]
	if !ok {
		metrics.RecordToolCall(name, string(KindNotFound))
		return failure(KindNotFound, name, fmt.Sprintf("Tool '%s' not found", name))
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool panicked", "tool", name, "panic", r)
			res = failure(KindExecution, name, fmt.Sprintf("tool %s panicked: %v", name, r))
		}
		if res.Failed() {
			metrics.RecordToolCall(name, string(res.Kind))
		} else {
			metrics.RecordToolCall(name, "ok")
		}
	}()

	out, err := t.call(ctx, params)
	if err != nil {
		slog.Debug("tool call failed", "tool", name, "error", err)
		return failure(KindExecution, name, err.Error())
	}
	return success(out)
}
