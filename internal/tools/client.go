package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/mtzanidakis/tripdesk/internal/metrics"
)

// Client is the facade specialists use to reach a Provider. It discovers
// the tool set once and rejects unknown names locally. Safe for concurrent
// use by handlers of the same session.
type Client struct {
	provider Provider

	mu    sync.Mutex
	tools map[string]Descriptor
}

func NewClient(p Provider) *Client {
	return &Client{provider: p}
}

// DiscoverTools fetches the descriptor map on first use and returns the
// cached copy afterwards.
func (c *Client) DiscoverTools(ctx context.Context) (map[string]Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tools != nil {
		return c.tools, nil
	}
	tools, err := c.provider.Tools(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tools: %w", err)
	}
	if tools == nil {
		tools = map[string]Descriptor{}
	}
	c.tools = tools
	return tools, nil
}

// CallTool forwards the call unchanged when name was discovered; the
// server's envelope is returned as is.
func (c *Client) CallTool(ctx context.Context, name string, params map[string]any) Result {
	tools, err := c.DiscoverTools(ctx)
	if err != nil {
		return failure(KindExecution, name, err.Error())
	}
	if _, ok := tools[name]; !ok {
		metrics.RecordToolCall(name, string(KindUnavailable))
		return failure(KindUnavailable, name, fmt.Sprintf("Tool '%s' is not available", name))
	}
	return c.provider.CallTool(ctx, name, params)
}
