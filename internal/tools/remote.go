package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtzanidakis/tripdesk/internal/natsbus"
	"github.com/nats-io/nats.go"
)

const defaultRemoteTimeout = 5 * time.Second

// CallRequest is the body of a tools.call message.
type CallRequest struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type listResponse struct {
	Tools map[string]Descriptor `json:"tools"`
	Error string                `json:"error,omitempty"`
}

// Serve answers tool discovery and invocation requests on the bus until
// the returned subscriptions are drained.
func Serve(client *natsbus.Client, p Provider) ([]*nats.Subscription, error) {
	listSub, err := client.QueueSubscribe(natsbus.TopicToolsList, "tools", func(msg *nats.Msg) {
		tools, err := p.Tools(context.Background())
		resp := listResponse{Tools: tools}
		if err != nil {
			resp.Error = err.Error()
		}
		respond(msg, resp)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe tools list: %w", err)
	}

	callSub, err := client.QueueSubscribe(natsbus.TopicToolsCall, "tools", func(msg *nats.Msg) {
		var req CallRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			respond(msg, failure(KindExecution, "", fmt.Sprintf("invalid request: %v", err)))
			return
		}
		respond(msg, p.CallTool(context.Background(), req.Name, req.Params))
	})
	if err != nil {
		_ = listSub.Unsubscribe()
		return nil, fmt.Errorf("subscribe tools call: %w", err)
	}

	return []*nats.Subscription{listSub, callSub}, nil
}

func respond(msg *nats.Msg, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal tool response", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Warn("respond to tool request", "subject", msg.Subject, "error", err)
	}
}

// Remote is a Provider backed by a tool server on the bus.
type Remote struct {
	client  *natsbus.Client
	timeout time.Duration
}

func NewRemote(client *natsbus.Client, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &Remote{client: client, timeout: timeout}
}

func (r *Remote) Tools(ctx context.Context) (map[string]Descriptor, error) {
	msg, err := r.client.RequestWithContext(ctx, natsbus.TopicToolsList, nil, r.timeout)
	if err != nil {
		return nil, fmt.Errorf("request tools list: %w", err)
	}
	var resp listResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("decode tools list: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("tools list: %s", resp.Error)
	}
	return resp.Tools, nil
}

// CallTool never returns a Go error; transport failures become execution
// error envelopes.
func (r *Remote) CallTool(ctx context.Context, name string, params map[string]any) Result {
	data, err := json.Marshal(CallRequest{Name: name, Params: params})
	if err != nil {
		return failure(KindExecution, name, fmt.Sprintf("encode request: %v", err))
	}
	msg, err := r.client.RequestWithContext(ctx, natsbus.TopicToolsCall, data, r.timeout)
	if err != nil {
		return failure(KindExecution, name, fmt.Sprintf("request tool %s: %v", name, err))
	}
	var res Result
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		return failure(KindExecution, name, fmt.Sprintf("decode tool %s response: %v", name, err))
	}
	return res
}
