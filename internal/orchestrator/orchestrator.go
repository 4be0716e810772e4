// Package orchestrator routes user messages to specialist handlers, tracks
// the resulting tasks and merges their outcomes into one response.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mtzanidakis/tripdesk/internal/agent"
	"github.com/mtzanidakis/tripdesk/internal/metrics"
	"github.com/mtzanidakis/tripdesk/internal/natsbus"
	"github.com/mtzanidakis/tripdesk/internal/store"
)

// Router picks the handler kinds for a message and the text they receive.
type Router interface {
	Route(message string) ([]agent.Kind, string)
}

// Response is the aggregated answer to one user message.
type Response struct {
	SessionID       string         `json:"session_id"`
	RequestID       string         `json:"request_id"`
	Status          agent.Status   `json:"status"`
	Message         string         `json:"message"`
	DetailedResults map[string]any `json:"detailed_results,omitempty"`
}

type Options struct {
	// SessionID is generated when empty.
	SessionID string
	Channel   string
	Router    Router
	Handlers  map[agent.Kind]agent.Handler
	Parallel  bool
	// Store and Events are optional.
	Store  *store.Store
	Events *natsbus.Client
}

// Orchestrator serves one conversation. Task ids are unique within it and
// allocated in increasing order across requests.
type Orchestrator struct {
	id       string
	channel  string
	router   Router
	handlers map[agent.Kind]agent.Handler
	parallel bool
	store    *store.Store
	events   *natsbus.Client

	mu    sync.Mutex
	seq   int
	tasks []*agent.Task
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Router == nil {
		return nil, fmt.Errorf("new orchestrator: router is required")
	}
	for _, k := range agent.Kinds {
		if _, ok := opts.Handlers[k]; !ok {
			return nil, fmt.Errorf("new orchestrator: missing %s handler", k)
		}
	}

	o := &Orchestrator{
		id:       opts.SessionID,
		channel:  opts.Channel,
		router:   opts.Router,
		handlers: opts.Handlers,
		parallel: opts.Parallel,
		store:    opts.Store,
		events:   opts.Events,
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.channel == "" {
		o.channel = "api"
	}

	if o.store != nil {
		if err := o.store.SaveSession(&store.Session{ID: o.id, Channel: o.channel}); err != nil {
			return nil, fmt.Errorf("new orchestrator: %w", err)
		}
		// A persistent ledger may already hold tasks for this session.
		seq, err := o.store.MaxTaskSeq(o.id)
		if err != nil {
			return nil, fmt.Errorf("new orchestrator: %w", err)
		}
		o.seq = seq
	}

	return o, nil
}

func (o *Orchestrator) ID() string {
	return o.id
}

// Tasks returns a snapshot of every task created in this session.
func (o *Orchestrator) Tasks() []agent.Task {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]agent.Task, len(o.tasks))
	for i, t := range o.tasks {
		out[i] = *t
	}
	return out
}

type dispatched struct {
	kind    agent.Kind
	name    string
	task    *agent.Task
	outcome agent.Outcome
}

// ProcessRequest handles one user message. Every message reaches at least
// one handler; a blank one goes to all of them and comes back as their
// clarifying questions. Handler failures are part of the response; an error
// is returned only when the ledger cannot be written.
func (o *Orchestrator) ProcessRequest(ctx context.Context, message string) (*Response, error) {
	message = strings.TrimSpace(message)

	o.mu.Lock()
	defer o.mu.Unlock()

	started := time.Now()
	requestID := uuid.NewString()
	kinds, routed := o.router.Route(message)

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = o.handlers[k].Card().Name
	}
	slog.Info("processing request", "session", o.id, "request", requestID, "handlers", names)

	if err := o.recordStart(requestID, message, kinds); err != nil {
		return nil, err
	}

	runs := make([]*dispatched, len(kinds))
	for i, k := range kinds {
		o.seq++
		task := agent.NewTask(fmt.Sprintf("task_%d", o.seq), message, names[i])
		task.Input = routed
		o.tasks = append(o.tasks, task)
		runs[i] = &dispatched{kind: k, name: names[i], task: task}

		if err := o.saveTask(requestID, task); err != nil {
			return nil, err
		}
		o.publishEvent(natsbus.TopicEventsTask(o.id), "task_created", map[string]any{
			"task_id": task.ID,
			"handler": task.Handler,
		})
	}

	if o.parallel && len(runs) > 1 {
		var wg sync.WaitGroup
		for _, r := range runs {
			wg.Add(1)
			go func(r *dispatched) {
				defer wg.Done()
				r.outcome = o.runTask(ctx, r)
			}(r)
		}
		wg.Wait()
	} else {
		for _, r := range runs {
			r.outcome = o.runTask(ctx, r)
		}
	}

	for _, r := range runs {
		if err := r.task.Resolve(r.outcome); err != nil {
			slog.Warn("invalid handler outcome", "session", o.id, "task", r.task.ID, "error", err)
			r.outcome = agent.Outcome{Status: agent.StatusFailed, Message: err.Error()}
			_ = r.task.Resolve(r.outcome)
		}
		metrics.RecordTask(r.name, string(r.task.Status))
		if err := o.saveTask(requestID, r.task); err != nil {
			return nil, err
		}
		o.publishEvent(natsbus.TopicEventsTask(o.id), "task_updated", map[string]any{
			"task_id": r.task.ID,
			"handler": r.task.Handler,
			"status":  r.task.Status,
		})
	}

	resp := aggregate(runs)
	resp.SessionID = o.id
	resp.RequestID = requestID

	if err := o.recordFinish(requestID, message, kinds, resp); err != nil {
		return nil, err
	}
	o.publishEvent(natsbus.TopicEventsRequest(o.id), "request_completed", map[string]any{
		"request_id": requestID,
		"status":     resp.Status,
		"tasks":      len(runs),
	})
	metrics.RecordRequest(string(resp.Status), started)

	slog.Info("request finished", "session", o.id, "request", requestID, "status", resp.Status,
		"duration", time.Since(started))
	return resp, nil
}

// runTask invokes one handler. A panicking handler yields a failed outcome.
func (o *Orchestrator) runTask(ctx context.Context, r *dispatched) (out agent.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("handler panicked", "session", o.id, "handler", r.name, "panic", p)
			out = agent.Outcome{Status: agent.StatusFailed, Message: fmt.Sprintf("handler panicked: %v", p)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return agent.Outcome{Status: agent.StatusFailed, Message: err.Error()}
	}

	slog.Debug("dispatching task", "session", o.id, "task", r.task.ID, "handler", r.name)
	return o.handlers[r.kind].ProcessTask(ctx, r.task)
}

func (o *Orchestrator) recordStart(requestID, message string, kinds []agent.Kind) error {
	if o.store == nil {
		return nil
	}
	if err := o.store.SaveMessage(&store.Message{SessionID: o.id, Role: store.RoleUser, Content: message}); err != nil {
		return fmt.Errorf("record request: %w", err)
	}
	req := &store.Request{
		ID:        requestID,
		SessionID: o.id,
		Message:   message,
		Status:    "running",
		Handlers:  kindsJSON(kinds),
	}
	if err := o.store.SaveRequest(req); err != nil {
		return fmt.Errorf("record request: %w", err)
	}
	return nil
}

func (o *Orchestrator) recordFinish(requestID, message string, kinds []agent.Kind, resp *Response) error {
	if o.store == nil {
		return nil
	}
	req := &store.Request{
		ID:        requestID,
		SessionID: o.id,
		Message:   message,
		Status:    string(resp.Status),
		Handlers:  kindsJSON(kinds),
		Response:  resp.Message,
	}
	if err := o.store.SaveRequest(req); err != nil {
		return fmt.Errorf("record response: %w", err)
	}

	meta, _ := json.Marshal(map[string]any{"status": resp.Status, "request_id": requestID})
	msg := &store.Message{SessionID: o.id, Role: store.RoleAssistant, Content: resp.Message, Metadata: meta}
	if err := o.store.SaveMessage(msg); err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	if err := o.store.TouchSession(o.id); err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	return nil
}

func (o *Orchestrator) saveTask(requestID string, t *agent.Task) error {
	if o.store == nil {
		return nil
	}
	rec := &store.Task{
		SessionID: o.id,
		ID:        t.ID,
		RequestID: requestID,
		Handler:   t.Handler,
		Message:   t.Message,
		Status:    string(t.Status),
		Note:      t.Note,
		Seq:       taskSeq(t.ID),
	}
	if t.Result != nil {
		data, err := json.Marshal(t.Result)
		if err != nil {
			return fmt.Errorf("marshal task result: %w", err)
		}
		rec.Result = data
	}
	if err := o.store.SaveTask(rec); err != nil {
		return fmt.Errorf("record task: %w", err)
	}
	return nil
}

func (o *Orchestrator) publishEvent(topic, eventType string, data map[string]any) {
	o.events.PublishEvent(topic, natsbus.NewEvent(eventType, o.id, data))
}

func kindsJSON(kinds []agent.Kind) json.RawMessage {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	data, _ := json.Marshal(names)
	return data
}

func taskSeq(id string) int {
	var n int
	_, _ = fmt.Sscanf(id, "task_%d", &n)
	return n
}
