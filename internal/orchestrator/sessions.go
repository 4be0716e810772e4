package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/metrics"
	"github.com/mtzanidakis/tripdesk/internal/natsbus"
	"github.com/mtzanidakis/tripdesk/internal/registry"
	"github.com/mtzanidakis/tripdesk/internal/router"
	"github.com/mtzanidakis/tripdesk/internal/store"
	"github.com/mtzanidakis/tripdesk/internal/tools"
)

// Builder creates a fully wired Orchestrator for a new session. Every
// session gets its own tool client and handler set.
type Builder struct {
	Registry *registry.Registry
	Tools    tools.Provider
	Router   *router.Router
	Store    *store.Store
	Events   *natsbus.Client

	mu       sync.RWMutex
	defaults config.DefaultsConfig
	parallel bool
}

func NewBuilder(cfg *config.Config, reg *registry.Registry, provider tools.Provider, s *store.Store, events *natsbus.Client) *Builder {
	return &Builder{
		Registry: reg,
		Tools:    provider,
		Router:   router.New(cfg.Router),
		Store:    s,
		Events:   events,
		defaults: cfg.Defaults,
		parallel: cfg.Orchestrator.Parallel,
	}
}

func (b *Builder) New(sessionID, channel string) (*Orchestrator, error) {
	b.mu.RLock()
	defaults, parallel := b.defaults, b.parallel
	b.mu.RUnlock()

	tc := tools.NewClient(b.Tools)
	return New(Options{
		SessionID: sessionID,
		Channel:   channel,
		Router:    b.Router,
		Handlers:  b.Registry.Build(tc, defaults),
		Parallel:  parallel,
		Store:     b.Store,
		Events:    b.Events,
	})
}

// Apply takes the reloadable parts of a config change. Keyword changes
// reach every session immediately; defaults and dispatch mode only apply
// to sessions created afterwards.
func (b *Builder) Apply(d config.ConfigDiff) {
	if d.RouterChanged {
		b.Router.Update(d.NewRouter)
		slog.Info("router keywords reloaded")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if d.DefaultsChanged {
		b.defaults = d.NewDefaults
		slog.Info("planning defaults reloaded")
	}
	if d.ParallelChanged {
		b.parallel = d.NewParallel
		slog.Info("dispatch mode reloaded", "parallel", d.NewParallel)
	}
}

type session struct {
	orch       *Orchestrator
	lastActive time.Time
}

// Sessions keeps one Orchestrator per conversation.
type Sessions struct {
	factory func(sessionID, channel string) (*Orchestrator, error)

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewSessions(factory func(sessionID, channel string) (*Orchestrator, error)) *Sessions {
	return &Sessions{
		factory:  factory,
		sessions: make(map[string]*session),
	}
}

// Get returns the session's Orchestrator, creating it on first use. An
// empty id starts a new session with a generated id.
func (s *Sessions) Get(id, channel string) (*Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.lastActive = time.Now()
		return sess.orch, nil
	}

	orch, err := s.factory(id, channel)
	if err != nil {
		return nil, err
	}
	s.sessions[orch.ID()] = &session{orch: orch, lastActive: time.Now()}
	metrics.SessionOpened()
	slog.Info("session started", "session", orch.ID(), "channel", channel)
	return orch, nil
}

// Lookup returns an existing session without creating one.
func (s *Sessions) Lookup(id string) (*Orchestrator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.orch, true
}

func (s *Sessions) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		metrics.SessionClosed()
	}
}

func (s *Sessions) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Sessions) ListIdle(timeout time.Duration) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idle []string
	now := time.Now()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActive) > timeout {
			idle = append(idle, id)
		}
	}
	return idle
}

// StartIdleReaper drops sessions idle for longer than timeout until ctx is
// done. A zero timeout disables reaping.
func (s *Sessions) StartIdleReaper(ctx context.Context, timeout time.Duration) {
	if timeout == 0 {
		return
	}

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reap(timeout)
		}
	}
}

func (s *Sessions) reap(timeout time.Duration) {
	for _, id := range s.ListIdle(timeout) {
		slog.Info("closing idle session", "session", id, "timeout", timeout)
		s.Remove(id)
	}
}
