// Package scheduler runs periodic ledger maintenance.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/natsbus"
	"github.com/mtzanidakis/tripdesk/internal/store"
)

// Pruner deletes sessions that have been inactive for longer than the
// configured retention, on the configured schedule.
type Pruner struct {
	store     *store.Store
	events    *natsbus.Client
	retention time.Duration
	schedule  Schedule
}

// NewPruner returns nil when retention is disabled.
func NewPruner(s *store.Store, cfg config.StoreConfig, events *natsbus.Client) (*Pruner, error) {
	if cfg.Retention <= 0 {
		return nil, nil
	}
	sched, err := ParseSchedule(cfg.PruneSchedule)
	if err != nil {
		return nil, fmt.Errorf("store.prune_schedule: %w", err)
	}
	return &Pruner{
		store:     s,
		events:    events,
		retention: cfg.Retention,
		schedule:  sched,
	}, nil
}

func (p *Pruner) Start(ctx context.Context) {
	slog.Info("ledger pruner started", "schedule", p.schedule.String(), "retention", p.retention)

	for {
		next, err := p.schedule.Next(time.Now())
		if err != nil {
			slog.Error("ledger pruner stopped", "error", err)
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("ledger pruner stopped")
			return
		case <-timer.C:
			_, _ = p.RunOnce(time.Now())
		}
	}
}

// RunOnce prunes sessions last active before now minus the retention.
func (p *Pruner) RunOnce(now time.Time) (int, error) {
	cutoff := now.Add(-p.retention)
	n, err := p.store.PruneSessions(cutoff)
	if err != nil {
		slog.Error("ledger prune failed", "error", err)
		return 0, err
	}
	slog.Info("ledger pruned", "sessions", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	p.publishPrunedEvent(n, cutoff)
	return n, nil
}

func (p *Pruner) publishPrunedEvent(sessions int, cutoff time.Time) {
	p.events.PublishEvent(natsbus.TopicEventsLedger, natsbus.NewEvent("ledger_pruned", "", map[string]any{
		"sessions": sessions,
		"cutoff":   cutoff.UTC().Format(time.RFC3339),
	}))
}
