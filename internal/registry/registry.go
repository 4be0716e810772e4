package registry

import (
	"encoding/json"
	"fmt"

	"github.com/mtzanidakis/tripdesk/internal/agent"
	"github.com/mtzanidakis/tripdesk/internal/config"
	"github.com/mtzanidakis/tripdesk/internal/store"
)

// Registry knows the specialist handlers, their cards and how to build
// them for a session.
type Registry struct {
	store *store.Store
	cards map[agent.Kind]agent.Card
}

func New(s *store.Store) *Registry {
	cards := make(map[agent.Kind]agent.Card, len(agent.Kinds))
	for _, h := range agent.NewAll(nil, config.DefaultPlanning()) {
		cards[h.Kind()] = h.Card()
	}
	return &Registry{store: s, cards: cards}
}

// Sync writes every card to the ledger and removes stale entries.
func (r *Registry) Sync() error {
	if r.store == nil {
		return nil
	}

	ids := make([]string, 0, len(agent.Kinds))
	for i, k := range agent.Kinds {
		card := r.cards[k]
		ids = append(ids, k.String())

		caps, err := json.Marshal(card.Capabilities)
		if err != nil {
			return fmt.Errorf("marshal capabilities for %s: %w", k, err)
		}
		h := &store.Handler{
			ID:           k.String(),
			Name:         card.Name,
			Description:  card.Description,
			Capabilities: caps,
			Position:     i,
		}
		if err := r.store.SaveHandler(h); err != nil {
			return fmt.Errorf("save handler %s: %w", k, err)
		}
	}

	if err := r.store.DeleteHandlersNotIn(ids); err != nil {
		return fmt.Errorf("delete stale handlers: %w", err)
	}
	return nil
}

// Card returns the card of one handler kind.
func (r *Registry) Card(kind agent.Kind) (agent.Card, bool) {
	c, ok := r.cards[kind]
	return c, ok
}

// Cards returns every card in dispatch order.
func (r *Registry) Cards() []agent.Card {
	cards := make([]agent.Card, 0, len(agent.Kinds))
	for _, k := range agent.Kinds {
		cards = append(cards, r.cards[k])
	}
	return cards
}

func (r *Registry) List() ([]store.Handler, error) {
	if r.store == nil {
		return nil, nil
	}
	return r.store.ListHandlers()
}

// Build returns a fresh set of handlers bound to tc.
func (r *Registry) Build(tc agent.ToolCaller, defaults config.DefaultsConfig) map[agent.Kind]agent.Handler {
	handlers := make(map[agent.Kind]agent.Handler, len(agent.Kinds))
	for _, h := range agent.NewAll(tc, defaults) {
		handlers[h.Kind()] = h
	}
	return handlers
}
