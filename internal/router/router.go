package router

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/mtzanidakis/tripdesk/internal/agent"
	"github.com/mtzanidakis/tripdesk/internal/config"
)

// Classifier maps a user message to the handler kinds it concerns.
type Classifier interface {
	Classify(message string) []agent.Kind
}

// Router picks the specialist handlers for a user message.
type Router struct {
	mu       sync.RWMutex
	keywords map[agent.Kind][]string
}

func New(cfg config.RouterConfig) *Router {
	r := &Router{}
	r.Update(cfg)
	return r
}

// Update replaces the keyword vocabulary.
func (r *Router) Update(cfg config.RouterConfig) {
	keywords := map[agent.Kind][]string{
		agent.Travel:  lowerAll(cfg.Travel),
		agent.Weather: lowerAll(cfg.Weather),
		agent.Budget:  lowerAll(cfg.Budget),
	}
	r.mu.Lock()
	r.keywords = keywords
	r.mu.Unlock()
}

// Classify returns, in dispatch order, every kind whose vocabulary has a
// keyword contained in the message. Matching is case-insensitive.
func (r *Router) Classify(message string) []agent.Kind {
	lower := strings.ToLower(message)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var kinds []agent.Kind
	for _, k := range agent.Kinds {
		for _, kw := range r.keywords[k] {
			if kw != "" && strings.Contains(lower, kw) {
				kinds = append(kinds, k)
				break
			}
		}
	}
	return kinds
}

// Route returns the handler kinds for message and the message they should
// receive. A leading "@travel", "@weather" or "@budget" addresses one
// handler directly; otherwise keyword classification applies, falling back
// to every handler when nothing matches.
func (r *Router) Route(message string) ([]agent.Kind, string) {
	if strings.HasPrefix(message, "@") {
		parts := strings.SplitN(message, " ", 2)
		name := strings.ToLower(strings.TrimPrefix(parts[0], "@"))
		if k, ok := agent.ParseKind(name); ok {
			cleaned := ""
			if len(parts) > 1 {
				cleaned = parts[1]
			}
			return []agent.Kind{k}, cleaned
		}
		// Unknown handler name in prefix, fall through to keyword routing
	}

	kinds := r.Classify(message)
	if len(kinds) == 0 {
		slog.Debug("no handler matched, using all")
		return append([]agent.Kind(nil), agent.Kinds...), message
	}
	return kinds, message
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(strings.TrimSpace(w)))
	}
	return out
}
