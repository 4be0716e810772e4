package agent

import (
	"fmt"

	"github.com/mtzanidakis/tripdesk/internal/config"
)

// New builds the handler of the given kind.
func New(kind Kind, tc ToolCaller, defaults config.DefaultsConfig) (Handler, error) {
	switch kind {
	case Travel:
		return NewTravelAgent(tc, defaults), nil
	case Weather:
		return NewWeatherAdvisor(tc, defaults), nil
	case Budget:
		return NewBudgetPlanner(tc, defaults), nil
	default:
		return nil, fmt.Errorf("unknown handler kind %d", int(kind))
	}
}

// NewAll builds one handler per kind, in dispatch order.
func NewAll(tc ToolCaller, defaults config.DefaultsConfig) []Handler {
	handlers := make([]Handler, 0, len(Kinds))
	for _, k := range Kinds {
		h, _ := New(k, tc, defaults)
		handlers = append(handlers, h)
	}
	return handlers
}
