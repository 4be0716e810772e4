// Package agent defines the specialist handlers that carry out delegated
// tasks against the tool backend.
package agent

import (
	"context"
	"fmt"

	"github.com/mtzanidakis/tripdesk/internal/tools"
)

// Kind identifies one of the closed set of specialist handlers.
type Kind int

const (
	Travel Kind = iota
	Weather
	Budget
)

// Kinds lists every handler kind in dispatch order.
var Kinds = []Kind{Travel, Weather, Budget}

func (k Kind) String() string {
	switch k {
	case Travel:
		return "travel"
	case Weather:
		return "weather"
	case Budget:
		return "budget"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

type Status string

const (
	StatusPending       Status = "pending"
	StatusInputRequired Status = "input-required"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// Capability is one advertised skill of a handler.
type Capability struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Card is a handler's static self-description.
type Card struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Capabilities []Capability `json:"capabilities"`
}

// Outcome is what a handler returns for a task.
type Outcome struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

func completed(result any) Outcome {
	return Outcome{Status: StatusCompleted, Result: result}
}

func inputRequired(question string) Outcome {
	return Outcome{Status: StatusInputRequired, Message: question}
}

func failed(msg string) Outcome {
	return Outcome{Status: StatusFailed, Message: msg}
}

// Handler processes tasks delegated by the orchestrator.
type Handler interface {
	Kind() Kind
	Card() Card
	ProcessTask(ctx context.Context, task *Task) Outcome
}

// ToolCaller is the part of tools.Client handlers depend on.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, params map[string]any) tools.Result
}
