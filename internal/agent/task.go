package agent

import "fmt"

// Task is one delegation of a user message to a single handler.
type Task struct {
	ID      string `json:"id"`
	// Message is the user's message as received and never changes.
	Message string `json:"message"`
	// Input is the text addressed to the handler, e.g. the message
	// without an "@travel" prefix.
	Input   string `json:"-"`
	Handler string `json:"handler"`
	Status  Status `json:"status"`
	Result  any    `json:"result,omitempty"`
	// Note holds the clarifying question or failure message, if any.
	Note    string `json:"note,omitempty"`
}

func NewTask(id, message, handler string) *Task {
	return &Task{
		ID:      id,
		Message: message,
		Input:   message,
		Handler: handler,
		Status:  StatusPending,
	}
}

// Text returns what the handler should work on.
func (t *Task) Text() string {
	return t.Input
}

// Resolve moves a pending task to the outcome's status. A task resolves
// exactly once.
func (t *Task) Resolve(o Outcome) error {
	if t.Status != StatusPending {
		return fmt.Errorf("task %s already %s", t.ID, t.Status)
	}
	switch o.Status {
	case StatusInputRequired, StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("task %s: invalid outcome status %q", t.ID, o.Status)
	}
	t.Status = o.Status
	t.Result = o.Result
	t.Note = o.Message
	return nil
}
