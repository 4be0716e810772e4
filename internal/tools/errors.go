package tools

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed tool invocation.
type ErrorKind string

const (
	KindNotFound    ErrorKind = "tool_not_found"
	KindUnavailable ErrorKind = "tool_unavailable"
	KindExecution   ErrorKind = "tool_execution_error"
)

var (
	// ErrUnknownTool matches both ErrToolNotFound and ErrToolUnavailable.
	ErrUnknownTool = errors.New("unknown tool")

	ErrToolNotFound    = fmt.Errorf("%w: not registered on server", ErrUnknownTool)
	ErrToolUnavailable = fmt.Errorf("%w: not discovered by client", ErrUnknownTool)
	ErrToolExecution   = errors.New("tool execution failed")
)

// Error is the error form of a failed Result.
type Error struct {
	Kind    ErrorKind
	Tool    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindNotFound:
		return ErrToolNotFound
	case KindUnavailable:
		return ErrToolUnavailable
	default:
		return ErrToolExecution
	}
}
