package tools

import (
	"encoding/json"
	"fmt"
)

// Result is the envelope returned by every tool invocation. Exactly one of
// Result or Error is set.
type Result struct {
	Result any       `json:"result,omitempty"`
	Error  string    `json:"error,omitempty"`
	Kind   ErrorKind `json:"kind,omitempty"`
	Tool   string    `json:"tool,omitempty"`
}

func success(v any) Result {
	return Result{Result: v}
}

// failure never yields an empty Error, which would read as a success.
func failure(kind ErrorKind, tool, msg string) Result {
	if msg == "" {
		msg = "tool execution failed"
	}
	return Result{Error: msg, Kind: kind, Tool: tool}
}

// Failed reports whether the envelope carries an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Err returns the envelope's error as an *Error, or nil on success.
func (r Result) Err() error {
	if r.Error == "" {
		return nil
	}
	kind := r.Kind
	if kind == "" {
		kind = KindExecution
	}
	return &Error{Kind: kind, Tool: r.Tool, Message: r.Error}
}

// Decode extracts the payload as T. Payloads that crossed a JSON boundary
// arrive as generic maps and are converted through JSON.
func Decode[T any](r Result) (T, error) {
	var out T
	if err := r.Err(); err != nil {
		return out, err
	}
	if r.Result == nil {
		return out, fmt.Errorf("decode result: empty payload")
	}
	if v, ok := r.Result.(T); ok {
		return v, nil
	}
	data, err := json.Marshal(r.Result)
	if err != nil {
		return out, fmt.Errorf("decode result: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode result: %w", err)
	}
	return out, nil
}
