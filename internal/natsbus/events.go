package natsbus

import (
	"log/slog"
	"time"
)

// Event is the envelope of everything published under events.>.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

func NewEvent(eventType, sessionID string, data map[string]any) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

// PublishEvent is a no-op on a nil client so callers running without a bus
// need no checks. Failures are logged, not returned.
func (c *Client) PublishEvent(topic string, ev Event) {
	if c == nil {
		return
	}
	if err := c.PublishJSON(topic, ev); err != nil {
		slog.Warn("publish event failed", "topic", topic, "type", ev.Type, "error", err)
	}
}
