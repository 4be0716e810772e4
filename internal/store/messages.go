package store

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *Store) SaveMessage(msg *Message) error {
	var metadata any
	if len(msg.Metadata) > 0 {
		metadata = string(msg.Metadata)
	}
	result, err := s.db.Exec(`
		INSERT INTO messages (session_id, role, content, metadata)
		VALUES (?, ?, ?, ?)`,
		msg.SessionID, msg.Role, msg.Content, metadata)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	msg.ID, _ = result.LastInsertId()
	return nil
}

// GetMessages returns the latest limit messages of a session in
// chronological order.
func (s *Store) GetMessages(sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, role, content, metadata, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var metadata *string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if metadata != nil {
			m.Metadata = json.RawMessage(*metadata)
		}
		messages = append(messages, m)
	}

	// Reverse to get chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, rows.Err()
}

type SessionMessageStats struct {
	SessionID    string
	MessageCount int
}

func (s *Store) GetSessionMessageStats() (map[string]SessionMessageStats, error) {
	rows, err := s.db.Query(`SELECT session_id, COUNT(*) FROM messages GROUP BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("get session message stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]SessionMessageStats)
	for rows.Next() {
		var st SessionMessageStats
		if err := rows.Scan(&st.SessionID, &st.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session stats: %w", err)
		}
		stats[st.SessionID] = st
	}
	return stats, rows.Err()
}
