package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Session is one conversation, keyed by its channel-specific id.
type Session struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

func (s *Store) SaveSession(sess *Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, channel, created_at, last_active)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			channel = excluded.channel,
			last_active = CURRENT_TIMESTAMP`,
		sess.ID, sess.Channel)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) TouchSession(id string) error {
	_, err := s.db.Exec(`UPDATE sessions SET last_active = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(id string) (*Session, error) {
	sess := &Session{}
	err := s.db.QueryRow(`SELECT id, channel, created_at, last_active FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Channel, &sess.CreatedAt, &sess.LastActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns the most recently active sessions first.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, channel, created_at, last_active
		FROM sessions
		ORDER BY last_active DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Channel, &sess.CreatedAt, &sess.LastActive); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// PruneSessions deletes sessions last active before cutoff together with
// their requests, tasks and messages. It returns the number of sessions
// removed.
func (s *Store) PruneSessions(cutoff time.Time) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	defer tx.Rollback()

	// Matches the CURRENT_TIMESTAMP text format.
	before := cutoff.UTC().Format("2006-01-02 15:04:05")
	stale := `SELECT id FROM sessions WHERE last_active < ?`
	for _, table := range []string{"messages", "tasks", "requests"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE session_id IN (`+stale+`)`, before); err != nil {
			return 0, fmt.Errorf("prune %s: %w", table, err)
		}
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE last_active < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return int(n), nil
}
