package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Request is one processed user message and its aggregated response.
type Request struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Message     string          `json:"message"`
	Status      string          `json:"status"`
	Handlers    json.RawMessage `json:"handlers"`
	Response    string          `json:"response,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func scanRequest(scanner interface {
	Scan(dest ...any) error
}) (*Request, error) {
	r := &Request{}
	var handlers string
	var response sql.NullString
	err := scanner.Scan(&r.ID, &r.SessionID, &r.Message, &r.Status, &handlers, &response, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	r.Handlers = json.RawMessage(handlers)
	r.Response = response.String
	return r, nil
}

const requestColumns = `id, session_id, message, status, handlers, response, started_at, completed_at`

// SaveRequest inserts or updates a request. Terminal statuses stamp
// completed_at.
func (s *Store) SaveRequest(r *Request) error {
	handlers := r.Handlers
	if len(handlers) == 0 {
		handlers = json.RawMessage("[]")
	}
	_, err := s.db.Exec(`
		INSERT INTO requests (id, session_id, message, status, handlers, response)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			response = excluded.response,
			completed_at = CASE WHEN excluded.status IN ('completed', 'input-required', 'failed') THEN CURRENT_TIMESTAMP ELSE completed_at END`,
		r.ID, r.SessionID, r.Message, r.Status, string(handlers), r.Response)
	if err != nil {
		return fmt.Errorf("save request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(id string) (*Request, error) {
	row := s.db.QueryRow(`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return r, nil
}

func (s *Store) ListRequests(sessionID string) ([]Request, error) {
	rows, err := s.db.Query(`SELECT `+requestColumns+` FROM requests WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// CountRequestsByStatus returns how many requests ended in each status.
func (s *Store) CountRequestsByStatus() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan request count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
