package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Task is the ledger copy of a delegated task.
type Task struct {
	SessionID string          `json:"session_id"`
	ID        string          `json:"id"`
	RequestID string          `json:"request_id,omitempty"`
	Handler   string          `json:"handler"`
	Message   string          `json:"message"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Note      string          `json:"note,omitempty"`
	Seq       int             `json:"seq"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const taskColumns = `session_id, id, request_id, handler, message, status, result, note, seq, created_at, updated_at`

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*Task, error) {
	t := &Task{}
	var requestID, result, note sql.NullString
	err := scanner.Scan(&t.SessionID, &t.ID, &requestID, &t.Handler, &t.Message, &t.Status,
		&result, &note, &t.Seq, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.RequestID = requestID.String
	if result.Valid {
		t.Result = json.RawMessage(result.String)
	}
	t.Note = note.String
	return t, nil
}

func (s *Store) SaveTask(t *Task) error {
	var result any
	if len(t.Result) > 0 {
		result = string(t.Result)
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (session_id, id, request_id, handler, message, status, result, note, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, id) DO UPDATE SET
			status = excluded.status,
			result = excluded.result,
			note = excluded.note,
			updated_at = CURRENT_TIMESTAMP`,
		t.SessionID, t.ID, t.RequestID, t.Handler, t.Message, t.Status, result, t.Note, t.Seq)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(sessionID, id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE session_id = ? AND id = ?`, sessionID, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns a session's tasks in allocation order.
func (s *Store) ListTasks(sessionID string) ([]Task, error) {
	rows, err := s.db.Query(`SELECT `+taskColumns+` FROM tasks WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// MaxTaskSeq returns the highest task sequence number used in a session.
func (s *Store) MaxTaskSeq(sessionID string) (int, error) {
	var seq int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM tasks WHERE session_id = ?`, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max task seq: %w", err)
	}
	return seq, nil
}
