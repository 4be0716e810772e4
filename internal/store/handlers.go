package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Handler is the ledger copy of a specialist's card.
type Handler struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Capabilities json.RawMessage `json:"capabilities"`
	Position     int             `json:"position"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

const handlerColumns = `id, name, description, capabilities, position, updated_at`

func scanHandler(scanner interface {
	Scan(dest ...any) error
}) (*Handler, error) {
	h := &Handler{}
	var description sql.NullString
	var caps string
	if err := scanner.Scan(&h.ID, &h.Name, &description, &caps, &h.Position, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.Description = description.String
	h.Capabilities = json.RawMessage(caps)
	return h, nil
}

func (s *Store) SaveHandler(h *Handler) error {
	caps := h.Capabilities
	if len(caps) == 0 {
		caps = json.RawMessage("[]")
	}
	_, err := s.db.Exec(`
		INSERT INTO handlers (id, name, description, capabilities, position, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			capabilities = excluded.capabilities,
			position = excluded.position,
			updated_at = CURRENT_TIMESTAMP`,
		h.ID, h.Name, h.Description, string(caps), h.Position)
	if err != nil {
		return fmt.Errorf("save handler: %w", err)
	}
	return nil
}

func (s *Store) GetHandler(id string) (*Handler, error) {
	row := s.db.QueryRow(`SELECT `+handlerColumns+` FROM handlers WHERE id = ?`, id)
	h, err := scanHandler(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get handler: %w", err)
	}
	return h, nil
}

// ListHandlers returns handlers in dispatch order.
func (s *Store) ListHandlers() ([]Handler, error) {
	rows, err := s.db.Query(`SELECT ` + handlerColumns + ` FROM handlers ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list handlers: %w", err)
	}
	defer rows.Close()

	var handlers []Handler
	for rows.Next() {
		h, err := scanHandler(rows)
		if err != nil {
			return nil, fmt.Errorf("scan handler: %w", err)
		}
		handlers = append(handlers, *h)
	}
	return handlers, rows.Err()
}

func (s *Store) DeleteHandlersNotIn(ids []string) error {
	if len(ids) == 0 {
		_, err := s.db.Exec(`DELETE FROM handlers`)
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.Exec(`DELETE FROM handlers WHERE id NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete handlers: %w", err)
	}
	return nil
}
