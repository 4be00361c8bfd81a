package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AppendTurn inserts one exchange.
func (s *Postgres) AppendTurn(ctx context.Context, t Turn) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Steps == nil {
		t.Steps = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO honeypot_turns (id, session_id, turn, incoming, reply, steps, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.SessionID, t.Number, t.Incoming, t.Reply, t.Steps, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// History returns the turns of a session ordered by turn number.
func (s *Postgres) History(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, turn, incoming, reply, steps, created_at
		FROM honeypot_turns WHERE session_id = $1
		ORDER BY turn, created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Number, &t.Incoming, &t.Reply, &t.Steps, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
