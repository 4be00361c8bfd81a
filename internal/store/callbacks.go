package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RecordCallback inserts a report attempt.
func (s *Postgres) RecordCallback(ctx context.Context, c CallbackRecord) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO honeypot_callbacks (id, session_id, payload, status_code, complete, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.SessionID, c.Payload, c.StatusCode, c.Complete, c.Error, c.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert callback: %w", err)
	}
	return nil
}
