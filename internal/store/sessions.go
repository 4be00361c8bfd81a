package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SaveSession upserts a session row.
func (s *Postgres) SaveSession(ctx context.Context, rec SessionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO honeypot_sessions (id, snapshot, scam_detected, scam_type, turn, total_messages,
			bank_accounts, upi_ids, phishing_links, phone_numbers, callback_sent, callback_complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id)
		DO UPDATE SET
			snapshot = $2,
			scam_detected = $3,
			scam_type = $4,
			turn = $5,
			total_messages = $6,
			bank_accounts = $7,
			upi_ids = $8,
			phishing_links = $9,
			phone_numbers = $10,
			callback_sent = $11,
			callback_complete = $12,
			updated_at = $14`,
		rec.ID, rec.Snapshot, rec.ScamDetected, rec.ScamType, rec.Turn, rec.TotalMessages,
		rec.BankAccounts, rec.UPIIDs, rec.PhishingLinks, rec.PhoneNumbers,
		rec.CallbackSent, rec.CallbackComplete, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// LoadSession fetches a session row by ID.
func (s *Postgres) LoadSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, snapshot, scam_detected, scam_type, turn, total_messages,
			bank_accounts, upi_ids, phishing_links, phone_numbers, callback_sent, callback_complete, created_at, updated_at
		FROM honeypot_sessions WHERE id = $1`, id)

	var r SessionRecord
	err := row.Scan(&r.ID, &r.Snapshot, &r.ScamDetected, &r.ScamType, &r.Turn, &r.TotalMessages,
		&r.BankAccounts, &r.UPIIDs, &r.PhishingLinks, &r.PhoneNumbers,
		&r.CallbackSent, &r.CallbackComplete, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &r, nil
}

// Stats aggregates sessions, turns and intelligence counts.
func (s *Postgres) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE scam_detected),
			count(*) FILTER (WHERE callback_sent),
			coalesce(sum(bank_accounts), 0),
			coalesce(sum(upi_ids), 0),
			coalesce(sum(phishing_links), 0),
			coalesce(sum(phone_numbers), 0),
			(SELECT count(*) FROM honeypot_turns)
		FROM honeypot_sessions`,
	).Scan(&st.Sessions, &st.ScamSessions, &st.CallbacksSent,
		&st.BankAccounts, &st.UPIIDs, &st.PhishingLinks, &st.PhoneNumbers, &st.Turns)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return st, nil
}
