package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS honeypot_sessions (
	id                TEXT PRIMARY KEY,
	snapshot          JSONB NOT NULL,
	scam_detected     BOOLEAN NOT NULL DEFAULT false,
	scam_type         TEXT NOT NULL DEFAULT '',
	turn              INTEGER NOT NULL DEFAULT 0,
	total_messages    INTEGER NOT NULL DEFAULT 0,
	bank_accounts     INTEGER NOT NULL DEFAULT 0,
	upi_ids           INTEGER NOT NULL DEFAULT 0,
	phishing_links    INTEGER NOT NULL DEFAULT 0,
	phone_numbers     INTEGER NOT NULL DEFAULT 0,
	callback_sent     BOOLEAN NOT NULL DEFAULT false,
	callback_complete BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS honeypot_turns (
	id         UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	turn       INTEGER NOT NULL,
	incoming   TEXT NOT NULL,
	reply      TEXT NOT NULL,
	steps      TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_honeypot_turns_session ON honeypot_turns (session_id, turn);

CREATE TABLE IF NOT EXISTS honeypot_callbacks (
	id          UUID PRIMARY KEY,
	session_id  TEXT NOT NULL,
	payload     JSONB NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	complete    BOOLEAN NOT NULL DEFAULT false,
	error       TEXT NOT NULL DEFAULT '',
	sent_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres is the PostgreSQL repository.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
