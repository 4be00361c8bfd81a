package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite is the single-node repository.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens or creates the database at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_sync=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS sessions (
		id                TEXT PRIMARY KEY,
		snapshot          TEXT NOT NULL,
		scam_detected     INTEGER NOT NULL DEFAULT 0,
		scam_type         TEXT NOT NULL DEFAULT '',
		turn              INTEGER NOT NULL DEFAULT 0,
		total_messages    INTEGER NOT NULL DEFAULT 0,
		bank_accounts     INTEGER NOT NULL DEFAULT 0,
		upi_ids           INTEGER NOT NULL DEFAULT 0,
		phishing_links    INTEGER NOT NULL DEFAULT 0,
		phone_numbers     INTEGER NOT NULL DEFAULT 0,
		callback_sent     INTEGER NOT NULL DEFAULT 0,
		callback_complete INTEGER NOT NULL DEFAULT 0,
		created_at        INTEGER NOT NULL,
		updated_at        INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		turn       INTEGER NOT NULL,
		incoming   TEXT NOT NULL,
		reply      TEXT NOT NULL,
		steps      TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, turn);

	CREATE TABLE IF NOT EXISTS callbacks (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		payload     TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		complete    INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		sent_at     INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLite) SaveSession(ctx context.Context, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO sessions (id, snapshot, scam_detected, scam_type, turn, total_messages,
		bank_accounts, upi_ids, phishing_links, phone_numbers, callback_sent, callback_complete, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		snapshot = excluded.snapshot,
		scam_detected = excluded.scam_detected,
		scam_type = excluded.scam_type,
		turn = excluded.turn,
		total_messages = excluded.total_messages,
		bank_accounts = excluded.bank_accounts,
		upi_ids = excluded.upi_ids,
		phishing_links = excluded.phishing_links,
		phone_numbers = excluded.phone_numbers,
		callback_sent = excluded.callback_sent,
		callback_complete = excluded.callback_complete,
		updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, string(rec.Snapshot), rec.ScamDetected, rec.ScamType, rec.Turn, rec.TotalMessages,
		rec.BankAccounts, rec.UPIIDs, rec.PhishingLinks, rec.PhoneNumbers,
		rec.CallbackSent, rec.CallbackComplete, rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *SQLite) LoadSession(ctx context.Context, id string) (*SessionRecord, error) {
	query := `
	SELECT id, snapshot, scam_detected, scam_type, turn, total_messages,
		bank_accounts, upi_ids, phishing_links, phone_numbers, callback_sent, callback_complete, created_at, updated_at
	FROM sessions WHERE id = ?
	`
	var (
		r                    SessionRecord
		snapshot             string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &snapshot, &r.ScamDetected, &r.ScamType, &r.Turn, &r.TotalMessages,
		&r.BankAccounts, &r.UPIIDs, &r.PhishingLinks, &r.PhoneNumbers,
		&r.CallbackSent, &r.CallbackComplete, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	r.Snapshot = []byte(snapshot)
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	r.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &r, nil
}

func (s *SQLite) AppendTurn(ctx context.Context, t Turn) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	steps, err := json.Marshal(nonNil(t.Steps))
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO turns (id, session_id, turn, incoming, reply, steps, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.SessionID, t.Number, t.Incoming, t.Reply, string(steps), t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *SQLite) History(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, session_id, turn, incoming, reply, steps, created_at
	FROM turns WHERE session_id = ?
	ORDER BY turn, created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var (
			t         Turn
			id, steps string
			createdAt int64
		)
		if err := rows.Scan(&id, &t.SessionID, &t.Number, &t.Incoming, &t.Reply, &steps, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse turn id: %w", err)
		}
		if err := json.Unmarshal([]byte(steps), &t.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps: %w", err)
		}
		t.CreatedAt = time.UnixMilli(createdAt).UTC()
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *SQLite) RecordCallback(ctx context.Context, c CallbackRecord) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO callbacks (id, session_id, payload, status_code, complete, error, sent_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.SessionID, string(c.Payload), c.StatusCode, c.Complete, c.Error, c.SentAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert callback: %w", err)
	}
	return nil
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
	SELECT count(*),
		coalesce(sum(scam_detected), 0),
		coalesce(sum(callback_sent), 0),
		coalesce(sum(bank_accounts), 0),
		coalesce(sum(upi_ids), 0),
		coalesce(sum(phishing_links), 0),
		coalesce(sum(phone_numbers), 0),
		(SELECT count(*) FROM turns)
	FROM sessions`,
	).Scan(&st.Sessions, &st.ScamSessions, &st.CallbacksSent,
		&st.BankAccounts, &st.UPIIDs, &st.PhishingLinks, &st.PhoneNumbers, &st.Turns)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return st, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
