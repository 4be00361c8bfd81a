// Package store persists honeypot sessions. PostgreSQL backs production
// deployments, SQLite single-node ones, and the in-memory repository tests
// and replays.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("store: not found")

// SessionRecord is the persisted form of a session: the serialized snapshot
// plus the columns statistics are computed from.
type SessionRecord struct {
	ID               string
	Snapshot         []byte
	ScamDetected     bool
	ScamType         string
	Turn             int
	TotalMessages    int
	BankAccounts     int
	UPIIDs           int
	PhishingLinks    int
	PhoneNumbers     int
	CallbackSent     bool
	CallbackComplete bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Turn is one exchange: the counterpart's message and the reply sent.
type Turn struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	Number    int       `json:"turn"`
	Incoming  string    `json:"incoming"`
	Reply     string    `json:"reply"`
	Steps     []string  `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
}

// CallbackRecord is one final-result report attempt.
type CallbackRecord struct {
	ID         uuid.UUID
	SessionID  string
	Payload    []byte
	StatusCode int
	Complete   bool
	Error      string
	SentAt     time.Time
}

// Stats aggregates every stored session.
type Stats struct {
	Sessions      int `json:"sessions"`
	ScamSessions  int `json:"scam_sessions"`
	CallbacksSent int `json:"callbacks_sent"`
	Turns         int `json:"turns"`
	BankAccounts  int `json:"bank_accounts"`
	UPIIDs        int `json:"upi_ids"`
	PhishingLinks int `json:"phishing_links"`
	PhoneNumbers  int `json:"phone_numbers"`
}

// Repository is implemented by every backend.
type Repository interface {
	// SaveSession inserts or replaces a session. CreatedAt of an existing
	// session is kept.
	SaveSession(ctx context.Context, rec SessionRecord) error
	LoadSession(ctx context.Context, id string) (*SessionRecord, error)
	AppendTurn(ctx context.Context, t Turn) error
	// History returns a session's turns in order; unknown sessions have none.
	History(ctx context.Context, sessionID string) ([]Turn, error)
	RecordCallback(ctx context.Context, c CallbackRecord) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
