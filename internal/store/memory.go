package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps everything in process. Data is lost on exit.
type Memory struct {
	mu        sync.RWMutex
	sessions  map[string]SessionRecord
	turns     map[string][]Turn
	callbacks []CallbackRecord
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]SessionRecord),
		turns:    make(map[string][]Turn),
	}
}

func (m *Memory) SaveSession(_ context.Context, rec SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.sessions[rec.ID]; ok {
		rec.CreatedAt = old.CreatedAt
	}
	rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	m.sessions[rec.ID] = rec
	return nil
}

func (m *Memory) LoadSession(_ context.Context, id string) (*SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	return &rec, nil
}

func (m *Memory) AppendTurn(_ context.Context, t Turn) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Steps = append([]string{}, t.Steps...)

	m.mu.Lock()
	defer m.mu.Unlock()
	turns := append(m.turns[t.SessionID], t)
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Number < turns[j].Number })
	m.turns[t.SessionID] = turns
	return nil
}

func (m *Memory) History(_ context.Context, sessionID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Turn{}, m.turns[sessionID]...), nil
}

func (m *Memory) RecordCallback(_ context.Context, c CallbackRecord) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.mu.Lock()
	m.callbacks = append(m.callbacks, c)
	m.mu.Unlock()
	return nil
}

// Callbacks returns every recorded report attempt.
func (m *Memory) Callbacks() []CallbackRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CallbackRecord(nil), m.callbacks...)
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st Stats
	for _, rec := range m.sessions {
		st.Sessions++
		if rec.ScamDetected {
			st.ScamSessions++
		}
		if rec.CallbackSent {
			st.CallbacksSent++
		}
		st.BankAccounts += rec.BankAccounts
		st.UPIIDs += rec.UPIIDs
		st.PhishingLinks += rec.PhishingLinks
		st.PhoneNumbers += rec.PhoneNumbers
	}
	for _, turns := range m.turns {
		st.Turns += len(turns)
	}
	return st, nil
}

func (m *Memory) Close() error { return nil }
