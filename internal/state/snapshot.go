package state

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/similarity"
	"github.com/MikeSquared-Agency/honeypot/internal/tactics"
)

// Snapshot is the persisted form of a Session. Every field is a plain
// collection so it round-trips through JSON.
type Snapshot struct {
	ID                string                 `json:"session_id"`
	Turn              int                    `json:"turn"`
	Emotion           Emotion                `json:"emotion"`
	EmotionHistory    []EmotionChange        `json:"emotion_history"`
	Persona           string                 `json:"persona,omitempty"`
	Facts             []Entry                `json:"facts"`
	Topics            TopicState             `json:"topics"`
	Similarity        similarity.State       `json:"similarity"`
	Tactics           tactics.State          `json:"tactics"`
	Mirrored          []string               `json:"mirrored"`
	EchoCounts        map[string]int         `json:"echo_counts"`
	StallUses         map[string]int         `json:"stall_uses"`
	AckUses           map[string]int         `json:"ack_uses"`
	UsedExcuses       []string               `json:"used_excuses"`
	PaymentIntroduced bool                   `json:"payment_introduced"`
	LastAskedCase     bool                   `json:"last_asked_case"`
	CaseAsks          int                    `json:"case_asks"`
	LinkMode          string                 `json:"link_mode,omitempty"`
	Contradictions    []Contradiction        `json:"contradictions"`
	ObservedTactics   []string               `json:"observed_tactics"`
	Classification    Classification         `json:"classification"`
	Intel             extractor.Intelligence `json:"intelligence"`
	Callback          CallbackStatus         `json:"callback"`
	Messages          int                    `json:"messages"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// Snapshot captures the session state.
func (s *Session) Snapshot() Snapshot {
	mirrored := make([]string, 0, len(s.Mirrored))
	for v := range s.Mirrored {
		mirrored = append(mirrored, v)
	}
	sort.Strings(mirrored)

	return Snapshot{
		ID:                s.ID,
		Turn:              s.Turn,
		Emotion:           s.Emotion,
		EmotionHistory:    append([]EmotionChange{}, s.EmotionHistory...),
		Persona:           s.Persona,
		Facts:             s.Ledger.Entries(),
		Topics:            TopicState{Active: s.Topics.Active(), Previous: s.Topics.Previous()},
		Similarity:        s.Similarity.State(),
		Tactics:           s.Tactics.State(),
		Mirrored:          mirrored,
		EchoCounts:        s.Echo.Counts(),
		StallUses:         copyCounts(s.StallUses),
		AckUses:           copyCounts(s.AckUses),
		UsedExcuses:       append([]string{}, s.UsedExcuses...),
		PaymentIntroduced: s.PaymentIntroduced,
		LastAskedCase:     s.LastAskedCase,
		CaseAsks:          s.CaseAsks,
		LinkMode:          s.LinkMode,
		Contradictions:    append([]Contradiction{}, s.Contradictions...),
		ObservedTactics:   append([]string{}, s.ObservedTactics...),
		Classification:    s.Classification,
		Intel:             s.Intel.Normalized(),
		Callback:          s.Callback,
		Messages:          s.Messages,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// Restore rebuilds a session from a snapshot.
func Restore(snap Snapshot, opts Options, rng *rand.Rand) *Session {
	s := NewSession(snap.ID, opts, rng, snap.CreatedAt)
	s.Turn = snap.Turn
	s.Emotion = snap.Emotion
	if s.Emotion == "" {
		s.Emotion = EmotionForTurn(snap.Turn)
	}
	if len(snap.EmotionHistory) > 0 {
		s.EmotionHistory = append([]EmotionChange(nil), snap.EmotionHistory...)
	}
	s.Persona = snap.Persona
	s.Ledger.restore(snap.Facts)
	s.Topics.st = TopicState{
		Active:   append([]extractor.Topic(nil), snap.Topics.Active...),
		Previous: append([]extractor.Topic(nil), snap.Topics.Previous...),
	}
	s.Similarity.Restore(snap.Similarity)
	s.Tactics.Restore(snap.Tactics)
	for _, v := range snap.Mirrored {
		s.Mirrored[v] = true
	}
	for k, v := range snap.EchoCounts {
		s.Echo.counts[k] = v
	}
	for k, v := range snap.StallUses {
		s.StallUses[k] = v
	}
	for k, v := range snap.AckUses {
		s.AckUses[k] = v
	}
	s.UsedExcuses = append([]string(nil), snap.UsedExcuses...)
	s.PaymentIntroduced = snap.PaymentIntroduced
	s.LastAskedCase = snap.LastAskedCase
	s.CaseAsks = snap.CaseAsks
	s.LinkMode = snap.LinkMode
	s.Contradictions = append([]Contradiction(nil), snap.Contradictions...)
	s.ObservedTactics = append([]string(nil), snap.ObservedTactics...)
	s.Classification = snap.Classification
	s.Intel = snap.Intel
	s.Callback = snap.Callback
	s.Messages = snap.Messages
	s.UpdatedAt = snap.UpdatedAt
	return s
}

// MarshalSnapshot encodes a session for storage.
func MarshalSnapshot(s *Session) ([]byte, error) {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a stored snapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
