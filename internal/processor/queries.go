package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/callback"
	"github.com/MikeSquared-Agency/honeypot/internal/classifier"
	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
	"github.com/MikeSquared-Agency/honeypot/internal/store"
)

// ErrNoReporter is returned by TriggerCallback when reporting is disabled.
var ErrNoReporter = errors.New("callback reporting is disabled")

// Summary is a read-only view of a session.
type Summary struct {
	SessionID       string                 `json:"session_id"`
	Turn            int                    `json:"turn"`
	Emotion         string                 `json:"emotion"`
	Persona         string                 `json:"persona,omitempty"`
	Classification  state.Classification   `json:"classification"`
	Facts           []state.Entry          `json:"facts"`
	Missing         []extractor.Kind       `json:"missing"`
	ObservedTactics []string               `json:"observed_tactics"`
	Contradictions  []state.Contradiction  `json:"contradictions"`
	Intelligence    extractor.Intelligence `json:"intelligence"`
	Callback        state.CallbackStatus   `json:"callback"`
	Messages        int                    `json:"total_messages"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// Analysis is a stateless look at one message.
type Analysis struct {
	Classification classifier.Result      `json:"classification"`
	Intelligence   extractor.Intelligence `json:"intelligence"`
	Tactics        []string               `json:"tactics"`
	Topics         []extractor.Topic      `json:"topics"`
}

// Stats adds live registry figures to the stored totals.
type Stats struct {
	store.Stats
	ActiveSessions int `json:"active_sessions"`
}

// withSession runs fn on an existing session, restoring it from the store
// when this process has not seen it yet.
func (p *Processor) withSession(ctx context.Context, id string, fn func(*state.Session)) error {
	err := p.registry.View(id, fn)
	if !errors.Is(err, state.ErrSessionNotFound) {
		return err
	}

	if _, err := p.store.LoadSession(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return state.ErrSessionNotFound
		}
		return fmt.Errorf("load session: %w", err)
	}
	sess, release, err := p.registry.Acquire(id, p.loader(ctx))
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	defer release()
	fn(sess)
	return nil
}

// Intelligence returns everything reported for a session so far.
func (p *Processor) Intelligence(ctx context.Context, id string) (extractor.Intelligence, error) {
	var intel extractor.Intelligence
	err := p.withSession(ctx, id, func(s *state.Session) {
		intel = s.Intel.Normalized()
	})
	return intel, err
}

// Summary describes a session's state.
func (p *Processor) Summary(ctx context.Context, id string) (Summary, error) {
	var sum Summary
	err := p.withSession(ctx, id, func(s *state.Session) {
		sum = Summary{
			SessionID:       s.ID,
			Turn:            s.Turn,
			Emotion:         string(s.Emotion),
			Persona:         s.Persona,
			Classification:  s.Classification,
			Facts:           s.Ledger.Entries(),
			Missing:         s.Ledger.Missing(),
			ObservedTactics: append([]string{}, s.ObservedTactics...),
			Contradictions:  append([]state.Contradiction{}, s.Contradictions...),
			Intelligence:    s.Intel.Normalized(),
			Callback:        s.Callback,
			Messages:        s.Messages,
			CreatedAt:       s.CreatedAt,
			UpdatedAt:       s.UpdatedAt,
		}
	})
	return sum, err
}

// History returns the stored turns of a session.
func (p *Processor) History(ctx context.Context, id string) ([]store.Turn, error) {
	turns, err := p.store.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(turns) == 0 {
		if err := p.withSession(ctx, id, func(*state.Session) {}); err != nil {
			return nil, err
		}
	}
	return turns, nil
}

// Stats returns totals across every session.
func (p *Processor) Stats(ctx context.Context) (Stats, error) {
	st, err := p.store.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load stats: %w", err)
	}
	return Stats{Stats: st, ActiveSessions: p.registry.Len()}, nil
}

// Analyze classifies text and extracts intelligence without touching any
// session.
func (p *Processor) Analyze(ctx context.Context, text string, history []Message) Analysis {
	req := Request{ConversationHistory: history}
	h := req.history()
	texts := append(state.CounterpartTexts(h), text)
	return Analysis{
		Classification: p.classifier.Classify(ctx, text, h),
		Intelligence:   extractor.Collect(texts).Normalized(),
		Tactics:        extractor.Tactics(text),
		Topics:         extractor.DetectTopics(text),
	}
}

// TriggerCallback reports a session now, regardless of policy, and waits
// for the result.
func (p *Processor) TriggerCallback(ctx context.Context, id string) (callback.Payload, error) {
	if p.reporter == nil {
		return callback.Payload{}, ErrNoReporter
	}
	var payload callback.Payload
	if err := p.withSession(ctx, id, func(s *state.Session) {
		payload = callback.BuildPayload(s)
	}); err != nil {
		return callback.Payload{}, err
	}
	if err := p.deliver(ctx, payload); err != nil {
		return payload, fmt.Errorf("deliver callback: %w", err)
	}
	return payload, nil
}
