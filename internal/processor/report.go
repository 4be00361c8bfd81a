package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/callback"
	"github.com/MikeSquared-Agency/honeypot/internal/hermes"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
	"github.com/MikeSquared-Agency/honeypot/internal/store"
)

const reportTimeout = 15 * time.Second

// report delivers payload in the background. At most one report per
// session is in flight.
func (p *Processor) report(payload callback.Payload) {
	p.mu.Lock()
	if p.inflight[payload.SessionID] {
		p.mu.Unlock()
		return
	}
	p.inflight[payload.SessionID] = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			delete(p.inflight, payload.SessionID)
			p.mu.Unlock()
		}()
		_ = p.deliver(context.Background(), payload)
	}()
}

// deliver sends payload, records the attempt and updates the session. It
// must not be called while the session is acquired.
func (p *Processor) deliver(ctx context.Context, payload callback.Payload) error {
	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	status, sendErr := p.reporter.Send(ctx, payload)
	now := p.now()
	complete := payload.ExtractedIntelligence.Complete()

	if sendErr != nil {
		p.logger.Warn("callback failed", "session_id", payload.SessionID, "status", status, "error", sendErr)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal callback payload", "session_id", payload.SessionID, "error", err)
	} else {
		rec := store.CallbackRecord{
			SessionID:  payload.SessionID,
			Payload:    body,
			StatusCode: status,
			Complete:   complete,
			SentAt:     now,
		}
		if sendErr != nil {
			rec.Error = sendErr.Error()
		}
		if err := p.store.RecordCallback(ctx, rec); err != nil {
			p.logger.Error("failed to record callback", "session_id", payload.SessionID, "error", err)
		}
	}

	if p.hermes != nil {
		err := p.hermes.Publish(hermes.SubjectIntelReported, hermes.IntelReported{
			SessionID:     payload.SessionID,
			ScamDetected:  payload.ScamDetected,
			TotalMessages: payload.TotalMessagesExchanged,
			Intelligence:  payload.ExtractedIntelligence,
			AgentNotes:    payload.AgentNotes,
			Complete:      complete,
			Delivered:     sendErr == nil,
		})
		if err != nil {
			p.logger.Error("failed to publish intel report", "session_id", payload.SessionID, "error", err)
		}
	}

	alertRef := ""
	if sendErr == nil && p.notifier != nil {
		alertRef = p.notify(ctx, payload)
	}

	err = p.registry.View(payload.SessionID, func(s *state.Session) {
		s.Callback.Attempts++
		if sendErr == nil {
			callback.MarkDelivered(s, payload, now)
		}
		if alertRef != "" {
			s.Callback.AlertRef = alertRef
		}
		if err := p.saveSession(ctx, s); err != nil {
			p.logger.Error("failed to save session", "session_id", s.ID, "error", err)
		}
	})
	if err != nil {
		p.logger.Warn("session gone before callback status was recorded", "session_id", payload.SessionID)
	}
	return sendErr
}

// notify posts the report to operators, threading it under the session's
// earlier alert when there is one. It returns the alert ref, or empty when
// posting failed.
func (p *Processor) notify(ctx context.Context, payload callback.Payload) string {
	thread := ""
	_ = p.registry.View(payload.SessionID, func(s *state.Session) {
		thread = s.Callback.AlertRef
	})
	ref, err := p.notifier.NotifyReport(ctx, payload, thread)
	if err != nil {
		p.logger.Warn("failed to notify operators", "session_id", payload.SessionID, "error", err)
		return ""
	}
	return ref
}
