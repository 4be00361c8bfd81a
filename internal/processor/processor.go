// Package processor runs one conversation turn end to end: state update,
// classification, intelligence, candidate generation, guardrails,
// persistence, events and result reporting.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/callback"
	"github.com/MikeSquared-Agency/honeypot/internal/classifier"
	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/guardrail"
	"github.com/MikeSquared-Agency/honeypot/internal/hermes"
	"github.com/MikeSquared-Agency/honeypot/internal/phrases"
	"github.com/MikeSquared-Agency/honeypot/internal/responder"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
	"github.com/MikeSquared-Agency/honeypot/internal/store"
)

// Classifier scores a counterpart message.
type Classifier interface {
	Classify(ctx context.Context, text string, history []state.Message) classifier.Result
}

// Generator produces a candidate reply.
type Generator interface {
	Generate(ctx context.Context, pc responder.Context) (string, error)
}

// Reporter delivers final-result reports.
type Reporter interface {
	Send(ctx context.Context, p callback.Payload) (int, error)
}

// Notifier announces delivered reports to operators. thread is the ref a
// previous notification for the session returned, or empty.
type Notifier interface {
	NotifyReport(ctx context.Context, p callback.Payload, thread string) (string, error)
}

// Options wires a Processor. Generator, Publisher, Reporter and Notifier
// are optional.
type Options struct {
	Registry   *state.Registry
	Store      store.Repository
	Book       *phrases.Book
	Classifier Classifier
	Generator  Generator
	Publisher  hermes.Publisher
	Reporter   Reporter
	Notifier   Notifier
	Policy     callback.Policy
}

// Processor handles turns for every session.
type Processor struct {
	registry   *state.Registry
	store      store.Repository
	book       *phrases.Book
	guard      *guardrail.Pipeline
	classifier Classifier
	generator  Generator
	hermes     hermes.Publisher
	reporter   Reporter
	notifier   Notifier
	policy     callback.Policy
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

func New(opts Options, logger *slog.Logger) *Processor {
	return &Processor{
		registry:   opts.Registry,
		store:      opts.Store,
		book:       opts.Book,
		guard:      guardrail.New(opts.Book, logger),
		classifier: opts.Classifier,
		generator:  opts.Generator,
		hermes:     opts.Publisher,
		reporter:   opts.Reporter,
		notifier:   opts.Notifier,
		policy:     opts.Policy,
		logger:     logger,
		now:        time.Now,
		inflight:   make(map[string]bool),
	}
}

// Process answers one counterpart message. It always produces a reply: a
// fault anywhere in the turn, panics included, yields the in-character
// error line.
func (p *Processor) Process(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if v := recover(); v != nil {
			p.logger.Error("turn panicked", "session_id", req.SessionID, "panic", v, "stack", string(debug.Stack()))
			resp = Response{Status: "success", Reply: p.book.ErrorLine}
		}
	}()

	reply, err := p.turn(ctx, req)
	if err != nil {
		p.logger.Error("turn failed", "session_id", req.SessionID, "error", err)
		reply = p.book.ErrorLine
	}
	return Response{Status: "success", Reply: reply}
}

func (p *Processor) turn(ctx context.Context, req Request) (string, error) {
	sess, release, err := p.registry.Acquire(req.SessionID, p.loader(ctx))
	if err != nil {
		return "", fmt.Errorf("acquire session: %w", err)
	}
	defer release()

	history := req.history()
	now := p.now()
	if sess.Turn == 0 {
		sess.Resume(history, now)
	}

	in := sess.Begin(req.Message.Text, now)

	verdict := p.classifier.Classify(ctx, in.Text, history)
	applyVerdict(sess, verdict)

	texts := append(state.CounterpartTexts(history), in.Text)
	sess.Intel = extractor.Merge(sess.Intel, extractor.Collect(texts))
	sess.Messages = len(history) + 2

	suggestion := p.guard.Suggest(sess, in)
	candidate := ""
	if p.generator != nil {
		candidate, err = p.generator.Generate(ctx, responder.Context{
			Session:    sess,
			Turn:       in,
			Suggestion: suggestion,
			History:    history,
		})
		if err != nil {
			p.logger.Warn("reply generation failed, using local candidate", "session_id", sess.ID, "turn", in.Number, "error", err)
			candidate = ""
		}
	}
	if candidate == "" {
		candidate = p.guard.Synthesize(sess, in)
	}

	result := p.guard.Finalize(sess, guardrail.Input{Candidate: candidate, Turn: in})

	p.persist(ctx, sess, in, result)
	p.publishTurn(sess, in, suggestion, result)
	if p.reporter != nil && p.policy.ShouldTrigger(sess) {
		p.report(callback.BuildPayload(sess))
	}

	p.logger.Info("turn completed",
		"session_id", sess.ID,
		"turn", in.Number,
		"scam_detected", sess.Classification.ScamDetected,
		"new_facts", len(in.NewFacts),
		"steps", len(result.Steps),
	)
	return result.Reply, nil
}

// applyVerdict folds a classification into the session. Detection is
// sticky: once a conversation is judged a scam it stays one.
func applyVerdict(s *state.Session, res classifier.Result) {
	c := &s.Classification
	if res.IsScam {
		c.ScamDetected = true
		if res.ScamType != "" {
			c.ScamType = res.ScamType
		}
	}
	if !c.ScamDetected || res.Confidence > c.Confidence {
		c.Confidence = res.Confidence
		c.RiskLevel = res.RiskLevel
	}
}

func (p *Processor) loader(ctx context.Context) state.Loader {
	return func(id string) (*state.Snapshot, error) {
		rec, err := p.store.LoadSession(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		snap, err := state.UnmarshalSnapshot(rec.Snapshot)
		if err != nil {
			return nil, err
		}
		return &snap, nil
	}
}

func (p *Processor) persist(ctx context.Context, sess *state.Session, in state.TurnInput, result guardrail.Result) {
	if err := p.saveSession(ctx, sess); err != nil {
		p.logger.Error("failed to save session", "session_id", sess.ID, "error", err)
	}
	err := p.store.AppendTurn(ctx, store.Turn{
		SessionID: sess.ID,
		Number:    in.Number,
		Incoming:  in.Text,
		Reply:     result.Reply,
		Steps:     result.Steps,
		CreatedAt: sess.UpdatedAt,
	})
	if err != nil {
		p.logger.Error("failed to append turn", "session_id", sess.ID, "turn", in.Number, "error", err)
	}
}

func (p *Processor) saveSession(ctx context.Context, sess *state.Session) error {
	data, err := state.MarshalSnapshot(sess)
	if err != nil {
		return err
	}
	return p.store.SaveSession(ctx, store.SessionRecord{
		ID:               sess.ID,
		Snapshot:         data,
		ScamDetected:     sess.Classification.ScamDetected,
		ScamType:         sess.Classification.ScamType,
		Turn:             sess.Turn,
		TotalMessages:    sess.Messages,
		BankAccounts:     len(sess.Intel.BankAccounts),
		UPIIDs:           len(sess.Intel.UPIIDs),
		PhishingLinks:    len(sess.Intel.PhishingLinks),
		PhoneNumbers:     len(sess.Intel.PhoneNumbers),
		CallbackSent:     sess.Callback.Sent,
		CallbackComplete: sess.Callback.Complete,
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        sess.UpdatedAt,
	})
}

func (p *Processor) publishTurn(sess *state.Session, in state.TurnInput, sg guardrail.Suggestion, result guardrail.Result) {
	if p.hermes == nil {
		return
	}
	newFacts := make([]string, 0, len(in.NewKinds))
	for _, k := range in.NewKinds {
		newFacts = append(newFacts, string(k))
	}
	missing := []string{}
	for _, k := range sess.Ledger.Missing() {
		missing = append(missing, string(k))
	}
	steps := result.Steps
	if steps == nil {
		steps = []string{}
	}

	err := p.hermes.Publish(hermes.SubjectTurnCompleted, hermes.TurnCompleted{
		SessionID:    sess.ID,
		Turn:         in.Number,
		Emotion:      string(sess.Emotion),
		ScamDetected: sess.Classification.ScamDetected,
		ScamType:     sess.Classification.ScamType,
		Confidence:   sess.Classification.Confidence,
		NewFacts:     newFacts,
		Missing:      missing,
		Tactic:       string(sg.Tactic.Category),
		Steps:        steps,
		CompletedAt:  sess.UpdatedAt,
	})
	if err != nil {
		p.logger.Error("failed to publish turn", "session_id", sess.ID, "error", err)
	}
}

// Wait blocks until every report in flight has finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}
