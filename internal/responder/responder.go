// Package responder asks the language model for a candidate reply. The
// candidate is raw; the guardrail pipeline decides what is actually sent.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/anthropic"
	"github.com/MikeSquared-Agency/honeypot/internal/phrases"
)

// ErrEmptyReply is returned when the model answers with nothing usable.
var ErrEmptyReply = errors.New("responder: empty reply")

// DefaultMaxTokens bounds a reply; two short sentences fit comfortably.
const DefaultMaxTokens = 140

const (
	temperature = 0.9
	topP        = 0.95
)

// Completer is the model call the responder needs.
type Completer interface {
	Complete(ctx context.Context, req anthropic.Request) (anthropic.Completion, error)
}

// Responder generates candidate replies.
type Responder struct {
	client    Completer
	book      *phrases.Book
	timeout   time.Duration
	maxTokens int
	logger    *slog.Logger
}

// New creates a responder. Every generation is bounded by timeout.
func New(client Completer, book *phrases.Book, timeout time.Duration, logger *slog.Logger) *Responder {
	return &Responder{
		client:    client,
		book:      book,
		timeout:   timeout,
		maxTokens: DefaultMaxTokens,
		logger:    logger,
	}
}

// Generate returns the model's candidate for this turn. Errors are for the
// caller to absorb; a failed generation never fails the turn.
func (r *Responder) Generate(ctx context.Context, pc Context) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := r.client.Complete(ctx, anthropic.Request{
		System:      BuildSystemPrompt(r.book, pc),
		Messages:    BuildMessages(pc.History, pc.Turn.Text),
		MaxTokens:   r.maxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	r.logger.Debug("candidate generated",
		"session_id", pc.Session.ID,
		"turn", pc.Session.Turn,
		"duration", time.Since(start),
		"stop_reason", res.StopReason,
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens,
	)

	out := strings.TrimSpace(res.Text)
	if out == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}
