package responder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/anthropic"
	"github.com/MikeSquared-Agency/honeypot/internal/guardrail"
	"github.com/MikeSquared-Agency/honeypot/internal/phrases"
	"github.com/MikeSquared-Agency/honeypot/internal/similarity"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
	"github.com/MikeSquared-Agency/honeypot/internal/tactics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSession() *state.Session {
	book := phrases.Default()
	opts := state.Options{Similarity: similarity.DefaultConfig(), Tactics: book.TacticPools()}
	return state.NewSession("sess-1", opts, rand.New(rand.NewPCG(1, 1)), time.Unix(0, 0))
}

type fakeCompleter struct {
	out      string
	err      error
	block    bool
	system   string
	messages []anthropic.Message
	req      anthropic.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req anthropic.Request) (anthropic.Completion, error) {
	f.req, f.system, f.messages = req, req.System, req.Messages
	if f.block {
		<-ctx.Done()
		return anthropic.Completion{}, ctx.Err()
	}
	return anthropic.Completion{Text: f.out}, f.err
}

func TestBuildSystemPrompt(t *testing.T) {
	book := phrases.Default()
	s := newSession()
	in := s.Begin("I am from HDFC income tax department. Call 9876543210 now.", time.Unix(0, 0))
	s.Complete("Which office is this, I don't understand?", time.Unix(0, 0))

	prompt := BuildSystemPrompt(book, Context{
		Session: s,
		Turn:    in,
		Suggestion: guardrail.Suggestion{
			Tactic:        tactics.Record{Category: tactics.Skeptical, Text: "Ask how you can be sure they are from the bank they claim."},
			Contradiction: "My brother-in-law works at HDFC and he said they don't do tax work.",
		},
	})

	for _, want := range []string{
		"EMOTIONAL STATE:",
		"- Level: high anxiety",
		"- Turn: 1",
		"- Fact categories obtained: phone",
		"- Missing fact types: upi, bank_account, link, case_number",
		"CONTRADICTION DETECTED:",
		"- phone: +919876543210",
		"Ask how you can be sure",
		"PAYMENT/UPI GUARDRAIL",
		"RECENT REPLIES",
		"Which office is this",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "SENTIMENT SHIFT") {
		t.Error("no sentiment shift expected on turn 1")
	}
}

func TestBuildSystemPrompt_SentimentShift(t *testing.T) {
	book := phrases.Default()
	s := newSession()
	var in state.TurnInput
	for range state.SentimentShiftTurn {
		in = s.Begin("pay the fee now", time.Unix(0, 0))
	}
	prompt := BuildSystemPrompt(book, Context{
		Session:    s,
		Turn:       in,
		Suggestion: guardrail.Suggestion{Annoyance: "Why is this taking so long?"},
	})
	if !strings.Contains(prompt, "SENTIMENT SHIFT (turn 8)") || !strings.Contains(prompt, "Why is this taking so long?") {
		t.Errorf("expected sentiment shift directive:\n%s", prompt)
	}
	if strings.Contains(prompt, "PAYMENT/UPI GUARDRAIL") {
		t.Error("payment guardrail should lift once payment is introduced")
	}
}

func TestBuildMessages(t *testing.T) {
	history := []state.Message{
		{Sender: state.Agent, Text: "hello?"},
		{Sender: state.Counterpart, Text: "Your account is blocked"},
		{Sender: state.Counterpart, Text: "Reply fast"},
		{Sender: state.Agent, Text: "What happened?"},
	}
	got := BuildMessages(history, "Share the OTP")

	want := []anthropic.Message{
		{Role: anthropic.RoleUser, Content: "Your account is blocked\nReply fast"},
		{Role: anthropic.RoleAssistant, Content: "What happened?"},
		{Role: anthropic.RoleUser, Content: "Share the OTP"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestGenerate(t *testing.T) {
	s := newSession()
	in := s.Begin("Share the OTP", time.Unix(0, 0))
	fc := &fakeCompleter{out: "  Which OTP, the one from the bank?  "}
	r := New(fc, phrases.Default(), time.Second, discardLogger())

	got, err := r.Generate(context.Background(), Context{Session: s, Turn: in})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Which OTP, the one from the bank?" {
		t.Errorf("unexpected reply %q", got)
	}
	if len(fc.messages) != 1 || fc.messages[0].Content != "Share the OTP" {
		t.Errorf("unexpected messages %+v", fc.messages)
	}
	if fc.req.MaxTokens != DefaultMaxTokens || fc.req.Temperature != 0.9 || fc.req.Deterministic {
		t.Errorf("unexpected sampling %+v", fc.req)
	}
}

func TestGenerate_Failures(t *testing.T) {
	s := newSession()
	in := s.Begin("Share the OTP", time.Unix(0, 0))

	r := New(&fakeCompleter{out: "   "}, phrases.Default(), time.Second, discardLogger())
	if _, err := r.Generate(context.Background(), Context{Session: s, Turn: in}); !errors.Is(err, ErrEmptyReply) {
		t.Errorf("expected ErrEmptyReply, got %v", err)
	}

	r = New(&fakeCompleter{block: true}, phrases.Default(), 20*time.Millisecond, discardLogger())
	if _, err := r.Generate(context.Background(), Context{Session: s, Turn: in}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
