package state

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/similarity"
	"github.com/MikeSquared-Agency/honeypot/internal/tactics"
)

func testOptions() Options {
	return Options{
		Similarity: similarity.DefaultConfig(),
		Tactics: map[tactics.Category][]string{
			tactics.Confusion:      {"c1", "c2", "c3"},
			tactics.Skeptical:      {"s1", "s2", "s3"},
			tactics.SlowCompliance: {"w1", "w2", "w3"},
		},
	}
}

func newTestSession(id string) *Session {
	return NewSession(id, testOptions(), rand.New(rand.NewPCG(1, 1)), time.Unix(0, 0))
}

func TestParseSender(t *testing.T) {
	tests := []struct {
		raw  string
		want Sender
	}{
		{"scammer", Counterpart},
		{"Scammer", Counterpart},
		{"user", Agent},
		{"honeypot", Agent},
		{" agent ", Agent},
	}
	for _, tt := range tests {
		got, err := ParseSender(tt.raw)
		if err != nil {
			t.Errorf("ParseSender(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSender(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	if _, err := ParseSender("narrator"); !errors.Is(err, ErrUnknownSender) {
		t.Errorf("expected ErrUnknownSender, got %v", err)
	}
}

func TestSender_TextRoundTrip(t *testing.T) {
	var s Sender
	if err := s.UnmarshalText([]byte("scammer")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	b, err := s.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(b) != "scammer" {
		t.Errorf("expected scammer, got %s", b)
	}
	if _, err := Sender(0).MarshalText(); err == nil {
		t.Error("expected error for zero sender")
	}
}

func TestLedger_Idempotent(t *testing.T) {
	l := NewLedger()
	first := l.Record("pay to fraud@ybl", 1)
	if !reflect.DeepEqual(first, []extractor.Kind{extractor.KindUPI}) {
		t.Fatalf("expected upi as new kind, got %v", first)
	}
	for turn := 2; turn <= 5; turn++ {
		if got := l.Record("again fraud@ybl please", turn); len(got) != 0 {
			t.Errorf("turn %d: expected no new kinds, got %v", turn, got)
		}
	}

	entries := l.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Turn != 1 {
		t.Errorf("first-seen turn should win, got %d", entries[0].Turn)
	}
	for _, k := range l.Missing() {
		if k == extractor.KindUPI {
			t.Error("upi should no longer be missing")
		}
	}
}

func TestLedger_NewValueSameKind(t *testing.T) {
	l := NewLedger()
	l.Record("call 9876543210", 1)
	if got := l.Record("or call 9123456780", 2); len(got) != 0 {
		t.Errorf("second phone is not a new kind, got %v", got)
	}
	if got := l.Values(extractor.KindPhone); len(got) != 2 {
		t.Errorf("expected two phone values, got %v", got)
	}
	if turn, ok := l.FirstTurn(extractor.KindPhone); !ok || turn != 1 {
		t.Errorf("FirstTurn = %d, %v", turn, ok)
	}
}

func TestTopicTracker_Anchoring(t *testing.T) {
	var tr TopicTracker
	tr.Update([]extractor.Topic{extractor.TopicOTP, extractor.TopicThreat})
	tr.Update([]extractor.Topic{extractor.TopicUPI, extractor.TopicPayment})

	if !reflect.DeepEqual(tr.Active(), []extractor.Topic{extractor.TopicUPI, extractor.TopicPayment}) {
		t.Errorf("active = %v", tr.Active())
	}
	if !reflect.DeepEqual(tr.Previous(), []extractor.Topic{extractor.TopicOTP, extractor.TopicThreat}) {
		t.Errorf("previous = %v", tr.Previous())
	}

	tr.Update([]extractor.Topic{extractor.TopicUnknown})
	if !tr.IsActive(extractor.TopicUPI) {
		t.Error("unknown message should not clear active topics")
	}

	tr.Update([]extractor.Topic{extractor.TopicOTP})
	if !reflect.DeepEqual(tr.Previous(), []extractor.Topic{extractor.TopicThreat, extractor.TopicUPI, extractor.TopicPayment}) {
		t.Errorf("reactivated topic should leave previous, got %v", tr.Previous())
	}
	if tr.IsActive(extractor.TopicUPI) {
		t.Error("superseded topic still active")
	}
}

func TestEmotionForTurn(t *testing.T) {
	tests := []struct {
		turn int
		want Emotion
	}{
		{1, HighAnxiety}, {3, HighAnxiety},
		{4, TechnicalConfusion}, {7, TechnicalConfusion},
		{8, Frustration}, {10, Frustration},
		{11, Suspicion}, {40, Suspicion},
	}
	for _, tt := range tests {
		if got := EmotionForTurn(tt.turn); got != tt.want {
			t.Errorf("EmotionForTurn(%d) = %s, want %s", tt.turn, got, tt.want)
		}
	}
}

// Turn counter and emotional state: +1 per message, thresholds at 4, 8, 11.
func TestSession_TurnMonotonicity(t *testing.T) {
	s := newTestSession("s1")
	order := map[Emotion]int{HighAnxiety: 0, TechnicalConfusion: 1, Frustration: 2, Suspicion: 3}
	prev := HighAnxiety
	for i := 1; i <= 14; i++ {
		in := s.Begin("please respond", time.Unix(int64(i), 0))
		if in.Number != i || s.Turn != i {
			t.Fatalf("message %d produced turn %d", i, s.Turn)
		}
		if s.Emotion != EmotionForTurn(i) {
			t.Errorf("turn %d: emotion %s, want %s", i, s.Emotion, EmotionForTurn(i))
		}
		if order[s.Emotion] < order[prev] {
			t.Errorf("turn %d: emotion regressed from %s to %s", i, prev, s.Emotion)
		}
		prev = s.Emotion
		s.Complete("ok then", time.Unix(int64(i), 0))
	}

	want := []EmotionChange{
		{0, HighAnxiety},
		{4, TechnicalConfusion},
		{8, Frustration},
		{11, Suspicion},
	}
	if !reflect.DeepEqual(s.EmotionHistory, want) {
		t.Errorf("history = %v, want %v", s.EmotionHistory, want)
	}
	if !s.NeedsSentimentShift() {
		t.Error("expected sentiment shift after turn 8")
	}
}

func TestSession_OpeningMessage(t *testing.T) {
	s := newTestSession("scenario-a")
	in := s.Begin("Send OTP to verify your account, URGENT", time.Now())

	if s.Emotion != HighAnxiety {
		t.Errorf("expected high_anxiety, got %s", s.Emotion)
	}
	if !in.Facts.Empty() || len(s.Ledger.Entries()) != 0 {
		t.Errorf("expected no facts, got %+v", in.Facts)
	}
	if !reflect.DeepEqual(s.Ledger.Missing(), extractor.RequiredKinds) {
		t.Errorf("Missing() = %v, want all kinds", s.Ledger.Missing())
	}
	if s.Persona != PersonaElderly {
		t.Errorf("expected elderly persona for an OTP scam, got %s", s.Persona)
	}
	if s.PaymentIntroduced {
		t.Error("payment was not introduced")
	}
}

func TestSession_RepeatedFact(t *testing.T) {
	s := newTestSession("p1")
	for i := 0; i < 4; i++ {
		in := s.Begin("Transfer to account 1234567890123456 now", time.Now())
		if i == 0 && len(in.NewFacts) != 1 {
			t.Errorf("first turn should report one new fact, got %v", in.NewFacts)
		}
		if i > 0 && len(in.NewFacts) != 0 {
			t.Errorf("turn %d reported repeated fact as new: %v", s.Turn, in.NewFacts)
		}
	}
	if got := s.Ledger.Values(extractor.KindBankAccount); len(got) != 1 {
		t.Errorf("expected one account entry, got %v", got)
	}
	if s.Ledger.Entries()[0].Turn != 1 {
		t.Errorf("expected first-seen turn 1, got %d", s.Ledger.Entries()[0].Turn)
	}
	if !s.PaymentIntroduced {
		t.Error("transfer wording should introduce payment")
	}
}

func TestDetectContradiction(t *testing.T) {
	c := DetectContradiction("This is HDFC calling on behalf of the income tax department")
	if c == nil {
		t.Fatal("expected a contradiction")
	}
	if c.Type != ContradictionBankVsTax || c.Subject != "HDFC" {
		t.Errorf("unexpected contradiction %+v", c)
	}
	if DetectContradiction("This is HDFC bank fraud desk") != nil {
		t.Error("bank alone is not a contradiction")
	}
}

func TestSession_RecordsContradiction(t *testing.T) {
	s := newTestSession("d")
	in := s.Begin("I am from SBI and the IT department has flagged you", time.Now())
	if in.Contradiction == nil || len(s.Contradictions) != 1 {
		t.Fatal("expected contradiction to be recorded")
	}
	if s.Contradictions[0].Turn != 1 {
		t.Errorf("expected turn 1, got %d", s.Contradictions[0].Turn)
	}
}

func TestSelectPersona(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Update your KYC now", PersonaElderly},
		{"Police have registered a case against you", PersonaCautious},
		{"Congratulations, you are the lottery winner", PersonaNaive},
		{"Your account is blocked", PersonaElderly},
		{"hello", PersonaNaive},
	}
	for _, tt := range tests {
		if got := SelectPersona(tt.text); got != tt.want {
			t.Errorf("SelectPersona(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestLinkModeOf(t *testing.T) {
	if got := LinkModeOf("That link keeps loading"); got != LinkLoading {
		t.Errorf("expected loading, got %q", got)
	}
	if got := LinkModeOf("The website shows an error page"); got != LinkError {
		t.Errorf("expected error, got %q", got)
	}
	if got := LinkModeOf("The OTP shows an error"); got != "" {
		t.Errorf("expected no mode without link wording, got %q", got)
	}
}

func TestChooseLine(t *testing.T) {
	s := newTestSession("lines")
	pool := []string{"a", "b", "c"}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		s.Turn = i + 1
		line := s.ChooseLine(pool, nil)
		if seen[line] {
			t.Fatalf("line %q chosen twice before exhaustion", line)
		}
		seen[line] = true
		s.MarkStall(line)
	}

	// Every line used: fall back to the least recently used.
	var oldest string
	for line, turn := range s.StallUses {
		if turn == 1 {
			oldest = line
		}
	}
	if got := s.ChooseLine(pool, nil); got != oldest {
		t.Errorf("expected LRU line %q, got %q", oldest, got)
	}

	if got := s.ChooseLine(nil, nil); got != "" {
		t.Errorf("empty pool should give empty line, got %q", got)
	}
}

func TestChooseAck_NoReuseUntilExhausted(t *testing.T) {
	s := newTestSession("acks")
	pool := []string{"x {tail},", "y {tail},", "z {tail},"}
	seen := map[string]bool{}
	for i := 0; i < len(pool); i++ {
		s.Turn = i + 1
		a := s.ChooseAck(pool)
		if seen[a] {
			t.Fatalf("ack %q reused", a)
		}
		seen[a] = true
	}
	s.Turn = 4
	if a := s.ChooseAck(pool); a == "" {
		t.Error("exhausted pool should still yield an ack")
	}
}

func TestSession_Resume(t *testing.T) {
	s := newTestSession("resume")
	s.Resume([]Message{
		{Sender: Counterpart, Text: "Transfer the fee to 1234567890123456 today."},
		{Sender: Agent, Text: "Okay, I will transfer to 1234567890123456 now."},
		{Sender: Counterpart, Text: "Share the OTP you received."},
		{Sender: Agent, Text: "Which OTP, the one from the bank?"},
	}, time.Unix(0, 0))

	if s.Turn != 2 {
		t.Errorf("Turn = %d, want 2", s.Turn)
	}
	if s.Echo.Allowed("1234567890123456") {
		t.Error("account already echoed in full should not be allowed again")
	}
	if !s.Mirrored[CleanValue("1234567890123456")] {
		t.Error("account played back before should count as mirrored")
	}
	if !s.PaymentIntroduced {
		t.Error("payment talk from the transcript should carry over")
	}
	if !s.Topics.IsActive(extractor.TopicOTP) {
		t.Errorf("active topics = %v, want otp", s.Topics.Active())
	}
	if got := len(s.Similarity.Responses()); got != 2 {
		t.Errorf("tracked replies = %d, want 2", got)
	}
}
