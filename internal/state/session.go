package state

import (
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/similarity"
	"github.com/MikeSquared-Agency/honeypot/internal/tactics"
)

// Link failure modes a reply can commit to.
const (
	LinkLoading = "loading"
	LinkError   = "error"
)

// Options configures new sessions.
type Options struct {
	Similarity similarity.Config
	Tactics    map[tactics.Category][]string
}

// Classification is the latest verdict on the conversation.
type Classification struct {
	ScamDetected bool    `json:"scam_detected"`
	ScamType     string  `json:"scam_type,omitempty"`
	Confidence   float64 `json:"confidence"`
	RiskLevel    string  `json:"risk_level,omitempty"`
}

// CallbackStatus tracks the final-result reports sent for a session.
type CallbackStatus struct {
	Sent       bool      `json:"sent"`
	Complete   bool      `json:"complete"`
	Attempts   int       `json:"attempts"`
	LastSentAt time.Time `json:"last_sent_at,omitzero"`
	// AlertRef identifies the operator alert for this session, so later
	// reports can follow up on it.
	AlertRef string `json:"alert_ref,omitempty"`
}

// Session is the per-conversation state. A session is driven by one turn at
// a time; the Registry serializes access.
type Session struct {
	ID             string
	Turn           int
	Emotion        Emotion
	EmotionHistory []EmotionChange
	Persona        string

	Ledger     *Ledger
	Topics     *TopicTracker
	Echo       *EchoTracker
	Similarity *similarity.Detector
	Tactics    *tactics.Scheduler

	Mirrored map[string]bool
	// StallUses maps a fallback line to the turn it was last emitted.
	StallUses map[string]int
	// AckUses maps an acknowledgment template to the turn it was last used.
	AckUses     map[string]int
	UsedExcuses []string

	PaymentIntroduced bool
	LastAskedCase     bool
	CaseAsks          int
	LinkMode          string

	Contradictions  []Contradiction
	ObservedTactics []string
	Classification  Classification
	Intel           extractor.Intelligence
	Callback        CallbackStatus
	Messages        int

	CreatedAt time.Time
	UpdatedAt time.Time

	rng *rand.Rand
}

// NewSession allocates fresh state for a conversation.
func NewSession(id string, opts Options, rng *rand.Rand, now time.Time) *Session {
	return &Session{
		ID:             id,
		Emotion:        HighAnxiety,
		EmotionHistory: []EmotionChange{{Turn: 0, Emotion: HighAnxiety}},
		Ledger:         NewLedger(),
		Topics:         &TopicTracker{},
		Echo:           NewEchoTracker(),
		Similarity:     similarity.NewDetector(opts.Similarity),
		Tactics:        tactics.NewScheduler(opts.Tactics, rng),
		Mirrored:       make(map[string]bool),
		StallUses:      make(map[string]int),
		AckUses:        make(map[string]int),
		CreatedAt:      now,
		UpdatedAt:      now,
		rng:            rng,
	}
}

// Rand is the session's random source.
func (s *Session) Rand() *rand.Rand { return s.rng }

// TurnInput is what the state manager learned from one counterpart message.
type TurnInput struct {
	Number        int
	Text          string
	Facts         extractor.Facts
	NewKinds      []extractor.Kind
	NewFacts      []extractor.Fact
	Topics        []extractor.Topic
	Contradiction *Contradiction
}

// Begin accepts a counterpart message: the turn counter advances by one and
// the ledger, topics, tone and payment flag are brought up to date.
func (s *Session) Begin(text string, now time.Time) TurnInput {
	s.Turn++
	s.UpdatedAt = now
	s.progressEmotion()

	if s.Turn == 1 && s.Persona == "" {
		s.Persona = SelectPersona(text)
	}

	in := TurnInput{Number: s.Turn, Text: text, Facts: extractor.Extract(text)}
	for _, f := range in.Facts.All() {
		if _, seen := s.Ledger.seen[f.Value]; !seen {
			in.NewFacts = append(in.NewFacts, f)
		}
	}
	in.NewKinds = s.Ledger.RecordFacts(in.Facts, s.Turn)

	in.Topics = extractor.DetectTopics(text)
	s.Topics.Update(in.Topics)

	if extractor.MentionsPayment(text) || len(in.Facts.UPIs) > 0 {
		s.PaymentIntroduced = true
	}

	if c := DetectContradiction(text); c != nil {
		c.Turn = s.Turn
		s.Contradictions = append(s.Contradictions, *c)
		in.Contradiction = c
	}

	for _, t := range extractor.Tactics(text) {
		if !containsString(s.ObservedTactics, t) {
			s.ObservedTactics = append(s.ObservedTactics, t)
		}
	}
	return in
}

var (
	caseAskPattern = regexp.MustCompile(`(?i)\b(?:case|reference)\b`)
	linkWording    = regexp.MustCompile(`(?i)\blink\b|\bwebsite\b|\bsite\b|\bpage\b`)
	loadingWording = regexp.MustCompile(`(?i)\bloading\b|\bnot opening\b|\bwon'?t open\b`)
	errorWording   = regexp.MustCompile(`(?i)\berror\b|\b404\b|\binvalid\b`)
)

// LinkModeOf returns the link failure mode a reply commits to, if any.
func LinkModeOf(reply string) string {
	if !linkWording.MatchString(reply) {
		return ""
	}
	if loadingWording.MatchString(reply) {
		return LinkLoading
	}
	if errorWording.MatchString(reply) {
		return LinkError
	}
	return ""
}

// Complete records the reply emitted for the current turn.
func (s *Session) Complete(reply string, now time.Time) {
	s.Similarity.Track(reply)
	if mode := LinkModeOf(reply); mode != "" {
		s.LinkMode = mode
	}
	s.LastAskedCase = caseAskPattern.MatchString(reply)
	s.UpdatedAt = now
}

// Resume rebuilds a session new to this process from a transcript the caller
// kept. Counterpart messages are accepted as turns and agent messages are
// recorded as replies, including the facts they already played back in full.
func (s *Session) Resume(history []Message, now time.Time) {
	for _, m := range history {
		switch m.Sender {
		case Counterpart:
			s.Begin(m.Text, now)
		case Agent:
			for _, e := range s.Ledger.Entries() {
				if Mentions(m.Text, e.Kind, e.Value) {
					s.Echo.Record(e.Value)
					s.Mirrored[CleanValue(e.Value)] = true
				}
			}
			s.Complete(m.Text, now)
		}
	}
}

// MarkStall records that line was emitted on the current turn.
func (s *Session) MarkStall(line string) {
	s.StallUses[line] = s.Turn
}

// ChooseLine picks a line from pool that has not been emitted before and
// passes accept, in random order. When every acceptable line has been used
// it falls back to the least recently used one, so it only returns "" for
// an empty pool.
func (s *Session) ChooseLine(pool []string, accept func(string) bool) string {
	if len(pool) == 0 {
		return ""
	}
	order := s.rng.Perm(len(pool))
	for _, i := range order {
		line := pool[i]
		if _, used := s.StallUses[line]; used {
			continue
		}
		if accept == nil || accept(line) {
			return line
		}
	}
	return leastRecentlyUsed(pool, s.StallUses)
}

// ChooseAck picks an acknowledgment template, never one used before unless
// the whole pool is spent.
func (s *Session) ChooseAck(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	var fresh []string
	for _, t := range pool {
		if _, used := s.AckUses[t]; !used {
			fresh = append(fresh, t)
		}
	}
	var chosen string
	if len(fresh) > 0 {
		chosen = fresh[s.rng.IntN(len(fresh))]
	} else {
		chosen = leastRecentlyUsed(pool, s.AckUses)
	}
	s.AckUses[chosen] = s.Turn
	return chosen
}

// ExcuseUsed reports whether a technical excuse was already given.
func (s *Session) ExcuseUsed(key string) bool {
	return containsString(s.UsedExcuses, key)
}

// MarkExcuse records a technical excuse as given.
func (s *Session) MarkExcuse(key string) {
	if !s.ExcuseUsed(key) {
		s.UsedExcuses = append(s.UsedExcuses, key)
	}
}

// leastRecentlyUsed returns the pool line with the oldest recorded use;
// lines never used count as oldest. Ties go to pool order.
func leastRecentlyUsed(pool []string, uses map[string]int) string {
	best := pool[0]
	bestTurn, ok := uses[best]
	if !ok {
		return best
	}
	for _, line := range pool[1:] {
		t, used := uses[line]
		if !used {
			return line
		}
		if t < bestTurn {
			best, bestTurn = line, t
		}
	}
	return best
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
