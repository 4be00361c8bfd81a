package guardrail

import (
	"github.com/MikeSquared-Agency/honeypot/internal/phrases"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
	"github.com/MikeSquared-Agency/honeypot/internal/tactics"
)

// Suggestion is the per-turn advice handed to the reply generator.
type Suggestion struct {
	Tactic        tactics.Record `json:"tactic"`
	Mirror        string         `json:"mirror,omitempty"`
	Bait          string         `json:"bait,omitempty"`
	Annoyance     string         `json:"annoyance,omitempty"`
	Contradiction string         `json:"contradiction,omitempty"`
}

// Suggest picks this turn's stalling tactic and the mirror, bait and tone
// hints for the prompt. Only the tactic rotation is recorded; the other
// hints are recorded when the guardrail emits them.
func (p *Pipeline) Suggest(s *state.Session, in state.TurnInput) Suggestion {
	sg := Suggestion{Tactic: s.Tactics.Next()}

	for _, f := range in.NewFacts {
		if s.Mirrored[state.CleanValue(f.Value)] {
			continue
		}
		if pool := p.book.Mirror[string(f.Kind)]; len(pool) > 0 {
			sg.Mirror = phrases.Fill(pool[s.Rand().IntN(len(pool))], f.Value)
			break
		}
	}

	sg.Bait = p.baitLine(s, p.baitOrder(s))

	if s.NeedsSentimentShift() && len(p.book.Annoyances) > 0 {
		sg.Annoyance = p.book.Annoyances[s.Rand().IntN(len(p.book.Annoyances))]
	}

	if c := in.Contradiction; c != nil {
		if tmpl := p.book.Contradictions[c.Type]; tmpl != "" {
			sg.Contradiction = phrases.Fill(tmpl, c.Subject)
		}
	}
	return sg
}

// Synthesize builds a local candidate for turns where generation failed.
// The candidate still goes through Finalize.
func (p *Pipeline) Synthesize(s *state.Session, in state.TurnInput) string {
	if in.Contradiction != nil {
		if tmpl := p.book.Contradictions[in.Contradiction.Type]; tmpl != "" {
			return phrases.Fill(tmpl, in.Contradiction.Subject)
		}
	}
	return p.fallback(s, s.PaymentIntroduced)
}
