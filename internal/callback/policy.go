package callback

import (
	"strings"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

// DefaultMinTurns is the engagement a scam session needs before it is
// reported.
const DefaultMinTurns = 3

// Policy decides when a session is reported.
//
// A scam session is reported once it reaches MinTurns, or earlier when all
// four report categories are filled. A session reported while some category
// was still empty is reported exactly once more, when all four are present.
type Policy struct {
	MinTurns int
}

// ShouldTrigger applies the policy to a session.
func (p Policy) ShouldTrigger(s *state.Session) bool {
	if !s.Classification.ScamDetected {
		return false
	}
	complete := s.Intel.Complete()
	if !s.Callback.Sent {
		return s.Turn >= p.minTurns() || complete
	}
	return !s.Callback.Complete && complete
}

func (p Policy) minTurns() int {
	if p.MinTurns <= 0 {
		return DefaultMinTurns
	}
	return p.MinTurns
}

// BuildPayload captures the session's current report.
func BuildPayload(s *state.Session) Payload {
	return Payload{
		SessionID:              s.ID,
		ScamDetected:           s.Classification.ScamDetected,
		TotalMessagesExchanged: s.Messages,
		ExtractedIntelligence:  s.Intel.Normalized(),
		AgentNotes:             AgentNotes(s.ObservedTactics, s.Intel, s.Classification.ScamType),
	}
}

var tacticDescriptions = map[string]string{
	"urgency":         "urgency tactics",
	"fear":            "fear/threat tactics",
	"impersonation":   "impersonation",
	"reward":          "fake reward/prize claims",
	"pressure":        "high-pressure tactics",
	"investment":      "investment fraud tactics",
	"payment_request": "payment redirection",
}

// AgentNotes summarizes the counterpart's behaviour, e.g.
// "Scammer used urgency tactics and payment redirection with bank account
// collection. Identified as phishing scam".
func AgentNotes(tactics []string, intel extractor.Intelligence, scamType string) string {
	var parts []string

	if len(tactics) > 0 {
		readable := make([]string, len(tactics))
		for i, t := range tactics {
			if d, ok := tacticDescriptions[t]; ok {
				readable[i] = d
			} else {
				readable[i] = t
			}
		}
		parts = append(parts, "Scammer used "+joinAnd(readable))
	}

	var actions []string
	if len(intel.UPIIDs) > 0 {
		actions = append(actions, "payment redirection via UPI")
	}
	if len(intel.BankAccounts) > 0 {
		actions = append(actions, "bank account collection")
	}
	if len(intel.PhoneNumbers) > 0 {
		actions = append(actions, "phone number extraction")
	}
	if len(intel.PhishingLinks) > 0 {
		actions = append(actions, "phishing link distribution")
	}
	if len(actions) > 0 {
		if len(parts) > 0 {
			parts[0] += " with " + actions[0]
			if len(actions) > 1 {
				parts = append(parts, "Also attempted: "+strings.Join(actions[1:], ", "))
			}
		} else {
			parts = append(parts, "Scammer attempted "+strings.Join(actions, ", "))
		}
	}

	if scamType != "" {
		parts = append(parts, "Identified as "+scamType+" scam")
	}
	if len(parts) == 0 {
		return "Scammer engagement completed"
	}
	return strings.Join(parts, ". ")
}

func joinAnd(items []string) string {
	if len(items) == 1 {
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

// MarkDelivered records a successful report of p on the session.
func MarkDelivered(s *state.Session, p Payload, now time.Time) {
	s.Callback.Sent = true
	s.Callback.Complete = p.ExtractedIntelligence.Complete()
	s.Callback.LastSentAt = now
}
