package responder

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/honeypot/internal/anthropic"
	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/guardrail"
	"github.com/MikeSquared-Agency/honeypot/internal/phrases"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

const (
	recentReplies   = 6
	recentReplyLen  = 170
	historyMessages = 10
	factsPerKind    = 2
)

// Context is everything the prompt is built from for one turn.
type Context struct {
	Session    *state.Session
	Turn       state.TurnInput
	Suggestion guardrail.Suggestion
	History    []state.Message
}

var hardRules = []string{
	"You are a real Indian person replying naturally to someone who contacted you about your bank account.",
	"Keep them talking and get their details, WITHOUT ever revealing suspicion.",
	"",
	"Hard rules:",
	"1) Write 1-2 short sentences only.",
	"2) Never repeat or paraphrase your recent replies (see RECENT REPLIES).",
	"3) React to what they just said: acknowledge their link/number/account if present.",
	"4) Match their urgency with human emotion but stay cooperative.",
	"5) Do NOT bring up payments/UPI/fees unless they mentioned money/UPI/fine/fee first.",
	"6) Do not ask for OTP again and again; ask for alternative verification or written proof.",
	"7) Never use exclamation marks.",
}

// BuildSystemPrompt assembles the instruction block for the model.
func BuildSystemPrompt(book *phrases.Book, pc Context) string {
	s := pc.Session
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	for _, r := range hardRules {
		line("%s", r)
	}
	if desc := book.Personas[s.Persona]; desc != "" {
		line("")
		line("PERSONA: %s", desc)
	}

	line("")
	line("EMOTIONAL STATE:")
	line("- Level: %s", strings.ReplaceAll(string(s.Emotion), "_", " "))
	if d := book.Directives[string(s.Emotion)]; d != "" {
		line("- %s", d)
	}
	if s.NeedsSentimentShift() && pc.Suggestion.Annoyance != "" {
		line("- SENTIMENT SHIFT (turn %d): %s", s.Turn, phrases.Fill(book.SentimentShift, pc.Suggestion.Annoyance))
	}

	missing := s.Ledger.Missing()
	line("")
	line("CONVERSATION STATE:")
	line("- Turn: %d", s.Turn)
	line("- Fact categories obtained: %s", orNone(kindNames(obtained(missing))))
	line("- Missing fact types: %s", orNone(kindNames(missing)))
	if s.Classification.ScamType != "" {
		line("- Scam type (for guidance only): %s", s.Classification.ScamType)
	}

	if c := pc.Turn.Contradiction; c != nil {
		line("")
		line("CONTRADICTION DETECTED:")
		line("- Type: %s", c.Type)
		if pc.Suggestion.Contradiction != "" {
			line("- Response: %s", pc.Suggestion.Contradiction)
		}
	}

	if collected := collectedIntel(s.Intel); len(collected) > 0 {
		line("")
		line("COLLECTED INTEL (do not ask again): %s", strings.Join(collected, ", "))
	}

	if !pc.Turn.Facts.Empty() {
		line("")
		line("FACTS THEY JUST SENT (acknowledge at least one):")
		for _, k := range extractor.RequiredKinds {
			values := pc.Turn.Facts.Values(k)
			if len(values) > factsPerKind {
				values = values[:factsPerKind]
			}
			if len(values) > 0 {
				line("- %s: %s", k, strings.Join(values, ", "))
			}
		}
	}

	line("")
	line("YOU MUST DO THIS NEXT MOVE:")
	if t := pc.Suggestion.Tactic.Text; t != "" {
		line("- %s", t)
	} else {
		line("- Stay cooperative but worried; ask for the official customer care number and website to verify.")
	}
	if m := pc.Suggestion.Mirror; m != "" {
		line("- Play their detail back with doubt, for example: %s", m)
	}
	if bait := pc.Suggestion.Bait; bait != "" {
		line("- If it fits, nudge them with: %s", bait)
	}

	if !s.PaymentIntroduced {
		line("")
		line("PAYMENT/UPI GUARDRAIL: They did NOT bring up payment yet. Do not ask for UPI/fees/verification amount.")
	}

	if replies := s.Similarity.Responses(); len(replies) > 0 {
		if len(replies) > recentReplies {
			replies = replies[len(replies)-recentReplies:]
		}
		line("")
		line("RECENT REPLIES (do NOT repeat or rephrase):")
		for _, r := range replies {
			line("- %s", clip(strings.Join(strings.Fields(r), " "), recentReplyLen))
		}
	}
	return strings.TrimSpace(b.String())
}

// BuildMessages converts the conversation into alternating API turns ending
// with the counterpart's latest message.
func BuildMessages(history []state.Message, latest string) []anthropic.Message {
	if len(history) > historyMessages {
		history = history[len(history)-historyMessages:]
	}
	var out []anthropic.Message
	add := func(role, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n" + text
			return
		}
		out = append(out, anthropic.Message{Role: role, Content: text})
	}
	for _, m := range history {
		role := anthropic.RoleUser
		if m.Sender == state.Agent {
			role = anthropic.RoleAssistant
		}
		if role == anthropic.RoleAssistant && len(out) == 0 {
			continue
		}
		add(role, m.Text)
	}
	add(anthropic.RoleUser, latest)
	if len(out) == 0 {
		out = append(out, anthropic.Message{Role: anthropic.RoleUser, Content: "(no message)"})
	}
	return out
}

func obtained(missing []extractor.Kind) []extractor.Kind {
	var out []extractor.Kind
	for _, k := range extractor.RequiredKinds {
		found := false
		for _, m := range missing {
			if m == k {
				found = true
				break
			}
		}
		if !found {
			out = append(out, k)
		}
	}
	return out
}

func kindNames(kinds []extractor.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func collectedIntel(i extractor.Intelligence) []string {
	var out []string
	if len(i.PhoneNumbers) > 0 {
		out = append(out, "Phone: "+i.PhoneNumbers[0])
	}
	if len(i.UPIIDs) > 0 {
		out = append(out, "UPI: "+i.UPIIDs[0])
	}
	if len(i.BankAccounts) > 0 {
		out = append(out, "BankAcct: "+i.BankAccounts[0])
	}
	if len(i.PhishingLinks) > 0 {
		out = append(out, "Link/Email: "+i.PhishingLinks[0])
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "none yet"
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
