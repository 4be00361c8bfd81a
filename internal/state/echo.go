package state

import (
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
)

// MaxFullEcho is how many times a fact may appear in full in replies.
const MaxFullEcho = 1

var (
	echoStrip = regexp.MustCompile(`[\s\-+]`)
	digitSpan = regexp.MustCompile(`\+?\d(?:[\s-]?\d)*`)
)

// CleanValue is the key under which echoes of a value are counted.
func CleanValue(value string) string {
	return strings.ToLower(echoStrip.ReplaceAllString(value, ""))
}

// EchoTracker counts full-form appearances of fact values in replies.
type EchoTracker struct {
	counts map[string]int
}

// NewEchoTracker creates an empty tracker.
func NewEchoTracker() *EchoTracker {
	return &EchoTracker{counts: make(map[string]int)}
}

// Count returns how often value has been emitted in full.
func (e *EchoTracker) Count(value string) int {
	return e.counts[CleanValue(value)]
}

// Allowed reports whether value may still be emitted in full.
func (e *EchoTracker) Allowed(value string) bool {
	return e.Count(value) < MaxFullEcho
}

// Record counts one full-form emission of value.
func (e *EchoTracker) Record(value string) {
	e.counts[CleanValue(value)]++
}

// Counts returns a copy of the echo counts.
func (e *EchoTracker) Counts() map[string]int {
	out := make(map[string]int, len(e.counts))
	for k, v := range e.counts {
		out[k] = v
	}
	return out
}

// Reference is the abbreviated way to mention a fact already echoed.
func Reference(kind extractor.Kind, value string) string {
	switch kind {
	case extractor.KindLink:
		d := extractor.Domain(value)
		if CleanValue(d) == CleanValue(value) || d == "" {
			return "that link"
		}
		return d
	case extractor.KindUPI:
		if i := strings.Index(value, "@"); i >= 0 {
			return "the " + strings.ToLower(value[i:]) + " ID"
		}
	}

	clean := CleanValue(value)
	switch {
	case len(clean) >= 8:
		return "..." + clean[len(clean)-4:]
	case len(clean) >= 4:
		return "ending " + clean[len(clean)-4:]
	}
	return value
}

// fullForm is the digit string whose presence in a reply counts as a full
// echo of a numeric fact.
func fullForm(kind extractor.Kind, value string) string {
	digits := onlyDigits(value)
	if kind == extractor.KindPhone && len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

func numericKind(kind extractor.Kind) bool {
	return kind == extractor.KindPhone || kind == extractor.KindBankAccount
}

// Mentions reports whether reply contains the full form of a fact.
func Mentions(reply string, kind extractor.Kind, value string) bool {
	if numericKind(kind) {
		key := fullForm(kind, value)
		if key == "" {
			return false
		}
		for _, span := range digitSpan.FindAllString(reply, -1) {
			if strings.Contains(onlyDigits(span), key) {
				return true
			}
		}
		return false
	}
	return strings.Contains(CleanValue(reply), CleanValue(value))
}

// Abbreviate rewrites full-form occurrences of a fact in reply to its
// abbreviated reference, leaving the first keep occurrences untouched.
func Abbreviate(reply string, kind extractor.Kind, value string, keep int) string {
	ref := Reference(kind, value)
	seen := 0
	replace := func(match string) string {
		seen++
		if seen <= keep {
			return match
		}
		return ref
	}

	if numericKind(kind) {
		key := fullForm(kind, value)
		if key == "" {
			return reply
		}
		return digitSpan.ReplaceAllStringFunc(reply, func(span string) string {
			if !strings.Contains(onlyDigits(span), key) {
				return span
			}
			return replace(span)
		})
	}
	if strings.TrimSpace(value) == "" {
		return reply
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(value))
	return re.ReplaceAllStringFunc(reply, replace)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
