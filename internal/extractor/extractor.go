package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	phonePattern   = regexp.MustCompile(`\+91[\s-]?\d{10}\b|\b[6-9]\d{9}\b`)
	digitRun       = regexp.MustCompile(`\b\d{9,18}\b`)
	cardPattern    = regexp.MustCompile(`\b\d{4}[\s-]\d{4}[\s-]\d{4}[\s-]\d{4}\b`)
	linkPattern    = regexp.MustCompile(`(?i)https?://[^\s<>"]+|www\.[^\s<>"]+`)
	handlePattern  = regexp.MustCompile(`(?i)([a-z0-9._-]+)@([a-z0-9_-]+)((?:\.[a-z0-9-]+)*)`)
	emailPattern   = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|in|org|net|io)\b`)
	casePattern    = regexp.MustCompile(`(?i)\b(?:case|ref(?:erence)?)(?:\s*(?:number|no|id))?\s*[.:#-]?\s*(?:is\s+)?([a-z0-9][a-z0-9/-]*)`)
	notAccountCtx  = regexp.MustCompile(`(?i)employee\s*id|emp\s*id|staff\s*id|\bid\b|\bcase\b|\bref(?:erence)?\b|complaint|ticket|order`)
	paymentPattern = regexp.MustCompile(`(?i)\b(?:upi|pay|payment|transfer|fee|fine|amount|inr|rupees?|rs)\b|₹`)
)

// accountContextWindow is how far before a digit run we look for words that
// mark it as a non-financial identifier.
const accountContextWindow = 30

var upiHandles = map[string]bool{
	"ybl": true, "paytm": true, "okaxis": true, "okhdfcbank": true, "oksbi": true, "upi": true,
	"apl": true, "axl": true, "ibl": true, "sbi": true, "icici": true, "hdfc": true,
}

var emailDomains = map[string]bool{
	"gmail": true, "yahoo": true, "hotmail": true, "outlook": true, "rediffmail": true, "protonmail": true,
	"mail": true, "email": true, "live": true, "aol": true, "icloud": true, "zoho": true, "yandex": true,
}

// Extract runs every fact matcher over text. It is pure and safe to call
// from anywhere; the per-session ledger and the conversation-wide
// intelligence report both build on it.
func Extract(text string) Facts {
	return Facts{
		Phones:       extractPhones(text),
		UPIs:         extractUPIs(text),
		BankAccounts: extractAccounts(text),
		Links:        extractLinks(text),
		CaseNumbers:  extractCaseNumbers(text),
		Emails:       extractEmails(text),
	}
}

// NormalizePhone returns the canonical +91XXXXXXXXXX form.
func NormalizePhone(raw string) string {
	digits := onlyDigits(raw)
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return "+91" + digits[2:]
	case len(digits) == 10:
		return "+91" + digits
	}
	return strings.TrimSpace(raw)
}

// Domain returns the host part of a link, lowercased.
func Domain(link string) string {
	u := strings.ToLower(strings.TrimSpace(link))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	if i := strings.IndexAny(u, "/?#"); i >= 0 {
		u = u[:i]
	}
	return u
}

// MentionsPayment reports whether text uses money or UPI vocabulary.
func MentionsPayment(text string) bool {
	return paymentPattern.MatchString(text)
}

// IsKnownUPIHandle reports whether handle belongs to a payment provider.
func IsKnownUPIHandle(handle string) bool {
	return upiHandles[strings.ToLower(handle)]
}

func extractPhones(text string) []string {
	var out []string
	for _, m := range phonePattern.FindAllString(text, -1) {
		out = appendUnique(out, NormalizePhone(m))
	}
	return out
}

func extractUPIs(text string) []string {
	var out []string
	for _, m := range handlePattern.FindAllStringSubmatch(text, -1) {
		local, handle, tail := m[1], strings.ToLower(m[2]), m[3]
		if len(local) < 2 {
			continue
		}
		// A dotted tail means a mail domain, never a payment handle.
		if tail != "" {
			continue
		}
		if !IsKnownUPIHandle(handle) && emailDomains[handle] {
			continue
		}
		out = appendUnique(out, strings.ToLower(local+"@"+handle))
	}
	return out
}

func extractAccounts(text string) []string {
	var out []string
	lower := strings.ToLower(text)

	for _, loc := range cardPattern.FindAllStringIndex(text, -1) {
		if accountContextExcluded(lower, loc[0]) {
			continue
		}
		out = appendUnique(out, onlyDigits(text[loc[0]:loc[1]]))
	}

	for _, loc := range digitRun.FindAllStringIndex(text, -1) {
		run := text[loc[0]:loc[1]]
		if len(run) == 10 && strings.ContainsRune("6789", rune(run[0])) {
			continue
		}
		if loc[0] > 0 && text[loc[0]-1] == '+' {
			continue
		}
		if accountContextExcluded(lower, loc[0]) {
			continue
		}
		out = appendUnique(out, run)
	}
	return out
}

func accountContextExcluded(lower string, start int) bool {
	from := start - accountContextWindow
	if from < 0 {
		from = 0
	}
	return notAccountCtx.MatchString(lower[from:start])
}

func extractLinks(text string) []string {
	var out []string
	for _, m := range linkPattern.FindAllString(text, -1) {
		link := strings.TrimRight(m, `.,;:!?)]'"`)
		if len(link) > 5 {
			out = appendUnique(out, link)
		}
	}
	return out
}

func extractCaseNumbers(text string) []string {
	var out []string
	for _, m := range casePattern.FindAllStringSubmatch(text, -1) {
		code := strings.TrimRight(m[1], "/-")
		if !strings.ContainsFunc(code, unicode.IsDigit) {
			continue
		}
		out = appendUnique(out, strings.ToUpper(code))
	}
	return out
}

func extractEmails(text string) []string {
	var out []string
	for _, m := range emailPattern.FindAllString(text, -1) {
		out = appendUnique(out, strings.ToLower(m))
	}
	return out
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

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
