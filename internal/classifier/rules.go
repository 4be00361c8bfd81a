package classifier

import (
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

type weighted struct {
	pattern *regexp.Regexp
	weight  float64
}

type keyword struct {
	text   string
	weight float64
}

var scamKeywords = []keyword{
	{"urgent", 0.3}, {"immediately", 0.3}, {"suspended", 0.4}, {"blocked", 0.4},
	{"verify now", 0.5}, {"action required", 0.4}, {"limited time", 0.3},
	{"expires today", 0.4}, {"last chance", 0.3}, {"hurry", 0.3},

	{"legal action", 0.5}, {"arrest", 0.6}, {"police", 0.4}, {"court", 0.4},
	{"lawsuit", 0.5}, {"warrant", 0.6}, {"penalty", 0.4}, {"fine", 0.3},

	{"send money", 0.6}, {"transfer", 0.3}, {"payment", 0.3}, {"upi", 0.4},
	{"bank account", 0.4}, {"account number", 0.5}, {"otp", 0.6}, {"pin", 0.5},
	{"cvv", 0.6}, {"card number", 0.5},

	{"congratulations", 0.3}, {"winner", 0.4}, {"lottery", 0.6}, {"prize", 0.4},
	{"reward", 0.3}, {"free gift", 0.5}, {"cashback", 0.3},

	{"work from home", 0.3}, {"easy money", 0.5}, {"part time job", 0.3},
	{"daily earning", 0.4}, {"investment opportunity", 0.5},

	{"invest", 0.4}, {"profit", 0.4}, {"earning", 0.3}, {"guaranteed return", 0.6},
	{"double your money", 0.7}, {"high returns", 0.5}, {"scheme", 0.3},
	{"register", 0.2}, {"limited slots", 0.4},

	{"kyc", 0.4}, {"verify identity", 0.4}, {"update details", 0.4},
	{"confirm account", 0.4}, {"link aadhaar", 0.5}, {"pan card", 0.3},
}

var (
	urlPattern        = regexp.MustCompile(`(?i)https?://[^\s<>"]+|www\.[^\s<>"]+`)
	suspiciousURLs    = regexp.MustCompile(`(?i)bit\.ly|tinyurl\.com|\bt\.co\b|goo\.gl|shorturl|cutt\.ly|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}|\.xyz|\.top|\.click|\.loan|secure.*login|verify.*account|update.*payment`)
	handleRequest     = regexp.MustCompile(`(?i)\b[a-z0-9._-]+@[a-z0-9.-]+\b`)
	requestWords      = regexp.MustCompile(`(?i)send|share|give|provide|transfer`)
	accountNumberLike = regexp.MustCompile(`\b\d{9,18}\b`)
)

type financialCheck struct {
	kind    string
	pattern *regexp.Regexp
	weight  float64
}

var financialChecks = []financialCheck{
	{"otp_request", regexp.MustCompile(`(?i)\botp\b|\bone.?time.?password\b`), 0.6},
	{"cvv_request", regexp.MustCompile(`(?i)\bcvv\b|\bcard.?verification\b`), 0.7},
	{"pin_request", regexp.MustCompile(`(?i)\bpin\b.*\b(?:enter|share|send)\b|\b(?:enter|share|send)\b.*\bpin\b`), 0.6},
	{"info_request", regexp.MustCompile(`(?i)\b(?:share|send|give)\b.*\b(?:details|number|info)\b`), 0.3},
}

var urgencyPatterns = []weighted{
	{regexp.MustCompile(`(?i)\b(?:act|do it|respond)\s*(?:now|immediately|fast|quick)\b`), 0.4},
	{regexp.MustCompile(`(?i)\b(?:within|in)\s*\d+\s*(?:hour|minute|day)s?\b`), 0.3},
	{regexp.MustCompile(`(?i)\blast\s*(?:chance|warning|notice)\b`), 0.4},
	{regexp.MustCompile(`(?i)\b(?:expire|expiring|expired)\b`), 0.3},
	{regexp.MustCompile(`(?i)\b(?:urgent|urgently|emergency)\b`), 0.4},
	{regexp.MustCompile(`(?i)\bdon'?t\s*(?:delay|wait|ignore)\b`), 0.3},
}

var threatPatterns = []weighted{
	{regexp.MustCompile(`(?i)\b(?:arrest|arrested|jail|prison)\b`), 0.5},
	{regexp.MustCompile(`(?i)\b(?:legal|court|lawsuit|sue)\s*(?:action|case|notice)\b`), 0.5},
	{regexp.MustCompile(`(?i)\b(?:police|cbi|ed|cyber\s*cell)\b`), 0.4},
	{regexp.MustCompile(`(?i)\b(?:block|blocked|suspend|suspended|freeze|frozen)\b.*\b(?:account|card|number)\b`), 0.5},
	{regexp.MustCompile(`(?i)\b(?:penalty|fine|charge)\b.*(?:\bpay\b|\bamount\b|₹|\$)`), 0.4},
	{regexp.MustCompile(`(?i)\b(?:cancel|terminate|deactivate)\b`), 0.3},
}

// Category caps keep one noisy family from deciding a verdict alone.
const (
	keywordCap   = 0.6
	urlCap       = 0.5
	financialCap = 0.7
	urgencyCap   = 0.5
	threatCap    = 0.6
	escalation   = 0.2
)

// Rules is the pattern-based scorer.
type Rules struct {
	threshold float64
}

// NewRules creates a scorer flagging scores at or above threshold.
func NewRules(threshold float64) *Rules {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Rules{threshold: threshold}
}

// Classify scores text, using the counterpart's earlier messages to spot
// escalating requests.
func (r *Rules) Classify(text string, history []state.Message) Result {
	lower := strings.ToLower(text)
	var inds []Indicator
	total := 0.0

	for _, part := range []func(string, string) ([]Indicator, float64){
		keywordScore, urlScore, financialScore, urgencyScore, threatScore,
	} {
		found, score := part(text, lower)
		inds = append(inds, found...)
		total += score
	}

	if n := escalatingRequests(history); n >= 2 {
		inds = append(inds, Indicator{Type: "pattern", Value: "escalating_requests", Confidence: 0.3})
		total += escalation
	}

	confidence := round2(clamp(total))
	if inds == nil {
		inds = []Indicator{}
	}
	res := Result{
		IsScam:     confidence >= r.threshold,
		Confidence: confidence,
		RiskLevel:  RiskLevel(confidence),
		Indicators: inds,
		Source:     "rules",
	}
	if res.IsScam {
		res.ScamType = scamType(inds)
	}
	return res
}

func keywordScore(_, lower string) ([]Indicator, float64) {
	var inds []Indicator
	score := 0.0
	for _, kw := range scamKeywords {
		if strings.Contains(lower, kw.text) {
			inds = append(inds, Indicator{Type: "keyword", Value: kw.text, Confidence: kw.weight})
			score += kw.weight
		}
	}
	return inds, min(score, keywordCap)
}

func urlScore(text, _ string) ([]Indicator, float64) {
	var inds []Indicator
	score := 0.0
	for _, u := range urlPattern.FindAllString(text, -1) {
		if suspiciousURLs.MatchString(u) {
			inds = append(inds, Indicator{Type: "suspicious_url", Value: u, Confidence: 0.5})
			score += 0.3
			continue
		}
		inds = append(inds, Indicator{Type: "url", Value: u, Confidence: 0.2})
		score += 0.1
	}
	return inds, min(score, urlCap)
}

func financialScore(text, lower string) ([]Indicator, float64) {
	var inds []Indicator
	score := 0.0
	add := func(kind string, weight float64) {
		inds = append(inds, Indicator{Type: kind, Value: kind, Confidence: weight})
		score += weight
	}

	if accountNumberLike.MatchString(text) {
		add("account_number", 0.4)
	}
	for _, loc := range handleRequest.FindAllStringIndex(lower, -1) {
		rest := lower[loc[1]:]
		if strings.Contains(rest, "upi") || strings.Contains(rest, "pay") {
			add("upi_request", 0.5)
			break
		}
	}
	for _, c := range financialChecks {
		if c.pattern.MatchString(text) {
			add(c.kind, c.weight)
		}
	}
	return inds, min(score, financialCap)
}

func urgencyScore(text, _ string) ([]Indicator, float64) {
	return weightedScore("urgency", urgencyPatterns, text, urgencyCap)
}

func threatScore(text, _ string) ([]Indicator, float64) {
	return weightedScore("threat", threatPatterns, text, threatCap)
}

func weightedScore(kind string, patterns []weighted, text string, limit float64) ([]Indicator, float64) {
	var inds []Indicator
	score := 0.0
	for _, w := range patterns {
		if m := w.pattern.FindString(text); m != "" {
			inds = append(inds, Indicator{Type: kind, Value: m, Confidence: w.weight})
			score += w.weight
		}
	}
	return inds, min(score, limit)
}

func escalatingRequests(history []state.Message) int {
	n := 0
	for _, m := range history {
		if m.Sender == state.Counterpart && requestWords.MatchString(m.Text) {
			n++
		}
	}
	return n
}

// scamType picks the most specific type the evidence supports.
func scamType(inds []Indicator) string {
	has := func(kind string) bool {
		for _, i := range inds {
			if i.Type == kind {
				return true
			}
		}
		return false
	}
	keywordHas := func(words ...string) bool {
		for _, i := range inds {
			if i.Type != "keyword" {
				continue
			}
			for _, w := range words {
				if strings.Contains(i.Value, w) {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has("otp_request") || has("cvv_request"):
		return TypePhishing
	case has("threat"):
		return TypeImpersonationThreat
	case keywordHas("lottery", "prize", "winner"):
		return TypeLottery
	case keywordHas("job", "earning"):
		return TypeJob
	case has("suspicious_url"):
		return TypePhishingLink
	case keywordHas("kyc", "verify"):
		return TypeKYCFraud
	default:
		return TypeGeneric
	}
}
