package extractor

import (
	"regexp"
	"strings"
)

type topicMatcher struct {
	topic   Topic
	pattern *regexp.Regexp
}

// Order is the reporting order of DetectTopics.
var topicMatchers = []topicMatcher{
	{TopicOTP, regexp.MustCompile(`\botp\b|\bone.*time.*pass|\bcode\b`)},
	{TopicUPI, regexp.MustCompile(`\bupi\b`)},
	{TopicBankAccount, regexp.MustCompile(`\baccount.*number\b|\bbank.*account\b|\baccount no\b`)},
	{TopicLink, regexp.MustCompile(`https?://|www\.|\.com\b|\bwebsite\b|\blink\b|\burl\b`)},
	{TopicPhone, regexp.MustCompile(`\bphone\b|\bnumber\b|\bcall.*back\b|\bmobile\b`)},
	{TopicCaseNumber, regexp.MustCompile(`\bcase.*(?:number|id|no)\b|\breference.*number\b|\bref\b`)},
	{TopicThreat, regexp.MustCompile(`\bthreat|\bblock|\bfrozen\b|\bfreeze\b|\barrest|\bpolice\b|\bsuspend`)},
	{TopicPayment, regexp.MustCompile(`\bpay\b|\bpayment\b|\btransfer\b|\bfee\b|\bfine\b|\bamount\b|\binr\b|\brupees?\b|₹`)},
	{TopicVerification, regexp.MustCompile(`\bverif|\bconfirm|\bidentif|\bkyc\b`)},
}

// DetectTopics classifies text into every matching topic. Text with no
// match yields the single sentinel TopicUnknown.
func DetectTopics(text string) []Topic {
	lower := strings.ToLower(text)
	var topics []Topic
	for _, m := range topicMatchers {
		if m.pattern.MatchString(lower) {
			topics = append(topics, m.topic)
		}
	}
	if len(topics) == 0 {
		return []Topic{TopicUnknown}
	}
	return topics
}

var suspiciousKeywords = []string{
	"urgent", "immediately", "verify now", "account blocked", "suspended",
	"otp", "pin", "cvv", "password", "bank", "transfer", "payment",
	"verify", "kyc", "blocked", "arrest", "police",
	"legal action", "court", "complaint", "fine", "penalty",
	"lottery", "prize", "winner", "reward", "cashback", "refund",
	"click here", "download", "install", "anydesk", "teamviewer",
	"invest", "profit", "earning", "scheme", "offer", "limited time",
	"last chance", "expire", "deadline", "today only",
}

// Keywords returns the suspicious keywords present in text, in list order.
func Keywords(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}

type tacticMatcher struct {
	name    string
	pattern *regexp.Regexp
}

var tacticMatchers = []tacticMatcher{
	{"urgency", regexp.MustCompile(`(?i)\b(?:urgent|immediately|right now|within\s*\d+|expire|deadline|hurry)\b`)},
	{"fear", regexp.MustCompile(`(?i)\b(?:arrest|legal|police|court|block|blocked|suspend|suspended|freeze|penalty|action)\b`)},
	{"impersonation", regexp.MustCompile(`(?i)\b(?:bank|rbi|cbi|government|customer\s*care|amazon|flipkart|microsoft|support)\b`)},
	{"reward", regexp.MustCompile(`(?i)\b(?:won|winner|prize|lottery|cashback|reward|gift|congratulations)\b`)},
	{"pressure", regexp.MustCompile(`(?i)\b(?:last chance|final|today only|limited time|limited slots|now or never)\b`)},
	{"investment", regexp.MustCompile(`(?i)\b(?:invest|profit|earning|double|guaranteed|returns|scheme)\b`)},
	{"payment_request", regexp.MustCompile(`(?i)\b(?:transfer|send|pay|upi|account|otp|pin|cvv)\b`)},
}

// Tactics names the pressure tactics the counterpart uses in text.
func Tactics(text string) []string {
	var out []string
	for _, m := range tacticMatchers {
		if m.pattern.MatchString(text) {
			out = append(out, m.name)
		}
	}
	return out
}
