// Package classifier decides whether a conversation is a scam. Rules is a
// weighted pattern scorer that needs nothing external; LLM asks the model
// and parses its JSON leniently; Hybrid prefers the model and falls back to
// the rules.
package classifier

import "math"

// Scam types.
const (
	TypePhishing            = "phishing"
	TypeImpersonationThreat = "impersonation_threat"
	TypeLottery             = "lottery_scam"
	TypeJob                 = "job_scam"
	TypePhishingLink        = "phishing_link"
	TypeKYCFraud            = "kyc_fraud"
	TypeGeneric             = "generic_scam"
	TypeBenign              = "benign"
)

// Risk levels.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// DefaultThreshold is the confidence at which a message counts as a scam.
const DefaultThreshold = 0.4

// Indicator is one piece of evidence behind a verdict.
type Indicator struct {
	Type       string  `json:"indicator_type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context,omitempty"`
}

// Result is a classification verdict.
type Result struct {
	IsScam     bool        `json:"is_scam"`
	Confidence float64     `json:"confidence"`
	ScamType   string      `json:"scam_type,omitempty"`
	RiskLevel  string      `json:"risk_level"`
	Indicators []Indicator `json:"indicators"`
	Source     string      `json:"source"`
}

// RiskLevel maps a confidence to a risk level.
func RiskLevel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return RiskCritical
	case confidence >= 0.6:
		return RiskHigh
	case confidence >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

func clamp(score float64) float64 {
	if math.IsNaN(score) || score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
