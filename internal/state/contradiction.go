package state

import (
	"regexp"
	"strings"
)

// ContradictionBankVsTax is a counterpart claiming to be both a bank and the
// tax authority.
const ContradictionBankVsTax = "bank_vs_tax"

// Contradiction is an inconsistency in the counterpart's claims.
type Contradiction struct {
	Type string `json:"type"`
	Turn int    `json:"turn"`
	// Subject is the institution the claim hinges on, e.g. the bank name.
	Subject string `json:"subject"`
}

var (
	bankNames  = regexp.MustCompile(`(?i)\b(hdfc|sbi|icici|axis|kotak|pnb|canara|yes bank|bank of baroda|state bank)\b`)
	taxWording = regexp.MustCompile(`(?i)\bincome tax\b|\bit department\b|\btax department\b`)
)

// DetectContradiction looks for claims in text that cannot both be true.
func DetectContradiction(text string) *Contradiction {
	bank := bankNames.FindString(text)
	if bank != "" && taxWording.MatchString(text) {
		return &Contradiction{Type: ContradictionBankVsTax, Subject: strings.ToUpper(bank)}
	}
	return nil
}
