package state

import "regexp"

// Persona names.
const (
	PersonaNaive    = "naive"
	PersonaCautious = "cautious"
	PersonaElderly  = "elderly"
)

type personaRule struct {
	persona string
	pattern *regexp.Regexp
}

// First match wins.
var personaRules = []personaRule{
	{PersonaElderly, regexp.MustCompile(`(?i)\b(?:otp|kyc|app|download|install|anydesk|teamviewer|link|click|update|verify|verification|authenticate|login|password|software|application|browser|website)\b`)},
	{PersonaCautious, regexp.MustCompile(`(?i)\b(?:police|court|legal|arrest|warrant|government|rbi|sebi|tax|investigation|complaint|case|violation|penalty|fine|officer|inspector|department|ministry|authority)\b`)},
	{PersonaNaive, regexp.MustCompile(`(?i)\b(?:congratulations|winner|lottery|prize|reward|gift|bonus|invest|profit|returns|earning|double|guaranteed|scheme|offer|discount|cashback|refund|selected|chosen)\b`)},
	{PersonaElderly, regexp.MustCompile(`(?i)\b(?:bank|account|blocked|suspended|frozen|deactivated|transaction|transfer|payment|upi|credit|debit)\b`)},
}

// SelectPersona picks the persona best suited to the counterpart's opening
// message: technical scams meet a confused elderly person, authority scams a
// cautious one, and reward scams a naive one.
func SelectPersona(opening string) string {
	for _, r := range personaRules {
		if r.pattern.MatchString(opening) {
			return r.persona
		}
	}
	return PersonaNaive
}
