package guardrail

import "regexp"

var (
	paymentVocab   = regexp.MustCompile(`(?i)\bupi\b|\bverification amount\b|\bpay\b|\bpayment\b|\bfee\b|\btransfer\b`)
	linkVocab      = regexp.MustCompile(`(?i)\blink\b|\bwebsite\b`)
	linkAction     = regexp.MustCompile(`(?i)\b(?:open|opened|opening|click|clicked|loading|not opening|error)\b`)
	caseMention    = regexp.MustCompile(`(?i)\b(?:case|reference|ref)\b`)
	upiLike        = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9_-]+`)
	physicalExcuse = regexp.MustCompile(`(?i)\bspill(?:ed|t)?\b|\b(?:tea|water|coffee|juice) (?:on|over|into)\b|\bcrack(?:ed|s)?\b|\bscreen (?:broke|is broken|smashed)\b|\bpower (?:cut|went out|outage|is out|failure)\b|\blights? went out\b|\bdropped (?:my |the )?(?:phone|mobile|device)\b|\bphone fell\b|\bkitchen sink\b|\bsparked\b`)
	ohNo           = regexp.MustCompile(`(?i)\boh\s+no\b[,!.;:\s]*`)
	myGod          = regexp.MustCompile(`(?i)\bmy\s+god[,!.;:\s]*(?:this is too much[,!.;:\s]*)?`)
	leadingPunct   = regexp.MustCompile(`^[,!.;:\s]+`)
)

// techExcuse is a device or network excuse that sounds scripted if used
// twice in one conversation.
type techExcuse struct {
	key     string
	pattern *regexp.Regexp
}

var techExcuses = []techExcuse{
	{"app_crash", regexp.MustCompile(`(?i)\bapp (?:keeps |is )?(?:crash|closing|hang|freez)`)},
	{"network", regexp.MustCompile(`(?i)\bnetwork\b|\bno signal\b|\bsignal is (?:weak|bad)\b|\binternet\b`)},
	{"server", regexp.MustCompile(`(?i)\bserver\b`)},
	{"battery", regexp.MustCompile(`(?i)\bbattery\b|\bcharger\b`)},
	{"app_update", regexp.MustCompile(`(?i)\bapp (?:needs|is asking for|wants) (?:an )?update\b|\bupdating\b`)},
	{"phone_hang", regexp.MustCompile(`(?i)\bphone (?:is )?(?:hanging|stuck|very slow|restarting)\b`)},
}

// TechExcuses returns the keys of the technical excuses text makes.
func TechExcuses(text string) []string {
	var keys []string
	for _, e := range techExcuses {
		if e.pattern.MatchString(text) {
			keys = append(keys, e.key)
		}
	}
	return keys
}
