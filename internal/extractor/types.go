package extractor

// Kind is the type of an artifact extracted from counterpart text.
type Kind string

const (
	KindUPI         Kind = "upi"
	KindBankAccount Kind = "bank_account"
	KindPhone       Kind = "phone"
	KindLink        Kind = "link"
	KindCaseNumber  Kind = "case_number"
)

// RequiredKinds is the collection target, in baiting priority order.
var RequiredKinds = []Kind{KindUPI, KindBankAccount, KindPhone, KindLink, KindCaseNumber}

// Fact is a single normalized artifact.
type Fact struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// Facts groups the artifacts found in one piece of text. Every list is
// normalized and de-duplicated in order of first appearance.
type Facts struct {
	Phones       []string `json:"phones,omitempty"`
	UPIs         []string `json:"upis,omitempty"`
	BankAccounts []string `json:"bank_accounts,omitempty"`
	Links        []string `json:"links,omitempty"`
	CaseNumbers  []string `json:"case_numbers,omitempty"`
	Emails       []string `json:"emails,omitempty"`
}

// Values returns the values extracted for kind.
func (f Facts) Values(kind Kind) []string {
	switch kind {
	case KindPhone:
		return f.Phones
	case KindUPI:
		return f.UPIs
	case KindBankAccount:
		return f.BankAccounts
	case KindLink:
		return f.Links
	case KindCaseNumber:
		return f.CaseNumbers
	}
	return nil
}

// All flattens the facts in RequiredKinds order. Emails are not facts of
// their own; they only feed the intelligence report.
func (f Facts) All() []Fact {
	var out []Fact
	for _, kind := range RequiredKinds {
		for _, v := range f.Values(kind) {
			out = append(out, Fact{Kind: kind, Value: v})
		}
	}
	return out
}

// Empty reports whether no fact of any kind was found.
func (f Facts) Empty() bool {
	return len(f.Phones) == 0 && len(f.UPIs) == 0 && len(f.BankAccounts) == 0 &&
		len(f.Links) == 0 && len(f.CaseNumbers) == 0
}

// Topic is a conversation subject detected in counterpart text.
type Topic string

const (
	TopicOTP          Topic = "otp"
	TopicUPI          Topic = "upi"
	TopicBankAccount  Topic = "bank_account"
	TopicLink         Topic = "link"
	TopicPhone        Topic = "phone"
	TopicCaseNumber   Topic = "case_number"
	TopicThreat       Topic = "threat"
	TopicPayment      Topic = "payment"
	TopicVerification Topic = "verification"
	TopicUnknown      Topic = "unknown"
)

// Intelligence is the conversation-wide report of collected artifacts.
// Field names follow the reporting wire format.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}
