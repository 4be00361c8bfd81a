package extractor

import "strings"

// Collect builds the intelligence report for a set of counterpart texts.
// Emails are reported as phishing links.
func Collect(texts []string) Intelligence {
	var intel Intelligence
	for _, text := range texts {
		f := Extract(text)
		intel.BankAccounts = appendAllUnique(intel.BankAccounts, f.BankAccounts)
		intel.UPIIDs = appendAllUnique(intel.UPIIDs, f.UPIs)
		intel.PhoneNumbers = appendAllUnique(intel.PhoneNumbers, f.Phones)
		intel.PhishingLinks = appendAllUnique(intel.PhishingLinks, f.Links)
		intel.PhishingLinks = appendAllUnique(intel.PhishingLinks, f.Emails)
	}
	intel.SuspiciousKeywords = Keywords(strings.Join(texts, " "))
	return intel
}

// Merge combines two reports, keeping first-seen order.
func Merge(a, b Intelligence) Intelligence {
	return Intelligence{
		BankAccounts:       appendAllUnique(appendAllUnique(nil, a.BankAccounts), b.BankAccounts),
		UPIIDs:             appendAllUnique(appendAllUnique(nil, a.UPIIDs), b.UPIIDs),
		PhishingLinks:      appendAllUnique(appendAllUnique(nil, a.PhishingLinks), b.PhishingLinks),
		PhoneNumbers:       appendAllUnique(appendAllUnique(nil, a.PhoneNumbers), b.PhoneNumbers),
		SuspiciousKeywords: appendAllUnique(appendAllUnique(nil, a.SuspiciousKeywords), b.SuspiciousKeywords),
	}
}

// Complete reports whether every reportable category has at least one entry.
func (i Intelligence) Complete() bool {
	return len(i.BankAccounts) > 0 && len(i.UPIIDs) > 0 && len(i.PhoneNumbers) > 0 && len(i.PhishingLinks) > 0
}

// Normalized replaces nil slices with empty ones so the report always
// encodes arrays rather than nulls.
func (i Intelligence) Normalized() Intelligence {
	fix := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}
	return Intelligence{
		BankAccounts:       fix(i.BankAccounts),
		UPIIDs:             fix(i.UPIIDs),
		PhishingLinks:      fix(i.PhishingLinks),
		PhoneNumbers:       fix(i.PhoneNumbers),
		SuspiciousKeywords: fix(i.SuspiciousKeywords),
	}
}

func appendAllUnique(list []string, values []string) []string {
	for _, v := range values {
		list = appendUnique(list, v)
	}
	return list
}
