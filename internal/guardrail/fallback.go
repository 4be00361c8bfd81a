package guardrail

import (
	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/similarity"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

// fallback draws a stall line from the pools matching what the counterpart
// has sent so far, link first and generic last. Lines already emitted or
// lexically close to recent replies are skipped; when nothing fresh is
// left the least recently used line wins.
func (p *Pipeline) fallback(s *state.Session, allowPayment bool) string {
	accept := func(line string) bool {
		if !allowPayment && paymentVocab.MatchString(line) {
			return false
		}
		return !s.Similarity.IsNearDuplicate(line)
	}

	var all []string
	for _, group := range p.fallbackGroups(s, allowPayment) {
		if line := fresh(s, group, accept); line != "" {
			s.MarkStall(line)
			return line
		}
		all = append(all, group...)
	}

	var clean []string
	for _, line := range all {
		if allowPayment || !paymentVocab.MatchString(line) {
			clean = append(clean, line)
		}
	}
	line := leastRecent(s, clean)
	if line == "" {
		line = p.book.SafeLine
	}
	s.MarkStall(line)
	return line
}

func (p *Pipeline) fallbackGroups(s *state.Session, allowPayment bool) [][]string {
	var groups [][]string
	if s.Ledger.Has(extractor.KindLink) {
		switch s.LinkMode {
		case state.LinkLoading:
			groups = append(groups, p.book.LinkLoading)
		case state.LinkError:
			groups = append(groups, p.book.LinkError)
		default:
			groups = append(groups, p.book.LinkNeutral)
		}
	}
	if s.Ledger.Has(extractor.KindPhone) {
		groups = append(groups, p.book.Phone)
	}
	if values := s.Ledger.Values(extractor.KindBankAccount); len(values) > 0 {
		groups = append(groups, fillAll(p.book.Account, values[0]))
	}
	if values := s.Ledger.Values(extractor.KindUPI); allowPayment && len(values) > 0 {
		groups = append(groups, fillAll(p.book.UPI, values[0]))
	}
	return append(groups, p.book.Generic)
}

// processConfusion is the replacement for excuses that would break the
// persona: a question about the step in front of them.
func (p *Pipeline) processConfusion(s *state.Session) string {
	line := s.ChooseLine(p.book.ProcessConfusion, func(l string) bool {
		return !s.Similarity.IsNearDuplicate(l)
	})
	s.MarkStall(line)
	return line
}

// bait-pool routing per scam type.
var baitFirst = map[string]extractor.Kind{
	"impersonation_threat": extractor.KindCaseNumber,
	"phishing":             extractor.KindLink,
	"phishing_link":        extractor.KindLink,
	"kyc_fraud":            extractor.KindLink,
}

// baitOrder is the missing fact kinds in the order they should be baited.
func (p *Pipeline) baitOrder(s *state.Session) []extractor.Kind {
	missing := s.Ledger.Missing()
	first, ok := baitFirst[s.Classification.ScamType]
	if !ok {
		return missing
	}
	out := make([]extractor.Kind, 0, len(missing))
	for _, k := range missing {
		if k == first {
			out = append(out, k)
		}
	}
	for _, k := range missing {
		if k != first {
			out = append(out, k)
		}
	}
	return out
}

// baitLine returns an unused bait for the first kind that has one.
func (p *Pipeline) baitLine(s *state.Session, missing []extractor.Kind) string {
	accept := func(line string) bool {
		if !s.PaymentIntroduced && paymentVocab.MatchString(line) {
			return false
		}
		return !s.Similarity.IsNearDuplicate(line)
	}
	for _, k := range missing {
		if line := fresh(s, p.book.Bait[string(k)], accept); line != "" {
			return line
		}
	}
	return ""
}

// diversityBreak replaces a structurally repetitive reply with a line built
// on rhetorical features the last two replies did not use. Every line it
// returns carries at least one such feature.
func (p *Pipeline) diversityBreak(s *state.Session) string {
	var recent similarity.Skeleton
	for _, sk := range s.Similarity.LastSkeletons() {
		recent = recent.Union(sk)
	}
	usable := func(line string) bool {
		sk := similarity.ExtractSkeleton(line)
		return !s.Similarity.IsStructurallyRepetitive(sk) && !s.Similarity.IsNearDuplicate(line)
	}
	carries := func(f similarity.Feature) func(string) bool {
		return func(line string) bool {
			return usable(line) && similarity.ExtractSkeleton(line).Has(f)
		}
	}

	var candidates []similarity.Feature
	for _, i := range s.Rand().Perm(len(similarity.Features)) {
		if f := similarity.Features[i]; !recent.Has(f) {
			candidates = append(candidates, f)
		}
	}
	for _, f := range candidates {
		accept := carries(f)
		pool := p.book.Diversity[string(f)]
		if line := fresh(s, pool, accept); line != "" {
			s.MarkStall(line)
			return line
		}
		if line := leastRecent(s, filter(pool, accept)); line != "" {
			s.MarkStall(line)
			return line
		}
	}

	novel := func(line string) bool {
		if !usable(line) {
			return false
		}
		for _, f := range similarity.ExtractSkeleton(line) {
			if !recent.Has(f) {
				return true
			}
		}
		return false
	}
	var rest []string
	for _, f := range similarity.Features {
		rest = append(rest, filter(p.book.Diversity[string(f)], novel)...)
	}
	if line := leastRecent(s, rest); line != "" {
		s.MarkStall(line)
		return line
	}
	return p.book.SafeLine
}

// fresh returns a never-emitted line from pool that passes accept, in the
// session's random order, or "".
func fresh(s *state.Session, pool []string, accept func(string) bool) string {
	for _, i := range s.Rand().Perm(len(pool)) {
		line := pool[i]
		if _, used := s.StallUses[line]; used {
			continue
		}
		if accept(line) {
			return line
		}
	}
	return ""
}

// leastRecent returns the line of pool emitted longest ago, preferring
// lines never emitted, or "" for an empty pool.
func leastRecent(s *state.Session, pool []string) string {
	best, bestTurn := "", 0
	for _, line := range pool {
		t, used := s.StallUses[line]
		if !used {
			return line
		}
		if best == "" || t < bestTurn {
			best, bestTurn = line, t
		}
	}
	return best
}

func filter(pool []string, keep func(string) bool) []string {
	var out []string
	for _, line := range pool {
		if keep(line) {
			out = append(out, line)
		}
	}
	return out
}
