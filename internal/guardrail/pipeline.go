// Package guardrail turns a raw candidate reply into the reply the persona
// actually sends. Every step degrades to a fallback line, so finalization
// always produces something in character.
package guardrail

import (
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/phrases"
	"github.com/MikeSquared-Agency/honeypot/internal/similarity"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

// Step names reported in Result.Steps.
const (
	StepTopicDrift        = "topic_drift"
	StepUnsubstantiated   = "unsubstantiated_link"
	StepLinkContradiction = "link_contradiction"
	StepCasePersistence   = "case_persistence"
	StepNearDuplicate     = "near_duplicate"
	StepAcknowledge       = "acknowledge"
	StepMirror            = "mirror"
	StepAntiEcho          = "anti_echo"
	StepBait              = "bait"
	StepPhysicalExcuse    = "physical_excuse"
	StepExcuseRepeat      = "excuse_repeat"
	StepStructural        = "structural_monotony"
	StepNormalize         = "normalize"
)

// maxCasePersistence bounds how many turns in a row we insist on a case
// number the counterpart keeps ignoring.
const maxCasePersistence = 2

// baitCertainTurn is the turn from which a bait is always appended.
const baitCertainTurn = 6

// Input is one finalization request.
type Input struct {
	Candidate string
	Turn      state.TurnInput
}

// Result is the finalized reply and the steps that rewrote it.
type Result struct {
	Reply string   `json:"reply"`
	Steps []string `json:"steps,omitempty"`
}

// Pipeline finalizes replies for any session. It holds no per-session
// state; everything it learns is written back into the session.
type Pipeline struct {
	book   *phrases.Book
	logger *slog.Logger
	now    func() time.Time
}

// New creates a pipeline drawing fallbacks from book.
func New(book *phrases.Book, logger *slog.Logger) *Pipeline {
	return &Pipeline{book: book, logger: logger, now: time.Now}
}

type run struct {
	p     *Pipeline
	s     *state.Session
	in    Input
	reply string
	steps []string
}

func (r *run) rewrite(step, reply string) {
	r.reply = reply
	r.steps = append(r.steps, step)
	r.p.logger.Debug("guardrail rewrite", "session_id", r.s.ID, "turn", r.s.Turn, "step", step)
}

// Finalize runs the guardrail steps in order over the candidate, records the
// emitted reply in the session and returns it.
func (p *Pipeline) Finalize(s *state.Session, in Input) Result {
	r := &run{p: p, s: s, in: in, reply: clean(in.Candidate)}
	if r.reply == "" {
		r.reply = p.book.EmptyLine
	}

	r.topicDrift()
	r.unsubstantiatedLink()
	r.linkContradiction()
	persisting := r.casePersistence()
	if !persisting {
		r.nearDuplicate()
	}
	r.acknowledge()
	r.mirror()
	r.antiEcho()
	r.bait()
	r.physicalExcuse()
	r.excuseRepeat()
	r.structural()
	r.normalize()

	for _, key := range TechExcuses(r.reply) {
		s.MarkExcuse(key)
	}
	s.Complete(r.reply, p.now())
	return Result{Reply: r.reply, Steps: r.steps}
}

// 1. Payment talk before the counterpart has raised payment.
func (r *run) topicDrift() {
	if r.s.PaymentIntroduced || !paymentVocab.MatchString(r.reply) {
		return
	}
	r.rewrite(StepTopicDrift, r.p.fallback(r.s, false))
}

// 2. Link interaction claims without any link from the counterpart.
func (r *run) unsubstantiatedLink() {
	if r.s.Ledger.Has(extractor.KindLink) {
		return
	}
	if !linkVocab.MatchString(r.reply) || !linkAction.MatchString(r.reply) {
		return
	}
	line := r.s.ChooseLine(r.p.book.OTPStall, r.notDuplicate)
	r.s.MarkStall(line)
	r.rewrite(StepUnsubstantiated, line)
}

// 3. A link failure mode that contradicts the one already stated.
func (r *run) linkContradiction() {
	committed := r.s.LinkMode
	claimed := state.LinkModeOf(r.reply)
	if committed == "" || claimed == "" || claimed == committed {
		return
	}
	if committed == state.LinkLoading {
		r.rewrite(StepLinkContradiction, r.p.book.LinkLoadingFix)
		return
	}
	r.rewrite(StepLinkContradiction, r.p.book.LinkErrorFix)
}

// 4. Keep asking for a case number the counterpart ignored, but only
// maxCasePersistence times in a row.
func (r *run) casePersistence() bool {
	msg := r.in.Turn.Text
	answered := caseMention.MatchString(msg) || len(r.in.Turn.Facts.CaseNumbers) > 0
	newTopic := extractor.MentionsPayment(msg) || upiLike.MatchString(msg) || len(r.in.Turn.NewFacts) > 0

	if !r.s.LastAskedCase || answered || newTopic {
		r.s.CaseAsks = 0
		return false
	}
	if r.s.CaseAsks >= maxCasePersistence {
		return false
	}
	r.s.CaseAsks++
	r.rewrite(StepCasePersistence, r.p.book.CaseAsk)
	return true
}

// 5. Lexical near-duplicates of recent replies.
func (r *run) nearDuplicate() {
	if !r.s.Similarity.IsNearDuplicate(r.reply) {
		return
	}
	r.rewrite(StepNearDuplicate, r.p.fallback(r.s, r.s.PaymentIntroduced))
}

// 6. Acknowledge facts the counterpart just sent.
func (r *run) acknowledge() {
	facts := r.in.Turn.Facts
	if facts.Empty() || referencesAny(r.reply, facts) {
		return
	}
	for _, kind := range ackOrder {
		values := facts.Values(kind)
		if len(values) == 0 {
			continue
		}
		tmpl := r.s.ChooseAck(r.p.book.Ack[string(kind)])
		if tmpl == "" {
			continue
		}
		prefix := phrases.Fill(tmpl, values[0])
		r.rewrite(StepAcknowledge, prefix+" "+lowerFirst(r.reply))
		return
	}
}

var ackOrder = []extractor.Kind{
	extractor.KindLink,
	extractor.KindUPI,
	extractor.KindPhone,
	extractor.KindBankAccount,
	extractor.KindCaseNumber,
}

// 7. Play a newly received value back with mild doubt, once per value.
func (r *run) mirror() {
	for _, f := range r.in.Turn.NewFacts {
		key := state.CleanValue(f.Value)
		if r.s.Mirrored[key] {
			continue
		}
		pool := r.p.book.Mirror[string(f.Kind)]
		if len(pool) == 0 {
			continue
		}
		line := r.s.ChooseLine(fillAll(pool, f.Value), nil)
		r.s.MarkStall(line)
		r.s.Mirrored[key] = true
		r.rewrite(StepMirror, line)
		return
	}
}

// 8. Abbreviate values that were already emitted in full.
func (r *run) antiEcho() {
	out := r.reply
	for _, e := range r.s.Ledger.Entries() {
		if !r.s.Echo.Allowed(e.Value) && state.Mentions(out, e.Kind, e.Value) {
			out = state.Abbreviate(out, e.Kind, e.Value, 0)
		}
	}
	if out != r.reply {
		r.rewrite(StepAntiEcho, out)
	}
}

// 9. Nudge the counterpart toward a fact kind we still lack.
func (r *run) bait() {
	missing := r.p.baitOrder(r.s)
	if len(missing) == 0 {
		return
	}
	topics := extractor.DetectTopics(r.reply)
	for _, k := range missing {
		if containsTopic(topics, kindTopic[k]) {
			return
		}
	}

	chance := float64(r.s.Turn) / baitCertainTurn
	if r.s.Turn < baitCertainTurn && r.s.Rand().Float64() >= chance {
		return
	}

	line := r.p.baitLine(r.s, missing)
	if line == "" {
		return
	}
	r.s.MarkStall(line)

	sentences := splitSentences(r.reply)
	base := r.reply
	if len(sentences) >= 2 {
		base = sentences[0]
	}
	r.rewrite(StepBait, strings.TrimSpace(base+" "+line))
}

// 10. Physical catastrophes contradict someone calmly typing.
func (r *run) physicalExcuse() {
	if !physicalExcuse.MatchString(r.reply) {
		return
	}
	r.rewrite(StepPhysicalExcuse, r.p.processConfusion(r.s))
}

// 11. The same technical excuse twice sounds scripted.
func (r *run) excuseRepeat() {
	for _, key := range TechExcuses(r.reply) {
		if r.s.ExcuseUsed(key) {
			r.rewrite(StepExcuseRepeat, r.p.processConfusion(r.s))
			return
		}
	}
}

// 12. Same rhetorical moves as the last two replies.
func (r *run) structural() {
	sk := similarity.ExtractSkeleton(r.reply)
	if !r.s.Similarity.IsStructurallyRepetitive(sk) {
		return
	}
	r.rewrite(StepStructural, r.p.diversityBreak(r.s))
}

// 13. Format, tone and detection safety, then the final echo accounting.
func (r *run) normalize() {
	out := r.p.tidy(r.s, r.reply)

	for _, e := range r.s.Ledger.Entries() {
		keep := 1
		if !r.s.Echo.Allowed(e.Value) {
			keep = 0
		}
		out = state.Abbreviate(out, e.Kind, e.Value, keep)
	}
	for _, e := range r.s.Ledger.Entries() {
		if state.Mentions(out, e.Kind, e.Value) {
			r.s.Echo.Record(e.Value)
		}
	}

	if out != r.reply {
		r.rewrite(StepNormalize, out)
	}
}

func (r *run) notDuplicate(line string) bool {
	return !r.s.Similarity.IsNearDuplicate(line)
}

var kindTopic = map[extractor.Kind]extractor.Topic{
	extractor.KindUPI:         extractor.TopicUPI,
	extractor.KindBankAccount: extractor.TopicBankAccount,
	extractor.KindPhone:       extractor.TopicPhone,
	extractor.KindLink:        extractor.TopicLink,
	extractor.KindCaseNumber:  extractor.TopicCaseNumber,
}

func containsTopic(list []extractor.Topic, t extractor.Topic) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

// referencesAny reports whether reply mentions one of the facts by domain,
// last four digits or literal value.
func referencesAny(reply string, f extractor.Facts) bool {
	low := strings.ToLower(reply)
	digits := onlyDigits(reply)
	for _, link := range f.Links {
		if d := extractor.Domain(link); (d != "" && strings.Contains(low, d)) || strings.Contains(low, strings.ToLower(link)) {
			return true
		}
	}
	for _, v := range append(append([]string{}, f.Phones...), f.BankAccounts...) {
		if tail := phrases.Tail(v); tail != "" && strings.Contains(digits, tail) {
			return true
		}
	}
	for _, v := range append(append([]string{}, f.UPIs...), f.CaseNumbers...) {
		if strings.Contains(low, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	if strings.HasPrefix(s, "I ") || strings.HasPrefix(s, "I'") {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func fillAll(pool []string, value string) []string {
	out := make([]string, len(pool))
	for i, t := range pool {
		out[i] = phrases.Fill(t, value)
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
