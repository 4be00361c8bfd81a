package replay

import (
	"fmt"
	"io"
	"sort"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/guardrail"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

// Echo is how many replies repeated a fact value in full.
type Echo struct {
	Kind    extractor.Kind `json:"kind"`
	Value   string         `json:"value"`
	Replies int            `json:"replies"`
}

// TranscriptReport is the outcome of replaying one transcript.
type TranscriptReport struct {
	Path            string         `json:"path"`
	SessionID       string         `json:"session_id"`
	Turns           int            `json:"turns"`
	Replies         []string       `json:"replies"`
	Echoes          []Echo         `json:"echoes"`
	RepeatedExcuses map[string]int `json:"repeated_excuses"`
}

// EchoViolations counts fact values emitted in full more often than allowed.
func (r TranscriptReport) EchoViolations() int {
	n := 0
	for _, e := range r.Echoes {
		if e.Replies > state.MaxFullEcho {
			n++
		}
	}
	return n
}

// Analyze inspects the replies given to a counterpart. Every fact the
// counterpart supplied is checked for full-form repetition, and every
// technical excuse given more than once is counted.
func Analyze(counterpart, replies []string) TranscriptReport {
	var facts extractor.Facts
	for _, text := range counterpart {
		facts = mergeFacts(facts, extractor.Extract(text))
	}

	rep := TranscriptReport{
		Turns:           len(counterpart),
		Replies:         replies,
		Echoes:          []Echo{},
		RepeatedExcuses: map[string]int{},
	}
	for _, f := range facts.All() {
		n := 0
		for _, reply := range replies {
			if state.Mentions(reply, f.Kind, f.Value) {
				n++
			}
		}
		if n > 0 {
			rep.Echoes = append(rep.Echoes, Echo{Kind: f.Kind, Value: f.Value, Replies: n})
		}
	}

	excuses := map[string]int{}
	for _, reply := range replies {
		for _, key := range guardrail.TechExcuses(reply) {
			excuses[key]++
		}
	}
	for key, n := range excuses {
		if n > 1 {
			rep.RepeatedExcuses[key] = n
		}
	}
	return rep
}

func mergeFacts(a, b extractor.Facts) extractor.Facts {
	a.Phones = appendNew(a.Phones, b.Phones)
	a.UPIs = appendNew(a.UPIs, b.UPIs)
	a.BankAccounts = appendNew(a.BankAccounts, b.BankAccounts)
	a.Links = appendNew(a.Links, b.Links)
	a.CaseNumbers = appendNew(a.CaseNumbers, b.CaseNumbers)
	a.Emails = appendNew(a.Emails, b.Emails)
	return a
}

func appendNew(list, values []string) []string {
	for _, v := range values {
		found := false
		for _, have := range list {
			if have == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}

// Report is the outcome of a replay run.
type Report struct {
	RunID       string             `json:"run_id"`
	Transcripts []TranscriptReport `json:"transcripts"`
	Skipped     int                `json:"skipped"`
	Failed      int                `json:"failed"`
}

// WriteSummary prints a human-readable summary of the run.
func (r *Report) WriteSummary(w io.Writer, statePath string) {
	sort.Slice(r.Transcripts, func(i, j int) bool { return r.Transcripts[i].Path < r.Transcripts[j].Path })

	turns, violations, repeats := 0, 0, 0
	fmt.Fprintf(w, "\n=== Replay Summary (%s) ===\n", r.RunID)
	for _, t := range r.Transcripts {
		turns += t.Turns
		violations += t.EchoViolations()
		repeats += len(t.RepeatedExcuses)
		fmt.Fprintf(w, "%s: turns=%d echo_violations=%d repeated_excuses=%d\n",
			t.Path, t.Turns, t.EchoViolations(), len(t.RepeatedExcuses))
		for _, e := range t.Echoes {
			if e.Replies > state.MaxFullEcho {
				fmt.Fprintf(w, "  echo %s %s in %d replies\n", e.Kind, e.Value, e.Replies)
			}
		}
		keys := make([]string, 0, len(t.RepeatedExcuses))
		for k := range t.RepeatedExcuses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  excuse %s given %d times\n", k, t.RepeatedExcuses[k])
		}
	}
	fmt.Fprintf(w, "Transcripts replayed: %d\n", len(r.Transcripts))
	fmt.Fprintf(w, "Transcripts skipped: %d\n", r.Skipped)
	fmt.Fprintf(w, "Transcripts failed: %d\n", r.Failed)
	fmt.Fprintf(w, "Turns replayed: %d\n", turns)
	fmt.Fprintf(w, "Echo violations: %d\n", violations)
	fmt.Fprintf(w, "Repeated excuses: %d\n", repeats)
	if statePath != "" {
		fmt.Fprintf(w, "State file: %s\n", statePath)
	}
}
