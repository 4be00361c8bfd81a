package state

import "github.com/MikeSquared-Agency/honeypot/internal/extractor"

// Entry is one fact held by the ledger.
type Entry struct {
	Kind  extractor.Kind `json:"kind"`
	Value string         `json:"value"`
	Turn  int            `json:"turn"`
}

// Ledger stores every fact the counterpart has revealed, once per value,
// tagged with the turn it first appeared.
type Ledger struct {
	entries  []Entry
	seen     map[string]bool
	received map[extractor.Kind]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		seen:     make(map[string]bool),
		received: make(map[extractor.Kind]int),
	}
}

// Record extracts facts from text and stores the new ones. It returns the
// kinds received for the first time in this call.
func (l *Ledger) Record(text string, turn int) []extractor.Kind {
	return l.RecordFacts(extractor.Extract(text), turn)
}

// RecordFacts stores already-extracted facts.
func (l *Ledger) RecordFacts(f extractor.Facts, turn int) []extractor.Kind {
	var fresh []extractor.Kind
	for _, fact := range f.All() {
		if l.seen[fact.Value] {
			continue
		}
		l.seen[fact.Value] = true
		l.entries = append(l.entries, Entry{Kind: fact.Kind, Value: fact.Value, Turn: turn})
		if _, ok := l.received[fact.Kind]; !ok {
			l.received[fact.Kind] = turn
			fresh = append(fresh, fact.Kind)
		}
	}
	return fresh
}

// Missing lists the required kinds not yet received, in baiting priority.
func (l *Ledger) Missing() []extractor.Kind {
	var out []extractor.Kind
	for _, k := range extractor.RequiredKinds {
		if _, ok := l.received[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Has reports whether any fact of kind has been received.
func (l *Ledger) Has(kind extractor.Kind) bool {
	_, ok := l.received[kind]
	return ok
}

// FirstTurn returns the turn a kind was first received.
func (l *Ledger) FirstTurn(kind extractor.Kind) (int, bool) {
	t, ok := l.received[kind]
	return t, ok
}

// Values returns the stored values of kind in first-seen order.
func (l *Ledger) Values(kind extractor.Kind) []string {
	var out []string
	for _, e := range l.entries {
		if e.Kind == kind {
			out = append(out, e.Value)
		}
	}
	return out
}

// Entries returns every stored fact in first-seen order.
func (l *Ledger) Entries() []Entry {
	return append([]Entry{}, l.entries...)
}

func (l *Ledger) restore(entries []Entry) {
	l.entries = nil
	l.seen = make(map[string]bool)
	l.received = make(map[extractor.Kind]int)
	for _, e := range entries {
		if l.seen[e.Value] {
			continue
		}
		l.seen[e.Value] = true
		l.entries = append(l.entries, e)
		if t, ok := l.received[e.Kind]; !ok || e.Turn < t {
			l.received[e.Kind] = e.Turn
		}
	}
}
