package tactics

import (
	"math/rand/v2"
)

// Category is a stalling-rhetoric family.
type Category string

const (
	Confusion      Category = "confusion"
	Skeptical      Category = "skeptical"
	SlowCompliance Category = "slow_compliance"
)

// Categories lists every category in a stable order.
var Categories = []Category{Confusion, Skeptical, SlowCompliance}

// Record is one tactic chosen during a session.
type Record struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

// State is the serializable scheduler history.
type State struct {
	History []Record              `json:"history"`
	Used    map[Category][]string `json:"used"`
}

// Scheduler rotates stalling tactics so consecutive turns never share a
// category, and cycles through each category's pool before reusing a line.
type Scheduler struct {
	pools map[Category][]string
	rng   *rand.Rand
	st    State
}

// NewScheduler creates a scheduler over pools drawing from rng.
func NewScheduler(pools map[Category][]string, rng *rand.Rand) *Scheduler {
	return &Scheduler{
		pools: pools,
		rng:   rng,
		st:    State{Used: make(map[Category][]string)},
	}
}

// NextCategory picks uniformly among the categories other than last. With no
// prior category every category is eligible.
func (s *Scheduler) NextCategory(last Category) Category {
	var eligible []Category
	for _, c := range Categories {
		if c != last {
			eligible = append(eligible, c)
		}
	}
	return eligible[s.rng.IntN(len(eligible))]
}

// Choose picks a line from the category pool, preferring lines not used
// since the pool was last exhausted and never the line this category
// produced last. It does not record the choice.
func (s *Scheduler) Choose(c Category) string {
	pool := s.pools[c]
	if len(pool) == 0 {
		return ""
	}

	used := s.st.Used[c]
	prev := s.lastText(c)
	var fresh []string
	for _, text := range pool {
		if !contains(used, text) && text != prev {
			fresh = append(fresh, text)
		}
	}
	if len(fresh) == 0 {
		return pool[0]
	}
	return fresh[s.rng.IntN(len(fresh))]
}

// Record appends a chosen tactic to the history. Once every line of the
// category has been used the pool starts over.
func (s *Scheduler) Record(c Category, text string) {
	s.st.History = append(s.st.History, Record{Category: c, Text: text})

	used := s.st.Used[c]
	if !contains(used, text) {
		used = append(used, text)
	}
	if len(used) >= len(s.pools[c]) {
		used = nil
	}
	s.st.Used[c] = used
}

// Next selects, records and returns the tactic for the coming turn.
func (s *Scheduler) Next() Record {
	var last Category
	if r, ok := s.Last(); ok {
		last = r.Category
	}
	c := s.NextCategory(last)
	text := s.Choose(c)
	s.Record(c, text)
	return Record{Category: c, Text: text}
}

// Last returns the most recent tactic, if any.
func (s *Scheduler) Last() (Record, bool) {
	if len(s.st.History) == 0 {
		return Record{}, false
	}
	return s.st.History[len(s.st.History)-1], true
}

// History returns every tactic chosen so far.
func (s *Scheduler) History() []Record {
	return append([]Record{}, s.st.History...)
}

// State returns a copy of the scheduler history.
func (s *Scheduler) State() State {
	used := make(map[Category][]string, len(s.st.Used))
	for c, texts := range s.st.Used {
		used[c] = append([]string(nil), texts...)
	}
	return State{History: s.History(), Used: used}
}

// Restore replaces the scheduler history with st.
func (s *Scheduler) Restore(st State) {
	s.st.History = append([]Record(nil), st.History...)
	s.st.Used = make(map[Category][]string, len(st.Used))
	for c, texts := range st.Used {
		s.st.Used[c] = append([]string(nil), texts...)
	}
}

func (s *Scheduler) lastText(c Category) string {
	for i := len(s.st.History) - 1; i >= 0; i-- {
		if s.st.History[i].Category == c {
			return s.st.History[i].Text
		}
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
