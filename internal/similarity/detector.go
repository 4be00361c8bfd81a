package similarity

import (
	"regexp"
	"strings"
	"unicode"
)

// Config holds the heuristic thresholds of the detector.
type Config struct {
	NearDuplicate float64 // Jaccard at or above which two replies are duplicates
	Window        int     // recent replies compared lexically
	PrefixLen     int     // characters of a reply kept as an exact pattern
	MaxResponses  int
	MaxSkeletons  int
	CoreMin       int     // shared features that make a common core
	HighOverlap   float64 // alternating-variant guard, close side
	LowOverlap    float64 // alternating-variant guard, far side
	MonotonyReset float64 // overlap below which the monotony counter resets
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		NearDuplicate: 0.70,
		Window:        3,
		PrefixLen:     80,
		MaxResponses:  6,
		MaxSkeletons:  4,
		CoreMin:       2,
		HighOverlap:   0.80,
		LowOverlap:    0.50,
		MonotonyReset: 0.70,
	}
}

// State is the serializable history of a detector.
type State struct {
	Responses []string   `json:"responses"`
	Patterns  []string   `json:"patterns"`
	Skeletons []Skeleton `json:"skeletons"`
	Monotony  int        `json:"monotony"`
}

// Detector flags replies that repeat recent ones lexically or structurally.
// It is owned by a single session and is not safe for concurrent use.
type Detector struct {
	cfg      Config
	st       State
	patterns map[string]struct{}
}

// NewDetector creates an empty detector.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg, patterns: make(map[string]struct{})}
}

// Restore replaces the detector history with st.
func (d *Detector) Restore(st State) {
	d.st = State{
		Responses: append([]string(nil), st.Responses...),
		Patterns:  append([]string(nil), st.Patterns...),
		Skeletons: append([]Skeleton(nil), st.Skeletons...),
		Monotony:  st.Monotony,
	}
	d.patterns = make(map[string]struct{}, len(st.Patterns))
	for _, p := range st.Patterns {
		d.patterns[p] = struct{}{}
	}
}

// State returns a copy of the detector history.
func (d *Detector) State() State {
	return State{
		Responses: append([]string{}, d.st.Responses...),
		Patterns:  append([]string{}, d.st.Patterns...),
		Skeletons: append([]Skeleton{}, d.st.Skeletons...),
		Monotony:  d.st.Monotony,
	}
}

// Config returns the thresholds in use.
func (d *Detector) Config() Config { return d.cfg }

var stopwords = regexp.MustCompile(`\b(?:i|me|my|the|a|an|is|are|was|were|been|be|have|has|do|does|did)\b`)

// Normalize lowercases text, drops pronouns, articles and auxiliaries, and
// collapses whitespace.
func Normalize(text string) string {
	s := stopwords.ReplaceAllString(strings.ToLower(text), "")
	return strings.Join(strings.Fields(s), " ")
}

// Jaccard is the token-set similarity of two normalized texts.
func Jaccard(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	common := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			common++
		}
	}
	return float64(common) / float64(len(ta)+len(tb)-common)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '@'
	}) {
		set[t] = struct{}{}
	}
	return set
}

func (d *Detector) prefixPattern(text string) string {
	r := []rune(text)
	if len(r) > d.cfg.PrefixLen {
		r = r[:d.cfg.PrefixLen]
	}
	return Normalize(string(r))
}

// IsNearDuplicate reports whether candidate repeats one of the recent replies
// or an exact opening pattern seen earlier in the session.
func (d *Detector) IsNearDuplicate(candidate string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}
	if _, ok := d.patterns[d.prefixPattern(candidate)]; ok {
		return true
	}
	norm := Normalize(candidate)
	recent := d.st.Responses
	if len(recent) > d.cfg.Window {
		recent = recent[len(recent)-d.cfg.Window:]
	}
	for _, r := range recent {
		if Jaccard(norm, Normalize(r)) >= d.cfg.NearDuplicate {
			return true
		}
	}
	return false
}

// LastSkeletons returns up to the two most recent skeletons, oldest first.
func (d *Detector) LastSkeletons() []Skeleton {
	n := len(d.st.Skeletons)
	if n <= 2 {
		return append([]Skeleton{}, d.st.Skeletons...)
	}
	return append([]Skeleton{}, d.st.Skeletons[n-2:]...)
}

// CommonCore is the intersection of the last two skeletons, or nil when
// fewer than two replies have been tracked.
func (d *Detector) CommonCore() Skeleton {
	last := d.LastSkeletons()
	if len(last) < 2 {
		return nil
	}
	return last[0].Intersect(last[1])
}

// IsStructurallyRepetitive reports whether a reply with skeleton sk makes
// the same rhetorical moves as the last two replies. A candidate sharing
// enough of their common core is flagged, as is one that sits very close
// to one of them while still resembling the other.
func (d *Detector) IsStructurallyRepetitive(sk Skeleton) bool {
	last := d.LastSkeletons()
	if len(last) < 2 {
		return false
	}
	prev, latest := last[0], last[1]

	core := prev.Intersect(latest)
	if len(core) >= d.cfg.CoreMin && len(sk.Intersect(core)) >= d.cfg.CoreMin {
		return true
	}

	a, b := sk.Overlap(prev), sk.Overlap(latest)
	if a >= d.cfg.HighOverlap && b >= d.cfg.LowOverlap {
		return true
	}
	if b >= d.cfg.HighOverlap && a >= d.cfg.LowOverlap {
		return true
	}
	return false
}

// Track records an emitted reply and returns its skeleton.
func (d *Detector) Track(reply string) Skeleton {
	sk := ExtractSkeleton(reply)

	if n := len(d.st.Skeletons); n > 0 && sk.Overlap(d.st.Skeletons[n-1]) >= d.cfg.MonotonyReset {
		d.st.Monotony++
	} else {
		d.st.Monotony = 0
	}

	d.st.Responses = append(d.st.Responses, reply)
	if len(d.st.Responses) > d.cfg.MaxResponses {
		d.st.Responses = d.st.Responses[len(d.st.Responses)-d.cfg.MaxResponses:]
	}
	d.st.Skeletons = append(d.st.Skeletons, sk)
	if len(d.st.Skeletons) > d.cfg.MaxSkeletons {
		d.st.Skeletons = d.st.Skeletons[len(d.st.Skeletons)-d.cfg.MaxSkeletons:]
	}

	p := d.prefixPattern(reply)
	if _, ok := d.patterns[p]; !ok && p != "" {
		d.patterns[p] = struct{}{}
		d.st.Patterns = append(d.st.Patterns, p)
	}
	return sk
}

// Responses returns the retained replies, oldest first.
func (d *Detector) Responses() []string {
	return append([]string{}, d.st.Responses...)
}

// Monotony is the number of consecutive replies whose skeleton stayed close
// to the one before.
func (d *Detector) Monotony() int { return d.st.Monotony }
