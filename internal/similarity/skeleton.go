package similarity

import "regexp"

// Feature is one rhetorical move a reply can make.
type Feature string

const (
	FeatureDataRef        Feature = "data_ref"
	FeatureWhatIf         Feature = "what_if"
	FeatureFearLock       Feature = "fear_lock"
	FeaturePanicOpener    Feature = "panic_opener"
	FeatureConfusion      Feature = "confusion"
	FeatureSkeptical      Feature = "skeptical"
	FeatureSlowCompliance Feature = "slow_compliance"
	FeatureConfirmation   Feature = "confirmation"
)

// Features lists the full vocabulary in a stable order.
var Features = []Feature{
	FeatureDataRef,
	FeatureWhatIf,
	FeatureFearLock,
	FeaturePanicOpener,
	FeatureConfusion,
	FeatureSkeptical,
	FeatureSlowCompliance,
	FeatureConfirmation,
}

var featurePatterns = map[Feature]*regexp.Regexp{
	FeatureDataRef:        regexp.MustCompile(`(?i)\d{4,}|\.\.\.\d|\bending\s+\d|[a-z0-9]@[a-z]|https?://|www\.`),
	FeatureWhatIf:         regexp.MustCompile(`(?i)\bwhat if\b|\bwhat happens if\b|\bwhat will happen\b|\bsuppose\b|\bin case\b`),
	FeatureFearLock:       regexp.MustCompile(`(?i)\bblock(?:ed)?\b|\bfreez|\bfrozen\b|\block(?:ed)? out\b|\blose (?:my|all|everything)\b|\bsavings\b|\bsuspend`),
	FeaturePanicOpener:    regexp.MustCompile(`(?i)^\s*(?:please\b|help\b|sir\b|madam\b|what do i do\b|i'?m (?:so |really |very )?(?:scared|worried|panicking|nervous|anxious|frightened))`),
	FeatureConfusion:      regexp.MustCompile(`(?i)\bwhich (?:button|option|screen|page|tab|box)\b|\bwhere (?:do|should|can) i\b|\bi (?:don'?t|do not|can'?t|cannot) (?:see|find)\b|\bit'?s asking\b|\bhow do i\b|\bwhat does .+ mean\b|\bconfus`),
	FeatureSkeptical:      regexp.MustCompile(`(?i)\bare you (?:really|sure)\b|\bhow do i know\b|\bprove\b|\bwhy (?:would|does|do|is|are)\b|\bseems? (?:odd|weird|strange|wrong)\b|\bdoesn'?t (?:match|add up)\b|\bnever (?:asked|heard)\b`),
	FeatureSlowCompliance: regexp.MustCompile(`(?i)\b(?:give me|one|just)\s+(?:a\s+)?(?:minute|moment|second|sec)\b|\bhold on\b|\bslowly\b|\blet me\b|\bi'?m (?:still )?(?:typing|entering|writing|checking|looking|trying)\b`),
	FeatureConfirmation:   regexp.MustCompile(`(?i)\bis (?:that|this|it) (?:right|correct|the same)\b|\bcan you confirm\b|\bconfirm (?:it|that|this|again)\b|\bdid you say\b|\bshould i\b|\bcorrect\?|\bright\?`),
}

// Skeleton is the set of features found in a reply, in Features order.
type Skeleton []Feature

// ExtractSkeleton tags text with every feature whose pattern matches. It is
// pure so the feature vocabulary can change without touching the detector.
func ExtractSkeleton(text string) Skeleton {
	sk := Skeleton{}
	for _, f := range Features {
		if featurePatterns[f].MatchString(text) {
			sk = append(sk, f)
		}
	}
	return sk
}

// Has reports whether f is part of the skeleton.
func (s Skeleton) Has(f Feature) bool {
	for _, g := range s {
		if g == f {
			return true
		}
	}
	return false
}

// Intersect returns the features common to s and o.
func (s Skeleton) Intersect(o Skeleton) Skeleton {
	out := Skeleton{}
	for _, f := range s {
		if o.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Union returns every feature present in s or o.
func (s Skeleton) Union(o Skeleton) Skeleton {
	out := Skeleton{}
	for _, f := range Features {
		if s.Has(f) || o.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Overlap is the Jaccard index of two feature sets. Two empty skeletons
// have no overlap.
func (s Skeleton) Overlap(o Skeleton) float64 {
	common := len(s.Intersect(o))
	union := len(s) + len(o) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}
