package state

// Emotion is the persona's tone for a stretch of the conversation.
type Emotion string

const (
	HighAnxiety        Emotion = "high_anxiety"
	TechnicalConfusion Emotion = "technical_confusion"
	Frustration        Emotion = "frustration"
	Suspicion          Emotion = "suspicion"
)

// SentimentShiftTurn is the first turn on which the persona turns from fear
// to annoyance.
const SentimentShiftTurn = 8

// EmotionChange records the turn on which a new emotion was adopted.
type EmotionChange struct {
	Turn    int     `json:"turn"`
	Emotion Emotion `json:"emotion"`
}

// EmotionForTurn maps a turn number to its emotion. Turns 1-3 are anxious,
// 4-7 confused, 8-10 frustrated and anything later suspicious.
func EmotionForTurn(turn int) Emotion {
	switch {
	case turn <= 3:
		return HighAnxiety
	case turn <= 7:
		return TechnicalConfusion
	case turn <= 10:
		return Frustration
	default:
		return Suspicion
	}
}

// progressEmotion recomputes the emotion for the current turn and logs a
// change.
func (s *Session) progressEmotion() {
	next := EmotionForTurn(s.Turn)
	if next != s.Emotion {
		s.Emotion = next
		s.EmotionHistory = append(s.EmotionHistory, EmotionChange{Turn: s.Turn, Emotion: next})
	}
}

// NeedsSentimentShift reports whether the annoyance directive applies.
func (s *Session) NeedsSentimentShift() bool {
	return s.Turn >= SentimentShiftTurn
}
