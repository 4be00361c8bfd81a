package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
)

// Subjects used by the honeypot.
const (
	SubjectMessageReceived = "swarm.honeypot.message.received"
	SubjectReplyReady      = "swarm.honeypot.reply.ready"
	SubjectTurnCompleted   = "swarm.honeypot.turn.completed"
	SubjectIntelReported   = "swarm.honeypot.intel.reported"
	SubjectRegistered      = "swarm.agent.honeypot.registered"
)

// ReplyReady answers a message received on SubjectMessageReceived.
type ReplyReady struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Reply     string `json:"reply"`
}

// TurnCompleted describes the state after one exchange.
type TurnCompleted struct {
	SessionID    string    `json:"session_id"`
	Turn         int       `json:"turn"`
	Emotion      string    `json:"emotion"`
	ScamDetected bool      `json:"scam_detected"`
	ScamType     string    `json:"scam_type,omitempty"`
	Confidence   float64   `json:"confidence"`
	NewFacts     []string  `json:"new_facts"`
	Missing      []string  `json:"missing"`
	Tactic       string    `json:"tactic,omitempty"`
	Steps        []string  `json:"steps"`
	CompletedAt  time.Time `json:"completed_at"`
}

// IntelReported mirrors a final-result report.
type IntelReported struct {
	SessionID     string                 `json:"session_id"`
	ScamDetected  bool                   `json:"scam_detected"`
	TotalMessages int                    `json:"total_messages"`
	Intelligence  extractor.Intelligence `json:"intelligence"`
	AgentNotes    string                 `json:"agent_notes"`
	Complete      bool                   `json:"complete"`
	Delivered     bool                   `json:"delivered"`
}

// Publisher is the subset of Client the rest of the service depends on.
type Publisher interface {
	Publish(subject string, data any) error
}
