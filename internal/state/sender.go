package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownSender is returned when a sender label maps to neither side of
// the conversation.
var ErrUnknownSender = errors.New("unknown sender")

// Sender identifies which side of the conversation wrote a message.
type Sender int

const (
	Counterpart Sender = iota + 1
	Agent
)

func (s Sender) String() string {
	switch s {
	case Counterpart:
		return "scammer"
	case Agent:
		return "user"
	}
	return "unknown"
}

// ParseSender converts the labels used by callers into a Sender. The
// evaluation platform calls the counterpart "scammer" and the honeypot
// "user"; older clients used other names.
func ParseSender(raw string) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "scammer", "counterpart", "sender":
		return Counterpart, nil
	case "user", "agent", "honeypot", "bot", "assistant":
		return Agent, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSender, raw)
}

func (s Sender) MarshalText() ([]byte, error) {
	if s != Counterpart && s != Agent {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSender, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Sender) UnmarshalText(b []byte) error {
	parsed, err := ParseSender(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Message is one entry of a conversation transcript.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// CounterpartTexts returns the text of every counterpart message, in order.
func CounterpartTexts(history []Message) []string {
	var out []string
	for _, m := range history {
		if m.Sender == Counterpart {
			out = append(out, m.Text)
		}
	}
	return out
}
