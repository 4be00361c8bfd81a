package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

// Request is one inbound counterpart message, as posted to /process or
// received on the message subject.
type Request struct {
	SessionID           string    `json:"sessionId"`
	Message             Message   `json:"message"`
	ConversationHistory []Message `json:"conversationHistory"`
	Metadata            *Metadata `json:"metadata,omitempty"`
}

// Message is a transcript entry on the wire.
type Message struct {
	Sender    state.Sender `json:"sender"`
	Text      string       `json:"text"`
	Timestamp Timestamp    `json:"timestamp"`
}

// Metadata describes the channel a conversation runs on.
type Metadata struct {
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// Response is the reply to a Request.
type Response struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

// Validate reports a request that cannot be processed.
func (r Request) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return errors.New("sessionId is required")
	}
	if strings.TrimSpace(r.Message.Text) == "" {
		return errors.New("message.text is required")
	}
	return nil
}

func (r Request) history() []state.Message {
	out := make([]state.Message, 0, len(r.ConversationHistory))
	for _, m := range r.ConversationHistory {
		out = append(out, state.Message{Sender: m.Sender, Text: m.Text, Timestamp: m.Timestamp.Time})
	}
	return out
}

// Timestamp accepts RFC 3339 strings, naive ISO strings and epoch numbers
// (seconds or milliseconds).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == `""` {
		t.Time = time.Time{}
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed.UTC()
				return nil
			}
		}
		raw = s
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("timestamp: unrecognized value %s", b)
	}
	if n > 1e12 {
		t.Time = time.UnixMilli(int64(n)).UTC()
	} else {
		t.Time = time.Unix(int64(n), 0).UTC()
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
