package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MikeSquared-Agency/honeypot/internal/processor"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

// Transcript is a recorded conversation. Only the counterpart's messages
// are replayed; the recorded replies are replaced by fresh ones.
type Transcript struct {
	SessionID string              `json:"sessionId"`
	Messages  []processor.Message `json:"messages"`
}

// Counterpart returns the counterpart messages in order.
func (t Transcript) Counterpart() []processor.Message {
	var out []processor.Message
	for _, m := range t.Messages {
		if m.Sender == state.Counterpart && strings.TrimSpace(m.Text) != "" {
			out = append(out, m)
		}
	}
	return out
}

// ParseFile reads a transcript. A .jsonl file holds one message per line;
// anything else is a single JSON object. A missing session ID falls back to
// the file name.
func ParseFile(path string) (Transcript, error) {
	var t Transcript
	var err error
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		t, err = parseLines(path)
	} else {
		t, err = parseObject(path)
	}
	if err != nil {
		return Transcript{}, err
	}
	if t.SessionID == "" {
		base := filepath.Base(path)
		t.SessionID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return t, nil
}

func parseObject(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("read: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return Transcript{}, fmt.Errorf("decode: %w", err)
	}
	return t, nil
}

func parseLines(path string) (Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var t Transcript
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var m processor.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return Transcript{}, fmt.Errorf("line %d: %w", line, err)
		}
		t.Messages = append(t.Messages, m)
	}
	if err := scanner.Err(); err != nil {
		return Transcript{}, fmt.Errorf("scan: %w", err)
	}
	return t, nil
}
