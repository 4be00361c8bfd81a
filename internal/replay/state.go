package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// DefaultStatePath is where progress is kept between runs.
const DefaultStatePath = "~/.honeypot/replay-state.json"

// State tracks which transcripts a replay has finished so an interrupted
// run can resume.
type State struct {
	StartedAt       time.Time `json:"started_at"`
	LastProcessedAt time.Time `json:"last_processed_at"`
	FilesProcessed  []string  `json:"files_processed"`
	TurnsReplayed   int       `json:"turns_replayed"`
	EchoViolations  int       `json:"echo_violations"`
	RepeatedExcuses int       `json:"repeated_excuses"`
	Errors          []string  `json:"errors,omitempty"`

	mu   sync.Mutex
	path string
}

// LoadState reads the state file at path, or starts a fresh state when none
// exists.
func LoadState(path string) (*State, error) {
	if path == "" {
		path = DefaultStatePath
	}
	path = expandHome(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{StartedAt: time.Now().UTC(), path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	s.path = path
	return &s, nil
}

// Save persists the state to disk.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

// IsProcessed returns true if the given file has already been replayed.
func (s *State) IsProcessed(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.FilesProcessed, path)
}

// MarkProcessed records a finished transcript and its findings.
func (s *State) MarkProcessed(path string, r TranscriptReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesProcessed = append(s.FilesProcessed, path)
	s.TurnsReplayed += r.Turns
	s.EchoViolations += r.EchoViolations()
	s.RepeatedExcuses += len(r.RepeatedExcuses)
}

// AddError records a replay error.
func (s *State) AddError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, msg)
}

// Path returns the file the state is saved to.
func (s *State) Path() string { return s.path }

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
