// Package replay runs recorded scam transcripts through the turn pipeline
// and reports how the replies behaved: full-value echoes of the
// counterpart's details and technical excuses used more than once.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/honeypot/internal/processor"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

// DefaultConcurrency bounds how many transcripts replay at once.
const DefaultConcurrency = 4

// Config holds the replay configuration.
type Config struct {
	Dir         string // directory of .json / .jsonl transcripts
	File        string // replay a single file only
	StatePath   string
	Concurrency int
	Fresh       bool // ignore transcripts recorded as processed
}

// Processor answers one turn.
type Processor interface {
	Process(ctx context.Context, req processor.Request) processor.Response
}

// Runner orchestrates a replay.
type Runner struct {
	cfg    Config
	proc   Processor
	logger *slog.Logger
}

// NewRunner creates a replay runner.
func NewRunner(cfg Config, proc Processor, logger *slog.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Runner{cfg: cfg, proc: proc, logger: logger}
}

// Run replays every transcript not yet processed. State is saved after each
// transcript, so an interrupted run picks up where it stopped.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	st, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	report := &Report{RunID: uuid.NewString()}
	var pending []string
	for _, path := range files {
		if !r.cfg.Fresh && st.IsProcessed(path) {
			report.Skipped++
			continue
		}
		pending = append(pending, path)
	}
	r.logger.Info("transcripts discovered", "total", len(files), "pending", len(pending), "run_id", report.RunID)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, path := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr, err := r.replayFile(gctx, report.RunID, path)
			if err != nil {
				r.logger.Warn("replay failed", "path", path, "error", err)
				st.AddError(fmt.Sprintf("%s: %v", path, err))
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}

			st.MarkProcessed(path, tr)
			if err := st.Save(); err != nil {
				r.logger.Warn("failed to save replay state", "error", err)
			}
			mu.Lock()
			report.Transcripts = append(report.Transcripts, tr)
			mu.Unlock()

			r.logger.Info("transcript replayed",
				"path", path,
				"turns", tr.Turns,
				"echo_violations", tr.EchoViolations(),
				"repeated_excuses", len(tr.RepeatedExcuses),
			)
			return nil
		})
	}
	err = g.Wait()

	if serr := st.Save(); serr != nil {
		r.logger.Warn("failed to save replay state", "error", serr)
	}
	if err != nil {
		r.logger.Info("replay interrupted, state saved", "path", st.Path())
		return report, err
	}
	return report, nil
}

// replayFile feeds the transcript's counterpart messages through the
// processor one turn at a time, carrying the growing conversation as
// history the way a live caller would.
func (r *Runner) replayFile(ctx context.Context, runID, path string) (TranscriptReport, error) {
	t, err := ParseFile(path)
	if err != nil {
		return TranscriptReport{}, err
	}
	incoming := t.Counterpart()
	if len(incoming) == 0 {
		return TranscriptReport{}, fmt.Errorf("no counterpart messages")
	}

	sessionID := runID[:8] + "-" + t.SessionID
	var history []processor.Message
	texts := make([]string, 0, len(incoming))
	replies := make([]string, 0, len(incoming))
	for _, m := range incoming {
		if err := ctx.Err(); err != nil {
			return TranscriptReport{}, err
		}
		resp := r.proc.Process(ctx, processor.Request{
			SessionID:           sessionID,
			Message:             m,
			ConversationHistory: history,
		})
		texts = append(texts, m.Text)
		replies = append(replies, resp.Reply)
		history = append(history, m, processor.Message{Sender: state.Agent, Text: resp.Reply})
	}

	rep := Analyze(texts, replies)
	rep.Path = path
	rep.SessionID = sessionID
	return rep, nil
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.File != "" {
		if _, err := os.Stat(r.cfg.File); err != nil {
			return nil, err
		}
		return []string{r.cfg.File}, nil
	}
	if r.cfg.Dir == "" {
		return nil, fmt.Errorf("no transcript directory or file given")
	}

	var files []string
	err := filepath.WalkDir(r.cfg.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".jsonl":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
