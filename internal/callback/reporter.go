// Package callback reports a session's final result to the evaluation
// endpoint.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
)

// DefaultURL is the evaluation platform's final-result endpoint.
const DefaultURL = "https://hackathon.guvi.in/api/updateHoneyPotFinalResult"

// Payload is the body of a final-result report.
type Payload struct {
	SessionID              string                 `json:"sessionId"`
	ScamDetected           bool                   `json:"scamDetected"`
	TotalMessagesExchanged int                    `json:"totalMessagesExchanged"`
	ExtractedIntelligence  extractor.Intelligence `json:"extractedIntelligence"`
	AgentNotes             string                 `json:"agentNotes"`
}

// Reporter POSTs payloads to the endpoint.
type Reporter struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewReporter(url string, logger *slog.Logger) *Reporter {
	return &Reporter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Send delivers p and returns the HTTP status. Any status outside 2xx is an
// error.
func (r *Reporter) Send(ctx context.Context, p Payload) (int, error) {
	p.ExtractedIntelligence = p.ExtractedIntelligence.Normalized()
	body, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("marshal callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("callback post: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("callback status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	r.logger.Info("callback delivered", "session_id", p.SessionID, "status", resp.StatusCode,
		"complete", p.ExtractedIntelligence.Complete())
	return resp.StatusCode, nil
}
