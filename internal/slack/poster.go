// Package slack posts result reports to an operator channel. The first
// report for a session opens a message; later reports for the same session
// are threaded under it.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/honeypot/internal/callback"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// NotifyReport posts a delivered report. With an empty thread it opens a
// new message; otherwise it replies in that thread. It returns the ts of
// the thread the report belongs to.
func (p *Poster) NotifyReport(ctx context.Context, report callback.Payload, thread string) (string, error) {
	text := formatReport(report)

	if thread != "" {
		if _, err := p.post(ctx, map[string]any{
			"channel":   p.channel,
			"thread_ts": thread,
			"text":      text,
		}); err != nil {
			return "", err
		}
		p.logger.Info("posted report follow-up to slack", "ts", thread, "session_id", report.SessionID)
		return thread, nil
	}

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("Session `%s` | %d messages exchanged", report.SessionID, report.TotalMessagesExchanged),
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	p.logger.Info("posted report to slack", "ts", ts, "session_id", report.SessionID)
	return ts, nil
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatReport(report callback.Payload) string {
	var sb strings.Builder
	intel := report.ExtractedIntelligence

	if intel.Complete() {
		sb.WriteString("*Scam report (complete)*\n")
	} else {
		sb.WriteString("*Scam report*\n")
	}

	listed := false
	for _, row := range []struct {
		label  string
		values []string
	}{
		{"Bank accounts", intel.BankAccounts},
		{"UPI IDs", intel.UPIIDs},
		{"Phishing links", intel.PhishingLinks},
		{"Phone numbers", intel.PhoneNumbers},
	} {
		if len(row.values) == 0 {
			continue
		}
		listed = true
		fmt.Fprintf(&sb, "*%s:* %s\n", row.label, strings.Join(row.values, ", "))
	}
	if !listed {
		sb.WriteString("_No payment details or contacts collected yet._\n")
	}
	if report.AgentNotes != "" {
		fmt.Fprintf(&sb, "\n%s", report.AgentNotes)
	}
	return sb.String()
}
