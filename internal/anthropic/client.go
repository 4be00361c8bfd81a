// Package anthropic is a minimal client for the Messages API, used for reply
// generation and optional scam classification.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"

	// DefaultRetries is how many times an overloaded or rate-limited call
	// is retried.
	DefaultRetries = 2
)

// Roles accepted in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Client struct {
	apiKey  string
	model   string
	url     string
	client  *http.Client
	retries int
	backoff time.Duration
}

// NewClient creates a client. Callers bound each request with a context; the
// HTTP timeout only guards against a hung connection.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		url:     apiURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		retries: DefaultRetries,
		backoff: 500 * time.Millisecond,
	}
}

// SetTestTransport points the client at a test server and removes the retry
// delay.
func (c *Client) SetTestTransport(url string) {
	c.url = url
	c.backoff = 0
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one Messages call. Zero Temperature and TopP leave the model
// defaults in place unless Deterministic is set.
type Request struct {
	System        string
	Messages      []Message
	MaxTokens     int
	Temperature   float64
	TopP          float64
	Deterministic bool // send temperature 0
}

// Completion is the model's answer.
type Completion struct {
	Text         string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status     int
	Type       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("api error %d: %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Temporary reports whether the call may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == 529 || e.Status >= 500
}

type wireRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
}

type wireResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends req and returns the concatenated text blocks of the answer.
// Rate-limit and overload errors are retried with backoff while ctx allows.
func (c *Client) Complete(ctx context.Context, req Request) (Completion, error) {
	wire := wireRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  req.Messages,
	}
	if req.Deterministic {
		zero := 0.0
		wire.Temperature = &zero
	} else if req.Temperature > 0 {
		wire.Temperature = &req.Temperature
	}
	if req.TopP > 0 {
		wire.TopP = &req.TopP
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return Completion{}, fmt.Errorf("marshal request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		out, err := c.send(ctx, body)
		var apiErr *APIError
		if err == nil || !errors.As(err, &apiErr) || !apiErr.Temporary() || attempt >= c.retries {
			return out, err
		}

		wait := c.backoff << attempt
		if apiErr.RetryAfter > wait {
			wait = apiErr.RetryAfter
		}
		select {
		case <-ctx.Done():
			return Completion{}, fmt.Errorf("%w (after %d attempts: %v)", ctx.Err(), attempt+1, err)
		case <-time.After(wait):
		}
	}
}

func (c *Client) send(ctx context.Context, body []byte) (Completion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Type != "" {
			apiErr.Type, apiErr.Message = errResp.Error.Type, errResp.Error.Message
		}
		if secs, err := strconv.Atoi(resp.Header.Get("retry-after")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return Completion{}, apiErr
	}

	var apiResp wireResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Completion{}, fmt.Errorf("unmarshal response: %w", err)
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Completion{}, fmt.Errorf("empty response content")
	}

	return Completion{
		Text:         text.String(),
		StopReason:   apiResp.StopReason,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
	}, nil
}
