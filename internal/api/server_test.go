package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/honeypot/internal/callback"
	"github.com/MikeSquared-Agency/honeypot/internal/classifier"
	"github.com/MikeSquared-Agency/honeypot/internal/phrases"
	"github.com/MikeSquared-Agency/honeypot/internal/processor"
	"github.com/MikeSquared-Agency/honeypot/internal/similarity"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
	"github.com/MikeSquared-Agency/honeypot/internal/store"
)

const testKey = "test-key"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, reportURL string) *Server {
	t.Helper()
	book := phrases.Default()
	opts := processor.Options{
		Registry:   state.NewRegistry(state.Options{Similarity: similarity.DefaultConfig(), Tactics: book.TacticPools()}, 7),
		Store:      store.NewMemory(),
		Book:       book,
		Classifier: classifier.NewHybrid(nil, classifier.NewRules(classifier.DefaultThreshold), discardLogger()),
		Policy:     callback.Policy{MinTurns: 3},
	}
	if reportURL != "" {
		opts.Reporter = callback.NewReporter(reportURL, discardLogger())
	}
	proc := processor.New(opts, discardLogger())
	return NewServer(8000, testKey, proc, discardLogger())
}

func do(t *testing.T, srv *Server, method, path, body string, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

const processBody = `{
	"sessionId": "api-1",
	"message": {"sender": "scammer", "text": "URGENT: Your SBI account will be blocked. Pay to refund@ybl now.", "timestamp": 1770005528731},
	"conversationHistory": [],
	"metadata": {"channel": "SMS", "language": "English", "locale": "IN"}
}`

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(t, srv, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if body := decode(t, w); body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestRootEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(t, srv, "GET", "/", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if body := decode(t, w); body["service"] != "honeypot" {
		t.Errorf("expected service honeypot, got %v", body["service"])
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(t, srv, "GET", "/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, "")

	if w := do(t, srv, "POST", "/process", processBody, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: expected 401, got %d", w.Code)
	}
	if w := do(t, srv, "POST", "/process", processBody, "wrong"); w.Code != http.StatusForbidden {
		t.Errorf("wrong key: expected 403, got %d", w.Code)
	}
	if w := do(t, srv, "GET", "/stats", "", testKey); w.Code != http.StatusOK {
		t.Errorf("valid key: expected 200, got %d", w.Code)
	}
}

func TestProcessEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(t, srv, "POST", "/process", processBody, testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	body := decode(t, w)
	if body["status"] != "success" {
		t.Errorf("expected success, got %v", body["status"])
	}
	if reply, _ := body["reply"].(string); strings.TrimSpace(reply) == "" {
		t.Error("expected a reply")
	}

	w = do(t, srv, "GET", "/session/api-1/intelligence", "", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("intelligence: expected 200, got %d", w.Code)
	}
	intel := decode(t, w)["extractedIntelligence"].(map[string]any)
	if upis := intel["upiIds"].([]any); len(upis) != 1 || upis[0] != "refund@ybl" {
		t.Errorf("unexpected upi ids: %v", upis)
	}

	w = do(t, srv, "GET", "/session/api-1/summary", "", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", w.Code)
	}
	if turn := decode(t, w)["turn"]; turn != float64(1) {
		t.Errorf("expected turn 1, got %v", turn)
	}

	w = do(t, srv, "GET", "/session/api-1/history", "", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", w.Code)
	}
	if turns := decode(t, w)["turns"].([]any); len(turns) != 1 {
		t.Errorf("expected 1 turn, got %d", len(turns))
	}

	w = do(t, srv, "GET", "/stats", "", testKey)
	st := decode(t, w)
	if st["sessions"] != float64(1) || st["scam_sessions"] != float64(1) || st["upi_ids"] != float64(1) {
		t.Errorf("unexpected stats: %v", st)
	}
}

func TestProcessEndpoint_BadRequests(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"sessionId":`},
		{"missing session", `{"message":{"sender":"scammer","text":"hi"}}`},
		{"missing text", `{"sessionId":"x","message":{"sender":"scammer","text":""}}`},
		{"unknown sender", `{"sessionId":"x","message":{"sender":"narrator","text":"hi"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "POST", "/process", tt.body, testKey)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			if body := decode(t, w); body["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, "")
	for _, path := range []string{"/session/nope/intelligence", "/session/nope/summary", "/session/nope/history"} {
		if w := do(t, srv, "GET", path, "", testKey); w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(t, srv, "POST", "/analyze", processBody, testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	cls := body["classification"].(map[string]any)
	if cls["is_scam"] != true {
		t.Errorf("expected a scam verdict, got %v", cls)
	}

	if w := do(t, srv, "GET", "/session/api-1/summary", "", testKey); w.Code != http.StatusNotFound {
		t.Errorf("analyze must not create a session, got %d", w.Code)
	}
}

func TestTriggerCallbackEndpoint(t *testing.T) {
	var received map[string]any
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	srv := newTestServer(t, endpoint.URL)
	do(t, srv, "POST", "/process", processBody, testKey)

	w := do(t, srv, "POST", "/session/api-1/trigger-callback", "", testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	if body := decode(t, w); body["status"] != "sent" {
		t.Errorf("expected sent, got %v", body["status"])
	}
	if received["sessionId"] != "api-1" || received["scamDetected"] != true {
		t.Errorf("unexpected payload at endpoint: %v", received)
	}

	if w := do(t, srv, "POST", "/session/nope/trigger-callback", "", testKey); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown session, got %d", w.Code)
	}
}

func TestTriggerCallbackEndpoint_Disabled(t *testing.T) {
	srv := newTestServer(t, "")
	do(t, srv, "POST", "/process", processBody, testKey)

	if w := do(t, srv, "POST", "/session/api-1/trigger-callback", "", testKey); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with reporting disabled, got %d", w.Code)
	}
}
