// Package api exposes the honeypot over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/honeypot/internal/callback"
	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/processor"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
	"github.com/MikeSquared-Agency/honeypot/internal/store"
)

const maxBodyBytes = 1 << 20

// Processor is what the API serves.
type Processor interface {
	Process(ctx context.Context, req processor.Request) processor.Response
	Analyze(ctx context.Context, text string, history []processor.Message) processor.Analysis
	Intelligence(ctx context.Context, id string) (extractor.Intelligence, error)
	Summary(ctx context.Context, id string) (processor.Summary, error)
	History(ctx context.Context, id string) ([]store.Turn, error)
	Stats(ctx context.Context) (processor.Stats, error)
	TriggerCallback(ctx context.Context, id string) (callback.Payload, error)
}

type Server struct {
	router *chi.Mux
	proc   Processor
	logger *slog.Logger
	srv    *http.Server
}

func NewServer(port int, apiKey string, proc Processor, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		proc:   proc,
		logger: logger,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	router.Get("/", s.root)
	router.Get("/health", s.health)

	router.Group(func(r chi.Router) {
		r.Use(APIKeyMiddleware(apiKey))
		r.Post("/process", s.process)
		r.Post("/analyze", s.analyze)
		r.Get("/stats", s.stats)
		r.Route("/session/{id}", func(r chi.Router) {
			r.Get("/intelligence", s.intelligence)
			r.Get("/summary", s.summary)
			r.Get("/history", s.history)
			r.Post("/trigger-callback", s.triggerCallback)
		})
	})

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// APIKeyMiddleware requires the x-api-key header to equal key.
func APIKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("x-api-key")
			if got == "" {
				writeError(w, http.StatusUnauthorized, "missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeError(w, http.StatusForbidden, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "honeypot",
		"status":  "running",
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.proc.Process(r.Context(), req))
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req processor.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Message.Text == "" {
		writeError(w, http.StatusBadRequest, "message.text is required")
		return
	}
	writeJSON(w, http.StatusOK, s.proc.Analyze(r.Context(), req.Message.Text, req.ConversationHistory))
}

func (s *Server) intelligence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	intel, err := s.proc.Intelligence(r.Context(), id)
	if err != nil {
		s.sessionError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":             id,
		"extractedIntelligence": intel,
	})
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sum, err := s.proc.Summary(r.Context(), id)
	if err != nil {
		s.sessionError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turns, err := s.proc.History(r.Context(), id)
	if err != nil {
		s.sessionError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": id,
		"turns":     turns,
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.proc.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) triggerCallback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payload, err := s.proc.TriggerCallback(r.Context(), id)
	switch {
	case errors.Is(err, processor.ErrNoReporter):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, state.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case err != nil && payload.SessionID != "":
		s.logger.Warn("manual callback failed", "session_id", id, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"status": "failed", "error": err.Error(), "payload": payload})
	case err != nil:
		s.sessionError(w, id, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"status": "sent", "payload": payload})
	}
}

func (s *Server) sessionError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, state.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.logger.Error("session lookup failed", "session_id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "session lookup failed")
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (processor.Request, bool) {
	var req processor.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
