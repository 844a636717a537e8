// Package api implements the companion HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gupshup-ai/gupshup/internal/agent"
	"github.com/gupshup-ai/gupshup/internal/buildinfo"
	"github.com/gupshup-ai/gupshup/internal/persona"
	"github.com/gupshup-ai/gupshup/internal/sample"
	"github.com/gupshup-ai/gupshup/internal/usage"
	"github.com/gupshup-ai/gupshup/internal/web"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address   string
	port      int
	companion *agent.Companion
	usage     *usage.Store
	logger    *slog.Logger
	server    *http.Server
}

// NewServer creates a new API server. The usage store is optional.
func NewServer(address string, port int, companion *agent.Companion, store *usage.Store, logger *slog.Logger) *Server {
	return &Server{
		address:   address,
		port:      port,
		companion: companion,
		usage:     store,
		logger:    logger,
	}
}

// routes builds the request mux. Split out of Start so handler tests
// can exercise the full routing table without binding a listener.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/tones", s.handleTones)
	mux.HandleFunc("GET /v1/summary", s.handleSummary)
	mux.HandleFunc("GET /v1/history", s.handleHistory)
	mux.HandleFunc("POST /v1/reset", s.handleReset)
	mux.HandleFunc("POST /v1/sample", s.handleSample)
	mux.HandleFunc("GET /v1/usage", s.handleUsage)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	web.RegisterRoutes(mux, s.companion, s.logger)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests. Blocks until the server is shut
// down or fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("API server starting", "address", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// withLogging logs every request with method, path, and duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).Truncate(time.Microsecond),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"status":  "healthy",
		"backend": s.companion.BackendStatus(),
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

// ChatRequest is the chat endpoint request body.
type ChatRequest struct {
	Message        string `json:"message"`
	Tone           string `json:"tone,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the chat endpoint response body.
type ChatResponse struct {
	Response       string `json:"response"`
	Demo           bool   `json:"demo"`
	Tone           string `json:"tone"`
	ConversationID string `json:"conversation_id"`
}

// handleChat submits one user turn.
// POST /v1/chat {"message": "hello", "tone": "friendly"}
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	convID := req.ConversationID
	if convID == "" {
		convID = uuid.New().String()
	}

	reply, err := s.companion.Submit(r.Context(), convID, req.Message, req.Tone)
	if err != nil {
		if errors.Is(err, persona.ErrUnknownProfile) {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("submit failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	tone := req.Tone
	if tone == "" {
		tone = s.companion.Tones()[0]
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ChatResponse{
		Response:       reply.Text,
		Demo:           reply.Demo,
		Tone:           tone,
		ConversationID: convID,
	}, s.logger)
}

func (s *Server) handleTones(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"tones": s.companion.Tones()}, s.logger)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("conversation_id")

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"conversation_id": convID,
		"summary":         s.companion.Summarize(convID),
		"topics":          s.companion.Topics(convID),
		"turns":           len(s.companion.History(convID)),
	}, s.logger)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("conversation_id")

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"conversation_id": convID,
		"turns":           s.companion.History(convID),
	}, s.logger)
}

// handleReset clears a conversation.
// POST /v1/reset {"conversation_id": "..."}
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.companion.Reset(req.ConversationID)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "cleared"}, s.logger)
}

// handleSample seeds a conversation with the embedded sample chat.
// POST /v1/sample {"conversation_id": "..."}
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turns, err := sample.Default()
	if err != nil {
		s.logger.Error("sample data unavailable", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "sample data unavailable")
		return
	}
	if err := s.companion.Seed(req.ConversationID, turns); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"status": "seeded", "turns": len(turns)}, s.logger)
}

// handleUsage reports aggregated interaction stats for the last 24h.
// Returns 404 when usage recording is disabled.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		s.errorResponse(w, http.StatusNotFound, "usage recording disabled")
		return
	}

	end := time.Now().Add(time.Minute)
	start := end.Add(-24 * time.Hour)

	sum, err := s.usage.Summary(start, end)
	if err != nil {
		s.logger.Error("usage summary failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "usage summary failed")
		return
	}
	byTone, err := s.usage.SummaryByTone(start, end)
	if err != nil {
		s.logger.Error("usage by tone failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "usage summary failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"total": sum, "by_tone": byTone}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{"error": message}, s.logger)
}
