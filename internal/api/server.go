// Package api implements the HTTP surface: a /chat endpoint in front of
// the conversation engine and a /health probe.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kwren/emissary/internal/agent"
	"github.com/kwren/emissary/internal/buildinfo"
	"github.com/kwren/emissary/internal/llm"
)

// Chatter is the engine surface the server needs. Satisfied by
// agent.Engine; tests substitute scripted fakes.
type Chatter interface {
	Chat(ctx context.Context, message string, history []llm.Message) (string, error)
	Name() string
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address        string
	port           int
	engine         Chatter
	allowedOrigins map[string]bool
	logger         *slog.Logger
	server         *http.Server
}

// NewServer creates the API server. origins is the fixed CORS
// allow-list; requests from other origins get no CORS headers.
func NewServer(address string, port int, engine Chatter, origins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSuffix(o, "/")] = true
	}
	return &Server{
		address:        address,
		port:           port,
		engine:         engine,
		allowedOrigins: allowed,
		logger:         logger,
	}
}

// Handler builds the route table with all middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(s.withCORS(mux))
}

// Start begins serving HTTP requests and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// A turn may span several model calls, so the write window
		// has to outlast the slowest full tool-calling loop.
		WriteTimeout: 10 * time.Minute,
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// withLogging logs every request with a generated request ID.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// withCORS applies the fixed origin allow-list. Preflight requests are
// answered directly; unlisted origins receive no CORS headers, which
// lets the browser enforce the policy.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.allowedOrigins[strings.TrimSuffix(origin, "/")] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "emissary",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"status": "ok",
		"name":   s.engine.Name(),
	}, s.logger)
}

// ChatRequest is the /chat request body. History is the caller-owned
// prior conversation, replayed verbatim between the system prompt and
// the new message.
type ChatRequest struct {
	Message string        `json:"message"`
	History []llm.Message `json:"history"`
}

// ChatResponse is the /chat success body.
type ChatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	response, err := s.engine.Chat(r.Context(), req.Message, req.History)
	if err != nil {
		// Full details go to the log only; the client gets a stable,
		// non-leaking description.
		s.logger.Error("chat turn failed", "error", err)
		if errors.Is(err, agent.ErrDidNotTerminate) {
			s.errorResponse(w, http.StatusInternalServerError, "conversation did not terminate")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "model backend error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ChatResponse{Response: response}, s.logger)
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]string{"error": message}, s.logger)
}
