// Package dashboard serves the JSON API behind the web dashboard
package dashboard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/barkeephq/barkeep/internal/agent"
	"github.com/barkeephq/barkeep/internal/poster"
	"github.com/barkeephq/barkeep/internal/quota"
)

// Server exposes sales summaries and the agent chat over HTTP
type Server struct {
	engine *agent.Engine
	quotas quota.Store
	pos    *poster.Client
	logger *zap.Logger
	token  string
	http   *http.Server
}

// requestsPerMinute bounds burst traffic per dashboard client
const requestsPerMinute = 30

// NewServer creates a dashboard server bound to addr
func NewServer(addr, token string, engine *agent.Engine, quotas quota.Store, pos *poster.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: engine,
		quotas: quotas,
		pos:    pos,
		logger: logger,
		token:  token,
	}

	r := mux.NewRouter()
	r.Use(s.authMiddleware)
	r.Use(NewRateLimiter(requestsPerMinute, logger).Middleware)
	r.HandleFunc("/api/summary", s.handleSummary).Methods("GET")
	r.HandleFunc("/api/usage", s.handleUsage).Methods("GET")
	r.HandleFunc("/api/chat", s.handleChat).Methods("POST")
	r.HandleFunc("/api/chat/clear", s.handleChatClear).Methods("POST")

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// authMiddleware enforces the static bearer token when one is configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.token {
				writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// userID identifies the dashboard user for quota and history purposes
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "dashboard"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

// handleSummary returns aggregated sales for a date range
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if from == "" {
		from = time.Now().Format("20060102")
	}
	to := r.URL.Query().Get("to")

	txns, err := s.pos.GetTransactions(r.Context(), from, to)
	if err != nil {
		s.logger.Error("summary fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	finance, err := s.pos.GetFinanceTransactions(r.Context(), from, to)
	if err != nil {
		s.logger.Error("finance fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, poster.Summarize(txns, finance))
}

// handleUsage returns the caller's agent quota usage
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	used, limit, err := s.quotas.Usage(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"used": used, "limit": limit})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string         `json:"response"`
	Charts   []string       `json:"charts"`
	Usage    map[string]int `json:"usage"`
}

// handleChat runs one agent turn for the caller. Quota is checked and
// recorded before the run starts, so an admitted run counts even if it
// fails.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	user := userID(r)
	allowed, _, err := s.quotas.Check(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !allowed {
		limits, _ := s.quotas.Limits(r.Context(), user)
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("Daily limit reached (%d requests/day). Try again tomorrow.", limits.EffectiveDailyLimit()))
		return
	}
	if err := s.quotas.Record(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	limits, _ := s.quotas.Limits(r.Context(), user)
	result, err := s.engine.Run(r.Context(), agent.RunRequest{
		UserID:        user,
		Prompt:        message,
		MaxIterations: limits.EffectiveMaxIterations(),
		Source:        agent.SourceDashboard,
	})
	if err != nil {
		s.logger.Error("dashboard agent run failed", zap.String("user_id", user), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	charts := make([]string, 0, len(result.Artifacts))
	for _, artifact := range result.Artifacts {
		charts = append(charts, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(artifact))
	}

	used, limit, _ := s.quotas.Usage(r.Context(), user)
	writeJSON(w, http.StatusOK, chatResponse{
		Response: result.Text,
		Charts:   charts,
		Usage:    map[string]int{"used": used, "limit": limit},
	})
}

// handleChatClear drops the caller's conversation history
func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearConversation(r.Context(), userID(r)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
