// Package api exposes the counseling pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/extract"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/llm"
)

// Counselor runs one worry through the pipeline.
type Counselor interface {
	Process(ctx context.Context, text string, prov counsel.Provenance) (*counsel.Outcome, error)
}

// SessionLister returns recent sessions, newest first.
type SessionLister interface {
	RecentSessions(ctx context.Context, limit int) ([]counsel.LogRow, error)
}

// Status is what GET /api/v1/gongja/status reports besides liveness.
type Status struct {
	Provider   string
	Model      string
	CorpusSize int
	Events     func() bool // nil when NATS is not configured
}

type Server struct {
	router    *chi.Mux
	port      int
	counselor Counselor
	sessions  SessionLister
	status    Status
	logger    *slog.Logger
}

// NewServer wires the routes. sessions may be nil when no database is configured.
func NewServer(port int, apiToken string, counselor Counselor, sessions SessionLister, status Status, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		counselor: counselor,
		sessions:  sessions,
		status:    status,
		logger:    logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/gongja/status", s.getStatus)

	router.Route("/api/v1/counsel", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/", s.counsel)
		r.Get("/sessions", s.listSessions)
	})

	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("API server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// BearerAuthMiddleware rejects requests without "Authorization: Bearer <token>".
// An empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok || got != token {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"agent":       "gongja",
		"status":      "ready",
		"provider":    s.status.Provider,
		"model":       s.status.Model,
		"corpus_size": s.status.CorpusSize,
		"sessions_db": s.sessions != nil,
	}
	if s.status.Events != nil {
		body["events_connected"] = s.status.Events()
	}
	writeJSON(w, http.StatusOK, body)
}

// CounselRequest is the body of POST /api/v1/counsel.
type CounselRequest struct {
	Text  string `json:"text"`
	Email string `json:"email,omitempty"`
}

// CounselResponse carries the outcome. Advice and SessionID are empty when
// the text was not a worry.
type CounselResponse struct {
	IsWorry         bool                          `json:"is_worry"`
	Classification  *counsel.ClassificationRecord `json:"classification"`
	Advice          *counsel.AdviceRecord         `json:"advice,omitempty"`
	SessionID       string                        `json:"session_id,omitempty"`
	PassageInSample bool                          `json:"passage_in_sample,omitempty"`
	AnalysisTime    float64                       `json:"analysis_time"`
	AdviceTime      float64                       `json:"advice_time,omitempty"`
}

// maxCounselBody caps POST /api/v1/counsel bodies.
const maxCounselBody = 64 << 10

func (s *Server) counsel(w http.ResponseWriter, r *http.Request) {
	var req CounselRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCounselBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	out, err := s.counselor.Process(r.Context(), req.Text, counsel.Provenance{Source: counsel.SourceAPI, Email: req.Email})
	if err != nil {
		s.logger.Error("counsel request failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := CounselResponse{
		IsWorry:         out.IsWorry(),
		Classification:  out.Classification,
		Advice:          out.Advice,
		PassageInSample: out.PassageInSample,
		AnalysisTime:    out.AnalysisTime.Seconds(),
		AdviceTime:      out.AdviceTime.Seconds(),
	}
	if out.Row != nil {
		resp.SessionID = out.Row.ID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusNotImplemented, "session history requires DATABASE_URL")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	rows, err := s.sessions.RecentSessions(r.Context(), limit)
	if err != nil {
		s.logger.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list sessions failed")
		return
	}
	if rows == nil {
		rows = []counsel.LogRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": rows, "count": len(rows)})
}

// statusFor maps pipeline failures: anything the model side got wrong is a
// bad gateway, a timeout is a gateway timeout.
func statusFor(err error) int {
	var te *llm.TransportError
	var ee *extract.ExtractionError
	var se *extract.SchemaError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &te), errors.As(err, &ee), errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
