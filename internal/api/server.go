// Package api exposes the HTTP interface for the counter service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alvarolinarescabre/href-counter/internal/analyzer"
	"github.com/alvarolinarescabre/href-counter/internal/config"
	"github.com/alvarolinarescabre/href-counter/internal/pipeline"
	"github.com/alvarolinarescabre/href-counter/internal/telemetry"
)

// Server wires HTTP handlers to the analysis pipeline.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(p *pipeline.Pipeline, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		pipeline: p,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.observeMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/", s.index)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/count", s.countURL)
		r.Get("/sites", s.countSites)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"paths": "/healthz | /readyz | /metrics | /v1/count?url=... | /v1/sites",
		"sites": len(s.cfg.Analyzer.Sites),
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) countURL(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	count, err := s.pipeline.Analyze(r.Context(), rawURL)
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"url": rawURL, "count": count})
}

func (s *Server) countSites(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	results := s.pipeline.AnalyzeAll(r.Context())

	s.writeJSON(w, http.StatusOK, map[string]any{
		"data":               results,
		"urls_processed":     len(results),
		"total_time_seconds": time.Since(start).Seconds(),
	})
}

// statusForError maps the fetch error taxonomy onto transport status
// codes: malformed input is the caller's fault, everything upstream is a
// gateway-class failure.
func statusForError(err error) int {
	var exhausted *analyzer.ExhaustedError
	var statusErr *analyzer.StatusError
	switch {
	case errors.Is(err, analyzer.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, analyzer.ErrSessionClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &exhausted):
		return http.StatusGatewayTimeout
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// observeMiddleware logs each completed request and feeds the HTTP
// request collectors. The route pattern is resolved after the handler
// runs, once chi has matched it.
func (s *Server) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		elapsed := time.Since(start)
		telemetry.ObserveHTTPRequest(r.Method, route, ww.status, elapsed)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
