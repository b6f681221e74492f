// Package api exposes triage enrichment over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lvonguyen/rapidtriage/internal/enrichment"
	"github.com/lvonguyen/rapidtriage/internal/ingestion"
	"github.com/lvonguyen/rapidtriage/internal/observability"
	"github.com/lvonguyen/rapidtriage/internal/report"
	"github.com/lvonguyen/rapidtriage/internal/triage"
)

const defaultMaxBodyBytes = 10 * 1024 * 1024

// Config configures the HTTP surface.
type Config struct {
	Version        string
	MaxBodyBytes   int64
	MaxAddresses   int // unique addresses per enrich request, 0 for no limit
	RequestTimeout time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	pipeline       *triage.Pipeline
	metrics        *observability.Metrics
	metricsHandler http.Handler
	logger         *zap.Logger
	config         Config
}

// NewServer creates the API server. metricsHandler may be nil to disable /metrics.
func NewServer(pipeline *triage.Pipeline, cfg Config, metrics *observability.Metrics, metricsHandler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Server{
		pipeline:       pipeline,
		metrics:        metrics,
		metricsHandler: metricsHandler,
		logger:         logger,
		config:         cfg,
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/enrich", s.handleEnrich)
	})

	return r
}

// requestLogger logs each request and records HTTP metrics.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.metrics.RecordRequest(r.Method, route, status, elapsed)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Health and readiness handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.config.Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	scheduler := s.pipeline.Scheduler()
	if err := scheduler.HealthCheck(r.Context()); err != nil {
		s.logger.Warn("Readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "not_ready",
			"provider": scheduler.Source(),
			"error":    err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ready",
		"provider":    scheduler.Source(),
		"concurrency": scheduler.Concurrency(),
	})
}

// Enrichment handler

// EnrichResponse is the JSON form of an enrichment report.
type EnrichResponse struct {
	Source     string            `json:"source"`
	Addresses  []string          `json:"addresses"`
	Flagged    []FlaggedEntry    `json:"flagged"`
	Clean      []string          `json:"clean"`
	Unresolved []UnresolvedEntry `json:"unresolved"`
}

// FlaggedEntry is one address with reports against it.
type FlaggedEntry struct {
	IP      string `json:"ip"`
	Reports uint64 `json:"reports"`
}

// UnresolvedEntry is one address that could not be checked.
type UnresolvedEntry struct {
	IP     string `json:"ip"`
	Reason string `json:"reason"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
				"error":     "request body too large",
				"max_bytes": maxErr.Limit,
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	addrs := ingestion.ExtractText(string(body))
	if limit := s.config.MaxAddresses; limit > 0 && addrs.Len() > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
			"error":         "too many addresses in one request",
			"addresses":     addrs.Len(),
			"max_addresses": limit,
		})
		return
	}

	rep := s.pipeline.EnrichAddresses(r.Context(), addrs)

	if wantsText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := report.Render(w, rep); err != nil {
			s.logger.Warn("Failed to write text report", zap.Error(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, NewEnrichResponse(rep))
}

// NewEnrichResponse converts a report to its JSON form.
func NewEnrichResponse(rep *enrichment.Report) EnrichResponse {
	resp := EnrichResponse{
		Source:     rep.Source,
		Addresses:  make([]string, 0, len(rep.Addresses)),
		Flagged:    make([]FlaggedEntry, 0, len(rep.Flagged)),
		Clean:      make([]string, 0, len(rep.Clean)),
		Unresolved: make([]UnresolvedEntry, 0, len(rep.Unresolved)),
	}
	for _, a := range rep.Addresses {
		resp.Addresses = append(resp.Addresses, a.String())
	}
	for _, f := range rep.Flagged {
		resp.Flagged = append(resp.Flagged, FlaggedEntry{IP: f.Address.String(), Reports: f.Outcome.ReportCount})
	}
	for _, a := range rep.Clean {
		resp.Clean = append(resp.Clean, a.String())
	}
	for _, u := range rep.Unresolved {
		resp.Unresolved = append(resp.Unresolved, UnresolvedEntry{IP: u.Address.String(), Reason: u.Outcome.Reason.String()})
	}
	return resp
}

func wantsText(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/plain") && !strings.Contains(accept, "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
