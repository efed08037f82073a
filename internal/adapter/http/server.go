package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/sismos-dashboard/internal/analysis"
	"github.com/couchcryptid/sismos-dashboard/internal/domain"
	"github.com/couchcryptid/sismos-dashboard/internal/pipeline"
)

// SnapshotSource provides the latest cleaned data. pipeline.Refresher
// implements it.
type SnapshotSource interface {
	sharedobs.ReadinessChecker
	Snapshot() *pipeline.Snapshot
}

// Options configures the dashboard server.
type Options struct {
	Addr                string
	SourceURL           string
	MapboxToken         string
	DefaultMinMagnitude float64
	// Live serves GET /ws. Nil disables live updates.
	Live http.Handler
}

// Server exposes the dashboard page, its JSON API, and the health, readiness
// and metrics endpoints.
type Server struct {
	httpServer *http.Server
	source     SnapshotSource
	opts       Options
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers every route.
func NewServer(opts Options, source SnapshotSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		source: source,
		opts:   opts,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/quakes", s.handleQuakes)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/charts", s.handleCharts)
	if opts.Live != nil {
		mux.Handle("GET /ws", opts.Live)
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(source))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type quakesResponse struct {
	MinMagnitude float64        `json:"min_magnitude"`
	Count        int            `json:"count"`
	Quakes       []domain.Quake `json:"quakes"`
}

type summaryResponse struct {
	FetchedAt time.Time              `json:"fetched_at"`
	SourceURL string                 `json:"source_url"`
	Count     int                    `json:"count"`
	Report    domain.CleanReport     `json:"report"`
	Warnings  []string               `json:"warnings"`
	Stats     []analysis.ColumnStats `json:"stats"`
}

func (s *Server) handleQuakes(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.requireSnapshot(w)
	if !ok {
		return
	}
	minMagnitude, ok := s.minMagnitude(w, r)
	if !ok {
		return
	}
	filtered, err := snap.Table.FilterMinMagnitude(minMagnitude)
	if err != nil {
		s.internalError(w, "filter quakes", err)
		return
	}
	quakes := filtered.Quakes()
	if quakes == nil {
		quakes = []domain.Quake{}
	}
	writeJSON(w, http.StatusOK, quakesResponse{
		MinMagnitude: minMagnitude,
		Count:        len(quakes),
		Quakes:       quakes,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.requireSnapshot(w)
	if !ok {
		return
	}
	warnings := snap.Report.Warnings()
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		FetchedAt: snap.FetchedAt,
		SourceURL: s.opts.SourceURL,
		Count:     snap.Table.Len(),
		Report:    snap.Report,
		Warnings:  warnings,
		Stats:     snap.Table.Describe(),
	})
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.requireSnapshot(w)
	if !ok {
		return
	}
	minMagnitude, ok := s.minMagnitude(w, r)
	if !ok {
		return
	}
	charts, err := analysis.BuildCharts(snap.Table, minMagnitude)
	if err != nil {
		s.internalError(w, "build charts", err)
		return
	}
	writeJSON(w, http.StatusOK, charts)
}

// requireSnapshot writes 503 when no data has been loaded yet.
func (s *Server) requireSnapshot(w http.ResponseWriter) (*pipeline.Snapshot, bool) {
	snap := s.source.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "quake data not loaded yet",
		})
		return nil, false
	}
	return snap, true
}

// minMagnitude reads ?min_magnitude=, falling back to the configured default.
// Invalid values are answered with 400.
func (s *Server) minMagnitude(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("min_magnitude")
	if raw == "" {
		return s.opts.DefaultMinMagnitude, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err == nil {
		err = analysis.ValidateThreshold(v)
	}
	if err != nil {
		msg := "min_magnitude must be a number"
		if errors.Is(err, analysis.ErrThresholdRange) {
			msg = analysis.ErrThresholdRange.Error()
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return 0, false
	}
	return v, true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": op + " failed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}
