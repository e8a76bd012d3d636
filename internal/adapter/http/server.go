package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/couchcryptid/quake-felt-service/internal/estimator"
	"github.com/couchcryptid/quake-felt-service/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// EventSource queries earthquake events for the map.
type EventSource interface {
	QueryEvents(ctx context.Context, q domain.EventQuery) ([]domain.EarthquakeEvent, error)
}

// ReportService accepts and lists felt reports.
type ReportService interface {
	ReadinessChecker
	Submit(ctx context.Context, sub service.Submission) (domain.FeltReport, error)
	List(ctx context.Context) ([]domain.FeltReport, error)
	Estimate(p domain.Perception, strategy estimator.Strategy) (float64, error)
	Strict() bool
}

// Server exposes the map and report pages, the JSON API, and health,
// readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	events     EventSource
	reports    ReportService
	pages      *pages
	logger     *slog.Logger
}

const (
	defaultWriteTimeout = 90 * time.Second
	writeTimeoutMargin  = 10 * time.Second
)

// NewServer wires every route behind the access-log middleware.
// fetchBudget is the longest an event query may spend upstream; the write
// timeout is kept above it so a slow query still gets its response.
func NewServer(addr string, events EventSource, reports ReportService, fetchBudget time.Duration, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      accessLog(logger)(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: max(defaultWriteTimeout, fetchBudget+writeTimeoutMargin),
			IdleTimeout:  60 * time.Second,
		},
		events:  events,
		reports: reports,
		pages:   mustParsePages(),
		logger:  logger,
	}

	mux.HandleFunc("GET /{$}", s.handleMap)
	mux.HandleFunc("GET /earthquakes", s.handleEarthquakes)
	mux.HandleFunc("GET /earthquakes.geojson", s.handleEarthquakesGeoJSON)
	mux.HandleFunc("GET /report_earthquake", s.handleReportForm)
	mux.HandleFunc("POST /report_earthquake", s.handleReportJSON)
	mux.HandleFunc("POST /submit_report", s.handleSubmitForm)
	mux.HandleFunc("GET /reports", s.handleListReports)
	mux.HandleFunc("GET /estimate", s.handleEstimate)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(reports))
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

// WriteTimeout returns the configured response write deadline.
func (s *Server) WriteTimeout() time.Duration { return s.httpServer.WriteTimeout }

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
