// Package http is the service's HTTP boundary: query validation, JSON
// responses, feed passthrough, report endpoints and the operational routes.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/pulse-feed-service/internal/aggregator"
	"github.com/couchcryptid/pulse-feed-service/internal/domain"
	"github.com/couchcryptid/pulse-feed-service/internal/reports"
)

// Updates answers the local and global update queries.
type Updates interface {
	Local(ctx context.Context, q aggregator.LocalQuery) (aggregator.Result, error)
	Global(ctx context.Context, q aggregator.GlobalQuery) (aggregator.Result, error)
}

// ReportSubmitter accepts new user reports.
type ReportSubmitter interface {
	Submit(ctx context.Context, sub reports.Submission) (domain.Feature, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Updates   Updates
	Feeds     []aggregator.Fetcher // served at /feeds/{source}
	Reports   domain.ReportStore
	Submitter ReportSubmitter
	Ready     sharedobs.ReadinessChecker
}

// Server exposes the API, health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	feeds      map[string]aggregator.Fetcher
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every route registered.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// Local queries wait on the slowest feed (FIRMS, 20s by default).
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		feeds:  make(map[string]aggregator.Fetcher, len(deps.Feeds)),
		logger: logger,
	}
	for _, f := range deps.Feeds {
		s.feeds[f.Source()] = f
	}

	mux.HandleFunc("GET /updates/local", s.handleLocalUpdates)
	mux.HandleFunc("GET /updates/global", s.handleGlobalUpdates)
	mux.HandleFunc("GET /feeds/{source}", s.handleFeed)
	mux.HandleFunc("GET /reports", s.handleListReports)
	mux.HandleFunc("GET /reports/near", s.handleNearReports)
	mux.HandleFunc("POST /reports", s.handleSubmitReport)
	mux.HandleFunc("POST /reports/clear", s.handleClearReports)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer.Handler = requestID(accessLog(logger, mux))
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": domain.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	sharedobs.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
