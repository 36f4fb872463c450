package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Psnastudent/sgp4-service/internal/auth"
	"github.com/Psnastudent/sgp4-service/internal/health"
	"github.com/Psnastudent/sgp4-service/internal/metrics"
	"github.com/Psnastudent/sgp4-service/internal/propagation"
	"github.com/Psnastudent/sgp4-service/internal/tle"
)

// Config holds the HTTP-facing settings of the server.
type Config struct {
	Addr            string
	TrustProxy      bool
	MaxBodyBytes    int64
	MaxConcurrentIP int
	MaxConcurrent   int
	WriteTimeout    time.Duration
	Auth            auth.Config
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	cfg        Config
	prop       *propagation.Propagator
	fetcher    *tle.Fetcher // nil disables the catalog route
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, logger *slog.Logger, prop *propagation.Propagator, fetcher *tle.Fetcher, checker *health.Checker) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = tle.DefaultFetchTimeout + 15*time.Second
	}

	s := &Server{
		cfg:     cfg,
		prop:    prop,
		fetcher: fetcher,
		logger:  logger,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", checker.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/v1/propagate", s.handlePropagate)
	mux.HandleFunc("POST /propagate", s.handlePropagate)
	mux.HandleFunc("GET /api/v1/engines", s.handleEngines)
	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("POST /api/v1/satellites", s.handleSatellites)

	// Build middleware chain: metrics -> request id -> logging -> auth -> limit -> mux.
	var handler http.Handler = mux
	handler = limitMiddleware(newConcurrencyLimiter(cfg.MaxConcurrentIP, cfg.MaxConcurrent), cfg.TrustProxy)(handler)
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = requestIDMiddleware(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}
