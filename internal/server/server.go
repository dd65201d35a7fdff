// Package server exposes product matching over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/shelfocr/internal/analysis"
	"github.com/MeKo-Tech/shelfocr/internal/store"
)

// Products is the part of the store the API reads.
type Products interface {
	ProductsByName(ctx context.Context, name string, limit int) ([]store.Product, error)
	ProductsByFilter(ctx context.Context, personalColor, skinType string, limit int) ([]store.Product, error)
	RecommendByTypes(ctx context.Context, personalColor, skinType, number string, perSection int) (store.Recommendations, error)
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	RateLimit   RateLimitConfig
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
}

// DefaultConfig returns the kiosk server defaults.
func DefaultConfig() Config {
	return Config{
		Host:        "localhost",
		Port:        5000,
		CORSOrigin:  "*",
		MaxUploadMB: 10,
		TimeoutSec:  30,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Server holds the HTTP server state and dependencies.
type Server struct {
	analyzer    *analysis.Analyzer
	db          Products
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	rateLimiter *RateLimiter
}

// New creates a server for the analyzer and the product store.
func New(cfg Config, a *analysis.Analyzer, db Products) (*Server, error) {
	if a == nil {
		return nil, errors.New("server requires an analyzer")
	}
	if db == nil {
		return nil, errors.New("server requires a product store")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = DefaultConfig().MaxUploadMB
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	s := &Server{
		analyzer:    a,
		db:          db,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
	}
	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.RequestsPerHour)
	}
	return s, nil
}

// Close releases the pipeline engine.
func (s *Server) Close() error {
	return s.analyzer.Pipeline().Close()
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/api/v1/match", s.corsMiddleware(s.rateLimitMiddleware(s.matchHandler)))
	mux.HandleFunc("/api/v1/products", s.corsMiddleware(s.productsHandler))
	mux.HandleFunc("/api/v1/recommendations", s.corsMiddleware(s.recommendationsHandler))
	mux.HandleFunc("/ws/match", s.rateLimitMiddleware(s.matchWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts
// down within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg Config, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.TimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.TimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting shelfocr server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	slog.Info("HTTP server shutdown completed")
	return nil
}
