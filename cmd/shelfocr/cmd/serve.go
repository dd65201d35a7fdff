package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/shelfocr/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP matching API",
		Long: `Start an HTTP server for the kiosk UI.

The server provides the following endpoints:
  GET  /health                 - Health check
  POST /api/v1/match           - Identify the product in an uploaded frame
  GET  /api/v1/products        - Look products up by name or profile
  GET  /api/v1/recommendations - Recommendations per product section
  GET  /ws/match               - Stream frames over a WebSocket
  GET  /metrics                - Prometheus metrics

Examples:
  shelfocr serve
  shelfocr serve --port 8080
  shelfocr serve --host 0.0.0.0 --rate-limit-enabled`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}
	f := c.Flags()
	f.String("host", "localhost", "server host")
	f.IntP("port", "p", 5000, "server port")
	f.String("cors-origin", "*", "CORS allowed origin")
	f.Int("max-upload-size", 10, "maximum upload size in MB")
	f.Int("timeout", 30, "per request analysis timeout in seconds")
	f.Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	f.Bool("rate-limit-enabled", false, "enable per client rate limiting")
	f.Int("requests-per-minute", 60, "requests allowed per client per minute")
	f.Int("requests-per-hour", 1000, "requests allowed per client per hour")
	return c
}

// serverConfig merges the server section with the flags the user set.
func serverConfig(cmd *cobra.Command, a *app) (server.Config, time.Duration) {
	sc := a.cfg.Server
	f := cmd.Flags()
	if f.Changed("host") {
		sc.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		sc.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		sc.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("timeout") {
		sc.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}

	return server.Config{
		Host:        sc.Host,
		Port:        sc.Port,
		CORSOrigin:  sc.CORSOrigin,
		MaxUploadMB: int64(sc.MaxUploadMB),
		TimeoutSec:  sc.TimeoutSec,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimit.Enabled,
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			RequestsPerHour:   sc.RateLimit.RequestsPerHour,
		},
	}, time.Duration(sc.ShutdownTimeout) * time.Second
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	scfg, shutdown := serverConfig(cmd, a)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, db, closeAll, err := newAnalyzer(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	srv, err := server.New(scfg, analyzer, db)
	if err != nil {
		return err
	}
	slog.Info("Server configured",
		"addr", scfg.Addr(),
		"engine", a.cfg.Engine.Kind,
		"db", a.cfg.Catalog.DBPath,
		"rate_limit", scfg.RateLimit.Enabled)
	return srv.ListenAndServe(ctx, scfg, shutdown)
}
