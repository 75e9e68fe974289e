// Package server assembles the HTTP surface and runs it until shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Muromi-Rikka/maptile-proxy/internal/config"
	"github.com/Muromi-Rikka/maptile-proxy/internal/health"
	imw "github.com/Muromi-Rikka/maptile-proxy/internal/middleware"
	"github.com/Muromi-Rikka/maptile-proxy/internal/router"
)

type Deps struct {
	Service router.TileService

	// Ready holds per-dependency readiness probes (redis, kafka, ...).
	Ready map[string]health.Check

	// Metrics overrides the default promhttp handler when the ops
	// registry is enabled.
	Metrics http.Handler
}

func NewHandler(logger *slog.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(imw.Recover())
	r.Use(imw.Logging(logger))
	r.Use(imw.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(deps.Ready))

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Get("/tiles/{z}/{x}/{y}.{format}", router.Observed("/tiles", router.Tiles(logger, deps.Service)))
	r.Post("/v1/transform", router.Observed("/v1/transform", router.Transform()))
	r.Post("/admin/cache/reset", router.Observed("/admin/cache/reset", router.CacheReset(logger, deps.Service)))
	r.Get("/admin/cache/stats", router.Observed("/admin/cache/stats", router.CacheStats(deps.Service)))

	return r
}

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(logger, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
