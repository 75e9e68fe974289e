package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Muromi-Rikka/maptile-proxy/internal/app/server"
	"github.com/Muromi-Rikka/maptile-proxy/internal/cache/memcache"
	"github.com/Muromi-Rikka/maptile-proxy/internal/cache/redisstore"
	"github.com/Muromi-Rikka/maptile-proxy/internal/config"
	"github.com/Muromi-Rikka/maptile-proxy/internal/health"
	"github.com/Muromi-Rikka/maptile-proxy/internal/httpclient"
	"github.com/Muromi-Rikka/maptile-proxy/internal/invalidation/kafkaconsumer"
	"github.com/Muromi-Rikka/maptile-proxy/internal/logger"
	"github.com/Muromi-Rikka/maptile-proxy/internal/metrics"
	"github.com/Muromi-Rikka/maptile-proxy/internal/render"
	"github.com/Muromi-Rikka/maptile-proxy/internal/render/httpsource"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tileservice"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// local overrides; absence is not an error
	_ = godotenv.Load()

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "tileserver",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting tileserver",
		"addr", cfg.Addr,
		"version", Version,
		"upstream", cfg.UpstreamURL,
		"redis", cfg.RedisAddr != "",
		"invalidation", cfg.Invalidation.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := map[string]health.Check{}

	var store tileservice.DurableStore
	if cfg.RedisAddr != "" {
		rs, err := redisstore.New(ctx, cfg.RedisAddr,
			redisstore.WithTTL(cfg.StoreTTL),
			redisstore.WithURLTemplate(cfg.TileURLTemplate),
		)
		if err != nil {
			appLog.Error("redis store init failed", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rs.Close() }()
		store = rs
		ready["redis"] = rs.Ping
	}

	client := httpclient.New(cfg.TileLoadTimeout)
	newEngine := func() render.Engine {
		return httpsource.New(appLog, client, cfg.UpstreamURL)
	}

	svc := tileservice.New(tileservice.Options{
		Logger:         appLog,
		Mem:            memcache.New(cfg.CacheMaxTiles),
		Store:          store,
		NewEngine:      newEngine,
		LoadTimeout:    cfg.TileLoadTimeout,
		StoreOpTimeout: cfg.StoreOpTimeout,
	})
	defer svc.Close()

	lifecycle := tileservice.NewLifecycle(appLog, svc, cfg.CacheResetInterval)
	go lifecycle.Run(ctx)

	if cfg.Invalidation.Enabled {
		consumer := kafkaconsumer.New(
			kafkaconsumer.FromConfig(cfg.Invalidation),
			svc,
			kafkaconsumer.Options{
				Logger:        appLog,
				ZoomMin:       cfg.InvalidateZoomMin,
				ZoomMax:       cfg.InvalidateZoomMax,
				DefaultFormat: cfg.TileFormat,
			},
		)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				appLog.Error("invalidation consumer exited", "err", err)
			}
		}()
	}

	deps := server.Deps{Service: svc, Ready: ready}

	if cfg.MetricsAddr != "" {
		p := metrics.Init(metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		})
		deps.Metrics = p.Handler()
		runMetricsServer(ctx, appLog, cfg.MetricsAddr, cfg.MetricsPath, p.Handler())
	}

	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// runMetricsServer exposes the ops registry on its own listener so the
// public port never serves runtime internals.
func runMetricsServer(ctx context.Context, log *slog.Logger, addr, path string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("metrics listen", "addr", addr, "path", path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server exited", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
