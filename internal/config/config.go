// Package config reads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
	// InitialOldest starts a fresh consumer group at the oldest offset.
	InitialOldest bool
}

type Config struct {
	Addr     string
	LogLevel string

	// UpstreamURL is the origin tile source, with {z}/{x}/{y}/{format}
	// placeholders.
	UpstreamURL string
	TileFormat  string

	// RedisAddr enables the durable tier; empty disables it.
	RedisAddr       string
	StoreTTL        time.Duration
	StoreOpTimeout  time.Duration
	TileURLTemplate string

	CacheMaxTiles      int
	CacheResetInterval time.Duration
	TileLoadTimeout    time.Duration

	// Zoom range over which region invalidation events are expanded.
	InvalidateZoomMin int
	InvalidateZoomMax int

	Invalidation InvalidationCfg

	MetricsAddr string
	MetricsPath string
}

func FromEnv() Config {
	zoomMin := getint("INVALIDATE_ZOOM_MIN", 0)
	zoomMax := getint("INVALIDATE_ZOOM_MAX", 14)
	if zoomMin < 0 {
		zoomMin = 0
	}
	if zoomMax < zoomMin {
		zoomMax = zoomMin
	}

	return Config{
		Addr:     getenv("ADDR", ":8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		UpstreamURL: getenv("UPSTREAM_URL", "http://localhost:8081/tiles/{z}/{x}/{y}.{format}"),
		TileFormat:  strings.ToLower(getenv("TILE_FORMAT", "png")),

		RedisAddr:       getenv("REDIS_ADDR", ""),
		StoreTTL:        getduration("STORE_TTL", 0),
		StoreOpTimeout:  getduration("STORE_OP_TIMEOUT", 250*time.Millisecond),
		TileURLTemplate: getenv("TILE_URL_TEMPLATE", "/tiles/{z}/{x}/{y}.{format}"),

		CacheMaxTiles:      getint("CACHE_MAX_TILES", 512),
		CacheResetInterval: getduration("CACHE_RESET_INTERVAL", 30*time.Minute),
		TileLoadTimeout:    getduration("TILE_LOAD_TIMEOUT", 30*time.Second),

		InvalidateZoomMin: zoomMin,
		InvalidateZoomMax: zoomMax,

		Invalidation: InvalidationCfg{
			Enabled:       getbool("INVALIDATION_ENABLED", false),
			Brokers:       getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:         getenv("KAFKA_TOPIC", "tile-invalidation"),
			GroupID:       getenv("KAFKA_GROUP_ID", "maptile-proxy"),
			InitialOldest: getbool("KAFKA_INITIAL_OLDEST", false),
		},

		MetricsAddr: getenv("METRICS_ADDR", ""),
		MetricsPath: getenv("METRICS_PATH", "/metrics"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
