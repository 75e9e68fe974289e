package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.TileFormat != "png" {
		t.Fatalf("TileFormat = %q", cfg.TileFormat)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("durable tier should be disabled by default")
	}
	if cfg.CacheMaxTiles != 512 {
		t.Fatalf("CacheMaxTiles = %d", cfg.CacheMaxTiles)
	}
	if cfg.TileLoadTimeout != 30*time.Second {
		t.Fatalf("TileLoadTimeout = %v", cfg.TileLoadTimeout)
	}
	if cfg.Invalidation.Enabled {
		t.Fatalf("invalidation should be disabled by default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("TILE_FORMAT", "WEBP")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_MAX_TILES", "64")
	t.Setenv("CACHE_RESET_INTERVAL", "5m")
	t.Setenv("TILE_LOAD_TIMEOUT", "100ms")
	t.Setenv("INVALIDATION_ENABLED", "true")
	t.Setenv("STORE_TTL", "24h")

	cfg := FromEnv()
	if cfg.Addr != ":9000" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.TileFormat != "webp" {
		t.Fatalf("TileFormat should lowercase: %q", cfg.TileFormat)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.CacheMaxTiles != 64 {
		t.Fatalf("CacheMaxTiles = %d", cfg.CacheMaxTiles)
	}
	if cfg.CacheResetInterval != 5*time.Minute {
		t.Fatalf("CacheResetInterval = %v", cfg.CacheResetInterval)
	}
	if cfg.TileLoadTimeout != 100*time.Millisecond {
		t.Fatalf("TileLoadTimeout = %v", cfg.TileLoadTimeout)
	}
	if !cfg.Invalidation.Enabled {
		t.Fatalf("invalidation should be enabled")
	}
	if cfg.StoreTTL != 24*time.Hour {
		t.Fatalf("StoreTTL = %v", cfg.StoreTTL)
	}
}

func TestFromEnv_ZoomRangeSanity(t *testing.T) {
	t.Setenv("INVALIDATE_ZOOM_MIN", "10")
	t.Setenv("INVALIDATE_ZOOM_MAX", "4")
	cfg := FromEnv()
	if cfg.InvalidateZoomMax < cfg.InvalidateZoomMin {
		t.Fatalf("zoom range not normalized: %d..%d", cfg.InvalidateZoomMin, cfg.InvalidateZoomMax)
	}

	t.Setenv("INVALIDATE_ZOOM_MIN", "-3")
	cfg = FromEnv()
	if cfg.InvalidateZoomMin != 0 {
		t.Fatalf("negative zoom min should clamp to 0, got %d", cfg.InvalidateZoomMin)
	}
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_MAX_TILES", "not-a-number")
	t.Setenv("TILE_LOAD_TIMEOUT", "soon")
	cfg := FromEnv()
	if cfg.CacheMaxTiles != 512 {
		t.Fatalf("unparsable int should keep the default, got %d", cfg.CacheMaxTiles)
	}
	if cfg.TileLoadTimeout != 30*time.Second {
		t.Fatalf("unparsable duration should keep the default, got %v", cfg.TileLoadTimeout)
	}
}
