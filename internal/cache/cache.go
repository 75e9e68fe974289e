// Package cache defines the in-memory tile cache contract used by the
// fetch orchestrator.
package cache

import "github.com/Muromi-Rikka/maptile-proxy/internal/tile"

// Stats is a point-in-time snapshot of a bounded cache.
type Stats struct {
	Size         int `json:"size"`
	MaxSize      int `json:"max_size"`
	UsagePercent int `json:"usage_percent"`
}

// TileCache is a bounded, recency-ordered byte cache keyed by tile.
type TileCache interface {
	// Get returns the cached bytes and promotes the entry to
	// most-recently-used.
	Get(k tile.Key) ([]byte, bool)
	// Set inserts or replaces the entry as most-recently-used, evicting
	// the least-recently-used entry first when at capacity.
	Set(k tile.Key, data []byte)
	Has(k tile.Key) bool
	Delete(k tile.Key) bool
	Clear()
	Len() int
	Stats() Stats
}
