// Package memcache implements the bounded LRU memory tier.
package memcache

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Muromi-Rikka/maptile-proxy/internal/cache"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tile"
)

const DefaultMaxTiles = 512

// Cache is a strict-LRU tile cache with a capacity fixed at construction.
type Cache struct {
	lru     *lru.Cache[tile.Key, []byte]
	maxSize int
}

var _ cache.TileCache = (*Cache)(nil)

func New(maxTiles int) *Cache {
	if maxTiles <= 0 {
		maxTiles = DefaultMaxTiles
	}
	// lru.New only errors on a non-positive size, which is guarded above.
	c, _ := lru.New[tile.Key, []byte](maxTiles)
	return &Cache{lru: c, maxSize: maxTiles}
}

func (c *Cache) Get(k tile.Key) ([]byte, bool) {
	return c.lru.Get(k)
}

func (c *Cache) Set(k tile.Key, data []byte) {
	c.lru.Add(k, data)
}

// Has reports presence without disturbing recency order.
func (c *Cache) Has(k tile.Key) bool {
	return c.lru.Contains(k)
}

func (c *Cache) Delete(k tile.Key) bool {
	return c.lru.Remove(k)
}

func (c *Cache) Clear() {
	c.lru.Purge()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

func (c *Cache) Stats() cache.Stats {
	size := c.lru.Len()
	pct := 0
	if c.maxSize > 0 {
		pct = int(math.Round(float64(size) / float64(c.maxSize) * 100))
	}
	return cache.Stats{Size: size, MaxSize: c.maxSize, UsagePercent: pct}
}
