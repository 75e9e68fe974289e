// Package observability holds the service's Prometheus metrics.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	tileResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tile_resolutions_total",
			Help: "Tile requests by resolution outcome.",
		},
		[]string{"outcome"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	storeOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_total",
			Help: "Durable store operations by outcome.",
		},
		[]string{"op", "outcome"},
	)

	storeOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Durable store operation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"op"},
	)

	memCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memcache_tiles",
			Help: "Tiles currently held by the memory tier.",
		},
	)

	memCacheUsagePercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memcache_usage_percent",
			Help: "Memory tier fill level, 0-100.",
		},
	)

	cacheResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_resets_total",
			Help: "Full cache resets by trigger.",
		},
		[]string{"trigger"},
	)

	invalidationMsgsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidation_messages_total",
			Help: "Invalidation messages by outcome.",
		},
		[]string{"outcome"},
	)

	invalidationLagSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invalidation_lag_seconds",
			Help: "Age of the most recently consumed invalidation message.",
		},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveTileOutcome records where a tile request was resolved
// (memory_hit, durable_hit, origin, or one of the failure outcomes).
func ObserveTileOutcome(outcome string) {
	tileResolutionsTotal.WithLabelValues(outcome).Inc()
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOpTotal.WithLabelValues(op, outcome).Inc()
	storeOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func SetMemCacheStats(size, usagePercent int) {
	memCacheSize.Set(float64(size))
	memCacheUsagePercent.Set(float64(usagePercent))
}

func IncCacheReset(trigger string) {
	cacheResetsTotal.WithLabelValues(trigger).Inc()
}

func IncInvalidationMsg(outcome string) {
	invalidationMsgsTotal.WithLabelValues(outcome).Inc()
}

func SetInvalidationLagSeconds(lag float64) {
	invalidationLagSeconds.Set(lag)
}
