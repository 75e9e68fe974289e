// Package router wires the public HTTP API: tile delivery, coordinate
// transforms, and cache administration.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"

	"github.com/Muromi-Rikka/maptile-proxy/internal/cache"
	"github.com/Muromi-Rikka/maptile-proxy/internal/geo"
	"github.com/Muromi-Rikka/maptile-proxy/internal/observability"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tile"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tileservice"
)

// TileService is the slice of the tile service the HTTP layer needs.
type TileService interface {
	GetTile(ctx context.Context, k tile.Key) ([]byte, error)
	Reset(trigger string)
	Stats() cache.Stats
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

// Observed wraps a handler with request metrics under a stable route label.
func Observed(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		observability.ObserveHTTP(r.Method, route, sw.status, time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Tiles serves GET /tiles/{z}/{x}/{y}.{format}. Malformed path numbers are
// rejected before the service is consulted.
func Tiles(log *slog.Logger, svc TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
		x, errX := strconv.Atoi(chi.URLParam(r, "x"))
		y, errY := strconv.Atoi(chi.URLParam(r, "y"))
		if errZ != nil || errX != nil || errY != nil {
			writeError(w, http.StatusBadRequest, "tile coordinates must be integers")
			return
		}
		format := strings.ToLower(chi.URLParam(r, "format"))

		k := tile.New(z, x, y, format)
		data, err := svc.GetTile(r.Context(), k)
		if err != nil {
			status, msg := statusFor(err)
			if status >= http.StatusInternalServerError {
				log.LogAttrs(r.Context(), slog.LevelWarn, "tile request failed",
					slog.String("tile", k.String()),
					slog.String("err", err.Error()),
				)
			}
			writeError(w, status, msg)
			return
		}

		etag := fmt.Sprintf("%q", strconv.FormatUint(xxhash.Sum64(data), 16))
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", tile.ContentType(k.Format))
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, tileservice.ErrInvalidParameter):
		return http.StatusBadRequest, "invalid tile parameters"
	case errors.Is(err, tileservice.ErrNoTileData):
		return http.StatusNotFound, "no tile data"
	case errors.Is(err, tileservice.ErrLoadTimeout):
		return http.StatusGatewayTimeout, "tile load timed out"
	case errors.Is(err, tileservice.ErrLoadFailed):
		return http.StatusBadGateway, "tile load failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 499, "client closed request"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

var transformOps = map[string]geo.PointFunc{
	"wgs84:gcj02":    geo.FromWGS84,
	"gcj02:wgs84":    geo.ToWGS84,
	"wgs84:gcjmc":    geo.WGS84ToGCJMercator,
	"gcjmc:wgs84":    geo.GCJMercatorToWGS84,
	"mercator:gcjmc": geo.MercatorToGCJMercator,
	"gcjmc:mercator": geo.GCJMercatorToMercator,
}

type transformRequest struct {
	Op     string    `json:"op"`
	Coords []float64 `json:"coords"`
	Dim    int       `json:"dim,omitempty"`
}

type transformResponse struct {
	Op     string    `json:"op"`
	Coords []float64 `json:"coords"`
	Dim    int       `json:"dim"`
}

// Transform serves POST /v1/transform, applying one of the registered
// coordinate conversions to a flat coordinate array.
func Transform() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transformRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		fn, ok := transformOps[req.Op]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown op: "+req.Op)
			return
		}
		if req.Dim == 0 {
			req.Dim = 2
		}
		if req.Dim < 2 {
			writeError(w, http.StatusBadRequest, "dim must be at least 2")
			return
		}
		if len(req.Coords)%req.Dim != 0 {
			writeError(w, http.StatusBadRequest, "coords length must be a multiple of dim")
			return
		}

		out := geo.Apply(fn, req.Coords, nil, req.Dim)
		writeJSON(w, http.StatusOK, transformResponse{Op: req.Op, Coords: out, Dim: req.Dim})
	}
}

// CacheReset serves POST /admin/cache/reset.
func CacheReset(log *slog.Logger, svc TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Reset("manual")
		log.LogAttrs(r.Context(), slog.LevelInfo, "cache reset requested")
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "reset",
			"stats":  svc.Stats(),
		})
	}
}

// CacheStats serves GET /admin/cache/stats.
func CacheStats(svc TileService) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.Stats())
	}
}
