// Package health serves the liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check probes one dependency. A nil error means ready.
type Check func(ctx context.Context) error

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// Readiness runs every check and reports per-dependency status, answering
// 503 if any dependency is not ready.
func Readiness(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		type resp struct {
			Status string            `json:"status"`
			Deps   map[string]string `json:"deps,omitempty"`
		}
		out := resp{Status: "ready", Deps: map[string]string{}}
		ready := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				ready = false
				out.Deps[name] = err.Error()
				continue
			}
			out.Deps[name] = "ok"
		}
		if !ready {
			out.Status = "not_ready"
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
