package tileservice

import (
	"context"
	"log/slog"
	"time"
)

// Lifecycle drives the periodic full-cache reset. Manual resets go through
// Service.Reset directly.
type Lifecycle struct {
	log      *slog.Logger
	svc      *Service
	interval time.Duration
}

func NewLifecycle(log *slog.Logger, svc *Service, interval time.Duration) *Lifecycle {
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{log: log, svc: svc, interval: interval}
}

// Run blocks until ctx is done, resetting the cache every interval. A
// non-positive interval disables the periodic reset.
func (l *Lifecycle) Run(ctx context.Context) {
	if l.interval <= 0 {
		l.log.Info("periodic cache reset disabled")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Info("periodic cache reset enabled", "interval", l.interval.String())
	for {
		select {
		case <-ticker.C:
			l.svc.Reset("periodic")
		case <-ctx.Done():
			return
		}
	}
}
