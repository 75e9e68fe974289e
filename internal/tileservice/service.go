// Package tileservice resolves tile requests through the cache tiers and
// the origin render engine, and owns the cache lifecycle.
package tileservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Muromi-Rikka/maptile-proxy/internal/cache"
	"github.com/Muromi-Rikka/maptile-proxy/internal/observability"
	"github.com/Muromi-Rikka/maptile-proxy/internal/render"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tile"
)

// DurableStore is the remote persistent tier. All methods may fail
// transiently; the service treats read failures as misses and write
// failures as skipped writes.
type DurableStore interface {
	Get(ctx context.Context, k tile.Key) ([]byte, bool, error)
	Put(ctx context.Context, k tile.Key, data []byte) error
	Delete(ctx context.Context, k tile.Key) error
}

// EngineFactory builds a fresh render engine. The lifecycle manager invokes
// it on every reset to bound unbounded engine-internal state.
type EngineFactory func() render.Engine

type Options struct {
	Logger *slog.Logger
	Mem    cache.TileCache
	// Store is optional; nil disables the durable tier.
	Store       DurableStore
	NewEngine   EngineFactory
	LoadTimeout time.Duration
	// StoreOpTimeout bounds each durable-tier call.
	StoreOpTimeout time.Duration
}

type engineBox struct {
	e render.Engine
}

type Service struct {
	log            *slog.Logger
	mem            cache.TileCache
	store          DurableStore
	newEngine      EngineFactory
	engine         atomic.Pointer[engineBox]
	gen            atomic.Uint64
	loadTimeout    time.Duration
	storeOpTimeout time.Duration
}

func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	if opts.StoreOpTimeout <= 0 {
		opts.StoreOpTimeout = 250 * time.Millisecond
	}
	s := &Service{
		log:            opts.Logger,
		mem:            opts.Mem,
		store:          opts.Store,
		newEngine:      opts.NewEngine,
		loadTimeout:    opts.LoadTimeout,
		storeOpTimeout: opts.StoreOpTimeout,
	}
	s.engine.Store(&engineBox{e: opts.NewEngine()})
	return s
}

// GetTile resolves one tile: memory tier, durable tier, then the origin
// engine bounded by the load timeout. Each tier is consulted at most once
// and only if every earlier tier missed.
func (s *Service) GetTile(ctx context.Context, k tile.Key) ([]byte, error) {
	if !k.Valid() {
		observability.ObserveTileOutcome("invalid")
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrInvalidParameter, k.Z, k.X, k.Y)
	}

	// The generation and engine are snapshotted together so a lifecycle
	// reset during this request is detected at write-back time.
	gen := s.gen.Load()
	eng := s.engine.Load().e

	if data, ok := s.mem.Get(k); ok {
		observability.ObserveTileOutcome("memory_hit")
		return data, nil
	}

	if s.store != nil {
		data, ok, err := s.durableGet(ctx, k)
		if err != nil {
			s.log.Warn("durable tier read failed, treating as miss", "tile", k.String(), "err", err)
		} else if ok {
			observability.ObserveTileOutcome("durable_hit")
			s.memSet(gen, k, data)
			return data, nil
		}
	}

	start := time.Now()
	data, err := s.loadFromOrigin(ctx, eng, k)
	if err != nil {
		return nil, err
	}
	observability.ObserveTileOutcome("origin")
	s.log.Debug("tile resolved at origin", "tile", k.String(), "bytes", len(data), "dur", time.Since(start).String())

	s.memSet(gen, k, data)
	if s.store != nil {
		// Off the critical path: the response does not wait for the
		// durable write, and its failure is only logged.
		go s.durablePut(k, data)
	}
	return data, nil
}

func (s *Service) loadFromOrigin(ctx context.Context, eng render.Engine, k tile.Key) ([]byte, error) {
	res := eng.Resource(k.Z, k.X, k.Y, k.Format)

	st := res.State()
	if !st.Terminal() {
		res.Load()

		ch, cancel := res.Subscribe()
		defer cancel()

		timer := time.NewTimer(s.loadTimeout)
		defer timer.Stop()

		for st = res.State(); !st.Terminal(); st = res.State() {
			select {
			case <-ch:
			case <-timer.C:
				observability.ObserveTileOutcome("timeout")
				return nil, fmt.Errorf("%w: %s after %s", ErrLoadTimeout, k, s.loadTimeout)
			case <-ctx.Done():
				observability.ObserveTileOutcome("canceled")
				return nil, ctx.Err()
			}
		}
	}

	if st == render.StateError {
		observability.ObserveTileOutcome("origin_error")
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, k, res.Err())
	}

	data := res.Bytes()
	if len(data) == 0 {
		observability.ObserveTileOutcome("no_data")
		return nil, fmt.Errorf("%w: %s", ErrNoTileData, k)
	}
	return data, nil
}

// memSet writes into the memory tier unless a reset happened since gen was
// snapshotted; a stale write would pollute the new cache generation.
func (s *Service) memSet(gen uint64, k tile.Key, data []byte) {
	if s.gen.Load() != gen {
		s.log.Debug("dropping stale cache write after reset", "tile", k.String())
		return
	}
	s.mem.Set(k, data)
	st := s.mem.Stats()
	observability.SetMemCacheStats(st.Size, st.UsagePercent)
}

func (s *Service) durableGet(ctx context.Context, k tile.Key) ([]byte, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.storeOpTimeout)
	defer cancel()
	return s.store.Get(opCtx, k)
}

func (s *Service) durablePut(k tile.Key, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.storeOpTimeout)
	defer cancel()
	if err := s.store.Put(ctx, k, data); err != nil {
		s.log.Warn("durable tier write failed", "tile", k.String(), "err", err)
	}
}

// Reset clears the memory tier and swaps in a fresh engine instance.
// Requests already in flight keep their engine reference and run to
// completion; their memory write-backs are rejected by the generation
// check instead.
func (s *Service) Reset(trigger string) {
	s.gen.Add(1)
	s.mem.Clear()
	s.engine.Store(&engineBox{e: s.newEngine()})
	observability.IncCacheReset(trigger)
	observability.SetMemCacheStats(0, 0)
	s.log.Info("cache reset", "trigger", trigger, "generation", s.gen.Load())
}

// Invalidate removes the given tiles from both cache tiers. Durable-tier
// failures are logged and do not abort the remaining keys.
func (s *Service) Invalidate(ctx context.Context, keys []tile.Key) error {
	var firstErr error
	for _, k := range keys {
		s.mem.Delete(k)
		if s.store == nil {
			continue
		}
		opCtx, cancel := context.WithTimeout(ctx, s.storeOpTimeout)
		err := s.store.Delete(opCtx, k)
		cancel()
		if err != nil {
			s.log.Warn("durable tier delete failed", "tile", k.String(), "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Service) Stats() cache.Stats {
	return s.mem.Stats()
}

// Close shuts down the current engine instance.
func (s *Service) Close() {
	if box := s.engine.Load(); box != nil {
		box.e.Close()
	}
}
