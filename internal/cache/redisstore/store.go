// Package redisstore implements the durable tile tier on Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/Muromi-Rikka/maptile-proxy/internal/observability"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tile"
)

type Option func(*Store)

// WithTTL sets an expiry on stored tiles. Zero keeps them until an explicit
// delete, which is the default for a durable tier.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithURLTemplate sets the template used by URLFor, with {z}, {x}, {y} and
// {format} placeholders.
func WithURLTemplate(tpl string) Option {
	return func(s *Store) { s.urlTemplate = tpl }
}

func WithPoolSize(n int) Option {
	return func(s *Store) { s.opts.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(s *Store) { s.opts.DialTimeout = d }
}

type Store struct {
	rdb         *redis.Client
	opts        *redis.Options
	ttl         time.Duration
	urlTemplate string
}

func New(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	s := &Store{
		opts: &redis.Options{
			Addr:         addr,
			PoolSize:     64,
			MinIdleConns: 4,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
			MaintNotificationsConfig: &maintnotifications.Config{
				Mode: maintnotifications.ModeDisabled,
			},
		},
		urlTemplate: "/tiles/{z}/{x}/{y}.{format}",
	}
	for _, f := range opts {
		f(s)
	}

	s.rdb = redis.NewClient(s.opts)

	start := time.Now()
	err := s.rdb.Ping(ctx).Err()
	observability.ObserveStoreOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = s.rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return s, nil
}

func (s *Store) Exists(ctx context.Context, k tile.Key) (bool, error) {
	start := time.Now()
	n, err := s.rdb.Exists(ctx, k.StoreKey()).Result()
	observability.ObserveStoreOp("exists", err, time.Since(start).Seconds())
	if err != nil {
		return false, fmt.Errorf("redis EXISTS %s: %w", k, err)
	}
	return n > 0, nil
}

// Get returns the stored tile bytes; the second return is false when the
// tile is absent.
func (s *Store) Get(ctx context.Context, k tile.Key) ([]byte, bool, error) {
	start := time.Now()
	data, err := s.rdb.Get(ctx, k.StoreKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveStoreOp("get", nil, time.Since(start).Seconds())
		return nil, false, nil
	}
	observability.ObserveStoreOp("get", err, time.Since(start).Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", k, err)
	}
	return data, true, nil
}

func (s *Store) Put(ctx context.Context, k tile.Key, data []byte) error {
	start := time.Now()
	err := s.rdb.Set(ctx, k.StoreKey(), data, s.ttl).Err()
	observability.ObserveStoreOp("put", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis SET %s: %w", k, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, k tile.Key) error {
	start := time.Now()
	err := s.rdb.Del(ctx, k.StoreKey()).Err()
	observability.ObserveStoreOp("del", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis DEL %s: %w", k, err)
	}
	return nil
}

// URLFor renders the public URL the tile would be served from.
func (s *Store) URLFor(k tile.Key) string {
	return k.FillTemplate(s.urlTemplate)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
