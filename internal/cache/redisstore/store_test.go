package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/Muromi-Rikka/maptile-proxy/internal/tile"
)

// creates a store connected to miniredis for testing
func newMini(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	s, err := New(ctx, mr.Addr(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestPutGetExistsDelete(t *testing.T) {
	s, _ := newMini(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	k := tile.New(12, 3370, 1556, "png")

	if ok, err := s.Exists(ctx, k); err != nil || ok {
		t.Fatalf("Exists before put: ok=%v err=%v", ok, err)
	}
	if _, found, err := s.Get(ctx, k); err != nil || found {
		t.Fatalf("Get before put: found=%v err=%v", found, err)
	}

	if err := s.Put(ctx, k, []byte("tile-bytes")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := s.Exists(ctx, k); err != nil || !ok {
		t.Fatalf("Exists after put: ok=%v err=%v", ok, err)
	}
	data, found, err := s.Get(ctx, k)
	if err != nil || !found || string(data) != "tile-bytes" {
		t.Fatalf("Get after put: data=%q found=%v err=%v", data, found, err)
	}

	if err := s.Delete(ctx, k); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Exists(ctx, k); ok {
		t.Fatalf("tile survived delete")
	}
}

func TestPut_AppliesTTL(t *testing.T) {
	s, mr := newMini(t, WithTTL(time.Minute))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	k := tile.New(5, 1, 2, "png")
	if err := s.Put(ctx, k, []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ttl := mr.TTL(k.StoreKey()); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, found, err := s.Get(ctx, k); err != nil || found {
		t.Fatalf("tile should have expired: found=%v err=%v", found, err)
	}
}

func TestURLFor(t *testing.T) {
	s, _ := newMini(t, WithURLTemplate("https://cdn.example.com/t/{z}/{x}/{y}.{format}"))
	got := s.URLFor(tile.New(3, 6, 2, "webp"))
	if got != "https://cdn.example.com/t/3/6/2.webp" {
		t.Fatalf("URLFor = %q", got)
	}
}

func TestContextCancellation(t *testing.T) {
	s, _ := newMini(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	k := tile.New(1, 0, 0, "png")
	if err := s.Put(ctx, k, []byte("x")); err == nil {
		t.Fatalf("expected error on Put with canceled context")
	}
	if _, _, err := s.Get(ctx, k); err == nil {
		t.Fatalf("expected error on Get with canceled context")
	}
}
