package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Muromi-Rikka/maptile-proxy/internal/cache"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tile"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tileservice"
)

type fakeService struct {
	data   map[tile.Key][]byte
	err    error
	resets int
	lastK  tile.Key
	called bool
}

func (f *fakeService) GetTile(_ context.Context, k tile.Key) ([]byte, error) {
	f.called = true
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.data[k]; ok {
		return b, nil
	}
	return nil, tileservice.ErrNoTileData
}

func (f *fakeService) Reset(string) { f.resets++ }

func (f *fakeService) Stats() cache.Stats {
	return cache.Stats{Size: 1, MaxSize: 4, UsagePercent: 25}
}

func newTileRouter(svc TileService) http.Handler {
	r := chi.NewRouter()
	r.Get("/tiles/{z}/{x}/{y}.{format}", Tiles(slog.Default(), svc))
	return r
}

func TestTilesSuccess(t *testing.T) {
	k := tile.New(12, 3370, 1556, "png")
	svc := &fakeService{data: map[tile.Key][]byte{k: []byte("tile-bytes")}}
	srv := newTileRouter(svc)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/12/3370/1556.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}
	if rec.Header().Get("ETag") == "" {
		t.Fatal("missing ETag")
	}
	if rec.Body.String() != "tile-bytes" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if svc.lastK != k {
		t.Fatalf("service saw key %v, want %v", svc.lastK, k)
	}
}

func TestTilesConditionalGet(t *testing.T) {
	k := tile.New(3, 6, 3, "pbf")
	svc := &fakeService{data: map[tile.Key][]byte{k: []byte("vector")}}
	srv := newTileRouter(svc)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/3/6/3.pbf", nil))
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("first response missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/tiles/3/6/3.pbf", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("304 response carried a body: %q", rec.Body.String())
	}
}

func TestTilesNonNumericParams(t *testing.T) {
	svc := &fakeService{}
	srv := newTileRouter(svc)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/abc/3370/1556.png", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if svc.called {
		t.Fatal("service consulted for malformed coordinates")
	}
}

func TestTilesErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{tileservice.ErrInvalidParameter, http.StatusBadRequest},
		{tileservice.ErrNoTileData, http.StatusNotFound},
		{tileservice.ErrLoadTimeout, http.StatusGatewayTimeout},
		{tileservice.ErrLoadFailed, http.StatusBadGateway},
	}
	for _, tc := range cases {
		svc := &fakeService{err: tc.err}
		srv := newTileRouter(svc)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/1/0/0.png", nil))
		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestTransformRoundTrip(t *testing.T) {
	body := `{"op":"wgs84:gcj02","coords":[121.473701,31.230416]}`
	rec := httptest.NewRecorder()
	Transform()(rec, httptest.NewRequest(http.MethodPost, "/v1/transform", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp transformResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Coords) != 2 {
		t.Fatalf("coords = %v", resp.Coords)
	}
	// Shanghai shifts a few hundred meters east and north under GCJ-02.
	if resp.Coords[0] <= 121.473701 || resp.Coords[0] > 121.49 {
		t.Fatalf("lon = %f", resp.Coords[0])
	}
	if math.Abs(resp.Coords[1]-31.230416) > 0.01 {
		t.Fatalf("lat = %f", resp.Coords[1])
	}
}

func TestTransformRejectsBadRequests(t *testing.T) {
	cases := []string{
		`{"op":"nope","coords":[1,2]}`,
		`{"op":"wgs84:gcj02","coords":[1,2,3],"dim":2}`,
		`{"op":"wgs84:gcj02","coords":[1,2],"dim":1}`,
		`not json`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		Transform()(rec, httptest.NewRequest(http.MethodPost, "/v1/transform", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCacheResetAndStats(t *testing.T) {
	svc := &fakeService{}

	rec := httptest.NewRecorder()
	CacheReset(slog.Default(), svc)(rec, httptest.NewRequest(http.MethodPost, "/admin/cache/reset", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if svc.resets != 1 {
		t.Fatalf("resets = %d, want 1", svc.resets)
	}

	rec = httptest.NewRecorder()
	CacheStats(svc)(rec, httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil))
	var st cache.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.MaxSize != 4 || st.UsagePercent != 25 {
		t.Fatalf("stats = %+v", st)
	}
}
