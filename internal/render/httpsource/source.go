// Package httpsource implements the render engine contract over an XYZ
// raster upstream.
package httpsource

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Muromi-Rikka/maptile-proxy/internal/observability"
	"github.com/Muromi-Rikka/maptile-proxy/internal/render"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tile"
)

type Engine struct {
	log         *slog.Logger
	client      *http.Client
	urlTemplate string
}

var _ render.Engine = (*Engine)(nil)

// New builds an engine fetching tiles from urlTemplate, which carries
// {z}, {x}, {y} and {format} placeholders.
func New(log *slog.Logger, client *http.Client, urlTemplate string) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log, client: client, urlTemplate: urlTemplate}
}

func (e *Engine) Resource(z, x, y int, format string) render.Resource {
	return &resource{
		eng: e,
		key: tile.New(z, x, y, format),
	}
}

func (e *Engine) Close() {
	if t, ok := e.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

type resource struct {
	eng *Engine
	key tile.Key

	mu     sync.Mutex
	state  render.State
	data   []byte
	err    error
	subs   map[int]chan render.State
	nextID int
}

func (r *resource) State() render.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *resource) Load() {
	r.mu.Lock()
	if r.state != render.StateIdle {
		r.mu.Unlock()
		return
	}
	r.state = render.StateLoading
	r.notifyLocked(render.StateLoading)
	r.mu.Unlock()

	go r.fetch()
}

func (r *resource) Subscribe() (<-chan render.State, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = make(map[int]chan render.State)
	}
	id := r.nextID
	r.nextID++
	// A resource changes state at most twice (loading, then terminal), so
	// a small buffer makes sends non-blocking.
	ch := make(chan render.State, 2)
	r.subs[id] = ch
	return ch, func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *resource) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

func (r *resource) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *resource) fetch() {
	url := r.key.FillTemplate(r.eng.urlTemplate)

	start := time.Now()
	resp, err := r.eng.client.Get(url)
	observability.ObserveUpstreamLatency("tile_origin", time.Since(start).Seconds())
	if err != nil {
		r.fail(fmt.Errorf("origin fetch %s: %w", r.key, err))
		return
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			r.eng.log.Warn("close origin response body", "err", cerr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		r.complete(render.StateEmpty, nil)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			r.fail(fmt.Errorf("origin read %s: %w", r.key, err))
			return
		}
		if len(body) == 0 {
			r.complete(render.StateEmpty, nil)
			return
		}
		r.complete(render.StateLoaded, body)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		r.fail(fmt.Errorf("origin fetch %s: status=%d body=%q",
			r.key, resp.StatusCode, strings.TrimSpace(string(b))))
	}
}

func (r *resource) complete(st render.State, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = st
	r.data = data
	r.notifyLocked(st)
}

func (r *resource) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = render.StateError
	r.err = err
	r.notifyLocked(render.StateError)
}

// notifyLocked signals every subscriber; r.mu must be held. Sends never
// block: a full buffer means a pending signal already forces the waiter to
// re-check the state.
func (r *resource) notifyLocked(st render.State) {
	for _, ch := range r.subs {
		select {
		case ch <- st:
		default:
		}
	}
}
