package layerstore

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"weak"

	"golang.org/x/sync/singleflight"

	"github.com/arclayer/layerstore/internal/builder"
	"github.com/arclayer/layerstore/internal/ids"
	"github.com/arclayer/layerstore/internal/layer"
	"github.com/arclayer/layerstore/internal/storelog"
)

// Cached wraps a Store with a process-wide, weak-reference cache: a
// layer loaded once stays free to share with every other caller
// holding a pointer to it, but is never kept alive by the cache alone
// once the last real reference drops (spec §5's "cache never holds
// the last reference").
type Cached struct {
	backing Store

	mu      sync.Mutex
	entries map[ids.Name]weak.Pointer[layer.Layer]

	group singleflight.Group

	logger *slog.Logger
}

// NewCached wraps backing with a weak-reference cache. Logging is
// discarded until SetLogger is called.
func NewCached(backing Store) *Cached {
	return &Cached{backing: backing, entries: make(map[ids.Name]weak.Pointer[layer.Layer]), logger: storelog.Discard()}
}

// SetLogger directs this cache's debug logging (eviction) at logger
// instead of discarding it.
func (c *Cached) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

func (c *Cached) GetLayer(ctx context.Context, name ids.Name) (*layer.Layer, error) {
	if l := c.peek(name); l != nil {
		return l, nil
	}

	v, err, _ := c.group.Do(name.String(), func() (any, error) {
		if l := c.peek(name); l != nil {
			return l, nil
		}
		l, err := c.backing.GetLayer(ctx, name)
		if err != nil {
			return nil, err
		}
		c.store(name, l)
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*layer.Layer), nil
}

func (c *Cached) peek(name ids.Name) *layer.Layer {
	c.mu.Lock()
	w, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return w.Value()
}

func (c *Cached) store(name ids.Name, l *layer.Layer) {
	c.mu.Lock()
	c.entries[name] = weak.Make(l)
	c.mu.Unlock()
	runtime.AddCleanup(l, c.forget, name)
}

func (c *Cached) forget(name ids.Name) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Only remove the entry if it is still the one we cleaned up after:
	// a fresh load could have raced in and replaced it already.
	if w, ok := c.entries[name]; ok && w.Value() == nil {
		delete(c.entries, name)
		c.logger.Debug("cache eviction", "layer", name.String())
	}
}

func (c *Cached) PutLayer(ctx context.Context, l *layer.Layer) error {
	if err := c.backing.PutLayer(ctx, l); err != nil {
		return err
	}
	for cur := l; cur != nil; cur = cur.Parent() {
		c.store(cur.Name(), cur)
	}
	return nil
}

func (c *Cached) NewBaseBuilder() *builder.Builder { return builder.New(nil) }

func (c *Cached) NewChildBuilder(parent *layer.Layer) *builder.Builder {
	return builder.New(parent)
}
