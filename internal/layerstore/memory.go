package layerstore

import (
	"context"
	"sync"

	"github.com/arclayer/layerstore/internal/builder"
	"github.com/arclayer/layerstore/internal/ids"
	"github.com/arclayer/layerstore/internal/layer"
)

// Memory is an in-process layer store: every layer ever committed
// through it stays reachable for the life of the process.
type Memory struct {
	mu     sync.RWMutex
	layers map[ids.Name]*layer.Layer
}

// NewMemory constructs an empty in-memory layer store.
func NewMemory() *Memory {
	return &Memory{layers: make(map[ids.Name]*layer.Layer)}
}

func (m *Memory) GetLayer(ctx context.Context, name ids.Name) (*layer.Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layers[name]
	if !ok {
		return nil, ErrNotFound
	}
	return l, nil
}

func (m *Memory) PutLayer(ctx context.Context, l *layer.Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for cur := l; cur != nil; cur = cur.Parent() {
		m.layers[cur.Name()] = cur
	}
	return nil
}

func (m *Memory) NewBaseBuilder() *builder.Builder {
	return builder.New(nil)
}

func (m *Memory) NewChildBuilder(parent *layer.Layer) *builder.Builder {
	return builder.New(parent)
}
