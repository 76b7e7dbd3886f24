package labelstore

import (
	"context"
	"sync"

	"github.com/arclayer/layerstore/internal/ids"
)

// Memory is an in-process label store, guarded by a single mutex; it
// backs OpenMemoryStore and is also useful in tests that do not want
// directory/locking behavior in the loop.
type Memory struct {
	mu     sync.Mutex
	labels map[string]Label
}

// NewMemory constructs an empty in-memory label store.
func NewMemory() *Memory {
	return &Memory{labels: make(map[string]Label)}
}

func (m *Memory) CreateLabel(ctx context.Context, name string) (Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.labels[name]; ok {
		return Label{}, ErrAlreadyExists
	}
	l := Label{Name: name}
	m.labels[name] = l
	return l, nil
}

func (m *Memory) GetLabel(ctx context.Context, name string) (Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.labels[name]
	if !ok {
		return Label{}, ErrNotFound
	}
	return l, nil
}

func (m *Memory) SetLabel(ctx context.Context, current Label, newLayer ids.Name) (Label, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.labels[current.Name]
	if !ok {
		return Label{}, false, ErrNotFound
	}
	if stored.Version != current.Version {
		return stored, false, nil
	}
	updated := Label{Name: current.Name, Layer: newLayer, Version: stored.Version + 1}
	m.labels[current.Name] = updated
	return updated, true, nil
}

func (m *Memory) DeleteLabel(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.labels[name]; !ok {
		return ErrNotFound
	}
	delete(m.labels, name)
	return nil
}
