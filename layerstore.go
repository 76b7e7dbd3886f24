// Package layerstore is a layered, append-only triple store: databases
// are named pointers (labels) at an immutable chain of layers, where
// each layer is a delta of added and removed (subject, predicate,
// object) triples over its parent. Layers are shared and cached across
// every database that references them, so branching a database or
// rolling back to an earlier point costs nothing beyond creating a new
// label pointing at an existing layer.
//
// Most callers only need Store, Database, DatabaseLayer, and
// DatabaseLayerBuilder: open a store with OpenMemoryStore or
// OpenDirectoryStore, create or open a Database by name, and build on
// top of its current head.
package layerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/arclayer/layerstore/internal/builder"
	"github.com/arclayer/layerstore/internal/ids"
	"github.com/arclayer/layerstore/internal/labelstore"
	"github.com/arclayer/layerstore/internal/layer"
	intlayerstore "github.com/arclayer/layerstore/internal/layerstore"
	"github.com/arclayer/layerstore/internal/storeconfig"
	"github.com/arclayer/layerstore/internal/storelog"
	"github.com/arclayer/layerstore/internal/triple"
)

// Store holds a set of layers and the named labels pointing at them.
type Store struct {
	labels labelstore.Store
	layers intlayerstore.Store
}

// newStore wires a label store and layer store together.
func newStore(labels labelstore.Store, layers intlayerstore.Store) *Store {
	return &Store{labels: labels, layers: layers}
}

// OpenMemoryStore opens a store that holds everything in memory. It is
// useful for tests, or for a store that only ever needs to live as
// long as the process does.
func OpenMemoryStore() *Store {
	return newStore(labelstore.NewMemory(), intlayerstore.NewCached(intlayerstore.NewMemory()))
}

// OpenDirectoryStore opens (creating if necessary) a store that
// persists labels and layers under path. Configuration is loaded from
// an optional store.toml under path (internal/storeconfig); its
// defaults apply when the file is absent.
func OpenDirectoryStore(path string) (*Store, error) {
	cfg, err := storeconfig.Load(filepath.Join(path, "store.toml"))
	if err != nil {
		return nil, fmt.Errorf("layerstore: loading config: %w", err)
	}

	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.LogLevel)) // unrecognized level falls back to Info
	logger := storelog.New(storelog.Options{
		Level:    level,
		JSON:     cfg.LogJSON,
		FilePath: cfg.LogFilePath,
	})

	labels, err := labelstore.NewDirectory(path)
	if err != nil {
		return nil, fmt.Errorf("layerstore: opening label store: %w", err)
	}
	labels.SetLockTimeout(cfg.LabelLockTimeout())
	labels.SetLogger(logger)

	layers, err := intlayerstore.NewDirectory(path)
	if err != nil {
		return nil, fmt.Errorf("layerstore: opening layer store: %w", err)
	}
	layers.SetBlockSize(cfg.DictionaryBlockSize)
	layers.SetLogger(logger)

	if !cfg.CacheEnabled {
		return newStore(labels, layers), nil
	}
	cached := intlayerstore.NewCached(layers)
	cached.SetLogger(logger)
	return newStore(labels, cached), nil
}

// Create makes a new, empty database under name. It returns
// ErrAlreadyExists if a database by that name is already present.
func (s *Store) Create(ctx context.Context, name string) (*Database, error) {
	label, err := s.labels.CreateLabel(ctx, name)
	if err != nil {
		if errors.Is(err, labelstore.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s: %w", ErrAlreadyExists, name, err)
		}
		return nil, err
	}
	return &Database{label: label.Name, store: s}, nil
}

// Open returns the existing database named name, or ErrNotFound if no
// such database exists.
func (s *Store) Open(ctx context.Context, name string) (*Database, error) {
	label, err := s.labels.GetLabel(ctx, name)
	if err != nil {
		if errors.Is(err, labelstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, name, err)
		}
		return nil, err
	}
	return &Database{label: label.Name, store: s}, nil
}

// CreateBaseLayer starts building a new layer with no parent,
// unattached to any database. Use Database.SetHead once it is
// committed to attach it somewhere.
func (s *Store) CreateBaseLayer() *DatabaseLayerBuilder {
	return &DatabaseLayerBuilder{builder: s.layers.NewBaseBuilder(), store: s}
}

// Database is a named label pointing at a layer. Databases are
// read-only at any given instant: advancing one just swaps the label
// to point at a new layer, via compare-and-swap against the label
// version SetHead reads at its start.
type Database struct {
	label string
	store *Store
}

// Name returns the database's label name.
func (d *Database) Name() string { return d.label }

// Head returns the layer this database currently points at, or
// ErrNotFound if the database has no layer yet (a freshly created
// database with nothing committed to it).
func (d *Database) Head(ctx context.Context) (*DatabaseLayer, error) {
	label, err := d.store.labels.GetLabel(ctx, d.label)
	if err != nil {
		if errors.Is(err, labelstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: head of %s: %w", ErrNotFound, d.label, err)
		}
		return nil, fmt.Errorf("layerstore: head of %s: %w", d.label, err)
	}
	if label.Layer.Zero() {
		return nil, fmt.Errorf("%w: %s has no committed layer", ErrNotFound, d.label)
	}
	l, err := d.store.layers.GetLayer(ctx, label.Layer)
	if err != nil {
		if errors.Is(err, intlayerstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: loading head of %s: %w", ErrNotFound, d.label, err)
		}
		return nil, fmt.Errorf("layerstore: loading head of %s: %w", d.label, err)
	}
	return &DatabaseLayer{layer: l, store: d.store}, nil
}

// SetHead advances the database to point at newHead, succeeding only
// if newHead descends from (or equals) the layer this database
// currently points at, and only if no concurrent writer moves the
// label between SetHead's own read of it and its compare-and-swap. The
// ancestry check is made against the head as of that read, not as of
// any earlier call to Head. It returns false, not
// an error, for either a stale caller or a non-descendant layer: both
// are a caller deciding to retry rather than an I/O failure.
func (d *Database) SetHead(ctx context.Context, newHead *DatabaseLayer) (bool, error) {
	current, err := d.store.labels.GetLabel(ctx, d.label)
	if err != nil {
		return false, fmt.Errorf("layerstore: set head of %s: %w", d.label, err)
	}

	if !current.Layer.Zero() {
		currentLayer, err := d.store.layers.GetLayer(ctx, current.Layer)
		if err != nil {
			return false, fmt.Errorf("layerstore: set head of %s: %w", d.label, err)
		}
		if !currentLayer.IsAncestorOf(newHead.layer) && currentLayer.Name() != newHead.layer.Name() {
			return false, nil
		}
	}

	if err := d.store.layers.PutLayer(ctx, newHead.layer); err != nil {
		return false, fmt.Errorf("layerstore: persisting %s: %w", newHead.layer.Name(), err)
	}

	_, ok, err := d.store.labels.SetLabel(ctx, current, newHead.layer.Name())
	if err != nil {
		return false, fmt.Errorf("layerstore: set head of %s: %w", d.label, err)
	}
	return ok, nil
}

// DatabaseLayer is a committed layer, retrieved from or about to be
// attached to a Store.
type DatabaseLayer struct {
	layer *layer.Layer
	store *Store
}

// Layer exposes the underlying read API (Subjects, Objects, Triples,
// TripleExists, and so on).
func (dl *DatabaseLayer) Layer() *layer.Layer { return dl.layer }

// OpenWrite starts a builder staging changes on top of this layer.
func (dl *DatabaseLayer) OpenWrite() *DatabaseLayerBuilder {
	return &DatabaseLayerBuilder{builder: dl.store.layers.NewChildBuilder(dl.layer), store: dl.store}
}

// DatabaseLayerBuilder stages triple additions and removals against a
// parent layer (or none, for a base layer) and produces a
// DatabaseLayer on Commit. It wraps a single-use internal builder;
// calling any staging method or Commit after Commit has already run
// returns ErrBuilderConsumed.
type DatabaseLayerBuilder struct {
	builder *builder.Builder
	store   *Store
}

// AddStringTriple stages an addition expressed in strings.
func (b *DatabaseLayerBuilder) AddStringTriple(t triple.StringTriple) error {
	return b.builder.AddStringTriple(t)
}

// RemoveStringTriple stages a removal expressed in strings.
func (b *DatabaseLayerBuilder) RemoveStringTriple(t triple.StringTriple) error {
	return b.builder.RemoveStringTriple(t)
}

// AddIDTriple stages an addition already resolved to ids.
func (b *DatabaseLayerBuilder) AddIDTriple(t triple.IDTriple, kind triple.ObjectKind) error {
	return b.builder.AddIDTriple(t, kind)
}

// RemoveIDTriple stages a removal already resolved to ids.
func (b *DatabaseLayerBuilder) RemoveIDTriple(t triple.IDTriple, kind triple.ObjectKind) error {
	return b.builder.RemoveIDTriple(t, kind)
}

// Commit resolves every staged operation against the parent chain,
// persists the finished layer to the store this builder came from,
// and returns it wrapped as a DatabaseLayer. Commit may be called only
// once.
func (b *DatabaseLayerBuilder) Commit(ctx context.Context) (*DatabaseLayer, error) {
	name, err := ids.New()
	if err != nil {
		return nil, fmt.Errorf("layerstore: generating layer name: %w", err)
	}
	l, err := b.builder.Commit(name)
	if err != nil {
		return nil, err
	}
	if err := b.store.layers.PutLayer(ctx, l); err != nil {
		return nil, fmt.Errorf("layerstore: persisting %s: %w", name, err)
	}
	return &DatabaseLayer{layer: l, store: b.store}, nil
}
