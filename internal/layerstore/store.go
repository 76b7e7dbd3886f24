// Package layerstore implements component E (spec §4.E): storage and
// retrieval of committed layers by name, independent of how a caller
// reached that layer (fresh commit, label lookup, or ancestor walk).
package layerstore

import (
	"context"
	"errors"

	"github.com/arclayer/layerstore/internal/builder"
	"github.com/arclayer/layerstore/internal/ids"
	"github.com/arclayer/layerstore/internal/layer"
)

// ErrNotFound is returned when a layer name is not known to the store.
var ErrNotFound = errors.New("layerstore: layer not found")

// Store persists committed layers and retrieves them by name. A
// layer's Parent pointer must itself resolve through this same store
// (GetLayer recursively loads ancestors as needed), so a layer handed
// back by GetLayer is always fully linked and queryable on its own.
type Store interface {
	// GetLayer returns the layer named name, with its full ancestor
	// chain resolved, or ErrNotFound if it is not known to the store.
	GetLayer(ctx context.Context, name ids.Name) (*layer.Layer, error)

	// PutLayer persists l (and, transitively, any of its ancestors not
	// already persisted) so that a later GetLayer(l.Name()) succeeds,
	// including from a different store handle over the same backing
	// storage.
	PutLayer(ctx context.Context, l *layer.Layer) error

	// NewBaseBuilder returns a builder for a fresh base layer.
	NewBaseBuilder() *builder.Builder

	// NewChildBuilder returns a builder staging changes on top of
	// parent, which must already be known to this store.
	NewChildBuilder(parent *layer.Layer) *builder.Builder
}
