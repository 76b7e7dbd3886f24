// Package labelstore implements component F (spec §4.F): a store of
// named, versioned pointers at a layer, updated only through a
// compare-and-swap so that a stale writer never silently clobbers a
// concurrent update.
package labelstore

import (
	"context"
	"errors"

	"github.com/arclayer/layerstore/internal/ids"
)

// ErrNotFound is returned when a label name is not known to the store.
var ErrNotFound = errors.New("labelstore: label not found")

// ErrAlreadyExists is returned by CreateLabel when the name is taken.
var ErrAlreadyExists = errors.New("labelstore: label already exists")

// ErrInvalidFormat is returned when a label file exists but its
// content is malformed: a missing version line, a non-numeric version,
// or a layer name that isn't valid hex. This is distinct from an I/O
// error, since retrying won't help and the file needs operator
// attention.
var ErrInvalidFormat = errors.New("labelstore: malformed label file")

// Label is a named, versioned pointer at a layer. Layer is the zero
// ids.Name when the label does not yet point anywhere.
type Label struct {
	Name    string
	Layer   ids.Name
	Version uint64
}

// Store is the label store contract. SetLabel reports a commit
// conflict as (false, nil), not as an error: a stale caller competing
// with a concurrent writer is an expected outcome, not a failure the
// caller needs a typed error to distinguish from I/O failure.
type Store interface {
	CreateLabel(ctx context.Context, name string) (Label, error)
	GetLabel(ctx context.Context, name string) (Label, error)
	// SetLabel advances the label to newLayer if and only if the
	// store's current version still matches current.Version. It
	// returns the resulting label, whether the swap succeeded, and any
	// I/O error encountered along the way.
	SetLabel(ctx context.Context, current Label, newLayer ids.Name) (Label, bool, error)
	DeleteLabel(ctx context.Context, name string) error
}
