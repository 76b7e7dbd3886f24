package layerstore

import (
	"errors"

	"github.com/arclayer/layerstore/internal/builder"
	"github.com/arclayer/layerstore/internal/labelstore"
)

// Sentinel errors callers can check with errors.Is against anything
// this package returns. ErrBuilderConsumed is defined once in the
// internal package that raises it and aliased here so callers never
// need to import an internal package directly. ErrNotFound and
// ErrAlreadyExists are this package's own sentinels: the facade wraps
// whichever internal not-found/already-exists error it hit (label or
// layer) with one of these via %w, so callers only ever need to learn
// one pair of errors regardless of which internal store raised it.
var (
	// ErrNotFound is returned by Store.Open and Database.Head when the
	// label or layer asked for does not exist.
	ErrNotFound = errors.New("layerstore: not found")

	// ErrAlreadyExists is returned by Store.Create when a database with
	// that label already exists.
	ErrAlreadyExists = errors.New("layerstore: already exists")

	// ErrBuilderConsumed is returned by a DatabaseLayerBuilder staging
	// call or Commit made after that builder has already committed.
	ErrBuilderConsumed = builder.ErrBuilderConsumed

	// ErrUnresolvedID is returned by DatabaseLayerBuilder.Commit when a
	// staged AddIDTriple or RemoveIDTriple references an id absent from
	// the parent chain.
	ErrUnresolvedID = builder.ErrUnresolvedID

	// ErrInvalidFormat is returned when a directory-backed store reads a
	// label file whose content is malformed, as distinct from an I/O
	// failure reading it.
	ErrInvalidFormat = labelstore.ErrInvalidFormat
)
