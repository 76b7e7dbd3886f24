// Package builder implements the layer builder state machine (spec
// §4.G): a single-use staging area that accumulates additions and
// removals against a parent layer (or none, for a base layer) and,
// on Commit, resolves every staged string against the parent chain,
// assigns dense new ids for anything genuinely new, and produces an
// immutable *layer.Layer.
package builder

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/arclayer/layerstore/internal/dictionary"
	"github.com/arclayer/layerstore/internal/ids"
	"github.com/arclayer/layerstore/internal/layer"
	"github.com/arclayer/layerstore/internal/triple"
)

// State is the builder's position in its Open -> Committing ->
// Committed lifecycle.
type State int

const (
	Open State = iota
	Committing
	Committed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Committing:
		return "committing"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// ErrBuilderConsumed is returned by any staging call made after Commit
// has started, and by a second call to Commit itself.
var ErrBuilderConsumed = errors.New("builder: already committing or committed")

// ErrUnresolvedID is returned by Commit when a staged AddIDTriple or
// RemoveIDTriple references an id that does not exist anywhere in the
// parent chain. Unlike a string triple, an id carries no fallback: it
// either names something the chain already knows, or the commit fails.
var ErrUnresolvedID = errors.New("builder: referenced id not found in parent chain")

// Builder is a single-use staging area for one new layer. Builders
// default to dictionary.DefaultBlockSize for the committed layer's
// dictionaries; a store config may override it with SetBlockSize.
type Builder struct {
	mu        sync.Mutex
	state     State
	parent    *layer.Layer
	blockSize int

	stagedAdd    []triple.PartialTriple
	stagedRemove []triple.PartialTriple
}

// New creates a builder staging changes on top of parent. A nil parent
// produces a base layer.
func New(parent *layer.Layer) *Builder {
	return &Builder{parent: parent, blockSize: dictionary.DefaultBlockSize}
}

// SetBlockSize overrides the dictionary block size used at Commit. It
// must be called before any staging operation.
func (b *Builder) SetBlockSize(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > 0 {
		b.blockSize = n
	}
}

// State reports the builder's current lifecycle state.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Builder) stage(dst *[]triple.PartialTriple, t triple.PartialTriple) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return ErrBuilderConsumed
	}
	*dst = append(*dst, t)
	return nil
}

// AddStringTriple stages an addition expressed in strings.
func (b *Builder) AddStringTriple(t triple.StringTriple) error {
	return b.stage(&b.stagedAdd, t.ToUnresolved())
}

// AddIDTriple stages an addition already resolved to ids. kind
// disambiguates the object id's space for layers where a node and a
// value could otherwise share a numeric id before ranges are baked.
func (b *Builder) AddIDTriple(t triple.IDTriple, kind triple.ObjectKind) error {
	return b.stage(&b.stagedAdd, t.ToResolved(kind))
}

// RemoveStringTriple stages a removal expressed in strings. Removing a
// triple that never existed, or that exists only because this same
// commit is about to add it, is legal and simply has no net effect.
func (b *Builder) RemoveStringTriple(t triple.StringTriple) error {
	return b.stage(&b.stagedRemove, t.ToUnresolved())
}

// RemoveIDTriple stages a removal already resolved to ids.
func (b *Builder) RemoveIDTriple(t triple.IDTriple, kind triple.ObjectKind) error {
	return b.stage(&b.stagedRemove, t.ToResolved(kind))
}

// Commit resolves every staged operation, assigns new ids for strings
// the parent chain has never seen, and produces the finished layer
// under the given name. Commit may be called only once; subsequent
// calls return ErrBuilderConsumed.
func (b *Builder) Commit(name ids.Name) (*layer.Layer, error) {
	b.mu.Lock()
	if b.state != Open {
		b.mu.Unlock()
		return nil, ErrBuilderConsumed
	}
	b.state = Committing
	adds, removes, blockSize := b.stagedAdd, b.stagedRemove, b.blockSize
	b.mu.Unlock()

	newNodes, newPredicates, newValues := collectNewStrings(b.parent, adds)

	nodeDict := dictionary.Build(newNodes, blockSize)
	predicateDict := dictionary.Build(newPredicates, blockSize)
	valueDict := dictionary.Build(newValues, blockSize)

	parentCumNode, parentCumValue := nodeAndValueCumulative(b.parent)
	var parentCumPred uint64
	if b.parent != nil {
		parentCumPred = b.parent.PredicateCount()
	}

	newLayerCumNode := parentCumNode + uint64(nodeDict.Size())
	nodeResolver := func(s string) (uint64, bool) {
		if b.parent != nil {
			if id, ok := b.parent.SubjectID(s); ok {
				return id, ok
			}
		}
		if local, ok := nodeDict.IDOf(s); ok {
			return parentCumNode + local, true
		}
		return 0, false
	}
	predicateResolver := func(s string) (uint64, bool) {
		if b.parent != nil {
			if id, ok := b.parent.PredicateID(s); ok {
				return id, ok
			}
		}
		if local, ok := predicateDict.IDOf(s); ok {
			return parentCumPred + local, true
		}
		return 0, false
	}
	valueResolver := func(s string) (uint64, bool) {
		if b.parent != nil {
			if id, ok := b.parent.ObjectValueID(s); ok {
				return id, ok
			}
		}
		if local, ok := valueDict.IDOf(s); ok {
			return newLayerCumNode + parentCumValue + local, true
		}
		return 0, false
	}

	addSet := make(map[triple.IDTriple]struct{}, len(adds))
	for _, pt := range adds {
		t, fail := resolvePartial(pt, b.parent, nodeResolver, predicateResolver, valueResolver)
		switch fail {
		case failUnresolvedID:
			b.fail()
			return nil, fmt.Errorf("builder: staged addition %+v: %w", pt, ErrUnresolvedID)
		case failUnresolvedString:
			b.fail()
			return nil, fmt.Errorf("builder: could not resolve staged addition: %+v", pt)
		}
		addSet[t] = struct{}{}
	}
	removeSet := make(map[triple.IDTriple]struct{}, len(removes))
	for _, pt := range removes {
		t, fail := resolvePartial(pt, b.parent, nodeResolver, predicateResolver, valueResolver)
		switch fail {
		case failUnresolvedID:
			b.fail()
			return nil, fmt.Errorf("builder: staged removal %+v: %w", pt, ErrUnresolvedID)
		case failUnresolvedString:
			continue // removing something that never existed is a no-op
		}
		removeSet[t] = struct{}{}
	}
	// Net no-ops: a triple staged both as an addition and a removal in
	// the same commit has no effect and is dropped from both sides.
	for t := range addSet {
		if _, ok := removeSet[t]; ok {
			delete(addSet, t)
			delete(removeSet, t)
		}
	}
	// An addition already present, unremoved, in the parent chain leaves
	// the logical set unchanged and is not recorded again.
	if b.parent != nil {
		for t := range addSet {
			if b.parent.IDTripleExists(t) {
				delete(addSet, t)
			}
		}
	}

	additions := make(layer.SPOTriples, 0, len(addSet))
	for t := range addSet {
		additions = append(additions, t)
	}
	sortTriples(additions)

	var removalsPtr *layer.SPOTriples
	if b.parent != nil {
		removals := make(layer.SPOTriples, 0, len(removeSet))
		for t := range removeSet {
			removals = append(removals, t)
		}
		sortTriples(removals)
		removalsPtr = &removals
	}

	l := layer.New(layer.Spec{
		Name:          name,
		Parent:        b.parent,
		NodeDict:      nodeDict,
		PredicateDict: predicateDict,
		ValueDict:     valueDict,
		Additions:     additions,
		Removals:      removalsPtr,
	})

	b.mu.Lock()
	b.state = Committed
	b.mu.Unlock()
	return l, nil
}

func (b *Builder) fail() {
	b.mu.Lock()
	b.state = Committed
	b.mu.Unlock()
}

func sortTriples(ts layer.SPOTriples) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Subject != ts[j].Subject {
			return ts[i].Subject < ts[j].Subject
		}
		if ts[i].Predicate != ts[j].Predicate {
			return ts[i].Predicate < ts[j].Predicate
		}
		return ts[i].Object < ts[j].Object
	})
}

// nodeAndValueCumulative returns a parent layer's cumulative node and
// value counts separately, since a new value range must be offset by
// the node count alone (see layer.valueRange).
func nodeAndValueCumulative(parent *layer.Layer) (nodeCount, valueCount uint64) {
	if parent == nil {
		return 0, 0
	}
	return parent.CumulativeNodeCount(), parent.CumulativeValueCount()
}

// resolveFailure distinguishes why a staged component failed to
// resolve: an unresolved string simply wasn't found anywhere in the
// chain (legal for a removal), while an unresolved id was supplied
// pre-resolved by the caller and names nothing in the parent chain,
// which fails the whole commit with ErrUnresolvedID.
type resolveFailure int

const (
	failNone resolveFailure = iota
	failUnresolvedString
	failUnresolvedID
)

func resolvePartial(pt triple.PartialTriple, parent *layer.Layer, nodeRes, predRes, valRes func(string) (uint64, bool)) (triple.IDTriple, resolveFailure) {
	s, fail := resolveComponent(pt.Subject, nodeRes, func(id uint64) bool { return validSubjectID(parent, id) })
	if fail != failNone {
		return triple.IDTriple{}, fail
	}
	p, fail := resolveComponent(pt.Predicate, predRes, func(id uint64) bool { return validPredicateID(parent, id) })
	if fail != failNone {
		return triple.IDTriple{}, fail
	}
	var o uint64
	if pt.Object.Kind == triple.KindNode {
		o, fail = resolveComponent(pt.Object.Possible, nodeRes, func(id uint64) bool { return validSubjectID(parent, id) })
	} else {
		o, fail = resolveComponent(pt.Object.Possible, valRes, func(id uint64) bool { return validValueID(parent, id) })
	}
	if fail != failNone {
		return triple.IDTriple{}, fail
	}
	return triple.IDTriple{Subject: s, Predicate: p, Object: o}, failNone
}

// resolveComponent resolves one triple component. A pre-resolved id is
// validated against the parent chain rather than trusted outright; an
// unresolved string falls back to the staging-time resolver built from
// the parent chain plus this commit's own new dictionaries.
func resolveComponent(p triple.Possible, resolve func(string) (uint64, bool), valid func(uint64) bool) (uint64, resolveFailure) {
	if p.IsResolved() {
		id := p.ID()
		if !valid(id) {
			return 0, failUnresolvedID
		}
		return id, failNone
	}
	if id, ok := resolve(p.Str()); ok {
		return id, failNone
	}
	return 0, failUnresolvedString
}

func validSubjectID(parent *layer.Layer, id uint64) bool {
	if parent == nil {
		return false
	}
	_, ok := parent.IDSubject(id)
	return ok
}

func validPredicateID(parent *layer.Layer, id uint64) bool {
	if parent == nil {
		return false
	}
	_, ok := parent.IDPredicate(id)
	return ok
}

func validValueID(parent *layer.Layer, id uint64) bool {
	if parent == nil {
		return false
	}
	obj, ok := parent.IDObject(id)
	return ok && obj.Kind == triple.KindValue
}

// collectNewStrings walks the staged additions and returns, per
// space, the distinct strings the parent chain does not already know.
// Only additions can introduce new strings; a removal can only ever
// reference strings that already exist somewhere.
func collectNewStrings(parent *layer.Layer, adds []triple.PartialTriple) (nodes, predicates, values []string) {
	nodeSet := make(map[string]struct{})
	predSet := make(map[string]struct{})
	valSet := make(map[string]struct{})
	addIfNew := func(set map[string]struct{}, p triple.Possible, known func(string) bool) {
		if p.IsResolved() {
			return
		}
		s := p.Str()
		if known(s) {
			return
		}
		set[s] = struct{}{}
	}
	knownNode := func(s string) bool {
		if parent == nil {
			return false
		}
		_, ok := parent.SubjectID(s)
		return ok
	}
	knownPred := func(s string) bool {
		if parent == nil {
			return false
		}
		_, ok := parent.PredicateID(s)
		return ok
	}
	knownVal := func(s string) bool {
		if parent == nil {
			return false
		}
		_, ok := parent.ObjectValueID(s)
		return ok
	}
	for _, pt := range adds {
		addIfNew(nodeSet, pt.Subject, knownNode)
		addIfNew(predSet, pt.Predicate, knownPred)
		if pt.Object.Kind == triple.KindNode {
			addIfNew(nodeSet, pt.Object.Possible, knownNode)
		} else {
			addIfNew(valSet, pt.Object.Possible, knownVal)
		}
	}
	return setToSlice(nodeSet), setToSlice(predSet), setToSlice(valSet)
}

func setToSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	return out
}
