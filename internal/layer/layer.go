// Package layer implements the immutable layer (component C) and the
// layer-chain resolver (component D): the logic by which a layer plus
// its ancestors compose into one queryable, three-way-indexed triple
// set.
package layer

import (
	"github.com/arclayer/layerstore/internal/adjacency"
	"github.com/arclayer/layerstore/internal/dictionary"
	"github.com/arclayer/layerstore/internal/ids"
	"github.com/arclayer/layerstore/internal/triple"
)

// Layer is a single immutable delta on top of an optional parent. Base
// and child layers share this one type rather than an inheritance
// hierarchy: a base layer is simply one whose Parent and removal
// indices are nil.
type Layer struct {
	name   ids.Name
	parent *Layer

	nodeDict      *dictionary.Dictionary
	predicateDict *dictionary.Dictionary
	valueDict     *dictionary.Dictionary

	// Cumulative counts through this layer, inclusive of every ancestor.
	cumulativeNodeCount      uint64
	cumulativePredicateCount uint64
	cumulativeValueCount     uint64

	additionsSP  *adjacency.SPIndex
	additionsSPO *adjacency.SPOIndex
	additionsOSP *adjacency.OSPIndex

	// nil for a base layer; a child layer always has non-nil (possibly
	// empty) removal indices.
	removalsSP  *adjacency.SPIndex
	removalsSPO *adjacency.SPOIndex
	removalsOSP *adjacency.OSPIndex
}

// Spec is everything needed to construct a Layer, computed by a
// builder at commit time.
type Spec struct {
	Name   ids.Name
	Parent *Layer

	NodeDict      *dictionary.Dictionary
	PredicateDict *dictionary.Dictionary
	ValueDict     *dictionary.Dictionary

	Additions SPOTriples
	Removals  *SPOTriples // nil for a base layer
}

// SPOTriples is the set of triples a builder stages for one side
// (additions or removals) of a new layer, already resolved to ids.
type SPOTriples []triple.IDTriple

// New constructs an immutable Layer from a fully resolved spec.
func New(spec Spec) *Layer {
	l := &Layer{
		name:          spec.Name,
		parent:        spec.Parent,
		nodeDict:      spec.NodeDict,
		predicateDict: spec.PredicateDict,
		valueDict:     spec.ValueDict,
	}

	var parentNodes, parentPredicates, parentValues uint64
	if spec.Parent != nil {
		parentNodes = spec.Parent.cumulativeNodeCount
		parentPredicates = spec.Parent.cumulativePredicateCount
		parentValues = spec.Parent.cumulativeValueCount
	}
	l.cumulativeNodeCount = parentNodes + uint64(spec.NodeDict.Size())
	l.cumulativePredicateCount = parentPredicates + uint64(spec.PredicateDict.Size())
	l.cumulativeValueCount = parentValues + uint64(spec.ValueDict.Size())

	l.additionsSP, l.additionsSPO, l.additionsOSP = buildIndices(spec.Additions)
	if spec.Removals != nil {
		l.removalsSP, l.removalsSPO, l.removalsOSP = buildIndices(*spec.Removals)
	}
	return l
}

func buildIndices(triples SPOTriples) (*adjacency.SPIndex, *adjacency.SPOIndex, *adjacency.OSPIndex) {
	spoTriples := make([]adjacency.SPOTriple, len(triples))
	sp := make([]adjacency.Pair, len(triples))
	for i, t := range triples {
		spoTriples[i] = adjacency.SPOTriple{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object}
		sp[i] = adjacency.Pair{Key: t.Subject, Value: t.Predicate}
	}
	return adjacency.BuildSP(sp), adjacency.BuildSPO(spoTriples), adjacency.BuildOSP(spoTriples)
}

// Name returns this layer's globally unique identifier.
func (l *Layer) Name() ids.Name { return l.name }

// Parent returns this layer's parent, or nil for a base layer.
func (l *Layer) Parent() *Layer { return l.parent }

// IsBase reports whether this is a base layer (no parent, no removals).
func (l *Layer) IsBase() bool { return l.parent == nil }

// OwnDictionaries returns the three dictionaries holding the strings
// first introduced by this layer alone (not its ancestors). Storage
// backends use this to persist a layer independently of its parent.
func (l *Layer) OwnDictionaries() (nodes, predicates, values *dictionary.Dictionary) {
	return l.nodeDict, l.predicateDict, l.valueDict
}

// OwnAdditions returns every (subject,predicate,object) triple this
// layer adds, in no particular guaranteed order beyond what the
// underlying index iterates in.
func (l *Layer) OwnAdditions() []adjacency.SPOTriple {
	return l.additionsSPO.All()
}

// OwnRemovals returns every triple this layer removes, and whether
// this layer records removals at all (false for a base layer).
func (l *Layer) OwnRemovals() ([]adjacency.SPOTriple, bool) {
	if l.removalsSPO == nil {
		return nil, false
	}
	return l.removalsSPO.All(), true
}

// NodeAndValueCount returns the cumulative number of node and value
// strings known to this layer and all its ancestors.
func (l *Layer) NodeAndValueCount() uint64 {
	return l.cumulativeNodeCount + l.cumulativeValueCount
}

// PredicateCount returns the cumulative number of predicate strings
// known to this layer and all its ancestors.
func (l *Layer) PredicateCount() uint64 { return l.cumulativePredicateCount }

// CumulativeNodeCount returns the cumulative number of node strings
// known to this layer and all its ancestors, excluding values. A
// builder needs this split (rather than the combined
// NodeAndValueCount) to compute where its own new value ids begin.
func (l *Layer) CumulativeNodeCount() uint64 { return l.cumulativeNodeCount }

// CumulativeValueCount returns the cumulative number of value strings
// known to this layer and all its ancestors, excluding nodes.
func (l *Layer) CumulativeValueCount() uint64 { return l.cumulativeValueCount }

func (l *Layer) parentCumulativeNodeCount() uint64 {
	if l.parent == nil {
		return 0
	}
	return l.parent.cumulativeNodeCount
}

func (l *Layer) parentCumulativeValueCount() uint64 {
	if l.parent == nil {
		return 0
	}
	return l.parent.cumulativeValueCount
}

func (l *Layer) parentCumulativePredicateCount() uint64 {
	if l.parent == nil {
		return 0
	}
	return l.parent.cumulativePredicateCount
}

// nodeRange returns this layer's own slice of the combined node id
// space: [start,end], inclusive. end < start means this layer
// introduced no new node strings.
func (l *Layer) nodeRange() (start, end uint64) {
	return l.parentCumulativeNodeCount() + 1, l.cumulativeNodeCount
}

func (l *Layer) predicateRange() (start, end uint64) {
	return l.parentCumulativePredicateCount() + 1, l.cumulativePredicateCount
}

// valueRange returns this layer's own slice of the combined value id
// space. Value ids are offset by the cumulative node count as of this
// layer's creation so that node ids and value ids never collide,
// without requiring a single global node/value split point: each
// layer's value range is baked in at construction and never moves.
func (l *Layer) valueRange() (start, end uint64) {
	start = l.cumulativeNodeCount + l.parentCumulativeValueCount() + 1
	end = l.cumulativeNodeCount + l.cumulativeValueCount
	return
}

// SubjectID resolves a subject string to its id by probing this
// layer's node dictionary and then recursing into the parent chain.
func (l *Layer) SubjectID(s string) (uint64, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if local, ok := cur.nodeDict.IDOf(s); ok {
			start, _ := cur.nodeRange()
			return start + local - 1, true
		}
	}
	return 0, false
}

// ObjectNodeID resolves a node-object string to its id. Nodes and
// subjects share one dictionary, so this is identical to SubjectID.
func (l *Layer) ObjectNodeID(s string) (uint64, bool) { return l.SubjectID(s) }

// PredicateID resolves a predicate string to its id.
func (l *Layer) PredicateID(p string) (uint64, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if local, ok := cur.predicateDict.IDOf(p); ok {
			start, _ := cur.predicateRange()
			return start + local - 1, true
		}
	}
	return 0, false
}

// ObjectValueID resolves a value-object string to its id.
func (l *Layer) ObjectValueID(v string) (uint64, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if local, ok := cur.valueDict.IDOf(v); ok {
			start, _ := cur.valueRange()
			return start + local - 1, true
		}
	}
	return 0, false
}

// IDSubject resolves a subject id back to its string.
func (l *Layer) IDSubject(id uint64) (string, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		start, end := cur.nodeRange()
		if id >= start && id <= end {
			return cur.nodeDict.StringOf(id - start + 1)
		}
	}
	return "", false
}

// IDPredicate resolves a predicate id back to its string.
func (l *Layer) IDPredicate(id uint64) (string, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		start, end := cur.predicateRange()
		if id >= start && id <= end {
			return cur.predicateDict.StringOf(id - start + 1)
		}
	}
	return "", false
}

// IDObject resolves an object id back to its tagged string, trying the
// node space first and then the value space; the two never overlap.
func (l *Layer) IDObject(id uint64) (triple.Object, bool) {
	if s, ok := l.IDSubject(id); ok {
		return triple.Node(s), true
	}
	for cur := l; cur != nil; cur = cur.parent {
		start, end := cur.valueRange()
		if id >= start && id <= end {
			s, ok := cur.valueDict.StringOf(id - start + 1)
			return triple.Value(s), ok
		}
	}
	return triple.Object{}, false
}

// TripleExists reports whether (s,p,o) is in the logical set seen from
// this layer: the chain is walked from this layer down to the base,
// and the first layer whose additions or removals index mentions the
// triple decides the answer.
func (l *Layer) TripleExists(s, p, o uint64) bool {
	for cur := l; cur != nil; cur = cur.parent {
		if cur.removalsSPO != nil && cur.removalsSPO.Has(s, p, o) {
			return false
		}
		if cur.additionsSPO.Has(s, p, o) {
			return true
		}
	}
	return false
}

// IDTripleExists is an alias over an IDTriple value.
func (l *Layer) IDTripleExists(t triple.IDTriple) bool {
	return l.TripleExists(t.Subject, t.Predicate, t.Object)
}

// StringTripleExists resolves t and reports whether it exists.
func (l *Layer) StringTripleExists(t triple.StringTriple) bool {
	it, ok := l.StringTripleToID(t)
	if !ok {
		return false
	}
	return l.IDTripleExists(it)
}

// StringTripleToID fully resolves a string triple, or reports false if
// any component is unknown to the chain.
func (l *Layer) StringTripleToID(t triple.StringTriple) (triple.IDTriple, bool) {
	s, ok := l.SubjectID(t.Subject)
	if !ok {
		return triple.IDTriple{}, false
	}
	p, ok := l.PredicateID(t.Predicate)
	if !ok {
		return triple.IDTriple{}, false
	}
	var o uint64
	switch t.Object.Kind {
	case triple.KindNode:
		o, ok = l.ObjectNodeID(t.Object.Str)
	default:
		o, ok = l.ObjectValueID(t.Object.Str)
	}
	if !ok {
		return triple.IDTriple{}, false
	}
	return triple.IDTriple{Subject: s, Predicate: p, Object: o}, true
}

// IDTripleToString resolves every id in t back to its string, or
// reports false if any component cannot be found.
func (l *Layer) IDTripleToString(t triple.IDTriple) (triple.StringTriple, bool) {
	s, ok := l.IDSubject(t.Subject)
	if !ok {
		return triple.StringTriple{}, false
	}
	p, ok := l.IDPredicate(t.Predicate)
	if !ok {
		return triple.StringTriple{}, false
	}
	o, ok := l.IDObject(t.Object)
	if !ok {
		return triple.StringTriple{}, false
	}
	return triple.StringTriple{Subject: s, Predicate: p, Object: o}, true
}

// IsAncestorOf reports whether l is a (strict) ancestor of other. A
// layer is never its own ancestor.
func (l *Layer) IsAncestorOf(other *Layer) bool {
	if other == nil || other.parent == nil {
		return false
	}
	if other.parent.name == l.name {
		return true
	}
	return l.IsAncestorOf(other.parent)
}

// chainHeadToBase returns this layer followed by every ancestor, head
// first.
func (l *Layer) chainHeadToBase() []*Layer {
	chain := make([]*Layer, 0, 4)
	for cur := l; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	return chain
}
