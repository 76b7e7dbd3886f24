package layer

import (
	"iter"
	"sort"

	"github.com/arclayer/layerstore/internal/adjacency"
	"github.com/arclayer/layerstore/internal/triple"
)

// Subjects returns a lazy, restartable sequence over every subject
// handle known to this layer's chain. Restartable: each call to
// Subjects produces a fresh iterator starting from the beginning.
func (l *Layer) Subjects() iter.Seq[*SubjectLookup] {
	chain := l.chainHeadToBase()
	subjects := candidateSubjects(chain)
	return func(yield func(*SubjectLookup) bool) {
		for _, s := range subjects {
			if !yield(&SubjectLookup{subject: s, chain: chain}) {
				return
			}
		}
	}
}

// LookupSubject returns a handle for subject id s if it appears
// anywhere in the chain's additions.
func (l *Layer) LookupSubject(s uint64) (*SubjectLookup, bool) {
	chain := l.chainHeadToBase()
	subjects := candidateSubjects(chain)
	i := sort.Search(len(subjects), func(i int) bool { return subjects[i] >= s })
	if i >= len(subjects) || subjects[i] != s {
		return nil, false
	}
	return &SubjectLookup{subject: s, chain: chain}, true
}

// Objects returns a lazy, restartable sequence over every object
// handle known to this layer's chain.
func (l *Layer) Objects() iter.Seq[*ObjectLookup] {
	chain := l.chainHeadToBase()
	objects := candidateObjects(chain)
	return func(yield func(*ObjectLookup) bool) {
		for _, o := range objects {
			if !yield(&ObjectLookup{object: o, chain: chain}) {
				return
			}
		}
	}
}

// LookupObject returns a handle for object id o if it appears anywhere
// in the chain's additions.
func (l *Layer) LookupObject(o uint64) (*ObjectLookup, bool) {
	chain := l.chainHeadToBase()
	objects := candidateObjects(chain)
	i := sort.Search(len(objects), func(i int) bool { return objects[i] >= o })
	if i >= len(objects) || objects[i] != o {
		return nil, false
	}
	return &ObjectLookup{object: o, chain: chain}, true
}

// Triples returns a lazy, restartable sequence over every triple that
// actually survives in this layer's chain.
func (l *Layer) Triples() iter.Seq[triple.IDTriple] {
	return func(yield func(triple.IDTriple) bool) {
		for sl := range l.Subjects() {
			for spl := range sl.Predicates() {
				for t := range spl.Triples() {
					if !yield(t) {
						return
					}
				}
			}
		}
	}
}

// SubjectLookup is a capability handle for one subject id: a promise
// to ask about its predicates, not a promise that any of its triples
// still survive.
type SubjectLookup struct {
	subject uint64
	chain   []*Layer
}

// Subject returns the subject id this handle was obtained for.
func (sl *SubjectLookup) Subject() uint64 { return sl.subject }

// Predicates returns a lazy sequence over every predicate this subject
// has ever been paired with, in ascending order.
func (sl *SubjectLookup) Predicates() iter.Seq[*SubjectPredicateLookup] {
	predicates := candidatePredicatesForSubject(sl.chain, sl.subject)
	return func(yield func(*SubjectPredicateLookup) bool) {
		for _, p := range predicates {
			if !yield(&SubjectPredicateLookup{subject: sl.subject, predicate: p, chain: sl.chain}) {
				return
			}
		}
	}
}

// LookupPredicate returns a handle for (subject,p) if that pair has
// ever been staged, regardless of whether any object still survives.
func (sl *SubjectLookup) LookupPredicate(p uint64) (*SubjectPredicateLookup, bool) {
	predicates := candidatePredicatesForSubject(sl.chain, sl.subject)
	i := sort.Search(len(predicates), func(i int) bool { return predicates[i] >= p })
	if i >= len(predicates) || predicates[i] != p {
		return nil, false
	}
	return &SubjectPredicateLookup{subject: sl.subject, predicate: p, chain: sl.chain}, true
}

// Triples returns every surviving triple for this subject.
func (sl *SubjectLookup) Triples() iter.Seq[triple.IDTriple] {
	return func(yield func(triple.IDTriple) bool) {
		for spl := range sl.Predicates() {
			for t := range spl.Triples() {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// SubjectPredicateLookup is a capability handle for one (subject,
// predicate) pair.
type SubjectPredicateLookup struct {
	subject, predicate uint64
	chain              []*Layer
}

// Subject returns the subject id.
func (spl *SubjectPredicateLookup) Subject() uint64 { return spl.subject }

// Predicate returns the predicate id.
func (spl *SubjectPredicateLookup) Predicate() uint64 { return spl.predicate }

// Objects returns the object ids that actually survive for this pair,
// in ascending order, masking additions against removals across the
// chain.
func (spl *SubjectPredicateLookup) Objects() iter.Seq[uint64] {
	objects := maskedObjectsForSP(spl.chain, spl.subject, spl.predicate)
	return func(yield func(uint64) bool) {
		for _, o := range objects {
			if !yield(o) {
				return
			}
		}
	}
}

// HasObject reports whether o currently survives for this pair.
func (spl *SubjectPredicateLookup) HasObject(o uint64) bool {
	objects := maskedObjectsForSP(spl.chain, spl.subject, spl.predicate)
	i := sort.Search(len(objects), func(i int) bool { return objects[i] >= o })
	return i < len(objects) && objects[i] == o
}

// Triples returns every surviving triple for this (subject,predicate)
// pair.
func (spl *SubjectPredicateLookup) Triples() iter.Seq[triple.IDTriple] {
	return func(yield func(triple.IDTriple) bool) {
		for o := range spl.Objects() {
			if !yield(triple.IDTriple{Subject: spl.subject, Predicate: spl.predicate, Object: o}) {
				return
			}
		}
	}
}

// ObjectLookup is a capability handle for one object id.
type ObjectLookup struct {
	object uint64
	chain  []*Layer
}

// Object returns the object id this handle was obtained for.
func (ol *ObjectLookup) Object() uint64 { return ol.object }

// SubjectPredicatePairs returns the (subject,predicate) pairs that
// actually survive pointing at this object, ascending.
func (ol *ObjectLookup) SubjectPredicatePairs() iter.Seq[adjacency.SPKey] {
	pairs := maskedPairsForO(ol.chain, ol.object)
	return func(yield func(adjacency.SPKey) bool) {
		for _, sp := range pairs {
			if !yield(sp) {
				return
			}
		}
	}
}

// HasSubjectPredicatePair reports whether (s,p) currently points at
// this object. Pairs are ascending, so the scan can stop as soon as it
// passes the search key.
func (ol *ObjectLookup) HasSubjectPredicatePair(s, p uint64) bool {
	key := adjacency.SPKey{Subject: s, Predicate: p}
	for _, sp := range maskedPairsForO(ol.chain, ol.object) {
		if sp == key {
			return true
		}
		if key.Subject < sp.Subject || (key.Subject == sp.Subject && key.Predicate < sp.Predicate) {
			return false
		}
	}
	return false
}

// Triples returns every surviving triple pointing at this object.
func (ol *ObjectLookup) Triples() iter.Seq[triple.IDTriple] {
	return func(yield func(triple.IDTriple) bool) {
		for sp := range ol.SubjectPredicatePairs() {
			if !yield(triple.IDTriple{Subject: sp.Subject, Predicate: sp.Predicate, Object: ol.object}) {
				return
			}
		}
	}
}
