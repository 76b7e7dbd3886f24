package adjacency

import "sort"

// SPKey identifies a (subject, predicate) group in an SPOIndex.
type SPKey struct {
	Subject, Predicate uint64
}

func (a SPKey) less(b SPKey) bool {
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	return a.Predicate < b.Predicate
}

// SPOTriple is a single (subject, predicate, object) association fed
// to BuildSPO.
type SPOTriple struct {
	Subject, Predicate, Object uint64
}

// SPOIndex is a sorted multimap from a (subject,predicate) pair to the
// distinct object ids it is paired with.
type SPOIndex struct {
	keys []SPKey
	bits *bitset
	vals []uint64
}

// BuildSPO constructs an SPOIndex from an arbitrary set of triples.
func BuildSPO(triples []SPOTriple) *SPOIndex {
	sort.Slice(triples, func(i, j int) bool {
		ki, kj := SPKey{triples[i].Subject, triples[i].Predicate}, SPKey{triples[j].Subject, triples[j].Predicate}
		if ki != kj {
			return ki.less(kj)
		}
		return triples[i].Object < triples[j].Object
	})

	idx := &SPOIndex{}
	var bitVals []bool
	var lastKey SPKey
	haveKey := false
	var lastVal uint64
	haveVal := false
	for _, t := range triples {
		key := SPKey{t.Subject, t.Predicate}
		if haveKey && key == lastKey && haveVal && t.Object == lastVal {
			continue
		}
		if !haveKey || key != lastKey {
			if haveKey {
				bitVals[len(bitVals)-1] = true
			}
			idx.keys = append(idx.keys, key)
			haveKey = true
			lastKey = key
			haveVal = false
		}
		idx.vals = append(idx.vals, t.Object)
		bitVals = append(bitVals, false)
		lastVal = t.Object
		haveVal = true
	}
	if len(bitVals) > 0 {
		bitVals[len(bitVals)-1] = true
	}
	idx.bits = newBitset(bitVals)
	return idx
}

// Keys returns the distinct (subject,predicate) pairs known to this
// index, ascending lexicographically.
func (idx *SPOIndex) Keys() []SPKey { return idx.keys }

// Lookup returns the distinct object ids paired with (s,p) in this
// single index, ascending, and whether (s,p) is known at all.
func (idx *SPOIndex) Lookup(s, p uint64) ([]uint64, bool) {
	key := SPKey{s, p}
	i := sort.Search(len(idx.keys), func(i int) bool { return !idx.keys[i].less(key) })
	if i >= len(idx.keys) || idx.keys[i] != key {
		return nil, false
	}
	start := 0
	if i > 0 {
		start = idx.bits.select1(i-1) + 1
	}
	end := idx.bits.select1(i) + 1
	return idx.vals[start:end], true
}

// All returns every (subject,predicate,object) triple recorded in
// this index, in ascending (subject,predicate,object) order. Used by
// storage backends persisting a layer from scratch.
func (idx *SPOIndex) All() []SPOTriple {
	out := make([]SPOTriple, 0, len(idx.vals))
	for ki, key := range idx.keys {
		start := 0
		if ki > 0 {
			start = idx.bits.select1(ki-1) + 1
		}
		end := idx.bits.select1(ki) + 1
		for _, o := range idx.vals[start:end] {
			out = append(out, SPOTriple{Subject: key.Subject, Predicate: key.Predicate, Object: o})
		}
	}
	return out
}

// Has reports whether (s,p,o) is recorded in this index.
func (idx *SPOIndex) Has(s, p, o uint64) bool {
	group, ok := idx.Lookup(s, p)
	if !ok {
		return false
	}
	i := sort.Search(len(group), func(i int) bool { return group[i] >= o })
	return i < len(group) && group[i] == o
}
