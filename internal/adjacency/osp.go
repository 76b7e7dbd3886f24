package adjacency

import "sort"

// OSPIndex is a sorted multimap from an object id to the distinct
// (subject,predicate) pairs that point at it. Values within a group
// are kept in ascending (subject,predicate) order, which is the
// property has_subject_predicate_pair relies on to terminate early.
type OSPIndex struct {
	keys []uint64
	bits *bitset
	vals []SPKey
}

// BuildOSP constructs an OSPIndex from an arbitrary set of triples.
func BuildOSP(triples []SPOTriple) *OSPIndex {
	sort.Slice(triples, func(i, j int) bool {
		if triples[i].Object != triples[j].Object {
			return triples[i].Object < triples[j].Object
		}
		ki, kj := SPKey{triples[i].Subject, triples[i].Predicate}, SPKey{triples[j].Subject, triples[j].Predicate}
		return ki.less(kj)
	})

	idx := &OSPIndex{}
	var bitVals []bool
	var lastKey uint64
	haveKey := false
	var lastVal SPKey
	haveVal := false
	for _, t := range triples {
		if haveKey && t.Object == lastKey && haveVal {
			pair := SPKey{t.Subject, t.Predicate}
			if pair == lastVal {
				continue
			}
		}
		if !haveKey || t.Object != lastKey {
			if haveKey {
				bitVals[len(bitVals)-1] = true
			}
			idx.keys = append(idx.keys, t.Object)
			haveKey = true
			lastKey = t.Object
			haveVal = false
		}
		pair := SPKey{t.Subject, t.Predicate}
		idx.vals = append(idx.vals, pair)
		bitVals = append(bitVals, false)
		lastVal = pair
		haveVal = true
	}
	if len(bitVals) > 0 {
		bitVals[len(bitVals)-1] = true
	}
	idx.bits = newBitset(bitVals)
	return idx
}

// Keys returns the distinct object ids known to this index, ascending.
func (idx *OSPIndex) Keys() []uint64 { return idx.keys }

// Lookup returns the (subject,predicate) pairs pointing at object o in
// this single index, ascending, and whether o is known at all.
func (idx *OSPIndex) Lookup(o uint64) ([]SPKey, bool) {
	i := sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i] >= o })
	if i >= len(idx.keys) || idx.keys[i] != o {
		return nil, false
	}
	start := 0
	if i > 0 {
		start = idx.bits.select1(i-1) + 1
	}
	end := idx.bits.select1(i) + 1
	return idx.vals[start:end], true
}

// Has reports whether (s,p) appears in object o's group. Pairs are
// ascending, so the scan stops as soon as it passes the search key.
func (idx *OSPIndex) Has(o, s, p uint64) bool {
	group, ok := idx.Lookup(o)
	if !ok {
		return false
	}
	key := SPKey{s, p}
	for _, pair := range group {
		if pair == key {
			return true
		}
		if key.less(pair) {
			return false
		}
	}
	return false
}
