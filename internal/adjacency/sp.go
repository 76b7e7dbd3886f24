package adjacency

import "sort"

// SPIndex is a sorted multimap from a subject id to the distinct
// predicate ids it is paired with, one instance per layer per
// additions/removals side.
type SPIndex struct {
	keys []uint64 // ascending, distinct
	bits *bitset  // len(bits) == len(vals); 1 marks the last value of a key's group
	vals []uint64 // ascending within each group
}

// Pair is a single (key, value) association fed to a Build function.
// Duplicate pairs are collapsed during construction.
type Pair struct {
	Key, Value uint64
}

// BuildSP constructs an SPIndex from an arbitrary set of (subject,
// predicate) pairs. The result is independent of input order.
func BuildSP(pairs []Pair) *SPIndex {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Key != pairs[j].Key {
			return pairs[i].Key < pairs[j].Key
		}
		return pairs[i].Value < pairs[j].Value
	})

	idx := &SPIndex{}
	var bitVals []bool
	var lastKey uint64
	haveKey := false
	var lastVal uint64
	haveVal := false
	for _, p := range pairs {
		if haveKey && p.Key == lastKey && haveVal && p.Value == lastVal {
			continue // duplicate
		}
		if !haveKey || p.Key != lastKey {
			if haveKey {
				bitVals[len(bitVals)-1] = true
			}
			idx.keys = append(idx.keys, p.Key)
			haveKey = true
			lastKey = p.Key
			haveVal = false
		}
		idx.vals = append(idx.vals, p.Value)
		bitVals = append(bitVals, false)
		lastVal = p.Value
		haveVal = true
	}
	if len(bitVals) > 0 {
		bitVals[len(bitVals)-1] = true
	}
	idx.bits = newBitset(bitVals)
	return idx
}

// Keys returns the distinct subject ids known to this index, ascending.
func (idx *SPIndex) Keys() []uint64 { return idx.keys }

// Lookup returns the distinct predicate ids paired with subject s in
// this single index (no chain masking), ascending, and whether s is
// known at all.
func (idx *SPIndex) Lookup(s uint64) ([]uint64, bool) {
	i := sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i] >= s })
	if i >= len(idx.keys) || idx.keys[i] != s {
		return nil, false
	}
	start := 0
	if i > 0 {
		start = idx.bits.select1(i-1) + 1
	}
	end := idx.bits.select1(i) + 1
	return idx.vals[start:end], true
}

// Has reports whether (s, p) is recorded in this index.
func (idx *SPIndex) Has(s, p uint64) bool {
	group, ok := idx.Lookup(s)
	if !ok {
		return false
	}
	i := sort.Search(len(group), func(i int) bool { return group[i] >= p })
	return i < len(group) && group[i] == p
}
