package layer

import (
	"sort"

	"github.com/arclayer/layerstore/internal/adjacency"
)

// unionUint64 merges the given per-layer candidate slices (each
// already ascending and distinct) into one ascending, distinct slice.
func unionUint64(groups [][]uint64) []uint64 {
	seen := make(map[uint64]struct{})
	var out []uint64
	for _, g := range groups {
		for _, v := range g {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func unionSPKeys(groups [][]adjacency.SPKey) []adjacency.SPKey {
	type pair = adjacency.SPKey
	seen := make(map[pair]struct{})
	var out []pair
	for _, g := range groups {
		for _, v := range g {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Predicate < out[j].Predicate
	})
	return out
}

// candidateSubjects returns every subject id that appears in any
// layer's additions-SP index across the chain. This is an unmasked
// "capability" set: a subject handle is a promise to ask, not a
// promise that any triple for it still exists (spec §4.C).
func candidateSubjects(chain []*Layer) []uint64 {
	groups := make([][]uint64, len(chain))
	for i, l := range chain {
		groups[i] = l.additionsSP.Keys()
	}
	return unionUint64(groups)
}

// candidateObjects returns every object id appearing in any layer's
// additions-OSP index across the chain.
func candidateObjects(chain []*Layer) []uint64 {
	groups := make([][]uint64, len(chain))
	for i, l := range chain {
		groups[i] = l.additionsOSP.Keys()
	}
	return unionUint64(groups)
}

// candidatePredicatesForSubject returns every predicate id ever paired
// with s in any layer's additions-SP index across the chain.
func candidatePredicatesForSubject(chain []*Layer, s uint64) []uint64 {
	groups := make([][]uint64, 0, len(chain))
	for _, l := range chain {
		if g, ok := l.additionsSP.Lookup(s); ok {
			groups = append(groups, g)
		}
	}
	return unionUint64(groups)
}

// candidatePairsForObject returns every (subject,predicate) pair ever
// paired with o in any layer's additions-OSP index across the chain.
func candidatePairsForObject(chain []*Layer, o uint64) []adjacency.SPKey {
	groups := make([][]adjacency.SPKey, 0, len(chain))
	for _, l := range chain {
		if g, ok := l.additionsOSP.Lookup(o); ok {
			groups = append(groups, g)
		}
	}
	return unionSPKeys(groups)
}

// maskedObjectsForSP applies the additions/removals fold to compute
// the objects actually present for (s,p), walking the chain head (the
// lookup's owning layer) to base: once a layer's removals or additions
// index has decided an object's fate, no older layer can overturn it.
func maskedObjectsForSP(chain []*Layer, s, p uint64) []uint64 {
	decided := make(map[uint64]bool)
	for _, l := range chain {
		if l.removalsSPO != nil {
			if removed, ok := l.removalsSPO.Lookup(s, p); ok {
				for _, o := range removed {
					if _, ok := decided[o]; !ok {
						decided[o] = false
					}
				}
			}
		}
		if added, ok := l.additionsSPO.Lookup(s, p); ok {
			for _, o := range added {
				if _, ok := decided[o]; !ok {
					decided[o] = true
				}
			}
		}
	}
	var out []uint64
	for o, present := range decided {
		if present {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// maskedPairsForO is the OSP-side analogue of maskedObjectsForSP.
func maskedPairsForO(chain []*Layer, o uint64) []adjacency.SPKey {
	decided := make(map[adjacency.SPKey]bool)
	for _, l := range chain {
		if l.removalsOSP != nil {
			if removed, ok := l.removalsOSP.Lookup(o); ok {
				for _, sp := range removed {
					if _, ok := decided[sp]; !ok {
						decided[sp] = false
					}
				}
			}
		}
		if added, ok := l.additionsOSP.Lookup(o); ok {
			for _, sp := range added {
				if _, ok := decided[sp]; !ok {
					decided[sp] = true
				}
			}
		}
	}
	var out []adjacency.SPKey
	for sp, present := range decided {
		if present {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Predicate < out[j].Predicate
	})
	return out
}
