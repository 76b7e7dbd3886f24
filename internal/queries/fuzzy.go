package queries

import (
	"sort"
	"strings"

	"github.com/arclayer/layerstore/internal/layer"
)

// Match is one fuzzy search hit: a node or value id together with its
// string and how far it is from the search term (lower is closer).
type Match struct {
	ID       uint64
	Str      string
	Distance int
}

// SearchNodes returns up to limit subject strings matching term, ordered
// by ascending edit distance to term. Only nodes that appear as a
// subject in the chain (l.Subjects) are searched; a node that appears
// only as an object is not. A subject whose string doesn't pass
// subsequenceMatch at all is excluded outright, since edit distance
// alone ranks "completely unrelated but short" strings too highly.
func SearchNodes(l *layer.Layer, term string, limit int) []Match {
	var out []Match
	for sl := range l.Subjects() {
		name, ok := l.IDSubject(sl.Subject())
		if !ok || !subsequenceMatch(term, name) {
			continue
		}
		out = append(out, Match{ID: sl.Subject(), Str: name, Distance: levenshtein(term, name)})
	}
	return topN(out, limit)
}

// SearchObjects is SearchNodes for object ids (nodes and values alike).
func SearchObjects(l *layer.Layer, term string, limit int) []Match {
	var out []Match
	for ol := range l.Objects() {
		obj, ok := l.IDObject(ol.Object())
		if !ok || !subsequenceMatch(term, obj.Str) {
			continue
		}
		out = append(out, Match{ID: ol.Object(), Str: obj.Str, Distance: levenshtein(term, obj.Str)})
	}
	return topN(out, limit)
}

func topN(matches []Match, limit int) []Match {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Str < matches[j].Str
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// subsequenceMatch reports whether every rune of term appears in s, in
// order, case-insensitively, the same loose match a search box uses
// to narrow candidates before ranking them by distance.
func subsequenceMatch(term, s string) bool {
	term = strings.ToLower(term)
	s = strings.ToLower(s)

	ti, si := 0, 0
	tr, sr := []rune(term), []rune(s)
	for ti < len(tr) && si < len(sr) {
		if tr[ti] == sr[si] {
			ti++
		}
		si++
	}
	return ti == len(tr)
}

// levenshtein computes the case-insensitive edit distance between a
// and b.
func levenshtein(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			min := prev[j] + 1
			if ins := curr[j-1] + 1; ins < min {
				min = ins
			}
			if sub := prev[j-1] + cost; sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
