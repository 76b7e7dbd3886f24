// Package queries provides read-only convenience operations over a
// committed layer that go beyond the single-triple lookups in
// internal/layer: bounded-depth graph traversal along a predicate, and
// fuzzy text search over a layer's node and value strings.
package queries

import (
	"fmt"

	"github.com/arclayer/layerstore/internal/layer"
)

// Node is one entry in a Graph: a node reached during traversal, the
// predicate that reached it, how many hops from the start it is, and
// the human-readable path taken to get there.
type Node struct {
	ID           uint64
	Name         string
	Relationship string
	Depth        int
	Path         string
}

// Graph is the result of a Traverse call, in breadth-first order.
type Graph struct {
	Nodes []Node
}

// Traverse walks the triples reachable from start by following
// predicate outward, breadth-first, up to maxDepth hops. Each node is
// reported once, at the depth and along the path by which it is first
// reached; a node already reached anywhere in the traversal is not
// reported or expanded again (which also guards against cycles, since
// a layer chain's triples need not form a DAG).
func Traverse(l *layer.Layer, start uint64, predicate uint64, maxDepth int) (*Graph, error) {
	startName, ok := l.IDSubject(start)
	if !ok {
		return nil, fmt.Errorf("queries: traverse: %d is not a known subject", start)
	}

	g := &Graph{Nodes: []Node{{ID: start, Name: startName, Depth: 0, Path: startName}}}

	type frontierEntry struct {
		id   uint64
		path string
	}
	frontier := []frontierEntry{{id: start, path: startName}}
	visitedOnPath := map[uint64]bool{start: true}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []frontierEntry
		for _, entry := range frontier {
			sl, ok := l.LookupSubject(entry.id)
			if !ok {
				continue
			}
			spl, ok := sl.LookupPredicate(predicate)
			if !ok {
				continue
			}
			for o := range spl.Objects() {
				if visitedOnPath[o] {
					continue
				}
				name, err := idToName(l, o)
				if err != nil {
					return nil, err
				}
				path := entry.path + " -> " + name
				g.Nodes = append(g.Nodes, Node{ID: o, Name: name, Relationship: predicateName(l, predicate), Depth: depth, Path: path})
				visitedOnPath[o] = true
				next = append(next, frontierEntry{id: o, path: path})
			}
		}
		frontier = next
	}
	return g, nil
}

func idToName(l *layer.Layer, id uint64) (string, error) {
	obj, ok := l.IDObject(id)
	if !ok {
		return "", fmt.Errorf("queries: traverse: %d is not a known object", id)
	}
	return obj.Str, nil
}

func predicateName(l *layer.Layer, id uint64) string {
	name, ok := l.IDPredicate(id)
	if !ok {
		return ""
	}
	return name
}
