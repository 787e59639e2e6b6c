// Package graph implements the sparse symmetric adjacency structure derived
// once from the union of pairwise edges across all input factor scopes, as
// an immutable, integer-keyed CSR (compressed sparse row) adjacency, since
// the factor hypergraph never mutates after construction — only the
// *working* copy does: Mutable, which treedecomp and voorder each build
// from a Graph.
//
// Errors:
//
//	ErrNegativeVertex - a vertex index is negative.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/arbogen/bucketdecomp/value"
)

// ErrNegativeVertex indicates a negative variable index was supplied to Build.
var ErrNegativeVertex = errors.New("graph: negative vertex index")

// Graph is the immutable symmetric adjacency derived from a set of pairwise
// edges. Self-loops are ignored; duplicate edges collapse; both
// orientations of every edge are stored, sorted ascending per vertex.
type Graph struct {
	offsets   []int      // len = numVertices+1; neighbors[offsets[v]:offsets[v+1]] is v's sorted adjacency
	neighbors []value.Var
}

// Build constructs a Graph from an iterable of (u, v) pairs. Self-loops
// (u == v) are ignored; duplicate pairs collapse. minVertices optionally
// raises NumVertices() even when no edge references those indices.
//
// Complexity: O(E log E) for sorting.
func Build(edges [][2]value.Var, minVertices int) (*Graph, error) {
	n := minVertices
	for _, e := range edges {
		if e[0] < 0 || e[1] < 0 {
			return nil, fmt.Errorf("graph.Build: %w", ErrNegativeVertex)
		}
		if int(e[0])+1 > n {
			n = int(e[0]) + 1
		}
		if int(e[1])+1 > n {
			n = int(e[1]) + 1
		}
	}

	// adjSet[v] accumulates v's neighbor set before dedup+sort.
	adjSet := make([]map[value.Var]struct{}, n)
	for i := range adjSet {
		adjSet[i] = make(map[value.Var]struct{})
	}
	for _, e := range edges {
		u, v := e[0], e[1]
		if u == v {
			continue // self-loops ignored
		}
		adjSet[u][v] = struct{}{}
		adjSet[v][u] = struct{}{}
	}

	offsets := make([]int, n+1)
	total := 0
	for v := 0; v < n; v++ {
		offsets[v] = total
		total += len(adjSet[v])
	}
	offsets[n] = total

	neighbors := make([]value.Var, total)
	for v := 0; v < n; v++ {
		row := neighbors[offsets[v]:offsets[v+1]]
		i := 0
		for nb := range adjSet[v] {
			row[i] = nb
			i++
		}
		sort.Slice(row, func(a, b int) bool { return row[a] < row[b] })
	}

	return &Graph{offsets: offsets, neighbors: neighbors}, nil
}

// NumVertices returns the vertex count (max referenced index + 1, or the
// caller-supplied minimum, whichever is larger).
func (g *Graph) NumVertices() int { return len(g.offsets) - 1 }

// Degree returns the number of distinct neighbors of v.
func (g *Graph) Degree(v value.Var) int {
	return g.offsets[v+1] - g.offsets[v]
}

// Neighbors returns v's sorted-ascending adjacency. The returned slice
// aliases internal storage and must not be mutated.
func (g *Graph) Neighbors(v value.Var) []value.Var {
	return g.neighbors[g.offsets[v]:g.offsets[v+1]]
}

// HasEdge reports whether u and v are adjacent.
//
// Complexity: O(log degree(u)) via binary search over the sorted row.
func (g *Graph) HasEdge(u, v value.Var) bool {
	row := g.Neighbors(u)
	i := sort.Search(len(row), func(i int) bool { return row[i] >= v })
	return i < len(row) && row[i] == v
}

// Edges returns every edge as an ascending (u, v) pair with u < v, sorted by
// u then v, for deterministic iteration.
func (g *Graph) Edges() [][2]value.Var {
	var out [][2]value.Var
	for u := 0; u < g.NumVertices(); u++ {
		for _, v := range g.Neighbors(value.Var(u)) {
			if value.Var(u) < v {
				out = append(out, [2]value.Var{value.Var(u), v})
			}
		}
	}
	return out
}
