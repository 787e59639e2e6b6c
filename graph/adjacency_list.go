package graph

import "github.com/arbogen/bucketdecomp/value"

// Mutable is the working adjacency used by treedecomp and voorder while
// eliminating variables one at a time: form the elimination clique among a
// variable's current neighbors, then drop the variable. It reshapes a
// mutable string-keyed adjacency structure around set-valued int adjacency
// instead, since elimination never needs parallel edges or directedness,
// only "is u still adjacent to v".
type Mutable struct {
	adj   []map[value.Var]struct{} // adj[v] = current neighbor set of v
	alive []bool                   // alive[v] = v has not yet been removed
}

// NewMutable builds a Mutable working copy of g's adjacency over n vertices.
func NewMutable(g *Graph, n int) *Mutable {
	m := &Mutable{
		adj:   make([]map[value.Var]struct{}, n),
		alive: make([]bool, n),
	}
	for v := 0; v < n; v++ {
		m.adj[v] = make(map[value.Var]struct{})
		m.alive[v] = true
	}
	if g != nil {
		for u := 0; u < g.NumVertices() && u < n; u++ {
			for _, v := range g.Neighbors(value.Var(u)) {
				if int(v) < n {
					m.adj[u][v] = struct{}{}
				}
			}
		}
	}
	return m
}

// Neighbors returns the current live neighbor set of v as an unsorted slice.
func (m *Mutable) Neighbors(v value.Var) []value.Var {
	out := make([]value.Var, 0, len(m.adj[v]))
	for nb := range m.adj[v] {
		out = append(out, nb)
	}
	return out
}

// Degree returns the number of current live neighbors of v.
func (m *Mutable) Degree(v value.Var) int { return len(m.adj[v]) }

// HasEdge reports whether u and v are currently adjacent.
func (m *Mutable) HasEdge(u, v value.Var) bool {
	_, ok := m.adj[u][v]
	return ok
}

// AddEdge connects u and v symmetrically (no-op if already connected or u == v).
func (m *Mutable) AddEdge(u, v value.Var) {
	if u == v {
		return
	}
	m.adj[u][v] = struct{}{}
	m.adj[v][u] = struct{}{}
}

// Connect forms the elimination clique among vs: every pair becomes adjacent.
//
// Complexity: O(len(vs)^2).
func (m *Mutable) Connect(vs []value.Var) {
	for i := 0; i < len(vs); i++ {
		for j := i + 1; j < len(vs); j++ {
			m.AddEdge(vs[i], vs[j])
		}
	}
}

// Remove eliminates v from the working graph: every neighbor loses its edge
// to v, and v is marked no longer alive.
func (m *Mutable) Remove(v value.Var) {
	for nb := range m.adj[v] {
		delete(m.adj[nb], v)
	}
	m.adj[v] = make(map[value.Var]struct{})
	m.alive[v] = false
}

// Alive reports whether v has not yet been removed.
func (m *Mutable) Alive(v value.Var) bool { return m.alive[v] }
