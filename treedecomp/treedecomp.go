// Package treedecomp builds the rooted elimination forest a BucketTree walks:
// one node per eliminated variable, linked to the next later-eliminated
// neighbor found at elimination time, with unreferenced variables recorded
// as clamped evidence. Construction runs a post-order state machine over an
// explicit working graph, generalized from "produce a linear order" to
// "produce a parent-linked forest while consuming one", validating every
// input before committing any state.
package treedecomp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/arbogen/bucketdecomp/graph"
	"github.com/arbogen/bucketdecomp/internal/telemetry"
	"github.com/arbogen/bucketdecomp/value"
)

// Sentinel errors for forest construction.
var (
	// ErrVarOutOfRange indicates an order entry is outside [0, numVars).
	ErrVarOutOfRange = errors.New("treedecomp: order entry out of range")

	// ErrDuplicateOrderVar indicates the same variable appears twice in order.
	ErrDuplicateOrderVar = errors.New("treedecomp: duplicate variable in order")

	// ErrEmptyDomain indicates some variable's domain size is < 1.
	ErrEmptyDomain = errors.New("treedecomp: domain size must be >= 1")
)

// DomSizeFunc resolves a variable's domain size.
type DomSizeFunc func(value.Var) value.Dom

// Node is one bucket: the variable eliminated there, the separator shared
// with its parent, and the clamped (never-eliminated) variables that settle
// here because this is the root-most node of their component.
type Node struct {
	NodeVar     value.Var
	SepVars     []value.Var
	ClampedVars []value.Var
	Parent      int // -1 for a root
	Children    []int
}

// NodeScope returns {NodeVar} ∪ SepVars, sorted ascending — the variables
// over which this node's lambda/pi tables are indexed.
func (n *Node) NodeScope() []value.Var {
	out := make([]value.Var, 0, len(n.SepVars)+1)
	inserted := false
	for _, v := range n.SepVars {
		if !inserted && n.NodeVar < v {
			out = append(out, n.NodeVar)
			inserted = true
		}
		out = append(out, v)
	}
	if !inserted {
		out = append(out, n.NodeVar)
	}
	return out
}

// TreeDecomp is the rooted forest produced by eliminating variables of a
// factor graph in a given order.
type TreeDecomp struct {
	nodes       []*Node
	roots       []int
	byVar       map[value.Var]int
	numVars     int
	clampedVars []value.Var
}

// Nodes returns every node, indexed by elimination order position.
func (d *TreeDecomp) Nodes() []*Node { return d.nodes }

// Node returns the i-th node.
func (d *TreeDecomp) Node(i int) *Node { return d.nodes[i] }

// Roots returns the indices of the forest's root nodes, in ascending
// elimination-order position.
func (d *TreeDecomp) Roots() []int { return d.roots }

// ClampedVars returns every variable absent from the elimination order,
// sorted ascending.
func (d *TreeDecomp) ClampedVars() []value.Var { return d.clampedVars }

// NodeOfVar returns the node created when v was eliminated, or (-1, false)
// if v never appears in the order (it is clamped).
func (d *TreeDecomp) NodeOfVar(v value.Var) (int, bool) {
	i, ok := d.byVar[v]
	return i, ok
}

// Complexity returns max_n log2(Π_{v in nodeScope(n)} domSize(v)), 0 if the
// forest has no nodes. Computed as a sum of log2 terms rather than a literal
// product so it never overflows for wide scopes.
func (d *TreeDecomp) Complexity(domSizeOf DomSizeFunc) float64 {
	var maxBits float64
	for _, n := range d.nodes {
		var bits float64
		for _, v := range n.NodeScope() {
			bits += math.Log2(float64(domSizeOf(v)))
		}
		if bits > maxBits {
			maxBits = bits
		}
	}
	return maxBits
}

// Build eliminates order's variables one at a time against g (working over
// a private mutable copy) and returns the resulting forest.
//
// order must list distinct variables in [0, numVars); every variable's
// domain size (in or out of order) must be >= 1.
//
// sinks is variadic so existing callers are unaffected; only sinks[0] (if
// present) is used.
func Build(g *graph.Graph, order []value.Var, numVars int, domSizeOf DomSizeFunc, sinks ...telemetry.Sink) (*TreeDecomp, error) {
	var sink telemetry.Sink
	if len(sinks) > 0 {
		sink = sinks[0]
	}
	orderPos := make(map[value.Var]int, len(order))
	for i, v := range order {
		if v < 0 || int(v) >= numVars {
			return nil, fmt.Errorf("treedecomp.Build: var %d: %w", v, ErrVarOutOfRange)
		}
		if _, dup := orderPos[v]; dup {
			return nil, fmt.Errorf("treedecomp.Build: var %d: %w", v, ErrDuplicateOrderVar)
		}
		orderPos[v] = i
	}
	for v := 0; v < numVars; v++ {
		if domSizeOf(value.Var(v)) < 1 {
			return nil, fmt.Errorf("treedecomp.Build: var %d: %w", v, ErrEmptyDomain)
		}
	}

	mg := graph.NewMutable(g, numVars)

	nodes := make([]*Node, 0, len(order))
	byVar := make(map[value.Var]int, len(order))
	inOrderNbrs := make([][]value.Var, len(order))
	clampedCandNbrs := make([][]value.Var, len(order))

	for i, v := range order {
		neighbors := mg.Neighbors(v)
		var inOrd, clampCand []value.Var
		for _, u := range neighbors {
			if _, ok := orderPos[u]; ok {
				inOrd = append(inOrd, u)
			} else {
				clampCand = append(clampCand, u)
			}
		}
		sort.Slice(inOrd, func(a, b int) bool { return inOrd[a] < inOrd[b] })
		sort.Slice(clampCand, func(a, b int) bool { return clampCand[a] < clampCand[b] })
		inOrderNbrs[i] = inOrd
		clampedCandNbrs[i] = clampCand

		node := &Node{NodeVar: v, Parent: -1}
		nodes = append(nodes, node)
		byVar[v] = i

		mg.Connect(neighbors)
		mg.Remove(v)
	}

	for i := range order {
		nbrs := inOrderNbrs[i]
		if len(nbrs) == 0 {
			continue
		}
		best := nbrs[0]
		for _, u := range nbrs[1:] {
			if orderPos[u] < orderPos[best] {
				best = u
			}
		}
		parentIdx := byVar[best]
		nodes[i].Parent = parentIdx
		nodes[i].SepVars = nbrs
		nodes[parentIdx].Children = append(nodes[parentIdx].Children, i)
	}

	var roots []int
	for i, n := range nodes {
		if n.Parent == -1 {
			roots = append(roots, i)
		}
	}

	rootOf := make([]int, len(nodes))
	for i := range nodes {
		rootOf[i] = findRoot(nodes, i)
	}
	clampedAtRoot := make(map[int]map[value.Var]struct{})
	for i := range order {
		for _, c := range clampedCandNbrs[i] {
			r := rootOf[i]
			set, ok := clampedAtRoot[r]
			if !ok {
				set = make(map[value.Var]struct{})
				clampedAtRoot[r] = set
			}
			set[c] = struct{}{}
		}
	}
	for r, set := range clampedAtRoot {
		vars := make([]value.Var, 0, len(set))
		for v := range set {
			vars = append(vars, v)
		}
		sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
		nodes[r].ClampedVars = vars
	}

	var clampedVars []value.Var
	for v := 0; v < numVars; v++ {
		if _, ok := orderPos[value.Var(v)]; !ok {
			clampedVars = append(clampedVars, value.Var(v))
		}
	}

	telemetry.Stage(sink, "treedecomp_built", map[string]any{
		"nodes": len(nodes), "roots": len(roots), "clamped": len(clampedVars),
	})
	return &TreeDecomp{
		nodes:       nodes,
		roots:       roots,
		byVar:       byVar,
		numVars:     numVars,
		clampedVars: clampedVars,
	}, nil
}

// findRoot follows parent links to the root of i's component. Parent
// indices are always strictly greater than their child's (later-eliminated
// variables are appended later), so this always terminates.
func findRoot(nodes []*Node, i int) int {
	for nodes[i].Parent != -1 {
		i = nodes[i].Parent
	}
	return i
}
