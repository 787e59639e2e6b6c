// Package voorder implements the greedy variable-ordering heuristic: given a
// factor graph, a complexity budget, and per-variable clamp-rank hints, it
// produces an elimination order one variable at a time, clamping whatever it
// cannot afford to eliminate within budget. The cost-ordered candidate index
// is a lazy-deletion container/heap priority queue (stale entries are
// pushed over and skipped at pop time rather than repaired in place); the
// caller supplies a *rand.Rand explicitly rather than a hidden time-based
// source.
package voorder

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/arbogen/bucketdecomp/graph"
	"github.com/arbogen/bucketdecomp/value"
)

// Heuristic selects the per-variable elimination cost function.
type Heuristic int

const (
	// MinDegree costs a variable by its current working-graph degree.
	MinDegree Heuristic = iota
	// WeightedMinDegree costs a variable by domain size times degree.
	WeightedMinDegree
	// MinFill costs a variable by the number of non-adjacent pairs among
	// its current neighbors (the fill-in its elimination would create).
	MinFill
	// WeightedMinFill costs a variable by the domain-size product summed
	// over those same non-adjacent neighbor pairs.
	WeightedMinFill
)

// String implements fmt.Stringer.
func (h Heuristic) String() string {
	switch h {
	case MinDegree:
		return "MIN_DEGREE"
	case WeightedMinDegree:
		return "WEIGHTED_MIN_DEGREE"
	case MinFill:
		return "MIN_FILL"
	case WeightedMinFill:
		return "WEIGHTED_MIN_FILL"
	default:
		return fmt.Sprintf("Heuristic(%d)", int(h))
	}
}

func (h Heuristic) valid() bool { return h >= MinDegree && h <= WeightedMinFill }

// DomSizeFunc resolves a variable's domain size.
type DomSizeFunc func(value.Var) value.Dom

// Sentinel errors.
var (
	// ErrInvalidHeuristic indicates an out-of-range Heuristic value.
	ErrInvalidHeuristic = errors.New("voorder: invalid heuristic")

	// ErrClampRanksLength indicates clampRanks is neither empty nor numVars long.
	ErrClampRanksLength = errors.New("voorder: clampRanks length must be 0 or numVars")

	// ErrInvalidSelectionScale indicates selectionScale is negative, NaN, or infinite.
	ErrInvalidSelectionScale = errors.New("voorder: selectionScale must be finite and >= 0")
)

// GreedyOrder produces an elimination order over g's numVars variables.
//
// clampRanks is either empty (treated as all zero) or exactly numVars long;
// a rank of -1 forces that variable to clamp before any elimination is
// attempted. Ties in cost (for elimination) or in (clampRank, clampValue)
// (for clamping) are broken by sampling uniformly via rng from a pool of
// max(|ties|, ceil(selectionScale * |ties|)) candidates, filled up with the
// next-best ones and capped at the number available. With rng == nil the
// first pool entry is always taken: the lowest-index tied variable.
func GreedyOrder(g *graph.Graph, numVars int, domSizeOf DomSizeFunc, maxComplexity float64, clampRanks []int, heuristic Heuristic, selectionScale float64, rng *rand.Rand) ([]value.Var, error) {
	if !heuristic.valid() {
		return nil, fmt.Errorf("voorder.GreedyOrder: %w", ErrInvalidHeuristic)
	}
	if len(clampRanks) != 0 && len(clampRanks) != numVars {
		return nil, fmt.Errorf("voorder.GreedyOrder: got %d, want 0 or %d: %w", len(clampRanks), numVars, ErrClampRanksLength)
	}
	if math.IsNaN(selectionScale) || math.IsInf(selectionScale, 0) || selectionScale < 0 {
		return nil, fmt.Errorf("voorder.GreedyOrder: %w", ErrInvalidSelectionScale)
	}

	e := newEliminator(g, numVars, domSizeOf, maxComplexity, clampRanks, heuristic, selectionScale, rng)
	return e.run(), nil
}

// eliminator holds the mutable working state of one GreedyOrder run.
type eliminator struct {
	mg          *graph.Mutable
	numVars     int
	domSizeOf   DomSizeFunc
	maxComplex  float64
	clampRank   []int
	heuristic   Heuristic
	scale       float64
	rng         *rand.Rand
	processed   []bool
	activeCount int
	cost        []float64 // current cost(v), valid only while !processed[v]
	costHeap    *candidateHeap
	order       []value.Var
}

func newEliminator(g *graph.Graph, numVars int, domSizeOf DomSizeFunc, maxComplexity float64, clampRanks []int, heuristic Heuristic, scale float64, rng *rand.Rand) *eliminator {
	ranks := make([]int, numVars)
	copy(ranks, clampRanks)

	e := &eliminator{
		mg:          graph.NewMutable(g, numVars),
		numVars:     numVars,
		domSizeOf:   domSizeOf,
		maxComplex:  maxComplexity,
		clampRank:   ranks,
		heuristic:   heuristic,
		scale:       scale,
		rng:         rng,
		processed:   make([]bool, numVars),
		activeCount: numVars,
		cost:        make([]float64, numVars),
		costHeap:    &candidateHeap{},
	}
	heap.Init(e.costHeap)
	for v := 0; v < numVars; v++ {
		e.cost[v] = e.computeCost(value.Var(v))
		heap.Push(e.costHeap, candidate{cost: e.cost[v], v: value.Var(v)})
	}
	return e
}

func (e *eliminator) run() []value.Var {
	for e.activeCount > 0 {
		if v, ok := e.forcedClampCandidate(); ok {
			e.doClampAmong(onlyVar(v))
			continue
		}
		if v, ok := e.bestEliminationCandidate(); ok {
			e.eliminate(v)
			continue
		}
		e.doClampAmong(nil) // no restriction: pick from every active variable
	}
	return e.order
}

// forcedClampCandidate reports an arbitrary active variable with clampRank
// == -1, if any are left; its presence makes clamping mandatory this step.
func (e *eliminator) forcedClampCandidate() (value.Var, bool) {
	for v := 0; v < e.numVars; v++ {
		if !e.processed[v] && e.clampRank[v] == -1 {
			return value.Var(v), true
		}
	}
	return 0, false
}

func onlyVar(v value.Var) []value.Var { return []value.Var{v} }

// bestEliminationCandidate pops every heap entry, discarding stale ones
// (already processed, or whose recorded cost no longer matches the
// variable's current cost), finds the minimum cost among the
// complexity-feasible live entries, pushes the live entries back, then
// builds and samples the selection pool.
func (e *eliminator) bestEliminationCandidate() (value.Var, bool) {
	var feasible []candidate

	// Drain every live entry to find the tied-minimum set and, if needed,
	// the next-best entries to enlarge the pool; re-push them afterward.
	var drained []candidate
	bestCost := math.Inf(1)
	for e.costHeap.Len() > 0 {
		c := heap.Pop(e.costHeap).(candidate)
		if e.processed[c.v] || e.cost[c.v] != c.cost {
			continue // stale, discard permanently
		}
		drained = append(drained, c)
		if !e.complexityFeasible(c.v) {
			continue
		}
		if c.cost < bestCost {
			bestCost = c.cost
		}
	}
	for _, c := range drained {
		heap.Push(e.costHeap, c)
	}
	if math.IsInf(bestCost, 1) {
		return 0, false
	}

	for _, c := range drained {
		if e.complexityFeasible(c.v) && c.cost == bestCost {
			feasible = append(feasible, c)
		}
	}
	sort.Slice(feasible, func(i, j int) bool { return feasible[i].v < feasible[j].v })

	var rest []candidate
	for _, c := range drained {
		if e.complexityFeasible(c.v) && c.cost != bestCost {
			rest = append(rest, c)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].cost != rest[j].cost {
			return rest[i].cost < rest[j].cost
		}
		return rest[i].v < rest[j].v
	})

	pool := enlargePool(len(feasible), e.scale, len(feasible)+len(rest))
	chosen := feasible
	for i := len(feasible); i < pool && i-len(feasible) < len(rest); i++ {
		chosen = append(chosen, rest[i-len(feasible)])
	}

	pick := pickIndex(len(chosen), e.rng)
	return chosen[pick].v, true
}

// doClampAmong clamps one variable chosen from restrict (or, if restrict is
// nil, from every active variable), tie-broken by (clampRank ascending,
// clampValue descending, index ascending), with selectionScale enlargement.
func (e *eliminator) doClampAmong(restrict []value.Var) {
	var pool []value.Var
	if restrict != nil {
		pool = restrict
	} else {
		for v := 0; v < e.numVars; v++ {
			if !e.processed[v] {
				pool = append(pool, value.Var(v))
			}
		}
	}
	sort.Slice(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if e.clampRank[a] != e.clampRank[b] {
			return e.clampRank[a] < e.clampRank[b]
		}
		ca, cb := e.clampValue(a), e.clampValue(b)
		if ca != cb {
			return ca > cb
		}
		return a < b
	})

	bestRank := e.clampRank[pool[0]]
	bestVal := e.clampValue(pool[0])
	tiedEnd := 1
	for tiedEnd < len(pool) && e.clampRank[pool[tiedEnd]] == bestRank && e.clampValue(pool[tiedEnd]) == bestVal {
		tiedEnd++
	}
	size := enlargePool(tiedEnd, e.scale, len(pool))

	pick := pickIndex(size, e.rng)
	e.clampOne(pool[pick])
}

// enlargePool returns max(tied, ceil(scale*tied)) clamped to available.
func enlargePool(tied int, scale float64, available int) int {
	target := int(math.Ceil(scale * float64(tied)))
	if target < tied {
		target = tied
	}
	if target > available {
		target = available
	}
	return target
}

func pickIndex(n int, rng *rand.Rand) int {
	if n <= 1 || rng == nil {
		return 0
	}
	return rng.Intn(n)
}

// complexityFeasible reports whether eliminating v now (scope = {v} ∪
// current neighbors) would stay within the complexity budget.
func (e *eliminator) complexityFeasible(v value.Var) bool {
	bits := math.Log2(float64(e.domSizeOf(v)))
	for _, u := range e.mg.Neighbors(v) {
		bits += math.Log2(float64(e.domSizeOf(u)))
	}
	return bits <= e.maxComplex
}

// eliminate forms v's elimination clique, removes v, appends it to the
// order, and refreshes the cost of every affected variable.
func (e *eliminator) eliminate(v value.Var) {
	nbrs := append([]value.Var(nil), e.mg.Neighbors(v)...)
	affected := e.affectedByElimination(v, nbrs)

	e.mg.Connect(nbrs)
	e.mg.Remove(v)
	e.processed[v] = true
	e.activeCount--
	e.order = append(e.order, v)

	for u := range affected {
		if e.processed[u] {
			continue
		}
		e.cost[u] = e.computeCost(u)
		heap.Push(e.costHeap, candidate{cost: e.cost[u], v: u})
	}
}

// affectedByElimination returns the variables whose cost may change once v
// is eliminated: its neighbors always (their degree drops), and, for the
// fill-based heuristics, neighbors-of-neighbors too (their neighbor set
// gains new edges from the elimination clique, which changes their own
// fill count).
func (e *eliminator) affectedByElimination(v value.Var, nbrs []value.Var) map[value.Var]struct{} {
	affected := make(map[value.Var]struct{}, len(nbrs))
	for _, u := range nbrs {
		affected[u] = struct{}{}
	}
	if e.heuristic == MinFill || e.heuristic == WeightedMinFill {
		for _, u := range nbrs {
			for _, w := range e.mg.Neighbors(u) {
				if w != v {
					affected[w] = struct{}{}
				}
			}
		}
	}
	return affected
}

// clampOne removes v from the working graph without forming a clique (a
// clamped variable is never eliminated, so no fill-in is introduced),
// appends nothing to the order, decrements clampRank for every variable
// whose rank is positive and exceeds v's former rank (so no clamp ever
// turns another variable's rank into the forcing -1), and refreshes v's
// former neighbors'
// costs (their degree changed too, even though v itself was never connected
// into a clique).
func (e *eliminator) clampOne(v value.Var) {
	nbrs := append([]value.Var(nil), e.mg.Neighbors(v)...)
	former := e.clampRank[v]

	e.mg.Remove(v)
	e.processed[v] = true
	e.activeCount--

	for u := 0; u < e.numVars; u++ {
		if !e.processed[u] && e.clampRank[u] > former && e.clampRank[u] > 0 {
			e.clampRank[u]--
		}
	}

	for _, u := range nbrs {
		if e.processed[u] {
			continue
		}
		e.cost[u] = e.computeCost(u)
		heap.Push(e.costHeap, candidate{cost: e.cost[u], v: u})
	}
}

// clampValue is D_v * deg(v), used both as WeightedMinDegree's cost and as
// the clamp tie-break value.
func (e *eliminator) clampValue(v value.Var) float64 {
	return float64(e.domSizeOf(v)) * float64(e.mg.Degree(v))
}

func (e *eliminator) computeCost(v value.Var) float64 {
	switch e.heuristic {
	case MinDegree:
		return float64(e.mg.Degree(v))
	case WeightedMinDegree:
		return e.clampValue(v)
	case MinFill, WeightedMinFill:
		nbrs := e.mg.Neighbors(v)
		var total float64
		for i := 0; i < len(nbrs); i++ {
			for j := i + 1; j < len(nbrs); j++ {
				a, b := nbrs[i], nbrs[j]
				if e.mg.HasEdge(a, b) {
					continue
				}
				if e.heuristic == MinFill {
					total++
				} else {
					total += float64(e.domSizeOf(a)) * float64(e.domSizeOf(b))
				}
			}
		}
		return total
	default:
		return 0
	}
}

// candidate is one entry in the cost-ordered priority queue.
type candidate struct {
	cost float64
	v    value.Var
}

// candidateHeap is a lazy-deletion min-heap ordered by (cost, v): stale
// entries (a processed variable, or one whose cost has since changed) are
// left in place when pushed over and discarded only when popped.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].v < h[j].v
}
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
