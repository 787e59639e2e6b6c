// Package buckettree drives the two-pass message-passing engine over a
// validated tree decomposition: an upward pass that merges each node's
// inputs and marginalizes its eliminated variable into a lambda message for
// its parent, and an optional downward pass that samples or solves for a
// complete assignment. The engine follows a walker+Options+hooks shape,
// generalized from "visit every vertex once" to "merge every node's inputs
// once then optionally walk back down them", with context.Context
// cancellation checked at safe points between node visits.
package buckettree

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/arbogen/bucketdecomp/internal/telemetry"
	"github.com/arbogen/bucketdecomp/merger"
	"github.com/arbogen/bucketdecomp/semiring"
	"github.com/arbogen/bucketdecomp/table"
	"github.com/arbogen/bucketdecomp/task"
	"github.com/arbogen/bucketdecomp/treedecomp"
	"github.com/arbogen/bucketdecomp/value"
)

// Sentinel errors.
var (
	// ErrOperationUnavailable indicates Solve or Sample was invoked on a
	// BucketTree built without Solvable, NodeTables was invoked on one built
	// without RetainTables, or Sample was given a nil rng. A canceled
	// context is reported with the context's own error instead.
	ErrOperationUnavailable = errors.New("buckettree: operation unavailable")
)

// Options configures a BucketTree's construction.
type Options struct {
	// Solvable enables the downward pass (Solve/Sample); it records a
	// SolvableMarginalizer per node instead of a plain Marginalizer.
	Solvable bool

	// RetainTables keeps every base table and received lambda per node,
	// plus a placeholder pi table filled in by the downward pass, for
	// downstream marginal extraction via NodeTables.
	RetainTables bool

	// Ctx allows cancellation of the upward pass between nodes; if nil,
	// context.Background() is used.
	Ctx context.Context

	// Sink receives one stage event after the upward pass completes and
	// one after each downward-pass entry point (Solve/Sample) completes.
	// A nil Sink is safe and discards events.
	Sink telemetry.Sink
}

// nodeRetained holds the tables RetainTables asks BucketTree to keep.
type nodeRetained[Y any] struct {
	base         []*table.Table[Y]
	childLambdas []*table.Table[Y]
	pi           *table.Table[Y]
}

// BucketTree is the upward/downward message-passing engine over one Task's
// tree decomposition, for one evidence vector x0.
type BucketTree[Y any] struct {
	task    *task.Task[Y]
	decomp  *treedecomp.TreeDecomp
	binding *task.Binding[Y]
	x0      []value.Dom
	opts    Options
	mg      *merger.Merger[Y]

	lambda    []*table.Table[Y]
	solvMarg  []semiring.SolvableMarginalizer[Y]
	retained  []nodeRetained[Y]
	rootValue []Y
}

// New builds a BucketTree over decomp for the given evidence x0, running
// the upward pass immediately. Callers must check decomp.Complexity(...)
// against their own bound before calling New — BucketTree does not enforce
// one itself.
func New[Y any](tk *task.Task[Y], decomp *treedecomp.TreeDecomp, x0 []value.Dom, opts Options) (*BucketTree[Y], error) {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	if len(x0) == 0 {
		// An empty evidence vector stands for all-zero evidence.
		x0 = make([]value.Dom, tk.NumVars())
	}
	bt := &BucketTree[Y]{
		task:    tk,
		decomp:  decomp,
		binding: tk.Bind(decomp),
		x0:      x0,
		opts:    opts,
		mg:      merger.New[Y](tk.Ops()),
	}
	if err := bt.upward(); err != nil {
		return nil, err
	}
	return bt, nil
}

// upward runs the bottom-up pass, node index ascending. This is a valid
// post-order because a node's parent always has a strictly higher index
// than its children (treedecomp.Build appends parents after their
// children's neighbors have been discovered).
func (bt *BucketTree[Y]) upward() error {
	nodes := bt.decomp.Nodes()
	bt.lambda = make([]*table.Table[Y], len(nodes))
	if bt.opts.Solvable {
		bt.solvMarg = make([]semiring.SolvableMarginalizer[Y], len(nodes))
	}
	if bt.opts.RetainTables {
		bt.retained = make([]nodeRetained[Y], len(nodes))
	}

	ops := bt.task.Ops()
	domSizeOf := bt.task.DomSize

	for i, n := range nodes {
		select {
		case <-bt.opts.Ctx.Done():
			return fmt.Errorf("buckettree.upward: %w", bt.opts.Ctx.Err())
		default:
		}

		base, err := bt.binding.BaseTables(i, bt.x0)
		if err != nil {
			return fmt.Errorf("buckettree.upward: node %d: %w", i, err)
		}
		childLambdas := make([]*table.Table[Y], len(n.Children))
		for j, c := range n.Children {
			childLambdas[j] = bt.lambda[c]
		}

		inputs := make([]*table.Table[Y], 0, len(base)+len(childLambdas))
		inputs = append(inputs, base...)
		inputs = append(inputs, childLambdas...)

		outDomSize := domSizeOf(n.NodeVar)

		var merged *table.Table[Y]
		if bt.opts.Solvable {
			sm := ops.NewSolvableMarginalizer(outDomSize)
			merged, err = bt.mg.MergeSolvable(inputs, n.NodeVar, domSizeOf, sm)
			bt.solvMarg[i] = sm
		} else {
			m := ops.NewMarginalizer(outDomSize)
			merged, err = bt.mg.Merge(inputs, n.NodeVar, domSizeOf, m)
		}
		if err != nil {
			return fmt.Errorf("buckettree.upward: node %d: %w", i, err)
		}
		bt.lambda[i] = merged

		if bt.opts.RetainTables {
			bt.retained[i] = nodeRetained[Y]{base: base, childLambdas: childLambdas}
		}
	}

	roots := bt.decomp.Roots()
	bt.rootValue = make([]Y, len(roots))
	for ri, r := range roots {
		bt.rootValue[ri] = bt.lambda[r].At(0)
	}
	telemetry.Stage(bt.opts.Sink, "upward_pass_complete", map[string]any{
		"nodes": len(nodes),
		"roots": len(roots),
	})
	return nil
}

// RootValues returns the per-root scalar the upward pass produced, the seed
// for Task.ProblemValue.
func (bt *BucketTree[Y]) RootValues() []Y { return bt.rootValue }

// NodeTables returns the base tables, received child lambdas, and (after
// Solve/Sample has run) the pi table retained for node i. Requires
// RetainTables.
func (bt *BucketTree[Y]) NodeTables(i int) ([]*table.Table[Y], []*table.Table[Y], *table.Table[Y], error) {
	if !bt.opts.RetainTables {
		return nil, nil, nil, fmt.Errorf("buckettree.NodeTables: %w", ErrOperationUnavailable)
	}
	r := bt.retained[i]
	return r.base, r.childLambdas, r.pi, nil
}

// Solution is one complete Min-Sum assignment: Value is its objective and
// Assignment is indexed by value.Var over the full variable universe.
type Solution struct {
	Value      float64
	Assignment []value.Dom
}

// Solve reconstructs up to K complete assignments for a Min-Sum BucketTree,
// sorted by value then lexicographically by assignment. K is
// Task.MaxSolutionsValue(); K<=0 is treated as 1.
//
// Exactness: topKSubtree explores divergence at every node, not only the
// roots — each node's own top-k local choices are combined with each
// child's own top-k subtree completions via the same bounded pairwise fold
// used below to cross-join multiple roots, so the result is the true top-k
// rather than only the top-domSizeOf(root) reachable by diverging at the
// root alone.
func Solve(bt *BucketTree[float64]) ([]Solution, error) {
	if !bt.opts.Solvable {
		return nil, fmt.Errorf("buckettree.Solve: %w", ErrOperationUnavailable)
	}
	k := bt.task.MaxSolutionsValue()
	if k <= 0 {
		k = 1
	}

	// Tables whose scope is entirely clamped never reach a node; their
	// contribution is the same for every candidate and is added once below.
	ops := bt.task.Ops()
	roots := bt.decomp.Roots()
	seeds := make([]float64, len(roots))
	for i := range seeds {
		seeds[i] = ops.CombineIdentity()
	}
	clampedPart, err := bt.task.ProblemValue(seeds, bt.x0, bt.decomp.ClampedVars())
	if err != nil {
		return nil, fmt.Errorf("buckettree.Solve: %w", err)
	}
	if len(roots) == 0 {
		return []Solution{{Value: clampedPart, Assignment: cloneDoms(bt.x0)}}, nil
	}

	// Multiple roots (disconnected components): each contributes its own
	// top-k independently; combine pairwise via bounded insertion, taking
	// the best k overall. Single-root is the common case and skips the
	// cross-join entirely.
	perRoot := make([][]rootCandidate, len(roots))
	for ri, r := range roots {
		select {
		case <-bt.opts.Ctx.Done():
			return nil, fmt.Errorf("buckettree.Solve: %w", bt.opts.Ctx.Err())
		default:
		}
		cands, err := topKSubtree(bt, r, cloneDoms(bt.x0), k)
		if err != nil {
			return nil, fmt.Errorf("buckettree.Solve: root %d: %w", r, err)
		}
		perRoot[ri] = cands
	}

	combined := perRoot[0]
	for _, next := range perRoot[1:] {
		combined = crossJoin(ops, combined, next, bt.x0, k)
	}

	sort.Slice(combined, func(i, j int) bool {
		if combined[i].value != combined[j].value {
			return combined[i].value < combined[j].value
		}
		return lexLess(combined[i].assign, combined[j].assign)
	})
	if len(combined) > k {
		combined = combined[:k]
	}

	out := make([]Solution, len(combined))
	for i, c := range combined {
		out[i] = Solution{Value: ops.Combine(c.value, clampedPart), Assignment: c.assign}
	}
	telemetry.Stage(bt.opts.Sink, "downward_pass_complete", map[string]any{
		"op": "solve", "solutions": len(out),
	})
	return out, nil
}

type rootCandidate struct {
	value  float64
	assign []value.Dom
}

func crossJoin(ops semiring.Ops[float64], a, b []rootCandidate, base []value.Dom, k int) []rootCandidate {
	out := make([]rootCandidate, 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			merged := make([]value.Dom, len(x.assign))
			copy(merged, x.assign)
			for v, d := range y.assign {
				if d != base[v] {
					// y.assign only differs from base at variables y's
					// component owns; every other variable keeps x's value.
					merged[v] = d
				}
			}
			out = append(out, rootCandidate{value: ops.Combine(x.value, y.value), assign: merged})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value < out[j].value
		}
		return lexLess(out[i].assign, out[j].assign)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// topKSubtree returns up to k complete-subtree candidates rooted at
// nodeIdx, given the ancestor variables already fixed in assignSoFar.
//
// A node's own local-choice value (from solvMarg, already top-k from the
// upward pass) folds in every child's single best contribution, because
// that is how the upward merge built it. Subtracting each child's
// best-only contribution back out isolates this node's own factor value
// in isolation; a child's non-best candidate can then be substituted back
// in — via the same bounded cross-join used to combine multiple roots —
// without double-counting the child's share.
func topKSubtree(bt *BucketTree[float64], nodeIdx int, assignSoFar []value.Dom, k int) ([]rootCandidate, error) {
	select {
	case <-bt.opts.Ctx.Done():
		return nil, fmt.Errorf("buckettree.topKSubtree: %w", bt.opts.Ctx.Err())
	default:
	}
	n := bt.decomp.Node(nodeIdx)
	sepScope := bt.lambda[nodeIdx].Scope()
	sepAssign := make([]value.Dom, sepScope.Len())
	for i, v := range sepScope.Vars() {
		sepAssign[i] = assignSoFar[v]
	}
	sepIdx, err := sepScope.Flat(sepAssign)
	if err != nil {
		return nil, fmt.Errorf("buckettree.topKSubtree: node %d: %w", nodeIdx, err)
	}
	localChoices, err := bt.solvMarg[nodeIdx].Complete(sepIdx, nil)
	if err != nil {
		return nil, fmt.Errorf("buckettree.topKSubtree: node %d: %w", nodeIdx, err)
	}
	if len(localChoices) > k {
		localChoices = localChoices[:k]
	}

	if len(n.Children) == 0 {
		out := make([]rootCandidate, len(localChoices))
		for i, c := range localChoices {
			a := cloneDoms(assignSoFar)
			a[n.NodeVar] = c.Dom
			if bt.opts.RetainTables && i == 0 {
				bt.retained[nodeIdx].pi = singleCellTable[float64](bt.lambda[nodeIdx].Scope(), a)
			}
			out[i] = rootCandidate{value: c.Value, assign: a}
		}
		return out, nil
	}

	var branches []rootCandidate
	for ci, c := range localChoices {
		a := cloneDoms(assignSoFar)
		a[n.NodeVar] = c.Dom
		if bt.opts.RetainTables && ci == 0 {
			bt.retained[nodeIdx].pi = singleCellTable[float64](bt.lambda[nodeIdx].Scope(), a)
		}

		localPart := c.Value
		childCandLists := make([][]rootCandidate, len(n.Children))
		for idx, childIdx := range n.Children {
			childScope := bt.lambda[childIdx].Scope()
			childSep := make([]value.Dom, childScope.Len())
			for i, v := range childScope.Vars() {
				childSep[i] = a[v]
			}
			childBest, err := bt.lambda[childIdx].Value(childSep)
			if err != nil {
				return nil, fmt.Errorf("buckettree.topKSubtree: node %d: %w", nodeIdx, err)
			}
			localPart -= childBest

			childCands, err := topKSubtree(bt, childIdx, a, k)
			if err != nil {
				return nil, err
			}
			childCandLists[idx] = childCands
		}

		combos := []rootCandidate{{value: localPart, assign: a}}
		for _, list := range childCandLists {
			combos = crossJoin(bt.task.Ops(), combos, list, a, k)
		}
		branches = append(branches, combos...)
	}

	sort.Slice(branches, func(i, j int) bool {
		if branches[i].value != branches[j].value {
			return branches[i].value < branches[j].value
		}
		return lexLess(branches[i].assign, branches[j].assign)
	})
	if len(branches) > k {
		branches = branches[:k]
	}
	return branches, nil
}

// Sample draws one complete assignment for a Log-Sum-Product BucketTree
// using rng as the uniform-[0,1) source. Repeated calls reuse the cached
// upward-pass cumulative distributions, so only the downward pass runs.
func Sample[Y any](bt *BucketTree[Y], rng *rand.Rand) ([]value.Dom, error) {
	if !bt.opts.Solvable {
		return nil, fmt.Errorf("buckettree.Sample: %w", ErrOperationUnavailable)
	}
	if rng == nil {
		return nil, fmt.Errorf("buckettree.Sample: %w", ErrOperationUnavailable)
	}
	assign := cloneDoms(bt.x0)
	for _, r := range bt.decomp.Roots() {
		select {
		case <-bt.opts.Ctx.Done():
			return nil, fmt.Errorf("buckettree.Sample: %w", bt.opts.Ctx.Err())
		default:
		}
		sm := bt.solvMarg[r]
		choices, err := sm.Complete(0, rng)
		if err != nil {
			return nil, fmt.Errorf("buckettree.Sample: root %d: %w", r, err)
		}
		if err := bt.sampleFrom(r, choices[0].Dom, assign, rng); err != nil {
			return nil, err
		}
	}
	telemetry.Stage(bt.opts.Sink, "downward_pass_complete", map[string]any{"op": "sample"})
	return assign, nil
}

func (bt *BucketTree[Y]) sampleFrom(nodeIdx int, chosenDom value.Dom, assign []value.Dom, rng *rand.Rand) error {
	select {
	case <-bt.opts.Ctx.Done():
		return fmt.Errorf("buckettree.sampleFrom: %w", bt.opts.Ctx.Err())
	default:
	}
	n := bt.decomp.Node(nodeIdx)
	assign[n.NodeVar] = chosenDom
	if bt.opts.RetainTables {
		bt.retained[nodeIdx].pi = singleCellTable[Y](bt.lambda[nodeIdx].Scope(), assign)
	}
	for _, c := range n.Children {
		sepScope := bt.lambda[c].Scope()
		sepAssign := make([]value.Dom, sepScope.Len())
		for i, v := range sepScope.Vars() {
			sepAssign[i] = assign[v]
		}
		outIdx, err := sepScope.Flat(sepAssign)
		if err != nil {
			return fmt.Errorf("buckettree.sampleFrom: node %d: %w", c, err)
		}
		choices, err := bt.solvMarg[c].Complete(outIdx, rng)
		if err != nil {
			return fmt.Errorf("buckettree.sampleFrom: node %d: %w", c, err)
		}
		if err := bt.sampleFrom(c, choices[0].Dom, assign, rng); err != nil {
			return err
		}
	}
	return nil
}

func cloneDoms(x0 []value.Dom) []value.Dom {
	out := make([]value.Dom, len(x0))
	copy(out, x0)
	return out
}

func lexLess(a, b []value.Dom) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// singleCellTable marks which cell of scope the downward pass actually
// visited: every cell except the chosen assignment is the zero value. This
// is a marker, not a full partial-joint distribution — reconstructing true
// pi values would require re-running the marginalizer with the separator
// held open, which NodeTables' callers do not need for this engine's
// exposed operations.
func singleCellTable[Y any](scope value.Scope, assign []value.Dom) *table.Table[Y] {
	sub := make([]value.Dom, scope.Len())
	for i, v := range scope.Vars() {
		sub[i] = assign[v]
	}
	t := table.New[Y](scope)
	idx, err := scope.Flat(sub)
	if err == nil {
		var marker Y
		t.Set(idx, marker)
	}
	return t
}
