// Package task binds a set of input tables and a semiring together: it
// derives the shared variable universe, per-variable domain sizes, and the
// factor graph those tables imply, then hands out the per-node base tables
// and clamped-variable scalar a BucketTree needs. Construction follows a
// validate-once-then-expose-read-only-derived-state idiom, and substitutes
// evidence for clamped variables by projecting each table's row into a
// smaller shape, the same way a wider matrix gets projected down to a
// narrower one.
package task

import (
	"errors"
	"fmt"

	"github.com/arbogen/bucketdecomp/graph"
	"github.com/arbogen/bucketdecomp/internal/telemetry"
	"github.com/arbogen/bucketdecomp/semiring"
	"github.com/arbogen/bucketdecomp/table"
	"github.com/arbogen/bucketdecomp/treedecomp"
	"github.com/arbogen/bucketdecomp/value"
)

// Sentinel errors.
var (
	// ErrDomainMismatch indicates two input tables disagree on a shared
	// variable's domain size.
	ErrDomainMismatch = errors.New("task: domain size mismatch across tables")

	// ErrEvidenceOutOfRange indicates x0 is too short or out of range for a
	// clamped variable being substituted.
	ErrEvidenceOutOfRange = errors.New("task: evidence vector entry out of range")
)

// Task binds input tables to a semiring and derives the factor graph and
// domain-size table shared by variable ordering, tree decomposition, and
// the bucket-tree engine.
type Task[Y any] struct {
	ops      semiring.Ops[Y]
	tables   []*table.Table[Y]
	numVars  int
	domSizes []value.Dom
	g        *graph.Graph
	maxK     int
}

// New validates tables for cross-table domain-size agreement, derives
// numVars (at least minNumVars), per-variable domain sizes, and the factor
// graph (an edge between every pair of variables sharing a table scope).
//
// sinks is variadic so existing callers are unaffected; only sinks[0] (if
// present) is used, mirroring Options.Sink's nil-is-safe convention
// elsewhere in the engine.
func New[Y any](ops semiring.Ops[Y], tables []*table.Table[Y], minNumVars int, sinks ...telemetry.Sink) (*Task[Y], error) {
	var sink telemetry.Sink
	if len(sinks) > 0 {
		sink = sinks[0]
	}
	maxVar := -1
	for _, t := range tables {
		for _, v := range t.Scope().Vars() {
			if int(v) > maxVar {
				maxVar = int(v)
			}
		}
	}
	numVars := minNumVars
	if maxVar+1 > numVars {
		numVars = maxVar + 1
	}
	if numVars < 0 {
		numVars = 0
	}

	domSizes := make([]value.Dom, numVars)
	for i := range domSizes {
		domSizes[i] = 1
	}
	seen := make([]bool, numVars)
	for _, t := range tables {
		sc := t.Scope()
		for i, v := range sc.Vars() {
			d := sc.DomSize(i)
			if seen[v] && domSizes[v] != d {
				return nil, fmt.Errorf("task.New: var %d: %d vs %d: %w", v, domSizes[v], d, ErrDomainMismatch)
			}
			domSizes[v] = d
			seen[v] = true
		}
	}

	var edges [][2]value.Var
	for _, t := range tables {
		vars := t.Scope().Vars()
		for i := 0; i < len(vars); i++ {
			for j := i + 1; j < len(vars); j++ {
				edges = append(edges, [2]value.Var{vars[i], vars[j]})
			}
		}
	}
	g, err := graph.Build(edges, numVars)
	if err != nil {
		return nil, fmt.Errorf("task.New: %w", err)
	}

	telemetry.Stage(sink, "task_built", map[string]any{
		"numVars": numVars, "tables": len(tables),
	})
	return &Task[Y]{
		ops:      ops,
		tables:   tables,
		numVars:  numVars,
		domSizes: domSizes,
		g:        g,
	}, nil
}

// NumVars returns the size of the variable universe [0, numVars).
func (t *Task[Y]) NumVars() int { return t.numVars }

// DomSize returns v's domain size (1 if v appears in no input table).
func (t *Task[Y]) DomSize(v value.Var) value.Dom { return t.domSizes[v] }

// DomSizes returns every variable's domain size, indexed by Var.
func (t *Task[Y]) DomSizes() []value.Dom { return t.domSizes }

// Graph returns the factor graph derived from the input tables' scopes.
func (t *Task[Y]) Graph() *graph.Graph { return t.g }

// Tables returns the input tables, in the order they were supplied.
func (t *Task[Y]) Tables() []*table.Table[Y] { return t.tables }

// Ops returns the bound semiring.
func (t *Task[Y]) Ops() semiring.Ops[Y] { return t.ops }

// MaxSolutions configures Min-Sum-style K-best requests. It has no effect on
// semirings that ignore K.
func (t *Task[Y]) MaxSolutions(k int) { t.maxK = k }

// MaxSolutionsValue returns the K configured via MaxSolutions (0 if unset).
func (t *Task[Y]) MaxSolutionsValue() int { return t.maxK }

// Binding attaches every input table to a tree-decomposition node (or
// excludes it from the tree entirely, when its scope is non-empty and
// entirely clamped) so BaseTables can be answered in O(1) per node.
type Binding[Y any] struct {
	task   *Task[Y]
	decomp *treedecomp.TreeDecomp
	byNode map[int][]*table.Table[Y]
}

// Bind computes the table-to-node attachment for decomp: a table attaches
// to the node of the earliest-eliminated variable in its scope (the
// classic bucket-elimination placement rule — that node is the only one
// guaranteed to still have every other one of the table's variables live,
// so it is the only node that can fully consume the factor); an
// empty-scope table attaches to the first root, or to no node at all if
// decomp has no roots (every variable clamped); a non-empty table whose
// scope is entirely clamped variables also attaches to no node. Either
// way, a table left unattached here is folded directly into ProblemValue
// instead.
func (t *Task[Y]) Bind(decomp *treedecomp.TreeDecomp) *Binding[Y] {
	byNode := make(map[int][]*table.Table[Y])
	roots := decomp.Roots()

	for _, tbl := range t.tables {
		vars := tbl.Scope().Vars()
		if len(vars) == 0 {
			if len(roots) > 0 {
				byNode[roots[0]] = append(byNode[roots[0]], tbl)
			}
			continue
		}
		bestNode := -1
		for _, v := range vars {
			if idx, ok := decomp.NodeOfVar(v); ok && (bestNode == -1 || idx < bestNode) {
				bestNode = idx
			}
		}
		if bestNode == -1 {
			continue
		}
		byNode[bestNode] = append(byNode[bestNode], tbl)
	}

	return &Binding[Y]{task: t, decomp: decomp, byNode: byNode}
}

// BaseTables returns the tables attached to nodeIdx, with every clamped
// variable in their scope substituted by its x0 value.
func (b *Binding[Y]) BaseTables(nodeIdx int, x0 []value.Dom) ([]*table.Table[Y], error) {
	tables := b.byNode[nodeIdx]
	out := make([]*table.Table[Y], 0, len(tables))
	for _, tbl := range tables {
		reduced, err := b.reduce(tbl, x0)
		if err != nil {
			return nil, fmt.Errorf("task.BaseTables: %w", err)
		}
		out = append(out, reduced)
	}
	return out, nil
}

// reduce substitutes every clamped variable in tbl's scope with its x0
// value, returning a table over only the still-eliminable variables. If
// tbl's scope contains no clamped variables, tbl is returned unchanged (it
// is a read-only input, safe to share).
func (b *Binding[Y]) reduce(tbl *table.Table[Y], x0 []value.Dom) (*table.Table[Y], error) {
	vars := tbl.Scope().Vars()
	keepVars := make([]value.Var, 0, len(vars))
	fixedVal := make(map[value.Var]value.Dom)
	for _, v := range vars {
		if _, ok := b.decomp.NodeOfVar(v); ok {
			keepVars = append(keepVars, v)
			continue
		}
		if int(v) >= len(x0) {
			return nil, fmt.Errorf("var %d: %w", v, ErrEvidenceOutOfRange)
		}
		fixedVal[v] = x0[v]
	}
	if len(keepVars) == len(vars) {
		return tbl, nil
	}

	keepDoms := make([]value.Dom, len(keepVars))
	for i, v := range keepVars {
		d, _ := tbl.Scope().DomSizeOf(v)
		keepDoms[i] = d
	}
	newScope, err := value.NewScope(keepVars, keepDoms)
	if err != nil {
		return nil, err
	}

	out := table.New[Y](newScope)
	full := make([]value.Dom, len(vars))
	for idx := uint64(0); idx < newScope.Size(); idx++ {
		assign := newScope.Unflat(idx)
		ai := 0
		for i, v := range vars {
			if d, ok := fixedVal[v]; ok {
				full[i] = d
			} else {
				full[i] = assign[ai]
				ai++
			}
		}
		val, verr := tbl.Value(full)
		if verr != nil {
			return nil, verr
		}
		out.Set(idx, val)
	}
	return out, nil
}

// ProblemValue combines the bucket tree's per-root scalars with the
// contribution of every input table whose scope is entirely clamped
// variables (evaluated directly against x0), producing the engine's final
// scalar result. When rootValues is empty — the elimination order left no
// variable to eliminate at all, so the bucket tree has no roots — an
// empty-scope input table is never bound to any node (Bind has nothing to
// attach it to) and must be folded in here directly instead.
func (t *Task[Y]) ProblemValue(rootValues []Y, x0 []value.Dom, clampedVars []value.Var) (Y, error) {
	acc := t.ops.CombineIdentity()
	for _, v := range rootValues {
		acc = t.ops.Combine(acc, v)
	}

	clampedSet := make(map[value.Var]struct{}, len(clampedVars))
	for _, v := range clampedVars {
		clampedSet[v] = struct{}{}
	}

	for _, tbl := range t.tables {
		vars := tbl.Scope().Vars()
		if len(vars) == 0 {
			if len(rootValues) == 0 {
				acc = t.ops.Combine(acc, tbl.At(0))
			}
			continue // otherwise already folded in as a root table by the bucket tree
		}
		full := true
		for _, v := range vars {
			if _, ok := clampedSet[v]; !ok {
				full = false
				break
			}
		}
		if !full {
			continue
		}
		assign := make([]value.Dom, len(vars))
		for i, v := range vars {
			if int(v) >= len(x0) {
				var zero Y
				return zero, fmt.Errorf("task.ProblemValue: var %d: %w", v, ErrEvidenceOutOfRange)
			}
			assign[i] = x0[v]
		}
		val, err := tbl.Value(assign)
		if err != nil {
			var zero Y
			return zero, err
		}
		acc = t.ops.Combine(acc, val)
	}
	return acc, nil
}
