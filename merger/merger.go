// Package merger combines several tables over an ordered super-scope and
// marginalizes one variable away, the core operation bucket elimination
// performs at every tree-decomposition node. Construction follows a staged
// "walk a shape, project each source into it" iteration idiom, generalized
// from a 2-D (row, col) matrix to an arbitrary-arity mixed-radix Scope.
//
// The merger is reusable: a Merger holds only its semiring, and every
// Merge/MergeSolvable call computes its superscope afresh.
package merger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/arbogen/bucketdecomp/semiring"
	"github.com/arbogen/bucketdecomp/table"
	"github.com/arbogen/bucketdecomp/value"
)

// ErrVarNotFound indicates outVar is missing from the computed superscope.
// superScope always adds outVar, so an outVar that appears in no input
// table is introduced and marginalized like any other variable rather
// than reported with this error.
var ErrVarNotFound = errors.New("merger: eliminated variable not found")

// DomSizeFunc resolves a variable's domain size; callers pass task.Task's
// domSize lookup (or an equivalent) since the merger itself does not own
// global domain-size bookkeeping.
type DomSizeFunc func(value.Var) value.Dom

// Merger combines tables over a super-scope and marginalizes one variable.
type Merger[Y any] struct {
	ops semiring.Ops[Y]
}

// New constructs a Merger bound to the given semiring.
func New[Y any](ops semiring.Ops[Y]) *Merger[Y] {
	return &Merger[Y]{ops: ops}
}

// superScope computes S = sorted union of every input table's scope plus
// outVar, and returns S along with outVar's position within it.
func (m *Merger[Y]) superScope(tables []*table.Table[Y], outVar value.Var, domSizeOf DomSizeFunc) (value.Scope, int, error) {
	seen := map[value.Var]struct{}{outVar: {}}
	for _, t := range tables {
		for _, v := range t.Scope().Vars() {
			seen[v] = struct{}{}
		}
	}
	vars := make([]value.Var, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })

	domSizes := make([]value.Dom, len(vars))
	outPos := -1
	for i, v := range vars {
		domSizes[i] = domSizeOf(v)
		if v == outVar {
			outPos = i
		}
	}
	if outPos < 0 {
		return value.Scope{}, -1, fmt.Errorf("merger.superScope: %w", ErrVarNotFound)
	}
	s, err := value.NewScope(vars, domSizes)
	if err != nil {
		return value.Scope{}, -1, fmt.Errorf("merger.superScope: %w", err)
	}
	return s, outPos, nil
}

// outScope returns S with outVar's position removed.
func outScopeOf(s value.Scope, outPos int) (value.Scope, error) {
	vars := s.Vars()
	outVars := make([]value.Var, 0, len(vars)-1)
	outDoms := make([]value.Dom, 0, len(vars)-1)
	for i, v := range vars {
		if i == outPos {
			continue
		}
		outVars = append(outVars, v)
		outDoms = append(outDoms, s.DomSize(i))
	}
	return value.NewScope(outVars, outDoms)
}

// tablePositions maps each of t's own scope variables to its index within
// super-scope s's sorted variable list, so a full s-assignment can be
// projected down to t's own assignment.
func tablePositions[Y any](t *table.Table[Y], s value.Scope) []int {
	vars := t.Scope().Vars()
	pos := make([]int, len(vars))
	for i, v := range vars {
		idx, ok := s.IndexOf(v)
		if !ok {
			// Guaranteed present since s was built as a union including t's scope.
			panic("merger: invariant violated, table variable missing from super-scope")
		}
		pos[i] = idx
	}
	return pos
}

// combinedCell computes combine across every input table's projected cell
// for a full super-scope assignment "full" (aligned to s.Vars() order).
func (m *Merger[Y]) combinedCell(tables []*table.Table[Y], positions [][]int, full []value.Dom) (Y, error) {
	acc := m.ops.CombineIdentity()
	for ti, t := range tables {
		sub := make([]value.Dom, len(positions[ti]))
		for i, p := range positions[ti] {
			sub[i] = full[p]
		}
		v, err := t.Value(sub)
		if err != nil {
			var zero Y
			return zero, fmt.Errorf("merger.combinedCell: %w", err)
		}
		acc = m.ops.Combine(acc, v)
	}
	return acc, nil
}

// Merge combines tables over their union scope and marginalizes outVar away
// using marg, returning a new table over the union scope minus outVar.
//
// Complexity: O(outScope.Size() * domSizeOf(outVar) * len(tables)).
func (m *Merger[Y]) Merge(tables []*table.Table[Y], outVar value.Var, domSizeOf DomSizeFunc, marg semiring.Marginalizer[Y]) (*table.Table[Y], error) {
	out, err := m.mergeCommon(tables, outVar, domSizeOf, func(outIdx uint64, vals []Y) Y {
		return marg.Reduce(vals)
	})
	if err != nil {
		return nil, fmt.Errorf("merger.Merge: %w", err)
	}
	return out, nil
}

// MergeSolvable behaves like Merge but uses a SolvableMarginalizer's
// ReduceAt so the downward pass can later reconstruct outVar's value.
func (m *Merger[Y]) MergeSolvable(tables []*table.Table[Y], outVar value.Var, domSizeOf DomSizeFunc, sm semiring.SolvableMarginalizer[Y]) (*table.Table[Y], error) {
	out, err := m.mergeCommon(tables, outVar, domSizeOf, func(outIdx uint64, vals []Y) Y {
		return sm.ReduceAt(outIdx, vals)
	})
	if err != nil {
		return nil, fmt.Errorf("merger.MergeSolvable: %w", err)
	}
	return out, nil
}

func (m *Merger[Y]) mergeCommon(tables []*table.Table[Y], outVar value.Var, domSizeOf DomSizeFunc, reduce func(outIdx uint64, vals []Y) Y) (*table.Table[Y], error) {
	s, outPos, err := m.superScope(tables, outVar, domSizeOf)
	if err != nil {
		return nil, err
	}
	oScope, err := outScopeOf(s, outPos)
	if err != nil {
		return nil, err
	}
	outDomSize := s.DomSize(outPos)

	positions := make([][]int, len(tables))
	for i, t := range tables {
		positions[i] = tablePositions(t, s)
	}

	out := table.New[Y](oScope)
	full := make([]value.Dom, s.Len())
	vals := make([]Y, outDomSize)

	for outIdx := uint64(0); outIdx < oScope.Size(); outIdx++ {
		outerAssignment := oScope.Unflat(outIdx)
		j := 0
		for i := 0; i < s.Len(); i++ {
			if i == outPos {
				continue
			}
			full[i] = outerAssignment[j]
			j++
		}
		for d := value.Dom(0); d < outDomSize; d++ {
			full[outPos] = d
			v, cerr := m.combinedCell(tables, positions, full)
			if cerr != nil {
				return nil, cerr
			}
			vals[d] = v
		}
		out.Set(outIdx, reduce(outIdx, vals))
	}

	return out, nil
}

// CombineToScalar reduces a set of (typically root) tables over the empty
// scope via repeated Combine, producing the single scalar problemValue()
// contributes from that root.
func (m *Merger[Y]) CombineToScalar(tables []*table.Table[Y]) (Y, error) {
	acc := m.ops.CombineIdentity()
	for _, t := range tables {
		if t.Scope().Len() != 0 {
			var zero Y
			return zero, fmt.Errorf("merger.CombineToScalar: table has non-empty scope %v", t.Scope().Vars())
		}
		acc = m.ops.Combine(acc, t.At(0))
	}
	return acc, nil
}
