package bucketdecomp

// GreedyVarOrder, Optimize, Sample, and CountMin are the module's four
// external entry points: given a set of factor tables over finite-domain
// variables, they build (or accept) an elimination order, decompose the
// factor graph into a bucket tree along that order, and answer one of
// three questions — the optimum assignment (Min-Sum), a sample from the
// implied distribution (Log-Sum-Product), or the number of assignments
// attaining the optimum within tolerance (Count-Min).

import (
	"fmt"
	"math/rand"

	"github.com/arbogen/bucketdecomp/buckettree"
	"github.com/arbogen/bucketdecomp/semiring"
	"github.com/arbogen/bucketdecomp/table"
	"github.com/arbogen/bucketdecomp/task"
	"github.com/arbogen/bucketdecomp/treedecomp"
	"github.com/arbogen/bucketdecomp/value"
	"github.com/arbogen/bucketdecomp/voorder"
)

// RawTable is the host-neutral wire shape for one input factor: Vars and
// DomSizes together form the table's scope (Vars must be strictly
// increasing), and Values is the flat, mixed-radix-indexed cell array (its
// length must equal the product of DomSizes).
type RawTable struct {
	Vars     []value.Var
	DomSizes []value.Dom
	Values   []float64
}

// toScope validates and converts a RawTable's (Vars, DomSizes) into a
// value.Scope.
func (r RawTable) toScope() (value.Scope, error) {
	return value.NewScope(r.Vars, r.DomSizes)
}

// buildGraph derives the shared variable universe and factor graph from
// tables without committing to any semiring, for callers (GreedyVarOrder)
// that only need scopes and domain sizes.
func buildGraph(tables []RawTable, minNumVars int) (*task.Task[struct{}], error) {
	dummyTables := make([]*table.Table[struct{}], len(tables))
	for i, rt := range tables {
		sc, err := rt.toScope()
		if err != nil {
			return nil, fmt.Errorf("rawTable %d: %w", i, err)
		}
		vals := make([]struct{}, sc.Size())
		t, err := table.NewFromValues(sc, vals)
		if err != nil {
			return nil, fmt.Errorf("rawTable %d: %w", i, err)
		}
		dummyTables[i] = t
	}
	return task.New[struct{}](semiring.NewDummy(), dummyTables, minNumVars)
}

// toSemiringTables converts every RawTable into a *table.Table[float64],
// the representation every real semiring (Min-Sum, Log-Sum-Product,
// Count-Min) operates over.
func toSemiringTables(tables []RawTable) ([]*table.Table[float64], error) {
	out := make([]*table.Table[float64], len(tables))
	for i, rt := range tables {
		sc, err := rt.toScope()
		if err != nil {
			return nil, fmt.Errorf("rawTable %d: %w", i, err)
		}
		t, err := table.NewFromValues(sc, rt.Values)
		if err != nil {
			return nil, fmt.Errorf("rawTable %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// checkComplexity rejects decomp if its widest node exceeds maxComplexity
// (measured in bits, per TreeDecomp.Complexity); a maxComplexity <= 0
// disables the check. It runs before a BucketTree is ever constructed,
// since BucketTree itself does not enforce a bound.
func checkComplexity(decomp *treedecomp.TreeDecomp, domSizeOf treedecomp.DomSizeFunc, maxComplexity float64) error {
	if maxComplexity <= 0 {
		return nil
	}
	if got := decomp.Complexity(domSizeOf); got > maxComplexity {
		return fmt.Errorf("%w: %.2f bits > %.2f", ErrComplexityExceeded, got, maxComplexity)
	}
	return nil
}

// GreedyVarOrder computes a variable elimination order for tables using
// voorder's greedy heuristic, clamping whatever it cannot afford to
// eliminate within maxComplexity. clampRanks, if non-empty, must have one
// entry per variable in the derived universe; a rank of -1 forces that
// variable to be clamped ahead of every other candidate. seed seeds the
// heuristic's internal tie-breaking RNG deterministically.
func GreedyVarOrder(tables []RawTable, maxComplexity float64, clampRanks []int, heuristic voorder.Heuristic, selectionScale float64, seed int64) ([]value.Var, error) {
	tk, err := buildGraph(tables, 0)
	if err != nil {
		return nil, wrap("GreedyVarOrder", err)
	}
	rng := rand.New(rand.NewSource(seed))
	order, err := voorder.GreedyOrder(tk.Graph(), tk.NumVars(), tk.DomSize, maxComplexity, clampRanks, heuristic, selectionScale, rng)
	if err != nil {
		return nil, wrap("GreedyVarOrder", err)
	}
	return order, nil
}

// OptimizeResult is the outcome of Optimize: the best (and, if
// maxSolutions > 1, next-best) complete assignments found, each paired
// with its objective value. With maxSolutions <= 0 it holds one Solution
// that carries only the optimal Value, with a nil Assignment.
type OptimizeResult struct {
	Solutions []buckettree.Solution
}

// Optimize finds the Min-Sum-optimal complete assignment (and up to
// maxSolutions-1 runner-up assignments) for tables, eliminating variables
// in order. x0 supplies evidence for every variable order leaves clamped;
// minVars optionally raises the derived variable universe beyond the
// maximum variable referenced by tables.
func Optimize(tables []RawTable, order []value.Var, maxComplexity float64, maxSolutions int, x0 []value.Dom, minVars int) (OptimizeResult, error) {
	stables, err := toSemiringTables(tables)
	if err != nil {
		return OptimizeResult{}, wrap("Optimize", err)
	}
	ops := semiring.NewMinSum(maxSolutions)
	tk, err := task.New[float64](ops, stables, minVars)
	if err != nil {
		return OptimizeResult{}, wrap("Optimize", err)
	}
	tk.MaxSolutions(maxSolutions)

	decomp, err := treedecomp.Build(tk.Graph(), order, tk.NumVars(), tk.DomSize)
	if err != nil {
		return OptimizeResult{}, wrap("Optimize", err)
	}
	if err := checkComplexity(decomp, tk.DomSize, maxComplexity); err != nil {
		return OptimizeResult{}, wrap("Optimize", err)
	}

	if maxSolutions <= 0 {
		// With maxSolutions<=0 the downward pass never runs: skip it entirely
		// and report only the optimal value, no reconstructed assignment.
		bt, err := buckettree.New[float64](tk, decomp, x0, buckettree.Options{})
		if err != nil {
			return OptimizeResult{}, wrap("Optimize", err)
		}
		value, err := tk.ProblemValue(bt.RootValues(), x0, decomp.ClampedVars())
		if err != nil {
			return OptimizeResult{}, wrap("Optimize", err)
		}
		return OptimizeResult{Solutions: []buckettree.Solution{{Value: value}}}, nil
	}

	bt, err := buckettree.New[float64](tk, decomp, x0, buckettree.Options{Solvable: true})
	if err != nil {
		return OptimizeResult{}, wrap("Optimize", err)
	}
	solutions, err := buckettree.Solve(bt)
	if err != nil {
		return OptimizeResult{}, wrap("Optimize", err)
	}
	return OptimizeResult{Solutions: solutions}, nil
}

// SampleResult is the outcome of Sample: one draw per requested sample,
// each a complete assignment indexed by value.Var over the full universe.
type SampleResult struct {
	Draws [][]value.Dom
}

// Sample draws numSamples complete assignments from the Log-Sum-Product
// distribution implied by tables, eliminating variables in order. seed
// seeds the draw RNG deterministically; returnMarginals is reserved for a
// future per-variable marginal summary and is currently a no-op.
func Sample(tables []RawTable, order []value.Var, maxComplexity float64, numSamples int, x0 []value.Dom, minVars int, seed int64, returnMarginals bool) (SampleResult, error) {
	stables, err := toSemiringTables(tables)
	if err != nil {
		return SampleResult{}, wrap("Sample", err)
	}
	ops := semiring.NewLogSumProduct()
	tk, err := task.New[float64](ops, stables, minVars)
	if err != nil {
		return SampleResult{}, wrap("Sample", err)
	}

	decomp, err := treedecomp.Build(tk.Graph(), order, tk.NumVars(), tk.DomSize)
	if err != nil {
		return SampleResult{}, wrap("Sample", err)
	}
	if err := checkComplexity(decomp, tk.DomSize, maxComplexity); err != nil {
		return SampleResult{}, wrap("Sample", err)
	}

	bt, err := buckettree.New[float64](tk, decomp, x0, buckettree.Options{Solvable: true})
	if err != nil {
		return SampleResult{}, wrap("Sample", err)
	}

	rng := rand.New(rand.NewSource(seed))
	draws := make([][]value.Dom, numSamples)
	for i := 0; i < numSamples; i++ {
		d, err := buckettree.Sample[float64](bt, rng)
		if err != nil {
			return SampleResult{}, wrap("Sample", err)
		}
		draws[i] = d
	}
	return SampleResult{Draws: draws}, nil
}

// CountMinResult is the outcome of CountMin: the optimal value and how many
// distinct complete assignments attain it within the configured tolerance.
type CountMinResult struct {
	Value float64
	Count float64
}

// CountMin computes the Min-Sum optimum and the number of distinct complete
// assignments attaining it within eps, eliminating variables in order.
func CountMin(tables []RawTable, order []value.Var, maxComplexity float64, eps float64, x0 []value.Dom, minVars int) (CountMinResult, error) {
	stables, err := toSemiringTables(tables)
	if err != nil {
		return CountMinResult{}, wrap("CountMin", err)
	}
	scTables := make([]*table.Table[semiring.CountMinValue], len(stables))
	for i, t := range stables {
		scTables[i] = table.Transform(t, func(v float64) semiring.CountMinValue {
			return semiring.CountMinValue{Value: v, Count: 1}
		})
	}
	ops := semiring.NewCountMin(eps)
	tk, err := task.New[semiring.CountMinValue](ops, scTables, minVars)
	if err != nil {
		return CountMinResult{}, wrap("CountMin", err)
	}

	decomp, err := treedecomp.Build(tk.Graph(), order, tk.NumVars(), tk.DomSize)
	if err != nil {
		return CountMinResult{}, wrap("CountMin", err)
	}
	if err := checkComplexity(decomp, tk.DomSize, maxComplexity); err != nil {
		return CountMinResult{}, wrap("CountMin", err)
	}

	bt, err := buckettree.New[semiring.CountMinValue](tk, decomp, x0, buckettree.Options{})
	if err != nil {
		return CountMinResult{}, wrap("CountMin", err)
	}
	total, err := tk.ProblemValue(bt.RootValues(), x0, decomp.ClampedVars())
	if err != nil {
		return CountMinResult{}, wrap("CountMin", err)
	}
	return CountMinResult{Value: total.Value, Count: total.Count}, nil
}
