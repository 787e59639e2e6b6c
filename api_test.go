package bucketdecomp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbogen/bucketdecomp/value"
	"github.com/arbogen/bucketdecomp/voorder"
)

// TestOptimize_TreeShapedIsing is seed scenario S1: a balanced binary tree
// on 63 variables, every edge coupling +1, a single field +0.5 on variable
// 0. Energy convention (confirmed against S2 and S3 below): pairwise terms
// are -J*s_i*s_j, unary terms are +h_i*s_i, spins map Dom 0 -> -1, Dom 1 ->
// +1. Every edge wants its endpoints aligned (coefficient -J is negative,
// so aligned pairs score -1 each); since the graph is a tree this is
// achievable everywhere at once by any uniform spin assignment, leaving a
// twofold all-same-sign degeneracy that the field on variable 0 breaks by
// preferring spin -1. Any non-uniform assignment pays at least +2 more on
// some edge than the field could ever recover, so the optimum is unique:
// every variable at spin -1 (Dom 0).
func TestOptimize_TreeShapedIsing(t *testing.T) {
	const n = 63
	var tables []RawTable
	for i := 0; i < n; i++ {
		for _, c := range []int{2*i + 1, 2*i + 2} {
			if c >= n {
				continue
			}
			lo, hi := value.Var(i), value.Var(c)
			tables = append(tables, RawTable{
				Vars:     []value.Var{lo, hi},
				DomSizes: []value.Dom{2, 2},
				Values:   []float64{-1, 1, 1, -1}, // -J*s_lo*s_hi, J=+1
			})
		}
	}
	tables = append(tables, RawTable{
		Vars:     []value.Var{0},
		DomSizes: []value.Dom{2},
		Values:   []float64{-0.5, 0.5}, // +h0*s0, h0=+0.5
	})

	// Every clique in a binary tree with domain-2 variables needs at most 2
	// bits; give the heuristic generous headroom so nothing gets clamped.
	order, err := GreedyVarOrder(tables, 8, nil, voorder.MinFill, 1.0, 42)
	require.NoError(t, err)
	require.Len(t, order, n)

	res, err := Optimize(tables, order, 0, 1, nil, 0)
	require.NoError(t, err)
	require.Len(t, res.Solutions, 1)
	require.InDelta(t, -62.5, res.Solutions[0].Value, 1e-9)

	want := make([]value.Dom, n) // every variable at spin -1
	require.Equal(t, want, res.Solutions[0].Assignment)
}

// TestOptimize_TwoCouplerLoop is seed scenario S2: a 3-cycle with couplers
// J01=-1, J12=-1, J02=+1 and no field. The two global minima -3 are the
// sign-flip pair {x0=-1,x1=+1,x2=-1} and {x0=+1,x1=-1,x2=+1}; requesting
// K=2 must surface both, not just one with a single-best completion at
// every other node.
func TestOptimize_TwoCouplerLoop(t *testing.T) {
	tables := []RawTable{
		{Vars: []value.Var{0, 1}, DomSizes: []value.Dom{2, 2}, Values: []float64{1, -1, -1, 1}}, // J01=-1
		{Vars: []value.Var{1, 2}, DomSizes: []value.Dom{2, 2}, Values: []float64{1, -1, -1, 1}}, // J12=-1
		{Vars: []value.Var{0, 2}, DomSizes: []value.Dom{2, 2}, Values: []float64{-1, 1, 1, -1}}, // J02=+1
	}
	order := []value.Var{0, 1, 2}

	res, err := Optimize(tables, order, 0, 2, nil, 0)
	require.NoError(t, err)
	require.Len(t, res.Solutions, 2)
	require.InDelta(t, -3.0, res.Solutions[0].Value, 1e-9)
	require.InDelta(t, -3.0, res.Solutions[1].Value, 1e-9)

	got := map[[3]value.Dom]bool{}
	for _, s := range res.Solutions {
		got[[3]value.Dom{s.Assignment[0], s.Assignment[1], s.Assignment[2]}] = true
	}
	require.True(t, got[[3]value.Dom{0, 1, 0}]) // spin (-1,+1,-1)
	require.True(t, got[[3]value.Dom{1, 0, 1}]) // spin (+1,-1,+1)
}

// TestOptimize_UnaryOnly is seed scenario S3: five independent variables,
// each with its own field and no couplers, so the optimum picks s_i =
// -sign(h_i) at every variable independently (energy is +h_i*s_i).
func TestOptimize_UnaryOnly(t *testing.T) {
	h := []float64{2, 1, -2, 3, -4}
	tables := make([]RawTable, len(h))
	for i, hi := range h {
		tables[i] = RawTable{
			Vars:     []value.Var{value.Var(i)},
			DomSizes: []value.Dom{2},
			Values:   []float64{-hi, hi}, // +h_i*s_i at s=-1,+1
		}
	}
	order := []value.Var{0, 1, 2, 3, 4}

	res, err := Optimize(tables, order, 0, 1, nil, 0)
	require.NoError(t, err)
	require.Len(t, res.Solutions, 1)
	require.InDelta(t, -12.0, res.Solutions[0].Value, 1e-9)
	require.Equal(t, []value.Dom{0, 0, 1, 0, 1}, res.Solutions[0].Assignment) // spins (-1,-1,+1,-1,+1)
}

// TestOptimize_ExcessiveComplexity is seed scenario S4: a complete graph on
// 4 of 10 binary variables, eliminated in the trivial order 0..9. Node 0's
// neighbors {1,2,3} are already pairwise connected, so its clique has 4
// variables (16 cells, 4 bits) — over the configured 3-bit budget.
func TestOptimize_ExcessiveComplexity(t *testing.T) {
	pairs := [][2]value.Var{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	tables := make([]RawTable, len(pairs))
	for i, p := range pairs {
		tables[i] = RawTable{
			Vars:     []value.Var{p[0], p[1]},
			DomSizes: []value.Dom{2, 2},
			Values:   []float64{0, 0, 0, 0},
		}
	}
	order := make([]value.Var, 10)
	for i := range order {
		order[i] = value.Var(i)
	}

	_, err := Optimize(tables, order, 3, 1, nil, 10)
	require.Error(t, err)
	var be *Error
	require.ErrorAs(t, err, &be)
	require.Equal(t, ExcessiveComplexity, be.Kind)
	require.ErrorIs(t, err, ErrComplexityExceeded)
}
