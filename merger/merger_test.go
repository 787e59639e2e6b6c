package merger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbogen/bucketdecomp/merger"
	"github.com/arbogen/bucketdecomp/semiring"
	"github.com/arbogen/bucketdecomp/table"
	"github.com/arbogen/bucketdecomp/value"
)

func domSizes2() merger.DomSizeFunc {
	return func(v value.Var) value.Dom { return 2 }
}

func mustScope(t *testing.T, vars []value.Var, doms []value.Dom) value.Scope {
	t.Helper()
	s, err := value.NewScope(vars, doms)
	require.NoError(t, err)
	return s
}

func TestMerge_SingleTableEliminatesVar(t *testing.T) {
	// f(x0, x1) with x0,x1 in {0,1}; values chosen so eliminating x1 via
	// Min-Sum yields min(f(x0,0), f(x0,1)) for each x0.
	s := mustScope(t, []value.Var{0, 1}, []value.Dom{2, 2})
	f, err := table.NewFromValues(s, []float64{3, 1, 4, 2})
	require.NoError(t, err)

	ms := semiring.NewMinSum(0)
	mg := merger.New[float64](ms)
	out, err := mg.Merge([]*table.Table[float64]{f}, 1, domSizes2(), ms.NewMarginalizer(2))
	require.NoError(t, err)
	require.Equal(t, []value.Var{0}, out.Scope().Vars())

	v0, err := out.Value([]value.Dom{0})
	require.NoError(t, err)
	require.Equal(t, 3.0, v0) // min(f(0,0)=3, f(0,1)=4)

	v1, err := out.Value([]value.Dom{1})
	require.NoError(t, err)
	require.Equal(t, 1.0, v1) // min(f(1,0)=1, f(1,1)=2)
}

func TestMerge_TwoTablesCombineBeforeMarginalize(t *testing.T) {
	sA := mustScope(t, []value.Var{0, 1}, []value.Dom{2, 2})
	a, err := table.NewFromValues(sA, []float64{0, 0, 0, 0})
	require.NoError(t, err)

	sB := mustScope(t, []value.Var{1, 2}, []value.Dom{2, 2})
	b, err := table.NewFromValues(sB, []float64{5, 6, 7, 8})
	require.NoError(t, err)

	ms := semiring.NewMinSum(0)
	mg := merger.New[float64](ms)
	out, err := mg.Merge([]*table.Table[float64]{a, b}, 1, domSizes2(), ms.NewMarginalizer(2))
	require.NoError(t, err)
	require.Equal(t, []value.Var{0, 2}, out.Scope().Vars())

	// out(x0=*, x2=0) = min over x1 of a(x0,x1)+b(x1,x2=0) = min(5,6) = 5
	v, err := out.Value([]value.Dom{0, 0})
	require.NoError(t, err)
	require.Equal(t, 5.0, v)
}

func TestMerge_IntroducesEliminationVarAbsentFromInputs(t *testing.T) {
	// Var 5 is in no input scope: the superscope gains it anyway, and
	// marginalizing it away leaves f's values unchanged over {0}.
	s := mustScope(t, []value.Var{0}, []value.Dom{2})
	f, err := table.NewFromValues(s, []float64{1, 2})
	require.NoError(t, err)

	ms := semiring.NewMinSum(0)
	mg := merger.New[float64](ms)
	out, err := mg.Merge([]*table.Table[float64]{f}, 5, domSizes2(), ms.NewMarginalizer(2))
	require.NoError(t, err)
	require.Equal(t, []value.Var{0}, out.Scope().Vars())
	require.Equal(t, []float64{1, 2}, out.Data())
}

func TestMergeSolvable_RecordsReduceAt(t *testing.T) {
	s := mustScope(t, []value.Var{0, 1}, []value.Dom{2, 2})
	f, err := table.NewFromValues(s, []float64{3, 1, 4, 2})
	require.NoError(t, err)

	ms := semiring.NewMinSum(1)
	sm := ms.NewSolvableMarginalizer(2)
	mg := merger.New[float64](ms)
	out, err := mg.MergeSolvable([]*table.Table[float64]{f}, 1, domSizes2(), sm)
	require.NoError(t, err)

	v0, err := out.Value([]value.Dom{0})
	require.NoError(t, err)
	require.Equal(t, 3.0, v0) // min(f(0,0)=3, f(0,1)=4)

	choices, err := sm.Complete(0, nil)
	require.NoError(t, err)
	require.Len(t, choices, 1)
	require.Equal(t, value.Dom(0), choices[0].Dom)
}

func TestCombineToScalar_ReducesRootTables(t *testing.T) {
	empty := mustScope(t, nil, nil)
	a, err := table.NewFromValues(empty, []float64{3})
	require.NoError(t, err)
	b, err := table.NewFromValues(empty, []float64{4})
	require.NoError(t, err)

	ms := semiring.NewMinSum(0)
	mg := merger.New[float64](ms)
	got, err := mg.CombineToScalar([]*table.Table[float64]{a, b})
	require.NoError(t, err)
	require.Equal(t, 7.0, got)
}

func TestMerge_CommutativeAcrossInputOrdering(t *testing.T) {
	sA := mustScope(t, []value.Var{0, 1}, []value.Dom{2, 2})
	a, err := table.NewFromValues(sA, []float64{0, 1, 2, 3})
	require.NoError(t, err)

	sB := mustScope(t, []value.Var{1, 2}, []value.Dom{2, 2})
	b, err := table.NewFromValues(sB, []float64{5, 6, 7, 8})
	require.NoError(t, err)

	sC := mustScope(t, []value.Var{0, 2}, []value.Dom{2, 2})
	c, err := table.NewFromValues(sC, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	for _, ops := range []semiring.Ops[float64]{semiring.NewMinSum(0)} {
		forward, err := merger.New[float64](ops).Merge(
			[]*table.Table[float64]{a, b, c}, 1, domSizes2(), ops.NewMarginalizer(2))
		require.NoError(t, err)

		reversed, err := merger.New[float64](ops).Merge(
			[]*table.Table[float64]{c, b, a}, 1, domSizes2(), ops.NewMarginalizer(2))
		require.NoError(t, err)

		require.Equal(t, forward.Scope().Vars(), reversed.Scope().Vars())
		for i := 0; i < forward.Size(); i++ {
			require.Equal(t, forward.At(uint64(i)), reversed.At(uint64(i)), "cell %d differs across input ordering", i)
		}
	}
}

func TestMerge_CountMinCombineIsCommutative(t *testing.T) {
	sA := mustScope(t, []value.Var{0, 1}, []value.Dom{2, 2})
	toCM := func(vs []float64) []semiring.CountMinValue {
		out := make([]semiring.CountMinValue, len(vs))
		for i, v := range vs {
			out[i] = semiring.CountMinValue{Value: v, Count: 1}
		}
		return out
	}
	a, err := table.NewFromValues(sA, toCM([]float64{1, 1, 2, 2}))
	require.NoError(t, err)

	sB := mustScope(t, []value.Var{1, 2}, []value.Dom{2, 2})
	b, err := table.NewFromValues(sB, toCM([]float64{3, 3, 4, 4}))
	require.NoError(t, err)

	cm := semiring.NewCountMin(1e-9)
	domF := domSizes2()

	forward, err := merger.New[semiring.CountMinValue](cm).Merge(
		[]*table.Table[semiring.CountMinValue]{a, b}, 1, domF, cm.NewMarginalizer(2))
	require.NoError(t, err)
	reversed, err := merger.New[semiring.CountMinValue](cm).Merge(
		[]*table.Table[semiring.CountMinValue]{b, a}, 1, domF, cm.NewMarginalizer(2))
	require.NoError(t, err)

	require.Equal(t, forward.Data(), reversed.Data())
}

func TestCombineToScalar_RejectsNonEmptyScope(t *testing.T) {
	s := mustScope(t, []value.Var{0}, []value.Dom{2})
	f, err := table.NewFromValues(s, []float64{1, 2})
	require.NoError(t, err)

	ms := semiring.NewMinSum(0)
	mg := merger.New[float64](ms)
	_, err = mg.CombineToScalar([]*table.Table[float64]{f})
	require.Error(t, err)
}
