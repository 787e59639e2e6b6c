package semiring

import (
	"math/rand"
	"sort"

	"github.com/arbogen/bucketdecomp/value"
)

// MinSum is the optimize semiring: value_type=float64, combine=+, identity=0,
// marginalizer=min. Ties are broken lexicographically by assignment
// (enforced by buckettree when sorting K-best completions, not here).
type MinSum struct {
	// maxSolutions is the K in "K best distinct complete assignments".
	// 0 means "value only, skip the downward pass" (distinct from K=1).
	maxSolutions int
}

// NewMinSum constructs a Min-Sum Ops configured to track up to k best
// solutions on the downward pass. k==0 means value-only.
func NewMinSum(k int) *MinSum {
	if k < 0 {
		k = 0
	}
	return &MinSum{maxSolutions: k}
}

// MaxSolutions returns the configured K.
func (m *MinSum) MaxSolutions() int { return m.maxSolutions }

func (m *MinSum) Name() string { return "min-sum" }

func (m *MinSum) Combine(x, y float64) float64 { return x + y }

func (m *MinSum) CombineIdentity() float64 { return 0 }

func (m *MinSum) NewMarginalizer(outDomSize value.Dom) Marginalizer[float64] {
	return &minSumMarginalizer{}
}

func (m *MinSum) NewSolvableMarginalizer(outDomSize value.Dom) SolvableMarginalizer[float64] {
	return &minSumSolvableMarginalizer{
		k:       m.maxSolutions,
		choices: make(map[uint64][]Choice[float64]),
	}
}

type minSumMarginalizer struct{}

// Reduce returns the minimum cell; ties resolved arbitrarily (the caller
// does not need a particular minimizer here, only the minimum value).
func (minSumMarginalizer) Reduce(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		if v < best {
			best = v
		}
	}
	return best
}

// minSumSolvableMarginalizer records, per outIdx, the up-to-K (value, dom)
// pairs sorted by (value, dom) ascending via bounded insertion.
type minSumSolvableMarginalizer struct {
	k       int
	choices map[uint64][]Choice[float64]
}

func (s *minSumSolvableMarginalizer) Reduce(values []float64) float64 {
	return minSumMarginalizer{}.Reduce(values)
}

func (s *minSumSolvableMarginalizer) ReduceAt(outIdx uint64, values []float64) float64 {
	k := s.k
	if k <= 0 {
		k = 1 // value-only callers still need the argmin recorded for problemValue bookkeeping
	}
	picked := make([]Choice[float64], 0, len(values))
	for d, v := range values {
		picked = append(picked, Choice[float64]{Dom: value.Dom(d), Value: v})
	}
	sort.Slice(picked, func(i, j int) bool {
		if picked[i].Value != picked[j].Value {
			return picked[i].Value < picked[j].Value
		}
		return picked[i].Dom < picked[j].Dom
	})
	if len(picked) > k {
		picked = picked[:k]
	}
	s.choices[outIdx] = picked

	return picked[0].Value
}

func (s *minSumSolvableMarginalizer) Complete(outIdx uint64, _ *rand.Rand) ([]Choice[float64], error) {
	c, ok := s.choices[outIdx]
	if !ok {
		return nil, ErrOperationUnavailable
	}
	return c, nil
}
