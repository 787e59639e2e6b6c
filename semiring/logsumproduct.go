package semiring

import (
	"math"
	"math/rand"

	"github.com/arbogen/bucketdecomp/value"
)

// LogSumProduct is the sample semiring: value_type=float64 interpreted as
// log-space, combine=+ (log-space product), identity=0, marginalizer=
// log-sum-exp. Its solvable marginalizer samples the eliminated variable
// from the cumulative distribution implied by the merged table, using a
// caller-supplied uniform-[0,1) source (never a hidden global RNG — see
// DESIGN.md "Global RNG").
type LogSumProduct struct{}

// NewLogSumProduct constructs a Log-Sum-Product Ops. It carries no RNG of
// its own; SolvableMarginalizer.Complete takes one explicitly per call.
func NewLogSumProduct() *LogSumProduct { return &LogSumProduct{} }

func (LogSumProduct) Name() string { return "log-sum-product" }

func (LogSumProduct) Combine(x, y float64) float64 { return x + y }

func (LogSumProduct) CombineIdentity() float64 { return 0 }

func (LogSumProduct) NewMarginalizer(outDomSize value.Dom) Marginalizer[float64] {
	return &logSumProductMarginalizer{}
}

func (LogSumProduct) NewSolvableMarginalizer(outDomSize value.Dom) SolvableMarginalizer[float64] {
	return &logSumProductSolvableMarginalizer{
		cumulative: make(map[uint64][]float64),
	}
}

type logSumProductMarginalizer struct{}

// logSumExp computes M + log(sum(exp(v_i - M))) with M = max(v_i), the
// numerically stable form of log-sum-exp. All v_i == -Inf collapses to -Inf.
func logSumExp(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	if math.IsInf(m, -1) {
		return math.Inf(-1)
	}
	var sum float64
	for _, v := range values {
		sum += math.Exp(v - m)
	}
	return m + math.Log(sum)
}

func (logSumProductMarginalizer) Reduce(values []float64) float64 {
	return logSumExp(values)
}

// logSumProductSolvableMarginalizer records, per outIdx, the normalized
// cumulative distribution over the eliminated variable's domain so that
// Complete can sample it by drawing u ~ Uniform[0,1) and taking the first
// index whose cumulative mass exceeds u.
type logSumProductSolvableMarginalizer struct {
	cumulative map[uint64][]float64 // cumulative[outIdx][d] = P(eliminated <= d)
}

func (s *logSumProductSolvableMarginalizer) Reduce(values []float64) float64 {
	return logSumExp(values)
}

func (s *logSumProductSolvableMarginalizer) ReduceAt(outIdx uint64, values []float64) float64 {
	total := logSumExp(values)

	cum := make([]float64, len(values))
	var running float64
	for d, v := range values {
		if math.IsInf(total, -1) {
			// Degenerate all-zero-probability cell: fall back to uniform
			// so Complete always has a valid distribution to sample.
			running = float64(d+1) / float64(len(values))
		} else {
			running += math.Exp(v - total)
		}
		cum[d] = running
	}
	// Guard against floating point drift leaving the final mass < 1.
	cum[len(cum)-1] = 1.0
	s.cumulative[outIdx] = cum

	return total
}

func (s *logSumProductSolvableMarginalizer) Complete(outIdx uint64, rng *rand.Rand) ([]Choice[float64], error) {
	cum, ok := s.cumulative[outIdx]
	if !ok {
		return nil, ErrOperationUnavailable
	}
	if rng == nil {
		return nil, ErrOperationUnavailable
	}
	u := rng.Float64()
	d := 0
	for ; d < len(cum)-1; d++ {
		if cum[d] > u {
			break
		}
	}
	return []Choice[float64]{{Dom: value.Dom(d), Value: 0}}, nil
}
