package semiring

import (
	"math"
	"math/rand"

	"github.com/arbogen/bucketdecomp/value"
)

// CountMinValue is the Count-Min value type: a minimum-so-far cost paired
// with the (possibly very large) number of distinct assignments attaining
// it, Count stored as float64 since products of counts can exceed int64 for
// even modest instances and only a numeric tolerance is required, not exact
// big-integer bookkeeping.
type CountMinValue struct {
	Value float64
	Count float64
}

// CountMin is the count-min semiring: combine((v1,c1),(v2,c2)) =
// (v1+v2, c1*c2); marginalize picks the minimum value and sums counts of
// every cell within absolute tolerance Eps of it.
//
// Tolerance is absolute (|v_i - v_min| <= Eps), not relative to v_min's
// magnitude, so Eps has the same units as the table values themselves.
type CountMin struct {
	Eps float64
}

// NewCountMin constructs a Count-Min Ops with the given absolute tolerance.
func NewCountMin(eps float64) *CountMin {
	return &CountMin{Eps: eps}
}

func (c *CountMin) Name() string { return "count-min" }

func (c *CountMin) Combine(x, y CountMinValue) CountMinValue {
	return CountMinValue{Value: x.Value + y.Value, Count: x.Count * y.Count}
}

func (c *CountMin) CombineIdentity() CountMinValue {
	return CountMinValue{Value: 0, Count: 1}
}

func (c *CountMin) NewMarginalizer(outDomSize value.Dom) Marginalizer[CountMinValue] {
	return &countMinMarginalizer{eps: c.Eps}
}

// NewSolvableMarginalizer exists only to satisfy Ops; Count-Min has no
// downward pass, only Min-Sum and Log-Sum-Product solve/sample.
func (c *CountMin) NewSolvableMarginalizer(outDomSize value.Dom) SolvableMarginalizer[CountMinValue] {
	return &countMinUnsolvable{eps: c.Eps}
}

type countMinMarginalizer struct{ eps float64 }

func (m countMinMarginalizer) Reduce(values []CountMinValue) CountMinValue {
	vMin := values[0].Value
	for _, v := range values[1:] {
		if v.Value < vMin {
			vMin = v.Value
		}
	}
	var count float64
	for _, v := range values {
		if math.Abs(v.Value-vMin) <= m.eps {
			count += v.Count
		}
	}
	return CountMinValue{Value: vMin, Count: count}
}

type countMinUnsolvable struct{ eps float64 }

func (m countMinUnsolvable) Reduce(values []CountMinValue) CountMinValue {
	return countMinMarginalizer{eps: m.eps}.Reduce(values)
}

func (m countMinUnsolvable) ReduceAt(outIdx uint64, values []CountMinValue) CountMinValue {
	return countMinMarginalizer{eps: m.eps}.Reduce(values)
}

func (countMinUnsolvable) Complete(outIdx uint64, rng *rand.Rand) ([]Choice[CountMinValue], error) {
	return nil, ErrOperationUnavailable
}
