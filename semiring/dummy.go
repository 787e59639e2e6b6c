package semiring

import (
	"math/rand"

	"github.com/arbogen/bucketdecomp/value"
)

// Dummy is a semiring over struct{} whose Combine and marginalizer
// Reduce/ReduceAt panic with ErrOperationUnavailable and whose Complete
// returns it; only Name, CombineIdentity and the marginalizer factories
// work. It exists only so that voorder and task can be
// exercised against the factor graph without requiring a real algebra —
// greedy variable ordering never touches table values, only scopes and
// domain sizes.
type Dummy struct{}

// NewDummy constructs a Dummy Ops.
func NewDummy() *Dummy { return &Dummy{} }

func (Dummy) Name() string { return "dummy" }

func (Dummy) Combine(x, y struct{}) struct{} { panic(ErrOperationUnavailable) }

func (Dummy) CombineIdentity() struct{} { return struct{}{} }

func (Dummy) NewMarginalizer(outDomSize value.Dom) Marginalizer[struct{}] {
	return dummyMarginalizer{}
}

func (Dummy) NewSolvableMarginalizer(outDomSize value.Dom) SolvableMarginalizer[struct{}] {
	return dummySolvableMarginalizer{}
}

type dummyMarginalizer struct{}

func (dummyMarginalizer) Reduce(values []struct{}) struct{} { panic(ErrOperationUnavailable) }

type dummySolvableMarginalizer struct{}

func (dummySolvableMarginalizer) Reduce(values []struct{}) struct{} {
	panic(ErrOperationUnavailable)
}

func (dummySolvableMarginalizer) ReduceAt(outIdx uint64, values []struct{}) struct{} {
	panic(ErrOperationUnavailable)
}

func (dummySolvableMarginalizer) Complete(outIdx uint64, rng *rand.Rand) ([]Choice[struct{}], error) {
	return nil, ErrOperationUnavailable
}
