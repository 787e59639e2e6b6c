// Package semiring provides the pluggable algebra behind bucket elimination:
// Ops[Y] bundles a value type Y with an associative/commutative Combine
// operator, a Marginalizer factory and a SolvableMarginalizer factory. It
// has no Solution constructor: buckettree builds its own Solution records.
// buckettree.BucketTree never inspects a semiring's
// internal types — it only calls the methods on this interface, the same
// way matrix/ops/*.go gives Floyd-Warshall, eigendecomposition, LU and QR
// independent implementations behind the shared matrix.Matrix interface
// without the matrix package knowing which one it is handed.
//
// Four semirings live in this package, one file each:
//
//	minsum.go         - Min-Sum: combine=+, marginalize=min, K-best solving.
//	logsumproduct.go  - Log-Sum-Product: combine=+ in log-space,
//	                    marginalize=logsumexp, sampling via uniform draws.
//	countmin.go       - Count-Min: combine=(sum,product), marginalize=
//	                    (min value, summed count within tolerance).
//	dummy.go          - Dummy: combining and marginalizing are unavailable; used only to
//	                    expose the factor graph to voorder without a real
//	                    semiring.
package semiring

import (
	"errors"
	"math/rand"

	"github.com/arbogen/bucketdecomp/value"
)

// ErrOperationUnavailable is returned by Dummy, and by any semiring asked to
// perform an operation outside its contract (e.g. Complete on Count-Min's
// solvable marginalizer, since Count-Min has no downward pass).
var ErrOperationUnavailable = errors.New("semiring: operation unavailable")

// Marginalizer reduces the Y values attained by the variable being
// eliminated, supplied in ascending domain-index order, into a single
// output cell.
type Marginalizer[Y any] interface {
	Reduce(values []Y) Y
}

// Choice is one completion record: picking domain index Dom for the
// eliminated variable costs/weighs Value under the semiring's algebra.
type Choice[Y any] struct {
	Dom   value.Dom
	Value Y
}

// SolvableMarginalizer additionally records, per output-cell index, enough
// state to later complete a partial assignment by choosing the eliminated
// variable's value. The contract is "one instance per (node, separator)":
// ReduceAt must be called with outIdx values in the order the output
// table's cells are produced (0..N-1), and Complete may only be called
// for an outIdx already passed to ReduceAt.
type SolvableMarginalizer[Y any] interface {
	Marginalizer[Y]

	// ReduceAt behaves like Reduce but additionally records solve-time
	// state keyed by outIdx.
	ReduceAt(outIdx uint64, values []Y) Y

	// Complete returns the recorded choices for outIdx. For Min-Sum this is
	// up to K (value, domIdx) records sorted by value then domIdx; for
	// Log-Sum-Product this is a single choice sampled via rng from the
	// cumulative distribution recorded at ReduceAt time. rng is ignored by
	// semirings whose Complete is deterministic.
	Complete(outIdx uint64, rng *rand.Rand) ([]Choice[Y], error)
}

// Assignment pairs a semiring value with the full-length assignment vector
// that attains it.
type Assignment[Y any] struct {
	Value Y
	Vars  []value.Dom
}

// Ops is the capability set every semiring exposes to the engine.
type Ops[Y any] interface {
	// Name identifies the semiring for diagnostics and telemetry.
	Name() string

	// Combine is the associative, commutative operator used to multiply
	// factors and propagate messages.
	Combine(x, y Y) Y

	// CombineIdentity is the unit of Combine.
	CombineIdentity() Y

	// NewMarginalizer returns a reducer for collapsing a variable with the
	// given domain size out of a merged table.
	NewMarginalizer(outDomSize value.Dom) Marginalizer[Y]

	// NewSolvableMarginalizer returns a marginalizer that additionally
	// records completion state for the downward pass.
	NewSolvableMarginalizer(outDomSize value.Dom) SolvableMarginalizer[Y]
}
