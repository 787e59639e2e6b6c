package bucketdecomp

import (
	"errors"

	"github.com/arbogen/bucketdecomp/buckettree"
	"github.com/arbogen/bucketdecomp/graph"
	"github.com/arbogen/bucketdecomp/merger"
	"github.com/arbogen/bucketdecomp/semiring"
	"github.com/arbogen/bucketdecomp/table"
	"github.com/arbogen/bucketdecomp/task"
	"github.com/arbogen/bucketdecomp/treedecomp"
	"github.com/arbogen/bucketdecomp/value"
	"github.com/arbogen/bucketdecomp/voorder"
)

// classify maps a package-level sentinel error (already unwrapped from
// whatever fmt.Errorf("%w", ...) chain produced it) to the Kind an external
// caller should branch on. Anything not recognized is InternalError: every
// reachable failure mode is enumerated here, so an unrecognized error means
// a new sentinel was added upstream without a matching classify case.
func classify(err error) Kind {
	switch {
	case errors.Is(err, value.ErrLengthOverflow):
		return LengthOverflow
	case errors.Is(err, value.ErrEmptyScope),
		errors.Is(err, value.ErrScopeNotSorted),
		errors.Is(err, value.ErrDuplicateVar),
		errors.Is(err, value.ErrBadDomainSize),
		errors.Is(err, value.ErrScopeLengthMismatch),
		errors.Is(err, value.ErrAssignmentOutOfRange):
		return InvalidArgument

	case errors.Is(err, table.ErrLengthOverflow):
		return LengthOverflow
	case errors.Is(err, table.ErrScopeMismatch):
		return InvalidArgument

	case errors.Is(err, graph.ErrNegativeVertex):
		return InvalidArgument

	case errors.Is(err, treedecomp.ErrVarOutOfRange),
		errors.Is(err, treedecomp.ErrDuplicateOrderVar),
		errors.Is(err, treedecomp.ErrEmptyDomain):
		return InvalidArgument

	case errors.Is(err, merger.ErrVarNotFound):
		return InternalError

	case errors.Is(err, task.ErrDomainMismatch),
		errors.Is(err, task.ErrEvidenceOutOfRange):
		return InvalidArgument

	case errors.Is(err, semiring.ErrOperationUnavailable):
		return OperationUnavailable
	case errors.Is(err, buckettree.ErrOperationUnavailable):
		return OperationUnavailable

	case errors.Is(err, voorder.ErrInvalidHeuristic),
		errors.Is(err, voorder.ErrClampRanksLength),
		errors.Is(err, voorder.ErrInvalidSelectionScale):
		return InvalidArgument

	case errors.Is(err, ErrComplexityExceeded):
		return ExcessiveComplexity

	default:
		return InternalError
	}
}
