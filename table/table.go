// Package table implements Table[Y], the N-dimensional array over an
// ordered, strictly increasing Scope that every other package in the engine
// treats as the unit of computation: an input factor, an intermediate
// lambda/pi message, or a solution record.
//
// Table is generic over the semiring's value type Y (float64 for Min-Sum and
// LogSumProduct, CountMinValue for Count-Min, struct{} for Dummy) the same
// way matrix.Dense is a concrete row-major float64 container — Table adds
// the variable-scope indexing layer matrix.Dense does not need.
//
// Storage is a flat slice in row-major order with the least-significant
// variable being vars[0], matching value.Scope's stride convention.
package table

import (
	"errors"
	"fmt"

	"github.com/arbogen/bucketdecomp/value"
)

// ErrLengthOverflow re-exports value.ErrLengthOverflow under the table
// package for callers that only import table.
var ErrLengthOverflow = value.ErrLengthOverflow

// ErrScopeMismatch indicates an operation received a table/scope pairing it
// cannot honor (e.g. a value slice whose length differs from the scope's
// size).
var ErrScopeMismatch = errors.New("table: scope mismatch")

// Table is an immutable-scope container holding Scope.Size() values of type
// Y, indexed by assignment or by flat index.
type Table[Y any] struct {
	scope value.Scope
	data  []Y
}

// New constructs a Table over scope with all cells zero-valued.
//
// Complexity: O(scope.Size()) to allocate and zero the backing slice.
func New[Y any](scope value.Scope) *Table[Y] {
	return &Table[Y]{
		scope: scope,
		data:  make([]Y, scope.Size()),
	}
}

// NewFromValues constructs a Table over scope, copying values in flat order.
// len(values) must equal scope.Size().
func NewFromValues[Y any](scope value.Scope, values []Y) (*Table[Y], error) {
	if uint64(len(values)) != scope.Size() {
		return nil, fmt.Errorf("table.NewFromValues: got %d values, want %d: %w",
			len(values), scope.Size(), ErrScopeMismatch)
	}
	data := make([]Y, len(values))
	copy(data, values)
	return &Table[Y]{scope: scope, data: data}, nil
}

// Scope returns the table's variable scope.
func (t *Table[Y]) Scope() value.Scope { return t.scope }

// Size returns the number of cells (product of domain sizes, 1 for scalar).
func (t *Table[Y]) Size() int { return len(t.data) }

// At returns the value at flat index idx.
func (t *Table[Y]) At(idx uint64) Y { return t.data[idx] }

// Set assigns the value at flat index idx.
func (t *Table[Y]) Set(idx uint64, v Y) { t.data[idx] = v }

// Value returns the cell for a full assignment over the table's scope.
func (t *Table[Y]) Value(assignment []value.Dom) (Y, error) {
	idx, err := t.scope.Flat(assignment)
	if err != nil {
		var zero Y
		return zero, fmt.Errorf("table.Value: %w", err)
	}
	return t.data[idx], nil
}

// SetValue writes the cell for a full assignment over the table's scope.
func (t *Table[Y]) SetValue(assignment []value.Dom, v Y) error {
	idx, err := t.scope.Flat(assignment)
	if err != nil {
		return fmt.Errorf("table.SetValue: %w", err)
	}
	t.data[idx] = v
	return nil
}

// Data exposes the flat backing slice in iteration (flat-index) order. The
// returned slice aliases the table's storage; callers must not retain it
// past the table's lifetime if they intend to mutate the table afterward.
func (t *Table[Y]) Data() []Y { return t.data }

// Clone returns a deep copy of the table, mirroring matrix.Dense.Clone.
func (t *Table[Y]) Clone() *Table[Y] {
	data := make([]Y, len(t.data))
	copy(data, t.data)
	return &Table[Y]{scope: t.scope, data: data}
}

// Transform builds a new Table[Z] over the same scope by applying fn
// elementwise (building Table[Y2] from Table[Y1] with an elementwise cast).
func Transform[Y, Z any](t *Table[Y], fn func(Y) Z) *Table[Z] {
	out := make([]Z, len(t.data))
	for i, v := range t.data {
		out[i] = fn(v)
	}
	return &Table[Z]{scope: t.scope, data: out}
}

// String renders a small table for debugging, one line per flat index.
func (t *Table[Y]) String() string {
	s := fmt.Sprintf("Table[vars=%v]{\n", t.scope.Vars())
	for i, v := range t.data {
		s += fmt.Sprintf("  [%d] = %v\n", i, v)
	}
	s += "}"
	return s
}
