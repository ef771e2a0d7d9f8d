package recorder

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Table is a per-event row buffer with a fixed maximum number of rows. The
// backing storage is reused across events.
type Table[T any] struct {
	name     string
	rows     []T
	capacity int
	pad      T
}

// NewTable returns an empty table. pad is the row used to fill gaps left by
// out-of-order placements.
func NewTable[T any](name string, capacity int, pad T) *Table[T] {
	return &Table[T]{name: name, capacity: capacity, pad: pad}
}

func (t *Table[T]) Name() string {
	return t.name
}

func (t *Table[T]) Len() int {
	return len(t.rows)
}

func (t *Table[T]) Capacity() int {
	return t.capacity
}

func (t *Table[T]) Append(row T) error {
	if len(t.rows) >= t.capacity {
		return fmt.Errorf("%w: %s holds %d rows", ErrTableFull, t.name, t.capacity)
	}
	t.rows = append(t.rows, row)
	return nil
}

// Put stores row at index: appended when index is the next row, padded up to
// index when beyond it, overwritten when already filled.
func (t *Table[T]) Put(index int, row T) error {
	if index < 0 {
		return fmt.Errorf("%s: negative row index %d", t.name, index)
	}
	if index < len(t.rows) {
		t.rows[index] = row
		return nil
	}
	if index >= t.capacity {
		return fmt.Errorf("%w: %s row %d, capacity %d", ErrTableFull, t.name, index, t.capacity)
	}
	for len(t.rows) < index {
		t.rows = append(t.rows, t.pad)
	}
	t.rows = append(t.rows, row)
	return nil
}

// At returns a pointer to the row at index, nil if the row does not exist.
func (t *Table[T]) At(index int) *T {
	if index < 0 || index >= len(t.rows) {
		return nil
	}
	return &t.rows[index]
}

// Rows returns the filled rows. The slice is only valid until the next Reset.
func (t *Table[T]) Rows() []T {
	return t.rows
}

func (t *Table[T]) Reset() {
	t.rows = t.rows[:0]
}

// rowIndex maps a 1-based engine id onto its dense row index.
func rowIndex[I constraints.Signed](id I) int {
	return int(id) - 1
}
