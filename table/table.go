// Package table provides the in-memory tabular result used by every data
// source that is not backed by a SQL engine, and the materialized form of
// every query result.
//
// A Table is immutable through its API: Filter and Project return derived
// tables and never modify the receiver. Column types use Arrow data types
// so results can move in and out of Arrow records without a separate type
// vocabulary.
//
// The zero-row, zero-column table produced by Empty carries a diagnostic
// reason and stands in for a failed or unresolvable access. A legitimate
// result that merely has no rows has an empty reason.
package table

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/berth-go/sqlgen"
)

var (
	// ErrColumnNotFound indicates a projection or filter referenced a
	// column the table does not have.
	ErrColumnNotFound = errors.New("table: column not found")

	// ErrRowShape indicates a row whose width does not match the column
	// count.
	ErrRowShape = errors.New("table: row width does not match column count")

	// ErrDuplicateColumn indicates two columns share a name.
	ErrDuplicateColumn = errors.New("table: duplicate column name")
)

// Column describes a named, typed table column.
type Column struct {
	Name string
	Type arrow.DataType
}

// Table is an immutable in-memory result set with named, typed columns
// and row-major values.
type Table struct {
	cols   []Column
	rows   [][]any
	index  map[string]int
	reason string
}

// New builds a table from columns and row-major values.
// Every row must have exactly one value per column.
func New(cols []Column, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, ok := index[c.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
		}
		index[c.Name] = i
	}
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("%w: row %d has %d values, table has %d columns",
				ErrRowShape, i, len(row), len(cols))
		}
	}
	return &Table{cols: cols, rows: rows, index: index}, nil
}

// Empty returns the empty-result sentinel carrying a diagnostic reason.
// The reason is never blank so the sentinel stays distinguishable from a
// legitimate result that happens to have no rows.
func Empty(reason string) *Table {
	if reason == "" {
		reason = "unspecified reason"
	}
	return &Table{index: map[string]int{}, reason: reason}
}

// NumRows returns the row count.
func (t *Table) NumRows() int64 { return int64(len(t.rows)) }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns a copy of the column descriptors.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// ColumnIndex returns the position of a named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Row returns the values of row i. The slice is shared, not copied.
func (t *Table) Row(i int) []any { return t.rows[i] }

// Rows returns the row-major values. The outer slice is a copy; row
// slices are shared.
func (t *Table) Rows() [][]any {
	out := make([][]any, len(t.rows))
	copy(out, t.rows)
	return out
}

// Value returns the value at row i in the named column.
func (t *Table) Value(i int, column string) (any, bool) {
	idx, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.rows) {
		return nil, false
	}
	return t.rows[i][idx], true
}

// Reason returns the diagnostic reason of an empty-result sentinel, or
// an empty string for a regular table.
func (t *Table) Reason() string { return t.reason }

// IsEmptyResult reports whether the table is the empty-result sentinel
// rather than a regular result.
func (t *Table) IsEmptyResult() bool { return t.reason != "" }

// Filter returns a table with the rows that satisfy every predicate, in
// their original order. Predicates referencing unknown columns fail.
func (t *Table) Filter(preds ...sqlgen.Predicate) (*Table, error) {
	if len(preds) == 0 {
		return t, nil
	}

	var kept [][]any
	for _, row := range t.rows {
		lookup := func(column string) (any, bool) {
			idx, ok := t.index[column]
			if !ok {
				return nil, false
			}
			return row[idx], true
		}
		keep, err := sqlgen.EvalAll(preds, lookup)
		if err != nil {
			return nil, err
		}
		if keep {
			kept = append(kept, row)
		}
	}
	return &Table{cols: t.cols, rows: kept, index: t.index}, nil
}

// Project returns a table narrowed to the named columns, in the given
// order. Unknown columns are an error, not silently dropped.
func (t *Table) Project(columns ...string) (*Table, error) {
	indices := make([]int, len(columns))
	cols := make([]Column, len(columns))
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		idx, ok := t.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
		indices[i] = idx
		cols[i] = t.cols[idx]
		index[name] = i
	}

	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		projected := make([]any, len(indices))
		for i, idx := range indices {
			projected[i] = row[idx]
		}
		rows[r] = projected
	}
	return &Table{cols: cols, rows: rows, index: index}, nil
}
