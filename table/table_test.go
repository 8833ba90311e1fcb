package table

import (
	"errors"
	"reflect"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/berth-go/sqlgen"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		[]Column{
			{Name: "id", Type: arrow.PrimitiveTypes.Int64},
			{Name: "region", Type: arrow.BinaryTypes.String},
			{Name: "total", Type: arrow.PrimitiveTypes.Float64},
		},
		[][]any{
			{int64(1), "eu", 10.0},
			{int64(2), "us", 25.0},
			{int64(3), "eu", 40.0},
			{int64(4), "apac", 5.0},
		},
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return tbl
}

func TestNewValidatesShape(t *testing.T) {
	_, err := New(
		[]Column{{Name: "id", Type: arrow.PrimitiveTypes.Int64}},
		[][]any{{int64(1), "extra"}},
	)
	if !errors.Is(err, ErrRowShape) {
		t.Errorf("err = %v, want ErrRowShape", err)
	}

	_, err = New(
		[]Column{
			{Name: "id", Type: arrow.PrimitiveTypes.Int64},
			{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		},
		nil,
	)
	if !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("err = %v, want ErrDuplicateColumn", err)
	}
}

func TestEmptySentinel(t *testing.T) {
	e := Empty("backend unreachable")
	if !e.IsEmptyResult() {
		t.Error("expected empty-result sentinel")
	}
	if e.Reason() != "backend unreachable" {
		t.Errorf("Reason() = %q", e.Reason())
	}
	if e.NumRows() != 0 || e.NumCols() != 0 {
		t.Errorf("sentinel has %d rows, %d cols, want 0, 0", e.NumRows(), e.NumCols())
	}

	// A blank reason would be indistinguishable from a real result.
	if Empty("").Reason() == "" {
		t.Error("Empty(\"\") must still carry a reason")
	}

	// A legitimate zero-row table is not the sentinel.
	tbl, err := New([]Column{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tbl.IsEmptyResult() {
		t.Error("zero-row table misreported as empty-result sentinel")
	}
}

func TestFilter(t *testing.T) {
	tbl := testTable(t)

	got, err := tbl.Filter(sqlgen.Eq("region", "eu"))
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if got.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", got.NumRows())
	}

	// Receiver unchanged.
	if tbl.NumRows() != 4 {
		t.Errorf("source table mutated: NumRows() = %d", tbl.NumRows())
	}

	// Filters conjoin in order.
	got, err = tbl.Filter(sqlgen.Eq("region", "eu"), sqlgen.Gt("total", 20))
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if got.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", got.NumRows())
	}
	if v, _ := got.Value(0, "id"); v != int64(3) {
		t.Errorf("row id = %v, want 3", v)
	}
}

func TestFilterUnknownColumn(t *testing.T) {
	tbl := testTable(t)
	_, err := tbl.Filter(sqlgen.Eq("missing", 1))
	if !errors.Is(err, sqlgen.ErrUnknownColumn) {
		t.Errorf("err = %v, want ErrUnknownColumn", err)
	}
}

func TestProject(t *testing.T) {
	tbl := testTable(t)

	got, err := tbl.Project("total", "id")
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if want := []string{"total", "id"}; !reflect.DeepEqual(got.ColumnNames(), want) {
		t.Errorf("ColumnNames() = %v, want %v", got.ColumnNames(), want)
	}
	if got.NumRows() != 4 {
		t.Errorf("NumRows() = %d, want 4", got.NumRows())
	}
	if v, _ := got.Value(1, "total"); v != 25.0 {
		t.Errorf("Value(1, total) = %v, want 25", v)
	}

	// Source keeps all columns.
	if tbl.NumCols() != 3 {
		t.Errorf("source table mutated: NumCols() = %d", tbl.NumCols())
	}
}

func TestProjectUnknownColumn(t *testing.T) {
	tbl := testTable(t)
	_, err := tbl.Project("id", "missing")
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("err = %v, want ErrColumnNotFound", err)
	}
}

func TestFilterAfterProject(t *testing.T) {
	tbl := testTable(t)

	projected, err := tbl.Project("id", "region")
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	// Filtering on a projected-away column fails.
	if _, err := projected.Filter(sqlgen.Gt("total", 1)); err == nil {
		t.Error("expected error filtering on dropped column")
	}

	// Filtering on a kept column still works.
	got, err := projected.Filter(sqlgen.Eq("region", "us"))
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if got.NumRows() != 1 {
		t.Errorf("NumRows() = %d, want 1", got.NumRows())
	}
}

func TestValueLookup(t *testing.T) {
	tbl := testTable(t)

	if v, ok := tbl.Value(0, "region"); !ok || v != "eu" {
		t.Errorf("Value(0, region) = %v, %v", v, ok)
	}
	if _, ok := tbl.Value(0, "missing"); ok {
		t.Error("lookup of missing column succeeded")
	}
	if _, ok := tbl.Value(99, "region"); ok {
		t.Error("lookup of out-of-range row succeeded")
	}
}
