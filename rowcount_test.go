package berth

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/berth-go/sqlgen"
	"github.com/hugr-lab/berth-go/table"
)

func TestSafeRowCountIsTotal(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		v    any
		want int64
	}{
		{"nil", nil, 0},
		{"bare slice", []int{1, 2, 3}, 0},
		{"string", "not a dataset", 0},
		{"struct", struct{}{}, 0},
		{"nil table pointer", (*table.Table)(nil), 0},
		{"nil ref pointer", (*Ref)(nil), 0},
		{"empty result", table.Empty("whatever"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeRowCount(ctx, tt.v); got != tt.want {
				t.Errorf("SafeRowCount(%v) = %d, want %d", tt.v, got, tt.want)
			}
		})
	}
}

func TestSafeRowCountTable(t *testing.T) {
	ctx := context.Background()

	rows := make([][]any, 7)
	for i := range rows {
		rows[i] = []any{int64(i)}
	}
	tbl, err := table.New([]table.Column{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, rows)
	if err != nil {
		t.Fatalf("building table: %v", err)
	}

	if got := SafeRowCount(ctx, tbl); got != 7 {
		t.Errorf("SafeRowCount = %d, want 7", got)
	}
}

func TestSafeRowCountPushedDown(t *testing.T) {
	db := seedDB(t)
	ctx := context.Background()

	ref, err := Open(db, "sales")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if got := SafeRowCount(ctx, ref); got != 5 {
		t.Errorf("unfiltered count = %d, want 5", got)
	}
	filtered := ref.Where(sqlgen.Eq("year", 2023))
	if got := SafeRowCount(ctx, filtered); got != 2 {
		t.Errorf("filtered count = %d, want 2", got)
	}
}

func TestSafeRowCountInvalidRef(t *testing.T) {
	db := seedDB(t)
	ctx := context.Background()

	ref, err := Open(db, "no_such_table")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := SafeRowCount(ctx, ref); got != 0 {
		t.Errorf("count over a missing table = %d, want 0", got)
	}
}

func TestSafeRowCountArrow(t *testing.T) {
	ctx := context.Background()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	builder.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3, 4}, nil)
	record := builder.NewRecordBatch()
	defer record.Release()

	if got := SafeRowCount(ctx, record); got != 4 {
		t.Errorf("record count = %d, want 4", got)
	}
}
