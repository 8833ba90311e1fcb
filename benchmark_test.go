package berth

import (
	"context"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/berth-go/sqlgen"
	"github.com/hugr-lab/berth-go/table"
)

// BenchmarkCompileScan benchmarks compiling a composed reference into
// its single pushed-down statement.
func BenchmarkCompileScan(b *testing.B) {
	ref := &Ref{name: "sales"}
	composed := ref.
		Where(sqlgen.Eq("region", "north")).
		Where(sqlgen.Between("year", 2020, 2024)).
		Where(sqlgen.In("channel", "web", "store", "partner")).
		Select("region", "year", "amount")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, _, err := composed.compileScan(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkInMemoryMaterialize benchmarks folding deferred operations
// over an in-memory table.
func BenchmarkInMemoryMaterialize(b *testing.B) {
	const rows = 10_000
	data := make([][]any, rows)
	for i := range data {
		data[i] = []any{fmt.Sprintf("region_%d", i%7), int64(2020 + i%5), float64(i)}
	}
	tbl, err := table.New([]table.Column{
		{Name: "region", Type: arrow.BinaryTypes.String},
		{Name: "year", Type: arrow.PrimitiveTypes.Int64},
		{Name: "amount", Type: arrow.PrimitiveTypes.Float64},
	}, data)
	if err != nil {
		b.Fatal(err)
	}

	ref, err := Open(tbl, "")
	if err != nil {
		b.Fatal(err)
	}
	composed := ref.Where(sqlgen.Eq("year", int64(2023))).Select("region", "amount")
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		got := composed.Materialize(ctx)
		if got.IsEmptyResult() {
			b.Fatalf("empty result: %s", got.Reason())
		}
	}
}
