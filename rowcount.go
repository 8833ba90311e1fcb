package berth

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/berth-go/internal/recovery"
	"github.com/hugr-lab/berth-go/table"
)

// SafeRowCount returns the number of rows in v, for any v. It is total:
// nil values, unrecognized types, execution failures and panics all
// count as zero, and nothing escapes to the caller.
//
// Tables answer from their tracked row count. Lazy references answer
// through Ref.Count, which pushes a COUNT(*) down to native backends so
// cardinality never transfers row contents. Everything else is zero —
// including bare slices, which are datasets only once opened, not as
// raw values.
func SafeRowCount(ctx context.Context, v any) int64 {
	n, err := recovery.RecoverToValue(slog.Default(), "SafeRowCount", func() (int64, error) {
		return safeRowCount(ctx, v)
	})
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func safeRowCount(ctx context.Context, v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case *table.Table:
		if t == nil {
			return 0, nil
		}
		return t.NumRows(), nil
	case *Ref:
		if t == nil {
			return 0, nil
		}
		return t.Count(ctx)
	case arrow.Record:
		return t.NumRows(), nil
	case array.RecordReader:
		tbl, err := table.FromReader(t)
		if err != nil {
			return 0, err
		}
		return tbl.NumRows(), nil
	default:
		return 0, nil
	}
}
