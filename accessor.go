package berth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/berth-go/internal/recovery"
	"github.com/hugr-lab/berth-go/source"
	"github.com/hugr-lab/berth-go/table"
)

// Access resolves the dataset called name on conn and returns it as an
// in-memory table. It is the single eager boundary of the package: it
// opens a lazy reference and materializes it immediately.
//
// Access is total. Unresolvable names, unclassifiable connections,
// execution failures and panics in user-supplied producers all come back
// as the empty-result sentinel with a diagnostic reason, never as an
// error or a panic. The connection is never closed or mutated.
//
// When opts.Query is set and the connection is native, the query runs as
// a parameterized statement (opts.Args bound positionally) and takes
// precedence over the name lookup.
func Access(ctx context.Context, conn any, name string, opts *AccessOptions) *table.Table {
	if opts == nil {
		opts = &AccessOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tbl, err := recovery.RecoverToValue(logger, "Access", func() (*table.Table, error) {
		return access(ctx, conn, name, opts, logger)
	})
	if err != nil {
		logger.Warn("access degraded to empty result",
			"dataset", name,
			"error", err,
		)
		return table.Empty(err.Error())
	}
	return tbl
}

func access(ctx context.Context, conn any, name string, opts *AccessOptions, logger *slog.Logger) (*table.Table, error) {
	if opts.Query != "" {
		kind, err := source.Classify(conn)
		if err != nil {
			return nil, fmt.Errorf("%w (%s)", err, source.DescribeShape(conn))
		}
		if kind == source.KindNative {
			return queryNative(ctx, conn.(source.Querier), opts.Query, opts.Args)
		}
		// A non-native connection falls through to the name path; the
		// query template only applies to SQL-capable backends.
		logger.Debug("query template ignored for non-native connection",
			"dataset", name,
			"kind", kind.String(),
		)
	}

	ref, err := Open(conn, name, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	tbl, err := ref.materialize(ctx)
	if err != nil {
		return nil, err
	}
	return tbl, nil
}

// queryNative executes a caller-supplied statement with bound arguments.
func queryNative(ctx context.Context, q source.Querier, query string, args []any) (*table.Table, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return table.FromSQLRows(rows)
}
