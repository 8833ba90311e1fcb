package berth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/berth-go/source"
	"github.com/hugr-lab/berth-go/sqlgen"
	"github.com/hugr-lab/berth-go/table"
)

// Ref is a lazy reference to a named dataset on some connection, plus the
// ordered list of filter and projection operations that have not been
// applied yet.
//
// A Ref is persistent: Where and Select return a new Ref and never mutate
// the receiver, so references can be composed and shared freely. Nothing
// touches the underlying connection until Materialize or Count runs.
type Ref struct {
	kind   source.Kind
	conn   any
	name   string
	query  string
	ops    []refOp
	res    *resolution
	logger *slog.Logger
}

// refOp is one deferred operation. Exactly one of pred and cols is set.
type refOp struct {
	pred sqlgen.Predicate
	cols []string
}

// resolution caches the result of resolving a container producer or a
// reactive thunk. It is shared by every Ref derived from the same Open
// call so the producer is invoked at most once per open.
type resolution struct {
	once sync.Once
	val  any
	err  error
}

// Option configures an Open call.
type Option func(*Ref)

// WithLogger sets the logger used for materialization diagnostics.
// The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ref) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Open builds a lazy reference to the dataset called name on conn. The
// connection value is classified once; the dataset itself is not resolved,
// looked up or queried until the reference is materialized.
func Open(conn any, name string, opts ...Option) (*Ref, error) {
	kind, err := source.Classify(conn)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, source.DescribeShape(conn))
	}
	if name == "" && kind != source.KindDirect && kind != source.KindScalar {
		return nil, fmt.Errorf("%w: no dataset name given", ErrNotFound)
	}
	r := &Ref{
		kind:   kind,
		conn:   conn,
		name:   name,
		res:    &resolution{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// OpenQuery builds a lazy reference over a raw SQL query. The query text
// becomes the base relation (a subquery) that deferred operations compose
// onto. Only native connections, or reactive connections that resolve to
// a native one, can materialize such a reference.
func OpenQuery(conn any, query string, opts ...Option) (*Ref, error) {
	kind, err := source.Classify(conn)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, source.DescribeShape(conn))
	}
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if kind != source.KindNative && kind != source.KindReactive {
		return nil, fmt.Errorf("%w: %s connections cannot run raw queries", ErrInvalidQuery, kind)
	}
	r := &Ref{
		kind:   kind,
		conn:   conn,
		query:  query,
		res:    &resolution{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Kind returns the classified kind of the underlying connection.
func (r *Ref) Kind() source.Kind { return r.kind }

// Name returns the dataset name the reference was opened with.
func (r *Ref) Name() string { return r.name }

// Where returns a new reference with the predicate appended to the
// deferred operations. The receiver is unchanged.
func (r *Ref) Where(pred sqlgen.Predicate) *Ref {
	return r.withOp(refOp{pred: pred})
}

// Select returns a new reference projecting to the named columns. The
// receiver is unchanged. Operation order is preserved: a filter appended
// after a projection may only reference the projected columns.
func (r *Ref) Select(columns ...string) *Ref {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return r.withOp(refOp{cols: cols})
}

func (r *Ref) withOp(op refOp) *Ref {
	next := *r
	// Full-capacity slice so appends on siblings cannot alias.
	next.ops = append(r.ops[:len(r.ops):len(r.ops)], op)
	return &next
}

// Materialize resolves the reference into an in-memory table, applying
// every deferred operation in append order. It is total: any failure is
// logged and returned as the empty-result sentinel, never as an error or
// a panic.
func (r *Ref) Materialize(ctx context.Context) *table.Table {
	tbl, err := r.materialize(ctx)
	if err != nil {
		r.logger.Warn("materialization failed",
			"dataset", r.name,
			"kind", r.kind.String(),
			"error", err,
		)
		return table.Empty(err.Error())
	}
	return tbl
}

func (r *Ref) materialize(ctx context.Context) (*table.Table, error) {
	switch r.kind {
	case source.KindNative:
		return r.materializeNative(ctx, r.conn.(source.Querier))
	case source.KindReactive:
		return r.materializeReactive(ctx)
	default:
		base, err := r.baseTable()
		if err != nil {
			return nil, err
		}
		return applyOps(base, r.ops)
	}
}

// materializeNative compiles the base relation and every deferred
// operation into exactly one statement and executes it.
func (r *Ref) materializeNative(ctx context.Context, q source.Querier) (*table.Table, error) {
	stmt, args, err := r.compileScan()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("executing scan: %w", err)
	}
	return table.FromSQLRows(rows)
}

// materializeReactive invokes the thunk (once, cached across derived
// references), classifies its result and replays the deferred operations
// onto a reference over the inner connection.
func (r *Ref) materializeReactive(ctx context.Context) (*table.Table, error) {
	inner, err := r.resolveThunk()
	if err != nil {
		return nil, err
	}
	var ref *Ref
	if r.query != "" {
		ref, err = OpenQuery(inner, r.query, WithLogger(r.logger))
	} else {
		ref, err = Open(inner, r.name, WithLogger(r.logger))
	}
	if err != nil {
		return nil, err
	}
	ref.ops = r.ops
	return ref.materialize(ctx)
}

func (r *Ref) resolveThunk() (any, error) {
	r.res.once.Do(func() {
		r.res.val, r.res.err = source.Invoke(r.conn)
	})
	if r.res.err != nil {
		return nil, fmt.Errorf("invoking connection producer: %w", r.res.err)
	}
	return r.res.val, nil
}

// baseTable resolves the underlying data to an in-memory table for the
// non-native, non-reactive kinds.
func (r *Ref) baseTable() (*table.Table, error) {
	switch r.kind {
	case source.KindContainer:
		return r.containerTable()
	case source.KindDirect:
		return wrapDirect(r.conn)
	case source.KindScalar:
		return table.FromScalars(r.conn)
	default:
		return nil, fmt.Errorf("%w: cannot materialize %s reference in memory", ErrInvalidQuery, r.kind)
	}
}

// containerTable looks the dataset up inside a container: the name
// itself first, then a "get_"-prefixed producer. The resolved table is
// cached for the lifetime of the open, so producers run at most once no
// matter how many derived references materialize.
func (r *Ref) containerTable() (*table.Table, error) {
	r.res.once.Do(func() {
		c := r.conn.(map[string]any)
		v, isProducer, ok := source.ContainerLookup(c, r.name)
		if !ok {
			r.res.err = fmt.Errorf("%w: %q not in container (also tried %q)",
				ErrNotFound, r.name, source.ProducerPrefix+r.name)
			return
		}
		if isProducer {
			v, r.res.err = source.Invoke(v)
			if r.res.err != nil {
				r.res.err = fmt.Errorf("invoking producer for %q: %w", r.name, r.res.err)
				return
			}
		}
		r.res.val, r.res.err = valueTable(v)
	})
	if r.res.err != nil {
		return nil, r.res.err
	}
	return r.res.val.(*table.Table), nil
}

// valueTable converts a container or producer value into a table. A value
// that itself classifies as a connection shape is resolved recursively.
func valueTable(v any) (*table.Table, error) {
	switch t := v.(type) {
	case *table.Table:
		return t, nil
	case arrow.Record:
		return table.FromRecord(t)
	case array.RecordReader:
		return table.FromReader(t)
	}
	if kind, err := source.Classify(v); err == nil {
		switch kind {
		case source.KindScalar:
			return table.FromScalars(v)
		case source.KindReactive:
			inner, err := source.Invoke(v)
			if err != nil {
				return nil, fmt.Errorf("invoking nested producer: %w", err)
			}
			return valueTable(inner)
		}
	}
	return nil, fmt.Errorf("%w: container value of type %T is not tabular", source.ErrUnknownShape, v)
}

// wrapDirect converts an already-tabular connection value.
func wrapDirect(v any) (*table.Table, error) {
	switch t := v.(type) {
	case *table.Table:
		return t, nil
	case arrow.Record:
		return table.FromRecord(t)
	case array.RecordReader:
		return table.FromReader(t)
	}
	return nil, fmt.Errorf("%w: %T", source.ErrUnknownShape, v)
}

// applyOps folds the deferred operations over an in-memory table,
// left to right, in append order.
func applyOps(tbl *table.Table, ops []refOp) (*table.Table, error) {
	var err error
	for _, op := range ops {
		if op.pred != nil {
			tbl, err = tbl.Filter(op.pred)
		} else {
			tbl, err = tbl.Project(op.cols...)
		}
		if err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// compileScan builds the single SELECT statement covering the base
// relation and every deferred operation: filters conjoined in append
// order as the WHERE clause, the most recent projection as the SELECT
// list. Filters referencing a column dropped by an earlier projection
// are rejected here, at materialization, not at append time.
func (r *Ref) compileScan() (string, []any, error) {
	filters, selectCols, err := splitOps(r.ops)
	if err != nil {
		return "", nil, err
	}
	where, args, err := sqlgen.CompileAll(filters)
	if err != nil {
		return "", nil, err
	}
	return sqlgen.SelectStatement(r.base(), sqlgen.SelectList(selectCols), where), args, nil
}

// compileCount builds the pushed-down cardinality statement. Projections
// do not change cardinality and are ignored; the op-sequence check still
// runs so an invalid reference counts as invalid, not as zero rows of a
// different query.
func (r *Ref) compileCount() (string, []any, error) {
	filters, _, err := splitOps(r.ops)
	if err != nil {
		return "", nil, err
	}
	where, args, err := sqlgen.CompileAll(filters)
	if err != nil {
		return "", nil, err
	}
	return sqlgen.CountStatement(r.base(), where), args, nil
}

func (r *Ref) base() string {
	if r.query != "" {
		return sqlgen.SubqueryBase(r.query)
	}
	return sqlgen.TableBase(r.name)
}

// splitOps validates the op sequence and separates it into the ordered
// filter list and the effective (most recent) projection. Each filter is
// checked against the projection in force at the point it was appended.
func splitOps(ops []refOp) (filters []sqlgen.Predicate, selectCols []string, err error) {
	var visible map[string]struct{}
	for _, op := range ops {
		if op.pred != nil {
			if visible != nil {
				for _, col := range sqlgen.Columns(op.pred) {
					if _, ok := visible[col]; !ok {
						return nil, nil, fmt.Errorf(
							"filter references column %q dropped by an earlier projection", col)
					}
				}
			}
			filters = append(filters, op.pred)
			continue
		}
		if visible != nil {
			for _, col := range op.cols {
				if _, ok := visible[col]; !ok {
					return nil, nil, fmt.Errorf(
						"projection references column %q dropped by an earlier projection", col)
				}
			}
		}
		visible = make(map[string]struct{}, len(op.cols))
		for _, col := range op.cols {
			visible[col] = struct{}{}
		}
		selectCols = op.cols
	}
	return filters, selectCols, nil
}

// Count returns the number of rows the reference would materialize.
// Native references push a COUNT(*) down to the engine so no row
// contents cross the boundary; every other kind materializes in memory
// and counts.
func (r *Ref) Count(ctx context.Context) (int64, error) {
	switch r.kind {
	case source.KindNative:
		return r.countNative(ctx, r.conn.(source.Querier))
	case source.KindReactive:
		inner, err := r.resolveThunk()
		if err != nil {
			return 0, err
		}
		var ref *Ref
		if r.query != "" {
			ref, err = OpenQuery(inner, r.query, WithLogger(r.logger))
		} else {
			ref, err = Open(inner, r.name, WithLogger(r.logger))
		}
		if err != nil {
			return 0, err
		}
		ref.ops = r.ops
		return ref.Count(ctx)
	default:
		tbl, err := r.materialize(ctx)
		if err != nil {
			return 0, err
		}
		return tbl.NumRows(), nil
	}
}

func (r *Ref) countNative(ctx context.Context, q source.Querier) (int64, error) {
	stmt, args, err := r.compileCount()
	if err != nil {
		return 0, err
	}
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("executing count: %w", err)
	}
	defer rows.Close()

	var n int64
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("reading count: %w", err)
		}
		return 0, errors.New("count query returned no rows")
	}
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("scanning count: %w", err)
	}
	return n, nil
}
