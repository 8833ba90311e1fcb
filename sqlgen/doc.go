// Package sqlgen builds and compiles predicate expressions for DuckDB.
//
// Predicates are immutable trees constructed with Eq, Lt, In, And and the
// other constructors. The same tree serves two execution paths:
//   - Compile translates it to a parameterized SQL fragment for push-down
//     into a native DuckDB connection
//   - Eval applies it to an in-memory row for sources that have no SQL
//     engine behind them
//
// # Compiling to SQL
//
//	p := sqlgen.And(
//	    sqlgen.Eq("region", "eu-west"),
//	    sqlgen.Gt("total", 100),
//	)
//	frag, args, err := sqlgen.Compile(p)
//	// frag = `(region = ? AND total > ?)`, args = ["eu-west", 100]
//
// Values are always bound as statement arguments, never interpolated into
// the SQL text. Geometry values (orb.Geometry) compile to
// ST_GeomFromText(?) with the WKT form bound as the argument.
//
// # In-memory evaluation
//
//	keep, err := sqlgen.Eval(p, func(col string) (any, bool) {
//	    v, ok := row[col]
//	    return v, ok
//	})
//
// Eval follows SQL comparison semantics: a comparison against a missing
// value (NULL) is not satisfied, an empty IN list matches nothing.
//
// The package also provides the statement templates used for scans and for
// database maintenance (ATTACH, COPY FROM DATABASE, EXPORT DATABASE), and
// collision-checked alias generation for temporary attachments.
package sqlgen
