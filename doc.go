// Package berth provides a connection-shape-agnostic data access layer
// and a crash-safe shutdown pipeline for embedded DuckDB databases.
//
// The berth package lets downstream consumers read datasets without
// branching on what kind of backing store they were handed by:
//   - Classifying any connection value once into a fixed set of shapes
//     (native SQL engine, name container, producer, direct table, scalars)
//   - Composing filters and projections lazily on a persistent reference
//     and pushing them down to SQL backends as a single statement
//   - Providing total accessor functions that degrade to a diagnostic
//     empty result instead of failing
//   - Driving registered database files through an atomic
//     export-backup-replace shutdown that never corrupts committed data
//
// # Quick Start
//
// Read the same dataset from a database and from plain in-process data:
//
//	package main
//
//	import (
//	    "context"
//	    "database/sql"
//	    "fmt"
//
//	    _ "github.com/duckdb/duckdb-go/v2"
//
//	    "github.com/hugr-lab/berth-go"
//	    "github.com/hugr-lab/berth-go/sqlgen"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    db, _ := sql.Open("duckdb", "analytics.db")
//	    defer db.Close()
//
//	    // Native connection: filters compile into one SQL statement.
//	    ref, _ := berth.Open(db, "sales")
//	    recent := ref.Where(sqlgen.Ge("year", 2024)).Select("region", "amount")
//	    tbl := recent.Materialize(ctx)
//	    fmt.Println(tbl.NumRows())
//
//	    // Container connection: the same call shape, evaluated in memory.
//	    conn := map[string]any{"sales": []float64{1.5, 2.5, 3.5}}
//	    tbl = berth.Access(ctx, conn, "sales", nil)
//	    fmt.Println(tbl.NumRows())
//	}
//
// # Architecture
//
// The package follows a lazy-composition design:
//
//   - source.Classify: fixes a connection's kind at entry, once
//   - Ref: persistent lazy reference; Where/Select return new references
//   - Access: the single eager boundary — open, then materialize
//   - SafeRowCount: total cardinality query with COUNT(*) push-down
//   - registry.Registry: explicit set of live native connections
//   - shutdown.All: per-connection export → disconnect → backup →
//     atomic-rename pipeline
//
// Nothing touches a connection until Materialize, Count or Access runs;
// everything before that point is pure composition.
//
// # Failure Behavior
//
// Access and SafeRowCount never return errors and never panic. A name
// that resolves nowhere, a connection of unknown shape, a failed query
// or a panicking user producer all come back as table.Empty with the
// reason recorded, so callers render an empty dataset instead of
// crashing. Errors below that boundary stay ordinary Go errors.
//
// # Shutdown Safety
//
// shutdown.All rewrites a database file only after a verified successful
// export to a temporary file, and the switch to the new file is a single
// atomic rename. If every export strategy fails, the original file is
// left byte-for-byte unchanged and the connection is merely closed.
// Failures are isolated per connection; one bad database never blocks
// the rest of the run.
//
// # Logging
//
// The package uses log/slog for all internal logging. Functions accept
// an optional *slog.Logger and fall back to slog.Default(), so embedding
// applications keep control of handlers and levels.
//
// # Context Cancellation
//
// Materialization against a native backend respects ctx.Done() through
// the driver. The shutdown pipeline checks for cancellation between
// connections; it never interrupts a connection mid-pipeline, and the
// atomic rename itself is non-interruptible.
package berth
