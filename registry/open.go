package registry

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Open opens a DuckDB database file, probes its capabilities and returns
// a record ready to register. An empty path opens an in-memory database.
func Open(ctx context.Context, name, path string, readOnly bool) (*Record, error) {
	dsn := path
	if readOnly && path != "" {
		dsn += "?access_mode=read_only"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: opening %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: connecting to %s: %w", path, err)
	}

	caps, err := DetectCapabilities(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Record{
		Name:     name,
		DB:       db,
		Path:     path,
		ReadOnly: readOnly,
		Caps:     caps,
	}, nil
}
