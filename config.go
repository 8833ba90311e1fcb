package berth

import (
	"errors"
	"log/slog"
)

// AccessOptions contains configuration for a single Access call.
type AccessOptions struct {
	// Query runs as a parameterized statement when the connection is
	// native, taking precedence over name-based table lookup.
	// OPTIONAL: If empty, the dataset name is resolved instead.
	Query string

	// Args are the bind arguments for Query. Values are passed to the
	// driver, never interpolated into the statement text.
	// OPTIONAL: Ignored when Query is empty.
	Args []any

	// Logger for diagnostics when an access degrades to an empty result.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger
}

// Standard errors returned by the berth package.
var (
	// ErrNotFound indicates a dataset name absent in every recognized
	// shape of the connection it was looked up on.
	ErrNotFound = errors.New("dataset not found")

	// ErrInvalidQuery indicates a raw query that cannot run on the
	// connection it was opened against.
	ErrInvalidQuery = errors.New("invalid query for connection")
)
