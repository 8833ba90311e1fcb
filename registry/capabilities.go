package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hugr-lab/berth-go/source"
)

// Capabilities describes what the engine behind a connection supports.
// Shutdown strategies gate on these instead of probing mid-run.
type Capabilities struct {
	// NativeExport is true when EXPORT DATABASE is available.
	NativeExport bool

	// DatabaseCopy is true when COPY FROM DATABASE is available
	// (DuckDB 0.10 and later).
	DatabaseCopy bool

	// Version is the engine version string as reported by version().
	Version string
}

// DetectCapabilities probes the engine once. A probe failure returns an
// error rather than guessing; callers decide whether to proceed with
// zero capabilities.
func DetectCapabilities(ctx context.Context, q source.Querier) (Capabilities, error) {
	rows, err := q.QueryContext(ctx, "SELECT version()")
	if err != nil {
		return Capabilities{}, fmt.Errorf("registry: probing engine version: %w", err)
	}
	defer rows.Close()

	var version string
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Capabilities{}, fmt.Errorf("registry: probing engine version: %w", err)
		}
		return Capabilities{}, fmt.Errorf("registry: version() returned no rows")
	}
	if err := rows.Scan(&version); err != nil {
		return Capabilities{}, fmt.Errorf("registry: reading engine version: %w", err)
	}

	caps := Capabilities{Version: version, NativeExport: true}
	major, minor, ok := parseVersion(version)
	if ok {
		caps.DatabaseCopy = major > 0 || minor >= 10
	}
	return caps, nil
}

// parseVersion extracts major and minor from strings like "v1.4.1" or
// "v0.10.0-dev1234".
func parseVersion(s string) (major, minor int, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
