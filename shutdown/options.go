package shutdown

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Standard errors returned by the shutdown package.
var (
	// ErrInvalidOptions indicates Options validation failed. It is the
	// only error that aborts a run before any record is touched.
	ErrInvalidOptions = errors.New("shutdown: invalid options")

	// ErrIntegrityRisk indicates a step that would have required
	// overwriting a live database file without a verified successful
	// export. The step is refused and the record downgrades to
	// disconnect-only.
	ErrIntegrityRisk = errors.New("shutdown: refusing to replace file without verified export")
)

// DefaultBackupSuffix separates the original file name from the
// timestamp in backup file names.
const DefaultBackupSuffix = ".bak-"

// Options configures a shutdown run.
type Options struct {
	// CreateBackups copies each original file to a timestamped backup
	// before the atomic rename replaces it.
	// OPTIONAL: Defaults to false.
	CreateBackups bool

	// KeepBackups retains backup files after a successful replace.
	// Requires CreateBackups.
	// OPTIONAL: Defaults to false (backups are deleted on success).
	KeepBackups bool

	// CleanupWAL deletes the stale .wal sidecar beside the original
	// file after a successful replace.
	// OPTIONAL: Defaults to false.
	CleanupWAL bool

	// BackupSuffix goes between the original file name and the
	// timestamp in backup names: <original><suffix><timestamp>.
	// OPTIONAL: Defaults to DefaultBackupSuffix.
	BackupSuffix string

	// ExportDir holds the transient export artifacts. Must exist.
	// Note: the final step renames the export file over the original,
	// so ExportDir should be on the same filesystem as the databases.
	// OPTIONAL: Defaults to each record's own directory.
	ExportDir string

	// ManifestPath, when set, receives a machine-readable report of the
	// run (msgpack + zstd, decodable with serialize.DecodeManifest).
	// OPTIONAL: No manifest is written if empty.
	ManifestPath string

	// RemoveFailed unregisters records whose shutdown failed. By
	// default failed records stay registered so callers can inspect
	// their final state.
	// OPTIONAL: Defaults to false.
	RemoveFailed bool

	// Logger for per-step diagnostics.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// Entropy feeds temp-file and attach-alias name generation. Tests
	// inject a deterministic reader.
	// OPTIONAL: Uses crypto/rand if nil.
	Entropy io.Reader

	// Now supplies backup timestamps and durations.
	// OPTIONAL: Uses time.Now if nil.
	Now func() time.Time
}

// withDefaults validates the options and fills in defaults. It never
// mutates the receiver.
func (o Options) withDefaults() (Options, error) {
	if o.KeepBackups && !o.CreateBackups {
		return o, fmt.Errorf("%w: KeepBackups requires CreateBackups", ErrInvalidOptions)
	}
	if o.ExportDir != "" {
		fi, err := os.Stat(o.ExportDir)
		if err != nil {
			return o, fmt.Errorf("%w: export dir %s: %v", ErrInvalidOptions, o.ExportDir, err)
		}
		if !fi.IsDir() {
			return o, fmt.Errorf("%w: export dir %s is not a directory", ErrInvalidOptions, o.ExportDir)
		}
	}
	if o.BackupSuffix == "" {
		o.BackupSuffix = DefaultBackupSuffix
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o, nil
}

// RecordResult is the outcome of one connection record.
type RecordResult struct {
	// Name and Path identify the record.
	Name string
	Path string

	// State is the record's final lifecycle state.
	State string

	// Strategy names the export strategy that succeeded: "export"
	// (EXPORT/IMPORT DATABASE) or "copy" (COPY FROM DATABASE). Empty
	// when no export ran or none succeeded.
	Strategy string

	// BackupPath is the backup file left on disk, if one was kept.
	BackupPath string

	// Err is the failure reason for failed records.
	Err error

	// Duration covers the record's full pipeline.
	Duration time.Duration
}

// Summary aggregates a shutdown run. One failed record never aborts the
// run; callers embedding this in a CLI should map Failed > 0 to a
// non-zero exit code.
type Summary struct {
	Succeeded int
	Failed    int
	Records   []RecordResult
}
