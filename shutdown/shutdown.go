// Package shutdown drives registered embedded-database connections
// through an atomic export-backup-replace pipeline.
//
// Each record advances through an explicit state machine: export the
// live catalog to a temp file, release the handle, optionally back the
// original up, then swap the temp file in with a single atomic rename.
// The original file is rewritten only after a verified successful
// export; if every export strategy fails the file is left byte-for-byte
// unchanged and the connection is merely closed. Records are processed
// strictly one at a time, so at most one duplicate file is in flight
// and a crash implicates at most one record.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hugr-lab/berth-go/registry"
)

// All shuts every registered connection down, one record fully to
// completion before the next begins. It returns ErrInvalidOptions before
// touching any record if the options are unusable; every other failure
// is isolated to its record and reported in the summary.
//
// Successful records are unregistered. Failed records stay registered
// with their final state unless opts.RemoveFailed is set. Context
// cancellation stops the run between records — records not yet started
// are left untouched and are not counted as failed.
func All(ctx context.Context, reg *registry.Registry, opts Options) (Summary, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return Summary{}, err
	}

	started := opts.Now()
	var sum Summary
	for _, rec := range reg.All() {
		if ctx.Err() != nil {
			opts.Logger.Warn("shutdown run cancelled; remaining connections left untouched",
				"processed", len(sum.Records),
				"remaining", reg.Len()-len(sum.Records),
			)
			break
		}

		res := processRecord(ctx, rec, opts)
		sum.Records = append(sum.Records, res)
		if res.Err != nil {
			sum.Failed++
			opts.Logger.Warn("connection shutdown failed",
				"connection", res.Name,
				"state", res.State,
				"error", res.Err,
			)
			if opts.RemoveFailed {
				_ = reg.Unregister(rec.Name)
			}
			continue
		}
		sum.Succeeded++
		opts.Logger.Info("connection shut down",
			"connection", res.Name,
			"state", res.State,
			"strategy", res.Strategy,
			"duration", res.Duration,
		)
		_ = reg.Unregister(rec.Name)
	}

	if opts.ManifestPath != "" {
		if err := writeManifest(opts, started, sum); err != nil {
			return sum, err
		}
	}
	return sum, ctx.Err()
}

// processRecord runs the full pipeline for one record. It never returns
// early with the original file in an indeterminate state: every failure
// path either precedes the rename or leaves the rename unexecuted.
func processRecord(ctx context.Context, rec *registry.Record, opts Options) (res RecordResult) {
	start := opts.Now()
	res = RecordResult{Name: rec.Name, Path: rec.Path}
	mach := newMachine(rec, opts.Logger)
	defer func() {
		res.State = mach.current()
		res.Duration = opts.Now().Sub(start)
		if res.Err == nil {
			res.Err = mach.err()
		}
	}()

	// Read-only records and in-memory databases have nothing to
	// replace: release the handle and stop, file untouched.
	if rec.ReadOnly || rec.Path == "" {
		if err := rec.DB.Close(); err != nil {
			opts.Logger.Warn("closing connection", "connection", rec.Name, "error", err)
		}
		mach.to(ctx, eventDisconnect)
		return res
	}

	tempPath, err := tempExportPath(rec, opts.ExportDir, opts.Entropy)
	if err != nil {
		res.Err = err
		mach.to(ctx, eventDisconnect)
		closeQuietly(rec, opts)
		return res
	}

	exported := false
	var exportErrs error
	if rec.Caps.NativeExport || rec.Caps.DatabaseCopy {
		mach.to(ctx, eventAttemptExport)
	}
	if rec.Caps.NativeExport {
		if err := exportNative(ctx, rec, tempPath); err != nil {
			opts.Logger.Warn("native export failed, trying catalog copy",
				"connection", rec.Name,
				"error", err,
			)
			exportErrs = errors.Join(exportErrs, err)
			mach.to(ctx, eventExportFail)
			removeIfExists(tempPath)
		} else {
			exported = true
			res.Strategy = strategyExport
		}
	}
	if !exported && rec.Caps.DatabaseCopy {
		if err := exportCopy(ctx, rec, tempPath, opts.Entropy, opts.Logger); err != nil {
			opts.Logger.Warn("catalog copy failed",
				"connection", rec.Name,
				"error", err,
			)
			exportErrs = errors.Join(exportErrs, err)
			if mach.current() == StateExportAttempted {
				mach.to(ctx, eventExportFail)
			}
			removeIfExists(tempPath)
		} else {
			exported = true
			res.Strategy = strategyCopy
		}
	}

	if !exported {
		// Terminal partial failure: the connection closes, but the
		// on-disk file stays exactly as the engine last left it.
		res.Err = exportErrs
		if res.Err == nil {
			res.Err = fmt.Errorf("no export strategy available (engine %q)", rec.Caps.Version)
		}
		closeQuietly(rec, opts)
		mach.to(ctx, eventDisconnect)
		return res
	}
	mach.to(ctx, eventExportOK)

	// Release the handle before touching the file. A handle that will
	// not close means the engine may still write: replacing the file
	// underneath it is an integrity risk, so the temp file is discarded
	// and the original kept.
	if err := rec.DB.Close(); err != nil {
		res.Err = fmt.Errorf("%w: releasing handle: %v", ErrIntegrityRisk, err)
		mach.to(ctx, eventDisconnect)
		mach.to(ctx, eventFail)
		removeIfExists(tempPath)
		return res
	}
	mach.to(ctx, eventDisconnect)

	if fi, err := os.Stat(tempPath); err != nil || fi.Size() == 0 {
		res.Err = fmt.Errorf("%w: export file %s missing or empty", ErrIntegrityRisk, tempPath)
		mach.to(ctx, eventFail)
		removeIfExists(tempPath)
		return res
	}

	if opts.CreateBackups {
		backupPath := rec.Path + opts.BackupSuffix + opts.Now().Format("20060102T150405")
		if err := copyFile(rec.Path, backupPath); err != nil {
			res.Err = fmt.Errorf("creating backup: %w", err)
			mach.to(ctx, eventFail)
			removeIfExists(tempPath)
			return res
		}
		res.BackupPath = backupPath
	}

	// The rename is the only moment the original path's identity
	// changes, and it is non-interruptible: cancellation is not checked
	// between here and the state advance.
	if err := os.Rename(tempPath, rec.Path); err != nil {
		res.Err = fmt.Errorf("replacing %s: %w", rec.Path, err)
		mach.to(ctx, eventFail)
		removeIfExists(tempPath)
		return res
	}
	mach.to(ctx, eventReplace)

	if res.BackupPath != "" && !opts.KeepBackups {
		if err := os.Remove(res.BackupPath); err != nil {
			opts.Logger.Warn("removing backup", "connection", rec.Name, "path", res.BackupPath, "error", err)
		}
		res.BackupPath = ""
	}
	if opts.CleanupWAL {
		removeIfExists(rec.Path + ".wal")
	}
	mach.to(ctx, eventCleanup)
	return res
}

func closeQuietly(rec *registry.Record, opts Options) {
	if err := rec.DB.Close(); err != nil {
		opts.Logger.Warn("closing connection", "connection", rec.Name, "error", err)
	}
}

// removeIfExists deletes a transient artifact. Leftovers are harmless
// (the next run picks a fresh name), so errors are ignored.
func removeIfExists(path string) {
	_ = os.Remove(path)
}
