package shutdown

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/berth-go/internal/serialize"
	"github.com/hugr-lab/berth-go/registry"
)

// seedFileDB creates a database file with table t holding five rows and
// returns a registered record for it.
func seedFileDB(t *testing.T, reg *registry.Registry, name, path string) *registry.Record {
	t.Helper()
	ctx := context.Background()

	rec, err := registry.Open(ctx, name, path, false)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	stmts := []string{
		`CREATE TABLE t (id INTEGER, label VARCHAR)`,
		`INSERT INTO t VALUES (1,'a'), (2,'b'), (3,'c'), (4,'d'), (5,'e')`,
		`CHECKPOINT`,
	}
	for _, s := range stmts {
		if _, err := rec.DB.Exec(s); err != nil {
			t.Fatalf("seeding %s: %v", path, err)
		}
	}
	if err := reg.Register(rec); err != nil {
		t.Fatalf("registering %s: %v", name, err)
	}
	return rec
}

func fileHash(t *testing.T, path string) [32]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return sha256.Sum256(data)
}

// rowCount reopens a database file and counts table t.
func rowCount(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("duckdb", path)
	if err != nil {
		t.Fatalf("reopening %s: %v", path, err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("counting rows in %s: %v", path, err)
	}
	return n
}

func TestShutdownReplacesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.db")
	reg := registry.New()
	seedFileDB(t, reg, "raw", path)

	// A stray WAL sidecar from an earlier crash.
	wal := path + ".wal"
	if err := os.WriteFile(wal, []byte("stale"), 0o644); err != nil {
		t.Fatalf("writing wal: %v", err)
	}

	sum, err := All(context.Background(), reg, Options{CleanupWAL: true})
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if sum.Succeeded != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Records[0].State != StateBackupCleaned {
		t.Errorf("final state = %s, want %s", sum.Records[0].State, StateBackupCleaned)
	}
	if reg.Len() != 0 {
		t.Error("successful record still registered")
	}

	// The replaced file holds the same committed data.
	if n := rowCount(t, path); n != 5 {
		t.Errorf("reopened row count = %d, want 5", n)
	}
	if _, err := os.Stat(wal); !os.IsNotExist(err) {
		t.Error("stale wal sidecar survived cleanup")
	}

	// No transient export artifacts left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("listing %s: %v", dir, err)
	}
	for _, e := range entries {
		if e.Name() != "raw.db" {
			t.Errorf("leftover artifact %s", e.Name())
		}
	}
}

func TestShutdownFallbackStrategy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fb.db")
	reg := registry.New()
	rec := seedFileDB(t, reg, "fb", path)

	// Disable the primary strategy so the run exercises the
	// ATTACH / COPY FROM DATABASE / DETACH path.
	rec.Caps.NativeExport = false

	sum, err := All(context.Background(), reg, Options{})
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if sum.Succeeded != 1 {
		t.Fatalf("summary = %+v (err %v)", sum, sum.Records[0].Err)
	}
	if sum.Records[0].Strategy != strategyCopy {
		t.Errorf("strategy = %q, want %q", sum.Records[0].Strategy, strategyCopy)
	}
	if n := rowCount(t, path); n != 5 {
		t.Errorf("reopened row count = %d, want 5", n)
	}
}

func TestShutdownReadOnlyUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ro.db")
	ctx := context.Background()

	// Seed and close; read-only connections cannot create databases.
	seedReg := registry.New()
	seedRec := seedFileDB(t, seedReg, "seed", path)
	seedRec.DB.Close()

	before := fileHash(t, path)

	reg := registry.New()
	rec, err := registry.Open(ctx, "ro", path, true)
	if err != nil {
		t.Fatalf("opening read-only: %v", err)
	}
	if err := reg.Register(rec); err != nil {
		t.Fatalf("registering: %v", err)
	}

	sum, err := All(ctx, reg, Options{})
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if sum.Succeeded != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Records[0].State != StateDisconnected {
		t.Errorf("final state = %s, want %s", sum.Records[0].State, StateDisconnected)
	}
	if fileHash(t, path) != before {
		t.Error("read-only file changed during shutdown")
	}
}

func TestShutdownExportFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stuck.db")
	reg := registry.New()
	rec := seedFileDB(t, reg, "stuck", path)
	if _, err := rec.DB.Exec(`CHECKPOINT`); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	before := fileHash(t, path)

	// No strategy available: the engine "supports" nothing.
	rec.Caps.NativeExport = false
	rec.Caps.DatabaseCopy = false

	sum, err := All(context.Background(), reg, Options{})
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if sum.Failed != 1 || sum.Succeeded != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Records[0].State != StateDisconnected {
		t.Errorf("final state = %s, want %s", sum.Records[0].State, StateDisconnected)
	}
	if sum.Records[0].Err == nil {
		t.Error("failed record carries no error")
	}

	// The original file is byte-for-byte unchanged.
	if fileHash(t, path) != before {
		t.Error("original file changed after failed export")
	}
	// Failed records stay registered for inspection.
	if reg.Len() != 1 {
		t.Error("failed record was unregistered")
	}
}

func TestShutdownRemoveFailed(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New()
	rec := seedFileDB(t, reg, "gone", filepath.Join(dir, "gone.db"))
	rec.Caps.NativeExport = false
	rec.Caps.DatabaseCopy = false

	if _, err := All(context.Background(), reg, Options{RemoveFailed: true}); err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if reg.Len() != 0 {
		t.Error("RemoveFailed left the failed record registered")
	}
}

func TestShutdownBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.db")
	reg := registry.New()
	seedFileDB(t, reg, "b", path)

	sum, err := All(context.Background(), reg, Options{
		CreateBackups: true,
		KeepBackups:   true,
		BackupSuffix:  ".backup-",
	})
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if sum.Succeeded != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	backup := sum.Records[0].BackupPath
	if backup == "" {
		t.Fatal("no backup path reported")
	}
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	// The backup is the pre-replace original and holds the same table.
	if n := rowCount(t, backup); n != 5 {
		t.Errorf("backup row count = %d, want 5", n)
	}
}

func TestShutdownBackupsDeletedByDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nb.db")
	reg := registry.New()
	seedFileDB(t, reg, "nb", path)

	sum, err := All(context.Background(), reg, Options{CreateBackups: true})
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if sum.Records[0].BackupPath != "" {
		t.Error("deleted backup still reported")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("listing %s: %v", dir, err)
	}
	for _, e := range entries {
		if e.Name() != "nb.db" {
			t.Errorf("leftover artifact %s", e.Name())
		}
	}
}

func TestShutdownManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "run.manifest")
	reg := registry.New()
	seedFileDB(t, reg, "m1", filepath.Join(dir, "m1.db"))
	failing := seedFileDB(t, reg, "m2", filepath.Join(dir, "m2.db"))
	failing.Caps.NativeExport = false
	failing.Caps.DatabaseCopy = false

	if _, err := All(context.Background(), reg, Options{ManifestPath: manifest}); err != nil {
		t.Fatalf("All failed: %v", err)
	}

	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	m, err := serialize.DecodeManifest(data)
	if err != nil {
		t.Fatalf("decoding manifest: %v", err)
	}
	if m.Succeeded != 1 || m.Failed != 1 || len(m.Records) != 2 {
		t.Errorf("manifest = %+v", m)
	}
	if m.Records[1].Error == "" {
		t.Error("failed record has no error in manifest")
	}
}

func TestShutdownIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New()
	// Name order decides processing order; the failing record goes
	// first and must not block the second.
	bad := seedFileDB(t, reg, "a_bad", filepath.Join(dir, "bad.db"))
	bad.Caps.NativeExport = false
	bad.Caps.DatabaseCopy = false
	seedFileDB(t, reg, "b_good", filepath.Join(dir, "good.db"))

	sum, err := All(context.Background(), reg, Options{})
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if sum.Failed != 1 || sum.Succeeded != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestShutdownCancelledBetweenRecords(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New()
	rec := seedFileDB(t, reg, "c", filepath.Join(dir, "c.db"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := All(ctx, reg, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	// Untouched, not failed: the record never started.
	if len(sum.Records) != 0 || sum.Failed != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if reg.Len() != 1 {
		t.Error("unprocessed record was unregistered")
	}
	rec.DB.Close()
}

func TestShutdownInvalidOptions(t *testing.T) {
	reg := registry.New()

	_, err := All(context.Background(), reg, Options{KeepBackups: true})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("KeepBackups without CreateBackups: err = %v, want ErrInvalidOptions", err)
	}

	_, err = All(context.Background(), reg, Options{ExportDir: "/no/such/dir"})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("missing export dir: err = %v, want ErrInvalidOptions", err)
	}
}

func TestShutdownExportDir(t *testing.T) {
	dir := t.TempDir()
	exportDir := filepath.Join(dir, "exports")
	if err := os.Mkdir(exportDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "e.db")
	reg := registry.New()
	seedFileDB(t, reg, "e", path)

	sum, err := All(context.Background(), reg, Options{ExportDir: exportDir})
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if sum.Succeeded != 1 {
		t.Fatalf("summary = %+v (err %v)", sum, sum.Records[0].Err)
	}
	if n := rowCount(t, path); n != 5 {
		t.Errorf("reopened row count = %d, want 5", n)
	}

	entries, err := os.ReadDir(exportDir)
	if err != nil {
		t.Fatalf("listing export dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("export dir not empty after run: %v", entries)
	}
}
