package shutdown

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hugr-lab/berth-go/registry"
	"github.com/hugr-lab/berth-go/sqlgen"
)

// Export strategy names recorded in results and manifests.
const (
	strategyExport = "export"
	strategyCopy   = "copy"
)

// tempExportPath picks the transient database file the export writes to.
// It lives beside the original (or in ExportDir) so the final rename
// stays on one filesystem.
func tempExportPath(rec *registry.Record, exportDir string, entropy io.Reader) (string, error) {
	if entropy == nil {
		entropy = rand.Reader
	}
	u, err := uuid.NewRandomFromReader(entropy)
	if err != nil {
		return "", fmt.Errorf("generating temp file name: %w", err)
	}
	dir := exportDir
	if dir == "" {
		dir = filepath.Dir(rec.Path)
	}
	name := filepath.Base(rec.Path) + ".replace-" + strings.ReplaceAll(u.String(), "-", "")[:12]
	return filepath.Join(dir, name), nil
}

// exportNative runs the engine's own export feature: EXPORT DATABASE
// serializes the live catalog to a directory, then a fresh database at
// tempPath imports it. The export directory is transient and removed
// either way.
func exportNative(ctx context.Context, rec *registry.Record, tempPath string) error {
	dir := tempPath + ".export"
	if _, err := rec.DB.ExecContext(ctx, sqlgen.ExportDatabaseStatement(dir)); err != nil {
		return fmt.Errorf("EXPORT DATABASE: %w", err)
	}
	defer os.RemoveAll(dir)

	tmp, err := sql.Open("duckdb", tempPath)
	if err != nil {
		return fmt.Errorf("opening temp database: %w", err)
	}
	defer tmp.Close()

	if _, err := tmp.ExecContext(ctx, sqlgen.ImportDatabaseStatement(dir)); err != nil {
		return fmt.Errorf("IMPORT DATABASE: %w", err)
	}
	return nil
}

// exportCopy is the fallback for engines where EXPORT DATABASE is
// unavailable or failed: attach the temp file under a random,
// collision-checked alias, copy the live catalog into it wholesale, and
// detach. Everything runs on one pinned session so the attach, the copy
// and the detach all see the same catalog set.
func exportCopy(ctx context.Context, rec *registry.Record, tempPath string, entropy io.Reader, logger *slog.Logger) error {
	conn, err := rec.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("pinning session: %w", err)
	}
	defer conn.Close()

	var src string
	if err := conn.QueryRowContext(ctx, "SELECT current_database()").Scan(&src); err != nil {
		return fmt.Errorf("resolving source catalog: %w", err)
	}

	attached, err := attachedCatalogs(ctx, conn)
	if err != nil {
		return err
	}
	if extra := userCatalogs(attached, src); len(extra) > 0 {
		logger.Warn("multiple catalogs attached; copying the current catalog only",
			"connection", rec.Name,
			"source", src,
			"extra", extra,
		)
	}

	alias, err := sqlgen.RandomAlias(entropy, func(a string) bool {
		_, taken := attached[a]
		return taken
	})
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, sqlgen.AttachStatement(tempPath, alias, false)); err != nil {
		return fmt.Errorf("ATTACH: %w", err)
	}
	if _, err := conn.ExecContext(ctx, sqlgen.CopyFromDatabaseStatement(src, alias)); err != nil {
		// Best effort: leave no alias behind on the live session.
		if _, derr := conn.ExecContext(ctx, sqlgen.DetachStatement(alias)); derr != nil {
			logger.Warn("detach after failed copy failed",
				"connection", rec.Name,
				"alias", alias,
				"error", derr,
			)
		}
		return fmt.Errorf("COPY FROM DATABASE: %w", err)
	}
	if _, err := conn.ExecContext(ctx, sqlgen.DetachStatement(alias)); err != nil {
		return fmt.Errorf("DETACH: %w", err)
	}
	return nil
}

// attachedCatalogs lists the catalog names visible on a session.
func attachedCatalogs(ctx context.Context, conn *sql.Conn) (map[string]struct{}, error) {
	rows, err := conn.QueryContext(ctx, "SELECT database_name FROM duckdb_databases()")
	if err != nil {
		return nil, fmt.Errorf("listing attached catalogs: %w", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("reading catalog name: %w", err)
		}
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing attached catalogs: %w", err)
	}
	return names, nil
}

// userCatalogs filters out the source and the engine's built-in
// catalogs, leaving only unexpected extra attachments.
func userCatalogs(attached map[string]struct{}, src string) []string {
	var extra []string
	for name := range attached {
		switch name {
		case src, "system", "temp":
		default:
			extra = append(extra, name)
		}
	}
	return extra
}

// copyFile duplicates src to dst, preserving the file mode. The write is
// synced before returning so a crash right after backup creation cannot
// leave a hollow backup.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
