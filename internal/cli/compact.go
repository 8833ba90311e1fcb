package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/berth-go/registry"
	"github.com/hugr-lab/berth-go/shutdown"
)

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		configPath   string
		backups      bool
		keepBackups  bool
		cleanupWAL   bool
		exportDir    string
		manifestPath string
		removeFailed bool
	)

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Safely rewrite DuckDB files through the shutdown pipeline",
		Long: `Open every database listed in the config file, register it, and run
the atomic export-backup-replace shutdown. The effect on each writable
file is a safe compaction: the WAL is folded in and the file rewritten,
with the original replaced only after a verified successful export.

Exits non-zero when any database failed; failed files are left
byte-for-byte unchanged.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			reg := registry.New()
			for _, db := range cfg.Databases {
				rec, err := registry.Open(ctx, db.Name, db.Path, db.ReadOnly)
				if err != nil {
					return err
				}
				if err := reg.Register(rec); err != nil {
					rec.DB.Close()
					return err
				}
				slog.Debug("registered database",
					"name", db.Name,
					"path", db.Path,
					"read_only", db.ReadOnly,
					"engine", rec.Caps.Version,
				)
			}

			sum, err := shutdown.All(ctx, reg, shutdown.Options{
				CreateBackups: backups,
				KeepBackups:   keepBackups,
				CleanupWAL:    cleanupWAL,
				ExportDir:     exportDir,
				ManifestPath:  manifestPath,
				RemoveFailed:  removeFailed,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range sum.Records {
				if r.Err != nil {
					fmt.Fprintf(out, "FAIL %-20s %-16s %v\n", r.Name, r.State, r.Err)
					continue
				}
				fmt.Fprintf(out, "ok   %-20s %-16s %s\n", r.Name, r.State, r.Duration.Round(shutdownDurationUnit))
			}
			fmt.Fprintf(out, "%d succeeded, %d failed\n", sum.Succeeded, sum.Failed)

			if sum.Failed > 0 {
				return fmt.Errorf("%d database(s) failed to shut down safely", sum.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML file listing the databases (required)")
	cmd.Flags().BoolVar(&backups, "backups", false, "copy each original to a timestamped backup before replacing it")
	cmd.Flags().BoolVar(&keepBackups, "keep-backups", false, "retain backups after a successful replace")
	cmd.Flags().BoolVar(&cleanupWAL, "wal", false, "delete stale .wal sidecars after a successful replace")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for transient export files (default: beside each database)")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "write a machine-readable run manifest to this file")
	cmd.Flags().BoolVar(&removeFailed, "remove-failed", false, "unregister databases whose shutdown failed")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
