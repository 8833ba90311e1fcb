package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/berth-go/internal/serialize"
)

const shutdownDurationUnit = time.Millisecond

// NewManifestCommand creates the manifest command.
func NewManifestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "manifest <file>",
		Short:        "Decode and print a shutdown run manifest",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading manifest: %w", err)
			}
			m, err := serialize.DecodeManifest(data)
			if err != nil {
				return fmt.Errorf("decoding manifest: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run: %s .. %s (%s)\n",
				m.StartedAt.Format(time.RFC3339),
				m.FinishedAt.Format(time.RFC3339),
				m.FinishedAt.Sub(m.StartedAt).Round(shutdownDurationUnit),
			)
			fmt.Fprintf(out, "summary: %d succeeded, %d failed\n", m.Succeeded, m.Failed)
			for _, r := range m.Records {
				fmt.Fprintf(out, "  %-20s %-16s strategy=%-6s %s",
					r.Name, r.State, orDash(r.Strategy),
					(time.Duration(r.DurationUS) * time.Microsecond).Round(shutdownDurationUnit),
				)
				if r.BackupPath != "" {
					fmt.Fprintf(out, " backup=%s", r.BackupPath)
				}
				if r.Error != "" {
					fmt.Fprintf(out, " error=%q", r.Error)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
