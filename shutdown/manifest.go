package shutdown

import (
	"fmt"
	"os"
	"time"

	"github.com/hugr-lab/berth-go/internal/serialize"
)

// writeManifest records the run as a compact machine-readable report.
func writeManifest(opts Options, started time.Time, sum Summary) error {
	m := &serialize.Manifest{
		StartedAt:  started,
		FinishedAt: opts.Now(),
		Succeeded:  sum.Succeeded,
		Failed:     sum.Failed,
		Records:    make([]serialize.ManifestRecord, 0, len(sum.Records)),
	}
	for _, r := range sum.Records {
		mr := serialize.ManifestRecord{
			Name:       r.Name,
			Path:       r.Path,
			State:      r.State,
			Strategy:   r.Strategy,
			BackupPath: r.BackupPath,
			DurationUS: r.Duration.Microseconds(),
		}
		if r.Err != nil {
			mr.Error = r.Err.Error()
		}
		m.Records = append(m.Records, mr)
	}

	data, err := serialize.EncodeManifest(m)
	if err != nil {
		return fmt.Errorf("shutdown: encoding manifest: %w", err)
	}
	if err := os.WriteFile(opts.ManifestPath, data, 0o644); err != nil {
		return fmt.Errorf("shutdown: writing manifest %s: %w", opts.ManifestPath, err)
	}
	return nil
}
