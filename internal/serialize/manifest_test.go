package serialize

import (
	"testing"
	"time"
)

func TestManifestRoundTrip(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := &Manifest{
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Succeeded:  2,
		Failed:     1,
		Records: []ManifestRecord{
			{Name: "sales", Path: "/data/sales.db", State: "backup_cleaned", Strategy: "export", DurationUS: 1200},
			{Name: "metrics", Path: "/data/metrics.db", State: "backup_cleaned", Strategy: "copy", DurationUS: 800},
			{Name: "broken", Path: "/data/broken.db", State: "failed", Error: "export failed", DurationUS: 300},
		},
	}

	data, err := EncodeManifest(m)
	if err != nil {
		t.Fatalf("EncodeManifest failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty encoded manifest")
	}

	got, err := DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest failed: %v", err)
	}

	if got.Succeeded != 2 || got.Failed != 1 {
		t.Errorf("counts = %d/%d, want 2/1", got.Succeeded, got.Failed)
	}
	if len(got.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(got.Records))
	}
	if got.Records[0].Name != "sales" || got.Records[0].Strategy != "export" {
		t.Errorf("record[0] = %+v", got.Records[0])
	}
	if got.Records[2].Error != "export failed" {
		t.Errorf("record[2].Error = %q", got.Records[2].Error)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
}

func TestDecodeManifestRejectsGarbage(t *testing.T) {
	if _, err := DecodeManifest(nil); err == nil {
		t.Error("expected error for empty data")
	}
	if _, err := DecodeManifest([]byte("not a manifest")); err == nil {
		t.Error("expected error for corrupt data")
	}
}

func TestEncodeManifestNil(t *testing.T) {
	if _, err := EncodeManifest(nil); err == nil {
		t.Error("expected error for nil manifest")
	}
}
