package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbs.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
databases:
  - name: sales
    path: /data/sales.db
  - name: archive
    path: /data/archive.db
    read_only: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.Databases) != 2 {
		t.Fatalf("databases = %d, want 2", len(cfg.Databases))
	}
	if cfg.Databases[0].Name != "sales" || cfg.Databases[0].ReadOnly {
		t.Errorf("first database = %+v", cfg.Databases[0])
	}
	if !cfg.Databases[1].ReadOnly {
		t.Error("read_only flag not parsed")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty list", `databases: []`, "no databases"},
		{"missing name", "databases:\n  - path: /x.db", "has no name"},
		{"missing path", "databases:\n  - name: x", "has no path"},
		{"duplicate name", "databases:\n  - name: x\n    path: /a.db\n  - name: x\n    path: /b.db", "duplicate"},
		{"bad yaml", `databases: [`, "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
