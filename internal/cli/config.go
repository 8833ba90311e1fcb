package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config lists the database files a compact run covers.
type Config struct {
	Databases []DatabaseConfig `yaml:"databases"`
}

// DatabaseConfig describes one database file.
type DatabaseConfig struct {
	// Name identifies the connection in logs and manifests.
	Name string `yaml:"name"`

	// Path is the database file.
	Path string `yaml:"path"`

	// ReadOnly connections are closed but their files never rewritten.
	ReadOnly bool `yaml:"read_only"`
}

// LoadConfig reads and validates a compact config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("config %s lists no databases", path)
	}
	seen := make(map[string]struct{}, len(cfg.Databases))
	for i, db := range cfg.Databases {
		if db.Name == "" {
			return nil, fmt.Errorf("config %s: database %d has no name", path, i)
		}
		if db.Path == "" {
			return nil, fmt.Errorf("config %s: database %q has no path", path, db.Name)
		}
		if _, dup := seen[db.Name]; dup {
			return nil, fmt.Errorf("config %s: duplicate database name %q", path, db.Name)
		}
		seen[db.Name] = struct{}{}
	}
	return &cfg, nil
}
