// Package serialize encodes shutdown run manifests: MessagePack for the
// structure, ZStandard for the bytes on disk.
package serialize

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Manifest is the machine-readable report of one shutdown run.
type Manifest struct {
	StartedAt  time.Time        `msgpack:"started_at"`
	FinishedAt time.Time        `msgpack:"finished_at"`
	Succeeded  int              `msgpack:"succeeded"`
	Failed     int              `msgpack:"failed"`
	Records    []ManifestRecord `msgpack:"records"`
}

// ManifestRecord is the outcome of one connection record.
type ManifestRecord struct {
	Name       string `msgpack:"name"`
	Path       string `msgpack:"path,omitempty"`
	State      string `msgpack:"state"`
	Strategy   string `msgpack:"strategy,omitempty"`
	BackupPath string `msgpack:"backup_path,omitempty"`
	Error      string `msgpack:"error,omitempty"`
	DurationUS int64  `msgpack:"duration_us"`
}

// EncodeManifest serializes and compresses a manifest.
func EncodeManifest(m *Manifest) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("nil manifest")
	}

	data, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	compressor, err := NewCompressor()
	if err != nil {
		return nil, err
	}
	defer compressor.Close()

	return compressor.Compress(data)
}

// DecodeManifest decompresses and deserializes a manifest.
func DecodeManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty manifest data")
	}

	decompressor, err := NewDecompressor()
	if err != nil {
		return nil, err
	}
	defer decompressor.Close()

	raw, err := decompressor.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress manifest: %w", err)
	}

	var m Manifest
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}
