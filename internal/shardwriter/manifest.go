package shardwriter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/s2"
)

// ManifestField is one column entry of a manifest's schema block.
type ManifestField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ManifestSchema is the schema block recorded in a manifest (spec §3).
type ManifestSchema struct {
	Fields []ManifestField `json:"fields"`
}

// ManifestFile is one shard file's record inside a manifest.
type ManifestFile struct {
	File      string `json:"file"`
	Rows      int64  `json:"rows"`
	SizeBytes int64  `json:"size_bytes"`
	Hash      string `json:"hash"`
}

// Manifest is the per-table manifest document written by finalize (spec
// §3, §4.E, §6).
type Manifest struct {
	TableName string         `json:"table_name"`
	Version   int            `json:"version"`
	CreatedAt string         `json:"created_at"`
	TotalRows int64          `json:"total_rows"`
	Files     []ManifestFile `json:"files"`
	Schema    ManifestSchema `json:"schema"`
}

const manifestVersion = 1

// writeManifest writes manifest.json (2-space indented, per spec §6) into
// dir, plus an s2-compressed ".s2" sidecar that ReadManifest loads in
// preference to re-parsing the JSON document.
func writeManifest(dir string, m Manifest) error {
	if m.Files == nil {
		m.Files = []ManifestFile{}
	}
	if m.Schema.Fields == nil {
		m.Schema.Fields = []ManifestField{}
	}

	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("shardwriter: marshal manifest: %w", err)
	}

	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("shardwriter: write manifest: %w", err)
	}

	cachePath := filepath.Join(dir, "manifest.json.s2")
	if err := os.WriteFile(cachePath, s2.Encode(nil, body), 0o644); err != nil {
		return fmt.Errorf("shardwriter: write manifest cache: %w", err)
	}
	return nil
}

// readManifestCache loads the s2-compressed manifest sidecar if present and
// valid, falling back to the caller re-reading manifest.json on any error.
func readManifestCache(dir string) (*Manifest, error) {
	cachePath := filepath.Join(dir, "manifest.json.s2")
	compressed, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	body, err := s2.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("shardwriter: decode manifest cache: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("shardwriter: unmarshal manifest cache: %w", err)
	}
	return &m, nil
}

// ReadManifest loads a table's manifest from dir, preferring the
// s2-compressed sidecar cache over re-parsing the JSON document, and
// falling back to manifest.json whenever the cache is missing or cannot be
// decoded. A sidecar that decodes is used as is; it is not compared against
// manifest.json.
func ReadManifest(dir string) (Manifest, error) {
	if m, err := readManifestCache(dir); err == nil {
		return *m, nil
	}

	path := filepath.Join(dir, "manifest.json")
	body, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("shardwriter: read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return Manifest{}, fmt.Errorf("shardwriter: unmarshal manifest: %w", err)
	}
	return m, nil
}

// VerifyFile recomputes file's content hash and size against its recorded
// ManifestFile entry, returning an error describing the mismatch if the
// shard has been truncated or corrupted since it was written.
func VerifyFile(dir string, file ManifestFile) error {
	hash, size, err := hashFile(filepath.Join(dir, file.File))
	if err != nil {
		return err
	}
	if hash != file.Hash {
		return fmt.Errorf("shardwriter: %s: hash mismatch: manifest=%s actual=%s", file.File, file.Hash, hash)
	}
	if size != file.SizeBytes {
		return fmt.Errorf("shardwriter: %s: size mismatch: manifest=%d actual=%d", file.File, file.SizeBytes, size)
	}
	return nil
}
