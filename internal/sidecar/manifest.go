package sidecar

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// manifestFileName is the single manifest file at the sidecar root.
const manifestFileName = "manifest.json"

// manifestOnDisk is the JSON wire shape; unlike the per-file binary
// sidecar format, the manifest is small and human-inspectable, so it is
// JSON rather than the packed binary layout.
type manifestOnDisk struct {
	SchemaVersion  uint32                `json:"schema_version"`
	EmbeddingModel string                `json:"embedding_model"`
	EmbeddingDim   int                   `json:"embedding_dim"`
	TokenizerName  string                `json:"tokenizer_name"`
	Files          map[string]FileRecord `json:"files"`
	UpdatedAtUnix  int64                 `json:"updated_at_unix"`
}

// LoadManifest reads the manifest at sidecarRoot, or returns (nil, nil)
// if none exists yet — the caller starts with an empty one.
func LoadManifest(sidecarRoot string) (*Manifest, error) {
	path := filepath.Join(sidecarRoot, manifestFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, coreerr.IoError(path, err)
	}

	var onDisk manifestOnDisk
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return nil, coreerr.SchemaIncompatible(path, 0, SchemaVersion)
	}
	if onDisk.SchemaVersion != SchemaVersion {
		return nil, coreerr.SchemaIncompatible(path, onDisk.SchemaVersion, SchemaVersion)
	}

	return &Manifest{
		SchemaVersion:  onDisk.SchemaVersion,
		EmbeddingModel: onDisk.EmbeddingModel,
		EmbeddingDim:   onDisk.EmbeddingDim,
		TokenizerName:  onDisk.TokenizerName,
		Files:          onDisk.Files,
		UpdatedAtUnix:  onDisk.UpdatedAtUnix,
	}, nil
}

// SaveManifest writes m atomically (temp file + fsync + rename, via
// github.com/natefinch/atomic) so a crash mid-write never leaves a
// partially-written manifest.
func SaveManifest(sidecarRoot string, m *Manifest) error {
	if err := os.MkdirAll(sidecarRoot, 0755); err != nil {
		return coreerr.IoError(sidecarRoot, err)
	}

	onDisk := manifestOnDisk{
		SchemaVersion:  SchemaVersion,
		EmbeddingModel: m.EmbeddingModel,
		EmbeddingDim:   m.EmbeddingDim,
		TokenizerName:  m.TokenizerName,
		Files:          m.Files,
		UpdatedAtUnix:  time.Now().UnixNano() / int64(time.Second),
	}

	data, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return coreerr.IoError(sidecarRoot, err)
	}

	path := filepath.Join(sidecarRoot, manifestFileName)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return coreerr.IoError(path, err)
	}
	return nil
}
