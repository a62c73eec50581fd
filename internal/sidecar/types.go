// Package sidecar implements the on-disk sidecar store: a binary
// per-file chunk format plus a manifest recording the authoritative set
// of indexed files, their content hashes, and model identity. Uses
// packed float encoding and a version-stamped header, one binary
// sidecar file per source file rather than a unified cache.
package sidecar

import "github.com/codesearch/hybridcore/internal/chunker"

// SchemaVersion is stamped into every sidecar and into the manifest.
// Readers refuse anything else with a typed SchemaIncompatible error.
const SchemaVersion uint32 = 1

// Ext is the fixed suffix every sidecar file carries.
const Ext = ".csc"

// Entry is one source file's sidecar: its chunks plus the metadata
// needed to detect whether it is stale.
type Entry struct {
	Path           string // relative to repository root, slash-separated
	ContentHash    string // sha256 hex of the source file's bytes
	Language       string
	IsText         bool
	ContentCachePath string // relative path under <sidecar-root>/content, non-text only
	EmbeddingDim   int      // 0 if the index has no semantic vectors
	Chunks         []ChunkRecord
}

// ChunkRecord is one chunk's on-disk representation: chunker.Chunk plus
// the chunk hash and optional embedding the chunker itself doesn't know
// about.
type ChunkRecord struct {
	Span       chunker.Span
	Kind       chunker.Kind
	Breadcrumb string
	Text       string
	TokenCount int
	ChunkHash  uint64 // xxhash64 of Text, not security sensitive
	Embedding  []float32 // nil if the index has no semantic vectors
}

// FileRecord is one file's manifest line: just enough to compute the
// Added/Modified/Removed sets without reading the sidecar itself.
type FileRecord struct {
	Path        string
	ContentHash string
	ModTime     int64 // unix nanoseconds
}

// Manifest is the authoritative index state.
type Manifest struct {
	SchemaVersion  uint32
	EmbeddingModel string
	EmbeddingDim   int
	TokenizerName  string
	Files          map[string]FileRecord // keyed by relative path
	UpdatedAtUnix  int64
}

// NewManifest returns an empty manifest stamped with the given model
// identity, ready to accept the first index run.
func NewManifest(model string, dim int, tokenizer string) *Manifest {
	return &Manifest{
		SchemaVersion:  SchemaVersion,
		EmbeddingModel: model,
		EmbeddingDim:   dim,
		TokenizerName:  tokenizer,
		Files:          make(map[string]FileRecord),
	}
}
