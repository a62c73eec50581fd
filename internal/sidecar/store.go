package sidecar

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// Store owns reading, writing, and deleting sidecar entries under one
// sidecar root, laid out as "<sidecar-root>/p.<ext>".
type Store struct {
	root string

	// ids interns relative paths to small integers so the orphan
	// bitmap (which sidecars survive a walk) can use a compact
	// roaring.Bitmap instead of a string set.
	ids     map[string]uint32
	nextID  uint32
}

// NewStore opens (without requiring it to exist yet) the sidecar store
// rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root, ids: make(map[string]uint32)}
}

// Root returns the sidecar directory path.
func (s *Store) Root() string { return s.root }

func (s *Store) sidecarPath(relPath string) string {
	return filepath.Join(s.root, relPath+Ext)
}

// ChunkHash fingerprints chunk text with xxhash64, a fast
// non-cryptographic hash suitable for a change-detection fingerprint,
// not a security boundary.
func ChunkHash(text string) uint64 {
	return xxhash.Sum64String(text)
}

// Write persists one entry atomically: temp file + rename.
func (s *Store) Write(e *Entry) error {
	path := s.sidecarPath(e.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return coreerr.IoError(path, err)
	}
	data := encodeEntry(e)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return coreerr.IoError(path, err)
	}
	return nil
}

// Read loads one entry. A corrupt sidecar is reported as
// coreerr.KindCorruptSidecar, not fatal to the caller — the indexer
// treats the entry as missing and recreates it on the next run.
func (s *Store) Read(relPath string) (*Entry, error) {
	path := s.sidecarPath(relPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coreerr.NotIndexed(relPath)
		}
		return nil, coreerr.IoError(path, err)
	}
	e, err := decodeEntry(relPath, data)
	if err != nil {
		return nil, err
	}
	e.Path = relPath
	return e, nil
}

// Delete removes one sidecar entry; it does not touch the content cache,
// whose cleanup for removed files the indexer does itself.
func (s *Store) Delete(relPath string) error {
	path := s.sidecarPath(relPath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return coreerr.IoError(path, err)
	}
	return nil
}

// internID assigns (or returns the existing) small integer id for a
// relative path, used only for the in-memory orphan bitmap below.
func (s *Store) internID(relPath string) uint32 {
	if id, ok := s.ids[relPath]; ok {
		return id
	}
	id := s.nextID
	s.ids[relPath] = id
	s.nextID++
	return id
}

// OrphanSet computes sidecar files present on disk but absent from
// currentPaths, materialized as an on-disk sweep rather than trusting
// the manifest alone — catches sidecars left behind by a crash between
// processing and manifest commit. Backed by a roaring.Bitmap over
// interned path ids for its compact set-difference operations.
func (s *Store) OrphanSet(currentPaths []string) ([]string, error) {
	onDisk := roaring.New()
	var diskPaths []string
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() {
			return nil
		}
		if filepath.Ext(path) != Ext {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel[:len(rel)-len(Ext)])
		onDisk.Add(s.internID(rel))
		diskPaths = append(diskPaths, rel)
		return nil
	})
	if err != nil {
		return nil, coreerr.IoError(s.root, err)
	}

	current := roaring.New()
	for _, p := range currentPaths {
		current.Add(s.internID(p))
	}

	onDisk.AndNot(current)

	var orphans []string
	idToPath := make(map[uint32]string, len(diskPaths))
	for _, p := range diskPaths {
		idToPath[s.ids[p]] = p
	}
	it := onDisk.Iterator()
	for it.HasNext() {
		orphans = append(orphans, idToPath[it.Next()])
	}
	sort.Strings(orphans)
	return orphans, nil
}
