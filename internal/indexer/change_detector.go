package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"os"

	"github.com/codesearch/hybridcore/internal/coreerr"
	"github.com/codesearch/hybridcore/internal/discover"
	"github.com/codesearch/hybridcore/internal/sidecar"
)

// detectedFile pairs a discovered file with the hash it will be
// compared against the manifest's recorded hash for its path.
type detectedFile struct {
	discover.File
	ContentHash string
}

// hashFile computes a file's sha256 content hash.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", coreerr.IoError(path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", coreerr.IoError(path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// detectChanges walks root via the discover.Walker, hashes every
// eligible file, and diffs the result against manifest.Files by content
// hash, never mtime alone. Files recorded in the manifest but not seen
// during the walk are Removed.
func detectChanges(ctx context.Context, walker *discover.Walker, manifest *sidecar.Manifest) (ChangeSet, []detectedFile, error) {
	seen := make(map[string]bool)
	var changes ChangeSet
	var toProcess []detectedFile

	files, errc := walker.Walk(ctx)
	for f := range files {
		hash, err := hashFile(f.AbsPath)
		if err != nil {
			// Per-file I/O errors are logged and the file is skipped.
			log.Printf("indexer: skipping %s: %v", f.Path, err)
			continue
		}
		seen[f.Path] = true

		prior, existed := manifest.Files[f.Path]
		switch {
		case !existed:
			changes.Added = append(changes.Added, f.Path)
			toProcess = append(toProcess, detectedFile{File: f, ContentHash: hash})
		case prior.ContentHash != hash:
			changes.Modified = append(changes.Modified, f.Path)
			toProcess = append(toProcess, detectedFile{File: f, ContentHash: hash})
		}
	}

	select {
	case err := <-errc:
		if err != nil {
			return ChangeSet{}, nil, err
		}
	default:
	}

	for path := range manifest.Files {
		if !seen[path] {
			changes.Removed = append(changes.Removed, path)
		}
	}

	return changes, toProcess, nil
}
