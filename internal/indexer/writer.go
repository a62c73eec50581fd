package indexer

import (
	"os"
	"time"

	"github.com/codesearch/hybridcore/internal/sidecar"
)

// mergeManifest applies processed results and removed paths to manifest
// in place. Caller holds the manifest lock for the duration.
func mergeManifest(manifest *sidecar.Manifest, results []processResult, removed []string, root string) {
	for _, r := range results {
		if r.err != nil {
			continue
		}
		abs := root + string(os.PathSeparator) + r.path
		modTime := int64(0)
		if info, err := os.Stat(abs); err == nil {
			modTime = info.ModTime().UnixNano()
		}
		manifest.Files[r.path] = sidecar.FileRecord{
			Path:        r.path,
			ContentHash: r.contentHash,
			ModTime:     modTime,
		}
	}
	for _, path := range removed {
		delete(manifest.Files, path)
	}
	manifest.UpdatedAtUnix = time.Now().Unix()
}
