// Package indexer implements the incremental update protocol: compute
// Added/Modified/Removed against the manifest by content hash (never
// mtime alone), process changed files through a bounded worker pool, and
// flush the manifest before returning so a cancelled run resumes
// cleanly. Structured as a change detector, a processor, a writer, and a
// progress reporter as separate files cooperating through one
// orchestrator, over the sidecar/manifest data model.
package indexer

import "time"

// ChangeSet is the result of comparing the filesystem to the manifest.
type ChangeSet struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether the change set requires no work.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Stats summarizes one run of Indexer.Run.
type Stats struct {
	FilesAdded     int
	FilesModified  int
	FilesRemoved   int
	FilesFailed    int
	ChunksIndexed  int
	Duration       time.Duration
}
