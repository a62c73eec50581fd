package indexer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/codesearch/hybridcore/internal/chunker"
	"github.com/codesearch/hybridcore/internal/contentcache"
	"github.com/codesearch/hybridcore/internal/coreerr"
	"github.com/codesearch/hybridcore/internal/discover"
	"github.com/codesearch/hybridcore/internal/embed"
	"github.com/codesearch/hybridcore/internal/lexical"
	"github.com/codesearch/hybridcore/internal/sidecar"
)

// Indexer runs the incremental update protocol over one repository
// root, writing into one sidecar directory.
type Indexer struct {
	root        string
	sidecarRoot string

	discoverOpts discover.Options
	capability   chunker.Capability
	provider     embed.Provider

	sidecarStore *sidecar.Store
	lexicalIndex *lexical.Index
	contentCache *contentcache.Cache // nil: non-text files are extracted but never reused across runs
	lock         *sidecar.ManifestLock

	progress ProgressReporter
}

// Options configures a new Indexer.
type Options struct {
	Root         string
	SidecarRoot  string
	DiscoverOpts discover.Options
	Capability   chunker.Capability
	Provider     embed.Provider // nil disables semantic indexing
	LexicalIndex *lexical.Index
	ContentCache *contentcache.Cache
	Progress     ProgressReporter
}

// New constructs an Indexer. It does not walk or load the manifest yet;
// call Run to do the actual incremental update.
func New(opts Options) *Indexer {
	progress := opts.Progress
	if progress == nil {
		progress = NoOpProgressReporter{}
	}

	return &Indexer{
		root:         opts.Root,
		sidecarRoot:  opts.SidecarRoot,
		discoverOpts: opts.DiscoverOpts,
		capability:   opts.Capability,
		provider:     opts.Provider,
		sidecarStore: sidecar.NewStore(opts.SidecarRoot),
		lexicalIndex: opts.LexicalIndex,
		contentCache: opts.ContentCache,
		lock:         sidecar.NewManifestLock(opts.SidecarRoot),
		progress:     progress,
	}
}

// Run executes one incremental update: discover files, diff against the
// manifest by content hash, process the Added/Modified set through a
// bounded worker pool, apply the Removed set, and flush the manifest.
// The manifest is always flushed with whatever work completed so far
// before Run returns, including on context cancellation, so a cancelled
// run still leaves the manifest consistent and resumable.
func (ix *Indexer) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()

	if err := ix.lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer ix.lock.Unlock()

	manifest, err := sidecar.LoadManifest(ix.sidecarRoot)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		manifest = sidecar.NewManifest(ix.providerModelID(), ix.providerDimensions(), ix.capability.TokenizerName)
	} else if ix.provider != nil && manifest.EmbeddingModel != "" && manifest.EmbeddingModel != ix.provider.ModelID() {
		return nil, coreerr.ModelMismatch(ix.provider.ModelID(), manifest.EmbeddingModel)
	}

	walker, err := discover.New(ix.root, ix.discoverOpts)
	if err != nil {
		return nil, err
	}

	changes, toProcess, err := detectChanges(ctx, walker, manifest)
	if err != nil {
		return nil, err
	}
	ix.progress.OnDiscoveryComplete(len(changes.Added) + len(changes.Modified) + len(changes.Removed))

	stats := &Stats{
		FilesAdded:    len(changes.Added),
		FilesModified: len(changes.Modified),
		FilesRemoved:  len(changes.Removed),
	}

	// Always flush whatever was actually committed, even if processing
	// below returns early due to cancellation.
	defer func() {
		stats.Duration = time.Since(start)
		_ = sidecar.SaveManifest(ix.sidecarRoot, manifest)
		ix.progress.OnComplete(stats)
	}()

	for _, path := range changes.Removed {
		if err := ix.sidecarStore.Delete(path); err != nil {
			ix.progress.OnFileFailed(path, err)
			continue
		}
		if ix.lexicalIndex != nil {
			_ = ix.lexicalIndex.DeleteByPath(ctx, path)
		}
		if ix.contentCache != nil {
			hash := manifest.Files[path].ContentHash
			if cached, found, err := ix.contentCache.Lookup(hash); err == nil && found {
				_ = os.Remove(filepath.Join(ix.contentCache.Root(), cached))
				_ = ix.contentCache.Forget(hash)
			}
		}
	}
	if ix.lexicalIndex != nil {
		for _, path := range changes.Modified {
			_ = ix.lexicalIndex.DeleteByPath(ctx, path)
		}
	}

	results := ix.processFiles(ctx, toProcess)

	var lexDocs []lexical.Document
	for _, r := range results {
		if r.err != nil {
			stats.FilesFailed++
			ix.progress.OnFileFailed(r.path, r.err)
			continue
		}
		stats.ChunksIndexed += r.chunkCount
		lexDocs = append(lexDocs, r.lexDocs...)
		ix.progress.OnFileProcessed(r.path)
	}

	if ix.lexicalIndex != nil && len(lexDocs) > 0 {
		if err := ix.lexicalIndex.Index(lexDocs); err != nil {
			return stats, err
		}
	}

	mergeManifest(manifest, results, changes.Removed, ix.root)

	// Sweep for sidecars orphaned by a crash between a previous run's
	// processing and manifest commit.
	currentPaths := make([]string, 0, len(manifest.Files))
	for p := range manifest.Files {
		currentPaths = append(currentPaths, p)
	}
	if orphans, err := ix.sidecarStore.OrphanSet(currentPaths); err == nil {
		for _, orphan := range orphans {
			_ = ix.sidecarStore.Delete(orphan)
		}
	}

	return stats, ctx.Err()
}

func (ix *Indexer) providerModelID() string {
	if ix.provider == nil {
		return ""
	}
	return ix.provider.ModelID()
}

func (ix *Indexer) providerDimensions() int {
	if ix.provider == nil {
		return 0
	}
	return ix.provider.Dimensions()
}

// NeedsRefresh reports whether lastIndexed is older than freshness, the
// auto-indexing trigger: a query against a stale index runs an
// incremental update first.
func NeedsRefresh(lastIndexed time.Time, freshness time.Duration) bool {
	if freshness <= 0 {
		return false
	}
	return time.Since(lastIndexed) > freshness
}
