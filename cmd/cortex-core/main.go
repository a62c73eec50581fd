// Command cortex-core is a smoke entry point over internal/service: it
// wires the discover/chunker/sidecar/lexical/embed/pattern engines into
// one Service the way a real CLI or RPC front end would, runs a reindex
// against the given root, and prints the resulting index status and
// health check. It exists to exercise the composition root end-to-end,
// not as the project's user-facing CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/codesearch/hybridcore/internal/chunker"
	"github.com/codesearch/hybridcore/internal/config"
	"github.com/codesearch/hybridcore/internal/contentcache"
	"github.com/codesearch/hybridcore/internal/discover"
	"github.com/codesearch/hybridcore/internal/embed"
	"github.com/codesearch/hybridcore/internal/lexical"
	"github.com/codesearch/hybridcore/internal/pattern"
	"github.com/codesearch/hybridcore/internal/service"
	"github.com/codesearch/hybridcore/internal/sidecar"
)

func main() {
	root := flag.String("root", ".", "repository root to index")
	provider := flag.String("provider", "mock", "embedding provider: local, remote, mock")
	flag.Parse()

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		log.Fatalf("resolving root: %v", err)
	}

	svc, err := build(absRoot, *provider)
	if err != nil {
		log.Fatalf("building service: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stats, err := svc.Reindex(ctx)
	if err != nil {
		log.Fatalf("reindex: %v", err)
	}
	fmt.Printf("indexed %d chunks (%d added, %d modified, %d removed, %d failed) in %s\n",
		stats.ChunksIndexed, stats.FilesAdded, stats.FilesModified, stats.FilesRemoved, stats.FilesFailed, stats.Duration)

	status, err := svc.IndexStatus(ctx)
	if err != nil {
		log.Fatalf("index status: %v", err)
	}
	fmt.Printf("index status: indexed=%v model=%s dim=%d files=%d\n",
		status.Indexed, status.EmbeddingModel, status.EmbeddingDim, status.FileCount)

	health := svc.HealthCheck(ctx)
	fmt.Printf("health: %+v\n", health)
}

// build is the composition root: it constructs every engine a Service
// depends on, the same way internal/service's own tests do, but against
// a real repository root and a caller-selected embedding provider.
func build(root, providerName string) (*service.Service, error) {
	sidecarRoot := filepath.Join(root, ".codesearch")

	cfg := config.Default()

	discoverOpts := discover.Options{
		SidecarDir:              sidecarRoot,
		RespectVCSIgnore:        true,
		RespectProjectIgnore:    true,
		IgnoreStructuredConfigs: cfg.IgnoreStructuredConfigs,
	}
	capability := chunker.Capability{
		MaxTokens:     512,
		StrideOverlap: cfg.Chunking.StrideOverlap,
		MinChunkLines: cfg.Chunking.MinChunkLines,
		TokenizerName: cfg.IndexModel,
	}

	if err := os.MkdirAll(sidecarRoot, 0755); err != nil {
		return nil, fmt.Errorf("creating sidecar dir: %w", err)
	}

	lex, err := lexical.Open(sidecarRoot)
	if err != nil {
		return nil, fmt.Errorf("opening lexical index: %w", err)
	}

	cache, err := contentcache.Open(sidecarRoot)
	if err != nil {
		return nil, fmt.Errorf("opening content cache: %w", err)
	}

	embedProvider, err := embed.NewProvider(embed.Config{Provider: providerName, ModelID: cfg.IndexModel})
	if err != nil {
		return nil, fmt.Errorf("constructing embedding provider: %w", err)
	}
	if err := embedProvider.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("initializing embedding provider: %w", err)
	}

	reranker, err := embed.NewReranker(embed.RerankerConfig{Provider: "none"})
	if err != nil {
		return nil, fmt.Errorf("constructing reranker: %w", err)
	}

	return service.New(service.Options{
		Root:         root,
		SidecarRoot:  sidecarRoot,
		Config:       cfg,
		DiscoverOpts: discoverOpts,
		Capability:   capability,
		SidecarStore: sidecar.NewStore(sidecarRoot),
		LexicalIndex: lex,
		ContentCache: cache,
		Provider:     embedProvider,
		Reranker:     reranker,
		Pattern:      pattern.NewAstGrepProvider(),
	})
}
