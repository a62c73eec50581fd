package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/codesearch/hybridcore/internal/chunker"
	"github.com/codesearch/hybridcore/internal/config"
	"github.com/codesearch/hybridcore/internal/contentcache"
	"github.com/codesearch/hybridcore/internal/discover"
	"github.com/codesearch/hybridcore/internal/embed"
	"github.com/codesearch/hybridcore/internal/indexer"
	"github.com/codesearch/hybridcore/internal/lexical"
	"github.com/codesearch/hybridcore/internal/pattern"
	"github.com/codesearch/hybridcore/internal/session"
	"github.com/codesearch/hybridcore/internal/sidecar"
)

// Service wires the engines together behind the eight RPC operations.
// One Service instance is scoped to one repository root.
type Service struct {
	root        string
	sidecarRoot string
	cfg         *config.Config

	discoverOpts discover.Options
	capability   chunker.Capability

	sidecarStore *sidecar.Store
	lexicalIndex *lexical.Index
	contentCache *contentcache.Cache
	provider     embed.Provider // nil: semantic/hybrid degrade to lexical+regex only
	reranker     embed.Reranker // nil: reranking disabled regardless of config
	pattern      pattern.PatternSearcher

	sessions *session.Store
}

// Options configures a new Service.
type Options struct {
	Root         string
	SidecarRoot  string
	Config       *config.Config
	DiscoverOpts discover.Options
	Capability   chunker.Capability
	SidecarStore *sidecar.Store
	LexicalIndex *lexical.Index
	ContentCache *contentcache.Cache
	Provider     embed.Provider
	Reranker     embed.Reranker
	Pattern      pattern.PatternSearcher
}

// New constructs a Service and starts its session store's background
// sweeper. Call Close to stop it.
func New(opts Options) (*Service, error) {
	sessions, err := session.NewStore(session.DefaultTTL)
	if err != nil {
		return nil, err
	}

	return &Service{
		root:         opts.Root,
		sidecarRoot:  opts.SidecarRoot,
		cfg:          opts.Config,
		discoverOpts: opts.DiscoverOpts,
		capability:   opts.Capability,
		sidecarStore: opts.SidecarStore,
		lexicalIndex: opts.LexicalIndex,
		contentCache: opts.ContentCache,
		provider:     opts.Provider,
		reranker:     opts.Reranker,
		pattern:      opts.Pattern,
		sessions:     sessions,
	}, nil
}

// Close releases the session store's sweeper goroutine.
func (s *Service) Close() {
	s.sessions.Close()
}

// IndexStatus answers index_status: the manifest's current state
// without triggering any indexing work.
func (s *Service) IndexStatus(context.Context) (*IndexStatusResult, error) {
	manifest, err := sidecar.LoadManifest(s.sidecarRoot)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return &IndexStatusResult{Indexed: false}, nil
	}
	return &IndexStatusResult{
		Indexed:        true,
		SchemaVersion:  manifest.SchemaVersion,
		EmbeddingModel: manifest.EmbeddingModel,
		EmbeddingDim:   manifest.EmbeddingDim,
		FileCount:      len(manifest.Files),
		UpdatedAtUnix:  manifest.UpdatedAtUnix,
	}, nil
}

// Reindex answers reindex: runs one incremental update pass and returns
// its statistics. Explicit, user-triggered — auto-indexing at query time
// is a separate, freshness-window-gated path (see MaybeAutoIndex).
func (s *Service) Reindex(ctx context.Context) (*indexer.Stats, error) {
	ix := indexer.New(indexer.Options{
		Root:         s.root,
		SidecarRoot:  s.sidecarRoot,
		DiscoverOpts: s.discoverOpts,
		Capability:   s.capability,
		Provider:     s.provider,
		LexicalIndex: s.lexicalIndex,
		ContentCache: s.contentCache,
	})
	return ix.Run(ctx)
}

// MaybeAutoIndex triggers an incremental update if the manifest is
// stale relative to cfg.AutoIndexFreshness. Called at the top of every
// search operation.
func (s *Service) MaybeAutoIndex(ctx context.Context) error {
	if s.cfg == nil || s.cfg.AutoIndexFreshness <= 0 {
		return nil
	}
	manifest, err := sidecar.LoadManifest(s.sidecarRoot)
	if err != nil {
		return err
	}
	lastIndexed := time.Unix(0, 0)
	if manifest != nil {
		lastIndexed = time.Unix(manifest.UpdatedAtUnix, 0)
	}
	if manifest == nil || indexer.NeedsRefresh(lastIndexed, s.cfg.AutoIndexFreshness) {
		_, err := s.Reindex(ctx)
		return err
	}
	return nil
}

// HealthCheck answers health_check: a best-effort probe of each
// external collaborator, never failing the call itself — every probe
// result is reported, not raised.
func (s *Service) HealthCheck(ctx context.Context) *HealthCheckResult {
	result := &HealthCheckResult{}

	probePath := filepath.Join(s.sidecarRoot, ".health-probe")
	if err := os.MkdirAll(s.sidecarRoot, 0755); err == nil {
		if err := os.WriteFile(probePath, []byte("ok"), 0644); err == nil {
			result.SidecarWritable = true
			os.Remove(probePath)
		}
	}

	if s.provider != nil {
		if _, err := embed.EmbedQuery(ctx, s.provider, "health check probe"); err == nil {
			result.EmbeddingAvailable = true
		} else {
			result.Detail = err.Error()
		}
	}

	if s.pattern != nil {
		req := &pattern.PatternRequest{Pattern: "$X", Language: "go"}
		if _, err := s.pattern.Search(ctx, req, s.root); err == nil {
			result.StructuralAvailable = true
		}
	}

	return result
}

// paginate materializes a session over a fully computed result list and
// returns its first page, honoring the page_size bound.
func (s *Service) paginate(results []ResultRecord, pageSize int) (*Page, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	boxed := make([]any, len(results))
	for i, r := range results {
		boxed[i] = r
	}

	sess, err := s.sessions.Create(boxed, pageSize)
	if err != nil {
		return nil, err
	}

	return s.renderPage(sess, len(results))
}

// NextPage answers a follow-up call passing a cursor from a prior page:
// subsequent calls passing a cursor advance the offset without
// recomputing.
func (s *Service) NextPage(cursor string, pageSize int) (*Page, error) {
	sess, err := s.sessions.Get(cursor)
	if err != nil {
		return nil, err
	}
	return s.renderPageSize(sess, pageSize)
}

func (s *Service) renderPage(sess *session.Session, total int) (*Page, error) {
	return s.renderPageWithTotal(sess, 0, total)
}

func (s *Service) renderPageSize(sess *session.Session, pageSize int) (*Page, error) {
	return s.renderPageWithTotal(sess, pageSize, -1)
}

func (s *Service) renderPageWithTotal(sess *session.Session, pageSize, total int) (*Page, error) {
	remainingBefore := sess.Remaining()
	if total < 0 {
		total = remainingBefore
	}

	page := sess.NextPage(pageSize)
	results := make([]ResultRecord, len(page))
	for i, v := range page {
		results[i] = v.(ResultRecord)
	}

	p := &Page{Results: results, TotalCount: total}
	if sess.Remaining() > 0 {
		p.NextCursor = sess.Cursor()
	}
	return p, nil
}
