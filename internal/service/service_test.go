package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesearch/hybridcore/internal/chunker"
	"github.com/codesearch/hybridcore/internal/config"
	"github.com/codesearch/hybridcore/internal/discover"
	"github.com/codesearch/hybridcore/internal/embed"
	"github.com/codesearch/hybridcore/internal/indexer"
	"github.com/codesearch/hybridcore/internal/lexical"
	"github.com/codesearch/hybridcore/internal/pattern"
	"github.com/codesearch/hybridcore/internal/regexsearch"
	"github.com/codesearch/hybridcore/internal/sidecar"
)

// stubPatternSearcher returns a fixed response regardless of the request,
// standing in for the ast-grep subprocess backend in tests.
type stubPatternSearcher struct {
	resp *pattern.PatternResponse
	err  error
}

func (s *stubPatternSearcher) Search(ctx context.Context, req *pattern.PatternRequest, projectRoot string) (*pattern.PatternResponse, error) {
	return s.resp, s.err
}

func newTestService(t *testing.T, root string, searcher pattern.PatternSearcher) *Service {
	t.Helper()

	sidecarRoot := filepath.Join(root, ".codesearch")
	discoverOpts := discover.Options{SidecarDir: sidecarRoot, RespectVCSIgnore: false, RespectProjectIgnore: false}
	capability := chunker.Capability{MaxTokens: 2048, MinChunkLines: 1, TokenizerName: "mock"}

	lex, err := lexical.Open(sidecarRoot)
	require.NoError(t, err)
	t.Cleanup(func() { lex.Close() })

	provider := embed.NewMockProvider()
	require.NoError(t, provider.Initialize(context.Background()))
	t.Cleanup(func() { provider.Close() })

	ix := indexer.New(indexer.Options{
		Root:         root,
		SidecarRoot:  sidecarRoot,
		DiscoverOpts: discoverOpts,
		Capability:   capability,
		Provider:     provider,
		LexicalIndex: lex,
	})
	_, err = ix.Run(context.Background())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.AutoIndexFreshness = 0 // disable auto-reindex races within a single test

	svc, err := New(Options{
		Root:         root,
		SidecarRoot:  sidecarRoot,
		Config:       cfg,
		DiscoverOpts: discoverOpts,
		Capability:   capability,
		SidecarStore: sidecar.NewStore(sidecarRoot),
		LexicalIndex: lex,
		Provider:     provider,
		Pattern:      searcher,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func writeFixture(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter.go"), []byte(
		"package greeter\n\nfunc Hello(name string) string {\n\treturn \"hello \" + name\n}\n\nfunc Goodbye(name string) string {\n\treturn \"goodbye \" + name\n}\n",
	), 0644))
}

func TestIndexStatusReportsManifestState(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	svc := newTestService(t, root, nil)

	status, err := svc.IndexStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Indexed)
	assert.Equal(t, 1, status.FileCount)
}

func TestReindexIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	svc := newTestService(t, root, nil)

	stats, err := svc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.FilesAdded)
}

func TestHealthCheckNeverErrors(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	svc := newTestService(t, root, &stubPatternSearcher{resp: &pattern.PatternResponse{}})

	result := svc.HealthCheck(context.Background())
	assert.True(t, result.SidecarWritable)
	assert.True(t, result.EmbeddingAvailable)
	assert.True(t, result.StructuralAvailable)
}

func TestRegexSearchFindsLiteralMatch(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	svc := newTestService(t, root, nil)

	page, err := svc.RegexSearch(context.Background(), "goodbye", regexsearch.Options{FixedString: true}, 10)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "greeter.go", page.Results[0].Path)
	assert.Nil(t, page.Results[0].Score)
}

func TestLexicalSearchReturnsScoredHits(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	svc := newTestService(t, root, nil)

	page, err := svc.LexicalSearch(context.Background(), "hello", 10, 10)
	require.NoError(t, err)
	require.NotEmpty(t, page.Results)
	assert.NotNil(t, page.Results[0].Score)
	assert.NotEmpty(t, page.Results[0].Snippet)
}

func TestSemanticSearchReturnsRankedResults(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	svc := newTestService(t, root, nil)

	page, nearMiss, err := svc.SemanticSearch(context.Background(), "greeting function", 10, -1, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, page.Results)
	_ = nearMiss
}

func TestHybridSearchFusesStreamsAndPaginates(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	svc := newTestService(t, root, nil)

	page, warnings, err := svc.HybridSearch(context.Background(), "hello", 10, 0, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, page.Results)
	assert.LessOrEqual(t, len(page.Results), 1)
	assert.Empty(t, warnings)

	if page.NextCursor != "" {
		next, err := svc.NextPage(page.NextCursor, 10)
		require.NoError(t, err)
		assert.NotEmpty(t, next.Results)
	}
}

func TestHybridSearchSurfacesStructuralWarningWhenBackendFails(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	svc := newTestService(t, root, nil) // no pattern searcher wired

	page, warnings, err := svc.HybridSearch(context.Background(), "$FUNC", 10, 0, 10)
	require.NoError(t, err)
	_ = page
	require.Len(t, warnings, 1)
	assert.Equal(t, "structural", warnings[0].Source)
}

func TestStructuralSearchConvertsMatches(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	searcher := &stubPatternSearcher{resp: &pattern.PatternResponse{
		Matches: []pattern.PatternMatch{
			{FilePath: "greeter.go", StartLine: 3, EndLine: 5, MatchText: "func Hello(name string) string {\n\treturn \"hello \" + name\n}"},
		},
		Total: 1,
	}}
	svc := newTestService(t, root, searcher)

	page, err := svc.StructuralSearch(context.Background(), "func $NAME($$$ARGS) string { $$$BODY }", "go", 10)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "greeter.go", page.Results[0].Path)
	assert.Equal(t, 3, page.Results[0].Span.LineStart)
}

func TestStructuralSearchReportsUnavailableWithoutBackend(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root)
	svc := newTestService(t, root, nil)

	_, err := svc.StructuralSearch(context.Background(), "$X", "go", 10)
	require.Error(t, err)
}
