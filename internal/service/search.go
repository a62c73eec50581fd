package service

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/codesearch/hybridcore/internal/coreerr"
	"github.com/codesearch/hybridcore/internal/discover"
	"github.com/codesearch/hybridcore/internal/hybrid"
	"github.com/codesearch/hybridcore/internal/pattern"
	"github.com/codesearch/hybridcore/internal/regexsearch"
	"github.com/codesearch/hybridcore/internal/semantic"
	"github.com/codesearch/hybridcore/internal/sidecar"
)

// chunkLookup resolves (path, byte_start) back to its sidecar chunk for
// snippet/span reconstruction, caching one decoded Entry per path for
// the lifetime of a single search call.
type chunkLookup struct {
	store   *sidecar.Store
	entries map[string]*sidecar.Entry
}

func newChunkLookup(store *sidecar.Store) *chunkLookup {
	return &chunkLookup{store: store, entries: make(map[string]*sidecar.Entry)}
}

func (l *chunkLookup) entry(path string) *sidecar.Entry {
	if e, ok := l.entries[path]; ok {
		return e
	}
	e, err := l.store.Read(path)
	if err != nil {
		l.entries[path] = nil
		return nil
	}
	l.entries[path] = e
	return e
}

// byByteStart finds the chunk at exactly byteStart, or nil.
func (l *chunkLookup) byByteStart(path string, byteStart int) *sidecar.ChunkRecord {
	e := l.entry(path)
	if e == nil {
		return nil
	}
	for i := range e.Chunks {
		if e.Chunks[i].Span.ByteStart == byteStart {
			return &e.Chunks[i]
		}
	}
	return nil
}

// byLineRange finds the chunk best overlapping [lineStart, lineEnd],
// used by structural_search, whose backend reports lines, not bytes.
func (l *chunkLookup) byLineRange(path string, lineStart, lineEnd int) *sidecar.ChunkRecord {
	e := l.entry(path)
	if e == nil {
		return nil
	}
	for i := range e.Chunks {
		c := &e.Chunks[i]
		if c.Span.LineStart <= lineStart && c.Span.LineEnd >= lineStart {
			return c
		}
	}
	if len(e.Chunks) > 0 {
		return &e.Chunks[0]
	}
	return nil
}

func scorePtr(f float64) *float64 { return &f }

// SemanticSearch answers semantic_search.
func (s *Service) SemanticSearch(ctx context.Context, query string, topK int, threshold float64, pageSize int) (*Page, *semantic.NearMiss, error) {
	if err := s.MaybeAutoIndex(ctx); err != nil {
		return nil, nil, err
	}
	if s.provider == nil {
		return nil, nil, coreerr.Unavailable("embedding provider", nil)
	}

	manifest, err := sidecar.LoadManifest(s.sidecarRoot)
	if err != nil {
		return nil, nil, err
	}
	if manifest == nil {
		return nil, nil, coreerr.NotIndexed(s.root)
	}

	lookup := newChunkLookup(s.sidecarStore)
	var chunks []semantic.Chunk
	for path := range manifest.Files {
		e := lookup.entry(path)
		if e == nil {
			continue
		}
		for _, c := range e.Chunks {
			if len(c.Embedding) == 0 {
				continue
			}
			chunks = append(chunks, semantic.Chunk{
				Path:      path,
				ByteStart: c.Span.ByteStart,
				ByteEnd:   c.Span.ByteEnd,
				LineStart: c.Span.LineStart,
				LineEnd:   c.Span.LineEnd,
				ChunkHash: c.ChunkHash,
				Embedding: c.Embedding,
			})
		}
	}

	opts := semantic.Options{Threshold: float32(threshold), TopK: topK, Rerank: s.cfg != nil && s.cfg.RerankEnabled && s.reranker != nil}
	results, nearMiss, err := semantic.Search(ctx, s.provider, s.reranker, query, chunks, opts)
	if err != nil {
		return nil, nil, err
	}

	if opts.Rerank && len(results) > 0 {
		passages := make([]string, len(results))
		for i, r := range results {
			if c := lookup.byByteStart(r.Chunk.Path, r.Chunk.ByteStart); c != nil {
				passages[i] = c.Text
			}
		}
		if reranked, err := semantic.Rerank(ctx, s.reranker, query, results, passages, topK); err == nil {
			results = reranked
		}
	}

	records := make([]ResultRecord, len(results))
	for i, r := range results {
		records[i] = s.toRecord(lookup, r.Chunk.Path, r.Chunk.ByteStart, r.Chunk.ByteEnd, r.Chunk.LineStart, r.Chunk.LineEnd, float64(r.Score), manifest.UpdatedAtUnix)
	}

	page, err := s.paginate(records, pageSize)
	return page, nearMiss, err
}

// RegexSearch answers regex_search, scanning the live filesystem rather
// than the sidecar — regex search is always exact against current file
// contents.
func (s *Service) RegexSearch(ctx context.Context, pattern string, opts regexsearch.Options, pageSize int) (*Page, error) {
	re, err := regexsearch.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}

	walker, err := discover.New(s.root, s.discoverOpts)
	if err != nil {
		return nil, err
	}

	var records []ResultRecord
	files, errc := walker.Walk(ctx)
	for f := range files {
		handle, err := os.Open(f.AbsPath)
		if err != nil {
			continue
		}
		matches, err := regexsearch.Scan(f.Path, handle, re, opts)
		handle.Close()
		if err != nil {
			continue
		}
		for _, m := range matches {
			records = append(records, ResultRecord{
				Path:     f.Path,
				Span:     Span{ByteStart: m.ByteStart, ByteEnd: m.ByteEnd, LineStart: m.LineNumber, LineEnd: m.LineNumber},
				Language: f.Language,
				Snippet:  m.Line,
				Score:    nil,
			})
		}
	}
	select {
	case err := <-errc:
		if err != nil {
			return nil, err
		}
	default:
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Path != records[j].Path {
			return records[i].Path < records[j].Path
		}
		return records[i].Span.ByteStart < records[j].Span.ByteStart
	})

	return s.paginate(records, pageSize)
}

// LexicalSearch answers lexical_search.
func (s *Service) LexicalSearch(ctx context.Context, query string, topK, pageSize int) (*Page, error) {
	if err := s.MaybeAutoIndex(ctx); err != nil {
		return nil, err
	}
	if s.lexicalIndex == nil {
		return nil, coreerr.Unavailable("lexical index", nil)
	}

	hits, err := s.lexicalIndex.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	manifest, err := sidecar.LoadManifest(s.sidecarRoot)
	if err != nil {
		return nil, err
	}
	epoch := int64(0)
	if manifest != nil {
		epoch = manifest.UpdatedAtUnix
	}

	lookup := newChunkLookup(s.sidecarStore)
	records := make([]ResultRecord, 0, len(hits))
	for _, h := range hits {
		path, byteStart, ok := splitLexicalID(h.ID)
		if !ok {
			continue
		}
		c := lookup.byByteStart(path, byteStart)
		if c == nil {
			continue
		}
		rec := s.toRecord(lookup, path, c.Span.ByteStart, c.Span.ByteEnd, c.Span.LineStart, c.Span.LineEnd, h.Score, epoch)
		records = append(records, rec)
	}

	return s.paginate(records, pageSize)
}

// HybridSearch answers hybrid_search: fuse regex, semantic, and (when
// the query carries a metavariable) structural streams via Reciprocal
// Rank Fusion.
func (s *Service) HybridSearch(ctx context.Context, query string, topK int, threshold float64, pageSize int) (*Page, []Warning, error) {
	if err := s.MaybeAutoIndex(ctx); err != nil {
		return nil, nil, err
	}

	regexPage, err := s.RegexSearch(ctx, query, regexsearch.Options{FixedString: true}, topK)
	var regexStream hybrid.Stream
	if err == nil {
		regexStream = recordsToStream("regex", regexPage.Results)
	}

	var semanticStream hybrid.Stream
	if s.provider != nil {
		semPage, _, semErr := s.SemanticSearch(ctx, query, topK, -2, topK)
		if semErr == nil {
			semanticStream = recordsToStream("semantic", semPage.Results)
		}
	}

	var structResp *pattern.PatternResponse
	var structErr error
	if hybrid.HasMetavariable(query) {
		if s.pattern == nil {
			structErr = coreerr.Unavailable("structural search backend", nil)
		} else {
			structResp, structErr = s.pattern.Search(ctx, &pattern.PatternRequest{Pattern: query, Language: "go"}, s.root)
		}
	}

	streams, warns := hybrid.BuildStreams(regexStream, semanticStream, structResp, structErr)
	fused := hybrid.Fuse(streams, hybrid.DefaultK)
	fused = hybrid.Truncate(fused, topK)

	lookup := newChunkLookup(s.sidecarStore)
	manifest, _ := sidecar.LoadManifest(s.sidecarRoot)
	epoch := int64(0)
	if manifest != nil {
		epoch = manifest.UpdatedAtUnix
	}

	records := make([]ResultRecord, 0, len(fused))
	for _, f := range fused {
		if f.Score < threshold {
			continue
		}
		c := lookup.byByteStart(f.Path, f.ByteStart)
		if c != nil {
			records = append(records, s.toRecord(lookup, f.Path, c.Span.ByteStart, c.Span.ByteEnd, c.Span.LineStart, c.Span.LineEnd, f.Score, epoch))
		} else {
			records = append(records, ResultRecord{Path: f.Path, Span: Span{ByteStart: f.ByteStart}, Score: scorePtr(f.Score), IndexEpoch: epoch})
		}
	}

	warnings := make([]Warning, len(warns))
	for i, w := range warns {
		warnings[i] = Warning{Source: w.Stream, Message: w.Message}
	}

	page, err := s.paginate(records, pageSize)
	return page, warnings, err
}

// StructuralSearch answers structural_search: a direct pass-through to
// the AST pattern backend, without RRF fusion.
func (s *Service) StructuralSearch(ctx context.Context, patternStr, language string, pageSize int) (*Page, error) {
	if s.pattern == nil {
		return nil, coreerr.Unavailable("structural search backend", nil)
	}

	resp, err := s.pattern.Search(ctx, &pattern.PatternRequest{Pattern: patternStr, Language: language}, s.root)
	if err != nil {
		return nil, err
	}

	lookup := newChunkLookup(s.sidecarStore)
	manifest, _ := sidecar.LoadManifest(s.sidecarRoot)
	epoch := int64(0)
	if manifest != nil {
		epoch = manifest.UpdatedAtUnix
	}

	records := make([]ResultRecord, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		rec := ResultRecord{
			Path:     m.FilePath,
			Span:     Span{LineStart: m.StartLine, LineEnd: m.EndLine},
			Snippet:  m.MatchText,
			Language: language,
			IndexEpoch: epoch,
		}
		if c := lookup.byLineRange(m.FilePath, m.StartLine, m.EndLine); c != nil {
			rec.Span.ByteStart = c.Span.ByteStart
			rec.Span.ByteEnd = c.Span.ByteEnd
			rec.ChunkHash = strconv.FormatUint(c.ChunkHash, 16)
		}
		records = append(records, rec)
	}

	return s.paginate(records, pageSize)
}

func (s *Service) toRecord(lookup *chunkLookup, path string, byteStart, byteEnd, lineStart, lineEnd int, score float64, epoch int64) ResultRecord {
	rec := ResultRecord{
		Path:       path,
		Span:       Span{ByteStart: byteStart, ByteEnd: byteEnd, LineStart: lineStart, LineEnd: lineEnd},
		Score:      scorePtr(score),
		IndexEpoch: epoch,
	}
	if c := lookup.byByteStart(path, byteStart); c != nil {
		rec.Snippet = c.Text
		rec.ChunkHash = strconv.FormatUint(c.ChunkHash, 16)
		if e := lookup.entry(path); e != nil {
			rec.Language = e.Language
		}
	}
	return rec
}

func recordsToStream(name string, records []ResultRecord) hybrid.Stream {
	results := make([]hybrid.StreamResult, len(records))
	for i, r := range records {
		results[i] = hybrid.StreamResult{Path: r.Path, ByteStart: r.Span.ByteStart}
	}
	return hybrid.Stream{Name: name, Results: results}
}

func splitLexicalID(id string) (string, int, bool) {
	idx := strings.LastIndex(id, "#")
	if idx < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return id[:idx], n, true
}
