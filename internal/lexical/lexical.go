// Package lexical implements a BM25 engine: an inverted index over the
// same chunk corpus the semantic engine scans, updated by the indexer on
// each run and stored within the sidecar directory. Built on
// github.com/blevesearch/bleve/v2 with its default index mapping, using
// its NewBatch/Search/SearchInContext idiom.
package lexical

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// Document is one chunk as the lexical engine sees it: enough to
// identify and re-locate the chunk after a search, plus its text.
type Document struct {
	ID      string // "<path>#<byte_start>", stable across reindexes
	Path    string
	Content string
}

// Hit is one ranked lexical result.
type Hit struct {
	ID    string
	Score float64
}

// Index wraps one bleve index rooted under the sidecar directory.
type Index struct {
	mu    sync.RWMutex
	bleve bleve.Index
	path  string
}

// indexDirName is where the materialized BM25 index lives within the
// sidecar root.
const indexDirName = "lexical.bleve"

// Open opens or creates the BM25 index under sidecarRoot.
func Open(sidecarRoot string) (*Index, error) {
	path := filepath.Join(sidecarRoot, indexDirName)

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, defaultMapping())
	}
	if err != nil {
		return nil, coreerr.IoError(path, err)
	}

	return &Index{bleve: idx, path: path}, nil
}

func defaultMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	return m
}

// Close releases the underlying bleve handle.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.bleve.Close()
}

// Index adds or replaces documents in a single batch.
func (x *Index) Index(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.bleve.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, map[string]any{"content": d.Content, "path": d.Path}); err != nil {
			return fmt.Errorf("failed to stage document %s: %w", d.ID, err)
		}
	}
	if err := x.bleve.Batch(batch); err != nil {
		return coreerr.IoError(x.path, err)
	}
	return nil
}

// Delete removes documents for the given ids. Updates follow the same
// incremental discipline as the manifest: adds/removes applied per-file.
func (x *Index) Delete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.bleve.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := x.bleve.Batch(batch); err != nil {
		return coreerr.IoError(x.path, err)
	}
	return nil
}

// DeleteByPath removes every document indexed under path, used when a
// source file is removed or modified (its chunks are re-derived and
// re-indexed wholesale rather than diffed chunk-by-chunk).
func (x *Index) DeleteByPath(ctx context.Context, path string) error {
	x.mu.RLock()
	query := bleve.NewMatchQuery(path)
	query.SetField("path")
	req := bleve.NewSearchRequest(query)
	req.Size = 10000
	result, err := x.bleve.SearchInContext(ctx, req)
	x.mu.RUnlock()
	if err != nil {
		return coreerr.IoError(x.path, err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		// The analyzed match query also hits paths sharing a token with
		// path; only IDs of the form "<path>#<byte_start>" belong to it.
		if strings.HasPrefix(hit.ID, path+"#") {
			ids = append(ids, hit.ID)
		}
	}
	return x.Delete(ids)
}

// Search runs a BM25 query, tokenized with bleve's default whitespace +
// word-boundary analyzer, returning hits sorted by score descending with
// the same path/byte_start tie-break semantic search uses.
func (x *Index) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = topK

	result, err := x.bleve.SearchInContext(ctx, req)
	if err != nil {
		return nil, coreerr.IoError(x.path, err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}

	splitID := func(id string) (string, int) {
		i := strings.LastIndex(id, "#")
		if i < 0 {
			return id, 0
		}
		n, _ := strconv.Atoi(id[i+1:])
		return id[:i], n
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		pi, bi := splitID(hits[i].ID)
		pj, bj := splitID(hits[j].ID)
		return pi < pj || (pi == pj && bi < bj)
	})
	return hits, nil
}
