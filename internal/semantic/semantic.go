// Package semantic implements the semantic search engine: an exact
// per-chunk cosine scan over the sidecar-resident embeddings, threshold
// filtering, deterministic tie-breaking, optional reranking, and
// near-miss tracking. A plain brute-force scan rather than an ANN
// index — the algorithm here is an exact scan, not approximate search,
// so no vector-index dependency is wired in (see DESIGN.md).
package semantic

import (
	"context"
	"math"
	"sort"

	"github.com/codesearch/hybridcore/internal/coreerr"
	"github.com/codesearch/hybridcore/internal/embed"
)

// Chunk is the minimal view the semantic engine needs of an indexed
// chunk: identity, location, and its vector.
type Chunk struct {
	Path      string
	ByteStart int
	ByteEnd   int
	LineStart int
	LineEnd   int
	ChunkHash uint64
	Embedding []float32
}

// Result is one ranked semantic hit.
type Result struct {
	Chunk Chunk
	Score float32
}

// NearMiss is the highest-scoring chunk filtered out by threshold,
// returned as a diagnostic hint when the result set is otherwise empty.
type NearMiss struct {
	Chunk Chunk
	Score float32
}

// Options configures one semantic query.
type Options struct {
	Threshold float32
	TopK      int
	Rerank    bool
	RerankR   int // multiplier on TopK for the reranker candidate pool, default 3
}

// Search embeds query with the provider's query role, scans chunks for
// cosine similarity above Options.Threshold, and returns results sorted
// by score descending with (path, byte_start) tie-break, truncated to
// top_k. If reranker is non-nil and
// Options.Rerank is set, Search instead returns the top (k*r) candidate
// pool unsorted-by-rerank-score; the caller passes that pool to Rerank
// below, with each chunk's realized snippet text, then truncates to k.
func Search(ctx context.Context, provider embed.Provider, reranker embed.Reranker, query string, chunks []Chunk, opts Options) ([]Result, *NearMiss, error) {
	queryVec, err := embed.EmbedQuery(ctx, provider, query)
	if err != nil {
		return nil, nil, err
	}

	if len(queryVec) != provider.Dimensions() {
		return nil, nil, coreerr.ModelMismatch("query", provider.ModelID())
	}

	type scored struct {
		chunk Chunk
		score float32
	}

	all := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != len(queryVec) {
			return nil, nil, coreerr.SchemaIncompatible(c.Path, uint32(len(c.Embedding)), uint32(len(queryVec)))
		}
		all = append(all, scored{chunk: c, score: cosine(queryVec, c.Embedding)})
	}

	sortScored := func(s []scored) {
		sort.SliceStable(s, func(i, j int) bool {
			if s[i].score != s[j].score {
				return s[i].score > s[j].score
			}
			if s[i].chunk.Path != s[j].chunk.Path {
				return s[i].chunk.Path < s[j].chunk.Path
			}
			return s[i].chunk.ByteStart < s[j].chunk.ByteStart
		})
	}
	sortScored(all)

	var passing []scored
	var nearMiss *NearMiss
	for _, s := range all {
		if s.score >= opts.Threshold {
			passing = append(passing, s)
		} else if nearMiss == nil {
			nearMiss = &NearMiss{Chunk: s.chunk, Score: s.score}
		}
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 20
	}

	if len(passing) == 0 {
		return nil, nearMiss, nil
	}

	// Reranking needs each candidate's realized snippet text, which this
	// package does not read from source; internal/service calls the
	// Rerank function below on the candidate pool before final
	// truncation when Options.Rerank is set.
	if opts.Rerank && reranker != nil {
		r := opts.RerankR
		if r <= 0 {
			r = 3
		}
		poolSize := topK * r
		if poolSize > len(passing) {
			poolSize = len(passing)
		}
		passing = passing[:poolSize]
	} else if len(passing) > topK {
		passing = passing[:topK]
	}

	out := make([]Result, len(passing))
	for i, s := range passing {
		out[i] = Result{Chunk: s.chunk, Score: s.score}
	}
	return out, nearMiss, nil
}

// cosine computes cosine similarity between two equal-length vectors.
func cosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Rerank rescores (query, passage) pairs with a cross-encoder and
// returns the pairs sorted by cross-encoder score descending, truncated
// to topK. Exposed separately from Search because reranking needs the
// chunk's realized snippet text, which the caller (internal/hybrid)
// reads from source, not the semantic engine.
func Rerank(ctx context.Context, reranker embed.Reranker, query string, candidates []Result, passages []string, topK int) ([]Result, error) {
	if len(candidates) != len(passages) {
		return nil, coreerr.InvalidInput("rerank", "candidates and passages length mismatch")
	}
	scores, err := reranker.Score(ctx, query, passages)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(candidates) {
		return nil, coreerr.InvalidInput("rerank", "reranker returned an unexpected number of scores")
	}

	reranked := make([]Result, len(candidates))
	for i, c := range candidates {
		reranked[i] = Result{Chunk: c.Chunk, Score: scores[i]}
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		if reranked[i].Chunk.Path != reranked[j].Chunk.Path {
			return reranked[i].Chunk.Path < reranked[j].Chunk.Path
		}
		return reranked[i].Chunk.ByteStart < reranked[j].Chunk.ByteStart
	})
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked, nil
}
