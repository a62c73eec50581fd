package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/codesearch/hybridcore/internal/chunker"
	"github.com/codesearch/hybridcore/internal/embed"
	"github.com/codesearch/hybridcore/internal/lexical"
	"github.com/codesearch/hybridcore/internal/sidecar"
)

// MaxConcurrentFiles bounds the worker pool processing changed files in
// parallel.
const MaxConcurrentFiles = 8

// processResult is what one file's parse -> chunk -> embed -> write
// pipeline produces, funneled back to the orchestrator for manifest and
// stats bookkeeping.
type processResult struct {
	path        string
	contentHash string
	chunkCount  int
	lexDocs     []lexical.Document
	err         error
}

// processFiles runs the chunk -> embed -> sidecar-write pipeline over
// files concurrently, bounded by MaxConcurrentFiles via a
// golang.org/x/sync/semaphore-gated fan-out.
func (ix *Indexer) processFiles(ctx context.Context, files []detectedFile) []processResult {
	sem := semaphore.NewWeighted(MaxConcurrentFiles)
	results := make([]processResult, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = processResult{path: f.Path, err: err}
			continue
		}
		wg.Add(1)
		go func(i int, f detectedFile) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = ix.processOne(ctx, f)
		}(i, f)
	}
	wg.Wait()
	return results
}

func (ix *Indexer) processOne(ctx context.Context, f detectedFile) processResult {
	if !f.IsText {
		return ix.processNonText(ctx, f)
	}

	source, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return processResult{path: f.Path, err: err}
	}

	chunks, err := chunker.ChunkFile(f.Language, source, ix.capability)
	if err != nil {
		return processResult{path: f.Path, err: err}
	}

	entry := &sidecar.Entry{
		Path:        f.Path,
		ContentHash: f.ContentHash,
		Language:    f.Language,
		IsText:      true,
	}

	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}

	var embeddings [][]float32
	if ix.provider != nil && len(texts) > 0 {
		embeddings, err = embed.EmbedBatched(ctx, ix.provider, texts, embed.DefaultBatchSize, func(p embed.BatchProgress) {
			ix.progress.OnEmbedBatch(f.Path, p.ProcessedChunks, p.TotalChunks)
		})
		if err != nil {
			return processResult{path: f.Path, err: err}
		}
		entry.EmbeddingDim = ix.provider.Dimensions()
	}

	lexDocs := make([]lexical.Document, 0, len(chunks))
	for i, c := range chunks {
		var vec []float32
		if embeddings != nil {
			vec = embeddings[i]
		}
		entry.Chunks = append(entry.Chunks, sidecar.ChunkRecord{
			Span:       c.Span,
			Kind:       c.Kind,
			Breadcrumb: c.Breadcrumb,
			Text:       c.Text,
			TokenCount: c.TokenEstimate,
			ChunkHash:  sidecar.ChunkHash(c.Text),
			Embedding:  vec,
		})
		lexDocs = append(lexDocs, lexical.Document{
			ID:      lexicalID(f.Path, c.Span.ByteStart),
			Path:    f.Path,
			Content: c.Text,
		})
	}

	if err := ix.sidecarStore.Write(entry); err != nil {
		return processResult{path: f.Path, err: err}
	}

	return processResult{path: f.Path, contentHash: f.ContentHash, chunkCount: len(chunks), lexDocs: lexDocs}
}

// processNonText handles a non-text source file: reuse a previously
// cached extraction keyed by content hash, or produce one and record
// it, then index the extracted text as a single whole-file chunk. No
// format-specific extraction library is wired in yet, so extraction
// here is a pass-through of the source bytes; what this path actually
// exercises is the cache's reuse-by-content-hash and orphan-cleanup
// contract, which is format-agnostic (see DESIGN.md).
func (ix *Indexer) processNonText(ctx context.Context, f detectedFile) processResult {
	var text string
	var cachePath string

	if ix.contentCache != nil {
		if cached, found, err := ix.contentCache.Lookup(f.ContentHash); err == nil && found {
			if data, err := os.ReadFile(filepath.Join(ix.contentCache.Root(), cached)); err == nil {
				text, cachePath = string(data), cached
			}
		}
	}

	if cachePath == "" {
		raw, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return processResult{path: f.Path, err: err}
		}
		text = string(raw)

		if ix.contentCache != nil {
			cachePath = f.Path + ".extracted"
			fullPath := filepath.Join(ix.contentCache.Root(), cachePath)
			if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
				return processResult{path: f.Path, err: err}
			}
			if err := os.WriteFile(fullPath, raw, 0644); err != nil {
				return processResult{path: f.Path, err: err}
			}
			if err := ix.contentCache.Record(f.ContentHash, f.Path, cachePath); err != nil {
				return processResult{path: f.Path, err: err}
			}
		}
	}

	entry := &sidecar.Entry{
		Path:             f.Path,
		ContentHash:      f.ContentHash,
		Language:         f.Language,
		IsText:           false,
		ContentCachePath: cachePath,
	}

	span := chunker.Span{ByteStart: 0, ByteEnd: len(text), LineStart: 1, LineEnd: strings.Count(text, "\n") + 1}
	chunkRec := sidecar.ChunkRecord{Span: span, Kind: chunker.KindText, Text: text, ChunkHash: sidecar.ChunkHash(text)}

	if ix.provider != nil && text != "" {
		embeddings, err := embed.EmbedPassages(ctx, ix.provider, []string{text})
		if err != nil {
			return processResult{path: f.Path, err: err}
		}
		chunkRec.Embedding = embeddings[0]
		entry.EmbeddingDim = ix.provider.Dimensions()
	}

	entry.Chunks = []sidecar.ChunkRecord{chunkRec}
	if err := ix.sidecarStore.Write(entry); err != nil {
		return processResult{path: f.Path, err: err}
	}

	lexDocs := []lexical.Document{{ID: lexicalID(f.Path, 0), Path: f.Path, Content: text}}
	return processResult{path: f.Path, contentHash: f.ContentHash, chunkCount: 1, lexDocs: lexDocs}
}

func lexicalID(path string, byteStart int) string {
	return path + "#" + strconv.Itoa(byteStart)
}
