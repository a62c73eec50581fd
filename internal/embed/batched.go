package embed

import (
	"context"
	"fmt"
)

// DefaultBatchSize is how many chunks EmbedBatched embeds per call when
// a file has enough chunks to make progress reporting worthwhile.
const DefaultBatchSize = 50

// BatchProgress reports how far an EmbedBatched call has gotten through
// one file's chunks.
type BatchProgress struct {
	BatchIndex      int // current batch, 1-indexed
	TotalBatches    int
	ProcessedChunks int
	TotalChunks     int
}

// EmbedBatched embeds texts batchSize at a time via EmbedPassages,
// invoking onProgress after each batch so a caller indexing a file with
// thousands of chunks can report sub-progress instead of blocking
// silently on one giant Embed call. onProgress may be nil.
//
// ctx cancellation is checked between batches; a batch already in
// flight runs to completion.
func EmbedBatched(
	ctx context.Context,
	provider Provider,
	texts []string,
	batchSize int,
	onProgress func(BatchProgress),
) ([][]float32, error) {
	total := len(texts)
	if total == 0 {
		return [][]float32{}, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	numBatches := (total + batchSize - 1) / batchSize
	results := make([][]float32, total)
	processed := 0

	for batchIdx := 0; batchIdx < numBatches; batchIdx++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := batchIdx * batchSize
		end := start + batchSize
		if end > total {
			end = total
		}

		embeddings, err := EmbedPassages(ctx, provider, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d/%d: %w", batchIdx+1, numBatches, err)
		}
		copy(results[start:end], embeddings)

		processed += end - start
		if onProgress != nil {
			onProgress(BatchProgress{
				BatchIndex:      batchIdx + 1,
				TotalBatches:    numBatches,
				ProcessedChunks: processed,
				TotalChunks:     total,
			})
		}
	}

	return results, nil
}
