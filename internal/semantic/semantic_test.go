package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesearch/hybridcore/internal/embed"
)

func mockProviderWithVecs() embed.Provider {
	return embed.NewMockProvider()
}

func TestSearchRanksByCosineDescending(t *testing.T) {
	ctx := context.Background()
	provider := mockProviderWithVecs()
	require.NoError(t, provider.Initialize(ctx))

	queryVec, err := embed.EmbedQuery(ctx, provider, "needle")
	require.NoError(t, err)

	chunks := []Chunk{
		{Path: "b.go", ByteStart: 0, Embedding: queryVec},
		{Path: "a.go", ByteStart: 0, Embedding: negate(queryVec)},
	}

	results, _, err := Search(ctx, provider, nil, "needle", chunks, Options{Threshold: -2, TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b.go", results[0].Chunk.Path)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestSearchAppliesThresholdAndReturnsNearMiss(t *testing.T) {
	ctx := context.Background()
	provider := mockProviderWithVecs()
	require.NoError(t, provider.Initialize(ctx))

	queryVec, err := embed.EmbedQuery(ctx, provider, "needle")
	require.NoError(t, err)

	chunks := []Chunk{
		{Path: "a.go", ByteStart: 0, Embedding: negate(queryVec)},
	}

	results, nearMiss, err := Search(ctx, provider, nil, "needle", chunks, Options{Threshold: 0.9, TopK: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
	require.NotNil(t, nearMiss)
	assert.Equal(t, "a.go", nearMiss.Chunk.Path)
}

func TestSearchTieBreaksByPathThenByteStart(t *testing.T) {
	ctx := context.Background()
	provider := mockProviderWithVecs()
	require.NoError(t, provider.Initialize(ctx))

	queryVec, err := embed.EmbedQuery(ctx, provider, "needle")
	require.NoError(t, err)

	chunks := []Chunk{
		{Path: "z.go", ByteStart: 10, Embedding: queryVec},
		{Path: "a.go", ByteStart: 20, Embedding: queryVec},
		{Path: "a.go", ByteStart: 5, Embedding: queryVec},
	}

	results, _, err := Search(ctx, provider, nil, "needle", chunks, Options{Threshold: -2, TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a.go", results[0].Chunk.Path)
	assert.Equal(t, 5, results[0].Chunk.ByteStart)
	assert.Equal(t, "a.go", results[1].Chunk.Path)
	assert.Equal(t, 20, results[1].Chunk.ByteStart)
	assert.Equal(t, "z.go", results[2].Chunk.Path)
}

func TestSearchRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	provider := mockProviderWithVecs()
	require.NoError(t, provider.Initialize(ctx))

	chunks := []Chunk{{Path: "a.go", Embedding: []float32{1, 2}}}

	_, _, err := Search(ctx, provider, nil, "needle", chunks, Options{Threshold: 0, TopK: 10})
	assert.Error(t, err)
}

func negate(v []float32) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = -f
	}
	return out
}
