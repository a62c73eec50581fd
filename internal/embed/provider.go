package embed

import (
	"context"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// EmbedMode specifies the type of embedding to generate.
type EmbedMode string

const (
	// EmbedModeQuery generates embeddings optimized for search queries.
	// Use this when embedding user questions or search terms.
	EmbedModeQuery EmbedMode = "query"

	// EmbedModePassage generates embeddings optimized for document passages.
	// Use this when embedding code chunks, documentation, or any searchable content.
	EmbedModePassage EmbedMode = "passage"
)

// Provider defines the interface for embedding text into vectors.
// Implementations may use local models, remote APIs, or other embedding
// services. Passage and query embedding are exposed as the
// EmbedPassages/EmbedQuery free functions below rather than as two
// interface methods, since every variant shares one role-prompting Embed
// call and differs only in which mode it is given.
type Provider interface {
	// Initialize prepares the provider for use (starting a local daemon,
	// verifying reachability of a remote endpoint). A no-op after the
	// first successful call.
	Initialize(ctx context.Context) error

	// Embed converts a slice of text strings into their vector representations.
	// The mode parameter specifies whether embeddings are for queries or passages.
	// Returns a slice of vectors where each vector is a slice of float32 values.
	Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error)

	// Dimensions returns the dimensionality of the embedding vectors produced by this provider.
	Dimensions() int

	// ModelID identifies the loaded model, stamped into the manifest at
	// index creation and compared against a requested model on reindex.
	ModelID() string

	// MaxInputTokens is the model's maximum context, consulted by the
	// chunker to decide when to stride a chunk (chunker.Capability).
	MaxInputTokens() int

	// Close releases any resources held by the provider.
	// For local providers, this may include stopping background processes.
	Close() error
}

// EmbedPassages embeds a batch of document passages. The texts are not
// length-checked here: each one goes to the provider as given, so a text
// over the provider's MaxInputTokens is neither rejected nor truncated by
// this function. Oversize chunks are strided upstream (internal/chunker).
func EmbedPassages(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	return p.Embed(ctx, texts, EmbedModePassage)
}

// EmbedQuery embeds a single query string.
func EmbedQuery(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text}, EmbedModeQuery)
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, coreerr.IoError("embed_query", coreerr.InvalidInput("embed_query", "provider returned an unexpected number of vectors"))
	}
	return vecs[0], nil
}
