package embed

import (
	"fmt"
	"time"
)

// Config contains configuration for creating an embedding provider.
type Config struct {
	// Provider specifies which embedding provider to use ("local", "remote", "mock")
	Provider string

	// ModelID names the model to load/request (e.g. "bge-small-en-v1.5").
	ModelID string

	// Endpoint is the base URL for the embedding service (remote provider).
	Endpoint string

	// APIKey authenticates against a remote provider.
	APIKey string

	// BatchSize bounds how many texts go into one remote request.
	BatchSize int

	// RequestTimeout bounds a single remote HTTP call.
	RequestTimeout time.Duration
}

// NewProvider creates an embedding provider based on the configuration.
// Supports "local" (platform model cache + daemon), "remote" (hosted
// HTTP embeddings API), and "mock" (deterministic, for tests).
func NewProvider(config Config) (Provider, error) {
	modelID := config.ModelID
	if modelID == "" {
		modelID = "bge-small-en-v1.5"
	}

	switch config.Provider {
	case "local", "": // empty defaults to local
		return newLocalProvider(modelID)

	case "remote":
		if config.Endpoint == "" {
			return nil, fmt.Errorf("remote embedding provider requires an endpoint")
		}
		return newRemoteProvider(config)

	case "mock": // for testing
		return newMockProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: local, remote, mock)", config.Provider)
	}
}

// RerankerConfig configures the optional cross-encoder reranking stage.
type RerankerConfig struct {
	Provider       string // "remote", "mock", or "none"/"" for no reranker
	ModelID        string
	Endpoint       string
	APIKey         string
	RequestTimeout time.Duration
}

// NewReranker creates a Reranker, or nil if config.Provider is
// "none" or empty (reranking is optional and off by default).
func NewReranker(config RerankerConfig) (Reranker, error) {
	switch config.Provider {
	case "", "none":
		return nil, nil
	case "remote":
		if config.Endpoint == "" {
			return nil, fmt.Errorf("remote reranker requires an endpoint")
		}
		return newRemoteReranker(config), nil
	case "mock":
		return newMockReranker(), nil
	default:
		return nil, fmt.Errorf("unsupported reranker provider: %s (supported: remote, mock, none)", config.Provider)
	}
}
