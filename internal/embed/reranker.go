package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// Reranker is the optional cross-encoder second stage: given one query
// and many candidate passages, produce one relevance score per passage.
// Used only at query time, after a first-stage retrieval has already
// narrowed the candidate set.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float32, error)
	Close() error
}

type remoteReranker struct {
	endpoint string
	apiKey   string
	modelID  string
	client   *http.Client
	backoff  backoffPolicy
}

func newRemoteReranker(cfg RerankerConfig) *remoteReranker {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &remoteReranker{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		modelID:  cfg.ModelID,
		client:   &http.Client{Timeout: timeout},
		backoff:  defaultBackoff(),
	}
}

type rerankRequest struct {
	Model    string   `json:"model"`
	Query    string   `json:"query"`
	Passages []string `json:"passages"`
}

type rerankResponse struct {
	Scores []float32 `json:"scores"`
}

func (r *remoteReranker) Score(ctx context.Context, query string, passages []string) ([]float32, error) {
	var scores []float32
	attempt := 0

	err := r.backoff.run(ctx, isRetryableStatus, func() error {
		attempt++
		s, err := r.doRequest(ctx, query, passages, attempt)
		if err != nil {
			return err
		}
		scores = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

func (r *remoteReranker) doRequest(ctx context.Context, query string, passages []string, attempt int) ([]float32, error) {
	data, err := json.Marshal(rerankRequest{Model: r.modelID, Query: query, Passages: passages})
	if err != nil {
		return nil, coreerr.InvalidInput("rerank_request", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/rerank", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, coreerr.Unavailable(r.endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, coreerr.RateLimited(r.endpoint, attempt)
	case resp.StatusCode >= 500:
		return nil, coreerr.Unavailable(r.endpoint, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, coreerr.InvalidInput("rerank_request", fmt.Sprintf("reranker returned status %d", resp.StatusCode))
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, coreerr.Unavailable(r.endpoint, err)
	}
	return decoded.Scores, nil
}

func (r *remoteReranker) Close() error { return nil }

// mockReranker scores passages by how many of the query's tokens they
// contain, case-insensitively — deterministic and dependency-free for
// tests that exercise the hybrid fuser's rerank stage without a live model.
type mockReranker struct{}

func newMockReranker() *mockReranker { return &mockReranker{} }

func (m *mockReranker) Score(ctx context.Context, query string, passages []string) ([]float32, error) {
	queryTokens := tokenize(query)
	scores := make([]float32, len(passages))
	for i, p := range passages {
		passageTokens := tokenizeSet(p)
		var hits int
		for _, t := range queryTokens {
			if passageTokens[t] {
				hits++
			}
		}
		if len(queryTokens) > 0 {
			scores[i] = float32(hits) / float32(len(queryTokens))
		}
	}
	return scores, nil
}

func (m *mockReranker) Close() error { return nil }
