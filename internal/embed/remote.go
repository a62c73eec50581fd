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

// remoteProvider calls a hosted HTTP embeddings API: batches requests,
// retries rate-limited or transiently unavailable responses with
// exponential backoff and jitter, and surfaces a typed RateLimited or
// Unavailable error once attempts are exhausted.
type remoteProvider struct {
	endpoint   string
	apiKey     string
	modelID    string
	batchSize  int
	dimensions int
	maxTokens  int
	client     *http.Client
	backoff    backoffPolicy
}

func newRemoteProvider(cfg Config) (*remoteProvider, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "bge-small-en-v1.5"
	}
	return &remoteProvider{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		modelID:    modelID,
		batchSize:  batchSize,
		dimensions: 384,
		maxTokens:  8192,
		client:     &http.Client{Timeout: timeout},
		backoff:    defaultBackoff(),
	}, nil
}

type remoteEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	Mode  string   `json:"mode"`
}

type remoteEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Initialize is a no-op; a remote provider's endpoint is assumed
// reachable and is verified lazily on the first real request.
func (p *remoteProvider) Initialize(ctx context.Context) error { return nil }

func (p *remoteProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedBatch(ctx, texts[start:end], mode)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (p *remoteProvider) embedBatch(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	var result [][]float32
	attempt := 0

	err := p.backoff.run(ctx, isRetryableStatus, func() error {
		attempt++
		vecs, err := p.doRequest(ctx, texts, mode, attempt)
		if err != nil {
			return err
		}
		result = vecs
		return nil
	})
	if err != nil {
		if rl, ok := err.(*coreerr.Error); ok {
			return nil, rl
		}
		return nil, coreerr.Unavailable(p.endpoint, err)
	}
	return result, nil
}

func (p *remoteProvider) doRequest(ctx context.Context, texts []string, mode EmbedMode, attempt int) ([][]float32, error) {
	reqBody := remoteEmbedRequest{Model: p.modelID, Input: texts, Mode: string(mode)}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, coreerr.InvalidInput("embed_request", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, coreerr.Unavailable(p.endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, coreerr.RateLimited(p.endpoint, attempt)
	case resp.StatusCode >= 500:
		return nil, coreerr.Unavailable(p.endpoint, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, coreerr.InvalidInput("embed_request", fmt.Sprintf("remote provider returned status %d", resp.StatusCode))
	}

	var decoded remoteEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, coreerr.Unavailable(p.endpoint, err)
	}
	return decoded.Embeddings, nil
}

func isRetryableStatus(err error) bool {
	ce, ok := err.(*coreerr.Error)
	if !ok {
		return false
	}
	return ce.Kind == coreerr.KindRateLimited || ce.Kind == coreerr.KindUnavailable
}

func (p *remoteProvider) Dimensions() int     { return p.dimensions }
func (p *remoteProvider) ModelID() string     { return p.modelID }
func (p *remoteProvider) MaxInputTokens() int { return p.maxTokens }
func (p *remoteProvider) Close() error        { return nil }
