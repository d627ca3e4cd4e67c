package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteConfig holds the settings for constructing a RemoteEmbedder.
type RemoteConfig struct {
	// Endpoint is the embeddings API URL (e.g. "https://api.openai.com/v1/embeddings").
	Endpoint string
	// APIKey is the Bearer token sent with every request.
	APIKey string
	// Model is the embedding model name.
	Model string
}

// RemoteEmbedder implements Embedder against an OpenAI-compatible embeddings
// REST API. It is safe for concurrent use.
type RemoteEmbedder struct {
	// endpoint is the embeddings API URL.
	endpoint string
	// apiKey is the Bearer token.
	apiKey string
	// model is the embedding model name.
	model string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// NewRemoteEmbedder constructs a RemoteEmbedder from the given config.
func NewRemoteEmbedder(cfg *RemoteConfig) *RemoteEmbedder {
	return &RemoteEmbedder{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// embedRequest is the JSON body sent to the embeddings endpoint.
type embedRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

// embedResponse is the JSON body returned from the embeddings endpoint.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed sends text to the remote embeddings endpoint and returns the single
// resulting vector. It fails when the call errors, the response is
// malformed, the response does not carry exactly one embedding, or the
// vector's length differs from Dimensions — callers (the Provider wrapper)
// treat any such failure as a fallback trigger, not a terminal error.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Input: text, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedder: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("embedder: %s", msg)
	}

	if len(result.Data) != 1 {
		return nil, fmt.Errorf("embedder: expected 1 embedding, got %d", len(result.Data))
	}
	vec := result.Data[0].Embedding
	if err := validateVector(vec); err != nil {
		return nil, err
	}

	return vec, nil
}
