// Package embedder converts text into dense vector embeddings for the
// retrieval pipeline. The primary path calls a remote embedding service via
// plain HTTP — no SDK dependency required. When the remote path is
// unavailable or returns an invalid result, a deterministic local fallback
// produces a lexical hash vector instead, so embedding never fails and every
// stored chunk always carries a vector of the same dimensionality.
package embedder

import (
	"context"
	"fmt"
	"os"
)

// Dimensions is the fixed embedding vector length. It matches the output
// size of the deployed embedding model (text-embedding-3-large); the
// fallback generator produces vectors of the same length so semantic and
// degraded vectors are interchangeable at the storage layer.
const Dimensions = 3072

// defaultEndpoint is the embeddings API URL used when EMBEDDING_ENDPOINT is unset.
const defaultEndpoint = "https://api.openai.com/v1/embeddings"

// defaultModel is the embedding model used when EMBEDDING_MODEL is unset.
const defaultModel = "text-embedding-3-large"

// Embedder converts a single text into its embedding vector.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewFromEnv constructs the degradation-aware [*Provider] from environment
// variables:
//
//	EMBEDDING_ENDPOINT  embeddings API URL (default: OpenAI)
//	EMBEDDING_MODEL     embedding model name (default: text-embedding-3-large)
//	EMBEDDING_API_KEY   service credential; when unset the remote path is
//	                    skipped entirely and every embedding is a fallback vector
func NewFromEnv(opts ...ProviderOption) *Provider {
	var remote Embedder
	if apiKey := os.Getenv("EMBEDDING_API_KEY"); apiKey != "" {
		remote = NewRemoteEmbedder(&RemoteConfig{
			Endpoint: envOrDefault("EMBEDDING_ENDPOINT", defaultEndpoint),
			Model:    envOrDefault("EMBEDDING_MODEL", defaultModel),
			APIKey:   apiKey,
		})
	}
	return NewProvider(remote, opts...)
}

// envOrDefault returns the named environment variable or fallback when unset.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// validateVector checks that a vector has the fixed dimensionality.
func validateVector(vec []float32) error {
	if len(vec) != Dimensions {
		return fmt.Errorf("embedder: got %d dimensions, want %d", len(vec), Dimensions)
	}
	return nil
}
