package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/nikzart/excellor-ai/internal/corpus"
	"github.com/nikzart/excellor-ai/internal/embedder"
	"github.com/nikzart/excellor-ai/internal/retrieval"
)

// openCorpus opens the corpus store at EXCELLOR_CORPUS_DB or the default
// per-user path, creating the database on first use.
func openCorpus(log *slog.Logger) (*corpus.Store, error) {
	path := os.Getenv("EXCELLOR_CORPUS_DB")
	if path == "" {
		var err error
		path, err = corpus.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolving corpus path: %w", err)
		}
	}

	store, err := corpus.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus at %s: %w", path, err)
	}
	log.Debug("corpus opened", slog.String("path", path))
	return store, nil
}

// engineOptions translates SEARCH_TOP_K and SEARCH_THRESHOLD into retrieval
// engine options. Unset or unparsable values keep the engine defaults.
func engineOptions(log *slog.Logger) []retrieval.EngineOption {
	var opts []retrieval.EngineOption

	if raw := os.Getenv("SEARCH_TOP_K"); raw != "" {
		if k, err := strconv.Atoi(raw); err == nil && k > 0 {
			opts = append(opts, retrieval.WithTopK(k))
		} else {
			log.Warn("ignoring invalid SEARCH_TOP_K", slog.String("value", raw))
		}
	}
	if raw := os.Getenv("SEARCH_THRESHOLD"); raw != "" {
		if th, err := strconv.ParseFloat(raw, 64); err == nil && th > 0 {
			opts = append(opts, retrieval.WithThreshold(th))
		} else {
			log.Warn("ignoring invalid SEARCH_THRESHOLD", slog.String("value", raw))
		}
	}
	return opts
}

// newEmbedder builds the embedding provider from the environment, logging
// at startup whether the remote path is available.
func newEmbedder(log *slog.Logger, opts ...embedder.ProviderOption) *embedder.Provider {
	if os.Getenv("EMBEDDING_API_KEY") == "" {
		log.Warn("EMBEDDING_API_KEY not set, using deterministic local embeddings")
	}
	return embedder.NewFromEnv(append([]embedder.ProviderOption{embedder.WithLogger(log)}, opts...)...)
}
