// Package retrieval answers similarity queries against the corpus.
//
// A search embeds the query, scores it against every stored chunk vector by
// cosine similarity, and returns the best matches above a relevance
// threshold. When the semantic pass finds nothing at all the engine falls
// back to lexical fuzzy matching over the chunk text, so a query still
// surfaces results when the query vector came from the hash fallback and
// shares no geometry with remotely embedded chunks. Callers see one ranked
// result list either way.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nikzart/excellor-ai/internal/corpus"
	"github.com/nikzart/excellor-ai/internal/embedder"
	"github.com/nikzart/excellor-ai/internal/logging"
)

const (
	// DefaultTopK is the number of results returned when the caller does
	// not ask for a specific count.
	DefaultTopK = 3

	// DefaultThreshold is the minimum cosine similarity a chunk must
	// strictly exceed to count as a semantic match.
	DefaultThreshold = 0.3
)

// Result is one ranked retrieval hit.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Page       int     `json:"page"`
	Position   int     `json:"position"`
	Score      float64 `json:"score"`
}

// EmbeddingSource yields every embedding record in the corpus.
type EmbeddingSource interface {
	IterateEmbeddings(ctx context.Context) ([]corpus.EmbeddingRecord, error)
}

// Engine scores queries against a corpus of embedded chunks.
type Engine struct {
	embedder  embedder.Embedder
	source    EmbeddingSource
	topK      int
	threshold float64

	lexicalTotal prometheus.Counter
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTopK overrides the default result count.
func WithTopK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithThreshold overrides the default similarity threshold.
func WithThreshold(t float64) EngineOption {
	return func(e *Engine) {
		if t > 0 {
			e.threshold = t
		}
	}
}

// WithEngineMetrics registers a lexical-fallback counter on reg.
func WithEngineMetrics(reg prometheus.Registerer) EngineOption {
	return func(e *Engine) {
		e.lexicalTotal = promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "excellor_search_lexical_fallback_total",
			Help: "Searches answered by the lexical fallback after the semantic pass found nothing.",
		})
	}
}

// NewEngine builds an Engine over the given embedder and embedding source.
func NewEngine(emb embedder.Embedder, source EmbeddingSource, opts ...EngineOption) *Engine {
	e := &Engine{
		embedder:  emb,
		source:    source,
		topK:      DefaultTopK,
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns up to the engine's topK chunks ranked by relevance to
// query. Semantic matches must strictly exceed the similarity threshold;
// when none do, the lexical fallback ranks chunks by fuzzy token overlap
// instead. An empty corpus yields an empty slice. Search never mutates the
// corpus.
func (e *Engine) Search(ctx context.Context, query string) ([]Result, error) {
	return e.SearchWith(ctx, query, e.topK, e.threshold)
}

// SearchWith is Search with per-call topK and threshold overrides. Values
// of zero or below fall back to the engine's configured defaults.
func (e *Engine) SearchWith(ctx context.Context, query string, topK int, threshold float64) ([]Result, error) {
	log := logging.FromContext(ctx)
	if topK <= 0 {
		topK = e.topK
	}
	if threshold <= 0 {
		threshold = e.threshold
	}

	records, err := e.source.IterateEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus embeddings: %w", err)
	}
	if len(records) == 0 {
		return []Result{}, nil
	}

	// An embedding failure is not fatal: the lexical pass below still
	// produces results, the same as a semantic pass that matched nothing.
	qvec, embedErr := e.embedder.Embed(ctx, query)
	if embedErr == nil {
		if results := semantic(qvec, records, topK, threshold); len(results) > 0 {
			return results, nil
		}
	}

	log.Warn("semantic search found no matches, using lexical fallback",
		"query_len", len(query),
		"corpus_size", len(records),
		"embed_error", embedErr)
	if e.lexicalTotal != nil {
		e.lexicalTotal.Inc()
	}
	return lexical(query, records, topK), nil
}

func semantic(qvec []float32, records []corpus.EmbeddingRecord, topK int, threshold float64) []Result {
	scored := make([]Result, 0, len(records))
	for _, rec := range records {
		score := CosineSimilarity(qvec, rec.Vector)
		if score <= threshold {
			continue
		}
		scored = append(scored, resultFrom(rec, score))
	}
	return rank(scored, topK)
}

func lexical(query string, records []corpus.EmbeddingRecord, topK int) []Result {
	scored := make([]Result, 0, len(records))
	for _, rec := range records {
		score := lexicalScore(query, rec.Content)
		if score <= 0 {
			continue
		}
		scored = append(scored, resultFrom(rec, score))
	}
	return rank(scored, topK)
}

// rank sorts results by score descending, preserving corpus order on ties,
// and truncates to topK.
func rank(scored []Result, topK int) []Result {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func resultFrom(rec corpus.EmbeddingRecord, score float64) Result {
	return Result{
		ChunkID:    rec.ChunkID,
		DocumentID: rec.DocumentID,
		Content:    rec.Content,
		Source:     rec.Source,
		Page:       rec.Page,
		Position:   rec.Position,
		Score:      score,
	}
}

// FormatContext renders results as a citation block suitable for priming a
// chat model, each snippet attributed by source name and page.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant course material:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "\n[%s, page %d]\n%s\n", r.Source, r.Page, r.Content)
	}
	return b.String()
}
