package retrieval

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/nikzart/excellor-ai/internal/corpus"
)

type fixedEmbedder struct {
	vec []float32
	err error
}

func (f *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

type staticSource struct {
	records []corpus.EmbeddingRecord
	err     error
}

func (s *staticSource) IterateEmbeddings(_ context.Context) ([]corpus.EmbeddingRecord, error) {
	return s.records, s.err
}

func record(id, content string, vec []float32) corpus.EmbeddingRecord {
	return corpus.EmbeddingRecord{
		ChunkID:    id,
		DocumentID: "doc-1",
		Content:    content,
		Source:     "biology.pdf",
		Page:       1,
		Format:     "pdf",
		Vector:     vec,
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	t.Parallel()

	v := []float32{0.267261, 0.534522, 0.801784}
	if got := CosineSimilarity(v, v); math.Abs(got-1) > 1e-6 {
		t.Errorf("CosineSimilarity(v, v) = %v, want 1", got)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	t.Parallel()

	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := CosineSimilarity(a, b); got != 0 {
		t.Errorf("CosineSimilarity = %v, want 0", got)
	}
}

func TestCosineSimilarityDegenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
	}{
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}},
		{"both empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("CosineSimilarity = %v, want 0", got)
			}
		})
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	t.Parallel()

	src := &staticSource{records: []corpus.EmbeddingRecord{
		record("c1", "weak match", []float32{0.4, 0.9165}),
		record("c2", "exact match", []float32{1, 0}),
		record("c3", "good match", []float32{0.9, 0.4359}),
	}}
	eng := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, src)

	results, err := eng.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	wantOrder := []string{"c2", "c3", "c1"}
	for i, want := range wantOrder {
		if results[i].ChunkID != want {
			t.Errorf("results[%d].ChunkID = %q, want %q", i, results[i].ChunkID, want)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted descending at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestSearchThresholdIsStrict(t *testing.T) {
	t.Parallel()

	// 36.87 degrees off the query axis gives cosine exactly 0.8.
	src := &staticSource{records: []corpus.EmbeddingRecord{
		record("at-threshold", "sits exactly on the line", []float32{0.8, 0.6}),
	}}
	eng := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, src, WithThreshold(0.8))

	// The query shares no words with the chunk, so the lexical fallback
	// cannot rescue it either: a score equal to the threshold must yield
	// nothing.
	results, err := eng.Search(context.Background(), "zzz qqq xxx")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("chunk scoring exactly the threshold leaked through: %+v", results)
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	t.Parallel()

	records := make([]corpus.EmbeddingRecord, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, record("c"+string(rune('0'+i)), "match", []float32{1, 0}))
	}
	eng := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, &staticSource{records: records}, WithTopK(2))

	results, err := eng.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestSearchPreservesOrderOnTies(t *testing.T) {
	t.Parallel()

	src := &staticSource{records: []corpus.EmbeddingRecord{
		record("first", "tie", []float32{1, 0}),
		record("second", "tie", []float32{1, 0}),
		record("third", "tie", []float32{1, 0}),
	}}
	eng := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, src)

	results, err := eng.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if results[i].ChunkID != want {
			t.Errorf("results[%d].ChunkID = %q, want %q (ties must keep corpus order)", i, results[i].ChunkID, want)
		}
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	t.Parallel()

	eng := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, &staticSource{})

	results, err := eng.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty corpus, want 0", len(results))
	}
}

func TestSearchSourceError(t *testing.T) {
	t.Parallel()

	eng := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, &staticSource{err: errors.New("db locked")})

	if _, err := eng.Search(context.Background(), "query"); err == nil {
		t.Fatal("expected error when the embedding source fails")
	}
}

func TestSearchLexicalFallback(t *testing.T) {
	t.Parallel()

	// The query vector is orthogonal to every stored vector, so the
	// semantic pass scores everything at 0 and the lexical pass decides.
	src := &staticSource{records: []corpus.EmbeddingRecord{
		record("cells", "Mitosis is the process of cell division in eukaryotes.", []float32{1, 0}),
		record("rocks", "Igneous rocks form when molten magma cools and solidifies.", []float32{1, 0}),
	}}
	eng := NewEngine(&fixedEmbedder{vec: []float32{0, 1}}, src)

	results, err := eng.Search(context.Background(), "mitosis cell division")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("lexical fallback returned nothing for an exact-word query")
	}
	if results[0].ChunkID != "cells" {
		t.Errorf("top result = %q, want the chunk containing the query words", results[0].ChunkID)
	}
	for _, r := range results {
		if r.ChunkID == "rocks" {
			t.Errorf("unrelated chunk matched lexically: %+v", r)
		}
	}
}

func TestSearchEmbedFailureFallsBackToLexical(t *testing.T) {
	t.Parallel()

	src := &staticSource{records: []corpus.EmbeddingRecord{
		record("cells", "Mitosis is the process of cell division.", []float32{1, 0}),
	}}
	eng := NewEngine(&fixedEmbedder{err: errors.New("provider down")}, src)

	results, err := eng.Search(context.Background(), "mitosis")
	if err != nil {
		t.Fatalf("Search must not surface embedding failures: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "cells" {
		t.Errorf("lexical fallback did not run after embed failure: %+v", results)
	}
}

func TestSearchWithOverrides(t *testing.T) {
	t.Parallel()

	records := []corpus.EmbeddingRecord{
		record("strong", "strong", []float32{1, 0}),
		record("weak", "weak", []float32{0.6, 0.8}),
	}
	eng := NewEngine(&fixedEmbedder{vec: []float32{1, 0}}, &staticSource{records: records})

	// Tight threshold keeps only the perfect match.
	results, err := eng.SearchWith(context.Background(), "query", 5, 0.9)
	if err != nil {
		t.Fatalf("SearchWith: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "strong" {
		t.Errorf("threshold override not applied: %+v", results)
	}

	// topK override of 1 truncates even though both pass the default threshold.
	results, err = eng.SearchWith(context.Background(), "query", 1, 0)
	if err != nil {
		t.Fatalf("SearchWith: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("topK override not applied: %+v", results)
	}
}

func TestLexicalScoreToleratesTypos(t *testing.T) {
	t.Parallel()

	content := "Photosynthesis converts light energy into chemical energy."
	exact := lexicalScore("photosynthesis", content)
	typo := lexicalScore("photosynthesys", content)
	miss := lexicalScore("cryptocurrency", content)

	if exact <= 0 {
		t.Error("exact query word did not match")
	}
	if typo <= 0 {
		t.Error("single-typo query word did not match within the tolerance")
	}
	if typo >= exact {
		t.Errorf("typo score %v should rank below exact score %v", typo, exact)
	}
	if miss != 0 {
		t.Errorf("unrelated word scored %v, want 0", miss)
	}
}

func TestFormatContext(t *testing.T) {
	t.Parallel()

	out := FormatContext([]Result{
		{Content: "Mitosis is cell division.", Source: "biology.pdf", Page: 4},
	})
	if !strings.Contains(out, "[biology.pdf, page 4]") {
		t.Errorf("context block missing source attribution:\n%s", out)
	}
	if !strings.Contains(out, "Mitosis is cell division.") {
		t.Errorf("context block missing chunk content:\n%s", out)
	}

	if got := FormatContext(nil); got != "" {
		t.Errorf("FormatContext(nil) = %q, want empty", got)
	}
}
