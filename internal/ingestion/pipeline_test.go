package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nikzart/excellor-ai/internal/corpus"
	"github.com/nikzart/excellor-ai/internal/extract"
)

type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fail != "" && strings.Contains(text, s.fail) {
		return nil, errors.New("embedding backend unavailable")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type captureStore struct {
	docs []*corpus.Document
	err  error
}

func (c *captureStore) PutDocument(_ context.Context, doc *corpus.Document) error {
	if c.err != nil {
		return c.err
	}
	c.docs = append(c.docs, doc)
	return nil
}

const sampleText = "Mitosis is the process by which a eukaryotic cell separates its chromosomes. " +
	"The process consists of prophase, metaphase, anaphase, and telophase. " +
	"Each daughter cell receives an identical set of chromosomes from the parent."

func TestProcessStoresEmbeddedDocument(t *testing.T) {
	t.Parallel()

	emb := &stubEmbedder{}
	store := &captureStore{}
	pipe := New(emb, store)

	doc, err := pipe.Process(context.Background(), "biology.txt", "text/plain", []byte(sampleText))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if doc.ID == "" {
		t.Error("document has no id")
	}
	if doc.Name != "biology.txt" || doc.Format != "txt" {
		t.Errorf("doc = %q/%q, want biology.txt/txt", doc.Name, doc.Format)
	}
	if len(doc.Chunks) == 0 {
		t.Fatal("document has no chunks")
	}
	if got := emb.callCount(); got != len(doc.Chunks) {
		t.Errorf("embedder called %d times for %d chunks", got, len(doc.Chunks))
	}
	for i, c := range doc.Chunks {
		if c.ID == "" {
			t.Errorf("chunk %d has no id", i)
		}
		if c.DocumentID != doc.ID {
			t.Errorf("chunk %d references document %q, want %q", i, c.DocumentID, doc.ID)
		}
		if c.Position != i {
			t.Errorf("chunk %d has position %d", i, c.Position)
		}
		if c.Source != "biology.txt" {
			t.Errorf("chunk %d source = %q", i, c.Source)
		}
		if len(c.Embedding) != 3 {
			t.Errorf("chunk %d embedding has %d values, want 3", i, len(c.Embedding))
		}
		// The stub derives the first component from the content length,
		// so a mixed-up slot assignment would show here.
		if want := float32(len(c.Content)); c.Embedding[0] != want {
			t.Errorf("chunk %d embedding[0] = %v, want %v", i, c.Embedding[0], want)
		}
	}
	if len(store.docs) != 1 || store.docs[0].ID != doc.ID {
		t.Errorf("store captured %d documents", len(store.docs))
	}
}

func TestProcessRoundTripsThroughStore(t *testing.T) {
	t.Parallel()

	store, err := corpus.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	pipe := New(&stubEmbedder{}, store)
	doc, err := pipe.Process(context.Background(), "notes.txt", "text/plain", []byte(sampleText))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	records, err := store.IterateEmbeddings(context.Background())
	if err != nil {
		t.Fatalf("IterateEmbeddings: %v", err)
	}
	if len(records) != len(doc.Chunks) {
		t.Errorf("store holds %d embedding records for %d chunks", len(records), len(doc.Chunks))
	}
}

func TestProcessRejectsOversizeFile(t *testing.T) {
	t.Parallel()

	pipe := New(&stubEmbedder{}, &captureStore{})
	data := bytes.Repeat([]byte("a"), MaxFileSize+1)

	_, err := pipe.Process(context.Background(), "huge.txt", "text/plain", data)
	if !errors.Is(err, ErrOversizeFile) {
		t.Errorf("got %v, want ErrOversizeFile", err)
	}
}

func TestProcessRejectsUnsupportedFormat(t *testing.T) {
	t.Parallel()

	pipe := New(&stubEmbedder{}, &captureStore{})

	_, err := pipe.Process(context.Background(), "photo.png", "image/png", []byte{0x89, 0x50})
	if !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestProcessRejectsDocumentWithNoUsableText(t *testing.T) {
	t.Parallel()

	pipe := New(&stubEmbedder{}, &captureStore{})

	// The whole document collapses to a single chunk below the minimum
	// length, so chunking discards it.
	_, err := pipe.Process(context.Background(), "tiny.txt", "text/plain", []byte("hi. yo."))
	if !errors.Is(err, ErrNoChunks) {
		t.Errorf("got %v, want ErrNoChunks", err)
	}
}

func TestProcessEmbeddingFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	store := &captureStore{}
	pipe := New(&stubEmbedder{fail: "chromosomes"}, store)

	if _, err := pipe.Process(context.Background(), "biology.txt", "text/plain", []byte(sampleText)); err == nil {
		t.Fatal("expected embedding failure to surface")
	}
	if len(store.docs) != 0 {
		t.Errorf("store captured %d documents after a failed ingest", len(store.docs))
	}
}

func TestProcessAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	pipe := New(&stubEmbedder{}, &captureStore{})
	files := []FileInput{
		{Name: "good.txt", ContentType: "text/plain", Data: []byte(sampleText)},
		{Name: "bad.png", ContentType: "image/png", Data: []byte{0x89}},
		{Name: "also-good.txt", ContentType: "text/plain", Data: []byte(sampleText)},
	}

	results := pipe.ProcessAll(context.Background(), files)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Document == nil {
		t.Errorf("first file failed: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("unsupported file reported no error")
	}
	if results[2].Err != nil || results[2].Document == nil {
		t.Errorf("file after a failure did not ingest: %v", results[2].Err)
	}
}

func TestPageSegments(t *testing.T) {
	t.Parallel()

	text := "[Page 1]\nFirst page body.\n[Page 2 unavailable]\n[Page 3]\nThird page body.\n"
	segs := pageSegments(text, extract.FormatPDF)

	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2 (empty placeholder page dropped): %+v", len(segs), segs)
	}
	if segs[0].page != 1 || segs[0].text != "First page body." {
		t.Errorf("segment 0 = %+v", segs[0])
	}
	if segs[1].page != 3 || segs[1].text != "Third page body." {
		t.Errorf("segment 1 = %+v", segs[1])
	}
}

func TestPageSegmentsNonPDF(t *testing.T) {
	t.Parallel()

	text := "[Page 1] looks like a marker but is plain text"
	segs := pageSegments(text, extract.FormatText)
	if len(segs) != 1 || segs[0].page != 0 || segs[0].text != text {
		t.Errorf("plain text must stay one unsegmented span: %+v", segs)
	}
}

func TestPageSegmentsManyPages(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "[Page %d]\nBody of page number %d with enough words.\n", i, i)
	}
	segs := pageSegments(b.String(), extract.FormatPDF)
	if len(segs) != 5 {
		t.Fatalf("got %d segments, want 5", len(segs))
	}
	for i, s := range segs {
		if s.page != i+1 {
			t.Errorf("segment %d attributed to page %d", i, s.page)
		}
	}
}
