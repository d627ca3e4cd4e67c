// Package ingestion turns an uploaded file into a stored, embedded
// document: extract text, split it into chunks, embed every chunk, and
// persist the result as one document.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nikzart/excellor-ai/internal/chunker"
	"github.com/nikzart/excellor-ai/internal/corpus"
	"github.com/nikzart/excellor-ai/internal/embedder"
	"github.com/nikzart/excellor-ai/internal/extract"
	"github.com/nikzart/excellor-ai/internal/logging"
)

// MaxFileSize is the largest upload the pipeline accepts, checked before
// any extraction work happens.
const MaxFileSize = 10 << 20

// embedConcurrency bounds the number of in-flight embedding calls per
// document, keeping remote providers within their rate limits.
const embedConcurrency = 4

var (
	// ErrOversizeFile reports an upload larger than MaxFileSize.
	ErrOversizeFile = errors.New("file exceeds the 10MB size limit")

	// ErrNoChunks reports a document whose extracted text produced no
	// usable chunks.
	ErrNoChunks = errors.New("document contains no usable text")
)

// DocumentStore persists completed documents.
type DocumentStore interface {
	PutDocument(ctx context.Context, doc *corpus.Document) error
}

// Pipeline ingests raw uploads into the corpus.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	store    DocumentStore
}

// New builds a Pipeline over the given embedder and store using the
// default chunker settings.
func New(emb embedder.Embedder, store DocumentStore, opts ...chunker.Option) *Pipeline {
	return &Pipeline{
		chunker:  chunker.New(opts...),
		embedder: emb,
		store:    store,
	}
}

// Process ingests a single file and returns the stored document. The
// declared content type takes precedence over the filename extension when
// detecting the format. Failures leave the corpus untouched.
func (p *Pipeline) Process(ctx context.Context, name, declaredType string, data []byte) (*corpus.Document, error) {
	log := logging.FromContext(ctx)

	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%s: %w", name, ErrOversizeFile)
	}

	text, format, err := extract.Extract(ctx, name, declaredType, data)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", name, err)
	}

	docID := uuid.NewString()
	chunks := p.chunkDocument(docID, name, format, text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoChunks)
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("embedding %s: %w", name, err)
	}

	doc := &corpus.Document{
		ID:        docID,
		Name:      name,
		Format:    string(format),
		Chunks:    chunks,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("storing %s: %w", name, err)
	}

	log.Info("document ingested",
		"document_id", doc.ID,
		"name", name,
		"format", doc.Format,
		"chunks", len(chunks))
	return doc, nil
}

// chunkDocument splits the extracted text per source page so every chunk
// carries a page attribution, and numbers chunks across the whole document.
func (p *Pipeline) chunkDocument(docID, name string, format extract.Format, text string) []corpus.Chunk {
	var chunks []corpus.Chunk
	for _, seg := range pageSegments(text, format) {
		for _, content := range p.chunker.Split(seg.text) {
			chunks = append(chunks, corpus.Chunk{
				ID:         uuid.NewString(),
				DocumentID: docID,
				Content:    content,
				Source:     name,
				Page:       seg.page,
				Position:   len(chunks),
				Format:     string(format),
			})
		}
	}
	return chunks
}

// embedChunks fills in chunk embeddings concurrently. Each worker writes
// only its own slot, so no locking is needed.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []corpus.Chunk) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := p.embedder.Embed(ctx, chunks[i].Content)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunks[i].Position, err)
			}
			chunks[i].Embedding = vec
			return nil
		})
	}
	return g.Wait()
}

// FileInput is one file in a batch upload.
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileResult reports the outcome of ingesting one file from a batch.
type FileResult struct {
	Name     string
	Document *corpus.Document
	Err      error
}

// ProcessAll ingests a batch of files, isolating failures: one bad file
// never blocks the rest. Results come back in input order.
func (p *Pipeline) ProcessAll(ctx context.Context, files []FileInput) []FileResult {
	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		doc, err := p.Process(ctx, f.Name, f.ContentType, f.Data)
		if err != nil {
			logging.FromContext(ctx).Error("ingestion failed", "name", f.Name, "error", err)
		}
		results = append(results, FileResult{Name: f.Name, Document: doc, Err: err})
	}
	return results
}
