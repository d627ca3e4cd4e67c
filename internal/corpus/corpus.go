// Package corpus persists uploaded documents and their chunk embedding
// records in a local SQLite database. The corpus never leaves the device:
// remote services only ever see individual embedding and completion
// requests, not stored content.
//
// Two tables back the store. `documents` holds full Document records with
// chunks embedded inline; `embeddings` holds one lightweight record per
// chunk for fast iteration during search without deserializing whole
// documents. Deleting a document removes both sides in one transaction, so
// no orphaned embedding record is ever observable.
package corpus

import (
	"time"
)

// Document is an uploaded study document after extraction, chunking, and
// embedding. Documents are immutable once stored: a re-upload creates a new
// Document with a new id.
type Document struct {
	// ID is the opaque unique document identifier.
	ID string `json:"id"`
	// Name is the display name (usually the uploaded filename).
	Name string `json:"name"`
	// Format is the source format tag: "pdf", "docx", or "txt".
	Format string `json:"format"`
	// Chunks is the ordered sequence of passages extracted from the document.
	Chunks []Chunk `json:"chunks"`
	// CreatedAt is when the document was stored.
	CreatedAt time.Time `json:"createdAt"`
}

// Chunk is a bounded, possibly-overlapping span of a document's text — the
// unit of embedding and retrieval.
type Chunk struct {
	// ID is the unique chunk identifier.
	ID string `json:"id"`
	// DocumentID back-references the owning document.
	DocumentID string `json:"documentId"`
	// Content is the chunk text. Non-empty, longer than 10 characters trimmed.
	Content string `json:"content"`
	// Source is the display name of the originating document.
	Source string `json:"source"`
	// Page is the 1-based source page number, 0 when unknown.
	Page int `json:"page,omitempty"`
	// Position is the zero-based chunk index within the document.
	Position int `json:"position"`
	// Format is the owning document's format tag.
	Format string `json:"format"`
	// Embedding is the chunk's vector. Always populated by the ingestion
	// pipeline; absent only for records that predate embedding.
	Embedding []float32 `json:"embedding,omitempty"`
}

// EmbeddingRecord is the lightweight projection of a Chunk kept in the
// embeddings table, keyed by chunk id for O(1) point lookup and cheap full
// iteration during search.
type EmbeddingRecord struct {
	// ChunkID is the chunk this record projects.
	ChunkID string
	// DocumentID is the owning document.
	DocumentID string
	// Content is the chunk text, carried so search results need no second lookup.
	Content string
	// Source is the originating document's display name.
	Source string
	// Page is the 1-based source page number, 0 when unknown.
	Page int
	// Position is the zero-based chunk index within the document.
	Position int
	// Format is the owning document's format tag.
	Format string
	// Vector is the chunk's embedding.
	Vector []float32
}
