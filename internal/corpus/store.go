package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("corpus: document not found")

// Store is the SQLite-backed corpus store. It is safe for concurrent use;
// the connection pool is limited to a single writer to avoid SQLITE_BUSY
// under concurrent writes.
type Store struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the corpus database.
// It resolves to ~/.excellor/corpus.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("corpus: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".excellor")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("corpus: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "corpus.db"), nil
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("corpus: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id          TEXT    PRIMARY KEY,
    name        TEXT    NOT NULL,
    format      TEXT    NOT NULL CHECK(format IN ('pdf','docx','txt')),
    created_at  INTEGER NOT NULL,  -- Unix timestamp (seconds)
    chunks      TEXT    NOT NULL   -- JSON array of chunk records
);
CREATE TABLE IF NOT EXISTS embeddings (
    chunk_id     TEXT    PRIMARY KEY,
    document_id  TEXT    NOT NULL,
    content      TEXT    NOT NULL,
    source       TEXT    NOT NULL,
    page         INTEGER NOT NULL DEFAULT 0,
    position     INTEGER NOT NULL,
    format       TEXT    NOT NULL,
    vector       BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_created
    ON documents (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_embeddings_document
    ON embeddings (document_id);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("corpus: migrate: %w", err)
	}
	return nil
}

// PutDocument persists a document and the embedding record of every one of
// its chunks in a single transaction, so readers never observe a document
// without its embedding records or vice versa.
func (s *Store) PutDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		return fmt.Errorf("corpus: document id must not be empty")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	chunksJSON, err := json.Marshal(doc.Chunks)
	if err != nil {
		return fmt.Errorf("corpus: marshal chunks: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("corpus: begin put: %w", err)
	}
	defer tx.Rollback()

	const insertDoc = `INSERT INTO documents (id, name, format, created_at, chunks) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertDoc, doc.ID, doc.Name, doc.Format, doc.CreatedAt.Unix(), string(chunksJSON)); err != nil {
		return fmt.Errorf("corpus: insert document: %w", err)
	}

	const insertEmb = `INSERT INTO embeddings (chunk_id, document_id, content, source, page, position, format, vector)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, chunk := range doc.Chunks {
		if _, err := tx.ExecContext(ctx, insertEmb,
			chunk.ID, doc.ID, chunk.Content, chunk.Source, chunk.Page, chunk.Position, chunk.Format,
			encodeVector(chunk.Embedding),
		); err != nil {
			return fmt.Errorf("corpus: insert embedding %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("corpus: commit put: %w", err)
	}
	return nil
}

// GetDocument returns the document with the given id, or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	const q = `SELECT id, name, format, created_at, chunks FROM documents WHERE id = ?`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns every stored document, most recently created first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	const q = `SELECT id, name, format, created_at, chunks FROM documents ORDER BY created_at DESC, rowid DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("corpus: list: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("corpus: list rows: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and all its embedding records in one
// transaction. Returns ErrNotFound when no such document exists.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("corpus: begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("corpus: delete embeddings: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("corpus: delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("corpus: delete rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("corpus: commit delete: %w", err)
	}
	return nil
}

// Clear removes every document and embedding record together.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("corpus: begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings`); err != nil {
		return fmt.Errorf("corpus: clear embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("corpus: clear documents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("corpus: commit clear: %w", err)
	}
	return nil
}

// IterateEmbeddings returns every embedding record in insertion order.
// The search engine scans this sequence on every query; the corpus is
// device-local and modest in size, so a full scan stays cheap.
func (s *Store) IterateEmbeddings(ctx context.Context) ([]EmbeddingRecord, error) {
	const q = `SELECT chunk_id, document_id, content, source, page, position, format, vector
FROM embeddings ORDER BY rowid ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("corpus: iterate embeddings: %w", err)
	}
	defer rows.Close()

	var records []EmbeddingRecord
	for rows.Next() {
		var rec EmbeddingRecord
		var blob []byte
		if err := rows.Scan(&rec.ChunkID, &rec.DocumentID, &rec.Content, &rec.Source, &rec.Page, &rec.Position, &rec.Format, &blob); err != nil {
			return nil, fmt.Errorf("corpus: scan embedding: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("corpus: embedding %s: %w", rec.ChunkID, err)
		}
		rec.Vector = vec
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("corpus: iterate rows: %w", err)
	}
	return records, nil
}

// Ping checks that the database is reachable. It satisfies the server's
// readiness Pinger interface.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("corpus: ping: %w", err)
	}
	return nil
}

// Name returns the dependency label used in readiness responses.
func (s *Store) Name() string { return "corpus" }

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("corpus: close: %w", err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanDocument.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one documents row, running the chunk JSON through a
// schema check rather than trusting the stored blob.
func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var ts int64
	var chunksJSON string
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Format, &ts, &chunksJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("corpus: scan document: %w", err)
	}
	doc.CreatedAt = time.Unix(ts, 0)

	if err := json.Unmarshal([]byte(chunksJSON), &doc.Chunks); err != nil {
		return nil, fmt.Errorf("corpus: document %s has malformed chunk data: %w", doc.ID, err)
	}
	for i, chunk := range doc.Chunks {
		if chunk.ID == "" || chunk.Content == "" {
			return nil, fmt.Errorf("corpus: document %s chunk %d fails schema check", doc.ID, i)
		}
	}

	return &doc, nil
}
