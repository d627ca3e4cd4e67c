package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nikzart/excellor-ai/internal/corpus"
	"github.com/nikzart/excellor-ai/internal/ingestion"
	"github.com/nikzart/excellor-ai/internal/retrieval"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must be long enough for SSE chat streams.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics and backs the
	// GET /metrics endpoint. If nil a private registry is created.
	Registry *prometheus.Registry
	// Chat configures the completion relay behind POST /api/chat. A zero
	// value disables the endpoint (503).
	Chat RelayConfig
}

// ingestor runs the ingestion pipeline for uploaded files.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	ProcessAll(ctx context.Context, files []ingestion.FileInput) []ingestion.FileResult
}

// documentStore is the slice of the corpus store the document handlers need.
type documentStore interface {
	ListDocuments(ctx context.Context) ([]corpus.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// searcher answers retrieval queries. *retrieval.Engine satisfies it.
type searcher interface {
	SearchWith(ctx context.Context, query string, topK int, threshold float64) ([]retrieval.Result, error)
}

// Server is the HTTP server exposing the document, search, and chat APIs.
type Server struct {
	// ingestor runs document ingestion for POST /api/documents.
	ingestor ingestor
	// store backs the document listing and deletion handlers.
	store documentStore
	// searcher backs POST /api/search and the chat context injection.
	searcher searcher
	// relay forwards chat completions to the configured remote endpoint.
	relay *Relay
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds this instance's Prometheus metrics.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// uploadFileResult is the per-file outcome in the POST /api/documents response.
type uploadFileResult struct {
	// Name is the uploaded filename.
	Name string `json:"name"`
	// Document is the stored document on success, omitted on failure.
	Document *corpus.Document `json:"document,omitempty"`
	// Error is the failure reason, empty on success.
	Error string `json:"error,omitempty"`
	// Status is the HTTP status code this file's outcome maps to.
	Status int `json:"status"`
}

// uploadResponse is the JSON response for POST /api/documents.
type uploadResponse struct {
	// Files holds one result per uploaded file, in upload order.
	Files []uploadFileResult `json:"files"`
}

// listResponse is the JSON response for GET /api/documents.
type listResponse struct {
	// Documents is the corpus content, most recently stored first.
	Documents []corpus.Document `json:"documents"`
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	// Query is the retrieval query text.
	Query string `json:"query"`
	// TopK optionally overrides the result count. Zero means the default.
	TopK int `json:"topK,omitempty"`
	// Threshold optionally overrides the similarity cutoff. Zero means the default.
	Threshold float64 `json:"threshold,omitempty"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	// Results is the ranked result list, best first.
	Results []retrieval.Result `json:"results"`
}
