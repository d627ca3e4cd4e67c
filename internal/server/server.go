// Package server implements the HTTP server that exposes the excellor
// corpus over a REST API: document upload and management, similarity
// search, and an SSE chat relay that grounds completions in retrieved
// passages. The server is started by the `excellor serve` CLI command.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikzart/excellor-ai/internal/logging"
)

// Deps are the domain collaborators the server exposes over HTTP.
type Deps struct {
	// Ingestor runs document ingestion for uploads.
	Ingestor ingestor
	// Store backs document listing and deletion.
	Store documentStore
	// Searcher answers retrieval queries.
	Searcher searcher
}

// New constructs a Server from the provided collaborators and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Ingestor == nil || deps.Store == nil || deps.Searcher == nil {
		return nil, fmt.Errorf("server: ingestor, store, and searcher must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must be long enough for streaming responses.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	rps := cfg.RateLimit
	if rps == 0 {
		rps = defaultRateLimit
	}
	burst := cfg.RateBurst
	if burst == 0 {
		burst = defaultRateBurst
	}
	rl, stopRL := newRateLimiter(rps, burst, log)

	s := &Server{
		ingestor: deps.Ingestor,
		store:    deps.Store,
		searcher: deps.Searcher,
		relay:    NewRelay(cfg.Chat),
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(reg),
		stopRL:   stopRL,
	}

	if cfg.APIKey == "" {
		log.Warn("API key not configured, authentication disabled")
	}

	// protected wraps an API handler with rate limiting and Bearer auth.
	protected := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/documents", protected("documents_upload", s.handleDocumentsUpload))
	mux.Handle("GET /api/documents", protected("documents_list", s.handleDocumentsList))
	mux.Handle("DELETE /api/documents", protected("documents_clear", s.handleDocumentsClear))
	mux.Handle("DELETE /api/documents/{id}", protected("documents_delete", s.handleDocumentDelete))
	mux.Handle("POST /api/search", protected("search", s.handleSearch))
	mux.Handle("POST /api/chat", protected("chat", s.handleChat))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("excellor server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}
