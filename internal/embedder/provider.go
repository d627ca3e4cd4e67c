package embedder

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Degradation reasons recorded on the fallback counter.
const (
	reasonNoCredential = "no_credential"
	reasonRemoteError  = "remote_error"
)

// Provider is the degradation-aware Embedder used by the pipeline and the
// search engine. It tries the remote service first and silently falls back
// to deterministic hash vectors on any failure. Callers are never told that
// degradation occurred; operators can see it through the WARN log entry and
// the fallback counter.
type Provider struct {
	// remote is the primary embedding path. Nil when no credential is
	// configured, in which case every call takes the fallback path.
	remote Embedder
	// fallback is the deterministic offline generator.
	fallback *FallbackEmbedder
	// log records degradation events.
	log *slog.Logger
	// fallbackTotal counts degradations, partitioned by reason.
	// Nil when metrics are not wired (CLI one-shot commands).
	fallbackTotal *prometheus.CounterVec
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger used for degradation events.
func WithLogger(log *slog.Logger) ProviderOption {
	return func(p *Provider) { p.log = log }
}

// WithMetrics registers the fallback counter against reg. Each server
// instance passes its own registry so unit tests stay hermetic.
func WithMetrics(reg prometheus.Registerer) ProviderOption {
	return func(p *Provider) {
		p.fallbackTotal = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "excellor",
			Subsystem: "embedder",
			Name:      "fallback_total",
			Help:      "Total number of embeddings served by the deterministic fallback, partitioned by reason.",
		}, []string{"reason"})
	}
}

// NewProvider constructs a Provider over the given remote embedder.
// A nil remote is valid and routes everything to the fallback generator.
func NewProvider(remote Embedder, opts ...ProviderOption) *Provider {
	p := &Provider{
		remote:   remote,
		fallback: NewFallbackEmbedder(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed returns an embedding for text. It never fails: any remote error
// degrades to the deterministic fallback vector. The returned vector always
// has length Dimensions.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.remote == nil {
		p.degrade(reasonNoCredential, nil)
		return p.fallback.Embed(ctx, text)
	}

	vec, err := p.remote.Embed(ctx, text)
	if err != nil {
		p.degrade(reasonRemoteError, err)
		return p.fallback.Embed(ctx, text)
	}

	return vec, nil
}

// degrade records a fallback event in the log and on the counter.
func (p *Provider) degrade(reason string, err error) {
	attrs := []any{slog.String("reason", reason)}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	p.log.Warn("embedder: degrading to fallback vector", attrs...)

	if p.fallbackTotal != nil {
		p.fallbackTotal.WithLabelValues(reason).Inc()
	}
}
