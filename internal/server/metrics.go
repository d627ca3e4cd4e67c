package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec

	// documentsIngestedTotal counts documents ingested via uploads,
	// partitioned by outcome: "ok" or "error".
	documentsIngestedTotal *prometheus.CounterVec

	// searchesTotal counts completed /api/search requests.
	searchesTotal prometheus.Counter

	// chatActiveStreams is the number of /api/chat SSE relays currently open.
	chatActiveStreams prometheus.Gauge

	// chatRequestsTotal counts completed /api/chat relays, partitioned by
	// outcome: "ok", "upstream_error", or "error".
	chatRequestsTotal *prometheus.CounterVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) registers into the provided
// registry rather than the global default, keeping unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "excellor",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled, partitioned by method, handler, and status code.",
		}, []string{"method", "handler", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "excellor",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "handler"}),

		documentsIngestedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "excellor",
			Subsystem: "documents",
			Name:      "ingested_total",
			Help:      "Documents processed through upload, partitioned by outcome.",
		}, []string{"outcome"}),

		searchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "excellor",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Completed similarity search requests.",
		}),

		chatActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "excellor",
			Subsystem: "chat",
			Name:      "active_streams",
			Help:      "Number of chat SSE relays currently open.",
		}),

		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "excellor",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Completed chat relay requests, partitioned by outcome.",
		}, []string{"outcome"}),
	}
}
