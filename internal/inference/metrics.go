package inference

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the backend clients, labeled by
// service (instruct/thinking/embeddings).
var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lexgraph",
		Subsystem: "inference",
		Name:      "requests_total",
		Help:      "Chat-completion requests issued, by service.",
	}, []string{"service"})

	metricFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lexgraph",
		Subsystem: "inference",
		Name:      "failures_total",
		Help:      "Failed requests by service and error kind.",
	}, []string{"service", "kind"})

	metricRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lexgraph",
		Subsystem: "inference",
		Name:      "retries_total",
		Help:      "Retry attempts by service.",
	}, []string{"service"})

	metricInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lexgraph",
		Subsystem: "inference",
		Name:      "in_flight_requests",
		Help:      "Requests currently in flight, by service.",
	}, []string{"service"})

	metricTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lexgraph",
		Subsystem: "inference",
		Name:      "tokens_used_total",
		Help:      "Total tokens reported by the backend, by service.",
	}, []string{"service"})

	metricRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lexgraph",
		Subsystem: "inference",
		Name:      "request_duration_seconds",
		Help:      "Wall time per successful request, by service.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"service"})
)
