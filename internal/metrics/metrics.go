// Package metrics registers the Prometheus metrics emitted by Chat.Send,
// its streaming and async variants, and the resilience decorators in
// transport. Importing this package (even blank) registers all metrics
// against the default Prometheus registry before any /metrics handler is
// mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SendsTotal counts completed sends labelled by provider, model, and
	// outcome ("success", "error", "cancelled").
	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyni_sends_total",
			Help: "Total number of chat sends processed.",
		},
		[]string{"provider", "model", "status"},
	)

	// SendDuration observes end-to-end send latency in seconds.
	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hyni_send_duration_seconds",
			Help:    "End-to-end send duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	// TokensInput counts total prompt tokens reported by providers via
	// usage_path.
	TokensInput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyni_tokens_input_total",
			Help: "Total prompt tokens reported by providers.",
		},
		[]string{"provider", "model"},
	)

	// TokensOutput counts total completion tokens reported by providers.
	TokensOutput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyni_tokens_output_total",
			Help: "Total completion tokens reported by providers.",
		},
		[]string{"provider", "model"},
	)

	// ProviderErrors counts errors by provider and error type
	// ("transport", "response_shape", "circuit_open").
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyni_provider_errors_total",
			Help: "Total provider errors by type.",
		},
		[]string{"provider", "error_type"},
	)

	// StreamChunks counts streamed delta chunks received, labelled by
	// provider.
	StreamChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyni_stream_chunks_total",
			Help: "Total streamed response chunks received.",
		},
		[]string{"provider"},
	)

	// CircuitBreakerState tracks circuit breaker state as a gauge, one series
	// per CircuitBreakerSink label, holding the state of the endpoint that
	// sink last reported: 0 = closed, 1 = open, 2 = half_open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hyni_circuit_breaker_state",
			Help: "Circuit breaker state per endpoint (0=closed 1=open 2=half_open).",
		},
		[]string{"provider"},
	)

	// RequestCostUSD observes the estimated cost of one send, computed by
	// internal/pricing from the provider's reported usage.
	RequestCostUSD = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hyni_request_cost_usd",
			Help:    "Estimated cost in USD of one send, derived from reported token usage.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"provider", "model"},
	)
)
