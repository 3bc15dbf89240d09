package transport

import (
	"context"
	"time"

	"github.com/hynigo/hyni/internal/circuitbreaker"
	"github.com/hynigo/hyni/internal/metrics"
)

// CircuitBreakerSink decorates another Sink with a per-endpoint circuit
// breaker: once an endpoint URL accumulates enough consecutive failures it
// is rejected immediately (ErrCircuitOpen-wrapping error) without reaching
// the network, giving a failing provider time to recover. The per-endpoint
// bookkeeping itself lives in circuitbreaker.Registry; this type's job is
// translating a transport.Response into the success/failure outcome the
// registry's breakers track.
type CircuitBreakerSink struct {
	next     Sink
	label    string
	registry *circuitbreaker.Registry
}

// NewCircuitBreakerSink wraps next with a circuit breaker labelled (for
// metrics) as label, opening after failureThreshold consecutive failures
// per endpoint and half-opening after timeout.
func NewCircuitBreakerSink(next Sink, label string, failureThreshold, successThreshold int, timeout time.Duration) *CircuitBreakerSink {
	return &CircuitBreakerSink{
		next:     next,
		label:    label,
		registry: circuitbreaker.NewRegistry(failureThreshold, successThreshold, timeout),
	}
}

// outcome reports whether a Sink call should count as a success for circuit
// breaker purposes: no transport error, and (when the provider's response
// shape distinguishes it) a Response.Success of true.
func outcome(resp *Response, err error) bool {
	return err == nil && (resp == nil || resp.Success)
}

// Post implements Sink.
func (s *CircuitBreakerSink) Post(ctx context.Context, url string, headers map[string]string, body []byte, cancel CancelPredicate) (*Response, error) {
	cb := s.registry.For(url)
	if !cb.Allow() {
		metrics.ProviderErrors.WithLabelValues(s.label, "circuit_open").Inc()
		return nil, circuitbreaker.ErrCircuitOpen
	}

	resp, err := s.next.Post(ctx, url, headers, body, cancel)
	cb.RecordOutcome(outcome(resp, err))
	metrics.CircuitBreakerState.WithLabelValues(s.label).Set(cb.State().GaugeValue())
	return resp, err
}

// PostStream implements Sink.
func (s *CircuitBreakerSink) PostStream(ctx context.Context, url string, headers map[string]string, body []byte, onChunk ChunkFunc, onComplete func(*Response, error), cancel CancelPredicate) error {
	cb := s.registry.For(url)
	if !cb.Allow() {
		metrics.ProviderErrors.WithLabelValues(s.label, "circuit_open").Inc()
		onComplete(nil, circuitbreaker.ErrCircuitOpen)
		return circuitbreaker.ErrCircuitOpen
	}

	err := s.next.PostStream(ctx, url, headers, body, onChunk, func(resp *Response, streamErr error) {
		cb.RecordOutcome(outcome(resp, streamErr))
		metrics.CircuitBreakerState.WithLabelValues(s.label).Set(cb.State().GaugeValue())
		onComplete(resp, streamErr)
	}, cancel)
	return err
}
