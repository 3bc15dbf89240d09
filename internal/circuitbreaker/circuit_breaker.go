// Package circuitbreaker protects transport.Sink calls to a provider
// endpoint from hammering a downstream that is already failing. Each
// endpoint URL a CircuitBreakerSink talks to gets its own breaker, held in a
// Registry, since one provider's model endpoint failing says nothing about
// another endpoint on the same provider.
//
// State transitions:
//
//	Closed   → Open      when consecutive failures ≥ failureThreshold
//	Open     → HalfOpen  after timeout elapses
//	HalfOpen → Closed    when consecutive successes ≥ successThreshold
//	HalfOpen → Open      on any failure
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker's current state.
type State int

const (
	// StateClosed — normal operation; requests pass through.
	StateClosed State = iota
	// StateOpen — the endpoint is considered failing; requests are rejected immediately.
	StateOpen
	// StateHalfOpen — the circuit is testing recovery; requests pass through and
	// the next recorded outcomes decide between Closed and Open.
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// GaugeValue maps State onto the 0/1/2 scale a Prometheus gauge exports,
// the shape transport.CircuitBreakerSink feeds to metrics.CircuitBreakerState.
func (s State) GaugeValue() float64 {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreaker guards a single endpoint URL.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	openUntil        time.Time
}

// New creates a CircuitBreaker with the given thresholds and open timeout.
// Defaults are applied for zero/negative values: failureThreshold=5,
// successThreshold=1, timeout=30s.
func New(failureThreshold, successThreshold int, timeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
	}
}

// State returns the current state, transitioning Open→HalfOpen if the timeout
// has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.resolveState()
}

// resolveState must be called with cb.mu held.
func (cb *CircuitBreaker) resolveState() State {
	if cb.state == StateOpen && time.Now().After(cb.openUntil) {
		cb.state = StateHalfOpen
		cb.successCount = 0
	}
	return cb.state
}

// Allow returns true if a request to this endpoint should proceed (Closed or
// HalfOpen), false if it should be rejected without reaching the network
// (Open).
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.resolveState() != StateOpen
}

// RecordOutcome folds a Sink call's result into the breaker: success reports
// whether the call produced a usable response (no transport error and, for
// providers that distinguish it, a Response.Success of true). Callers should
// prefer this over RecordSuccess/RecordFailure directly so the success
// predicate lives in one place.
func (cb *CircuitBreaker) RecordOutcome(success bool) {
	if success {
		cb.RecordSuccess()
		return
	}
	cb.RecordFailure()
}

// RecordSuccess notifies the breaker that a call succeeded.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	case StateClosed:
		cb.failureCount = 0
	}
}

// RecordFailure notifies the breaker that a call failed.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openUntil = time.Now().Add(cb.timeout)
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openUntil = time.Now().Add(cb.timeout)
		cb.successCount = 0
	}
}

// Registry holds one CircuitBreaker per endpoint key (typically a request
// URL), created lazily with shared thresholds. It is the piece that used to
// live inline in transport.CircuitBreakerSink — pulled in here so the
// per-endpoint bookkeeping travels with the breaker it bookkeeps for.
type Registry struct {
	mu               sync.Mutex
	breakers         map[string]*CircuitBreaker
	failureThreshold int
	successThreshold int
	timeout          time.Duration
}

// NewRegistry creates an empty Registry that builds breakers with the given
// thresholds on first use of each key.
func NewRegistry(failureThreshold, successThreshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
	}
}

// For returns the breaker for key, creating one with the Registry's
// thresholds if this is the first request for key.
func (r *Registry) For(key string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[key]; ok {
		return cb
	}
	cb := New(r.failureThreshold, r.successThreshold, r.timeout)
	r.breakers[key] = cb
	return cb
}
