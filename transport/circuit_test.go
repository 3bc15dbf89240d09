package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hynigo/hyni/internal/circuitbreaker"
)

type stubSink struct {
	fail bool
}

func (s *stubSink) Post(_ context.Context, _ string, _ map[string]string, _ []byte, _ CancelPredicate) (*Response, error) {
	if s.fail {
		return nil, errors.New("boom")
	}
	return &Response{StatusCode: 200, Success: true}, nil
}

func (s *stubSink) PostStream(_ context.Context, _ string, _ map[string]string, _ []byte, _ ChunkFunc, onComplete func(*Response, error), _ CancelPredicate) error {
	if s.fail {
		err := errors.New("boom")
		onComplete(nil, err)
		return err
	}
	onComplete(&Response{StatusCode: 200, Success: true}, nil)
	return nil
}

func TestCircuitBreakerSink_OpensAfterFailures(t *testing.T) {
	stub := &stubSink{fail: true}
	sink := NewCircuitBreakerSink(stub, "test", 2, 1, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := sink.Post(context.Background(), "https://example.test", nil, nil, nil); err == nil {
			t.Fatal("expected stub failure to propagate")
		}
	}

	_, err := sink.Post(context.Background(), "https://example.test", nil, nil, nil)
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("got %v, want circuitbreaker.ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerSink_PerEndpointIsolation(t *testing.T) {
	stub := &stubSink{fail: true}
	sink := NewCircuitBreakerSink(stub, "test", 1, 1, time.Minute)

	if _, err := sink.Post(context.Background(), "https://a.test", nil, nil, nil); err == nil {
		t.Fatal("expected failure")
	}
	// a.test's breaker is now open; b.test must be unaffected.
	if _, err := sink.Post(context.Background(), "https://b.test", nil, nil, nil); errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatal("expected b.test's breaker to be independent of a.test's")
	}
}

func TestCircuitBreakerSink_SuccessKeepsClosed(t *testing.T) {
	stub := &stubSink{fail: false}
	sink := NewCircuitBreakerSink(stub, "test", 1, 1, time.Minute)

	for i := 0; i < 5; i++ {
		if _, err := sink.Post(context.Background(), "https://example.test", nil, nil, nil); err != nil {
			t.Fatalf("unexpected error on success path: %v", err)
		}
	}
}
