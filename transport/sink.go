// Package transport defines the Sink interface Chat expects from its HTTP
// collaborator — blocking, asynchronous, and chunked-streaming POST — plus
// an *http.Client-backed implementation and resilience decorators
// (OAuth2Sink, SigV4Sink, CircuitBreakerSink) that wrap any Sink.
package transport

import "context"

// Response is the result of one blocking or streamed-to-completion POST.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
	Success    bool
	ErrorMsg   string
}

// CancelPredicate is polled by a Sink between I/O slices; a Sink must abort
// the in-flight call and return a Cancelled error once it returns true.
type CancelPredicate func() bool

// ChunkFunc receives one streamed chunk of raw bytes. Returning false
// requests that the Sink stop streaming and call onComplete immediately.
type ChunkFunc func(chunk []byte) bool

// Sink is the pluggable HTTP transport collaborator. Implementations own
// timeouts, TLS verification, redirect following, and connection reuse.
type Sink interface {
	// Post performs a blocking POST and returns the completed Response.
	Post(ctx context.Context, url string, headers map[string]string, body []byte, cancel CancelPredicate) (*Response, error)

	// PostStream performs a POST whose body is streamed to onChunk as raw
	// bytes arrive, calling onComplete exactly once when the stream ends
	// (whether by the server closing the connection, onChunk returning
	// false, or the cancel predicate firing).
	PostStream(ctx context.Context, url string, headers map[string]string, body []byte, onChunk ChunkFunc, onComplete func(*Response, error), cancel CancelPredicate) error
}

// AsyncSink is implemented by Sinks that can additionally hand back a
// future-like channel instead of blocking the caller's goroutine. HTTPSink
// implements it by running Post on a new goroutine. Chat's async send mode
// does not use it: Chat.SendAsync runs the whole blocking Send on a
// goroutine of its own with any Sink.
type AsyncSink interface {
	Sink
	PostAsync(ctx context.Context, url string, headers map[string]string, body []byte) <-chan AsyncResult
}

// AsyncResult is delivered on the channel returned by PostAsync.
type AsyncResult struct {
	Response *Response
	Err      error
}
