package hyni

import (
	"fmt"

	"github.com/hynigo/hyni/schema"
)

// SchemaError indicates a missing, malformed, or structurally invalid
// schema document, or an unsupported provider name. Raised by the schema
// registry and by the Context constructor.
type SchemaError = schema.SchemaError

// ValidationError indicates a parameter out of range, an unknown role, use
// of multimodal content on a schema that forbids it, a missing required
// request field, or an unknown model under strict validation. Raised
// synchronously by Context mutation methods and by build_request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation error: %s", e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ResponseShapeError indicates a successful transport but a response body
// that does not match the schema's extraction paths.
type ResponseShapeError struct {
	Path   []interface{}
	Reason string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("response shape error: %s (path %v)", e.Reason, e.Path)
}

func newResponseShapeError(path []interface{}, reason string) error {
	return &ResponseShapeError{Path: path, Reason: reason}
}

// TransportError wraps a network failure, TLS failure, non-2xx status,
// timeout, or cancellation surfaced by a transport.Sink. StatusCode is zero
// when the failure occurred before a response was received. ProviderError
// holds the schema's error_path extraction when the body parsed cleanly;
// RawBody always holds the verbatim response body, if any.
type TransportError struct {
	StatusCode    int
	ProviderError string
	RawBody       []byte
	Cancelled     bool
	Timeout       bool
	Err           error
}

func (e *TransportError) Error() string {
	switch {
	case e.Cancelled:
		return "transport error: request cancelled"
	case e.Timeout:
		return "transport error: request timed out"
	case e.ProviderError != "":
		if e.StatusCode != 0 {
			return fmt.Sprintf("transport error: status %d: %s", e.StatusCode, e.ProviderError)
		}
		return fmt.Sprintf("transport error: %s", e.ProviderError)
	case e.StatusCode != 0:
		return fmt.Sprintf("transport error: status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("transport error: %s", e.Err.Error())
	default:
		return "transport error"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
