package schema

import "fmt"

// SchemaError indicates a missing, malformed, or structurally invalid
// schema document, or an unsupported provider name. Raised by Registry and
// by the Context constructor (aliased there as hyni.SchemaError).
type SchemaError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *SchemaError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("schema error (%s): %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("schema error: %s", e.Reason)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func newSchemaErr(provider, reason string, err error) error {
	return &SchemaError{Provider: provider, Reason: reason, Err: err}
}
