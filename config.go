package hyni

// ContextConfig carries construction-time defaults overlaid onto a
// Context's parameter table before any caller mutation. All fields are
// optional; a zero ContextConfig applies no overlay beyond the schema's own
// request_template and parameter defaults.
type ContextConfig struct {
	// EnableValidation turns on parameter-range, role, and shape checks
	// throughout Context and build_request. Defaults to true via
	// NewContextConfig; a bare ContextConfig{} leaves it false, matching
	// Go's zero-value convention — callers who want validation on should
	// use NewContextConfig or set it explicitly.
	EnableValidation bool

	// EnableStreamingSupport gates Chat's streaming send mode. It does not
	// affect build_request's stream field, which always follows the
	// schema's streaming feature flag and the caller's streaming argument.
	EnableStreamingSupport bool

	// DefaultMaxTokens, if nonzero, overlays the schema's max_tokens
	// parameter default.
	DefaultMaxTokens int

	// DefaultTemperature, if non-nil, overlays the schema's temperature
	// parameter default.
	DefaultTemperature *float64

	// CustomParameters overlays arbitrary additional parameter defaults,
	// applied after DefaultMaxTokens/DefaultTemperature so it can override
	// them.
	CustomParameters map[string]interface{}
}

// NewContextConfig returns a ContextConfig with EnableValidation and
// EnableStreamingSupport both on, the sensible default for production use.
func NewContextConfig() ContextConfig {
	return ContextConfig{
		EnableValidation:       true,
		EnableStreamingSupport: true,
	}
}
