// Package schema describes the declarative wire contract of one LLM
// provider — endpoint, auth, request template, parameter constraints,
// message shapes, and response extraction paths — and the registry that
// loads, validates, and caches these documents by provider name.
//
// A SchemaDoc is immutable once returned by Registry.Load; it is shared by
// reference across every Context bound to it, across any number of
// goroutines, without synchronization.
package schema

import "encoding/json"

// SchemaDoc is one provider's wire contract, parsed from a JSON or YAML
// schema file. Every field mirrors a section of the schema file format
// described in the project documentation.
type SchemaDoc struct {
	Provider       ProviderInfo          `json:"provider" yaml:"provider"`
	API            APIInfo               `json:"api" yaml:"api"`
	Authentication AuthDescriptor        `json:"authentication" yaml:"authentication"`
	Headers        HeaderTemplates       `json:"headers" yaml:"headers"`
	Models         ModelsInfo            `json:"models" yaml:"models"`
	RequestTemplate json.RawMessage      `json:"request_template" yaml:"-"`
	Parameters     map[string]ParamConstraint `json:"parameters" yaml:"parameters"`
	MessageRoles   []string              `json:"message_roles" yaml:"message_roles"`
	SystemMessage  SystemMessageInfo     `json:"system_message" yaml:"system_message"`
	Multimodal     MultimodalInfo        `json:"multimodal" yaml:"multimodal"`
	MessageFormat  MessageFormat         `json:"message_format" yaml:"message_format"`
	ResponseFormat ResponseFormat        `json:"response_format" yaml:"response_format"`
	Limits         Limits                `json:"limits" yaml:"limits"`
	Features       Features              `json:"features" yaml:"features"`
	ErrorCodes     map[string]string     `json:"error_codes" yaml:"error_codes"`
	Validation     ValidationRules       `json:"validation" yaml:"validation"`

	// raw holds the document decoded from its JSON form into a generic map;
	// Parse sets it and nothing in the package reads it.
	raw map[string]interface{}
}

// ProviderInfo identifies the provider a schema describes.
type ProviderInfo struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Version     string `json:"version" yaml:"version"`
	APIVersion  string `json:"api_version" yaml:"api_version"`
}

// APIInfo describes the single HTTP endpoint a schema targets.
type APIInfo struct {
	Endpoint   string `json:"endpoint" yaml:"endpoint"`
	Method     string `json:"method" yaml:"method"`
	TimeoutMS  int    `json:"timeout_ms" yaml:"timeout_ms"`
	MaxRetries int    `json:"max_retries" yaml:"max_retries"`
}

// AuthDescriptor describes how the API key is attached to outgoing
// requests. Type is one of "header" (default), "oauth2", or "aws_sigv4".
type AuthDescriptor struct {
	Type           string `json:"type" yaml:"type"`
	KeyName        string `json:"key_name" yaml:"key_name"`
	KeyPrefix      string `json:"key_prefix" yaml:"key_prefix"`
	KeyPlaceholder string `json:"key_placeholder" yaml:"key_placeholder"`

	// OAuth2 carries client-credentials-flow settings when Type == "oauth2".
	OAuth2 *OAuth2Descriptor `json:"oauth2,omitempty" yaml:"oauth2,omitempty"`
	// AWSSigV4 carries signing region/service when Type == "aws_sigv4".
	AWSSigV4 *AWSSigV4Descriptor `json:"aws_sigv4,omitempty" yaml:"aws_sigv4,omitempty"`
}

// OAuth2Descriptor configures a client-credentials OAuth2 token source.
type OAuth2Descriptor struct {
	TokenURL string   `json:"token_url" yaml:"token_url"`
	Scopes   []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// AWSSigV4Descriptor configures AWS SigV4 request signing.
type AWSSigV4Descriptor struct {
	Region  string `json:"region" yaml:"region"`
	Service string `json:"service" yaml:"service"`
}

// HeaderTemplates holds header name→value templates. Values may contain
// the schema's key placeholder, substituted at send time.
type HeaderTemplates struct {
	Required map[string]string `json:"required" yaml:"required"`
	Optional map[string]string `json:"optional" yaml:"optional"`
}

// ModelsInfo enumerates the models a provider accepts.
type ModelsInfo struct {
	Available  []string `json:"available" yaml:"available"`
	Deprecated []string `json:"deprecated" yaml:"deprecated"`
	Default    string   `json:"default" yaml:"default"`
}

// ParamConstraint is one declarative validation rule for a request
// parameter.
type ParamConstraint struct {
	Type     string        `json:"type" yaml:"type"`
	Required bool          `json:"required" yaml:"required"`
	Min      *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Default  interface{}   `json:"default,omitempty" yaml:"default,omitempty"`
	Enum     []interface{} `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// SystemMessageInfo describes whether and how a system prompt is carried.
type SystemMessageInfo struct {
	Supported bool   `json:"supported" yaml:"supported"`
	Field     string `json:"field" yaml:"field"`
	Type      string `json:"type" yaml:"type"`
	Role      string `json:"role" yaml:"role"`
}

// MultimodalInfo describes image-content support.
type MultimodalInfo struct {
	Supported        bool     `json:"supported" yaml:"supported"`
	SupportedTypes   []string `json:"supported_types" yaml:"supported_types"`
	ImageFormats     []string `json:"image_formats" yaml:"image_formats"`
	MaxImageSize     int      `json:"max_image_size" yaml:"max_image_size"`
	MaxImagesPerMsg  int      `json:"max_images_per_message" yaml:"max_images_per_message"`
}

// MessageFormat describes the JSON shapes used for messages and content
// parts, with placeholders substituted at build_request time.
type MessageFormat struct {
	Structure       json.RawMessage        `json:"structure" yaml:"-"`
	SystemStructure json.RawMessage        `json:"system_structure" yaml:"-"`
	ContentTypes    map[string]json.RawMessage `json:"content_types" yaml:"-"`
}

// ExtractionPath is an ordered sequence of field names (strings) or array
// indices (non-negative integers) locating a leaf value inside a response
// JSON document.
type ExtractionPath []interface{}

// ResponseFormat groups the extraction paths used to read a response.
type ResponseFormat struct {
	Success SuccessPaths `json:"success" yaml:"success"`
	Error   ErrorPaths   `json:"error" yaml:"error"`
	Stream  StreamPaths  `json:"stream" yaml:"stream"`
}

// SuccessPaths locates fields inside a successful (2xx) response.
type SuccessPaths struct {
	TextPath       ExtractionPath `json:"text_path" yaml:"text_path"`
	ContentPath    ExtractionPath `json:"content_path" yaml:"content_path"`
	UsagePath      ExtractionPath `json:"usage_path" yaml:"usage_path"`
	ModelPath      ExtractionPath `json:"model_path" yaml:"model_path"`
	StopReasonPath ExtractionPath `json:"stop_reason_path" yaml:"stop_reason_path"`
}

// ErrorPaths locates fields inside an error response body.
type ErrorPaths struct {
	ErrorPath     ExtractionPath `json:"error_path" yaml:"error_path"`
	ErrorTypePath ExtractionPath `json:"error_type_path" yaml:"error_type_path"`
	ErrorCodePath ExtractionPath `json:"error_code_path" yaml:"error_code_path"`
}

// StreamPaths locates fields inside one SSE frame.
type StreamPaths struct {
	EventTypes       []string       `json:"event_types" yaml:"event_types"`
	ContentDeltaPath ExtractionPath `json:"content_delta_path" yaml:"content_delta_path"`
	UsageDeltaPath   ExtractionPath `json:"usage_delta_path" yaml:"usage_delta_path"`
}

// Limits carries informational context/output limits. Not enforced by
// Context; surfaced for callers that want to pre-flight requests.
type Limits struct {
	MaxContextLength int                    `json:"max_context_length" yaml:"max_context_length"`
	MaxOutputTokens  int                    `json:"max_output_tokens" yaml:"max_output_tokens"`
	RateLimits       map[string]interface{} `json:"rate_limits,omitempty" yaml:"rate_limits,omitempty"`
}

// Features are capability flags a schema advertises.
type Features struct {
	Streaming       bool `json:"streaming" yaml:"streaming"`
	FunctionCalling bool `json:"function_calling" yaml:"function_calling"`
	JSONMode        bool `json:"json_mode" yaml:"json_mode"`
	Vision          bool `json:"vision" yaml:"vision"`
	SystemMessages  bool `json:"system_messages" yaml:"system_messages"`
	MessageHistory  bool `json:"message_history" yaml:"message_history"`
}

// ValidationRules describes request-shape checks build_request enforces
// when validation is enabled.
type ValidationRules struct {
	RequiredFields     []string           `json:"required_fields" yaml:"required_fields"`
	MessageValidation  MessageValidation  `json:"message_validation" yaml:"message_validation"`
}

// MessageValidation constrains the shape of the conversation's message list.
type MessageValidation struct {
	MinMessages       int    `json:"min_messages" yaml:"min_messages"`
	AlternatingRoles  bool   `json:"alternating_roles" yaml:"alternating_roles"`
	LastMessageRole   string `json:"last_message_role" yaml:"last_message_role"`
}

// Name returns the provider name this document describes.
func (d *SchemaDoc) Name() string { return d.Provider.Name }
