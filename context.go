package hyni

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hynigo/hyni/internal/credstore"
	"github.com/hynigo/hyni/schema"
)

// Context is mutable per-conversation state bound to exactly one SchemaDoc:
// model selection, an optional system message, parameter overrides, a
// credential, and the ordered message list. It is not safe for concurrent
// use — callers serialize access to one Context, the same way they would
// serialize access to any other mutable, non-thread-safe value; Factory's
// scoped lookup is the sanctioned way to give each worker goroutine its own
// instance.
type Context struct {
	doc    *schema.SchemaDoc
	config ContextConfig

	model         string
	systemMessage string
	hasSystem     bool
	apiKey        string
	parameters    map[string]interface{}
	messages      []Message
}

// NewContext constructs a Context bound to doc, overlaying config's
// defaults onto the schema's own parameter defaults. It never mutates doc.
func NewContext(doc *schema.SchemaDoc, config ContextConfig) (*Context, error) {
	if doc == nil {
		return nil, newSchemaErrLocal("", "schema document is nil")
	}

	c := &Context{
		doc:        doc,
		config:     config,
		model:      doc.Models.Default,
		parameters: make(map[string]interface{}),
	}

	for name, constraint := range doc.Parameters {
		if constraint.Default != nil {
			c.parameters[name] = constraint.Default
		}
	}
	if config.DefaultMaxTokens != 0 {
		c.parameters["max_tokens"] = config.DefaultMaxTokens
	}
	if config.DefaultTemperature != nil {
		c.parameters["temperature"] = *config.DefaultTemperature
	}
	for k, v := range config.CustomParameters {
		c.parameters[k] = v
	}

	return c, nil
}

func newSchemaErrLocal(provider, reason string) error {
	return &schema.SchemaError{Provider: provider, Reason: reason}
}

// Schema returns the SchemaDoc this Context is bound to.
func (c *Context) Schema() *schema.SchemaDoc { return c.doc }

// Model returns the currently selected model name.
func (c *Context) Model() string { return c.model }

// SetModel validates name (when validation is enabled and the schema
// enumerates models) and sets it as the active model.
func (c *Context) SetModel(name string) (*Context, error) {
	if c.config.EnableValidation && len(c.doc.Models.Available) > 0 {
		if !contains(c.doc.Models.Available, name) && !contains(c.doc.Models.Deprecated, name) {
			return c, newValidationError("model", fmt.Sprintf("%q is not a known model for provider %q", name, c.doc.Name()))
		}
	}
	c.model = name
	return c, nil
}

// SetSystemMessage stores a system prompt, to be emitted per the schema's
// system_message descriptor at build_request time.
func (c *Context) SetSystemMessage(text string) (*Context, error) {
	if c.config.EnableValidation && !c.doc.SystemMessage.Supported {
		return c, newValidationError("system_message", fmt.Sprintf("provider %q does not support system messages", c.doc.Name()))
	}
	c.systemMessage = text
	c.hasSystem = true
	return c, nil
}

// HasSystemMessage reports whether a system message has been set.
func (c *Context) HasSystemMessage() bool { return c.hasSystem }

// SystemMessage returns the current system message text, if any.
func (c *Context) SystemMessage() string { return c.systemMessage }

// SetParameter validates and stores one request parameter.
func (c *Context) SetParameter(key string, value interface{}) (*Context, error) {
	if err := c.validateParameter(key, value); err != nil {
		return c, err
	}
	if value == nil {
		delete(c.parameters, key)
		return c, nil
	}
	c.parameters[key] = value
	return c, nil
}

// SetParameters applies SetParameter entry-wise, in map iteration order.
// The first failing entry aborts the call; parameters applied before the
// failure remain set.
func (c *Context) SetParameters(values map[string]interface{}) (*Context, error) {
	for k, v := range values {
		if _, err := c.SetParameter(k, v); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (c *Context) validateParameter(key string, value interface{}) error {
	constraint, known := c.doc.Parameters[key]
	if !known {
		return nil // schemas needn't enumerate every accepted field
	}
	if value == nil {
		if constraint.Required {
			return newValidationError(key, "required parameter cannot be null")
		}
		return nil
	}
	if !c.config.EnableValidation {
		return nil
	}

	switch constraint.Type {
	case "integer", "float":
		f, ok := toFloat(value)
		if !ok {
			return newValidationError(key, fmt.Sprintf("expected a number, got %T", value))
		}
		if constraint.Min != nil && f < *constraint.Min {
			return newValidationError(key, fmt.Sprintf("%v is below minimum %v", f, *constraint.Min))
		}
		if constraint.Max != nil && f > *constraint.Max {
			return newValidationError(key, fmt.Sprintf("%v exceeds maximum %v", f, *constraint.Max))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return newValidationError(key, fmt.Sprintf("expected a boolean, got %T", value))
		}
	case "string":
		if _, ok := value.(string); !ok {
			return newValidationError(key, fmt.Sprintf("expected a string, got %T", value))
		}
	}
	if len(constraint.Enum) > 0 {
		if !enumContains(constraint.Enum, value) {
			return newValidationError(key, fmt.Sprintf("%v is not one of %v", value, constraint.Enum))
		}
	}
	return nil
}

// ClearParameters removes every set parameter, including defaults overlaid
// at construction time.
func (c *Context) ClearParameters() *Context {
	c.parameters = make(map[string]interface{})
	return c
}

// ClearMessages empties the conversation's message list.
func (c *Context) ClearMessages() *Context {
	c.messages = nil
	return c
}

// Reset clears both messages and parameters, restoring the schema and
// ContextConfig defaults for parameters (mirroring construction), and
// returns the model and system message to their construction values. The
// API key is left as it is.
func (c *Context) Reset() *Context {
	c.ClearMessages()
	c.parameters = make(map[string]interface{})
	for name, constraint := range c.doc.Parameters {
		if constraint.Default != nil {
			c.parameters[name] = constraint.Default
		}
	}
	if c.config.DefaultMaxTokens != 0 {
		c.parameters["max_tokens"] = c.config.DefaultMaxTokens
	}
	if c.config.DefaultTemperature != nil {
		c.parameters["temperature"] = *c.config.DefaultTemperature
	}
	for k, v := range c.config.CustomParameters {
		c.parameters[k] = v
	}
	c.model = c.doc.Models.Default
	c.systemMessage = ""
	c.hasSystem = false
	return c
}

// SetAPIKey stores the credential substituted into header/auth templates at
// send time.
func (c *Context) SetAPIKey(key string) *Context {
	c.apiKey = key
	return c
}

// HasAPIKey reports whether a non-empty API key has been set.
func (c *Context) HasAPIKey() bool { return c.apiKey != "" }

// CredentialSource resolves a named credential, as implemented by
// credstore.Store and credstore.SQLiteStore. It is defined here, rather than
// imported from credstore directly, so Context only depends on the method it
// actually calls.
type CredentialSource interface {
	Get(name string) (credstore.Credential, bool)
}

// ResolveCredential fills in the API key from the credential stored under
// name in store, unless one has already been set via SetAPIKey — an
// explicit SetAPIKey always wins, so this is safe to call unconditionally.
// It is a no-op, not an error, if no credential is stored under name: most
// callers have no credential store configured for most providers. It does
// error if a credential is found but was stored for a different provider
// than this Context is bound to.
func (c *Context) ResolveCredential(store CredentialSource, name string) error {
	if c.HasAPIKey() {
		return nil
	}
	cred, ok := store.Get(name)
	if !ok {
		return nil
	}
	if cred.Provider != c.doc.Name() {
		return newValidationError("credential", fmt.Sprintf("credential %q is stored for provider %q, not %q", name, cred.Provider, c.doc.Name()))
	}
	c.SetAPIKey(cred.APIKey)
	return nil
}

// Messages returns the ordered conversation turns. The returned slice is a
// copy; mutating it does not affect the Context.
func (c *Context) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Parameters returns a copy of the current parameter table.
func (c *Context) Parameters() map[string]interface{} {
	out := make(map[string]interface{}, len(c.parameters))
	for k, v := range c.parameters {
		out[k] = v
	}
	return out
}

// AddUserMessage appends a user-role message. If mediaType is non-empty,
// mediaData is treated as a filesystem path and read + base64-encoded
// unless no such file exists, in which case mediaData is assumed to already
// be base64-encoded image bytes.
func (c *Context) AddUserMessage(text, mediaType, mediaData string) (*Context, error) {
	return c.AddMessage("user", text, mediaType, mediaData)
}

// AddAssistantMessage appends a text-only assistant-role message.
func (c *Context) AddAssistantMessage(text string) (*Context, error) {
	return c.AddMessage("assistant", text, "", "")
}

// AddMessage appends a message with an arbitrary schema-declared role.
func (c *Context) AddMessage(role, text, mediaType, mediaData string) (*Context, error) {
	if c.config.EnableValidation && !contains(c.doc.MessageRoles, role) {
		return c, newValidationError("role", fmt.Sprintf("%q is not in provider %q's message_roles", role, c.doc.Name()))
	}

	parts := []ContentPart{TextPart(text)}
	if mediaType != "" {
		if !c.doc.Multimodal.Supported {
			return c, newValidationError("multimodal", fmt.Sprintf("provider %q does not support multimodal content", c.doc.Name()))
		}
		data, err := resolveMediaData(mediaData)
		if err != nil {
			return c, err
		}
		parts = append(parts, ImagePart(mediaType, data))
	}

	if c.config.EnableValidation && c.doc.Validation.MessageValidation.AlternatingRoles && len(c.messages) > 0 {
		if c.messages[len(c.messages)-1].Role == role {
			return c, newValidationError("role", fmt.Sprintf("consecutive %q messages are not allowed; this schema requires alternating roles", role))
		}
	}

	c.messages = append(c.messages, Message{Role: role, Content: parts})
	return c, nil
}

// resolveMediaData reads and base64-encodes the file at path when it
// exists, otherwise returns mediaData unchanged on the assumption it is
// already base64-encoded.
func resolveMediaData(mediaData string) (string, error) {
	info, err := os.Stat(mediaData)
	if err != nil || info.IsDir() {
		return mediaData, nil
	}
	raw, err := os.ReadFile(mediaData) //nolint:gosec
	if err != nil {
		return "", newValidationError("media_data", fmt.Sprintf("reading image file %q: %s", mediaData, err))
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func enumContains(enum []interface{}, v interface{}) bool {
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(v) {
			return true
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// BuildRequest synthesizes a request body from the request template, the
// current model/parameters/messages, and the schema's message and system
// shapes. When the schema advertises streaming, the "stream" field is set
// to the streaming argument (true or false); when it does not, the field is
// never set.
func (c *Context) BuildRequest(streaming bool) ([]byte, error) {
	if c.config.EnableValidation {
		if err := c.validateForRequest(streaming); err != nil {
			return nil, err
		}
	}

	body := append([]byte(nil), c.doc.RequestTemplate...)
	if len(body) == 0 {
		body = []byte(`{}`)
	}

	var err error
	body, err = schema.SetField(body, "model", c.model)
	if err != nil {
		return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("setting model field: %s", err))
	}

	for key, value := range c.parameters {
		body, err = schema.SetField(body, key, value)
		if err != nil {
			return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("setting parameter %q: %s", key, err))
		}
	}

	msgs := c.messages
	if c.hasSystem && c.doc.SystemMessage.Type == "inline" {
		role := c.doc.SystemMessage.Role
		if role == "" {
			role = "system"
		}
		msgs = append([]Message{{Role: role, Content: []ContentPart{TextPart(c.systemMessage)}}}, msgs...)
	}

	msgArray := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		raw, err := c.buildMessageJSON(m)
		if err != nil {
			return nil, err
		}
		msgArray = append(msgArray, raw)
	}
	msgBytes, err := json.Marshal(msgArray)
	if err != nil {
		return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("marshaling messages: %s", err))
	}
	body, err = schema.SetField(body, "messages", json.RawMessage(msgBytes))
	if err != nil {
		return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("setting messages field: %s", err))
	}

	if c.hasSystem && c.doc.SystemMessage.Type == "top_level" {
		field := c.doc.SystemMessage.Field
		if field == "" {
			field = "system"
		}
		body, err = schema.SetField(body, field, c.systemMessage)
		if err != nil {
			return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("setting system field: %s", err))
		}
	}

	if c.doc.Features.Streaming {
		body, err = schema.SetField(body, "stream", streaming)
		if err != nil {
			return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("setting stream field: %s", err))
		}
	}

	stripped, err := stripNullLeaves(body)
	if err != nil {
		return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("stripping null fields: %s", err))
	}

	if c.config.EnableValidation {
		if err := c.validateRequiredFields(stripped); err != nil {
			return nil, err
		}
	}

	return stripped, nil
}

func (c *Context) validateForRequest(streaming bool) error {
	mv := c.doc.Validation.MessageValidation
	minMessages := mv.MinMessages
	if minMessages == 0 {
		minMessages = 1
	}
	if len(c.messages) < minMessages {
		return newValidationError("messages", "at least one message is required")
	}
	if mv.LastMessageRole != "" && len(c.messages) > 0 {
		last := c.messages[len(c.messages)-1]
		if last.Role != mv.LastMessageRole {
			return newValidationError("messages", fmt.Sprintf("last message must have role %q, got %q", mv.LastMessageRole, last.Role))
		}
	}
	if streaming && !c.doc.Features.Streaming {
		return newValidationError("streaming", fmt.Sprintf("provider %q does not advertise streaming support", c.doc.Name()))
	}
	return nil
}

func (c *Context) validateRequiredFields(body []byte) error {
	for _, field := range c.doc.Validation.RequiredFields {
		res, ok := (schema.ExtractionPath{field}).Walk(body)
		if !ok || !res.Exists() {
			return newValidationError(field, "required request field is missing")
		}
	}
	return nil
}

// buildMessageJSON renders one Message using the schema's message
// structure and content-type templates.
func (c *Context) buildMessageJSON(m Message) (json.RawMessage, error) {
	base := append([]byte(nil), c.doc.MessageFormat.Structure...)
	if len(base) == 0 {
		base = []byte(`{}`)
	}

	out, err := schema.SetField(base, "role", m.Role)
	if err != nil {
		return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("setting message role: %s", err))
	}

	if isArrayContentTemplate(base) || m.HasImage() || len(m.Content) > 1 {
		parts, err := c.buildContentParts(m)
		if err != nil {
			return nil, err
		}
		out, err = schema.SetField(out, "content", json.RawMessage(parts))
		if err != nil {
			return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("setting message content: %s", err))
		}
	} else {
		out, err = schema.SetField(out, "content", m.Text())
		if err != nil {
			return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("setting message content: %s", err))
		}
	}
	return json.RawMessage(out), nil
}

func (c *Context) buildContentParts(m Message) ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(m.Content))
	for _, part := range m.Content {
		key := "text"
		if part.Kind == ContentImage {
			key = "image"
		}
		tmpl, ok := c.doc.MessageFormat.ContentTypes[key]
		if !ok {
			return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("schema declares no message_format.content_types.%s", key))
		}
		filled := substitutePlaceholders(tmpl, part)
		parts = append(parts, filled)
	}
	out, err := json.Marshal(parts)
	if err != nil {
		return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("marshaling content parts: %s", err))
	}
	return out, nil
}

func substitutePlaceholders(tmpl json.RawMessage, part ContentPart) json.RawMessage {
	s := string(tmpl)
	s = strings.ReplaceAll(s, "<TEXT_CONTENT>", jsonEscape(part.Text))
	s = strings.ReplaceAll(s, "<MEDIA_TYPE>", jsonEscape(part.MediaType))
	s = strings.ReplaceAll(s, "<MEDIA_DATA>", jsonEscape(part.MediaData))
	return json.RawMessage(s)
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	if len(b) < 2 {
		return ""
	}
	return string(b[1 : len(b)-1])
}

func isArrayContentTemplate(structure json.RawMessage) bool {
	var probe struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(structure, &probe); err != nil {
		return false
	}
	trimmed := bytes.TrimSpace(probe.Content)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// stripNullLeaves recursively removes object fields whose value is JSON
// null, matching build_request step 7.
func stripNullLeaves(doc []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	return json.Marshal(stripNulls(v))
}

func stripNulls(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			if child == nil {
				delete(val, k)
				continue
			}
			val[k] = stripNulls(child)
		}
		return val
	case []interface{}:
		for i, child := range val {
			val[i] = stripNulls(child)
		}
		return val
	default:
		return v
	}
}

// BuildHeaders clones the schema's header templates and substitutes the
// API-key placeholder per the schema's auth descriptor.
func (c *Context) BuildHeaders() (map[string]string, error) {
	out := make(map[string]string, len(c.doc.Headers.Required)+len(c.doc.Headers.Optional))
	for k, v := range c.doc.Headers.Optional {
		out[k] = c.substituteAPIKey(v)
	}
	for k, v := range c.doc.Headers.Required {
		out[k] = c.substituteAPIKey(v)
	}

	switch c.doc.Authentication.Type {
	case "", "header":
		if c.doc.Authentication.KeyName != "" {
			out[c.doc.Authentication.KeyName] = c.doc.Authentication.KeyPrefix + c.apiKey
		}
	}
	return out, nil
}

func (c *Context) substituteAPIKey(template string) string {
	placeholder := c.doc.Authentication.KeyPlaceholder
	if placeholder == "" {
		placeholder = "{api_key}"
	}
	if strings.Contains(template, placeholder) {
		return strings.ReplaceAll(template, placeholder, c.doc.Authentication.KeyPrefix+c.apiKey)
	}
	return template
}

// ExtractTextResponse walks the schema's text_path and returns the
// assistant's plain text, concatenating text-typed content blocks when the
// terminal value is an array.
func (c *Context) ExtractTextResponse(body []byte) (string, error) {
	text, err := c.doc.ExtractText(body)
	if err != nil {
		return "", toResponseShapeError(err)
	}
	return text, nil
}

// ExtractFullResponse returns the raw JSON at content_path.
func (c *Context) ExtractFullResponse(body []byte) (string, error) {
	raw, err := c.doc.ExtractFull(body)
	if err != nil {
		return "", toResponseShapeError(err)
	}
	return raw, nil
}

// ExtractError returns the schema's error_path extraction, or "" if absent.
func (c *Context) ExtractError(body []byte) string {
	return c.doc.ExtractError(body)
}

func toResponseShapeError(err error) error {
	if pe, ok := err.(*schema.PathError); ok {
		return newResponseShapeError([]interface{}(pe.Path), pe.Reason)
	}
	return newResponseShapeError(nil, err.Error())
}

// stateSnapshot is the wire shape of export_state/import_state.
type stateSnapshot struct {
	Provider      string                 `json:"provider"`
	Model         string                 `json:"model"`
	SystemMessage *string                `json:"system_message,omitempty"`
	Parameters    map[string]interface{} `json:"parameters"`
	Messages      []snapshotMessage      `json:"messages"`
}

type snapshotMessage struct {
	Role    string                 `json:"role"`
	Content []snapshotContentPart  `json:"content"`
}

type snapshotContentPart struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	MediaData string `json:"media_data,omitempty"`
}

// ExportState serializes {provider, model, system_message?, parameters,
// messages} so it can later be fed to ImportState, on this Context or
// another bound to the same provider.
func (c *Context) ExportState() ([]byte, error) {
	snap := stateSnapshot{
		Provider:   c.doc.Name(),
		Model:      c.model,
		Parameters: c.parameters,
	}
	if c.hasSystem {
		snap.SystemMessage = &c.systemMessage
	}
	for _, m := range c.messages {
		sm := snapshotMessage{Role: m.Role}
		for _, p := range m.Content {
			switch p.Kind {
			case ContentText:
				sm.Content = append(sm.Content, snapshotContentPart{Type: "text", Text: p.Text})
			case ContentImage:
				sm.Content = append(sm.Content, snapshotContentPart{Type: "image", MediaType: p.MediaType, MediaData: p.MediaData})
			}
		}
		snap.Messages = append(snap.Messages, sm)
	}
	out, err := json.Marshal(snap)
	if err != nil {
		return nil, newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("exporting state: %s", err))
	}
	return out, nil
}

// ImportState replaces this Context's observable state atomically: on any
// error (including a provider mismatch) the Context is left untouched.
func (c *Context) ImportState(data []byte) error {
	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("decoding snapshot: %s", err))
	}
	if snap.Provider != c.doc.Name() {
		return newSchemaErrLocal(c.doc.Name(), fmt.Sprintf("snapshot provider %q does not match context provider %q", snap.Provider, c.doc.Name()))
	}

	messages := make([]Message, 0, len(snap.Messages))
	for _, sm := range snap.Messages {
		msg := Message{Role: sm.Role}
		for _, sp := range sm.Content {
			switch sp.Type {
			case "image":
				msg.Content = append(msg.Content, ImagePart(sp.MediaType, sp.MediaData))
			default:
				msg.Content = append(msg.Content, TextPart(sp.Text))
			}
		}
		messages = append(messages, msg)
	}

	c.model = snap.Model
	c.parameters = snap.Parameters
	if c.parameters == nil {
		c.parameters = make(map[string]interface{})
	}
	c.messages = messages
	if snap.SystemMessage != nil {
		c.systemMessage = *snap.SystemMessage
		c.hasSystem = true
	} else {
		c.systemMessage = ""
		c.hasSystem = false
	}
	return nil
}
