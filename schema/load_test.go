package schema

import "testing"

const minimalJSON = `{
	"provider": {"name": "acme"},
	"api": {"endpoint": "https://acme.test/v1/chat", "method": "POST"},
	"headers": {"required": {"Authorization": "Bearer {api_key}"}},
	"request_template": {"model": "", "messages": []},
	"message_roles": ["user", "assistant"],
	"response_format": {
		"success": {"text_path": ["choices", 0, "message", "content"]}
	}
}`

const minimalYAML = `
provider:
  name: acme
api:
  endpoint: https://acme.test/v1/chat
  method: POST
headers:
  required:
    Authorization: "Bearer {api_key}"
request_template:
  model: ""
  messages: []
message_roles: [user, assistant]
response_format:
  success:
    text_path: [choices, 0, message, content]
`

func TestParse_JSON(t *testing.T) {
	doc, err := Parse([]byte(minimalJSON), "json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Name() != "acme" {
		t.Errorf("got name %q", doc.Name())
	}
	if doc.API.Method != "POST" {
		t.Errorf("got method %q", doc.API.Method)
	}
}

func TestParse_YAML(t *testing.T) {
	doc, err := Parse([]byte(minimalYAML), "yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Name() != "acme" {
		t.Errorf("got name %q", doc.Name())
	}
	if len(doc.ResponseFormat.Success.TextPath) != 4 {
		t.Errorf("got text_path %v, want 4 elements", doc.ResponseFormat.Success.TextPath)
	}
}

func TestParse_JSONAndYAMLEquivalent(t *testing.T) {
	jdoc, err := Parse([]byte(minimalJSON), "json")
	if err != nil {
		t.Fatalf("Parse(json): %v", err)
	}
	ydoc, err := Parse([]byte(minimalYAML), "yaml")
	if err != nil {
		t.Fatalf("Parse(yaml): %v", err)
	}
	if jdoc.Name() != ydoc.Name() || jdoc.API.Endpoint != ydoc.API.Endpoint {
		t.Errorf("expected JSON and YAML forms of the same schema to decode equivalently, got %+v vs %+v", jdoc, ydoc)
	}
}

func TestParse_UnsupportedExtension(t *testing.T) {
	if _, err := Parse([]byte(minimalJSON), "toml"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{not json`), "json"); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParse_MissingRequiredSection(t *testing.T) {
	missing := `{
		"provider": {"name": "acme"},
		"api": {"endpoint": "https://acme.test/v1/chat", "method": "POST"}
	}`
	if _, err := Parse([]byte(missing), "json"); err == nil {
		t.Fatal("expected error for schema missing request_template/message_roles/response_format")
	}
}
