package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// metaSchema is a JSON-Schema describing the shape of a provider schema
// document itself — the type-level checks (is `api.endpoint` a string? is
// `parameters.*.type` one of the allowed enum values?) that are tedious to
// hand-write and easy to get subtly wrong. It runs before the structural
// pass in checkStructure, so a document that fails here never reaches the
// hand-written checks at all.
const metaSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["provider", "api", "request_template", "message_roles", "response_format"],
  "properties": {
    "provider": {
      "type": "object",
      "required": ["name"],
      "properties": { "name": { "type": "string", "minLength": 1 } }
    },
    "api": {
      "type": "object",
      "required": ["endpoint", "method"],
      "properties": {
        "endpoint": { "type": "string", "minLength": 1 },
        "method": { "type": "string" },
        "timeout_ms": { "type": "integer" },
        "max_retries": { "type": "integer" }
      }
    },
    "request_template": { "type": "object" },
    "message_roles": {
      "type": "array",
      "items": { "type": "string" },
      "minItems": 1
    },
    "parameters": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": { "enum": ["integer", "float", "boolean", "string", "array"] },
          "required": { "type": "boolean" },
          "min": { "type": "number" },
          "max": { "type": "number" },
          "enum": { "type": "array" }
        }
      }
    },
    "response_format": {
      "type": "object",
      "required": ["success"],
      "properties": {
        "success": {
          "type": "object"
        }
      }
    },
    "features": {
      "type": "object",
      "additionalProperties": { "type": "boolean" }
    }
  }
}`

var compiledMeta *jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("hyni://schema-meta.json", bytes.NewReader([]byte(metaSchema))); err != nil {
		panic(fmt.Sprintf("schema: compiling meta-schema: %s", err))
	}
	s, err := c.Compile("hyni://schema-meta.json")
	if err != nil {
		panic(fmt.Sprintf("schema: compiling meta-schema: %s", err))
	}
	compiledMeta = s
}

// Validate runs the JSON-Schema meta-validation pass described in
// SPEC_FULL.md against raw (already-JSON) schema document bytes. It is
// called automatically by Parse before the document is decoded into a
// SchemaDoc, and again conceptually by checkStructure's hand-written pass
// that follows it.
func Validate(jsonBytes []byte) error {
	var v interface{}
	if err := json.Unmarshal(jsonBytes, &v); err != nil {
		return newSchemaErr("", fmt.Sprintf("invalid JSON: %s", err), err)
	}
	if err := compiledMeta.Validate(v); err != nil {
		return newSchemaErr("", fmt.Sprintf("schema document failed meta-validation: %s", err), err)
	}
	return nil
}

// checkStructure runs the hand-written structural validation from
// spec.md §4.1: required top-level sections, parameter constraint shapes,
// and response-format path shapes; it does not look at the capability
// flags. It runs against
// the already-decoded SchemaDoc, catching cross-field rules the meta-schema
// cannot express (e.g. "min <= max", "either headers.required or an
// authentication block").
func checkStructure(doc *SchemaDoc) error {
	name := doc.Provider.Name
	if name == "" {
		return newSchemaErr("", "provider.name is required", nil)
	}
	if doc.API.Endpoint == "" {
		return newSchemaErr(name, "api.endpoint is required", nil)
	}
	if doc.API.Method == "" {
		return newSchemaErr(name, "api.method is required", nil)
	}
	if len(doc.RequestTemplate) == 0 {
		return newSchemaErr(name, "request_template is required", nil)
	}
	if len(doc.MessageRoles) == 0 {
		return newSchemaErr(name, "message_roles must be non-empty", nil)
	}
	if len(doc.ResponseFormat.Success.TextPath) == 0 && len(doc.ResponseFormat.Success.ContentPath) == 0 {
		return newSchemaErr(name, "response_format.success must declare text_path or content_path", nil)
	}
	hasHeaders := len(doc.Headers.Required) > 0
	hasAuth := doc.Authentication.Type != "" || doc.Authentication.KeyName != ""
	if !hasHeaders && !hasAuth {
		return newSchemaErr(name, "either headers.required or an authentication block is required", nil)
	}

	for pname, c := range doc.Parameters {
		switch c.Type {
		case "integer", "float", "boolean", "string", "array":
		default:
			return newSchemaErr(name, fmt.Sprintf("parameter %q has unknown kind %q", pname, c.Type), nil)
		}
		if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
			return newSchemaErr(name, fmt.Sprintf("parameter %q has min > max", pname), nil)
		}
		if c.Enum != nil && len(c.Enum) == 0 {
			return newSchemaErr(name, fmt.Sprintf("parameter %q declares an empty enum", pname), nil)
		}
	}

	for _, p := range [][2]interface{}{
		{"response_format.success.text_path", doc.ResponseFormat.Success.TextPath},
		{"response_format.success.content_path", doc.ResponseFormat.Success.ContentPath},
		{"response_format.error.error_path", doc.ResponseFormat.Error.ErrorPath},
		{"response_format.stream.content_delta_path", doc.ResponseFormat.Stream.ContentDeltaPath},
	} {
		if err := validatePathShape(name, p[0].(string), p[1].(ExtractionPath)); err != nil {
			return err
		}
	}
	return nil
}

func validatePathShape(provider, label string, path ExtractionPath) error {
	for _, el := range path {
		switch v := el.(type) {
		case string:
		case float64:
			if v < 0 || v != float64(int64(v)) {
				return newSchemaErr(provider, fmt.Sprintf("%s contains a non-integer or negative index %v", label, v), nil)
			}
		default:
			return newSchemaErr(provider, fmt.Sprintf("%s contains an element of unsupported type %T", label, el), nil)
		}
	}
	return nil
}
