package schema

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a schema document from raw bytes. ext selects the decoder
// ("json", "yaml", "yml"); an unrecognized or empty ext is rejected, since
// the registry always resolves ext from the source file name.
func Parse(data []byte, ext string) (*SchemaDoc, error) {
	jsonBytes, err := toJSON(data, ext)
	if err != nil {
		return nil, err
	}

	if err := Validate(jsonBytes); err != nil {
		return nil, err
	}

	var doc SchemaDoc
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, newSchemaErr("", fmt.Sprintf("decoding schema: %s", err), err)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(jsonBytes, &raw) //nolint:errcheck // best-effort, doc already parsed above
	doc.raw = raw

	if err := checkStructure(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// toJSON normalizes YAML input to canonical JSON bytes so the rest of the
// package only ever deals with one wire representation, mirroring the
// teacher's dual-format config loader.
func toJSON(data []byte, ext string) ([]byte, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		return data, nil
	case "yaml", "yml":
		var generic interface{}
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, newSchemaErr("", fmt.Sprintf("parsing YAML schema: %s", err), err)
		}
		out, err := json.Marshal(generic)
		if err != nil {
			return nil, newSchemaErr("", fmt.Sprintf("converting YAML schema to JSON: %s", err), err)
		}
		return out, nil
	default:
		return nil, newSchemaErr("", fmt.Sprintf("unsupported schema file extension %q: use .json, .yaml, or .yml", ext), nil)
	}
}

// extOf returns the lowercase extension (without dot) of a file path.
func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
