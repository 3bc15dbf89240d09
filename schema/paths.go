package schema

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// gjsonPath renders an ExtractionPath as a gjson/sjson dotted path string,
// escaping any literal '.', '*', or '?' inside a field-name segment so they
// are not mistaken for gjson path syntax.
func (p ExtractionPath) gjsonPath() string {
	segs := make([]string, 0, len(p))
	for _, el := range p {
		switch v := el.(type) {
		case string:
			segs = append(segs, escapeSegment(v))
		case float64:
			segs = append(segs, strconv.Itoa(int(v)))
		case int:
			segs = append(segs, strconv.Itoa(v))
		}
	}
	return strings.Join(segs, ".")
}

func escapeSegment(s string) string {
	r := strings.NewReplacer(".", "\\.", "*", "\\*", "?", "\\?")
	return r.Replace(s)
}

// Empty reports whether the path has no elements — the convention used
// throughout the package to mean "this field is not declared by the
// schema".
func (p ExtractionPath) Empty() bool { return len(p) == 0 }

// Walk locates the value at path inside a JSON document. ok is false if
// any link in the path is missing.
func (p ExtractionPath) Walk(doc []byte) (gjson.Result, bool) {
	if p.Empty() {
		return gjson.Result{}, false
	}
	res := gjson.GetBytes(doc, p.gjsonPath())
	return res, res.Exists()
}

// Set writes value into doc at path, creating intermediate objects/arrays
// as needed, and returns the updated document. Used by Context.build_request
// to populate the request template generically from schema-declared field
// names.
func (p ExtractionPath) Set(doc []byte, value interface{}) ([]byte, error) {
	return sjson.SetBytes(doc, p.gjsonPath(), value)
}

// SetRaw is like Set but writes a pre-encoded JSON fragment verbatim
// instead of marshaling value.
func (p ExtractionPath) SetRaw(doc []byte, rawJSON string) ([]byte, error) {
	return sjson.SetRawBytes(doc, p.gjsonPath(), []byte(rawJSON))
}

// SetField is a convenience for the common case of a single top-level or
// dotted field name rather than a full ExtractionPath.
func SetField(doc []byte, field string, value interface{}) ([]byte, error) {
	return sjson.SetBytes(doc, field, value)
}

// ExtractText implements spec.md §4.2's extract_text_response: if the
// terminal value is a string, return it; if it is an array of content
// items, concatenate the "text" field of each item whose "type" equals
// "text". Returns a *PathError when any link in the path is missing;
// Context wraps it into a ResponseShapeError.
func (d *SchemaDoc) ExtractText(body []byte) (string, error) {
	path := d.ResponseFormat.Success.TextPath
	res, ok := path.Walk(body)
	if !ok {
		return "", &PathError{Path: path, Reason: "text_path not found in response"}
	}
	if res.IsArray() {
		var sb strings.Builder
		for _, item := range res.Array() {
			if item.Get("type").String() == "text" {
				sb.WriteString(item.Get("text").String())
			}
		}
		return sb.String(), nil
	}
	return res.String(), nil
}

// ExtractFull implements extract_full_response: return the value at
// content_path verbatim, as its raw JSON text.
func (d *SchemaDoc) ExtractFull(body []byte) (string, error) {
	path := d.ResponseFormat.Success.ContentPath
	res, ok := path.Walk(body)
	if !ok {
		return "", &PathError{Path: path, Reason: "content_path not found in response"}
	}
	return res.Raw, nil
}

// ExtractError implements extract_error: walk error_path; return "" if
// absent rather than an error, since a missing error_path on a non-2xx
// response is itself meaningful (the caller falls back to the raw body).
func (d *SchemaDoc) ExtractError(body []byte) string {
	path := d.ResponseFormat.Error.ErrorPath
	if path.Empty() {
		return ""
	}
	res, ok := path.Walk(body)
	if !ok {
		return ""
	}
	return res.String()
}

// ExtractStreamDelta walks content_delta_path inside one decoded SSE
// frame, returning "" and ok=false if the frame does not carry a delta at
// that path (e.g. a control frame with no content).
func (d *SchemaDoc) ExtractStreamDelta(frame []byte) (string, bool) {
	path := d.ResponseFormat.Stream.ContentDeltaPath
	res, ok := path.Walk(frame)
	if !ok {
		return "", false
	}
	return res.String(), true
}

// PathError is returned by the ExtractXxx helpers above; Context wraps it
// into a hyni.ResponseShapeError so callers see one consistent error kind.
type PathError struct {
	Path   ExtractionPath
	Reason string
}

func (e *PathError) Error() string { return e.Reason }
