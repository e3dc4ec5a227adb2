package codec

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/rowbridge/rowbridge/internal/pipeline"
)

// DecodeJSON parses a JSON document into the generic value shape used by the
// transform stages: map[string]any, []any, string, float64, bool, nil.
func DecodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &pipeline.ParseError{Err: err}
	}
	return v, nil
}

// EncodeJSON writes v as JSON. indent is the pretty-print width in spaces;
// zero or negative produces compact output. A trailing newline is always
// emitted.
func EncodeJSON(w io.Writer, v any, indent int) error {
	enc := json.NewEncoder(w)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	return enc.Encode(v)
}

// MarshalJSONValue renders v with the given indent and no trailing newline,
// for embedding serialized values in cells or messages.
func MarshalJSONValue(v any, indent int) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, v, indent); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
