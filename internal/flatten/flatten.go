// Package flatten projects tree-shaped JSON onto a rectangular record set
// suitable for row-oriented output.
//
// The column universe is the union of keys across every element, in
// first-seen order. Because encoding/json discards object key order, the
// package decodes the raw document itself with a token walk that remembers
// the order keys appeared in.
package flatten

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rowbridge/rowbridge/internal/pipeline"
	"github.com/rowbridge/rowbridge/internal/record"
)

// Options configures flattening behavior.
type Options struct {
	// Paths explodes nested objects into dotted-path columns (address.city)
	// instead of serializing them to a JSON string. Arrays are serialized in
	// either mode.
	Paths bool
}

// Flatten converts a raw JSON document into a rectangular record set. An
// array flattens element by element; a single object is lifted to a
// one-element array. Any other shape is a format error.
func Flatten(raw []byte, opts Options) (*record.Set, error) {
	root, err := decodeOrdered(raw)
	if err != nil {
		return nil, &pipeline.ParseError{Err: err}
	}

	var elems []any
	switch v := root.(type) {
	case []any:
		elems = v
	case *orderedObject:
		elems = []any{v}
	default:
		return nil, &pipeline.FormatError{Msg: "expected an array of objects or a single object"}
	}

	set := record.NewSet()

	// First pass: the whole array is scanned before any record is built so
	// every output record can be initialized with the full column union.
	for _, el := range elems {
		obj, ok := el.(*orderedObject)
		if !ok {
			continue
		}
		collectColumns(set, obj, "", opts)
	}

	// Second pass: emit rectangular records, all union columns present.
	for _, el := range elems {
		obj, ok := el.(*orderedObject)
		if !ok {
			continue
		}
		rec := make(record.Record, len(set.Columns))
		for _, col := range set.Columns {
			rec[col] = ""
		}
		if err := copyValues(rec, obj, "", opts); err != nil {
			return nil, err
		}
		set.Append(rec)
	}
	return set, nil
}

func collectColumns(set *record.Set, obj *orderedObject, prefix string, opts Options) {
	for _, key := range obj.keys {
		name := prefix + key
		if nested, ok := obj.values[key].(*orderedObject); ok && opts.Paths {
			collectColumns(set, nested, name+".", opts)
			continue
		}
		set.AddColumns(name)
	}
}

func copyValues(rec record.Record, obj *orderedObject, prefix string, opts Options) error {
	for _, key := range obj.keys {
		name := prefix + key
		v := obj.values[key]
		switch val := v.(type) {
		case *orderedObject:
			if opts.Paths {
				if err := copyValues(rec, val, name+".", opts); err != nil {
					return err
				}
				continue
			}
			s, err := serialize(val)
			if err != nil {
				return err
			}
			rec[name] = s
		case []any:
			s, err := serialize(val)
			if err != nil {
				return err
			}
			rec[name] = s
		default:
			rec[name] = v
		}
	}
	return nil
}

func serialize(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize nested value: %w", err)
	}
	return string(b), nil
}

// orderedObject is a JSON object that remembers the order its keys appeared
// in the source document.
type orderedObject struct {
	keys   []string
	values map[string]any
}

// MarshalJSON emits keys in source order so serialized nested cells read the
// same as the input document.
func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeOrdered decodes a JSON document, representing objects as
// *orderedObject. Numbers decode as float64, matching the record model.
func decodeOrdered(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	default:
		return tok, nil
	}
}

func decodeObject(dec *json.Decoder) (*orderedObject, error) {
	obj := &orderedObject{values: make(map[string]any)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, want string", keyTok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		if _, dup := obj.values[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = v
	}
	// Consume closing '}'.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	arr := []any{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	// Consume closing ']'.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}
