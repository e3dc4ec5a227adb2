package script

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/rowbridge/rowbridge/internal/record"
)

// dataDict is a Starlark dict whose string keys are also readable as
// attributes, so expressions can write data.name as well as data["name"].
// When a record field shadows a dict method name the field wins.
type dataDict struct {
	*starlark.Dict
}

func (d *dataDict) Attr(name string) (starlark.Value, error) {
	if v, found, err := d.Dict.Get(starlark.String(name)); err == nil && found {
		return v, nil
	}
	return d.Dict.Attr(name)
}

func (d *dataDict) AttrNames() []string {
	names := d.Dict.AttrNames()
	for _, item := range d.Dict.Items() {
		if s, ok := item[0].(starlark.String); ok {
			names = append(names, string(s))
		}
	}
	return names
}

// toStarlark converts a Go value to a Starlark value. Maps become dataDicts
// at every level so dotted access works on nested objects too.
func toStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil

	case string:
		return starlark.String(val), nil

	case bool:
		return starlark.Bool(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case float64:
		return starlark.Float(val), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
		}
		return &dataDict{Dict: dict}, nil

	case record.Record:
		return toStarlark(map[string]any(val))

	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// fromStarlark converts a Starlark value back to the pipeline's generic Go
// shape: string, int64, float64, bool, []any, map[string]any, or nil.
func fromStarlark(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Bool:
		return bool(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			// Integers beyond int64 degrade to their decimal string.
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case *starlark.List:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := fromStarlark(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil

	case starlark.Tuple:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := fromStarlark(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil

	case *dataDict:
		return dictToGo(val.Dict)

	case *starlark.Dict:
		return dictToGo(val)

	default:
		return nil, fmt.Errorf("unsupported result type %s", v.Type())
	}
}

func dictToGo(d *starlark.Dict) (map[string]any, error) {
	out := make(map[string]any, d.Len())
	for _, item := range d.Items() {
		key, ok := item[0].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
		}
		gv, err := fromStarlark(item[1])
		if err != nil {
			return nil, fmt.Errorf("dict key %q: %w", key, err)
		}
		out[string(key)] = gv
	}
	return out, nil
}
