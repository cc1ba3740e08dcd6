package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeBody turns a successful response body into loosely typed values.
// Empty bodies yield nil. A body starting with '[' must be an array of
// objects; anything else must be a single object.
func decodeBody(body []byte) (any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if body[0] == '[' {
		var raw []map[string]any
		if err := decodeOne(dec, &raw); err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(raw))
		for i, obj := range raw {
			if obj == nil {
				return nil, fmt.Errorf("%w: element %d is not an object", ErrParse, i)
			}
			out = append(out, convertObject(obj))
		}
		return out, nil
	}

	var obj map[string]any
	if err := decodeOne(dec, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: response is not an object", ErrParse)
	}
	return convertObject(obj), nil
}

func decodeOne(dec *json.Decoder, v any) error {
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", ErrParse)
	}
	return nil
}

func convertObject(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = convertValue(v)
	}
	return out
}

// convertValue normalizes decoded JSON: integers become int64 and other
// numbers float64, recursing into objects and arrays.
func convertValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return convertObject(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = convertValue(item)
		}
		return out
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}
