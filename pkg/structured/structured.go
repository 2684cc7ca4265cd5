// Package structured turns untrusted JSON-shaped output from a generative
// service into strictly-typed domain values, or rejects it.
//
// The contract is validate, then coerce, then revalidate: a payload that
// already conforms is returned unchanged; an almost-conforming payload is
// repaired field by field; anything else is rejected and the caller decides
// whether to fall back (analysis) or drop the record (quiz).
package structured

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FieldKind is the expected JSON type of a field.
type FieldKind int

const (
	// String expects a JSON string.
	String FieldKind = iota + 1
	// StringList expects an array of strings.
	StringList
	// Number expects a JSON number.
	Number
	// Object expects a nested object described by Field.Fields.
	Object
)

// Field describes one required field of a shape. Default, when non-nil, is
// substituted for a missing or uncoercible value during the coercion pass.
type Field struct {
	Name    string
	Kind    FieldKind
	Fields  []Field     // for Object
	Default interface{} // for coercion; nil = no default
}

// Shape is an ordered set of required fields.
type Shape struct {
	Fields []Field
}

// Parse validates data against the shape; on failure it coerces field by
// field and validates again. The returned map is data itself when it
// already conformed, a repaired copy otherwise. A second validation
// failure is reported as an error and the caller must treat the payload
// as unusable.
func Parse(s Shape, data map[string]interface{}) (map[string]interface{}, error) {
	if err := validate(s.Fields, data); err == nil {
		return data, nil
	}
	coerced := coerce(s.Fields, data)
	if err := validate(s.Fields, coerced); err != nil {
		return nil, fmt.Errorf("payload could not be validated or coerced: %w", err)
	}
	return coerced, nil
}

func validate(fields []Field, data map[string]interface{}) error {
	if data == nil {
		return fmt.Errorf("not an object")
	}
	for _, f := range fields {
		v, ok := data[f.Name]
		if !ok {
			return fmt.Errorf("missing field %q", f.Name)
		}
		switch f.Kind {
		case String:
			if _, ok := v.(string); !ok {
				return fmt.Errorf("field %q is not a string", f.Name)
			}
		case Number:
			if _, ok := v.(float64); !ok {
				return fmt.Errorf("field %q is not a number", f.Name)
			}
		case StringList:
			list, ok := v.([]interface{})
			if !ok {
				return fmt.Errorf("field %q is not a list", f.Name)
			}
			for i, item := range list {
				if _, ok := item.(string); !ok {
					return fmt.Errorf("field %q[%d] is not a string", f.Name, i)
				}
			}
		case Object:
			obj, ok := v.(map[string]interface{})
			if !ok {
				return fmt.Errorf("field %q is not an object", f.Name)
			}
			if err := validate(f.Fields, obj); err != nil {
				return fmt.Errorf("in %q: %w", f.Name, err)
			}
		}
	}
	return nil
}

// coerce builds a repaired copy of data: lone strings are wrapped into
// one-element lists, scalars are stringified where strings are expected,
// numeric strings are parsed where numbers are expected, and missing
// values take the field default when one is declared.
func coerce(fields []Field, data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		var v interface{}
		if data != nil {
			v = data[f.Name]
		}
		switch f.Kind {
		case String:
			if s, ok := coerceString(v); ok {
				out[f.Name] = s
			} else if f.Default != nil {
				out[f.Name] = f.Default
			}
		case Number:
			if n, ok := coerceNumber(v); ok {
				out[f.Name] = n
			} else if f.Default != nil {
				out[f.Name] = f.Default
			}
		case StringList:
			if l, ok := coerceStringList(v); ok {
				out[f.Name] = l
			} else if f.Default != nil {
				out[f.Name] = f.Default
			}
		case Object:
			obj, _ := v.(map[string]interface{})
			out[f.Name] = coerce(f.Fields, obj)
		}
	}
	return out
}

func coerceString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func coerceNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return n, true
		}
		return 0, false
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func coerceStringList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			s, ok := coerceString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return []interface{}{t}, true
	default:
		return nil, false
	}
}

// DecodeObject decodes a single JSON object from raw model output.
// Generative services occasionally wrap JSON in markdown fences or leading
// prose; fences are stripped first, and a brace scan rescues an embedded
// object when the whole string still fails to parse.
func DecodeObject(raw string) (map[string]interface{}, error) {
	cleaned := stripFences(raw)

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &out); err == nil {
		return out, nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &out); err == nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("invalid JSON object in response")
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
