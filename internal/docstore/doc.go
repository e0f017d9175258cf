package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Doc is a decoded JSON document. Numbers decode as float64.
type Doc map[string]any

// From converts a JSON-tagged struct (or map) into a Doc.
func From(v any) (Doc, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := Doc{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	return doc, nil
}

// Decode fills v (a pointer to a JSON-tagged struct) from the document.
func (d Doc) Decode(v any) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// String returns a string field, or "" when absent or not a string.
func (d Doc) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns a boolean field, or false.
func (d Doc) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Float returns a numeric field, or 0.
func (d Doc) Float(key string) float64 {
	switch n := d[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Time parses an RFC 3339 string field. ok is false when the field is
// missing, empty or unparseable.
func (d Doc) Time(key string) (t time.Time, ok bool) {
	s := d.String(key)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Path returns the value at a dotted path, or nil.
func (d Doc) Path(path string) any {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Doc:
		return m, true
	}
	return nil, false
}

// FieldOp is an atomic field operation passed to Update.
type FieldOp interface {
	apply(current any) (any, error)
}

type increment struct{ n float64 }

// Increment adds n to a numeric field, treating a missing field as 0.
func Increment(n float64) FieldOp { return increment{n: n} }

func (op increment) apply(current any) (any, error) {
	switch v := current.(type) {
	case nil:
		return op.n, nil
	case float64:
		return v + op.n, nil
	default:
		return nil, fmt.Errorf("increment on non-numeric field (%T)", current)
	}
}

type arrayUnion struct{ vals []any }

// ArrayUnion appends each value not already present in an array field,
// creating the array when missing.
func ArrayUnion(vals ...any) FieldOp { return arrayUnion{vals: vals} }

func (op arrayUnion) apply(current any) (any, error) {
	var arr []any
	switch v := current.(type) {
	case nil:
	case []any:
		arr = v
	default:
		return nil, fmt.Errorf("array union on non-array field (%T)", current)
	}
	for _, raw := range op.vals {
		val, err := normalize(raw)
		if err != nil {
			return nil, err
		}
		dup := false
		for _, existing := range arr {
			if reflect.DeepEqual(existing, val) {
				dup = true
				break
			}
		}
		if !dup {
			arr = append(arr, val)
		}
	}
	return arr, nil
}

// normalize round-trips v through JSON so comparisons see the same
// shapes as decoded documents.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func applyFields(doc Doc, fields map[string]any) error {
	for path, val := range fields {
		if path == "" {
			return fmt.Errorf("empty field path")
		}
		parts := strings.Split(path, ".")
		parent := map[string]any(doc)
		for _, part := range parts[:len(parts)-1] {
			next, ok := asMap(parent[part])
			if !ok {
				next = map[string]any{}
				parent[part] = next
			}
			parent = next
		}

		leaf := parts[len(parts)-1]
		if op, ok := val.(FieldOp); ok {
			out, err := op.apply(parent[leaf])
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			parent[leaf] = out
			continue
		}
		norm, err := normalize(val)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		parent[leaf] = norm
	}
	return nil
}
