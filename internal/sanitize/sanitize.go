// Package sanitize turns an analysis document into a value that survives
// strict JSON encoding, and produces its RFC 8785 canonical form.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/gowebpki/jcs"
)

// Document sanitizes every field of doc. A field that cannot be walked is
// replaced by its string form; the rest of the document is kept.
func Document(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if s, ok := field(v); ok {
			out[k] = s
		}
	}
	return out
}

// Value sanitizes a single value. The second result is false when v has no
// JSON-safe form and should be dropped from its parent map.
func Value(v any) (any, bool) {
	return walk(reflect.ValueOf(v))
}

func field(v any) (out any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = fmt.Sprint(v), true
		}
	}()
	return Value(v)
}

func walk(v reflect.Value) (any, bool) {
	for v.IsValid() && v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return nil, false
	}

	switch t := v.Interface().(type) {
	case time.Time:
		if t.IsZero() {
			return nil, false
		}
		return t.Format(time.RFC3339), true
	case json.Number:
		return t.String(), true
	case fmt.Stringer:
		return t.String(), true
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return "true", true
		}
		return "false", true
	case reflect.String:
		return v.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Type().PkgPath() != "" {
			return v.Int(), true
		}
		return v.Interface(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Type().PkgPath() != "" {
			return v.Uint(), true
		}
		return v.Interface(), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	case reflect.Pointer:
		return walk(v.Elem())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return []any{}, true
		}
		out := make([]any, v.Len())
		for i := range out {
			// list positions keep their place; unusable items become null
			out[i], _ = walk(v.Index(i))
		}
		return out, true
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			if s, ok := walk(iter.Value()); ok {
				out[key(iter.Key())] = s
			}
		}
		return out, true
	default:
		return fmt.Sprint(v.Interface()), true
	}
}

func key(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if s, ok := walk(k); ok && s != nil {
		return fmt.Sprint(s)
	}
	return fmt.Sprint(k.Interface())
}

// Canonical returns the RFC 8785 encoding of a sanitized document.
func Canonical(doc map[string]any) ([]byte, error) {
	return Marshal(Document(doc))
}

// Marshal encodes an already JSON-safe value in RFC 8785 canonical form.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}
	return out, nil
}

// Fingerprint is the hex SHA-256 of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
