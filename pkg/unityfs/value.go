package unityfs

import (
	"fmt"
	"strings"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// Generic values produced by type tree decoding:
//
//	bool, int64 (signed integers), uint64 (unsigned integers), float32, float64,
//	string, []byte (byte arrays and TypelessData), []any (other arrays),
//	Pair, PPtr, *Map (structs and the object root).

// PPtr references an object by file and path id. FileID 0 is the containing
// serialized file; other values index its externals starting at 1.
type PPtr struct {
	FileID int32
	PathID int64
}

// IsNull reports whether the pointer references nothing.
func (p PPtr) IsNull() bool { return p.FileID == 0 && p.PathID == 0 }

func (p PPtr) String() string { return fmt.Sprintf("PPtr(%d, %d)", p.FileID, p.PathID) }

// Pair is a decoded pair<first, second>.
type Pair struct {
	First  any
	Second any
}

// Map holds the fields of a decoded struct in serialization order.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set assigns a field, appending it to the key order if new.
func (m *Map) Set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns a field value.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether the field exists.
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the field names in serialization order.
func (m *Map) Keys() []string { return m.keys }

// Len returns the number of fields.
func (m *Map) Len() int { return len(m.keys) }

func (m *Map) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", k, m.values[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

func (m *Map) field(key string) (any, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, errs.Formatf("field %q missing", key)
	}
	return v, nil
}

func typeMismatch(key string, v any, want string) error {
	return errs.Formatf("field %q is %T, want %s", key, v, want)
}

// Int returns an integer field, converting from any integer representation.
func (m *Map) Int(key string) (int64, error) {
	v, err := m.field(key)
	if err != nil {
		return 0, err
	}
	if n, ok := toInt(v); ok {
		return n, nil
	}
	return 0, typeMismatch(key, v, "integer")
}

// IntOr returns an integer field, or def when the field is absent.
func (m *Map) IntOr(key string, def int64) (int64, error) {
	if !m.Has(key) {
		return def, nil
	}
	return m.Int(key)
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Float returns a floating point field.
func (m *Map) Float(key string) (float64, error) {
	v, err := m.field(key)
	if err != nil {
		return 0, err
	}
	switch f := v.(type) {
	case float32:
		return float64(f), nil
	case float64:
		return f, nil
	}
	if n, ok := toInt(v); ok {
		return float64(n), nil
	}
	return 0, typeMismatch(key, v, "float")
}

// Bool returns a boolean field.
func (m *Map) Bool(key string) (bool, error) {
	v, err := m.field(key)
	if err != nil {
		return false, err
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if n, ok := toInt(v); ok {
		return n != 0, nil
	}
	return false, typeMismatch(key, v, "bool")
}

// Str returns a string field. Byte arrays are accepted.
func (m *Map) Str(key string) (string, error) {
	v, err := m.field(key)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", typeMismatch(key, v, "string")
}

// Bytes returns a byte array field. Strings are accepted.
func (m *Map) Bytes(key string) ([]byte, error) {
	v, err := m.field(key)
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case []any:
		if len(b) == 0 {
			return nil, nil
		}
	}
	return nil, typeMismatch(key, v, "byte array")
}

// Array returns an array field.
func (m *Map) Array(key string) ([]any, error) {
	v, err := m.field(key)
	if err != nil {
		return nil, err
	}
	switch a := v.(type) {
	case []any:
		return a, nil
	case []byte:
		out := make([]any, len(a))
		for i, b := range a {
			out[i] = uint64(b)
		}
		return out, nil
	}
	return nil, typeMismatch(key, v, "array")
}

// Map returns a struct field.
func (m *Map) Map(key string) (*Map, error) {
	v, err := m.field(key)
	if err != nil {
		return nil, err
	}
	if sub, ok := v.(*Map); ok {
		return sub, nil
	}
	return nil, typeMismatch(key, v, "struct")
}

// PPtr returns an object pointer field.
func (m *Map) PPtr(key string) (PPtr, error) {
	v, err := m.field(key)
	if err != nil {
		return PPtr{}, err
	}
	if p, ok := v.(PPtr); ok {
		return p, nil
	}
	return PPtr{}, typeMismatch(key, v, "PPtr")
}
