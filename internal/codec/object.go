package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a field-addressable JSON payload. Accessors report the first
// missing or mistyped field so decode failures short-circuit at the point
// of first error. Numbers are kept as json.Number so integer fields
// round-trip exactly.
type Object map[string]any

// ParseObject decodes raw JSON into an Object.
func ParseObject(raw []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj Object
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return obj, nil
}

// AsObject converts a decoded JSON value to an Object.
func AsObject(v any) (Object, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Object(m), true
}

func (o Object) String(key string) (string, error) {
	v, ok := o[key]
	if !ok {
		return "", missingField(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(key, "string")
	}
	return s, nil
}

func (o Object) Int(key string) (int64, error) {
	v, ok := o[key]
	if !ok {
		return 0, missingField(key)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, wrongType(key, "number")
	}
	i, err := n.Int64()
	if err != nil {
		return 0, wrongType(key, "integer")
	}
	return i, nil
}

func (o Object) Object(key string) (Object, error) {
	v, ok := o[key]
	if !ok {
		return nil, missingField(key)
	}
	m, ok := AsObject(v)
	if !ok {
		return nil, wrongType(key, "object")
	}
	return m, nil
}

func (o Object) Array(key string) ([]any, error) {
	v, ok := o[key]
	if !ok {
		return nil, missingField(key)
	}
	a, ok := v.([]any)
	if !ok {
		return nil, wrongType(key, "array")
	}
	return a, nil
}

// OptionalInt reads an integer field that may be absent.
func (o Object) OptionalInt(key string) (int64, bool) {
	i, err := o.Int(key)
	return i, err == nil
}

// OptionalBool reads a boolean field that may be absent.
func (o Object) OptionalBool(key string) (bool, bool) {
	v, ok := o[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// OptionalObject reads a nested object that may be absent.
func (o Object) OptionalObject(key string) (Object, bool) {
	v, ok := o[key]
	if !ok {
		return nil, false
	}
	return AsObject(v)
}

// OptionalString reads a string field that may be absent.
func (o Object) OptionalString(key string) (string, bool) {
	v, ok := o[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func missingField(key string) error {
	return fmt.Errorf("missing required %q field in payload", key)
}

func wrongType(key, want string) error {
	return fmt.Errorf("field %q is not a %s", key, want)
}
