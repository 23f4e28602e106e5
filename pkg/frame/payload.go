package frame

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is any JSON value carried as frame inputs, event payloads or anchor
// metadata. After normalization objects are Payload at the top level and
// map[string]any below it, arrays are []any and numbers are json.Number, so
// a value compares equal to itself after a store round trip.
type Value = any

// Payload is a JSON object. Outputs and digest data are always objects.
type Payload map[string]any

// NormalizeValue returns a deep copy of v in its decoded JSON form. nil and
// JSON null become an empty object.
func NormalizeValue(v Value) (Value, error) {
	data, err := MarshalValue(v)
	if err != nil {
		return nil, err
	}
	return DecodeValue(data)
}

// MarshalValue encodes v, writing "{}" for nil and JSON null.
func MarshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	if string(data) == "null" {
		return []byte("{}"), nil
	}
	return data, nil
}

// DecodeValue parses any JSON value without losing integer precision. Empty
// input yields an empty object.
func DecodeValue(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Payload{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decoding payload: trailing data after JSON value")
	}
	if obj, ok := v.(map[string]any); ok {
		return Payload(obj), nil
	}
	return v, nil
}

// AsObject returns v as a Payload when it is a JSON object.
func AsObject(v Value) (Payload, bool) {
	switch o := v.(type) {
	case Payload:
		return o, o != nil
	case map[string]any:
		return Payload(o), o != nil
	}
	return nil, false
}

// Clone returns a normalized deep copy.
func (p Payload) Clone() (Payload, error) {
	if p == nil {
		return Payload{}, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return DecodePayload(data)
}

// Marshal encodes the payload, writing "{}" for nil.
func (p Payload) Marshal() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// DecodePayload parses a JSON object. Empty input and null yield an empty
// payload; any other non-object value is an error.
func DecodePayload(data []byte) (Payload, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return Payload{}, nil
	}
	p, ok := AsObject(v)
	if !ok {
		return nil, fmt.Errorf("decoding payload: expected a JSON object, got %T", v)
	}
	return p, nil
}

// String returns the value at key when it is a non-empty string.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// FirstString returns the first non-empty string among keys.
func (p Payload) FirstString(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := p.String(k); ok {
			return v, true
		}
	}
	return "", false
}

// Int returns the value at key as an int when it is numeric. Fractions are
// truncated.
func (p Payload) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}

// Object returns the value at key when it is a nested JSON object.
func (p Payload) Object(key string) (Payload, bool) {
	return AsObject(p[key])
}
