// pkg/query/value.go
package query

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var nullLiteral = []byte("null")

// Value is the JSON-serialized result of an in-page evaluation. JavaScript
// undefined and null are both "nil" values, but they are kept apart because
// some engines report them differently. The zero Value is undefined.
type Value struct {
	raw []byte
}

// NewValue wraps raw JSON returned by an engine. An empty payload is treated
// as undefined.
func NewValue(raw []byte) Value {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Undefined()
	}
	return Value{raw: raw}
}

// ValueOf marshals a Go value that an engine has already decoded.
func ValueOf(v any) (Value, error) {
	if v == nil {
		return Null(), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("could not encode evaluation result: %w", err)
	}
	return NewValue(raw), nil
}

// Null is the JavaScript null value.
func Null() Value { return Value{raw: nullLiteral} }

// Undefined is the JavaScript undefined value.
func Undefined() Value { return Value{} }

// IsUndefined reports whether the evaluation produced undefined.
func (v Value) IsUndefined() bool { return len(v.raw) == 0 }

// IsNull reports whether the evaluation produced null.
func (v Value) IsNull() bool {
	return bytes.Equal(bytes.TrimSpace(v.raw), nullLiteral)
}

// IsNil reports whether the value is null or undefined.
func (v Value) IsNil() bool { return v.IsUndefined() || v.IsNull() }

// Raw returns the JSON payload. Undefined values return nil.
func (v Value) Raw() []byte { return v.raw }

// Decode unmarshals the value into dst. A nil value leaves dst untouched.
func (v Value) Decode(dst any) error {
	if v.IsNil() {
		return nil
	}
	if err := json.Unmarshal(v.raw, dst); err != nil {
		return fmt.Errorf("could not decode evaluation result: %w", err)
	}
	return nil
}

// Interface decodes the value into its generic Go form.
func (v Value) Interface() (any, error) {
	var out any
	if err := v.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarshalJSON encodes undefined as null so the value can be embedded in output.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsUndefined() {
		return nullLiteral, nil
	}
	return v.raw, nil
}

// String renders the raw JSON for logs and diagnostics.
func (v Value) String() string {
	if v.IsUndefined() {
		return "undefined"
	}
	return string(v.raw)
}

// AttrValue is the nullable string returned by getAttribute.
type AttrValue struct {
	Value   string `json:"value"`
	Present bool   `json:"present"`
}

func attrFromValue(v Value) (AttrValue, error) {
	if v.IsNil() {
		return AttrValue{}, nil
	}
	var s string
	if err := v.Decode(&s); err != nil {
		return AttrValue{}, err
	}
	return AttrValue{Value: s, Present: true}, nil
}

func stringFromValue(v Value) (string, error) {
	var s string
	if err := v.Decode(&s); err != nil {
		return "", err
	}
	return s, nil
}
