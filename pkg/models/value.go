package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind discriminates the scalar variants an attribute value can hold.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindString
	KindBool
)

// Value is a tagged scalar: number, string, boolean, or null. Attribute
// payloads are externally configurable per namespace, so values are never
// modeled as fixed struct fields.
//
// The zero Value is null. Value is comparable and safe to use as a map key,
// which the majority aggregation rule relies on.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	b    bool
}

// NullValue returns the null scalar.
func NullValue() Value { return Value{} }

// NumberValue wraps a float64.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is the null scalar.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsNumber returns the numeric payload. The second return is false for
// non-numeric values; string digits are deliberately not coerced.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsString returns the string payload if the value is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsBool returns the boolean payload if the value is a boolean.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// String renders the value for logs and CSV cells.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// MarshalJSON encodes the scalar as its natural JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON scalar. Objects and arrays are rejected:
// attribute payloads are flat by contract.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = NullValue()
	case float64:
		*v = NumberValue(t)
	case string:
		*v = StringValue(t)
	case bool:
		*v = BoolValue(t)
	default:
		return fmt.Errorf("attribute value must be a scalar, got %T", raw)
	}
	return nil
}
