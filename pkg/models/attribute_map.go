package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AttributeMap is an insertion-ordered mapping from attribute key to scalar
// value. Iteration order matters: the first and majority aggregation rules
// break ties by encounter order, so the order keys arrive in must survive a
// JSON round trip.
type AttributeMap struct {
	keys   []string
	values map[string]Value
}

// NewAttributeMap returns an empty map.
func NewAttributeMap() AttributeMap {
	return AttributeMap{values: make(map[string]Value)}
}

// Set stores a value under key, appending the key on first insertion.
func (m *AttributeMap) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m AttributeMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m AttributeMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m AttributeMap) Len() int { return len(m.keys) }

// Clone returns an independent copy.
func (m AttributeMap) Clone() AttributeMap {
	out := NewAttributeMap()
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// MarshalJSON writes the object with keys in insertion order.
func (m AttributeMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := m.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object, preserving key order. Nested
// objects or arrays are a structural input error.
func (m *AttributeMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attribute data must be a JSON object")
	}

	*m = NewAttributeMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("attribute key must be a string")
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := valTok.(type) {
		case nil:
			m.Set(key, NullValue())
		case json.Number:
			n, err := t.Float64()
			if err != nil {
				return fmt.Errorf("attribute %q: %w", key, err)
			}
			m.Set(key, NumberValue(n))
		case string:
			m.Set(key, StringValue(t))
		case bool:
			m.Set(key, BoolValue(t))
		case json.Delim:
			return fmt.Errorf("attribute %q: nested values are not supported", key)
		default:
			return fmt.Errorf("attribute %q: unsupported value %v", key, t)
		}
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
