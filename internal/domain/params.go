package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Params is an ordered mapping of parameter keys to arbitrary values. At
// least one integrated provider is sensitive to the order of keys in the
// request body, so insertion order is preserved through JSON round-trips.
type Params struct {
	keys   []string
	values map[string]interface{}
}

// NewParams creates an empty parameter set.
func NewParams() Params {
	return Params{values: make(map[string]interface{})}
}

// ParamsFromMap builds a parameter set from a plain map. Key order follows
// the optional order slice; keys not listed are appended in map iteration
// order, so callers that care about ordering must pass it explicitly.
func ParamsFromMap(m map[string]interface{}, order ...string) Params {
	p := NewParams()
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if v, ok := m[k]; ok {
			p.Set(k, v)
			seen[k] = true
		}
	}
	for k, v := range m {
		if !seen[k] {
			p.Set(k, v)
		}
	}
	return p
}

// Set stores a value, appending the key if it is new.
func (p *Params) Set(key string, value interface{}) {
	if p.values == nil {
		p.values = make(map[string]interface{})
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value for key.
func (p Params) Get(key string) (interface{}, bool) {
	v, ok := p.values[key]
	return v, ok
}

// GetString returns the value for key if it is a string.
func (p Params) GetString(key string) (string, bool) {
	v, ok := p.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Delete removes a key, preserving the order of the remaining keys.
func (p *Params) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (p Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of keys.
func (p Params) Len() int {
	return len(p.keys)
}

// Map returns the parameters as a plain map. Ordering is lost; use this only
// for callers that do not care about key order.
func (p Params) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := Params{
		keys:   make([]string, len(p.keys)),
		values: make(map[string]interface{}, len(p.values)),
	}
	copy(out.keys, p.keys)
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}

// Reorder moves the listed keys to the front in the given order. Keys not
// present are skipped; remaining keys keep their relative order.
func (p Params) Reorder(order []string) Params {
	out := NewParams()
	for _, k := range order {
		if v, ok := p.values[k]; ok {
			out.Set(k, v)
		}
	}
	for _, k := range p.keys {
		if !out.Has(k) {
			out.Set(k, p.values[k])
		}
	}
	return out
}

// Equal reports whether two parameter sets have the same keys in the same
// order with deeply equal values.
func (p Params) Equal(other Params) bool {
	if len(p.keys) != len(other.keys) {
		return false
	}
	for i, k := range p.keys {
		if other.keys[i] != k {
			return false
		}
		if !reflect.DeepEqual(p.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON emits the keys in insertion order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal param %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving top-level key order. A JSON
// null decodes to an empty set, same as an absent field.
func (p *Params) UnmarshalJSON(data []byte) error {
	*p = NewParams()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("params must be a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in params", keyTok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode param %q: %w", key, err)
		}
		p.Set(key, normalizeNumbers(value))
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// normalizeNumbers converts json.Number values back to float64 so decoded
// params compare equal to params built in code.
func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]interface{}:
		for k, vv := range t {
			t[k] = normalizeNumbers(vv)
		}
		return t
	case []interface{}:
		for i, vv := range t {
			t[i] = normalizeNumbers(vv)
		}
		return t
	}
	return v
}
