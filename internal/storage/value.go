package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind tags the scalar held by a Value.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindBool   ValueKind = "bool"
)

// Value is a metadata scalar: string, integer, real or boolean. The zero
// Value is an empty string.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	flt  float64
	b    bool
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, num: i} }

// Float returns a real Value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the scalar tag.
func (v Value) Kind() ValueKind {
	if v.kind == "" {
		return KindString
	}
	return v.kind
}

// Equal reports whether two values are equal. Integers and reals compare
// numerically across kinds.
func (v Value) Equal(o Value) bool {
	if v.numeric() && o.numeric() {
		return v.asFloat() == o.asFloat()
	}
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	}
	return false
}

// Compare orders v against o: -1, 0 or 1. Only values of comparable kinds
// (numeric with numeric, string with string) yield ok=true.
func (v Value) Compare(o Value) (int, bool) {
	if v.numeric() && o.numeric() {
		a, b := v.asFloat(), o.asFloat()
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	}
	if v.Kind() == KindString && o.Kind() == KindString {
		switch {
		case v.str < o.str:
			return -1, true
		case v.str > o.str:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (v Value) numeric() bool {
	return v.Kind() == KindInt || v.Kind() == KindFloat
}

func (v Value) asFloat() float64 {
	if v.Kind() == KindInt {
		return float64(v.num)
	}
	return v.flt
}

// MarshalJSON writes the bare scalar. Floats use the shortest representation
// that round-trips.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return []byte(strconv.FormatInt(v.num, 10)), nil
	case KindFloat:
		return json.Marshal(v.flt)
	case KindBool:
		return json.Marshal(v.b)
	}
	return nil, fmt.Errorf("unknown value kind %q", v.kind)
}

// UnmarshalJSON reads a bare scalar, keeping integral numbers as integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		*v = String(x)
	case bool:
		*v = Bool(x)
	case json.Number:
		if i, err := strconv.ParseInt(x.String(), 10, 64); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := x.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		*v = Float(f)
	default:
		return fmt.Errorf("metadata values must be scalars, got %T", raw)
	}
	return nil
}

// Metadata is a schemaless map of scalar values.
type Metadata map[string]Value

// Clone returns a copy of the map. A nil map clones to nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
