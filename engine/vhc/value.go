package vhc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindString
	KindBool
)

// Value is the tagged union an answer carries on the wire: a JSON number,
// string, or boolean depending on the item's declared type. Keeping the
// discriminant explicit lets the scoring engine switch exhaustively instead
// of sniffing runtime types.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	b    bool
}

// Num builds a numeric Value.
func Num(f float64) Value { return Value{kind: KindNumber, num: f} }

// Str builds a string Value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Bool builds a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// Number returns the numeric payload; ok is false for other kinds.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// Text returns the string payload; ok is false for other kinds.
func (v Value) Text() (string, bool) { return v.str, v.kind == KindString }

// Boolean returns the bool payload; ok is false for other kinds.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Key renders the value the way score maps are keyed: numbers in their
// shortest decimal form ("4", not "4.000000"), booleans as true/false.
func (v Value) Key() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

func (v Value) String() string { return v.Key() }

// Equal compares two values for identical kind and payload.
func (v Value) Equal(o Value) bool { return v == o }

// MarshalJSON writes the bare scalar, matching the persisted mock shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalJSON accepts a JSON number, string, or boolean.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		*v = Num(t)
	case string:
		*v = Str(t)
	case bool:
		*v = Bool(t)
	default:
		return fmt.Errorf("vhc: unsupported answer value %s", string(data))
	}
	return nil
}
