package vm

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Type: the verification tag carried by every value
// ---------------------------------------------------------------------------

// Type identifies the kind of a Value. The set is closed; every switch over
// Type in this package is exhaustive.
type Type uint8

const (
	// TypeInteger tags a 64-bit signed integer.
	TypeInteger Type = iota + 1

	// TypeBoolean tags a boolean.
	TypeBoolean
)

// AllTypes returns every defined type in declaration order.
func AllTypes() []Type {
	return []Type{TypeInteger, TypeBoolean}
}

// Valid reports whether t is one of the defined types.
func (t Type) Valid() bool {
	switch t {
	case TypeInteger, TypeBoolean:
		return true
	default:
		return false
	}
}

// String returns the type name as used in listings and diagnostics.
func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "Integer"
	case TypeBoolean:
		return "Boolean"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ---------------------------------------------------------------------------
// Value: tagged, immutable VM values
// ---------------------------------------------------------------------------

// Value is a tagged VM value. The interface is sealed: Integer and Boolean
// are its only implementations, and Type always reports the tag matching
// the concrete kind.
type Value interface {
	Type() Type
	String() string
	isValue()
}

// Integer is a 64-bit signed integer value.
type Integer int64

// Boolean is a boolean value.
type Boolean bool

// Int returns n as a Value.
func Int(n int64) Value { return Integer(n) }

// Bool returns b as a Value.
func Bool(b bool) Value { return Boolean(b) }

func (Integer) Type() Type { return TypeInteger }
func (Boolean) Type() Type { return TypeBoolean }

func (v Integer) String() string { return strconv.FormatInt(int64(v), 10) }
func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }

func (Integer) isValue() {}
func (Boolean) isValue() {}

// Equal reports whether a and b have the same type and payload.
// Values of different types are never equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type() != b.Type() {
		return false
	}
	return a == b
}

// TypesOf returns the type tag of each value, in order.
func TypesOf(values []Value) []Type {
	types := make([]Type, len(values))
	for i, v := range values {
		types[i] = v.Type()
	}
	return types
}
