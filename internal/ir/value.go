package ir

import (
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface over the canonical value types.
// Only String, Int, Bool, Array and Object implement it.
// There is no float type: floats are not stable across encoders.
type Value interface {
	irValue()
}

// String is a string value.
type String string

func (String) irValue() {}

// Int is an integer value.
type Int int64

func (Int) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) irValue() {}

// Object maps keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// Float carries f as its shortest round-trip decimal form.
func Float(f float64) String {
	return String(strconv.FormatFloat(f, 'g', -1, 64))
}

// Ints converts a slice of ints.
func Ints(xs []int) Array {
	out := make(Array, len(xs))
	for i, x := range xs {
		out[i] = Int(x)
	}
	return out
}

// Floats converts a slice of floats with Float.
func Floats(xs []float64) Array {
	out := make(Array, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return out
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's string ordering is by UTF-8 bytes, which differs for characters
// outside the Basic Multilingual Plane.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
