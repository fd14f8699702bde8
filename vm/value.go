package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Value: runtime scalar carried on the operand stack and in the environment
// ---------------------------------------------------------------------------

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindText
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindInt:     "int",
	KindFloat:   "float",
	KindBool:    "bool",
	KindText:    "string",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is a tagged union over the four runtime kinds. Only the field
// matching Kind is meaningful.
type Value struct {
	Kind  Kind    `cbor:"k"`
	Int   int64   `cbor:"i,omitempty"`
	Float float64 `cbor:"f,omitempty"`
	Bool  bool    `cbor:"b,omitempty"`
	Text  string  `cbor:"t,omitempty"`
}

// IntValue returns an integer value.
func IntValue(n int64) Value { return Value{Kind: KindInt, Int: n} }

// FloatValue returns a floating-point value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// TextValue returns a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// IsValid reports whether v holds one of the runtime kinds.
func (v Value) IsValid() bool { return v.Kind != KindInvalid }

// Truthy follows the source language rules: booleans are themselves,
// numbers are true when non-zero, text is true when non-empty.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindText:
		return v.Text != ""
	}
	return false
}

// String renders the value the way PRINT writes it.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return formatFloat(v.Float)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindText:
		return v.Text
	}
	return "<invalid>"
}

// GoString renders the value as a literal, quoting text. Used by the disassembler.
func (v Value) GoString() string {
	if v.Kind == KindText {
		return strconv.Quote(v.Text)
	}
	return v.String()
}

// formatFloat prints floats in positional notation with a trailing ".0"
// for whole numbers, switching to exponent form below 1e-4 and at or
// above 1e16.
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if abs := math.Abs(f); f != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ---------------------------------------------------------------------------
// Coercion
// ---------------------------------------------------------------------------

// numeric reports whether v takes part in arithmetic. Booleans count as the
// integers 0 and 1.
func (v Value) numeric() bool {
	return v.Kind == KindInt || v.Kind == KindFloat || v.Kind == KindBool
}

func (v Value) asInt() int64 {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindBool:
		if v.Bool {
			return 1
		}
	}
	return 0
}

func (v Value) asFloat() float64 {
	if v.Kind == KindFloat {
		return v.Float
	}
	return float64(v.asInt())
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

// Add returns b + a: integer addition, float addition, or text concatenation.
func Add(b, a Value) (Value, error) {
	if b.Kind == KindText && a.Kind == KindText {
		return TextValue(b.Text + a.Text), nil
	}
	if !b.numeric() || !a.numeric() {
		return Value{}, operandError("+", b, a)
	}
	if b.Kind == KindFloat || a.Kind == KindFloat {
		return FloatValue(b.asFloat() + a.asFloat()), nil
	}
	x, y := b.asInt(), a.asInt()
	sum := x + y
	if (sum > x) != (y > 0) {
		return Value{}, ErrIntegerOverflow
	}
	return IntValue(sum), nil
}

// Sub returns b - a.
func Sub(b, a Value) (Value, error) {
	if !b.numeric() || !a.numeric() {
		return Value{}, operandError("-", b, a)
	}
	if b.Kind == KindFloat || a.Kind == KindFloat {
		return FloatValue(b.asFloat() - a.asFloat()), nil
	}
	x, y := b.asInt(), a.asInt()
	diff := x - y
	if (diff < x) != (y > 0) {
		return Value{}, ErrIntegerOverflow
	}
	return IntValue(diff), nil
}

// Mul returns b * a.
func Mul(b, a Value) (Value, error) {
	if !b.numeric() || !a.numeric() {
		return Value{}, operandError("*", b, a)
	}
	if b.Kind == KindFloat || a.Kind == KindFloat {
		return FloatValue(b.asFloat() * a.asFloat()), nil
	}
	x, y := b.asInt(), a.asInt()
	if x == 0 || y == 0 {
		return IntValue(0), nil
	}
	prod := x * y
	if prod/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return Value{}, ErrIntegerOverflow
	}
	return IntValue(prod), nil
}

// Div returns b / a as a float regardless of operand kinds.
func Div(b, a Value) (Value, error) {
	if !b.numeric() || !a.numeric() {
		return Value{}, operandError("/", b, a)
	}
	if a.asFloat() == 0 {
		return Value{}, ErrDivisionByZero
	}
	return FloatValue(b.asFloat() / a.asFloat()), nil
}

// Mod returns b % a using Go remainder semantics: the result takes the
// sign of the dividend.
func Mod(b, a Value) (Value, error) {
	if !b.numeric() || !a.numeric() {
		return Value{}, operandError("%", b, a)
	}
	if b.Kind == KindFloat || a.Kind == KindFloat {
		if a.asFloat() == 0 {
			return Value{}, ErrDivisionByZero
		}
		return FloatValue(math.Mod(b.asFloat(), a.asFloat())), nil
	}
	if a.asInt() == 0 {
		return Value{}, ErrDivisionByZero
	}
	if a.asInt() == -1 {
		return IntValue(0), nil
	}
	return IntValue(b.asInt() % a.asInt()), nil
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// Equal reports b == a. Values of incomparable kinds are never equal.
func Equal(b, a Value) bool {
	switch {
	case b.numeric() && a.numeric():
		if b.Kind == KindFloat || a.Kind == KindFloat {
			return b.asFloat() == a.asFloat()
		}
		return b.asInt() == a.asInt()
	case b.Kind == KindText && a.Kind == KindText:
		return b.Text == a.Text
	}
	return false
}

// Compare orders b against a, returning -1, 0 or 1. Numbers compare
// numerically and text lexicographically; anything else is an error.
func Compare(b, a Value) (int, error) {
	switch {
	case b.numeric() && a.numeric():
		if b.Kind == KindFloat || a.Kind == KindFloat {
			x, y := b.asFloat(), a.asFloat()
			if math.IsNaN(x) || math.IsNaN(y) {
				return 0, fmt.Errorf("cannot order NaN")
			}
			return cmpOrdered(x, y), nil
		}
		return cmpOrdered(b.asInt(), a.asInt()), nil
	case b.Kind == KindText && a.Kind == KindText:
		return strings.Compare(b.Text, a.Text), nil
	}
	return 0, fmt.Errorf("cannot compare %s with %s", b.Kind, a.Kind)
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func operandError(op string, b, a Value) error {
	return fmt.Errorf("unsupported operand kinds for %s: %s and %s", op, b.Kind, a.Kind)
}
