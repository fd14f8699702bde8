package vm

import (
	"errors"
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Printing
// ---------------------------------------------------------------------------

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{IntValue(0), "0"},
		{IntValue(-17), "-17"},
		{FloatValue(2), "2.0"},
		{FloatValue(0.5), "0.5"},
		{FloatValue(-3), "-3.0"},
		{FloatValue(0), "0.0"},
		{FloatValue(1e6), "1000000.0"},
		{FloatValue(1234567), "1234567.0"},
		{FloatValue(-2.5e6), "-2500000.0"},
		{FloatValue(1e15), "1000000000000000.0"},
		{FloatValue(1e16), "1e+16"},
		{FloatValue(1e21), "1e+21"},
		{FloatValue(0.0001), "0.0001"},
		{FloatValue(0.00001), "1e-05"},
		{FloatValue(math.Inf(1)), "+Inf"},
		{BoolValue(true), "true"},
		{BoolValue(false), "false"},
		{TextValue("hi there"), "hi there"},
		{Value{}, "<invalid>"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestValueGoStringQuotesText(t *testing.T) {
	if got := TextValue("a\"b").GoString(); got != `"a\"b"` {
		t.Errorf("GoString = %s", got)
	}
	if got := IntValue(3).GoString(); got != "3" {
		t.Errorf("GoString = %s", got)
	}
}

func TestValueTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{BoolValue(true), true},
		{BoolValue(false), false},
		{IntValue(0), false},
		{IntValue(-1), true},
		{FloatValue(0), false},
		{FloatValue(0.1), true},
		{TextValue(""), false},
		{TextValue("x"), true},
		{Value{}, false},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("%v.Truthy() = %v, want %v", tt.v.GoString(), got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

func TestAddKinds(t *testing.T) {
	r, err := Add(IntValue(2), IntValue(3))
	if err != nil || r != IntValue(5) {
		t.Errorf("2 + 3 = %v, %v", r, err)
	}
	r, err = Add(IntValue(2), FloatValue(0.5))
	if err != nil || r != FloatValue(2.5) {
		t.Errorf("2 + 0.5 = %v, %v", r, err)
	}
	r, err = Add(BoolValue(true), IntValue(1))
	if err != nil || r != IntValue(2) {
		t.Errorf("true + 1 = %v, %v", r, err)
	}
	r, err = Add(TextValue("foo"), TextValue("bar"))
	if err != nil || r != TextValue("foobar") {
		t.Errorf("concat = %v, %v", r, err)
	}
	if _, err := Add(TextValue("foo"), IntValue(1)); err == nil {
		t.Error("text + int should fail")
	}
}

func TestIntegerOverflow(t *testing.T) {
	if _, err := Add(IntValue(math.MaxInt64), IntValue(1)); !errors.Is(err, ErrIntegerOverflow) {
		t.Errorf("MaxInt64 + 1: err = %v", err)
	}
	if _, err := Sub(IntValue(math.MinInt64), IntValue(1)); !errors.Is(err, ErrIntegerOverflow) {
		t.Errorf("MinInt64 - 1: err = %v", err)
	}
	if _, err := Mul(IntValue(math.MaxInt64), IntValue(2)); !errors.Is(err, ErrIntegerOverflow) {
		t.Errorf("MaxInt64 * 2: err = %v", err)
	}
	if _, err := Mul(IntValue(math.MinInt64), IntValue(-1)); !errors.Is(err, ErrIntegerOverflow) {
		t.Errorf("MinInt64 * -1: err = %v", err)
	}
	if r, err := Add(IntValue(math.MaxInt64), IntValue(-1)); err != nil || r.Int != math.MaxInt64-1 {
		t.Errorf("MaxInt64 + -1 = %v, %v", r, err)
	}
}

func TestDivAlwaysFloat(t *testing.T) {
	r, err := Div(IntValue(6), IntValue(3))
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind != KindFloat || r.Float != 2 {
		t.Errorf("6 / 3 = %#v, want float 2", r)
	}
	if _, err := Div(IntValue(1), FloatValue(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("1 / 0.0: err = %v", err)
	}
}

func TestMod(t *testing.T) {
	tests := []struct {
		b, a Value
		want Value
	}{
		{IntValue(7), IntValue(3), IntValue(1)},
		{IntValue(-7), IntValue(3), IntValue(-1)},
		{IntValue(7), IntValue(-3), IntValue(1)},
		{IntValue(math.MinInt64), IntValue(-1), IntValue(0)},
		{FloatValue(7.5), IntValue(2), FloatValue(1.5)},
	}
	for _, tt := range tests {
		got, err := Mod(tt.b, tt.a)
		if err != nil {
			t.Errorf("%v %% %v: %v", tt.b, tt.a, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%v %% %v = %v, want %v", tt.b, tt.a, got, tt.want)
		}
	}
	if _, err := Mod(IntValue(1), IntValue(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("1 %% 0: err = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

func TestEqual(t *testing.T) {
	if !Equal(IntValue(1), FloatValue(1)) {
		t.Error("1 == 1.0 should be true")
	}
	if !Equal(BoolValue(true), IntValue(1)) {
		t.Error("true == 1 should be true")
	}
	if Equal(TextValue("1"), IntValue(1)) {
		t.Error("\"1\" == 1 should be false")
	}
	if !Equal(TextValue("a"), TextValue("a")) {
		t.Error("text equality failed")
	}
}

func TestCompare(t *testing.T) {
	c, err := Compare(IntValue(1), FloatValue(1.5))
	if err != nil || c != -1 {
		t.Errorf("Compare(1, 1.5) = %d, %v", c, err)
	}
	c, err = Compare(TextValue("b"), TextValue("a"))
	if err != nil || c != 1 {
		t.Errorf("Compare(b, a) = %d, %v", c, err)
	}
	if _, err := Compare(TextValue("a"), IntValue(1)); err == nil {
		t.Error("ordering text against int should fail")
	}
	if _, err := Compare(FloatValue(math.NaN()), IntValue(1)); err == nil {
		t.Error("ordering NaN should fail")
	}
}
