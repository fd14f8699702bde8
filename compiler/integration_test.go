package compiler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/sgm/vm"
)

// runSource compiles and runs src, returning printed lines.
func runSource(t *testing.T, src string) ([]string, error) {
	t.Helper()
	prog, err := Compile(src)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := vm.Execute(context.Background(), prog, &out); err != nil {
		return splitLines(out.String()), err
	}
	return splitLines(out.String()), nil
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func expectOutput(t *testing.T, src string, want ...string) {
	t.Helper()
	got, err := runSource(t, src)
	if err != nil {
		t.Fatalf("%s\nfailed: %v", src, err)
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("%s\n got %q\nwant %q", src, got, want)
	}
}

// ---------------------------------------------------------------------------
// End-to-end scenarios
// ---------------------------------------------------------------------------

func TestScenarioPrintVariable(t *testing.T) {
	expectOutput(t, `int a = 0; print(a);`, "0")
}

func TestScenarioCountingLoop(t *testing.T) {
	expectOutput(t, `int a = 0; while (a < 3) { a = a + 1; print(a); }`, "1", "2", "3")
}

func TestScenarioIf(t *testing.T) {
	expectOutput(t, `if (2 > 1) { print("yes"); }`, "yes")
	expectOutput(t, `if (1 > 2) { print("no"); }`)
}

func TestScenarioNot(t *testing.T) {
	expectOutput(t, `bool b = !(1 < 2); print(b);`, "false")
}

func TestScenarioRedeclaration(t *testing.T) {
	out, err := runSource(t, `int a = 1; int a = 2;`)
	var se *SemanticError
	if !errors.As(err, &se) || se.Kind != Redefinition {
		t.Fatalf("err = %v, want redefinition", err)
	}
	if len(out) != 0 {
		t.Errorf("output = %q, want none", out)
	}
}

func TestScenarioUndefined(t *testing.T) {
	out, err := runSource(t, `print(a);`)
	var se *SemanticError
	if !errors.As(err, &se) || se.Kind != Undefined {
		t.Fatalf("err = %v, want undefined variable", err)
	}
	if len(out) != 0 {
		t.Errorf("output = %q, want none", out)
	}
}

// ---------------------------------------------------------------------------
// Wider programs
// ---------------------------------------------------------------------------

func TestNestedLoopWithIf(t *testing.T) {
	src := `
		mrINTernational a = 0;
		showMeYourGoods("start");
		youSpinMeRound(a < 6)
		{
			a = a + 1;
			doItIf((a % 2) == 0)
			{
				showMeYourGoods(a);
			}
		}
		showMeYourGoods("end");
	`
	expectOutput(t, src, "start", "2", "4", "6", "end")
}

func TestNestedWhile(t *testing.T) {
	src := `
		int i = 0;
		int j = 0;
		int total = 0;
		while (i < 3) {
			j = 0;
			while (j < 4) {
				total = total + 1;
				j = j + 1;
			}
			i = i + 1;
		}
		print(total);
	`
	expectOutput(t, src, "12")
}

func TestArithmeticOutput(t *testing.T) {
	expectOutput(t, `print(1 + 2 * 4 - (90 / 10));`, "0.0")
	expectOutput(t, `print(7 / 2);`, "3.5")
	expectOutput(t, `print(7 % 3);`, "1")
	expectOutput(t, `float f = 1.5; print(f * 2);`, "3.0")
	expectOutput(t, `string s = "ab"; print(s + "cd");`, "abcd")
}

func TestLargeFloatOutput(t *testing.T) {
	expectOutput(t, `print(2000000 / 2);`, "1000000.0")
	expectOutput(t, `float f = 1234567.0; print(f);`, "1234567.0")
	expectOutput(t, `print(10000000000000000 / 1);`, "1e+16")
}

func TestBooleanPrecedenceQuirk(t *testing.T) {
	// && binds tighter than <: 1 < (2 && 3), which is 1 < true.
	expectOutput(t, `print(1 < 2 && 3);`, "false")
	expectOutput(t, `bool z = !(1 + 4 < 2 * 4) || (false && !true); print(z);`, "false")
}

func TestPrintConstants(t *testing.T) {
	expectOutput(t, `print(true); print(2.0); print("a b"); print(0 - 0.5);`, "true", "2.0", "a b", "-0.5")
}

func TestRuntimeErrorSurfaces(t *testing.T) {
	_, err := runSource(t, `int a = 0; print(1 / a);`)
	if !vm.IsRuntimeError(err) || !errors.Is(err, vm.ErrDivisionByZero) {
		t.Fatalf("err = %v, want division by zero RuntimeError", err)
	}

	out, err := runSource(t, `print("before"); string s = "x"; int n = 1; print(s - n);`)
	if !vm.IsRuntimeError(err) {
		t.Fatalf("err = %v, want RuntimeError", err)
	}
	if len(out) != 1 || out[0] != "before" {
		t.Errorf("output before the failure = %q", out)
	}
}

func TestSyntaxErrorSurfaces(t *testing.T) {
	if _, err := runSource(t, `print(1`); !IsSyntaxError(err) {
		t.Errorf("err = %v, want SyntaxError", err)
	}
	if _, err := runSource(t, `print("open);`); !IsSyntaxError(err) {
		t.Errorf("err = %v, want SyntaxError", err)
	}
}

func TestDeterministicOutput(t *testing.T) {
	src := `int a = 0; float f = 0.1; while (a < 10) { a = a + 1; f = f * 2; print(f); }`
	first, err := runSource(t, src)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := runSource(t, src)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(again, "\n") != strings.Join(first, "\n") {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestAnalyze(t *testing.T) {
	a := Analyze(`int x = 1; print(y);`)
	if !IsSemanticError(a.Err) {
		t.Fatalf("Err = %v", a.Err)
	}
	if a.AST == nil || len(a.Tokens) == 0 {
		t.Error("front end results missing")
	}
	if len(a.Variables) != 1 || a.Variables[0] != "x" {
		t.Errorf("Variables = %v", a.Variables)
	}
	if a.Types["x"] != TypeInt {
		t.Errorf("Types[x] = %v", a.Types["x"])
	}

	a = Analyze(`print(`)
	if !IsSyntaxError(a.Err) || a.AST != nil {
		t.Errorf("Analyze(print() = %+v", a)
	}

	a = Analyze(`int x = 1;`)
	if a.Err != nil || len(a.Program) != 2 {
		t.Errorf("Analyze ok case = %+v", a)
	}
}
