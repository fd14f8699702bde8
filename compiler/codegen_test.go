package compiler

import (
	"testing"

	"github.com/chazu/sgm/vm"
)

func generateSource(t *testing.T, src string) vm.Program {
	t.Helper()
	prog, err := Generate(parseSource(t, src))
	if err != nil {
		t.Fatalf("Generate(%q): %v", src, err)
	}
	return prog
}

func assertProgram(t *testing.T, got, want vm.Program) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("program has %d instructions, want %d\n got:\n%s\nwant:\n%s",
			len(got), len(want), got.Disassemble(), want.Disassemble())
	}
	for i := range want {
		if got[i].String() != want[i].String() {
			t.Errorf("instruction %d = %s, want %s", i, got[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// Lowering shapes
// ---------------------------------------------------------------------------

func TestGenerateDeclaration(t *testing.T) {
	assertProgram(t, generateSource(t, `int a = 0;`), vm.Program{
		vm.OpImm(vm.OpPush, vm.IntValue(0)),
		vm.OpName(vm.OpStore, "a"),
	})
}

func TestGenerateBinaryOrder(t *testing.T) {
	assertProgram(t, generateSource(t, `int a = 1; int b = a - 2 * 3;`), vm.Program{
		vm.OpImm(vm.OpPush, vm.IntValue(1)),
		vm.OpName(vm.OpStore, "a"),
		vm.OpName(vm.OpLoad, "a"),
		vm.OpImm(vm.OpPush, vm.IntValue(2)),
		vm.OpImm(vm.OpPush, vm.IntValue(3)),
		vm.Op(vm.OpMul),
		vm.Op(vm.OpSub),
		vm.OpName(vm.OpStore, "b"),
	})
}

func TestGenerateOperators(t *testing.T) {
	ops := map[string]vm.Opcode{
		"+": vm.OpAdd, "-": vm.OpSub, "*": vm.OpMul, "/": vm.OpDiv, "%": vm.OpMod,
		"==": vm.OpEq, "<": vm.OpLess, ">": vm.OpGrt, "<=": vm.OpLe, ">=": vm.OpGe,
		"&&": vm.OpAnd, "||": vm.OpOr,
	}
	for sym, op := range ops {
		prog := generateSource(t, "bool r = 1 "+sym+" 2;")
		if len(prog) != 4 || prog[2].Op != op {
			t.Errorf("%s lowered to\n%s", sym, prog.Disassemble())
		}
	}
}

func TestGenerateNot(t *testing.T) {
	assertProgram(t, generateSource(t, `bool b = !(1 < 2);`), vm.Program{
		vm.OpImm(vm.OpPush, vm.IntValue(1)),
		vm.OpImm(vm.OpPush, vm.IntValue(2)),
		vm.Op(vm.OpLess),
		vm.Op(vm.OpNot),
		vm.OpName(vm.OpStore, "b"),
	})
}

func TestGeneratePrintForms(t *testing.T) {
	assertProgram(t, generateSource(t, `print("hi"); print(true); int a = 1; print(a); print(a + 1);`), vm.Program{
		vm.OpImm(vm.OpPrintC, vm.TextValue("hi")),
		vm.OpImm(vm.OpPrintC, vm.BoolValue(true)),
		vm.OpImm(vm.OpPush, vm.IntValue(1)),
		vm.OpName(vm.OpStore, "a"),
		vm.OpName(vm.OpLoad, "a"),
		vm.Op(vm.OpPrint),
		vm.OpName(vm.OpLoad, "a"),
		vm.OpImm(vm.OpPush, vm.IntValue(1)),
		vm.Op(vm.OpAdd),
		vm.Op(vm.OpPrint),
	})
}

func TestGenerateIf(t *testing.T) {
	assertProgram(t, generateSource(t, `if (2 > 1) { print("yes"); }`), vm.Program{
		vm.OpImm(vm.OpPush, vm.IntValue(2)),
		vm.OpImm(vm.OpPush, vm.IntValue(1)),
		vm.Op(vm.OpGrt),
		vm.OpRel(vm.OpJmpNotIf, 1),
		vm.OpImm(vm.OpPrintC, vm.TextValue("yes")),
	})
}

func TestGenerateWhile(t *testing.T) {
	prog := generateSource(t, `int a = 0; while (a < 3) { a = a + 1; print(a); }`)
	assertProgram(t, prog, vm.Program{
		vm.OpImm(vm.OpPush, vm.IntValue(0)),
		vm.OpName(vm.OpStore, "a"),
		// condition (3)
		vm.OpName(vm.OpLoad, "a"),
		vm.OpImm(vm.OpPush, vm.IntValue(3)),
		vm.Op(vm.OpLess),
		// exit past body (6) and back jump (1)
		vm.OpRel(vm.OpJmpNotIf, 7),
		// body (6)
		vm.OpName(vm.OpLoad, "a"),
		vm.OpImm(vm.OpPush, vm.IntValue(1)),
		vm.Op(vm.OpAdd),
		vm.OpName(vm.OpStore, "a"),
		vm.OpName(vm.OpLoad, "a"),
		vm.Op(vm.OpPrint),
		vm.OpRel(vm.OpJmp, -(6 + 3 + 2)),
	})
}

func TestGenerateEmptyBodies(t *testing.T) {
	assertProgram(t, generateSource(t, `if (true) { }`), vm.Program{
		vm.OpImm(vm.OpPush, vm.BoolValue(true)),
		vm.OpRel(vm.OpJmpNotIf, 0),
	})
	assertProgram(t, generateSource(t, `while (false) { }`), vm.Program{
		vm.OpImm(vm.OpPush, vm.BoolValue(false)),
		vm.OpRel(vm.OpJmpNotIf, 1),
		vm.OpRel(vm.OpJmp, -3),
	})
}

func TestGenerateEmptyProgram(t *testing.T) {
	if prog := generateSource(t, ""); len(prog) != 0 {
		t.Errorf("empty program lowered to\n%s", prog.Disassemble())
	}
	prog, err := Generate(nil)
	if err != nil || prog != nil {
		t.Errorf("Generate(nil) = %v, %v", prog, err)
	}
}
