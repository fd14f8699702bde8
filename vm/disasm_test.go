package vm

import (
	"strings"
	"testing"
)

func TestDisassembleListing(t *testing.T) {
	prog := Program{
		OpImm(OpPush, IntValue(1)),
		OpName(OpStore, "a"),
		OpName(OpLoad, "a"),
		OpRel(OpJmpNotIf, 1),
		OpImm(OpPrintC, TextValue("yes")),
		Op(OpAdd),
	}

	got := prog.DisassembleWithName("main.sgm")
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")

	if lines[0] != "; === main.sgm ===" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "6 instructions") {
		t.Errorf("summary = %q", lines[1])
	}
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8:\n%s", len(lines), got)
	}

	checks := []struct {
		line int
		want []string
	}{
		{2, []string{"0000", "PUSH", "1"}},
		{3, []string{"0001", "STORE", `"a"`}},
		{5, []string{"0003", "JMP_NOT_IF", "+1", "; -> 0005"}},
		{6, []string{"0004", "PRINTC", `"yes"`}},
		{7, []string{"0005", "ADD"}},
	}
	for _, c := range checks {
		for _, w := range c.want {
			if !strings.Contains(lines[c.line], w) {
				t.Errorf("line %d = %q, missing %q", c.line, lines[c.line], w)
			}
		}
	}
}

func TestDisassembleWithoutName(t *testing.T) {
	got := Program{Op(OpPrint)}.Disassemble()
	if strings.Contains(got, "===") {
		t.Errorf("unnamed listing has a name header:\n%s", got)
	}
	if !strings.HasSuffix(got, "0000  PRINT\n") {
		t.Errorf("listing = %q", got)
	}
}

func TestDisassembleImmediateJumpTarget(t *testing.T) {
	got := Program{OpAbs(OpJmp, 4)}.Disassemble()
	if !strings.Contains(got, "; -> 0005") {
		t.Errorf("immediate jump annotation missing:\n%s", got)
	}
}

func TestDisassembleBackwardJump(t *testing.T) {
	prog := Program{
		Op(OpAdd),
		Op(OpAdd),
		OpRel(OpJmp, -3),
	}
	got := prog.Disassemble()
	if !strings.Contains(got, "-3") || !strings.Contains(got, "; -> 0000") {
		t.Errorf("backward jump listing:\n%s", got)
	}
}
