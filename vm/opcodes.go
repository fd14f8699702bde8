package vm

import "fmt"

// Opcode identifies a single stack-machine operation.
type Opcode byte

const (
	// ========================================================================
	// Variables and constants
	// ========================================================================

	OpLoad  Opcode = 0x01 // Push variable named by the parameter
	OpStore Opcode = 0x02 // Pop and bind to the variable named by the parameter
	OpPush  Opcode = 0x03 // Push the parameter value
	OpPop   Opcode = 0x04 // Pop into the variable named by the parameter

	// ========================================================================
	// Arithmetic (a = pop, b = pop, push b <op> a)
	// ========================================================================

	OpAdd Opcode = 0x10
	OpSub Opcode = 0x11
	OpMul Opcode = 0x12
	OpDiv Opcode = 0x13 // Real-valued division, always yields a float
	OpMod Opcode = 0x14

	// ========================================================================
	// Comparison (a = pop, b = pop, push b <cmp> a)
	// ========================================================================

	OpEq   Opcode = 0x20
	OpNeq  Opcode = 0x21
	OpGe   Opcode = 0x22
	OpGrt  Opcode = 0x23
	OpLe   Opcode = 0x24
	OpLess Opcode = 0x25

	// ========================================================================
	// Logical
	// ========================================================================

	OpNot Opcode = 0x30
	OpAnd Opcode = 0x31 // Both operands already evaluated
	OpOr  Opcode = 0x32

	// ========================================================================
	// Output
	// ========================================================================

	OpPrint  Opcode = 0x40 // Print top of stack
	OpPrintC Opcode = 0x41 // Print the parameter, stack untouched

	// ========================================================================
	// Control flow
	// ========================================================================

	OpJmp      Opcode = 0x50
	OpJmpIf    Opcode = 0x51 // Jump if popped value is truthy
	OpJmpNotIf Opcode = 0x52 // Jump if popped value is falsy
)

// OpcodeInfo provides metadata about each opcode for validation and disassembly.
type OpcodeInfo struct {
	Name      string // Human-readable name
	Params    int    // Required parameter count
	StackPop  int    // Values popped from the operand stack
	StackPush int    // Values pushed to the operand stack
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpLoad:  {"LOAD", 1, 0, 1},
	OpStore: {"STORE", 1, 1, 0},
	OpPush:  {"PUSH", 1, 0, 1},
	OpPop:   {"POP", 1, 1, 0},

	OpAdd: {"ADD", 0, 2, 1},
	OpSub: {"SUB", 0, 2, 1},
	OpMul: {"MUL", 0, 2, 1},
	OpDiv: {"DIV", 0, 2, 1},
	OpMod: {"MOD", 0, 2, 1},

	OpEq:   {"EQ", 0, 2, 1},
	OpNeq:  {"NEQ", 0, 2, 1},
	OpGe:   {"GE", 0, 2, 1},
	OpGrt:  {"GRT", 0, 2, 1},
	OpLe:   {"LE", 0, 2, 1},
	OpLess: {"LESS", 0, 2, 1},

	OpNot: {"NOT", 0, 1, 1},
	OpAnd: {"AND", 0, 2, 1},
	OpOr:  {"OR", 0, 2, 1},

	OpPrint:  {"PRINT", 0, 1, 0},
	OpPrintC: {"PRINTC", 1, 0, 0},

	OpJmp:      {"JMP", 1, 0, 0},
	OpJmpIf:    {"JMP_IF", 1, 1, 0},
	OpJmpNotIf: {"JMP_NOT_IF", 1, 1, 0},
}

// GetOpcodeInfo returns metadata for an opcode. The second result is false
// for opcodes outside the instruction set.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// String returns the opcode's mnemonic.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
}

// IsJump reports whether the opcode transfers control.
func (op Opcode) IsJump() bool {
	return op == OpJmp || op == OpJmpIf || op == OpJmpNotIf
}

// LookupOpcode resolves a mnemonic such as "JMP_NOT_IF" to its opcode.
func LookupOpcode(name string) (Opcode, bool) {
	for op, info := range opcodeInfoTable {
		if info.Name == name {
			return op, true
		}
	}
	return 0, false
}
