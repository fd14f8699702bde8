package vm

import (
	"fmt"
	"strings"
)

// ParamKind says how an instruction parameter is interpreted.
type ParamKind uint8

const (
	// Immediate parameters are used as-is: a literal, a variable name, or
	// an absolute instruction index for jumps.
	Immediate ParamKind = iota + 1

	// Relative parameters are offsets added to the instruction pointer.
	Relative
)

func (k ParamKind) String() string {
	switch k {
	case Immediate:
		return "IMMEDIATE"
	case Relative:
		return "RELATIVE"
	default:
		return fmt.Sprintf("ParamKind(%d)", k)
	}
}

// Parameter is a single instruction operand.
type Parameter struct {
	Kind  ParamKind `cbor:"k"`
	Value Value     `cbor:"v"`
}

func (p Parameter) String() string {
	return fmt.Sprintf("%s: %s", p.Kind, p.Value.GoString())
}

// Instruction is one opcode with zero or one parameters.
type Instruction struct {
	Op     Opcode      `cbor:"op"`
	Params []Parameter `cbor:"p,omitempty"`
}

func (in Instruction) String() string {
	if len(in.Params) == 0 {
		return in.Op.String()
	}
	parts := make([]string, len(in.Params))
	for i, p := range in.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s: %s", in.Op, strings.Join(parts, ", "))
}

// Program is a densely indexed instruction sequence. The index is the only
// addressing unit.
type Program []Instruction

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Op builds a parameterless instruction.
func Op(op Opcode) Instruction {
	return Instruction{Op: op}
}

// OpImm builds an instruction with one immediate parameter.
func OpImm(op Opcode, v Value) Instruction {
	return Instruction{Op: op, Params: []Parameter{{Kind: Immediate, Value: v}}}
}

// OpName builds an instruction whose immediate parameter is a variable name.
func OpName(op Opcode, name string) Instruction {
	return OpImm(op, TextValue(name))
}

// OpRel builds a jump with a relative offset.
func OpRel(op Opcode, offset int) Instruction {
	return Instruction{Op: op, Params: []Parameter{{Kind: Relative, Value: IntValue(int64(offset))}}}
}

// OpAbs builds a jump that sets the pointer to index. Execution resumes at
// index+1 because the pointer still advances after the jump.
func OpAbs(op Opcode, index int) Instruction {
	return OpImm(op, IntValue(int64(index)))
}
