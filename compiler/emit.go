package compiler

import "github.com/chazu/sgm/vm"

// ---------------------------------------------------------------------------
// Sequence builders
// ---------------------------------------------------------------------------
//
// These functions assemble instruction sequences from smaller ones. They
// hold no state and never modify their arguments.

// GenerateIf runs body when cond leaves a truthy value:
// cond ++ [JMP_NOT_IF +len(body)] ++ body.
func GenerateIf(cond, body vm.Program) vm.Program {
	out := make(vm.Program, 0, len(cond)+1+len(body))
	out = append(out, cond...)
	out = append(out, vm.OpRel(vm.OpJmpNotIf, len(body)))
	out = append(out, body...)
	return out
}

// GenerateWhile repeats body while cond leaves a truthy value. The body is
// extended with a backward jump to the first instruction of cond and the
// result is lowered like an if.
func GenerateWhile(cond, body vm.Program) vm.Program {
	loop := make(vm.Program, 0, len(body)+1)
	loop = append(loop, body...)
	loop = append(loop, vm.OpRel(vm.OpJmp, -(len(body)+len(cond)+2)))
	return GenerateIf(cond, loop)
}

// GenerateBinary evaluates left then right and applies op, so the right
// operand is on top of the stack when op runs.
func GenerateBinary(left, right vm.Program, op vm.Opcode) vm.Program {
	out := make(vm.Program, 0, len(left)+len(right)+1)
	out = append(out, left...)
	out = append(out, right...)
	out = append(out, vm.Op(op))
	return out
}

// GenerateUnary evaluates operand and applies op.
func GenerateUnary(operand vm.Program, op vm.Opcode) vm.Program {
	out := make(vm.Program, 0, len(operand)+1)
	out = append(out, operand...)
	out = append(out, vm.Op(op))
	return out
}

// GenerateConstant pushes v.
func GenerateConstant(v vm.Value) vm.Program {
	return vm.Program{vm.OpImm(vm.OpPush, v)}
}

// GenerateLoad pushes the value of a variable.
func GenerateLoad(name string) vm.Program {
	return vm.Program{vm.OpName(vm.OpLoad, name)}
}

// GenerateStore evaluates value and binds the result to name.
func GenerateStore(name string, value vm.Program) vm.Program {
	out := make(vm.Program, 0, len(value)+1)
	out = append(out, value...)
	out = append(out, vm.OpName(vm.OpStore, name))
	return out
}

// GenerateStoreConstant binds a constant to name.
func GenerateStoreConstant(name string, v vm.Value) vm.Program {
	return GenerateStore(name, GenerateConstant(v))
}

// GeneratePrint evaluates value and prints the result.
func GeneratePrint(value vm.Program) vm.Program {
	out := make(vm.Program, 0, len(value)+1)
	out = append(out, value...)
	out = append(out, vm.Op(vm.OpPrint))
	return out
}

// GeneratePrintConstant prints v without touching the stack.
func GeneratePrintConstant(v vm.Value) vm.Program {
	return vm.Program{vm.OpImm(vm.OpPrintC, v)}
}
