package vm

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sgm.vm")

// ctxCheckInterval is how many instructions run between context checks.
const ctxCheckInterval = 1024

// ---------------------------------------------------------------------------
// Interpreter: fetch-decode-execute loop over a Program
// ---------------------------------------------------------------------------

// Interpreter executes a Program on an operand stack with a flat variable
// environment. One Interpreter runs one program at a time; it is not safe
// for concurrent use.
type Interpreter struct {
	program Program
	ip      int
	stack   []Value
	env     map[string]Value
	out     io.Writer
	steps   uint64

	// Trace logs every instruction at debug level.
	Trace bool
}

// NewInterpreter creates an interpreter that prints to out. A nil writer
// means standard output.
func NewInterpreter(out io.Writer) *Interpreter {
	if out == nil {
		out = os.Stdout
	}
	return &Interpreter{out: out}
}

// Execute runs prog on a fresh interpreter writing to out.
func Execute(ctx context.Context, prog Program, out io.Writer) error {
	return NewInterpreter(out).Run(ctx, prog)
}

// Run executes prog from instruction 0 with an empty stack and environment.
// It returns nil when the instruction pointer runs off the end of the
// program, or a *RuntimeError on the first failure.
func (i *Interpreter) Run(ctx context.Context, prog Program) error {
	i.program = prog
	i.ip = 0
	i.stack = i.stack[:0]
	i.env = make(map[string]Value)
	i.steps = 0

	for i.ip < len(i.program) {
		if i.steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("interrupted at %04d: %w", i.ip, err)
			}
		}
		if err := i.step(); err != nil {
			return err
		}
		i.steps++
	}
	return nil
}

// step executes the instruction at ip and advances ip by one. Jumps adjust
// ip before the advance.
func (i *Interpreter) step() error {
	in := i.program[i.ip]
	if i.Trace {
		log.Debugf("[%04d] %-32s sp=%d", i.ip, in, len(i.stack))
	}

	info, ok := GetOpcodeInfo(in.Op)
	if !ok {
		return i.fail(in.Op, ErrUnknownOpcode)
	}
	if len(in.Params) != info.Params {
		return i.fail(in.Op, fmt.Errorf("%w for %s: expected %d, got %d",
			ErrArity, in.Op, info.Params, len(in.Params)))
	}
	if len(i.stack) < info.StackPop {
		return i.fail(in.Op, ErrStackUnderflow)
	}

	switch in.Op {
	// ============ Variables and constants ============
	case OpPush:
		i.push(in.Params[0].Value)

	case OpLoad:
		name, err := i.nameParam(in)
		if err != nil {
			return err
		}
		v, ok := i.env[name]
		if !ok {
			return i.fail(in.Op, fmt.Errorf("%w: %s", ErrUndefinedVariable, name))
		}
		i.push(v)

	case OpStore, OpPop:
		name, err := i.nameParam(in)
		if err != nil {
			return err
		}
		i.env[name] = i.pop()

	// ============ Arithmetic ============
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		a := i.pop()
		b := i.pop()
		var r Value
		var err error
		switch in.Op {
		case OpAdd:
			r, err = Add(b, a)
		case OpSub:
			r, err = Sub(b, a)
		case OpMul:
			r, err = Mul(b, a)
		case OpDiv:
			r, err = Div(b, a)
		case OpMod:
			r, err = Mod(b, a)
		}
		if err != nil {
			return i.fail(in.Op, err)
		}
		i.push(r)

	// ============ Comparison ============
	case OpEq:
		a := i.pop()
		b := i.pop()
		i.push(BoolValue(Equal(b, a)))

	case OpNeq:
		a := i.pop()
		b := i.pop()
		i.push(BoolValue(!Equal(b, a)))

	case OpGe, OpGrt, OpLe, OpLess:
		a := i.pop()
		b := i.pop()
		c, err := Compare(b, a)
		if err != nil {
			return i.fail(in.Op, err)
		}
		var r bool
		switch in.Op {
		case OpGe:
			r = c >= 0
		case OpGrt:
			r = c > 0
		case OpLe:
			r = c <= 0
		case OpLess:
			r = c < 0
		}
		i.push(BoolValue(r))

	// ============ Logical ============
	case OpNot:
		i.push(BoolValue(!i.pop().Truthy()))

	case OpAnd:
		a := i.pop()
		b := i.pop()
		i.push(BoolValue(b.Truthy() && a.Truthy()))

	case OpOr:
		a := i.pop()
		b := i.pop()
		i.push(BoolValue(b.Truthy() || a.Truthy()))

	// ============ Output ============
	case OpPrint:
		if err := i.print(i.pop()); err != nil {
			return i.fail(in.Op, err)
		}

	case OpPrintC:
		if err := i.print(in.Params[0].Value); err != nil {
			return i.fail(in.Op, err)
		}

	// ============ Control flow ============
	case OpJmp:
		if err := i.jump(in); err != nil {
			return err
		}

	case OpJmpIf:
		if i.pop().Truthy() {
			if err := i.jump(in); err != nil {
				return err
			}
		}

	case OpJmpNotIf:
		if !i.pop().Truthy() {
			if err := i.jump(in); err != nil {
				return err
			}
		}

	default:
		return i.fail(in.Op, ErrUnknownOpcode)
	}

	i.ip++
	return nil
}

// jump applies a jump parameter. The caller still advances ip by one
// afterwards, so a relative offset of n resumes at ip+n+1 and an absolute
// target of n resumes at n+1.
func (i *Interpreter) jump(in Instruction) error {
	p := in.Params[0]
	if p.Value.Kind != KindInt {
		return i.fail(in.Op, fmt.Errorf("%w: jump offset must be an int, got %s", ErrBadParameter, p.Value.Kind))
	}
	var target int
	switch p.Kind {
	case Immediate:
		target = int(p.Value.Int)
	case Relative:
		target = i.ip + int(p.Value.Int)
	default:
		return i.fail(in.Op, fmt.Errorf("%w: %s", ErrBadParameter, p.Kind))
	}
	if target+1 < 0 {
		return i.fail(in.Op, fmt.Errorf("%w: %d", ErrJumpOutOfRange, target+1))
	}
	i.ip = target
	return nil
}

func (i *Interpreter) nameParam(in Instruction) (string, error) {
	v := in.Params[0].Value
	if v.Kind != KindText || v.Text == "" {
		return "", i.fail(in.Op, fmt.Errorf("%w: variable name expected, got %s", ErrBadParameter, v.GoString()))
	}
	return v.Text, nil
}

func (i *Interpreter) print(v Value) error {
	_, err := fmt.Fprintln(i.out, v.String())
	return err
}

func (i *Interpreter) fail(op Opcode, err error) error {
	return &RuntimeError{IP: i.ip, Op: op, Err: err}
}

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

func (i *Interpreter) push(v Value) {
	i.stack = append(i.stack, v)
}

// pop removes the top of stack. Callers check depth against the opcode's
// StackPop before popping.
func (i *Interpreter) pop() Value {
	v := i.stack[len(i.stack)-1]
	i.stack = i.stack[:len(i.stack)-1]
	return v
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// Lookup returns the value bound to name in the environment of the last run.
func (i *Interpreter) Lookup(name string) (Value, bool) {
	v, ok := i.env[name]
	return v, ok
}

// StackDepth returns the number of values on the operand stack.
func (i *Interpreter) StackDepth() int {
	return len(i.stack)
}

// Steps returns the number of instructions executed by the last run.
func (i *Interpreter) Steps() uint64 {
	return i.steps
}
