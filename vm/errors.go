package vm

import (
	"errors"
	"fmt"
)

// Causes carried by RuntimeError. Match them with errors.Is.
var (
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrUndefinedVariable = errors.New("variable is not defined")
	ErrArity             = errors.New("invalid number of parameters")
	ErrUnknownOpcode     = errors.New("invalid operation")
	ErrBadParameter      = errors.New("invalid parameter")
	ErrJumpOutOfRange    = errors.New("jump target out of range")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrIntegerOverflow   = errors.New("integer overflow")
)

// RuntimeError aborts an interpreter run. IP is the index of the faulting
// instruction; the stack and environment are left as they were.
type RuntimeError struct {
	IP  int
	Op  Opcode
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %04d %s: %v", e.IP, e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsRuntimeError reports whether err is, or wraps, a RuntimeError.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}
