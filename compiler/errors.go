package compiler

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Compile errors
// ---------------------------------------------------------------------------

// SyntaxError reports token text or a token stream that does not fit the
// grammar. Parsing stops at the first one.
type SyntaxError struct {
	Msg   string
	Found Token // offending token; zero for lexer errors and end of input
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Msg
}

// SemanticKind classifies a SemanticError.
type SemanticKind int

const (
	// Redefinition: a declaration names a variable that already exists.
	Redefinition SemanticKind = iota + 1
	// Undefined: a variable is read or assigned before being declared.
	Undefined
	// DeclarationInExpression: a typed declaration appears where a value is expected.
	DeclarationInExpression
)

func (k SemanticKind) String() string {
	switch k {
	case Redefinition:
		return "redefinition"
	case Undefined:
		return "undefined variable"
	case DeclarationInExpression:
		return "declaration in expression"
	}
	return fmt.Sprintf("SemanticKind(%d)", k)
}

// SemanticError reports a violation of the declare-once, declare-before-use
// rule. Generation stops at the first one.
type SemanticError struct {
	Kind SemanticKind
	Name string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("semantic error: %s: %s", e.Kind, e.Name)
}

// IsSyntaxError reports whether err is or wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsSemanticError reports whether err is or wraps a *SemanticError.
func IsSemanticError(err error) bool {
	var se *SemanticError
	return errors.As(err, &se)
}
