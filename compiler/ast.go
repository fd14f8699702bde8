package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/sgm/vm"
)

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for sgm
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes. The set of nodes is
// closed: only types in this file implement it.
type Node interface {
	fmt.Stringer
	node() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// NumberLiteral is a constant int, float or string.
type NumberLiteral struct {
	Value vm.Value
}

func (n *NumberLiteral) node()          {}
func (n *NumberLiteral) expr()          {}
func (n *NumberLiteral) String() string { return n.Value.GoString() }

// BooleanLiteral is true or false.
type BooleanLiteral struct {
	Value bool
}

func (n *BooleanLiteral) node() {}
func (n *BooleanLiteral) expr() {}
func (n *BooleanLiteral) String() string {
	if n.Value {
		return "true"
	}
	return "false"
}

// VariableRef names a variable. IsDeclaration is set where the occurrence
// introduces the variable, in which case Type holds the declared type.
type VariableRef struct {
	Name          string
	IsDeclaration bool
	Type          DataType
}

func (n *VariableRef) node() {}
func (n *VariableRef) expr() {}
func (n *VariableRef) String() string {
	if n.IsDeclaration {
		return fmt.Sprintf("(%s %s)", n.Type, n.Name)
	}
	return n.Name
}

// BinaryOp applies an infix operator.
type BinaryOp struct {
	Left  Expr
	Op    TokenType
	Right Expr
}

func (n *BinaryOp) node() {}
func (n *BinaryOp) expr() {}
func (n *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Op, n.Left, n.Right)
}

// UnaryOp applies a prefix operator. The only one is logical not.
type UnaryOp struct {
	Op      TokenType
	Operand Expr
}

func (n *UnaryOp) node() {}
func (n *UnaryOp) expr() {}
func (n *UnaryOp) String() string {
	return fmt.Sprintf("(%s %s)", n.Op, n.Operand)
}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Assignment binds Value to Target, declaring it when Target.IsDeclaration.
type Assignment struct {
	Target *VariableRef
	Value  Expr
}

func (n *Assignment) node() {}
func (n *Assignment) stmt() {}
func (n *Assignment) String() string {
	return fmt.Sprintf("(= %s %s)", n.Target, n.Value)
}

// Print writes the value of an expression.
type Print struct {
	Value Expr
}

func (n *Print) node()          {}
func (n *Print) stmt()          {}
func (n *Print) String() string { return fmt.Sprintf("(print %s)", n.Value) }

// If runs Body once when Condition is truthy.
type If struct {
	Condition Expr
	Body      *Block
}

func (n *If) node()          {}
func (n *If) stmt()          {}
func (n *If) String() string { return fmt.Sprintf("(if %s %s)", n.Condition, n.Body) }

// While runs Body for as long as Condition is truthy.
type While struct {
	Condition Expr
	Body      *Block
}

func (n *While) node()          {}
func (n *While) stmt()          {}
func (n *While) String() string { return fmt.Sprintf("(while %s %s)", n.Condition, n.Body) }

// Block is an ordered statement list. The program itself is a Block.
type Block struct {
	Statements []Stmt
}

func (n *Block) node() {}
func (n *Block) stmt() {}
func (n *Block) String() string {
	parts := make([]string, len(n.Statements))
	for i, s := range n.Statements {
		parts[i] = s.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// NoOp is the empty statement.
type NoOp struct{}

func (n *NoOp) node()          {}
func (n *NoOp) stmt()          {}
func (n *NoOp) String() string { return "noop" }
