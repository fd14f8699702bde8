package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/sgm/vm"
)

var log = commonlog.GetLogger("sgm.compiler")

// ---------------------------------------------------------------------------
// Codegen: Lower the AST to a flat instruction sequence
// ---------------------------------------------------------------------------

var binaryOpcodes = map[TokenType]vm.Opcode{
	TokenPlus:  vm.OpAdd,
	TokenMinus: vm.OpSub,
	TokenStar:  vm.OpMul,
	TokenSlash: vm.OpDiv,
	TokenMod:   vm.OpMod,
	TokenEq:    vm.OpEq,
	TokenLess:  vm.OpLess,
	TokenGrt:   vm.OpGrt,
	TokenLe:    vm.OpLe,
	TokenGe:    vm.OpGe,
	TokenAnd:   vm.OpAnd,
	TokenOr:    vm.OpOr,
}

// Generator lowers a program AST to bytecode and tracks declared variables.
type Generator struct {
	vars map[string]DataType
}

// NewGenerator creates a generator with no declared variables.
func NewGenerator() *Generator {
	return &Generator{vars: make(map[string]DataType)}
}

// Generate lowers a whole program with a fresh generator.
func Generate(program *Block) (vm.Program, error) {
	return NewGenerator().Generate(program)
}

// Generate lowers program. The first semantic error aborts generation and
// no partial program is returned.
func (g *Generator) Generate(program *Block) (vm.Program, error) {
	if program == nil {
		return nil, nil
	}
	var out vm.Program
	for _, stmt := range program.Statements {
		code, err := g.lowerStmt(stmt)
		if err != nil {
			return nil, err
		}
		log.Debugf("%s => %d instructions", stmt, len(code))
		out = append(out, code...)
	}
	return out, nil
}

func (g *Generator) lowerBlock(b *Block) (vm.Program, error) {
	var out vm.Program
	for _, stmt := range b.Statements {
		code, err := g.lowerStmt(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, code...)
	}
	return out, nil
}

func (g *Generator) lowerStmt(s Stmt) (vm.Program, error) {
	switch n := s.(type) {
	case *Assignment:
		value, err := g.lowerExpr(n.Value)
		if err != nil {
			return nil, err
		}
		if err := g.checkVarAssign(n.Target); err != nil {
			return nil, err
		}
		return GenerateStore(n.Target.Name, value), nil

	case *Print:
		if v, ok := literalValue(n.Value); ok {
			return GeneratePrintConstant(v), nil
		}
		value, err := g.lowerExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return GeneratePrint(value), nil

	case *If:
		cond, body, err := g.lowerConditional(n.Condition, n.Body)
		if err != nil {
			return nil, err
		}
		return GenerateIf(cond, body), nil

	case *While:
		cond, body, err := g.lowerConditional(n.Condition, n.Body)
		if err != nil {
			return nil, err
		}
		return GenerateWhile(cond, body), nil

	case *Block:
		return g.lowerBlock(n)

	case *NoOp:
		return nil, nil
	}
	return nil, fmt.Errorf("compiler: unsupported statement %T", s)
}

func (g *Generator) lowerConditional(c Expr, b *Block) (vm.Program, vm.Program, error) {
	cond, err := g.lowerExpr(c)
	if err != nil {
		return nil, nil, err
	}
	body, err := g.lowerBlock(b)
	if err != nil {
		return nil, nil, err
	}
	return cond, body, nil
}

func (g *Generator) lowerExpr(e Expr) (vm.Program, error) {
	switch n := e.(type) {
	case *NumberLiteral:
		return GenerateConstant(n.Value), nil

	case *BooleanLiteral:
		return GenerateConstant(vm.BoolValue(n.Value)), nil

	case *VariableRef:
		if err := g.checkVarRead(n); err != nil {
			return nil, err
		}
		return GenerateLoad(n.Name), nil

	case *BinaryOp:
		op, ok := binaryOpcodes[n.Op]
		if !ok {
			return nil, fmt.Errorf("compiler: unsupported binary operator %s", n.Op)
		}
		left, err := g.lowerExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := g.lowerExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return GenerateBinary(left, right, op), nil

	case *UnaryOp:
		if n.Op != TokenNot {
			return nil, fmt.Errorf("compiler: unsupported unary operator %s", n.Op)
		}
		operand, err := g.lowerExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return GenerateUnary(operand, vm.OpNot), nil
	}
	return nil, fmt.Errorf("compiler: unsupported expression %T", e)
}

// literalValue returns the constant held by a literal expression.
func literalValue(e Expr) (vm.Value, bool) {
	switch n := e.(type) {
	case *NumberLiteral:
		return n.Value, true
	case *BooleanLiteral:
		return vm.BoolValue(n.Value), true
	}
	return vm.Value{}, false
}
