package compiler

import (
	"github.com/chazu/sgm/vm"
)

// ---------------------------------------------------------------------------
// Pipeline: source text -> tokens -> AST -> program
// ---------------------------------------------------------------------------

// Compile turns source text into a program. The error is a *SyntaxError or
// a *SemanticError.
func Compile(src string) (vm.Program, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return CompileTokens(tokens)
}

// CompileTokens parses and lowers an already scanned token slice.
func CompileTokens(tokens []Token) (vm.Program, error) {
	ast, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	return Generate(ast)
}

// Analysis is everything the front end learned about a source text. Fields
// after the failing stage are empty.
type Analysis struct {
	Tokens    []Token
	AST       *Block
	Program   vm.Program
	Variables []string // declared before the first error, sorted
	Types     map[string]DataType
	Err       error
}

// Analyze runs the whole front end and keeps intermediate results. Editors
// use it to report diagnostics and offer completions.
func Analyze(src string) *Analysis {
	a := &Analysis{}
	a.Tokens, a.Err = Tokenize(src)
	if a.Err != nil {
		return a
	}
	a.AST, a.Err = Parse(a.Tokens)
	if a.Err != nil {
		return a
	}
	g := NewGenerator()
	a.Program, a.Err = g.Generate(a.AST)
	a.Variables = g.Variables()
	a.Types = make(map[string]DataType, len(a.Variables))
	for _, name := range a.Variables {
		a.Types[name], _ = g.TypeOf(name)
	}
	return a
}
