package compiler

import "sort"

// ---------------------------------------------------------------------------
// Variable checks: declare once, declare before use
// ---------------------------------------------------------------------------
//
// There is a single namespace for the whole program. Declarations inside
// if and while bodies stay visible after the body.

// checkVarAssign validates a variable occurrence against the declared set
// and records new declarations.
func (g *Generator) checkVarAssign(ref *VariableRef) error {
	_, exists := g.vars[ref.Name]
	if ref.IsDeclaration {
		if exists {
			return &SemanticError{Kind: Redefinition, Name: ref.Name}
		}
		g.vars[ref.Name] = ref.Type
		return nil
	}
	if !exists {
		return &SemanticError{Kind: Undefined, Name: ref.Name}
	}
	return nil
}

// checkVarRead validates a variable read inside an expression. A typed
// declaration is not a value.
func (g *Generator) checkVarRead(ref *VariableRef) error {
	if ref.IsDeclaration {
		return &SemanticError{Kind: DeclarationInExpression, Name: ref.Name}
	}
	return g.checkVarAssign(ref)
}

// Variables returns the names declared so far, sorted.
func (g *Generator) Variables() []string {
	names := make([]string, 0, len(g.vars))
	for name := range g.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeOf returns the declared type of name.
func (g *Generator) TypeOf(name string) (DataType, bool) {
	t, ok := g.vars[name]
	return t, ok
}
