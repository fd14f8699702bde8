package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent over a token slice
// ---------------------------------------------------------------------------
//
// Grammar:
//
//	program   := statement* EOF
//	block     := statement* '}'
//	statement := DATATYPE ID '=' expr ';'
//	           | ID '=' expr ';'
//	           | print '(' expr ')' ';'
//	           | if '(' expr ')' '{' block
//	           | while '(' expr ')' '{' block
//	expr      := term (('+' | '-' | '%' | '==' | '<' | '>' | '<=' | '>=') term)*
//	term      := factor (('*' | '/' | '&&' | '||') factor)*
//	factor    := INT | FLOAT | BOOL | STRING
//	           | '(' expr ')' | '{' expr '}' | '!' expr
//	           | DATATYPE ID | ID
//
// '&&' and '||' bind as tightly as '*' and '/'.

// Parser builds an AST from tokens with one token of lookahead.
type Parser struct {
	tokens   []Token
	pos      int
	curToken Token
}

// NewParser creates a parser over tokens.
func NewParser(tokens []Token) *Parser {
	p := &Parser{tokens: tokens, pos: -1}
	p.nextToken()
	return p
}

// Parse parses a whole program into its top-level block.
func Parse(tokens []Token) (*Block, error) {
	return NewParser(tokens).ParseProgram()
}

// nextToken advances to the next token. Past the end of the slice the
// current token is TokenEOF.
func (p *Parser) nextToken() {
	p.pos++
	if p.pos < len(p.tokens) {
		p.curToken = p.tokens[p.pos]
	} else {
		p.curToken = Token{Type: TokenEOF}
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// expect consumes the current token if it has type t.
func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.curToken
	if tok.Type != t {
		return tok, p.errorf("expected %s, found %s", t, describe(tok))
	}
	p.nextToken()
	return tok, nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Found: p.curToken}
}

func describe(tok Token) string {
	if tok.Type == TokenEOF {
		return "end of input"
	}
	return tok.String()
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseProgram parses statements until the tokens run out.
func (p *Parser) ParseProgram() (*Block, error) {
	return p.parseStatements(TokenEOF)
}

// parseStatements parses statements up to end. When end is TokenRBrace the
// closing brace is consumed. An empty list yields a block holding NoOp.
func (p *Parser) parseStatements(end TokenType) (*Block, error) {
	block := &Block{}
	for !p.curTokenIs(end) {
		if !isStatementStart(p.curToken.Type) {
			if end == TokenRBrace {
				return nil, p.errorf("expected statement or }, found %s", describe(p.curToken))
			}
			return nil, p.errorf("unexpected %s at start of statement", describe(p.curToken))
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	if end == TokenRBrace {
		p.nextToken()
	}
	if len(block.Statements) == 0 {
		block.Statements = []Stmt{&NoOp{}}
	}
	return block, nil
}

func isStatementStart(t TokenType) bool {
	switch t {
	case TokenDataType, TokenIdentifier, TokenPrint, TokenIf, TokenWhile:
		return true
	}
	return false
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.curToken.Type {
	case TokenDataType, TokenIdentifier:
		stmt, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon); err != nil {
			return nil, err
		}
		return stmt, nil

	case TokenPrint:
		stmt, err := p.parsePrint()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon); err != nil {
			return nil, err
		}
		return stmt, nil

	case TokenIf:
		cond, body, err := p.parseConditional(TokenIf)
		if err != nil {
			return nil, err
		}
		return &If{Condition: cond, Body: body}, nil

	case TokenWhile:
		cond, body, err := p.parseConditional(TokenWhile)
		if err != nil {
			return nil, err
		}
		return &While{Condition: cond, Body: body}, nil
	}
	return nil, p.errorf("unexpected %s at start of statement", describe(p.curToken))
}

// parseAssignment parses "DATATYPE ID = expr" or "ID = expr".
func (p *Parser) parseAssignment() (*Assignment, error) {
	var target *VariableRef
	if p.curTokenIs(TokenDataType) {
		ref, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		target = ref
	} else {
		tok, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		target = &VariableRef{Name: tok.Name}
	}

	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Assignment{Target: target, Value: value}, nil
}

// parseDeclaration parses "DATATYPE ID".
func (p *Parser) parseDeclaration() (*VariableRef, error) {
	typeTok, err := p.expect(TokenDataType)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	return &VariableRef{Name: nameTok.Name, IsDeclaration: true, Type: typeTok.DataType}, nil
}

func (p *Parser) parsePrint() (*Print, error) {
	if _, err := p.expect(TokenPrint); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &Print{Value: value}, nil
}

// parseConditional parses "KEYWORD '(' expr ')' '{' block" for if and while.
func (p *Parser) parseConditional(keyword TokenType) (Expr, *Block, error) {
	if _, err := p.expect(keyword); err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, nil, err
	}
	body, err := p.parseStatements(TokenRBrace)
	if err != nil {
		return nil, nil, err
	}
	return cond, body, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() (Expr, error) {
	return p.parseExpr()
}

func isExprOperator(t TokenType) bool {
	switch t {
	case TokenPlus, TokenMinus, TokenMod, TokenEq, TokenLess, TokenGrt, TokenLe, TokenGe:
		return true
	}
	return false
}

func isTermOperator(t TokenType) bool {
	switch t {
	case TokenStar, TokenSlash, TokenAnd, TokenOr:
		return true
	}
	return false
}

func (p *Parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for isExprOperator(p.curToken.Type) {
		op := p.curToken.Type
		p.nextToken()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for isTermOperator(p.curToken.Type) {
		op := p.curToken.Type
		p.nextToken()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseFactor() (Expr, error) {
	tok := p.curToken
	switch tok.Type {
	case TokenInt, TokenFloat, TokenString:
		p.nextToken()
		return &NumberLiteral{Value: tok.Value}, nil

	case TokenBool:
		p.nextToken()
		return &BooleanLiteral{Value: tok.Value.Bool}, nil

	case TokenLParen:
		return p.parseEnclosed(TokenLParen, TokenRParen)

	case TokenLBrace:
		return p.parseEnclosed(TokenLBrace, TokenRBrace)

	case TokenNot:
		p.nextToken()
		operand, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: TokenNot, Operand: operand}, nil

	case TokenDataType:
		ref, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		return ref, nil

	case TokenIdentifier:
		p.nextToken()
		return &VariableRef{Name: tok.Name}, nil
	}
	return nil, p.errorf("expected expression, found %s", describe(tok))
}

func (p *Parser) parseEnclosed(open, closing TokenType) (Expr, error) {
	if _, err := p.expect(open); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return e, nil
}
