package compiler

import (
	"fmt"
	"sort"

	"github.com/chazu/sgm/vm"
)

// ---------------------------------------------------------------------------
// Token types for the sgm lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens. TokenEOF is never produced by Tokenize; the parser
	// uses it as a sentinel once the token slice is exhausted.
	TokenEOF TokenType = iota

	// Literals
	TokenInt    // 42
	TokenFloat  // 3.14, 2e3
	TokenBool   // true, false
	TokenString // "hello"

	TokenIdentifier // foo
	TokenDataType   // bool, int, float, string

	// Keywords
	TokenPrint // print
	TokenIf    // if
	TokenWhile // while

	// Operators
	TokenAssign // =
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
	TokenMod    // %
	TokenEq     // ==
	TokenLess   // <
	TokenGrt    // >
	TokenLe     // <=
	TokenGe     // >=
	TokenAnd    // &&
	TokenOr     // ||
	TokenNot    // !

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenSemicolon // ;
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenInt:        "INT",
	TokenFloat:      "FLOAT",
	TokenBool:       "BOOL",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenDataType:   "DATATYPE",
	TokenPrint:      "print",
	TokenIf:         "if",
	TokenWhile:      "while",
	TokenAssign:     "=",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenMod:        "%",
	TokenEq:         "==",
	TokenLess:       "<",
	TokenGrt:        ">",
	TokenLe:         "<=",
	TokenGe:         ">=",
	TokenAnd:        "&&",
	TokenOr:         "||",
	TokenNot:        "!",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenSemicolon:  ";",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// DataType is a declared variable type.
type DataType int

const (
	TypeNone DataType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
)

var dataTypeNames = map[DataType]string{
	TypeNone:   "none",
	TypeBool:   "bool",
	TypeInt:    "int",
	TypeFloat:  "float",
	TypeString: "string",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", d)
}

// Token is one lexical unit. Only the field matching Type is set: Value for
// literals, Name for identifiers and DataType for type markers.
type Token struct {
	Type     TokenType
	Value    vm.Value
	Name     string
	DataType DataType
}

func (t Token) String() string {
	switch t.Type {
	case TokenInt, TokenFloat, TokenBool, TokenString:
		return fmt.Sprintf("%s(%s)", t.Type, t.Value.GoString())
	case TokenIdentifier:
		return fmt.Sprintf("%s(%s)", t.Type, t.Name)
	case TokenDataType:
		return fmt.Sprintf("%s(%s)", t.Type, t.DataType)
	}
	return t.Type.String()
}

// IsLiteral reports whether the token carries a literal value.
func (t Token) IsLiteral() bool {
	switch t.Type {
	case TokenInt, TokenFloat, TokenBool, TokenString:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Vocabulary
// ---------------------------------------------------------------------------

// keywords maps reserved words to their token type. The long spellings form
// the language's first dialect and remain accepted.
var keywords = map[string]TokenType{
	"print":           TokenPrint,
	"showMeYourGoods": TokenPrint,
	"if":              TokenIf,
	"doItIf":          TokenIf,
	"while":           TokenWhile,
	"youSpinMeRound":  TokenWhile,
}

var dataTypes = map[string]DataType{
	"bool":            TypeBool,
	"int":             TypeInt,
	"mrINTernational": TypeInt,
	"float":           TypeFloat,
	"string":          TypeString,
	"stringiBoi":      TypeString,
}

var boolLiterals = map[string]bool{
	"true":  true,
	"True":  true,
	"false": false,
	"False": false,
}

// Keywords returns every reserved word, including type names and boolean
// literals, sorted. Used for editor completion.
func Keywords() []string {
	var out []string
	for k := range keywords {
		out = append(out, k)
	}
	for k := range dataTypes {
		out = append(out, k)
	}
	for k := range boolLiterals {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LookupKeyword classifies word as a keyword, type name, boolean literal or
// identifier.
func LookupKeyword(word string) Token {
	if tt, ok := keywords[word]; ok {
		return Token{Type: tt}
	}
	if dt, ok := dataTypes[word]; ok {
		return Token{Type: TokenDataType, DataType: dt}
	}
	if b, ok := boolLiterals[word]; ok {
		return Token{Type: TokenBool, Value: vm.BoolValue(b)}
	}
	return Token{Type: TokenIdentifier, Name: word}
}
