package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/sgm/vm"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for sgm source text
// ---------------------------------------------------------------------------

// Lexer tokenizes sgm source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Tokenize scans src into a token slice. Comments and whitespace are
// dropped and no end-of-input token is appended.
func Tokenize(src string) ([]Token, error) {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token, or a TokenEOF token once the input is
// exhausted.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()

	if l.atEOF() {
		return Token{Type: TokenEOF}, nil
	}

	ch := l.ch
	switch {
	case ch == '"':
		return l.readString()
	case isDigit(ch):
		return l.readNumber()
	case isIdentStart(ch):
		return LookupKeyword(l.readWord()), nil
	}

	tt, ok := l.readOperator()
	if !ok {
		return Token{}, &SyntaxError{Msg: fmt.Sprintf("unexpected character %q", ch)}
	}
	return Token{Type: tt}, nil
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '#':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readOperator consumes one operator or delimiter.
func (l *Lexer) readOperator() (TokenType, bool) {
	two := func(next rune, double, single TokenType) (TokenType, bool) {
		if l.peekChar() == next {
			l.readChar()
			l.readChar()
			return double, true
		}
		l.readChar()
		return single, single != TokenEOF
	}

	switch l.ch {
	case '=':
		return two('=', TokenEq, TokenAssign)
	case '<':
		return two('=', TokenLe, TokenLess)
	case '>':
		return two('=', TokenGe, TokenGrt)
	case '&':
		return two('&', TokenAnd, TokenEOF)
	case '|':
		return two('|', TokenOr, TokenEOF)
	}

	single := map[rune]TokenType{
		'+': TokenPlus,
		'-': TokenMinus,
		'*': TokenStar,
		'/': TokenSlash,
		'%': TokenMod,
		'!': TokenNot,
		'(': TokenLParen,
		')': TokenRParen,
		'{': TokenLBrace,
		'}': TokenRBrace,
		';': TokenSemicolon,
	}
	tt, ok := single[l.ch]
	if ok {
		l.readChar()
	}
	return tt, ok
}

func (l *Lexer) readWord() string {
	start := l.pos
	for !l.atEOF() && isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber scans an integer or a float. A float has a fractional part, an
// exponent, or both.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	isFloat := false

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return Token{}, &SyntaxError{Msg: fmt.Sprintf("malformed number %q", l.input[start:l.pos])}
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if isIdentPart(l.ch) || l.ch == '.' {
		for !l.atEOF() && (isIdentPart(l.ch) || l.ch == '.') {
			l.readChar()
		}
		return Token{}, &SyntaxError{Msg: fmt.Sprintf("malformed number %q", l.input[start:l.pos])}
	}

	text := l.input[start:l.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, &SyntaxError{Msg: fmt.Sprintf("malformed number %q", text)}
		}
		return Token{Type: TokenFloat, Value: vm.FloatValue(f)}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, &SyntaxError{Msg: fmt.Sprintf("integer literal %s out of range", text)}
	}
	return Token{Type: TokenInt, Value: vm.IntValue(n)}, nil
}

// readString scans a double-quoted string. The quotes are dropped and the
// escapes \" \\ \n \t are decoded.
func (l *Lexer) readString() (Token, error) {
	l.readChar() // skip opening quote
	var sb strings.Builder
	for {
		if l.atEOF() {
			return Token{}, &SyntaxError{Msg: "unterminated string"}
		}
		switch l.ch {
		case '"':
			l.readChar()
			return Token{Type: TokenString, Value: vm.TextValue(sb.String())}, nil
		case '\\':
			l.readChar()
			switch l.ch {
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				if l.atEOF() {
					return Token{}, &SyntaxError{Msg: "unterminated string"}
				}
				// Unknown escapes are kept verbatim.
				sb.WriteRune('\\')
				sb.WriteRune(l.ch)
			}
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}
