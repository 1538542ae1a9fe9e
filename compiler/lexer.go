package compiler

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/luiggi/bytecode"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for Luiggi source
// ---------------------------------------------------------------------------

// Lexer tokenizes Luiggi source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}
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

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipBlanksAndComments()

	line := l.line
	single := func(t TokenType) Token {
		text := string(l.ch)
		l.readChar()
		return Token{Type: t, Text: text, Line: line}
	}

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Line: line}

	case l.ch == '\n':
		// A run of line breaks (and blank or comment-only lines) is one EOL.
		for l.ch == '\n' {
			l.readChar()
			l.skipBlanksAndComments()
		}
		return Token{Type: TokenEOL, Text: "\n", Line: line}

	case l.ch == '(':
		return single(TokenLParen)
	case l.ch == ')':
		return single(TokenRParen)
	case l.ch == '[':
		return single(TokenLBracket)
	case l.ch == ']':
		return single(TokenRBracket)
	case l.ch == '{':
		return single(TokenLBrace)
	case l.ch == '}':
		return single(TokenRBrace)
	case l.ch == ',':
		return single(TokenComma)
	case l.ch == '.':
		return single(TokenDot)
	case l.ch == '=':
		return single(TokenEqual)
	case l.ch == '+':
		return single(TokenPlus)
	case l.ch == '-':
		return single(TokenMinus)
	case l.ch == '*':
		return single(TokenStar)
	case l.ch == '/':
		return single(TokenSlash)

	case l.ch == '<':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenLessEqual, Text: "<=", Line: line}
		}
		return Token{Type: TokenLess, Text: "<", Line: line}

	case l.ch == '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenGreaterEqual, Text: ">=", Line: line}
		}
		return Token{Type: TokenGreater, Text: ">", Line: line}

	case l.ch == '!':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenNotEqual, Text: "!=", Line: line}
		}
		return Token{Type: TokenError, Text: "unexpected character: !", Line: line}

	case l.ch == '"' || l.ch == '\'':
		return l.readString(line)

	case isDigit(l.ch):
		return l.readNumber(line)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(line)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Text: "unexpected character: " + string(ch), Line: line}
	}
}

// skipBlanksAndComments skips spaces, tabs, carriage returns and # comments.
// Line breaks are significant and are left in place.
func (l *Lexer) skipBlanksAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

// readString reads a quoted string literal with backslash escapes.
func (l *Lexer) readString(line int) Token {
	quote := l.ch
	l.readChar() // consume opening quote

	var sb strings.Builder
	for l.ch != quote {
		switch l.ch {
		case 0, '\n':
			return Token{Type: TokenError, Text: "unterminated string", Line: line}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '\\', '"', '\'':
				sb.WriteRune(l.ch)
			default:
				return Token{Type: TokenError, Text: "invalid escape sequence: \\" + string(l.ch), Line: line}
			}
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
	l.readChar() // consume closing quote

	s := sb.String()
	return Token{Type: TokenString, Value: bytecode.String(s), Text: s, Line: line}
}

// readNumber reads an integer or decimal literal.
func (l *Lexer) readNumber(line int) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	text := l.input[start:l.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{Type: TokenError, Text: "invalid number: " + text, Line: line}
	}
	return Token{Type: TokenNumber, Value: bytecode.Number(f), Text: text, Line: line}
}

// readIdentifier reads an identifier or reserved word.
func (l *Lexer) readIdentifier(line int) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	text := l.input[start:l.pos]

	if t, ok := keywords[text]; ok {
		tok := Token{Type: t, Text: text, Line: line}
		if t == TokenBoolean {
			tok.Value = bytecode.Bool(text == "true")
		}
		return tok
	}
	return Token{Type: TokenIdentifier, Text: text, Line: line}
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens of the input. The stream always ends with an
// EOL token so the last statement is terminated; the end of the slice marks
// the end of input. Lexical errors are reported as *Error.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		switch tok.Type {
		case TokenError:
			return nil, newError(InvalidToken, tok.Line, "", "%s", tok.Text)
		case TokenEOF:
			if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOL {
				tokens = append(tokens, Token{Type: TokenEOL, Text: "\n", Line: tok.Line})
			}
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
