package compiler

import (
	"fmt"

	"github.com/chazu/luiggi/bytecode"
)

// ---------------------------------------------------------------------------
// Token types for the Luiggi lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenEOL

	// Literals
	TokenIdentifier // foo
	TokenNumber     // 42, 3.14
	TokenString     // "hello"
	TokenBoolean    // true, false
	TokenNull       // null

	// Keywords
	TokenIf
	TokenThen
	TokenElif
	TokenElse
	TokenEnd
	TokenWhile
	TokenFunc
	TokenReturn
	TokenAnd
	TokenOr
	TokenNot

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }
	TokenComma    // ,
	TokenDot      // .

	// Operators
	TokenEqual        // = (assignment and equality)
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "end of input",
	TokenError:        "ERROR",
	TokenEOL:          "EOL",
	TokenIdentifier:   "identifier",
	TokenNumber:       "number",
	TokenString:       "string",
	TokenBoolean:      "boolean",
	TokenNull:         "null",
	TokenIf:           "if",
	TokenThen:         "then",
	TokenElif:         "elif",
	TokenElse:         "else",
	TokenEnd:          "end",
	TokenWhile:        "while",
	TokenFunc:         "func",
	TokenReturn:       "return",
	TokenAnd:          "and",
	TokenOr:           "or",
	TokenNot:          "not",
	TokenLParen:       "(",
	TokenRParen:       ")",
	TokenLBracket:     "[",
	TokenRBracket:     "]",
	TokenLBrace:       "{",
	TokenRBrace:       "}",
	TokenComma:        ",",
	TokenDot:          ".",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value bytecode.Literal // number, string and boolean literals
	Text  string           // raw text; the name for identifiers
	Line  int              // 1-based source line
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF, TokenEOL:
		return t.Type.String()
	case TokenIdentifier:
		return fmt.Sprintf("identifier(%s)", t.Text)
	case TokenNumber, TokenString, TokenBoolean:
		return fmt.Sprintf("%s(%s)", t.Type, t.Value.Format())
	}
	return t.Type.String()
}

// Reserved words mapped to their token types.
var keywords = map[string]TokenType{
	"if":     TokenIf,
	"then":   TokenThen,
	"elif":   TokenElif,
	"else":   TokenElse,
	"end":    TokenEnd,
	"while":  TokenWhile,
	"func":   TokenFunc,
	"return": TokenReturn,
	"and":    TokenAnd,
	"or":     TokenOr,
	"not":    TokenNot,
	"null":   TokenNull,
	"true":   TokenBoolean,
	"false":  TokenBoolean,
}

// Keywords returns the reserved words of the language.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	return out
}
