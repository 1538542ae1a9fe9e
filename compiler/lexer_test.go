package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) [ ] { } , . = != < <= > >= + - * /`
	expected := []struct {
		typ  TokenType
		text string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenComma, ","},
		{TokenDot, "."},
		{TokenEqual, "="},
		{TokenNotEqual, "!="},
		{TokenLess, "<"},
		{TokenLessEqual, "<="},
		{TokenGreater, ">"},
		{TokenGreaterEqual, ">="},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Text != exp.text {
			t.Errorf("token[%d] text = %q, want %q", i, tok.Text, exp.text)
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	input := "if then elif else end while func return and or not null true false iffy"
	expected := []TokenType{
		TokenIf, TokenThen, TokenElif, TokenElse, TokenEnd, TokenWhile,
		TokenFunc, TokenReturn, TokenAnd, TokenOr, TokenNot, TokenNull,
		TokenBoolean, TokenBoolean, TokenIdentifier, TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerBooleanValues(t *testing.T) {
	tokens, err := Tokenize("true false")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if !tokens[0].Value.Bool || tokens[1].Value.Bool {
		t.Errorf("values = %v %v, want true false", tokens[0].Value, tokens[1].Value)
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"42", 42},
		{"0", 0},
		{"3.14", 3.14},
		{"10.0", 10},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != TokenNumber {
			t.Errorf("Lexer(%q): type = %v, want number", tc.input, tok.Type)
			continue
		}
		if tok.Value.Number != tc.want {
			t.Errorf("Lexer(%q): value = %v, want %v", tc.input, tok.Value.Number, tc.want)
		}
	}
}

func TestLexerNumberFollowedByDot(t *testing.T) {
	// "1.x" is a number then member access, not a malformed float.
	l := NewLexer("1.x")
	for i, want := range []TokenType{TokenNumber, TokenDot, TokenIdentifier} {
		if tok := l.NextToken(); tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"quote \" inside"`, `quote " inside`},
		{`'it\'s'`, "it's"},
		{`"back\\slash"`, `back\slash`},
		{`""`, ""},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != TokenString {
			t.Errorf("Lexer(%q): type = %v, want string", tc.input, tok.Type)
			continue
		}
		if tok.Value.String != tc.want {
			t.Errorf("Lexer(%q): value = %q, want %q", tc.input, tok.Value.String, tc.want)
		}
	}
}

func TestLexerCollapsesLineBreaks(t *testing.T) {
	input := "a\n\n  # comment only\n\nb # trailing\n"
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	want := []TokenType{TokenIdentifier, TokenEOL, TokenIdentifier, TokenEOL}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(tokens), tokens, len(want))
	}
	for i, typ := range want {
		if tokens[i].Type != typ {
			t.Errorf("token[%d] type = %v, want %v", i, tokens[i].Type, typ)
		}
	}
	if tokens[2].Line != 5 {
		t.Errorf("b line = %d, want 5", tokens[2].Line)
	}
}

func TestTokenizeAppendsTrailingEOL(t *testing.T) {
	tests := []string{"x", "x\n", ""}
	for _, input := range tests {
		tokens, err := Tokenize(input)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", input, err)
		}
		if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOL {
			t.Errorf("Tokenize(%q) = %v, want trailing EOL", input, tokens)
		}
		for _, tok := range tokens {
			if tok.Type == TokenEOF {
				t.Errorf("Tokenize(%q) contains EOF token", input)
			}
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		input string
		line  int
	}{
		{`"unterminated`, 1},
		{"x = 1\ny = @", 2},
		{"a ! b", 1},
		{`"bad \q escape"`, 1},
	}

	for _, tc := range tests {
		_, err := Tokenize(tc.input)
		if err == nil {
			t.Errorf("Tokenize(%q): expected error", tc.input)
			continue
		}
		if !IsKind(err, InvalidToken) {
			t.Errorf("Tokenize(%q): error = %v, want InvalidToken", tc.input, err)
		}
		if ce := err.(*Error); ce.Line != tc.line {
			t.Errorf("Tokenize(%q): line = %d, want %d", tc.input, ce.Line, tc.line)
		}
	}
}

func TestLexerLineNumbers(t *testing.T) {
	l := NewLexer("a\nb\n\nc")
	lines := []int{1, 1, 2, 2, 4}
	for i, want := range lines {
		tok := l.NextToken()
		if tok.Line != want {
			t.Errorf("token[%d] %v line = %d, want %d", i, tok, tok.Line, want)
		}
	}
}
