// Package compiler turns Luiggi source into a bytecode.Program in a single
// pass: statements are parsed by recursive descent, expressions by
// precedence climbing, and control flow is emitted with back-patched jumps.
// No syntax tree is built.
package compiler

import (
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/luiggi/bytecode"
)

var log = commonlog.GetLogger("luiggi.compiler")

// Compiler holds the configuration shared by compilations: the native
// function registry and an optional prelude. Every call to Compile works on
// its own fresh state, so one Compiler can serve many compilations.
type Compiler struct {
	natives map[string]*Native
	prelude *bytecode.Program
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithNatives imports the given natives, as ImportNative would.
// Duplicate names are silently replaced; use ImportNative to detect them.
func WithNatives(natives ...*Native) Option {
	return func(c *Compiler) {
		for _, n := range natives {
			c.natives[n.Name] = n
		}
	}
}

// WithPrelude makes the user functions and top-level variables of an
// earlier program visible to new compilations. Used by interactive sessions.
func WithPrelude(p *bytecode.Program) Option {
	return func(c *Compiler) { c.prelude = p }
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{natives: make(map[string]*Native)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ImportNative registers a host function from its declared signature text.
// It must be called before compiling code that calls the function.
func (c *Compiler) ImportNative(name, signature string, ref any) error {
	if _, ok := c.natives[name]; ok {
		return newError(DuplicateFunction, 0, name, "function %q already exists", name)
	}
	params, err := ParseSignature(signature)
	if err != nil {
		return fmt.Errorf("import native %q: %w", name, err)
	}
	c.natives[name] = &Native{Name: name, Params: params, Ref: ref}
	return nil
}

// Natives returns the imported natives sorted by name.
func (c *Compiler) Natives() []*Native {
	out := make([]*Native, 0, len(c.natives))
	for _, n := range c.natives {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Signatures maps each imported native to its canonical signature text.
func (c *Compiler) Signatures() map[string]string {
	out := make(map[string]string, len(c.natives))
	for name, n := range c.natives {
		out[name] = n.Signature()
	}
	return out
}

// Compile compiles a token stream into a program. The first error aborts
// compilation and no program is returned.
func (c *Compiler) Compile(tokens []Token) (*bytecode.Program, error) {
	s := c.newState(tokens)

	if err := s.block(); err != nil {
		return nil, err
	}
	if err := s.checkResolved(s.table.top()); err != nil {
		return nil, err
	}

	prog := s.table.program
	log.Debugf("compiled %d tokens into %d functions", len(tokens), len(prog.Functions))
	return prog, nil
}

// CompileSource tokenizes and compiles source text.
func (c *Compiler) CompileSource(src string) (*bytecode.Program, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return c.Compile(tokens)
}

// newState prepares the mutable state of one compilation.
func (c *Compiler) newState(tokens []Token) *state {
	table := newSymbolTable(c.natives)
	if c.prelude != nil {
		for name, fn := range c.prelude.Functions {
			if name == bytecode.TopLevel {
				for v := range fn.Variables {
					table.top().Declare(v)
				}
				continue
			}
			table.program.Functions[name] = fn
		}
	}
	return &state{
		tokens:  tokens,
		table:   table,
		current: table.top(),
	}
}

// ---------------------------------------------------------------------------
// Compilation state
// ---------------------------------------------------------------------------

// state is owned by exactly one compilation: the token cursor, the symbol
// table and the function currently receiving instructions.
type state struct {
	tokens  []Token
	offset  int
	table   *symbolTable
	current *bytecode.Function
}

// atEnd reports whether the cursor has consumed every token.
func (s *state) atEnd() bool {
	return s.offset >= len(s.tokens) || s.tokens[s.offset].Type == TokenEOF
}

// peekAt returns the token n positions ahead of the cursor, or an EOF token
// past the end of input.
func (s *state) peekAt(n int) Token {
	i := s.offset + n
	if i < len(s.tokens) {
		return s.tokens[i]
	}
	return Token{Type: TokenEOF, Line: s.lastLine()}
}

// peek returns the token at the cursor.
func (s *state) peek() Token {
	return s.peekAt(0)
}

// next consumes and returns the token at the cursor.
func (s *state) next() Token {
	tok := s.peek()
	if s.offset < len(s.tokens) {
		s.offset++
	}
	return tok
}

// lastLine returns the line of the final token, for errors at end of input.
func (s *state) lastLine() int {
	if len(s.tokens) == 0 {
		return 1
	}
	return s.tokens[len(s.tokens)-1].Line
}

// expect consumes a token of the given type or fails.
func (s *state) expect(t TokenType) (Token, error) {
	tok := s.peek()
	if tok.Type != t {
		return tok, s.errorAt(tok, UnexpectedToken, "unexpected token %q, expected %q", tok.Type, t)
	}
	return s.next(), nil
}

// match consumes the token at the cursor if it has the given type.
func (s *state) match(t TokenType) bool {
	if s.peek().Type != t {
		return false
	}
	s.next()
	return true
}

// expectEOL consumes a statement terminator. End of input also terminates.
func (s *state) expectEOL() error {
	if s.atEnd() || s.match(TokenEOL) {
		return nil
	}
	_, err := s.expect(TokenEOL)
	return err
}

// skipEOL consumes any run of line breaks.
func (s *state) skipEOL() bool {
	skipped := false
	for s.match(TokenEOL) {
		skipped = true
	}
	return skipped
}

// errorAt builds a compile error positioned at tok.
func (s *state) errorAt(tok Token, kind ErrorKind, format string, args ...any) error {
	err := newError(kind, tok.Line, tok.String(), format, args...)
	err.AtEOF = tok.Type == TokenEOF
	return err
}

// ---------------------------------------------------------------------------
// Code emission
// ---------------------------------------------------------------------------

// line returns the source line instructions emitted now belong to.
func (s *state) line() int {
	if s.offset > 0 && s.offset <= len(s.tokens) {
		return s.tokens[s.offset-1].Line
	}
	return s.peek().Line
}

func (s *state) emit(op bytecode.Opcode) int {
	return s.current.Emit(bytecode.Instruction{Op: op, Line: s.line()})
}

func (s *state) emitValue(lit bytecode.Literal) int {
	return s.current.Emit(bytecode.Instruction{Op: bytecode.OpValue, Literal: lit, Line: s.line()})
}

func (s *state) emitName(op bytecode.Opcode, name string) int {
	return s.current.Emit(bytecode.Instruction{Op: op, Name: name, Line: s.line()})
}

// emitJump emits a forward jump placeholder and returns its address.
func (s *state) emitJump(op bytecode.Opcode) int {
	return s.current.EmitJump(op, s.line())
}

// patchHere resolves a placeholder to the current end of code.
func (s *state) patchHere(at int) error {
	if err := s.current.PatchHere(at); err != nil {
		return newError(InternalError, s.line(), "", "%v", err)
	}
	return nil
}

// checkResolved fails if fn still holds unpatched placeholders.
func (s *state) checkResolved(fn *bytecode.Function) error {
	if addrs := fn.Unresolved(); len(addrs) > 0 {
		return newError(InternalError, s.line(), "", "function %q has unresolved jumps at %v", fn.Name, addrs)
	}
	return nil
}
