package compiler

import (
	"slices"

	"github.com/chazu/luiggi/bytecode"
)

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// block compiles statements until one of enders is at the cursor (left
// unconsumed) or the input runs out.
func (s *state) block(enders ...TokenType) error {
	for !s.atEnd() {
		tok := s.peek()
		if slices.Contains(enders, tok.Type) {
			return nil
		}

		var err error
		switch tok.Type {
		case TokenIdentifier:
			err = s.declaration()
		case TokenIf:
			err = s.ifStatement()
		case TokenWhile:
			err = s.whileStatement()
		case TokenFunc:
			err = s.funcDefinition()
		case TokenReturn:
			err = s.returnStatement()
		case TokenEOL:
			s.next()
		case TokenEnd, TokenElif, TokenElse:
			err = s.errorAt(tok, UnexpectedEnd, "unexpected %q", tok.Type)
		default:
			err = s.expressionStatement()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// expressionStatement compiles an expression whose value is discarded.
func (s *state) expressionStatement() error {
	if err := s.expression(); err != nil {
		return err
	}
	s.emit(bytecode.OpPop)
	return s.expectEOL()
}

// declaration compiles a statement starting with an identifier:
//
//	name = expr
//	name[index] = expr
//	name.member = expr
//
// or falls back to an expression statement.
func (s *state) declaration() error {
	switch s.peekAt(1).Type {
	case TokenEqual, TokenLBracket, TokenDot:
	default:
		return s.expressionStatement()
	}

	nameTok := s.next()
	name := nameTok.Text
	_, visible := s.table.findVariable(s.current, name)

	switch s.next().Type {
	case TokenLBracket:
		if !visible {
			return s.errorAt(nameTok, UndefinedVariable, "variable %q does not exist", name)
		}
		s.emitName(bytecode.OpLoad, name)
		s.skipEOL()
		if err := s.expression(); err != nil {
			return err
		}
		s.skipEOL()
		if _, err := s.expect(TokenRBracket); err != nil {
			return err
		}
		if _, err := s.expect(TokenEqual); err != nil {
			return err
		}
		if err := s.expression(); err != nil {
			return err
		}
		s.emit(bytecode.OpPut)

	case TokenDot:
		if !visible {
			return s.errorAt(nameTok, UndefinedVariable, "variable %q does not exist", name)
		}
		s.emitName(bytecode.OpLoad, name)
		member, err := s.expect(TokenIdentifier)
		if err != nil {
			return err
		}
		if _, err := s.expect(TokenEqual); err != nil {
			return err
		}
		if err := s.expression(); err != nil {
			return err
		}
		s.emitName(bytecode.OpSet, member.Text)
		s.emit(bytecode.OpPop)

	default: // =
		if err := s.expression(); err != nil {
			return err
		}
		if !visible {
			s.current.Declare(name)
		}
		s.emitName(bytecode.OpStore, name)
	}

	return s.expectEOL()
}

// ifStatement compiles either the inline form
//
//	if cond then statement
//
// or the block form with optional elif and else arms.
func (s *state) ifStatement() error {
	s.next() // if

	if err := s.expression(); err != nil {
		return err
	}
	branch := s.emitJump(bytecode.OpBranch)

	if s.match(TokenThen) {
		var err error
		switch s.peek().Type {
		case TokenIdentifier:
			err = s.declaration()
		case TokenReturn:
			err = s.returnStatement()
		default:
			err = s.expressionStatement()
		}
		if err != nil {
			return err
		}
		return s.patchHere(branch)
	}

	if err := s.expectEOL(); err != nil {
		return err
	}

	var jumps []int
	arm := func() error {
		if err := s.block(TokenEnd, TokenElif, TokenElse); err != nil {
			return err
		}
		jumps = append(jumps, s.emitJump(bytecode.OpJump))
		return s.patchHere(branch)
	}

	if err := arm(); err != nil {
		return err
	}
	for s.match(TokenElif) {
		if err := s.expression(); err != nil {
			return err
		}
		branch = s.emitJump(bytecode.OpBranch)
		if err := s.expectEOL(); err != nil {
			return err
		}
		if err := arm(); err != nil {
			return err
		}
	}
	if s.match(TokenElse) {
		if err := s.expectEOL(); err != nil {
			return err
		}
		if err := s.block(TokenEnd); err != nil {
			return err
		}
	}
	if _, err := s.expect(TokenEnd); err != nil {
		return err
	}

	for _, j := range jumps {
		if err := s.patchHere(j); err != nil {
			return err
		}
	}
	return s.expectEOL()
}

// whileStatement compiles a loop. The body ends with a single backward jump
// to the first instruction of the condition.
func (s *state) whileStatement() error {
	s.next() // while

	cond := s.current.Len()
	if err := s.expression(); err != nil {
		return err
	}
	if err := s.expectEOL(); err != nil {
		return err
	}
	branch := s.emitJump(bytecode.OpBranch)

	if err := s.block(TokenEnd); err != nil {
		return err
	}
	s.current.EmitJumpTo(bytecode.OpJump, cond, s.line())
	if err := s.patchHere(branch); err != nil {
		return err
	}

	if _, err := s.expect(TokenEnd); err != nil {
		return err
	}
	return s.expectEOL()
}

// funcDefinition compiles a top-level function:
//
//	func name(a, b)
//	  ...
//	end
func (s *state) funcDefinition() error {
	funcTok := s.next()
	if s.current != s.table.top() {
		return s.errorAt(funcTok, NestedFunction, "nested functions are not allowed")
	}

	nameTok, err := s.expect(TokenIdentifier)
	if err != nil {
		return err
	}
	name := nameTok.Text
	if _, ok := s.table.lookup(name); ok {
		return s.errorAt(nameTok, DuplicateFunction, "function %q already exists", name)
	}

	if _, err := s.expect(TokenLParen); err != nil {
		return err
	}
	var params []string
	for s.peek().Type == TokenIdentifier {
		param := s.next()
		if slices.Contains(params, param.Text) {
			return s.errorAt(param, DuplicateParameter, "parameter name %q is already used", param.Text)
		}
		params = append(params, param.Text)
		if !s.match(TokenComma) {
			break
		}
		s.skipEOL()
	}
	if _, err := s.expect(TokenRParen); err != nil {
		return err
	}
	if err := s.expectEOL(); err != nil {
		return err
	}

	fn, err := s.table.declare(name, params)
	if err != nil {
		return s.errorAt(nameTok, DuplicateFunction, "%v", err)
	}
	log.Debugf("compiling function %s(%d)", name, len(params))

	s.current = fn
	if err := s.block(TokenEnd); err != nil {
		return err
	}
	s.emitValue(bytecode.Null())
	s.emit(bytecode.OpReturn)
	if _, err := s.expect(TokenEnd); err != nil {
		return err
	}
	if err := s.checkResolved(fn); err != nil {
		return err
	}
	s.current = s.table.top()

	return s.expectEOL()
}

// returnStatement compiles return with an optional value.
func (s *state) returnStatement() error {
	s.next() // return

	if s.atEnd() || s.match(TokenEOL) {
		s.emitValue(bytecode.Null())
	} else {
		if err := s.expression(); err != nil {
			return err
		}
		if err := s.expectEOL(); err != nil {
			return err
		}
	}
	s.emit(bytecode.OpReturn)
	return nil
}
