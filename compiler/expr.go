package compiler

import (
	"github.com/chazu/luiggi/bytecode"
)

// ---------------------------------------------------------------------------
// Expressions: precedence climbing over an explicit operator stack
// ---------------------------------------------------------------------------

// noSkip marks an operator without a short-circuit placeholder.
const noSkip = -1

// operator is an entry of the pending operator stack.
type operator struct {
	op       bytecode.Opcode
	priority int
	right    bool // right-associative
	silent   bool // emits no instruction (unary plus)
	skip     int  // address of the short-circuit placeholder, or noSkip
	paren    bool // "(" barrier
}

// effective returns the priority used when deciding whether to reduce.
func (o operator) effective() int {
	if o.right {
		return o.priority - 1
	}
	return o.priority
}

var binaryOperators = map[TokenType]operator{
	TokenOr:           {op: bytecode.OpOr, priority: 0, skip: noSkip},
	TokenAnd:          {op: bytecode.OpAnd, priority: 1, skip: noSkip},
	TokenLess:         {op: bytecode.OpLess, priority: 3, skip: noSkip},
	TokenLessEqual:    {op: bytecode.OpLessOrEqual, priority: 3, skip: noSkip},
	TokenGreater:      {op: bytecode.OpGreater, priority: 3, skip: noSkip},
	TokenGreaterEqual: {op: bytecode.OpGreaterOrEqual, priority: 3, skip: noSkip},
	TokenEqual:        {op: bytecode.OpEqual, priority: 3, skip: noSkip},
	TokenNotEqual:     {op: bytecode.OpNotEqual, priority: 3, skip: noSkip},
	TokenPlus:         {op: bytecode.OpAdd, priority: 4, skip: noSkip},
	TokenMinus:        {op: bytecode.OpSubstract, priority: 4, skip: noSkip},
	TokenStar:         {op: bytecode.OpMultiply, priority: 5, skip: noSkip},
	TokenSlash:        {op: bytecode.OpDivide, priority: 5, skip: noSkip},
}

var unaryOperators = map[TokenType]operator{
	TokenPlus:  {priority: 6, right: true, silent: true, skip: noSkip},
	TokenMinus: {op: bytecode.OpNegate, priority: 6, right: true, skip: noSkip},
	TokenNot:   {op: bytecode.OpNot, priority: 2, right: true, skip: noSkip},
}

// expression compiles the longest expression starting at the cursor. The
// emitted code leaves exactly one value on the stack.
func (s *state) expression() error {
	first := s.offset
	var pending []operator
	wantOperator := false

loop:
	for !s.atEnd() {
		tok := s.peek()

		switch tok.Type {
		case TokenNumber, TokenString, TokenBoolean, TokenNull:
			if wantOperator {
				return s.errorAt(tok, UnexpectedToken, "unexpected %s, expected operator", tok)
			}
			wantOperator = true
			s.next()
			lit := tok.Value
			if tok.Type == TokenNull {
				lit = bytecode.Null()
			}
			s.emitValue(lit)

		case TokenIdentifier:
			if wantOperator {
				return s.errorAt(tok, UnexpectedToken, "unexpected %s, expected operator", tok)
			}
			wantOperator = true
			if s.peekAt(1).Type == TokenLParen {
				if err := s.call(); err != nil {
					return err
				}
				continue
			}
			s.next()
			if _, ok := s.table.findVariable(s.current, tok.Text); !ok {
				return s.errorAt(tok, UndefinedVariable, "variable %q does not exist", tok.Text)
			}
			s.emitName(bytecode.OpLoad, tok.Text)

		case TokenLParen:
			if wantOperator {
				return s.errorAt(tok, UnexpectedToken, "unexpected %q, expected operator", tok.Type)
			}
			s.next()
			pending = append(pending, operator{paren: true, skip: noSkip})

		case TokenRParen:
			if !wantOperator {
				return s.errorAt(tok, UnexpectedToken, "unexpected %q, expected value", tok.Type)
			}
			open := -1
			for i := len(pending) - 1; i >= 0; i-- {
				if pending[i].paren {
					open = i
					break
				}
			}
			if open < 0 {
				// Closes an enclosing call.
				break loop
			}
			s.next()
			for i := len(pending) - 1; i > open; i-- {
				if err := s.emitOperator(pending[i]); err != nil {
					return err
				}
			}
			pending = pending[:open]

		case TokenLBracket:
			start := s.offset
			s.next()
			s.skipEOL()
			if wantOperator {
				if err := s.index(); err != nil {
					return err
				}
				continue
			}
			if start > first {
				return s.errorAt(tok, UnexpectedToken, "unexpected list definition")
			}
			wantOperator = true
			if err := s.list(); err != nil {
				return err
			}

		case TokenLBrace:
			if wantOperator {
				return s.errorAt(tok, UnexpectedToken, "unexpected %q, expected operator", tok.Type)
			}
			wantOperator = true
			s.next()
			s.skipEOL()
			if err := s.object(); err != nil {
				return err
			}

		case TokenDot:
			if !wantOperator {
				return s.errorAt(tok, UnexpectedToken, "unexpected %q, expected value", tok.Type)
			}
			s.next()
			member, err := s.expect(TokenIdentifier)
			if err != nil {
				return err
			}
			s.emitName(bytecode.OpGet, member.Text)

		default:
			table := unaryOperators
			if wantOperator {
				table = binaryOperators
			}
			op, ok := table[tok.Type]
			if !ok {
				break loop
			}
			s.next()
			prefix := !wantOperator
			wantOperator = false

			// A prefix operator starts a new operand, so whatever is pending
			// still waits for its right-hand side.
			for !prefix && len(pending) > 0 {
				top := pending[len(pending)-1]
				if top.paren || top.effective() < op.priority {
					break
				}
				if err := s.emitOperator(top); err != nil {
					return err
				}
				pending = pending[:len(pending)-1]
			}

			switch op.op {
			case bytecode.OpOr:
				op.skip = s.emitJump(bytecode.OpSkipOr)
			case bytecode.OpAnd:
				op.skip = s.emitJump(bytecode.OpSkipAnd)
			}
			pending = append(pending, op)
		}
	}

	if s.offset == first {
		tok := s.peek()
		return s.errorAt(tok, ExpectedExpression, "unexpected %s, expected expression", tok)
	}
	if !wantOperator {
		tok := s.peek()
		return s.errorAt(tok, ExpectedExpression, "unexpected %s, expected value", tok)
	}

	for i := len(pending) - 1; i >= 0; i-- {
		if pending[i].paren {
			tok := s.peek()
			return s.errorAt(tok, UnexpectedToken, "unexpected %s, expected %q", tok, TokenRParen)
		}
		if err := s.emitOperator(pending[i]); err != nil {
			return err
		}
	}
	return nil
}

// emitOperator emits a reduced operator and resolves its short-circuit
// placeholder to the address just past it.
func (s *state) emitOperator(op operator) error {
	if !op.silent {
		s.emit(op.op)
	}
	if op.skip != noSkip {
		return s.patchHere(op.skip)
	}
	return nil
}

// call compiles name(arg, ...) with the cursor on the name.
func (s *state) call() error {
	nameTok := s.next()
	s.next() // (

	callee, ok := s.table.lookup(nameTok.Text)
	if !ok {
		return s.errorAt(nameTok, UndefinedFunction, "function %q does not exist", nameTok.Text)
	}

	argc := 0
	s.skipEOL()
	if s.peek().Type != TokenRParen {
		for {
			if err := s.expression(); err != nil {
				return err
			}
			argc++
			if !s.match(TokenComma) {
				break
			}
			s.skipEOL()
		}
	}
	s.skipEOL()
	if _, err := s.expect(TokenRParen); err != nil {
		return err
	}

	if argc != callee.Arity() {
		return s.errorAt(nameTok, ArityMismatch, "function %q expects %d arguments, not %d",
			nameTok.Text, callee.Arity(), argc)
	}
	s.emitName(bytecode.OpCall, nameTok.Text)
	return nil
}

// index compiles the subscript of base[expr] once "[" is consumed.
func (s *state) index() error {
	if err := s.expression(); err != nil {
		return err
	}
	s.skipEOL()
	if _, err := s.expect(TokenRBracket); err != nil {
		return err
	}
	s.emit(bytecode.OpIndex)
	return nil
}

// list compiles a list literal once "[" is consumed.
func (s *state) list() error {
	s.emit(bytecode.OpList)
	for s.peek().Type != TokenRBracket {
		if err := s.expression(); err != nil {
			return err
		}
		s.emit(bytecode.OpAppend)
		if !s.match(TokenComma) {
			break
		}
		s.skipEOL()
	}
	s.skipEOL()
	_, err := s.expect(TokenRBracket)
	return err
}

// object compiles an object literal once "{" is consumed.
func (s *state) object() error {
	s.emit(bytecode.OpObject)
	for s.peek().Type != TokenRBrace {
		member, err := s.expect(TokenIdentifier)
		if err != nil {
			return err
		}
		if _, err := s.expect(TokenEqual); err != nil {
			return err
		}
		s.skipEOL()
		if err := s.expression(); err != nil {
			return err
		}
		s.emitName(bytecode.OpSet, member.Text)
		if !s.match(TokenComma) {
			break
		}
		s.skipEOL()
	}
	s.skipEOL()
	_, err := s.expect(TokenRBrace)
	return err
}
