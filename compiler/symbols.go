package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/luiggi/bytecode"
)

// Native describes a host-implemented function. The compiler only uses its
// parameter list for arity checks; Ref is carried for the host's benefit.
type Native struct {
	Name   string
	Params []string
	Ref    any
}

// Arity returns the number of declared parameters.
func (n *Native) Arity() int {
	return len(n.Params)
}

// Signature renders the native back to its canonical signature text.
func (n *Native) Signature() string {
	return n.Name + "(" + strings.Join(n.Params, ", ") + ")"
}

// callable is anything a call site can resolve to.
type callable interface {
	Arity() int
}

// ParseSignature extracts the ordered parameter names from declared
// signature text such as "log(value)" or "(x, y)". An empty list means
// the function takes no arguments.
func ParseSignature(signature string) ([]string, error) {
	open := strings.IndexByte(signature, '(')
	shut := strings.LastIndexByte(signature, ')')
	if open < 0 || shut < open {
		return nil, fmt.Errorf("malformed signature %q", signature)
	}

	inner := strings.TrimSpace(signature[open+1 : shut])
	if inner == "" {
		return []string{}, nil
	}

	parts := strings.Split(inner, ",")
	params := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("malformed signature %q: empty parameter", signature)
		}
		if seen[p] {
			return nil, fmt.Errorf("malformed signature %q: duplicate parameter %q", signature, p)
		}
		seen[p] = true
		params = append(params, p)
	}
	return params, nil
}

// symbolTable tracks every callable visible to one compilation: the
// imported natives and the functions declared so far.
type symbolTable struct {
	natives map[string]*Native
	program *bytecode.Program
}

// newSymbolTable seeds a fresh table with a copy of the native registry.
func newSymbolTable(natives map[string]*Native) *symbolTable {
	t := &symbolTable{
		natives: make(map[string]*Native, len(natives)),
		program: bytecode.NewProgram(),
	}
	for name, n := range natives {
		t.natives[name] = n
	}
	return t
}

// top returns the implicit top-level function.
func (t *symbolTable) top() *bytecode.Function {
	return t.program.Main()
}

// declare registers a new user function.
func (t *symbolTable) declare(name string, params []string) (*bytecode.Function, error) {
	if _, ok := t.lookup(name); ok {
		return nil, fmt.Errorf("function %q already exists", name)
	}
	fn := bytecode.NewFunction(name, params)
	t.program.Functions[name] = fn
	return fn, nil
}

// lookup resolves a callable by name, user functions first.
func (t *symbolTable) lookup(name string) (callable, bool) {
	if fn, ok := t.program.Functions[name]; ok && name != bytecode.TopLevel {
		return fn, true
	}
	if n, ok := t.natives[name]; ok {
		return n, true
	}
	return nil, false
}

// findVariable searches the current function's scope, then the top-level
// scope when compiling inside another function.
func (t *symbolTable) findVariable(current *bytecode.Function, name string) (*bytecode.Variable, bool) {
	scopes := []*bytecode.Function{current}
	if current != t.top() {
		scopes = append(scopes, t.top())
	}
	for _, scope := range scopes {
		if v, ok := scope.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}
