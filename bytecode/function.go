package bytecode

import (
	"errors"
	"fmt"
	"sort"
)

// TopLevel is the reserved name of the implicit function holding every
// statement outside a func block. It can never collide with an identifier.
const TopLevel = "."

// Address is the position of an instruction within its function.
type Address int

// Unresolved marks an address operand that has not been patched yet.
const Unresolved Address = -1

var (
	// ErrAlreadyPatched is returned when a placeholder is patched twice.
	ErrAlreadyPatched = errors.New("instruction already patched")

	// ErrNotJump is returned when patching an instruction without an address operand.
	ErrNotJump = errors.New("instruction has no address operand")
)

// Instruction is a single opcode with its operand.
type Instruction struct {
	Op      Opcode  `cbor:"1,keyasint"`
	Literal Literal `cbor:"2,keyasint,omitempty"`
	Name    string  `cbor:"3,keyasint,omitempty"`
	Target  Address `cbor:"4,keyasint,omitempty"`
	Line    int     `cbor:"5,keyasint,omitempty"` // Source line (1-based, 0 = unknown)
}

// Resolved reports whether a jump instruction has a known target.
// Instructions without an address operand are always resolved.
func (in Instruction) Resolved() bool {
	return !in.Op.IsJump() || in.Target != Unresolved
}

func (in Instruction) String() string {
	switch in.Op.Operand() {
	case OperandLiteral:
		return fmt.Sprintf("%s %s", in.Op, in.Literal.Format())
	case OperandName:
		return fmt.Sprintf("%s %s", in.Op, in.Name)
	case OperandAddress:
		if in.Target == Unresolved {
			return fmt.Sprintf("%s ?", in.Op)
		}
		return fmt.Sprintf("%s %d", in.Op, in.Target)
	default:
		return in.Op.String()
	}
}

// Variable marks a name as declared in a function's scope.
type Variable struct {
	Name string `cbor:"1,keyasint"`
}

// Function is a compiled function: its parameters, local scope and code.
type Function struct {
	Name         string               `cbor:"1,keyasint"`
	Params       []string             `cbor:"2,keyasint"`
	Variables    map[string]*Variable `cbor:"3,keyasint"`
	Instructions []Instruction        `cbor:"4,keyasint"`
}

// NewFunction creates an empty function whose scope holds its parameters.
func NewFunction(name string, params []string) *Function {
	fn := &Function{
		Name:         name,
		Params:       append([]string{}, params...),
		Variables:    make(map[string]*Variable, len(params)),
		Instructions: make([]Instruction, 0, 32),
	}
	for _, p := range params {
		fn.Declare(p)
	}
	return fn
}

// Arity returns the number of declared parameters.
func (f *Function) Arity() int {
	return len(f.Params)
}

// Declare adds a name to the function's scope and returns its marker.
// Declaring an existing name returns the existing marker.
func (f *Function) Declare(name string) *Variable {
	if v, ok := f.Variables[name]; ok {
		return v
	}
	v := &Variable{Name: name}
	f.Variables[name] = v
	return v
}

// Lookup returns the variable declared in this function's own scope.
func (f *Function) Lookup(name string) (*Variable, bool) {
	v, ok := f.Variables[name]
	return v, ok
}

// Len returns the address the next emitted instruction will occupy.
func (f *Function) Len() int {
	return len(f.Instructions)
}

// Emit appends an instruction and returns its address.
func (f *Function) Emit(in Instruction) int {
	f.Instructions = append(f.Instructions, in)
	return len(f.Instructions) - 1
}

// EmitJump appends a jump placeholder and returns its address for patching.
func (f *Function) EmitJump(op Opcode, line int) int {
	return f.Emit(Instruction{Op: op, Target: Unresolved, Line: line})
}

// EmitJumpTo appends a jump whose target is already known.
func (f *Function) EmitJumpTo(op Opcode, target int, line int) int {
	return f.Emit(Instruction{Op: op, Target: Address(target), Line: line})
}

// Patch resolves the placeholder at address at to jump to target.
// A placeholder can be patched exactly once.
func (f *Function) Patch(at int, target int) error {
	if at < 0 || at >= len(f.Instructions) {
		return fmt.Errorf("patch %s@%d: address out of range", f.Name, at)
	}
	in := &f.Instructions[at]
	if !in.Op.IsJump() {
		return fmt.Errorf("patch %s@%d (%s): %w", f.Name, at, in.Op, ErrNotJump)
	}
	if in.Target != Unresolved {
		return fmt.Errorf("patch %s@%d (%s): %w", f.Name, at, in.Op, ErrAlreadyPatched)
	}
	if target < 0 || target > len(f.Instructions) {
		return fmt.Errorf("patch %s@%d: target %d out of range", f.Name, at, target)
	}
	in.Target = Address(target)
	return nil
}

// PatchHere resolves the placeholder at address at to the current end of code.
func (f *Function) PatchHere(at int) error {
	return f.Patch(at, len(f.Instructions))
}

// Unresolved returns the addresses of placeholders that were never patched.
func (f *Function) Unresolved() []int {
	var out []int
	for i, in := range f.Instructions {
		if !in.Resolved() {
			out = append(out, i)
		}
	}
	return out
}

// Program maps function names to compiled functions.
type Program struct {
	Functions map[string]*Function `cbor:"1,keyasint"`
}

// NewProgram creates a program containing only an empty top-level function.
func NewProgram() *Program {
	p := &Program{Functions: make(map[string]*Function)}
	p.Functions[TopLevel] = NewFunction(TopLevel, nil)
	return p
}

// Main returns the top-level function.
func (p *Program) Main() *Function {
	return p.Functions[TopLevel]
}

// Function returns the named function.
func (p *Program) Function(name string) (*Function, bool) {
	fn, ok := p.Functions[name]
	return fn, ok
}

// Names returns the function names in sorted order, top level first.
func (p *Program) Names() []string {
	names := make([]string, 0, len(p.Functions))
	for name := range p.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
