package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/tliron/commonlog"

	"github.com/chazu/luiggi/bytecode"
)

var log = commonlog.GetLogger("luiggi.vm")

// ---------------------------------------------------------------------------
// Machine: stack machine executing compiled programs
// ---------------------------------------------------------------------------

// NativeFunc is a host function callable from scripts. It receives exactly
// as many arguments as its declared signature names.
type NativeFunc func(m *Machine, args []Value) (Value, error)

// Defaults for execution limits. Zero disables a limit.
const (
	DefaultMaxDepth = 1024
	ctxCheckEvery   = 256
)

// Machine executes bytecode programs. Globals persist across runs, so a
// Machine can serve an interactive session. A Machine is not safe for
// concurrent use.
type Machine struct {
	natives map[string]boundNative
	globals map[string]Value

	stack  []Value
	frames []*frame

	maxSteps int
	maxDepth int
	steps    int
	trace    io.Writer
}

type boundNative struct {
	arity int
	fn    NativeFunc
}

// frame is one active function invocation.
type frame struct {
	fn     *bytecode.Function
	ip     int
	base   int // stack height at entry
	locals map[string]Value
}

// Option configures a Machine.
type Option func(*Machine)

// WithStepLimit bounds the number of instructions a single Run may execute.
func WithStepLimit(n int) Option {
	return func(m *Machine) { m.maxSteps = n }
}

// WithDepthLimit bounds call nesting.
func WithDepthLimit(n int) Option {
	return func(m *Machine) { m.maxDepth = n }
}

// WithTrace writes every executed instruction to w.
func WithTrace(w io.Writer) Option {
	return func(m *Machine) { m.trace = w }
}

// New creates a Machine.
func New(opts ...Option) *Machine {
	m := &Machine{
		natives:  make(map[string]boundNative),
		globals:  make(map[string]Value),
		stack:    make([]Value, 0, 256),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bind makes a native function callable by name. arity is the number of
// arguments a call pops, which must match the signature the compiler saw.
func (m *Machine) Bind(name string, arity int, fn NativeFunc) {
	m.natives[name] = boundNative{arity: arity, fn: fn}
}

// Bound reports whether a native is bound under name.
func (m *Machine) Bound(name string) bool {
	_, ok := m.natives[name]
	return ok
}

// Global returns the value of a top-level variable.
func (m *Machine) Global(name string) (Value, bool) {
	v, ok := m.globals[name]
	return v, ok
}

// SetGlobal assigns a top-level variable.
func (m *Machine) SetGlobal(name string, v Value) {
	m.globals[name] = v
}

// Steps returns the number of instructions executed by the last Run.
func (m *Machine) Steps() int {
	return m.steps
}

// Run executes the program's top-level function and returns the value of
// its return statement, or null when execution falls off the end.
func (m *Machine) Run(ctx context.Context, prog *bytecode.Program) (result Value, err error) {
	main := prog.Main()
	if main == nil {
		return Null, errors.New("program has no top-level function")
	}

	m.stack = m.stack[:0]
	m.frames = m.frames[:0]
	m.steps = 0
	m.frames = append(m.frames, &frame{fn: main, locals: m.globals})

	defer func() {
		if r := recover(); r != nil {
			if r != errUnderflow {
				panic(r)
			}
			result, err = Null, m.fail(ErrStackUnderflow)
		}
	}()

	log.Debugf("run: %d functions", len(prog.Functions))
	result, err = m.run(ctx, prog)
	log.Debugf("run: %d steps", m.steps)
	return result, err
}

// errUnderflow is the panic value used by pop on an empty stack.
var errUnderflow = errors.New("underflow")

func (m *Machine) run(ctx context.Context, prog *bytecode.Program) (Value, error) {
	for {
		fr := m.frames[len(m.frames)-1]

		if fr.ip >= len(fr.fn.Instructions) {
			// Falling off the end returns null.
			if done, v := m.ret(Null); done {
				return v, nil
			}
			continue
		}

		in := fr.fn.Instructions[fr.ip]
		fr.ip++

		m.steps++
		if m.maxSteps > 0 && m.steps > m.maxSteps {
			return Null, m.fail(ErrStepLimit)
		}
		if m.steps%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Null, m.fail(err)
			}
		}
		if m.trace != nil {
			fmt.Fprintf(m.trace, "[%s %04d] %-24s sp=%d\n", fr.fn.Name, fr.ip-1, in, len(m.stack))
		}

		switch in.Op {
		// ============ Stack ============
		case bytecode.OpValue:
			m.push(FromLiteral(in.Literal))

		case bytecode.OpPop:
			m.pop()

		// ============ Variables ============
		case bytecode.OpLoad:
			m.push(m.load(fr, in.Name))

		case bytecode.OpStore:
			m.store(fr, in.Name, m.pop())

		// ============ Containers ============
		case bytecode.OpList:
			m.push(NewList())

		case bytecode.OpAppend:
			v := m.pop()
			l := m.peek()
			if l.Kind() != KindList {
				return Null, m.fail(typeError("append to", l))
			}
			l.AsList().Append(v)

		case bytecode.OpObject:
			m.push(NewObject())

		case bytecode.OpSet:
			v := m.pop()
			o := m.peek()
			if o.Kind() != KindObject {
				return Null, m.fail(typeError("set member "+in.Name+" of", o))
			}
			o.AsObject().Set(in.Name, v)

		case bytecode.OpGet:
			o := m.pop()
			if o.Kind() != KindObject {
				return Null, m.fail(typeError("get member "+in.Name+" of", o))
			}
			v, _ := o.AsObject().Get(in.Name)
			m.push(v)

		case bytecode.OpIndex:
			idx := m.pop()
			c := m.pop()
			v, err := index(c, idx)
			if err != nil {
				return Null, m.fail(err)
			}
			m.push(v)

		case bytecode.OpPut:
			v := m.pop()
			idx := m.pop()
			c := m.pop()
			if err := put(c, idx, v); err != nil {
				return Null, m.fail(err)
			}

		// ============ Calls ============
		case bytecode.OpCall:
			if err := m.call(prog, in.Name); err != nil {
				return Null, err
			}

		case bytecode.OpReturn:
			if done, v := m.ret(m.pop()); done {
				return v, nil
			}

		// ============ Control flow ============
		case bytecode.OpJump:
			fr.ip = int(in.Target)

		case bytecode.OpBranch:
			if !m.pop().Truthy() {
				fr.ip = int(in.Target)
			}

		case bytecode.OpSkipAnd:
			if !m.peek().Truthy() {
				fr.ip = int(in.Target)
			}

		case bytecode.OpSkipOr:
			if m.peek().Truthy() {
				fr.ip = int(in.Target)
			}

		// ============ Logic ============
		case bytecode.OpAnd:
			b := m.pop()
			a := m.pop()
			m.push(Bool(a.Truthy() && b.Truthy()))

		case bytecode.OpOr:
			b := m.pop()
			a := m.pop()
			m.push(Bool(a.Truthy() || b.Truthy()))

		case bytecode.OpNot:
			m.push(Bool(!m.pop().Truthy()))

		// ============ Arithmetic ============
		case bytecode.OpNegate:
			a := m.pop()
			if a.Kind() != KindNumber {
				return Null, m.fail(typeError("negate", a))
			}
			m.push(Number(-a.AsNumber()))

		case bytecode.OpAdd:
			b := m.pop()
			a := m.pop()
			switch {
			case a.Kind() == KindString || b.Kind() == KindString:
				m.push(String(a.String() + b.String()))
			case a.Kind() == KindNumber && b.Kind() == KindNumber:
				m.push(Number(a.AsNumber() + b.AsNumber()))
			default:
				return Null, m.fail(typeError("add", a, b))
			}

		case bytecode.OpSubstract, bytecode.OpMultiply, bytecode.OpDivide:
			b := m.pop()
			a := m.pop()
			v, err := arith(in.Op, a, b)
			if err != nil {
				return Null, m.fail(err)
			}
			m.push(v)

		// ============ Comparison ============
		case bytecode.OpEqual:
			b := m.pop()
			a := m.pop()
			m.push(Bool(a.Equal(b)))

		case bytecode.OpNotEqual:
			b := m.pop()
			a := m.pop()
			m.push(Bool(!a.Equal(b)))

		case bytecode.OpLess, bytecode.OpLessOrEqual, bytecode.OpGreater, bytecode.OpGreaterOrEqual:
			b := m.pop()
			a := m.pop()
			v, err := compare(in.Op, a, b)
			if err != nil {
				return Null, m.fail(err)
			}
			m.push(v)

		default:
			return Null, m.fail(fmt.Errorf("unknown opcode %s", in.Op))
		}
	}
}

// ---------------------------------------------------------------------------
// Stack and frames
// ---------------------------------------------------------------------------

func (m *Machine) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() Value {
	n := len(m.stack)
	if n <= m.frames[len(m.frames)-1].base {
		panic(errUnderflow)
	}
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v
}

func (m *Machine) peek() Value {
	n := len(m.stack)
	if n <= m.frames[len(m.frames)-1].base {
		panic(errUnderflow)
	}
	return m.stack[n-1]
}

// load reads a variable: a local when the running function declares the
// name, a global otherwise. Declared but unassigned variables read as null.
func (m *Machine) load(fr *frame, name string) Value {
	if _, ok := fr.fn.Variables[name]; ok {
		return fr.locals[name]
	}
	return m.globals[name]
}

func (m *Machine) store(fr *frame, name string, v Value) {
	if _, ok := fr.fn.Variables[name]; ok {
		fr.locals[name] = v
		return
	}
	m.globals[name] = v
}

// call invokes a user function or a bound native. User functions take
// precedence.
func (m *Machine) call(prog *bytecode.Program, name string) error {
	if fn, ok := prog.Functions[name]; ok && name != bytecode.TopLevel {
		argc := len(fn.Params)
		base := len(m.stack) - argc
		if base < m.frames[len(m.frames)-1].base {
			return m.fail(fmt.Errorf("call %s: %w", name, ErrStackUnderflow))
		}
		if m.maxDepth > 0 && len(m.frames) >= m.maxDepth {
			return m.fail(ErrDepthLimit)
		}

		locals := make(map[string]Value, len(fn.Variables))
		for i, p := range fn.Params {
			locals[p] = m.stack[base+i]
		}
		m.stack = m.stack[:base]
		m.frames = append(m.frames, &frame{fn: fn, base: base, locals: locals})
		return nil
	}

	native, ok := m.natives[name]
	if !ok {
		return m.fail(fmt.Errorf("function %q is not defined", name))
	}
	return m.callNative(name, native)
}

// callNative runs a native with its arguments taken from the stack.
func (m *Machine) callNative(name string, native boundNative) error {
	base := len(m.stack) - native.arity
	if base < m.frames[len(m.frames)-1].base {
		return m.fail(fmt.Errorf("call %s: %w", name, ErrStackUnderflow))
	}

	args := make([]Value, native.arity)
	copy(args, m.stack[base:])
	m.stack = m.stack[:base]

	v, err := native.fn(m, args)
	if err != nil {
		return m.fail(fmt.Errorf("%s: %w", name, err))
	}
	m.push(v)
	return nil
}

// ret pops the current frame and hands v to the caller. It reports done
// when the top-level frame returned.
func (m *Machine) ret(v Value) (done bool, result Value) {
	fr := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]
	m.stack = m.stack[:fr.base]
	if len(m.frames) == 0 {
		return true, v
	}
	m.push(v)
	return false, Null
}

// fail wraps err with the position of the running instruction.
func (m *Machine) fail(err error) error {
	if len(m.frames) == 0 {
		return err
	}
	fr := m.frames[len(m.frames)-1]
	addr := fr.ip - 1
	line := 0
	if addr >= 0 && addr < len(fr.fn.Instructions) {
		line = fr.fn.Instructions[addr].Line
	}
	return &RuntimeError{Function: fr.fn.Name, Address: addr, Line: line, Err: err}
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func arith(op bytecode.Opcode, a, b Value) (Value, error) {
	if a.Kind() != KindNumber || b.Kind() != KindNumber {
		return Null, typeError(op.String(), a, b)
	}
	x, y := a.AsNumber(), b.AsNumber()
	switch op {
	case bytecode.OpSubstract:
		return Number(x - y), nil
	case bytecode.OpMultiply:
		return Number(x * y), nil
	default:
		if y == 0 {
			return Null, errors.New("division by zero")
		}
		return Number(x / y), nil
	}
}

func compare(op bytecode.Opcode, a, b Value) (Value, error) {
	var c int
	switch {
	case a.Kind() == KindNumber && b.Kind() == KindNumber:
		x, y := a.AsNumber(), b.AsNumber()
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	case a.Kind() == KindString && b.Kind() == KindString:
		switch {
		case a.AsString() < b.AsString():
			c = -1
		case a.AsString() > b.AsString():
			c = 1
		}
	default:
		return Null, typeError("compare", a, b)
	}

	switch op {
	case bytecode.OpLess:
		return Bool(c < 0), nil
	case bytecode.OpLessOrEqual:
		return Bool(c <= 0), nil
	case bytecode.OpGreater:
		return Bool(c > 0), nil
	default:
		return Bool(c >= 0), nil
	}
}

// listIndex converts idx to a position in a sequence of length n.
func listIndex(idx Value, n int) (int, error) {
	if idx.Kind() != KindNumber {
		return 0, fmt.Errorf("index must be a number, not %s", idx.Kind())
	}
	f := idx.AsNumber()
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("index %v is not an integer", f)
	}
	i := int(f)
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of range [0, %d)", i, n)
	}
	return i, nil
}

func index(c, idx Value) (Value, error) {
	switch c.Kind() {
	case KindList:
		i, err := listIndex(idx, c.AsList().Len())
		if err != nil {
			return Null, err
		}
		return c.AsList().Items[i], nil
	case KindString:
		s := []rune(c.AsString())
		i, err := listIndex(idx, len(s))
		if err != nil {
			return Null, err
		}
		return String(string(s[i])), nil
	case KindObject:
		if idx.Kind() != KindString {
			return Null, fmt.Errorf("object key must be a string, not %s", idx.Kind())
		}
		v, _ := c.AsObject().Get(idx.AsString())
		return v, nil
	}
	return Null, typeError("index", c)
}

func put(c, idx, v Value) error {
	switch c.Kind() {
	case KindList:
		i, err := listIndex(idx, c.AsList().Len())
		if err != nil {
			return err
		}
		c.AsList().Items[i] = v
		return nil
	case KindObject:
		if idx.Kind() != KindString {
			return fmt.Errorf("object key must be a string, not %s", idx.Kind())
		}
		c.AsObject().Set(idx.AsString(), v)
		return nil
	}
	return typeError("assign an element of", c)
}
