package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/luiggi/bytecode"
)

var (
	// ErrStepLimit is returned when a run executes more instructions than
	// the configured limit.
	ErrStepLimit = errors.New("step limit exceeded")

	// ErrDepthLimit is returned when calls nest deeper than the configured limit.
	ErrDepthLimit = errors.New("call depth limit exceeded")

	// ErrStackUnderflow means the bytecode popped more values than it pushed.
	ErrStackUnderflow = errors.New("stack underflow")
)

// RuntimeError reports a failure while executing an instruction.
type RuntimeError struct {
	Function string // function name, bytecode.TopLevel for the top level
	Address  int
	Line     int
	Err      error
}

func (e *RuntimeError) Error() string {
	name := e.Function
	if name == bytecode.TopLevel {
		name = "<top level>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v (in %s@%d)", e.Line, e.Err, name, e.Address)
	}
	return fmt.Sprintf("%v (in %s@%d)", e.Err, name, e.Address)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// typeError builds the error for an operand of the wrong kind.
func typeError(op string, vals ...Value) error {
	switch len(vals) {
	case 1:
		return fmt.Errorf("cannot %s %s", op, vals[0].Kind())
	default:
		return fmt.Errorf("cannot %s %s and %s", op, vals[0].Kind(), vals[1].Kind())
	}
}
