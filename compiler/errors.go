package compiler

import (
	"errors"
	"fmt"
)

// ErrorKind classifies compile errors.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	ExpectedExpression
	UndefinedVariable
	UndefinedFunction
	DuplicateFunction
	DuplicateParameter
	ArityMismatch
	NestedFunction
	UnexpectedEnd
	InvalidToken
	InternalError
)

var errorKindNames = map[ErrorKind]string{
	UnexpectedToken:    "UnexpectedToken",
	ExpectedExpression: "ExpectedExpression",
	UndefinedVariable:  "UndefinedVariable",
	UndefinedFunction:  "UndefinedFunction",
	DuplicateFunction:  "DuplicateFunction",
	DuplicateParameter: "DuplicateParameter",
	ArityMismatch:      "ArityMismatch",
	NestedFunction:     "NestedFunctionNotAllowed",
	UnexpectedEnd:      "UnexpectedEnd",
	InvalidToken:       "InvalidToken",
	InternalError:      "InternalError",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error is a compile error. Compilation stops at the first one.
type Error struct {
	Kind    ErrorKind
	Line    int    // source line of the offending token
	Token   string // offending token, if any
	Message string
	AtEOF   bool // raised because the input ended
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func newError(kind ErrorKind, line int, token string, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Line:    line,
		Token:   token,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsKind reports whether err is a compile error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// IsIncomplete reports whether err was caused by the input ending inside an
// unfinished construct, so more input could make it valid.
func IsIncomplete(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.AtEOF
}
