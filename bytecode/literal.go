package bytecode

import (
	"fmt"
	"strconv"
)

// LiteralKind identifies the type of a literal operand.
type LiteralKind uint8

const (
	LitNull LiteralKind = iota
	LitNumber
	LitString
	LitBool
)

func (k LiteralKind) String() string {
	switch k {
	case LitNull:
		return "null"
	case LitNumber:
		return "number"
	case LitString:
		return "string"
	case LitBool:
		return "boolean"
	default:
		return fmt.Sprintf("LiteralKind(%d)", k)
	}
}

// Literal is a constant carried by an OpValue instruction.
type Literal struct {
	Kind   LiteralKind `cbor:"1,keyasint"`
	Number float64     `cbor:"2,keyasint,omitempty"`
	String string      `cbor:"3,keyasint,omitempty"`
	Bool   bool        `cbor:"4,keyasint,omitempty"`
}

// Null returns the null literal.
func Null() Literal { return Literal{Kind: LitNull} }

// Number returns a numeric literal.
func Number(f float64) Literal { return Literal{Kind: LitNumber, Number: f} }

// String returns a string literal.
func String(s string) Literal { return Literal{Kind: LitString, String: s} }

// Bool returns a boolean literal.
func Bool(b bool) Literal { return Literal{Kind: LitBool, Bool: b} }

// Format renders the literal the way it would appear in source.
func (l Literal) Format() string {
	switch l.Kind {
	case LitNumber:
		return strconv.FormatFloat(l.Number, 'g', -1, 64)
	case LitString:
		return strconv.Quote(l.String)
	case LitBool:
		return strconv.FormatBool(l.Bool)
	default:
		return "null"
	}
}
