package bytecode

import "fmt"

// Opcode represents a single instruction kind understood by the VM.
// The String form of each opcode is its wire name and must not change.
type Opcode byte

const (
	// ========================================================================
	// Stack and literals
	// ========================================================================

	OpValue Opcode = iota // Push literal operand
	OpPop                 // Discard top of stack

	// ========================================================================
	// Variables
	// ========================================================================

	OpLoad  // Push variable <name>
	OpStore // Pop and store into variable <name>

	// ========================================================================
	// Containers
	// ========================================================================

	OpPut    // container index value -> (container[index] = value)
	OpGet    // object -> object.<name>
	OpSet    // object value -> object (object.<name> = value)
	OpIndex  // container index -> container[index]
	OpList   // -> []
	OpAppend // list value -> list
	OpObject // -> {}

	// ========================================================================
	// Calls and control flow
	// ========================================================================

	OpCall    // Call function <name>; pops arity args, pushes result
	OpBranch  // Pop; jump to <address> if falsy
	OpJump    // Jump to <address>
	OpSkipAnd // Peek; jump to <address> if falsy
	OpSkipOr  // Peek; jump to <address> if truthy

	// ========================================================================
	// Logic
	// ========================================================================

	OpAnd
	OpOr
	OpNot

	// ========================================================================
	// Arithmetic
	// ========================================================================

	OpNegate
	OpAdd
	OpSubstract
	OpMultiply
	OpDivide

	// ========================================================================
	// Comparison
	// ========================================================================

	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpEqual
	OpNotEqual

	// ========================================================================
	// Return
	// ========================================================================

	OpReturn

	opcodeCount
)

// OperandKind describes what an instruction's operand holds.
type OperandKind uint8

const (
	OperandNone    OperandKind = iota
	OperandLiteral             // Instruction.Literal
	OperandName                // Instruction.Name
	OperandAddress             // Instruction.Target
)

func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandLiteral:
		return "literal"
	case OperandName:
		return "name"
	case OperandAddress:
		return "address"
	default:
		return fmt.Sprintf("OperandKind(%d)", k)
	}
}

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name      string      // Wire name
	StackPop  int         // Values popped (-1 = depends on callee arity)
	StackPush int         // Values pushed
	Operand   OperandKind // Operand carried by the instruction
}

var opcodeInfoTable = [opcodeCount]OpcodeInfo{
	OpValue: {"value", 0, 1, OperandLiteral},
	OpPop:   {"pop", 1, 0, OperandNone},

	OpLoad:  {"load", 0, 1, OperandName},
	OpStore: {"store", 1, 0, OperandName},

	OpPut:    {"put", 3, 0, OperandNone},
	OpGet:    {"get", 1, 1, OperandName},
	OpSet:    {"set", 2, 1, OperandName},
	OpIndex:  {"index", 2, 1, OperandNone},
	OpList:   {"list", 0, 1, OperandNone},
	OpAppend: {"append", 2, 1, OperandNone},
	OpObject: {"object", 0, 1, OperandNone},

	OpCall:    {"call", -1, 1, OperandName},
	OpBranch:  {"branch", 1, 0, OperandAddress},
	OpJump:    {"jump", 0, 0, OperandAddress},
	OpSkipAnd: {"skip_and", 0, 0, OperandAddress},
	OpSkipOr:  {"skip_or", 0, 0, OperandAddress},

	OpAnd: {"and", 2, 1, OperandNone},
	OpOr:  {"or", 2, 1, OperandNone},
	OpNot: {"not", 1, 1, OperandNone},

	OpNegate:    {"negate", 1, 1, OperandNone},
	OpAdd:       {"add", 2, 1, OperandNone},
	OpSubstract: {"substract", 2, 1, OperandNone},
	OpMultiply:  {"multiply", 2, 1, OperandNone},
	OpDivide:    {"divide", 2, 1, OperandNone},

	OpLess:           {"less", 2, 1, OperandNone},
	OpLessOrEqual:    {"less_or_equal", 2, 1, OperandNone},
	OpGreater:        {"greater", 2, 1, OperandNone},
	OpGreaterOrEqual: {"greater_or_equal", 2, 1, OperandNone},
	OpEqual:          {"equal", 2, 1, OperandNone},
	OpNotEqual:       {"not_equal", 2, 1, OperandNone},

	OpReturn: {"return", 1, 0, OperandNone},
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opcodeCount)
	for op := Opcode(0); op < opcodeCount; op++ {
		m[opcodeInfoTable[op].Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if op < opcodeCount {
		return opcodeInfoTable[op]
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// ParseOpcode returns the opcode with the given wire name.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// String returns the wire name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Operand returns the kind of operand the opcode carries.
func (op Opcode) Operand() OperandKind {
	return GetOpcodeInfo(op).Operand
}

// Valid reports whether op is part of the vocabulary.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}

// IsJump returns true for opcodes whose operand is an instruction address.
func (op Opcode) IsJump() bool {
	return op.Operand() == OperandAddress
}

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, opcodeCount)
	for op := Opcode(0); op < opcodeCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return int(opcodeCount)
}
