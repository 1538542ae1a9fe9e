// Package vm implements the reference stack machine for Luiggi bytecode.
//
// This package contains:
//   - Dynamic values (null, number, string, boolean, list, object)
//   - Frames with name-keyed locals; the top-level frame's locals are the globals
//   - The interpreter loop for the bytecode opcode set
//   - Host function binding by name and arity
//
// The machine only depends on the bytecode package. It does not know how
// programs are compiled.
package vm
