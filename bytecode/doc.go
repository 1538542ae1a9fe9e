// Package bytecode defines the compiled form of Luiggi programs: opcodes,
// instructions, functions and the program that maps names to functions.
//
// A Program is produced by one pass of the compiler and consumed by a stack
// machine. Each Function owns a flat, append-only instruction sequence; the
// position of an instruction in that sequence is its address.
//
// # Jump placeholders
//
// Forward jumps are emitted before their destination is known. Their Target
// is Unresolved until Patch transitions it, exactly once, to a concrete
// address. A finished program contains no unresolved placeholders; Validate
// checks this along with call targets and operand presence.
//
// # Wire format
//
// Programs serialize to canonical CBOR wrapped in an envelope carrying the
// "LGBC" magic and a format version, so compiled scripts can be written to
// disk or stored in the compile cache.
package bytecode
