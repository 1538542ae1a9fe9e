package bytecode

import (
	"errors"
	"fmt"
)

// Validate checks structural invariants of a compiled program: every jump
// is resolved and in range, every call names a known function, and every
// opcode is part of the vocabulary. natives lists callable host functions
// with their arity.
func Validate(p *Program, natives map[string]int) error {
	if p.Main() == nil {
		return errors.New("validate: missing top-level function")
	}

	var errs []error
	for _, name := range p.Names() {
		fn := p.Functions[name]
		for addr, in := range fn.Instructions {
			if err := validateInstruction(p, natives, fn, addr, in); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func validateInstruction(p *Program, natives map[string]int, fn *Function, addr int, in Instruction) error {
	if !in.Op.Valid() {
		return fmt.Errorf("%s@%d: unknown opcode 0x%02X", fn.Name, addr, byte(in.Op))
	}

	switch in.Op.Operand() {
	case OperandAddress:
		if in.Target == Unresolved {
			return fmt.Errorf("%s@%d: unresolved %s", fn.Name, addr, in.Op)
		}
		if in.Target < 0 || int(in.Target) > len(fn.Instructions) {
			return fmt.Errorf("%s@%d: %s target %d out of range", fn.Name, addr, in.Op, in.Target)
		}
	case OperandName:
		if in.Name == "" {
			return fmt.Errorf("%s@%d: %s without name", fn.Name, addr, in.Op)
		}
	}

	if in.Op == OpCall {
		if _, ok := p.Functions[in.Name]; ok {
			return nil
		}
		if _, ok := natives[in.Name]; ok {
			return nil
		}
		return fmt.Errorf("%s@%d: call to unknown function %q", fn.Name, addr, in.Name)
	}
	return nil
}
