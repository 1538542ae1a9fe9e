package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing for the function.
func (f *Function) Disassemble() string {
	var sb strings.Builder

	name := f.Name
	if name == TopLevel {
		name = "<top level>"
	}
	sb.WriteString(fmt.Sprintf("; === %s ===\n", name))

	if len(f.Params) > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters (%d): %s\n", len(f.Params), strings.Join(f.Params, ", ")))
	}

	if locals := f.locals(); len(locals) > 0 {
		sb.WriteString(fmt.Sprintf("; Locals: %s\n", strings.Join(locals, ", ")))
	}

	sb.WriteString("; Code:\n")
	lastLine := 0
	for addr, in := range f.Instructions {
		text := in.String()
		if in.Line > 0 && in.Line != lastLine {
			sb.WriteString(fmt.Sprintf("%04d  %-30s ; line %d\n", addr, text, in.Line))
			lastLine = in.Line
		} else {
			sb.WriteString(fmt.Sprintf("%04d  %s\n", addr, text))
		}
	}

	return sb.String()
}

// locals returns declared names that are not parameters, sorted.
func (f *Function) locals() []string {
	params := make(map[string]bool, len(f.Params))
	for _, p := range f.Params {
		params[p] = true
	}
	var out []string
	for name := range f.Variables {
		if !params[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Disassemble returns listings for every function, top level first.
func (p *Program) Disassemble() string {
	var sb strings.Builder
	for i, name := range p.Names() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Functions[name].Disassemble())
	}
	return sb.String()
}
