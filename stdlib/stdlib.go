// Package stdlib provides the standard native functions available to every
// Luiggi script.
package stdlib

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chazu/luiggi/compiler"
	"github.com/chazu/luiggi/vm"
)

// Entry is one native function with its declared signature text.
type Entry struct {
	Name      string
	Signature string
	Fn        vm.NativeFunc
}

// Registry holds the natives of one host. log writes to the registry's
// output.
type Registry struct {
	entries []Entry
	out     io.Writer
}

// New returns the standard registry writing log output to out, or to
// os.Stdout when out is nil.
func New(out io.Writer) *Registry {
	if out == nil {
		out = os.Stdout
	}
	r := &Registry{out: out}
	r.entries = []Entry{
		{"log", "log(value)", r.log},
		{"len", "len(value)", length},
		{"str", "str(value)", str},
		{"num", "num(value)", num},
		{"push", "push(list, value)", push},
		{"keys", "keys(object)", keys},
		{"floor", "floor(x)", numeric("floor", math.Floor)},
		{"sqrt", "sqrt(x)", numeric("sqrt", math.Sqrt)},
		{"abs", "abs(x)", numeric("abs", math.Abs)},
	}
	return r
}

// Add registers an extra native. Hosts use it to expose their own functions
// next to the standard ones.
func (r *Registry) Add(name, signature string, fn vm.NativeFunc) {
	r.entries = append(r.entries, Entry{Name: name, Signature: signature, Fn: fn})
}

// Entries returns the registered natives in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Signatures maps each native name to its signature text. This is all a
// compiler needs.
func (r *Registry) Signatures() map[string]string {
	out := make(map[string]string, len(r.entries))
	for _, e := range r.entries {
		out[e.Name] = e.Signature
	}
	return out
}

// Arities maps each native name to its parameter count.
func (r *Registry) Arities() (map[string]int, error) {
	out := make(map[string]int, len(r.entries))
	for _, e := range r.entries {
		params, err := compiler.ParseSignature(e.Signature)
		if err != nil {
			return nil, fmt.Errorf("native %s: %w", e.Name, err)
		}
		out[e.Name] = len(params)
	}
	return out, nil
}

// Install imports every signature into c and binds every implementation
// into m. Either may be nil.
func (r *Registry) Install(c *compiler.Compiler, m *vm.Machine) error {
	for _, e := range r.entries {
		if c != nil {
			if err := c.ImportNative(e.Name, e.Signature, e.Fn); err != nil {
				return err
			}
		}
		if m != nil {
			params, err := compiler.ParseSignature(e.Signature)
			if err != nil {
				return fmt.Errorf("native %s: %w", e.Name, err)
			}
			m.Bind(e.Name, len(params), e.Fn)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Implementations
// ---------------------------------------------------------------------------

func (r *Registry) log(_ *vm.Machine, args []vm.Value) (vm.Value, error) {
	_, err := fmt.Fprintln(r.out, args[0].String())
	return vm.Null, err
}

func length(_ *vm.Machine, args []vm.Value) (vm.Value, error) {
	v := args[0]
	switch v.Kind() {
	case vm.KindString:
		return vm.Number(float64(utf8.RuneCountInString(v.AsString()))), nil
	case vm.KindList:
		return vm.Number(float64(v.AsList().Len())), nil
	case vm.KindObject:
		return vm.Number(float64(v.AsObject().Len())), nil
	}
	return vm.Null, fmt.Errorf("%s has no length", v.Kind())
}

func str(_ *vm.Machine, args []vm.Value) (vm.Value, error) {
	return vm.String(args[0].String()), nil
}

// num converts to a number. Strings that do not parse yield null.
func num(_ *vm.Machine, args []vm.Value) (vm.Value, error) {
	v := args[0]
	switch v.Kind() {
	case vm.KindNumber:
		return v, nil
	case vm.KindBool:
		if v.AsBool() {
			return vm.Number(1), nil
		}
		return vm.Number(0), nil
	case vm.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsString()), 64)
		if err != nil {
			return vm.Null, nil
		}
		return vm.Number(f), nil
	}
	return vm.Null, fmt.Errorf("cannot convert %s to number", v.Kind())
}

func push(_ *vm.Machine, args []vm.Value) (vm.Value, error) {
	l := args[0]
	if l.Kind() != vm.KindList {
		return vm.Null, fmt.Errorf("cannot push to %s", l.Kind())
	}
	l.AsList().Append(args[1])
	return l, nil
}

func keys(_ *vm.Machine, args []vm.Value) (vm.Value, error) {
	o := args[0]
	if o.Kind() != vm.KindObject {
		return vm.Null, fmt.Errorf("%s has no keys", o.Kind())
	}
	names := o.AsObject().Keys()
	items := make([]vm.Value, len(names))
	for i, k := range names {
		items[i] = vm.String(k)
	}
	return vm.NewList(items...), nil
}

func numeric(name string, f func(float64) float64) vm.NativeFunc {
	return func(_ *vm.Machine, args []vm.Value) (vm.Value, error) {
		x := args[0]
		if x.Kind() != vm.KindNumber {
			return vm.Null, fmt.Errorf("%s expects a number, not %s", name, x.Kind())
		}
		return vm.Number(f(x.AsNumber())), nil
	}
}
