package stdlib

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/chazu/luiggi/compiler"
	"github.com/chazu/luiggi/vm"
)

// exec compiles and runs src with the standard natives, returning the
// result and everything logged.
func exec(t *testing.T, src string) (vm.Value, string) {
	t.Helper()
	var out bytes.Buffer
	r := New(&out)
	c := compiler.New()
	m := vm.New()
	if err := r.Install(c, m); err != nil {
		t.Fatalf("Install: %v", err)
	}
	prog, err := c.CompileSource(src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := m.Run(context.Background(), prog)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return v, out.String()
}

func TestNatives(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`return len("héllo")`, "5"},
		{`return len([1, 2, 3])`, "3"},
		{`return len({a = 1})`, "1"},
		{`return str(1.5) + "!"`, "1.5!"},
		{`return num("42")`, "42"},
		{`return num(" 2.5 ")`, "2.5"},
		{`return num("nope")`, "null"},
		{`return num(true)`, "1"},
		{"l = []\npush(l, 1)\npush(l, 2)\nreturn l", "[1, 2]"},
		{`return keys({b = 1, a = 2})`, `["b", "a"]`},
		{`return floor(2.7)`, "2"},
		{`return sqrt(16)`, "4"},
		{`return abs(-3)`, "3"},
	}

	for _, tc := range tests {
		v, _ := exec(t, tc.src)
		if v.String() != tc.want {
			t.Errorf("%s = %s, want %s", tc.src, v, tc.want)
		}
	}
}

func TestLog(t *testing.T) {
	_, out := exec(t, "log(\"hello\")\nlog(1 + 2)\nlog([1, \"a\"])")
	want := "hello\n3\n[1, \"a\"]\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestNativeErrors(t *testing.T) {
	for _, src := range []string{"len(1)", "push(1, 2)", "keys([])", `sqrt("x")`, "num([])"} {
		r := New(&bytes.Buffer{})
		c := compiler.New()
		m := vm.New()
		if err := r.Install(c, m); err != nil {
			t.Fatal(err)
		}
		prog, err := c.CompileSource(src)
		if err != nil {
			t.Fatalf("compile %q: %v", src, err)
		}
		if _, err := m.Run(context.Background(), prog); err == nil {
			t.Errorf("run %q: expected error", src)
		}
	}
}

func TestSignaturesAndArities(t *testing.T) {
	r := New(nil)
	sigs := r.Signatures()
	if sigs["push"] != "push(list, value)" {
		t.Errorf("push signature = %q", sigs["push"])
	}
	arities, err := r.Arities()
	if err != nil {
		t.Fatal(err)
	}
	if arities["push"] != 2 || arities["log"] != 1 {
		t.Errorf("arities = %v", arities)
	}
}

func TestAddCustomNative(t *testing.T) {
	r := New(&bytes.Buffer{})
	r.Add("twice", "twice(x)", func(_ *vm.Machine, args []vm.Value) (vm.Value, error) {
		return vm.Number(args[0].AsNumber() * 2), nil
	})
	c := compiler.New()
	m := vm.New()
	if err := r.Install(c, m); err != nil {
		t.Fatal(err)
	}
	prog, err := c.CompileSource("return twice(21)")
	if err != nil {
		t.Fatal(err)
	}
	v, err := m.Run(context.Background(), prog)
	if err != nil {
		t.Fatal(err)
	}
	if v.AsNumber() != 42 {
		t.Errorf("result = %v", v)
	}
}

func TestInstallTwiceFails(t *testing.T) {
	r := New(nil)
	c := compiler.New()
	if err := r.Install(c, nil); err != nil {
		t.Fatal(err)
	}
	err := r.Install(c, nil)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second Install error = %v", err)
	}
}
