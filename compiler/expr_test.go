package compiler

import (
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/luiggi/bytecode"
)

// listing renders a function's code one instruction per entry.
func listing(fn *bytecode.Function) []string {
	out := make([]string, len(fn.Instructions))
	for i, in := range fn.Instructions {
		out[i] = in.String()
	}
	return out
}

// compileTop compiles src with a few test natives and returns the top-level
// listing.
func compileTop(t *testing.T, src string) []string {
	t.Helper()
	prog, err := testCompiler(t).CompileSource(src)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return listing(prog.Main())
}

func testCompiler(t *testing.T) *Compiler {
	t.Helper()
	c := New()
	for name, sig := range map[string]string{
		"a":   "a()",
		"b":   "b()",
		"log": "log(value)",
		"max": "max(x, y)",
	} {
		if err := c.ImportNative(name, sig, nil); err != nil {
			t.Fatalf("ImportNative(%s): %v", name, err)
		}
	}
	return c
}

func TestCompileExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"literal", "42", "value 42; pop"},
		{"string", `"hi"`, `value "hi"; pop`},
		{"null", "null", "value null; pop"},
		{"boolean", "true", "value true; pop"},
		{"precedence", "1 + 2 * 3", "value 1; value 2; value 3; multiply; add; pop"},
		{"left associative", "1 - 2 - 3", "value 1; value 2; substract; value 3; substract; pop"},
		{"parens", "(1 + 2) * 3", "value 1; value 2; add; value 3; multiply; pop"},
		{"nested parens", "((1))", "value 1; pop"},
		{"unary minus", "-2 * 3", "value 2; negate; value 3; multiply; pop"},
		{"double negation", "- -2", "value 2; negate; negate; pop"},
		{"unary plus", "+2", "value 2; pop"},
		{"not binds looser than comparison", "not 1 < 2", "value 1; value 2; less; not; pop"},
		{"not after binary operator", "2 * not a()", "value 2; call a; not; multiply; pop"},
		{"not after comparison", "1 = not a()", "value 1; call a; not; equal; pop"},
		{"negation after binary operator", "1 - -2 * 3", "value 1; value 2; negate; value 3; multiply; substract; pop"},
		{"comparison", "1 + 1 = 2", "value 1; value 1; add; value 2; equal; pop"},
		{"not equal", "1 != 2", "value 1; value 2; not_equal; pop"},
		{"ordering", "1 <= 2", "value 1; value 2; less_or_equal; pop"},
		{"ordering ge", "1 >= 2", "value 1; value 2; greater_or_equal; pop"},
		{"or", "true or false", "value true; skip_or 4; value false; or; pop"},
		{"and", "true and false", "value true; skip_and 4; value false; and; pop"},
		{"and binds tighter than or",
			"true or false and true",
			"value true; skip_or 7; value false; skip_and 6; value true; and; or; pop"},
		{"call", "max(1, 2)", "value 1; value 2; call max; pop"},
		{"call no args", "a()", "call a; pop"},
		{"call in expression", "a() + 1", "call a; value 1; add; pop"},
		{"nested call", "log(max(1, 2))", "value 1; value 2; call max; call log; pop"},
		{"call with parens inside", "max((1 + 2), 3)", "value 1; value 2; add; value 3; call max; pop"},
		{"list", "[1, 2]", "list; value 1; append; value 2; append; pop"},
		{"empty list", "[]", "list; pop"},
		{"object", "{x = 1, y = 2}", "object; value 1; set x; value 2; set y; pop"},
		{"empty object", "{}", "object; pop"},
		{"index", "[1][0]", "list; value 1; append; value 0; index; pop"},
		{"member", "{x = 1}.x", "object; value 1; set x; get x; pop"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := strings.Join(compileTop(t, tc.src), "; ")
			if got != tc.want {
				t.Errorf("compile %q\n got: %s\nwant: %s", tc.src, got, tc.want)
			}
		})
	}
}

func TestCompileMultilineCall(t *testing.T) {
	got := compileTop(t, "max(\n  1,\n  2\n)")
	want := []string{"value 1", "value 2", "call max", "pop"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCompileMultilineLiterals(t *testing.T) {
	got := compileTop(t, "l = [\n  1,\n  2\n]\no = {\n  x = 1,\n  y = 2\n}")
	want := []string{
		"list", "value 1", "append", "value 2", "append", "store l",
		"object", "value 1", "set x", "value 2", "set y", "store o",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCompileVariableLoad(t *testing.T) {
	got := compileTop(t, "x = 1\nx + x")
	want := []string{"value 1", "store x", "load x", "load x", "add", "pop"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestShortCircuitTargets(t *testing.T) {
	prog, err := testCompiler(t).CompileSource("a() or b()\na() and b()")
	if err != nil {
		t.Fatal(err)
	}
	code := prog.Main().Instructions

	// a() or b(): call a; skip_or; call b; or; pop
	skipOr := code[1]
	if skipOr.Op != bytecode.OpSkipOr || skipOr.Target != 4 || code[3].Op != bytecode.OpOr {
		t.Errorf("or: got %v, want skip_or past the or instruction", listing(prog.Main()))
	}

	// a() and b(): exactly one skip_and, jumping past the and.
	skips := 0
	for _, in := range code[5:] {
		if in.Op == bytecode.OpSkipAnd {
			skips++
			if in.Target != 9 {
				t.Errorf("skip_and target = %d, want 9", in.Target)
			}
		}
	}
	if skips != 1 {
		t.Errorf("skip_and count = %d, want 1", skips)
	}
}

func TestShortCircuitInsideParens(t *testing.T) {
	got := strings.Join(compileTop(t, "(true or false) and true"), "; ")
	want := "value true; skip_or 4; value false; or; skip_and 7; value true; and; pop"
	if got != want {
		t.Errorf("\n got: %s\nwant: %s", got, want)
	}
}

func TestExpressionErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{"undefined variable", "y + 1", UndefinedVariable},
		{"undefined function", "nope()", UndefinedFunction},
		{"arity too few", "max(1)", ArityMismatch},
		{"arity too many", "log(1, 2)", ArityMismatch},
		{"two values", "1 2", UnexpectedToken},
		{"dangling operator", "1 +", ExpectedExpression},
		{"empty parens", "()", UnexpectedToken},
		{"unbalanced paren", "(1 + 2", UnexpectedToken},
		{"list after operand start", "1 + [2]", UnexpectedToken},
		{"brace after operand", "1 {}", UnexpectedToken},
		{"dot in value position", ".x", UnexpectedToken},
		{"trailing argument comma", "max(1, )", UnexpectedToken},
		{"missing expression", "x = ", ExpectedExpression},
		{"operator start", "* 2", ExpectedExpression},
		{"object needs names", "{1 = 2}", UnexpectedToken},
		{"object needs =", "{x 1}", UnexpectedToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testCompiler(t).CompileSource(tc.src)
			if err == nil {
				t.Fatalf("compile %q: expected error", tc.src)
			}
			if !IsKind(err, tc.kind) {
				t.Errorf("compile %q: error = %v (%v), want %v", tc.src, err, err.(*Error).Kind, tc.kind)
			}
		})
	}
}

func TestArityMismatchNamesExpectedCount(t *testing.T) {
	_, err := testCompiler(t).CompileSource("max(1)")
	if err == nil {
		t.Fatal("expected error")
	}
	if msg := err.Error(); !strings.Contains(msg, "expects 2") || !strings.Contains(msg, "not 1") {
		t.Errorf("message = %q, want expected and actual counts", msg)
	}
}
