package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/luiggi/stdlib"
	"github.com/chazu/luiggi/vm"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "x = le", protocol.Position{Line: 0, Character: 6}, "le"},
		{"at start", "whi", protocol.Position{Line: 0, Character: 3}, "whi"},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"multi line", "first line\nsecond\nlo", protocol.Position{Line: 2, Character: 2}, "lo"},
		{"after paren", "log(str", protocol.Position{Line: 0, Character: 7}, "str"},
		{"cursor at beginning", "hello", protocol.Position{Line: 0, Character: 0}, ""},
		{"line beyond document", "single line", protocol.Position{Line: 5, Character: 0}, ""},
		{"column beyond line", "abc", protocol.Position{Line: 0, Character: 99}, "abc"},
		{"underscore and digits", "x = my_var2", protocol.Position{Line: 0, Character: 11}, "my_var2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractPrefix(tc.text, tc.pos); got != tc.want {
				t.Errorf("extractPrefix = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"middle of word", "return fib(10)", protocol.Position{Line: 0, Character: 8}, "fib"},
		{"start of word", "return fib(10)", protocol.Position{Line: 0, Character: 7}, "fib"},
		{"end of word", "return fib(10)", protocol.Position{Line: 0, Character: 10}, "fib"},
		{"on space", "a  b", protocol.Position{Line: 0, Character: 2}, ""},
		{"second line", "x = 1\nlog(x)", protocol.Position{Line: 1, Character: 1}, "log"},
		{"line beyond document", "x", protocol.Position{Line: 3, Character: 0}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractWord(tc.text, tc.pos); got != tc.want {
				t.Errorf("extractWord = %q, want %q", got, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Document analysis
// ---------------------------------------------------------------------------

const sampleDoc = `func fib(n)
  if n < 2 then return n
  return fib(n - 1) + fib(n - 2)
end

  func  add( a, b )
  return a + b
end
func broken(
x = fib(10)
`

func TestDeclaredFunctions(t *testing.T) {
	got := declaredFunctions(sampleDoc)
	want := map[string]string{"fib": "fib(n)", "add": "add(a, b)"}
	if len(got) != len(want) {
		t.Fatalf("declaredFunctions = %v, want %v", got, want)
	}
	for name, sig := range want {
		if got[name] != sig {
			t.Errorf("%s = %q, want %q", name, got[name], sig)
		}
	}
}

func labels(items []protocol.CompletionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestComplete(t *testing.T) {
	s := NewLSP()
	tests := []struct {
		prefix string
		want   []string
	}{
		{"wh", []string{"while"}},
		{"fi", []string{"fib"}},
		{"f", []string{"false", "func", "floor", "fib"}},
		{"ke", []string{"keys"}},
		{"zzz", nil},
	}

	for _, tc := range tests {
		t.Run(tc.prefix, func(t *testing.T) {
			got := labels(s.complete(sampleDoc, tc.prefix))
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Errorf("complete(%q) = %v, want %v", tc.prefix, got, tc.want)
			}
		})
	}
}

func TestCompleteDetails(t *testing.T) {
	s := NewLSP()
	items := s.complete(sampleDoc, "push")
	if len(items) != 1 {
		t.Fatalf("items = %v", labels(items))
	}
	if *items[0].Detail != "push(list, value)" {
		t.Errorf("detail = %q", *items[0].Detail)
	}
	if *items[0].Kind != protocol.CompletionItemKindFunction {
		t.Errorf("kind = %v", *items[0].Kind)
	}
}

func TestCompleteExtraNatives(t *testing.T) {
	s := NewLSP(func(r *stdlib.Registry) {
		r.Add("plot", "plot(x, y)", func(*vm.Machine, []vm.Value) (vm.Value, error) { return vm.Null, nil })
	})
	if got := labels(s.complete("", "pl")); len(got) != 1 || got[0] != "plot" {
		t.Errorf("complete(pl) = %v", got)
	}
}

func hoverText(h *protocol.Hover) string {
	if h == nil {
		return ""
	}
	return h.Contents.(protocol.MarkupContent).Value
}

func TestHover(t *testing.T) {
	s := NewLSP()
	tests := []struct {
		word string
		want string
	}{
		{"fib", "func fib(n)"},
		{"add", "func add(a, b)"},
		{"log", "log(value)"},
		{"x", ""},
	}

	for _, tc := range tests {
		t.Run(tc.word, func(t *testing.T) {
			got := hoverText(s.hover(sampleDoc, tc.word))
			if tc.want == "" {
				if got != "" {
					t.Errorf("hover(%q) = %q, want none", tc.word, got)
				}
				return
			}
			if !strings.Contains(got, tc.want) {
				t.Errorf("hover(%q) = %q, want it to contain %q", tc.word, got, tc.want)
			}
		})
	}
}

func TestDiagnostics(t *testing.T) {
	s := NewLSP()

	if d := s.diagnostics("x = 1\nlog(x)"); len(d) != 0 {
		t.Errorf("clean document has diagnostics: %+v", d)
	}

	d := s.diagnostics("x = 1\ny = nope + 1\n")
	if len(d) != 1 {
		t.Fatalf("diagnostics = %+v", d)
	}
	if d[0].Range.Start.Line != 1 || d[0].Range.End.Character != 12 {
		t.Errorf("range = %+v, want line 1 spanning 12 chars", d[0].Range)
	}
	if !strings.HasPrefix(d[0].Message, "UndefinedVariable") {
		t.Errorf("message = %q", d[0].Message)
	}
	if *d[0].Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v", *d[0].Severity)
	}
}
