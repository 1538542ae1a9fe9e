package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/luiggi/compiler"
	"github.com/chazu/luiggi/stdlib"
	"github.com/chazu/luiggi/vm"
)

func defaultOptions() options {
	return options{maxSteps: 100_000, maxDepth: vm.DefaultMaxDepth}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSessionKeepsState(t *testing.T) {
	var out bytes.Buffer
	s, err := newSession(&out, defaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	entries := []struct {
		src  string
		want string
	}{
		{"x = 20", "null"},
		{"func twice(n)\n  return n * 2\nend", "null"},
		{"return twice(x) + 2", "42"},
		{"x = x + 1\nlog(x)", "null"},
		{"return x", "21"},
	}
	for _, e := range entries {
		v, err := s.eval(ctx, e.src)
		if err != nil {
			t.Fatalf("eval %q: %v", e.src, err)
		}
		if v.Repr() != e.want {
			t.Errorf("eval %q = %s, want %s", e.src, v.Repr(), e.want)
		}
	}
	if out.String() != "21\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestSessionCompileErrorKeepsPrelude(t *testing.T) {
	s, err := newSession(&bytes.Buffer{}, defaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := s.eval(ctx, "a = 1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.eval(ctx, "return nope"); !compiler.IsKind(err, compiler.UndefinedVariable) {
		t.Fatalf("err = %v, want UndefinedVariable", err)
	}
	if v, err := s.eval(ctx, "return a"); err != nil || v.AsNumber() != 1 {
		t.Errorf("return a = %v, %v", v, err)
	}
}

func TestSessionIncompleteInput(t *testing.T) {
	s, err := newSession(&bytes.Buffer{}, defaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	for _, src := range []string{"if true", "func f(a,", "log(1,"} {
		if _, err := s.compile(src); !compiler.IsIncomplete(err) {
			t.Errorf("compile %q: err = %v, want incomplete", src, err)
		}
	}
	if _, err := s.compile("x = )"); compiler.IsIncomplete(err) {
		t.Error("x = ) reported as incomplete")
	}
}

func TestCompiledProgramRoundTrip(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "sum.lg", "total = 0\ni = 0\nwhile i < 4\n  i = i + 1\n  total = total + i\nend\nreturn total\n")
	out := filepath.Join(dir, "build", "sum.lgc")

	opts := defaultOptions()
	opts.output = out
	opts.compileOnly = true
	if err := runScript(context.Background(), script, opts); err != nil {
		t.Fatalf("compile: %v", err)
	}

	prog, err := loadCompiled(out, stdlib.New(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("loadCompiled: %v", err)
	}
	v, err := vm.New().Run(context.Background(), prog)
	if err != nil {
		t.Fatal(err)
	}
	if v.AsNumber() != 10 {
		t.Errorf("result = %v, want 10", v)
	}
}

func TestLoadCompiledRejectsGarbage(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.lgc", "not a program")
	if _, err := loadCompiled(path, stdlib.New(&bytes.Buffer{})); err == nil {
		t.Error("expected error for garbage program")
	}
}

func TestCompileFileWithCache(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "hello.lg", "log(\"hi\")\n")
	cachePath := filepath.Join(dir, "cache.db")

	for i := 0; i < 2; i++ {
		_, c, _, err := newHost(defaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		prog, err := compileFile(script, c, cachePath)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !strings.Contains(prog.Disassemble(), "call") {
			t.Errorf("run %d: unexpected program:\n%s", i, prog.Disassemble())
		}
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Errorf("cache not created: %v", err)
	}
}

func TestCompileFileReportsPath(t *testing.T) {
	script := writeFile(t, t.TempDir(), "broken.lg", "return (")
	_, c, _, err := newHost(defaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	_, err = compileFile(script, c, "")
	if err == nil || !strings.Contains(err.Error(), "broken.lg") {
		t.Errorf("err = %v, want it to name the file", err)
	}
}

func TestHandleREPLCommand(t *testing.T) {
	s, err := newSession(&bytes.Buffer{}, defaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if handleREPLCommand(s, ":help") {
		t.Error(":help should not quit")
	}
	if !handleREPLCommand(s, ":quit") {
		t.Error(":quit should quit")
	}
}
