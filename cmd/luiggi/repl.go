package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/luiggi/bytecode"
	"github.com/chazu/luiggi/compiler"
	"github.com/chazu/luiggi/stdlib"
	"github.com/chazu/luiggi/vm"
)

const (
	historyFile = ".luiggi_history"
	promptMain  = ">> "
	promptCont  = ".. "
)

// session keeps the state of an interactive run: one machine whose globals
// persist, and the program so far, whose functions and variables every new
// entry can see.
type session struct {
	reg     *stdlib.Registry
	machine *vm.Machine
	prelude *bytecode.Program
}

func newSession(out io.Writer, opts options) (*session, error) {
	vmOpts := []vm.Option{vm.WithStepLimit(opts.maxSteps), vm.WithDepthLimit(opts.maxDepth)}
	if opts.trace {
		vmOpts = append(vmOpts, vm.WithTrace(os.Stderr))
	}
	s := &session{reg: stdlib.New(out), machine: vm.New(vmOpts...)}
	if err := s.reg.Install(nil, s.machine); err != nil {
		return nil, err
	}
	return s, nil
}

// compile compiles one entry against everything entered before.
func (s *session) compile(src string) (*bytecode.Program, error) {
	var copts []compiler.Option
	if s.prelude != nil {
		copts = append(copts, compiler.WithPrelude(s.prelude))
	}
	c := compiler.New(copts...)
	if err := s.reg.Install(c, nil); err != nil {
		return nil, err
	}
	return c.CompileSource(src)
}

// eval compiles and runs one entry. Functions and variables it declares
// stay visible only if it compiled.
func (s *session) eval(ctx context.Context, src string) (vm.Value, error) {
	prog, err := s.compile(src)
	if err != nil {
		return vm.Null, err
	}
	s.prelude = prog
	return s.machine.Run(ctx, prog)
}

func runREPL(opts options) int {
	fmt.Println("Luiggi REPL (type :quit to exit, :help for commands)")
	fmt.Println()

	s, err := newSession(os.Stdout, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		code, ok := readEntry(ln, s)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := handleREPLCommand(s, trimmed); quit {
				return 0
			}
			continue
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		v, err := s.eval(ctx, code)
		stop()
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if !v.IsNull() {
			fmt.Println(v.Repr())
		}
	}

	return 0
}

// readEntry reads lines until they form a complete entry: one that
// compiles, or fails for a reason more input cannot fix.
func readEntry(ln *liner.State, s *session) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := s.compile(src); compiler.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}

// handleREPLCommand handles REPL meta-commands. It reports whether the
// REPL should exit.
func handleREPLCommand(s *session, cmd string) bool {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Println("REPL Commands:")
		fmt.Println("  :help, :h, :?     Show this help")
		fmt.Println("  :disasm           Show the bytecode compiled so far")
		fmt.Println("  :natives          List native functions")
		fmt.Println("  :quit, :q         Exit REPL")
		fmt.Println()
		fmt.Println("A top-level return prints its value.")
	case ":disasm":
		if s.prelude == nil {
			fmt.Println("(nothing compiled yet)")
		} else {
			fmt.Print(s.prelude.Disassemble())
		}
	case ":natives":
		for _, e := range s.reg.Entries() {
			fmt.Printf("  %s\n", e.Signature)
		}
	case ":quit", ":q":
		return true
	default:
		fmt.Printf("Unknown command: %s (try :help)\n", cmd)
	}
	return false
}
