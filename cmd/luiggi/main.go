// Luiggi CLI - compiles and runs Luiggi scripts
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/luiggi/bytecode"
	"github.com/chazu/luiggi/cache"
	"github.com/chazu/luiggi/compiler"
	"github.com/chazu/luiggi/manifest"
	"github.com/chazu/luiggi/server"
	"github.com/chazu/luiggi/stdlib"
	"github.com/chazu/luiggi/vm"
)

var log = commonlog.GetLogger("luiggi.cli")

// options collects everything the command line and the manifest decide.
type options struct {
	disasm      bool
	output      string
	compileOnly bool
	cachePath   string
	trace       bool
	maxSteps    int
	maxDepth    int
}

func main() {
	os.Exit(run())
}

func run() int {
	disasm := flag.Bool("d", false, "Print the disassembled program")
	output := flag.String("o", "", "Write the compiled program to `file`")
	compileOnly := flag.Bool("c", false, "Compile only, do not run")
	cachePath := flag.String("cache", "", "Compile cache database `path`")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	serveMode := flag.Bool("serve", false, "Start the compiler service (Connect HTTP/JSON)")
	servePort := flag.Int("port", 4870, "Compiler service port (used with -serve)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	verbosity := flag.Int("v", -1, "Log verbosity (0 quiet, 1 info, 2 debug)")
	trace := flag.Bool("trace", false, "Trace every executed instruction to stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: luiggi [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a Luiggi script, or the entry of the nearest %s.\n\n", manifest.FileName)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  luiggi hello.lg              # Run a script\n")
		fmt.Fprintf(os.Stderr, "  luiggi -d -c hello.lg        # Show bytecode without running\n")
		fmt.Fprintf(os.Stderr, "  luiggi -o hello.lgc hello.lg # Save the compiled program\n")
		fmt.Fprintf(os.Stderr, "  luiggi hello.lgc             # Run a compiled program\n")
		fmt.Fprintf(os.Stderr, "  luiggi -i                    # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  luiggi -serve -port 8080     # Serve the compiler on :8080\n")
	}
	flag.Parse()

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Flags win over the manifest.
	opts := options{
		disasm:      *disasm,
		output:      *output,
		compileOnly: *compileOnly,
		cachePath:   *cachePath,
		trace:       *trace,
		maxDepth:    vm.DefaultMaxDepth,
	}
	level := *verbosity
	var logPath *string
	if m != nil {
		opts.disasm = opts.disasm || m.Build.Disasm
		if opts.cachePath == "" {
			opts.cachePath = m.CachePath()
		}
		opts.maxSteps = m.Run.MaxSteps
		if m.Run.MaxDepth > 0 {
			opts.maxDepth = m.Run.MaxDepth
		}
		if level < 0 {
			level = m.Log.Verbosity
		}
		if p := m.LogPath(); p != "" {
			logPath = &p
		}
	}
	if level < 0 {
		level = 0
	}
	commonlog.Configure(level, logPath)

	if *lspMode {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
			return 1
		}
		return 0
	}

	if *serveMode {
		return serve(*servePort, opts)
	}

	script := flag.Arg(0)
	if script == "" && m != nil && !*interactive {
		script = m.EntryPath()
		if opts.output == "" && opts.compileOnly {
			opts.output = m.OutputPath()
		}
	}

	if *interactive || script == "" {
		return runREPL(opts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := runScript(ctx, script, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// serve runs the compiler service until it fails.
func serve(port int, opts options) int {
	srvOpts := []server.Option{
		server.WithStepLimit(opts.maxSteps),
		server.WithDepthLimit(opts.maxDepth),
	}
	if opts.cachePath != "" {
		c, err := cache.Open(opts.cachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer c.Close()
		srvOpts = append(srvOpts, server.WithCache(c))
	}

	srv := server.New(srvOpts...)
	defer srv.Stop()
	if err := srv.ListenAndServe(fmt.Sprintf(":%d", port)); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

// newHost wires the standard natives into a fresh compiler and machine.
func newHost(opts options) (*stdlib.Registry, *compiler.Compiler, *vm.Machine, error) {
	vmOpts := []vm.Option{vm.WithStepLimit(opts.maxSteps), vm.WithDepthLimit(opts.maxDepth)}
	if opts.trace {
		vmOpts = append(vmOpts, vm.WithTrace(os.Stderr))
	}
	reg := stdlib.New(os.Stdout)
	c := compiler.New()
	m := vm.New(vmOpts...)
	if err := reg.Install(c, m); err != nil {
		return nil, nil, nil, err
	}
	return reg, c, m, nil
}

// runScript compiles (or loads) and runs one script.
func runScript(ctx context.Context, path string, opts options) error {
	reg, c, m, err := newHost(opts)
	if err != nil {
		return err
	}

	var prog *bytecode.Program
	if filepath.Ext(path) == ".lgc" {
		prog, err = loadCompiled(path, reg)
	} else {
		prog, err = compileFile(path, c, opts.cachePath)
	}
	if err != nil {
		return err
	}

	if opts.disasm {
		fmt.Print(prog.Disassemble())
	}
	if opts.output != "" {
		if err := writeCompiled(opts.output, prog); err != nil {
			return err
		}
	}
	if opts.compileOnly {
		return nil
	}

	_, err = m.Run(ctx, prog)
	return err
}

// compileFile compiles a source file, going through the cache at cachePath
// when it is set.
func compileFile(path string, c *compiler.Compiler, cachePath string) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	source := string(data)

	if cachePath == "" {
		return compileSource(path, c, source)
	}

	store, err := cache.Open(cachePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	sigs := c.Signatures()
	prog, err := store.Get(source, sigs)
	if err == nil {
		log.Infof("%s: using cached program", path)
		return prog, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warningf("cache lookup: %v", err)
	}

	prog, err = compileSource(path, c, source)
	if err != nil {
		return nil, err
	}
	if err := store.Put(source, sigs, prog); err != nil {
		log.Warningf("cache store: %v", err)
	}
	return prog, nil
}

func compileSource(path string, c *compiler.Compiler, source string) (*bytecode.Program, error) {
	prog, err := c.CompileSource(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// loadCompiled reads a program written by -o and checks it against the
// natives this host provides.
func loadCompiled(path string, reg *stdlib.Registry) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	arities, err := reg.Arities()
	if err != nil {
		return nil, err
	}
	if err := bytecode.Validate(prog, arities); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

func writeCompiled(path string, prog *bytecode.Program) error {
	data, err := bytecode.Marshal(prog)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	log.Infof("wrote %s (%d bytes)", path, len(data))
	return nil
}
