package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"connectrpc.com/connect"

	"github.com/chazu/luiggi/bytecode"
	"github.com/chazu/luiggi/cache"
	"github.com/chazu/luiggi/compiler"
	"github.com/chazu/luiggi/stdlib"
	"github.com/chazu/luiggi/vm"
)

// Procedure paths of the compiler service.
const (
	ServiceName      = "luiggi.v1.CompilerService"
	CompileProcedure = "/" + ServiceName + "/Compile"
	CheckProcedure   = "/" + ServiceName + "/Check"
	RunProcedure     = "/" + ServiceName + "/Run"
)

// CompilerService implements the compiler service handlers.
type CompilerService struct {
	cfg  *config
	pool *workerPool
}

// newCompilerService creates a CompilerService.
func newCompilerService(cfg *config, pool *workerPool) *CompilerService {
	return &CompilerService{cfg: cfg, pool: pool}
}

// Compile compiles source and returns its listing and wire encoding.
func (s *CompilerService) Compile(
	ctx context.Context,
	req *connect.Request[CompileRequest],
) (*connect.Response[CompileResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	c, _, err := s.host(io.Discard)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	prog, cached, err := s.compile(c, source)
	if err != nil {
		return connect.NewResponse(&CompileResponse{
			Success:     false,
			Diagnostics: diagnose(err),
		}), nil
	}

	data, err := bytecode.Marshal(prog)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&CompileResponse{
		Success:     true,
		Disassembly: prog.Disassemble(),
		Program:     data,
		Cached:      cached,
	}), nil
}

// Check validates source without returning a program.
func (s *CompilerService) Check(
	ctx context.Context,
	req *connect.Request[CheckRequest],
) (*connect.Response[CheckResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	c, _, err := s.host(io.Discard)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if _, _, err := s.compile(c, source); err != nil {
		return connect.NewResponse(&CheckResponse{
			Valid:       false,
			Diagnostics: diagnose(err),
		}), nil
	}
	return connect.NewResponse(&CheckResponse{Valid: true}), nil
}

// Run compiles and executes source on the worker pool.
func (s *CompilerService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[RunResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	if req.Msg.MaxSteps < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("maxSteps must not be negative"))
	}

	result, err := s.pool.Do(ctx, func() any {
		return s.run(ctx, source, req.Msg.MaxSteps)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, connect.NewError(connect.CodeDeadlineExceeded, err)
		}
		return connect.NewResponse(&RunResponse{
			Success:     false,
			Diagnostics: diagnose(err),
		}), nil
	}

	return connect.NewResponse(result.(*RunResponse)), nil
}

// run compiles and executes source, returning a RunResponse.
// Must be called on a pool goroutine.
func (s *CompilerService) run(ctx context.Context, source string, maxSteps int) *RunResponse {
	var out bytes.Buffer
	steps := s.cfg.maxSteps
	if maxSteps > 0 && (steps == 0 || maxSteps < steps) {
		steps = maxSteps
	}

	c, m, err := s.host(&out, vm.WithStepLimit(steps))
	if err != nil {
		return &RunResponse{Success: false, Diagnostics: diagnose(err)}
	}
	prog, _, err := s.compile(c, source)
	if err != nil {
		return &RunResponse{Success: false, Diagnostics: diagnose(err)}
	}

	v, err := m.Run(ctx, prog)
	resp := &RunResponse{
		Output: out.String(),
		Steps:  m.Steps(),
	}
	if err != nil {
		resp.Diagnostics = diagnose(err)
		return resp
	}
	resp.Success = true
	resp.Result = v.Repr()
	return resp
}

// host builds a compiler and a machine sharing the standard natives, with
// log output going to out.
func (s *CompilerService) host(out io.Writer, opts ...vm.Option) (*compiler.Compiler, *vm.Machine, error) {
	r := stdlib.New(out)
	for _, extend := range s.cfg.natives {
		extend(r)
	}

	opts = append([]vm.Option{vm.WithDepthLimit(s.cfg.maxDepth)}, opts...)
	c := compiler.New()
	m := vm.New(opts...)
	if err := r.Install(c, m); err != nil {
		return nil, nil, err
	}
	return c, m, nil
}

// compile compiles source, going through the cache when one is configured.
func (s *CompilerService) compile(c *compiler.Compiler, source string) (*bytecode.Program, bool, error) {
	if s.cfg.cache == nil {
		prog, err := c.CompileSource(source)
		return prog, false, err
	}

	sigs := c.Signatures()
	prog, err := s.cfg.cache.Get(source, sigs)
	if err == nil {
		return prog, true, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warningf("cache lookup: %v", err)
	}

	prog, err = c.CompileSource(source)
	if err != nil {
		return nil, false, err
	}
	if err := s.cfg.cache.Put(source, sigs, prog); err != nil {
		log.Warningf("cache store: %v", err)
	}
	return prog, false, nil
}

// diagnose converts a compile or runtime error into diagnostics.
func diagnose(err error) []Diagnostic {
	d := Diagnostic{Severity: "error", Message: err.Error()}

	var ce *compiler.Error
	var re *vm.RuntimeError
	switch {
	case errors.As(err, &ce):
		d.Line = ce.Line
		d.Kind = ce.Kind.String()
		d.Message = ce.Message
	case errors.As(err, &re):
		d.Line = re.Line
	}
	return []Diagnostic{d}
}
