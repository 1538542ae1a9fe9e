// Package server exposes the Luiggi compiler over the network: a Connect
// service for compiling and running scripts, and a language server for
// editors.
package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/luiggi/cache"
	"github.com/chazu/luiggi/stdlib"
	"github.com/chazu/luiggi/vm"
)

var log = commonlog.GetLogger("luiggi.server")

// Server serves the compiler service over Connect (HTTP/JSON).
type Server struct {
	pool *workerPool
	mux  *http.ServeMux
}

// Option configures a Server.
type Option func(*config)

type config struct {
	workers  int
	maxSteps int
	maxDepth int
	cache    *cache.Cache
	natives  []func(*stdlib.Registry)
}

// WithWorkers sets how many programs may run at once.
// Defaults to the number of CPUs.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithStepLimit bounds the instructions each Run may execute.
func WithStepLimit(n int) Option {
	return func(c *config) { c.maxSteps = n }
}

// WithDepthLimit bounds the call depth of each Run.
func WithDepthLimit(n int) Option {
	return func(c *config) { c.maxDepth = n }
}

// WithCache stores compiled programs in c. The caller keeps ownership.
func WithCache(c *cache.Cache) Option {
	return func(cfg *config) { cfg.cache = c }
}

// WithNatives registers extra natives next to the standard ones on every
// request.
func WithNatives(extend func(*stdlib.Registry)) Option {
	return func(c *config) { c.natives = append(c.natives, extend) }
}

// New creates a Server. It is an http.Handler.
func New(opts ...Option) *Server {
	cfg := &config{
		workers:  runtime.NumCPU(),
		maxSteps: 10_000_000,
		maxDepth: vm.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		pool: newWorkerPool(cfg.workers),
		mux:  http.NewServeMux(),
	}

	svc := newCompilerService(cfg, s.pool)
	codec := connect.WithCodec(jsonCodec{})
	s.mux.Handle(CompileProcedure, connect.NewUnaryHandler(CompileProcedure, svc.Compile, codec))
	s.mux.Handle(CheckProcedure, connect.NewUnaryHandler(CheckProcedure, svc.Check, codec))
	s.mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, svc.Run, codec))

	return s
}

// ServeHTTP dispatches to the service handlers.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	fmt.Printf("Luiggi compiler service listening on %s\n", addr)
	fmt.Printf("  Connect (HTTP/JSON): http://%s%s\n", addr, CompileProcedure)
	log.Infof("listening on %s", addr)
	return http.ListenAndServe(addr, s)
}

// Stop shuts down the worker pool.
func (s *Server) Stop() {
	s.pool.Stop()
}

// Client calls a remote compiler service.
type Client struct {
	compile *connect.Client[CompileRequest, CompileResponse]
	check   *connect.Client[CheckRequest, CheckResponse]
	run     *connect.Client[RunRequest, RunResponse]
}

// NewClient creates a client for the service at baseURL, for example
// "http://localhost:4870".
func NewClient(baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	hc := http.DefaultClient
	return &Client{
		compile: connect.NewClient[CompileRequest, CompileResponse](hc, baseURL+CompileProcedure, opts...),
		check:   connect.NewClient[CheckRequest, CheckResponse](hc, baseURL+CheckProcedure, opts...),
		run:     connect.NewClient[RunRequest, RunResponse](hc, baseURL+RunProcedure, opts...),
	}
}

// Compile calls CompilerService.Compile.
func (c *Client) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	resp, err := c.compile.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Check calls CompilerService.Check.
func (c *Client) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, err := c.check.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Run calls CompilerService.Run.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	resp, err := c.run.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
