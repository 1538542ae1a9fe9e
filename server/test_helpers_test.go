package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

// newTestService creates a CompilerService with its own worker pool.
func newTestService(t *testing.T, opts ...Option) *CompilerService {
	t.Helper()
	cfg := &config{workers: 2, maxSteps: 100_000, maxDepth: 64}
	for _, opt := range opts {
		opt(cfg)
	}
	pool := newWorkerPool(cfg.workers)
	t.Cleanup(pool.Stop)
	return newCompilerService(cfg, pool)
}

// newTestClient starts a Server behind httptest and returns a client for it.
func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	s := New(opts...)
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return NewClient(ts.URL)
}

// ---------------------------------------------------------------------------
// Request builder helpers.
// ---------------------------------------------------------------------------

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}
