package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// errPoolStopped is returned by Do once the pool has been stopped.
var errPoolStopped = errors.New("worker pool stopped")

// job represents a unit of work to be executed on a pool goroutine.
type job struct {
	fn   func() any
	done chan jobResult
}

// jobResult holds the return value from a job.
type jobResult struct {
	value any
	err   error
}

// workerPool bounds how many programs execute at once. Each request builds
// its own machine, so the workers share nothing but the queue.
type workerPool struct {
	jobs     chan job
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// newWorkerPool starts n worker goroutines.
func newWorkerPool(n int) *workerPool {
	if n < 1 {
		n = 1
	}
	p := &workerPool{
		jobs: make(chan job, 64),
		quit: make(chan struct{}),
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

// loop processes jobs until the pool is stopped.
func (p *workerPool) loop() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			j.done <- p.execute(j.fn)
		case <-p.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (p *workerPool) execute(fn func() any) (result jobResult) {
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("%v", r)
		}
	}()
	result.value = fn()
	return result
}

// Do submits fn and blocks until it completes or ctx is done. Returns the
// result and any error (including panics).
func (p *workerPool) Do(ctx context.Context, fn func() any) (any, error) {
	select {
	case <-p.quit:
		return nil, errPoolStopped
	default:
	}

	j := job{fn: fn, done: make(chan jobResult, 1)}
	select {
	case p.jobs <- j:
	case <-p.quit:
		return nil, errPoolStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-j.done:
		return r.value, r.err
	case <-p.quit:
		return nil, errPoolStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the worker goroutines and waits for them to exit.
func (p *workerPool) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	p.wg.Wait()
}
