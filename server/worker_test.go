package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Do(t *testing.T) {
	p := newWorkerPool(2)
	defer p.Stop()

	v, err := p.Do(bg(), func() any { return 42 })
	if err != nil {
		t.Fatal(err)
	}
	if v.(int) != 42 {
		t.Errorf("value = %v, want 42", v)
	}
}

func TestWorkerPool_RecoversPanic(t *testing.T) {
	p := newWorkerPool(1)
	defer p.Stop()

	_, err := p.Do(bg(), func() any { panic("boom") })
	if err == nil || err.Error() != "boom" {
		t.Errorf("err = %v, want boom", err)
	}

	// The worker survives the panic.
	if _, err := p.Do(bg(), func() any { return nil }); err != nil {
		t.Errorf("after panic: %v", err)
	}
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	p := newWorkerPool(workers)
	defer p.Stop()

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Do(bg(), func() any {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if peak > workers {
		t.Errorf("peak concurrency = %d, want <= %d", peak, workers)
	}
}

func TestWorkerPool_ContextCancelled(t *testing.T) {
	p := newWorkerPool(1)
	defer p.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	go p.Do(bg(), func() any { close(started); <-release; return nil })
	defer close(release)
	<-started

	ctx, cancel := context.WithTimeout(bg(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Do(ctx, func() any { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestWorkerPool_Stopped(t *testing.T) {
	p := newWorkerPool(1)
	p.Stop()
	p.Stop()

	if _, err := p.Do(bg(), func() any { return nil }); !errors.Is(err, errPoolStopped) {
		t.Errorf("err = %v, want errPoolStopped", err)
	}
}
