// Package workerpool provides the bounded pool that runs connection handlers.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/sourcegraph/conc/pool"
)

// ErrPoolStopped is returned by Submit once Stop has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

// Pool runs submitted tasks on at most Capacity goroutines.
//
// Capacity bounds peak concurrency, not queue depth: there is no queue.
// Submit blocks the caller until a slot frees up, so a single accept loop
// submitting connections is naturally back-pressured by busy workers.
//
// Stop stops accepting work but does not wait for running tasks. Wait is
// available for callers (mostly tests) that do want to drain.
//
// The slot channel, not conc's WithMaxGoroutines, does the bounding: conc
// blocks in Go with no way to give up, while Submit must return when ctx
// ends or the pool stops. A panicking task is logged and its slot freed.
//
// Thread safety:
// All methods are safe for concurrent use.
type Pool struct {
	slots   chan struct{}
	workers *pool.Pool

	stopOnce sync.Once
	stopped  chan struct{}

	running atomic.Int32
}

// New creates a pool with the given capacity. Capacity must be > 0.
func New(capacity int) *Pool {
	if capacity <= 0 {
		panic("workerpool: capacity must be > 0")
	}

	return &Pool{
		slots:   make(chan struct{}, capacity),
		workers: pool.New(),
		stopped: make(chan struct{}),
	}
}

// Capacity returns the maximum number of concurrently running tasks.
func (p *Pool) Capacity() int {
	return cap(p.slots)
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int32 {
	return p.running.Load()
}

// Submit runs task on a pool goroutine, blocking until a slot is available.
//
// Returns ErrPoolStopped if the pool was stopped before a slot was acquired,
// or ctx.Err() if ctx ended first. The task is not run in either case.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	select {
	case p.slots <- struct{}{}:
	case <-p.stopped:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// select picks at random when both a slot and stopped are ready.
	select {
	case <-p.stopped:
		<-p.slots
		return ErrPoolStopped
	default:
	}

	p.running.Add(1)
	p.workers.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in worker pool task: %v", r)
			}
			p.running.Add(-1)
			<-p.slots
		}()
		task()
	})
	return nil
}

// Stop prevents further submissions. Running tasks are left to finish on their own.
// Safe to call multiple times.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopped)
	})
}

// Wait blocks until every submitted task has returned. Wait must not be
// called concurrently with Submit, and the pool cannot be reused afterwards.
func (p *Pool) Wait() {
	p.workers.Wait()
}
