// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhestring

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool errors
var (
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Task is an independent homomorphic sub-operation. Fan-out width is
// always derived from public metadata (allocated lengths, public
// counts), never from decrypted content.
type Task func() error

// Future represents a pending task result.
type Future struct {
	done chan struct{}
	err  error
	mu   sync.Mutex
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Wait blocks until the task completes.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

// WaitContext blocks until completion or context cancellation.
func (f *Future) WaitContext(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready returns true if the task has completed.
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// complete marks the future as done.
func (f *Future) complete(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return // Already completed
	default:
		f.err = err
		close(f.done)
	}
}

// Pool is a bounded worker pool executing homomorphic sub-operations.
// Every engine decomposes into a fan-out of independent per-cell or
// per-alignment tasks followed by a fan-in reduction; nested fan-out is
// expected, so a saturated pool runs submissions inline instead of
// queueing them, which keeps nested waits deadlock-free.
type Pool struct {
	numWorkers int
	queue      chan poolItem

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	// Statistics
	totalSubmitted atomic.Uint64
	totalCompleted atomic.Uint64
	totalInline    atomic.Uint64
}

type poolItem struct {
	task   Task
	future *Future
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	NumWorkers int // default: GOMAXPROCS
	QueueSize  int // default: 4 * NumWorkers
}

// DefaultPoolConfig returns sensible defaults.
func DefaultPoolConfig() PoolConfig {
	workers := runtime.GOMAXPROCS(0)
	return PoolConfig{
		NumWorkers: workers,
		QueueSize:  4 * workers,
	}
}

// NewPool creates a worker pool and starts its workers.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.GOMAXPROCS(0)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4 * cfg.NumWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		numWorkers: cfg.NumWorkers,
		queue:      make(chan poolItem, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < cfg.NumWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case item := <-p.queue:
			item.future.complete(item.task())
			p.totalCompleted.Add(1)
		case <-p.ctx.Done():
			return
		}
	}
}

// Submit queues a task, running it inline when the pool is saturated.
func (p *Pool) Submit(task Task) (*Future, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	p.totalSubmitted.Add(1)

	f := newFuture()
	select {
	case p.queue <- poolItem{task: task, future: f}:
	default:
		p.totalInline.Add(1)
		f.complete(task())
	}
	return f, nil
}

// Each runs f for every index in [0, n) across the pool and waits for
// all of them. The first error wins.
func (p *Pool) Each(n int, f func(i int) error) error {
	if n == 0 {
		return nil
	}
	if n == 1 {
		return f(0)
	}

	futures := make([]*Future, n)
	for i := 0; i < n; i++ {
		i := i
		fut, err := p.Submit(func() error { return f(i) })
		if err != nil {
			return err
		}
		futures[i] = fut
	}

	// Waiters steal queued tasks instead of blocking, so nested fan-out
	// from inside worker goroutines always makes progress.
	var firstErr error
	for _, fut := range futures {
		for !fut.Ready() {
			select {
			case item := <-p.queue:
				item.future.complete(item.task())
				p.totalCompleted.Add(1)
			case <-fut.done:
			}
		}
		if err := fut.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats returns submitted, completed and inline-executed task counts.
func (p *Pool) Stats() (submitted, completed, inline uint64) {
	return p.totalSubmitted.Load(), p.totalCompleted.Load(), p.totalInline.Load()
}

// NumWorkers returns the worker count.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the pool. Queued tasks that have not started are failed
// with ErrPoolClosed.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()

	for {
		select {
		case item := <-p.queue:
			item.future.complete(ErrPoolClosed)
		default:
			return
		}
	}
}
