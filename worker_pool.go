package hookbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
)

// workerPool settles pending action results off the caller's path.
//
// Action dispatch returns as soon as every listener has been started. A
// listener that answered with a pending result is handed to this pool,
// which:
//   - Awaits the result so failures are still logged and counted
//   - Gives up once the listener context ends (listener timeout)
//   - Recovers panics raised while settling
//   - Drains queued results on shutdown
type workerPool[T any] struct {
	// Time abstraction for deterministic testing
	clock clockz.Clock

	// Channel for receiving pending results
	tasks chan settleTask[T]

	// Optional backpressure on a full queue
	backpressure *BackpressureConfig

	// Called with the outcome of every failed task
	report func(settleTask[T], error)

	// WaitGroup to track worker goroutines for graceful shutdown
	wg sync.WaitGroup

	mu sync.RWMutex

	// Tracks if the pool has been closed
	closed bool

	// Metrics pointer for atomic updates
	metrics *Metrics
}

// settleTask is one pending action result to await.
type settleTask[T any] struct {
	ctx      context.Context    // Detached from the caller, bounded by the listener timeout
	cancel   context.CancelFunc // Releases ctx once the result settled
	name     Key
	listener *Listener[T]
	data     T // Payload the listener received (for logging)
	result   Result[T]
}

// newWorkerPool creates and starts a worker pool with the specified configuration.
func newWorkerPool[T any](cfg config, metrics *Metrics, report func(settleTask[T], error)) *workerPool[T] {
	pool := &workerPool[T]{
		clock:        cfg.clock,
		tasks:        make(chan settleTask[T], cfg.queueSize),
		backpressure: cfg.backpressure,
		report:       report,
		metrics:      metrics,
	}

	for i := 0; i < cfg.workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// submit queues a pending result for settling.
//
// Returns ErrQueueFull if the queue has no room, after waiting up to the
// backpressure MaxWait when configured.
func (p *workerPool[T]) submit(task settleTask[T]) error {
	// Read lock keeps close() from closing the channel mid-send
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrServiceClosed
	}

	select {
	case p.tasks <- task:
		atomic.AddInt64(&p.metrics.QueueDepth, 1)
		return nil
	default:
	}

	if p.backpressure != nil && p.backpressure.MaxWait > 0 {
		select {
		case p.tasks <- task:
			atomic.AddInt64(&p.metrics.QueueDepth, 1)
			return nil
		case <-p.clock.After(p.backpressure.MaxWait):
		case <-task.ctx.Done():
			atomic.AddInt64(&p.metrics.PendingExpired, 1)
			return task.ctx.Err()
		}
	}

	atomic.AddInt64(&p.metrics.PendingRejected, 1)
	return ErrQueueFull
}

// close shuts down the worker pool gracefully.
//
// This method:
//  1. Marks the pool as closed to prevent new submissions
//  2. Closes the task channel
//  3. Waits for all workers to settle what was already queued
func (p *workerPool[T]) close() {
	p.mu.Lock()
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the main loop for worker goroutines.
func (p *workerPool[T]) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		atomic.AddInt64(&p.metrics.QueueDepth, -1)

		err := p.settleSafely(task)
		switch {
		case err == nil:
			atomic.AddInt64(&p.metrics.PendingSettled, 1)
			continue
		case errors.Is(err, context.DeadlineExceeded):
			atomic.AddInt64(&p.metrics.PendingExpired, 1)
		default:
			atomic.AddInt64(&p.metrics.PendingFailed, 1)
		}
		p.report(task, err)
	}
}

// settleSafely awaits a pending result with panic recovery.
func (p *workerPool[T]) settleSafely(task settleTask[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrListenerPanicked, r)
		}
	}()

	if task.cancel != nil {
		defer task.cancel()
	}

	_, err = task.result.Await(task.ctx)
	return err
}
