// Package pool provides a bounded worker pool: a fixed number of workers
// draining a fixed-capacity queue. When the queue is full, Submit rejects
// instead of blocking or growing the backlog.
package pool

import (
	"context"
	"log/slog"
	"sync"

	"github.com/you-humble/filedrive/internal/domain"
)

type Job func(ctx context.Context)

type Pool struct {
	name    string
	workers int
	queue   chan Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func New(name string, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	return &Pool{
		name:    name,
		workers: workers,
		queue:   make(chan Job, queueSize),
	}
}

// Start launches the workers. The pool's lifetime is controlled by Stop, not
// by ctx cancellation: in-flight jobs are allowed to finish during shutdown.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.closed || p.ctx != nil {
		p.mu.Unlock()
		return
	}
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.mu.Unlock()

	p.wg.Add(p.workers)
	for range p.workers {
		go p.worker()
	}

	slog.Info("worker pool started",
		slog.String("pool", p.name),
		slog.Int("workers", p.workers),
		slog.Int("queue_capacity", cap(p.queue)),
	)
}

// Submit schedules a job without blocking. It returns ErrPoolSaturated when
// workers and queue are both exhausted, or when the pool is shutting down.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return domain.ErrPoolSaturated
	}

	select {
	case p.queue <- job:
		return nil
	default:
		return domain.ErrPoolSaturated
	}
}

// Stop rejects further submissions and drains queued and in-flight jobs.
// When ctx expires first, remaining jobs are abandoned: their contexts are
// canceled and Stop returns ctx.Err().
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		slog.Warn("worker pool abandoned remaining jobs", slog.String("pool", p.name))
		return ctx.Err()
	case <-done:
	}

	slog.Info("worker pool stopped", slog.String("pool", p.name))
	return nil
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			job(p.ctx)
		}
	}
}
