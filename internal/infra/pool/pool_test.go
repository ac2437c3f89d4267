package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/you-humble/filedrive/internal/domain"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	p := New("test", 2, 4)
	p.Start(context.Background())

	var ran atomic.Int32
	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		if err := p.Submit(func(ctx context.Context) {
			defer wg.Done()
			ran.Add(1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	if got := ran.Load(); got != 6 {
		t.Fatalf("ran %d jobs, want 6", got)
	}

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestPoolRejectsWhenSaturated(t *testing.T) {
	p := New("test", 1, 1)
	p.Start(context.Background())
	defer p.Stop(context.Background())

	release := make(chan struct{})
	running := make(chan struct{})

	// occupy the single worker
	if err := p.Submit(func(ctx context.Context) {
		close(running)
		<-release
	}); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	<-running

	// fill the queue
	if err := p.Submit(func(ctx context.Context) {}); err != nil {
		t.Fatalf("Submit queued: %v", err)
	}

	err := p.Submit(func(ctx context.Context) {})
	if !errors.Is(err, domain.ErrPoolSaturated) {
		t.Fatalf("Submit over capacity = %v, want ErrPoolSaturated", err)
	}

	close(release)
}

func TestPoolStopDrainsQueuedJobs(t *testing.T) {
	p := New("test", 1, 8)
	p.Start(context.Background())

	var ran atomic.Int32
	for range 5 {
		if err := p.Submit(func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := ran.Load(); got != 5 {
		t.Fatalf("drained %d jobs, want 5", got)
	}
}

func TestPoolRejectsAfterStop(t *testing.T) {
	p := New("test", 1, 1)
	p.Start(context.Background())
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if err := p.Submit(func(ctx context.Context) {}); !errors.Is(err, domain.ErrPoolSaturated) {
		t.Fatalf("Submit after Stop = %v, want ErrPoolSaturated", err)
	}
}

func TestPoolStopAbandonsOnExpiredContext(t *testing.T) {
	p := New("test", 1, 0)
	p.Start(context.Background())

	started := make(chan struct{})
	if err := p.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop = %v, want DeadlineExceeded", err)
	}
}
