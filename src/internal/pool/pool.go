// FILE: logrelay/src/internal/pool/pool.go
package pool

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many jobs run at once. Callers beyond the bound wait for a
// free slot instead of being rejected, which propagates backpressure to them.
type Pool struct {
	size int64
	sem  *semaphore.Weighted

	active    atomic.Int64
	peak      atomic.Int64
	completed atomic.Uint64
	waiting   atomic.Int64
	cancelled atomic.Uint64
}

// New creates a pool with size slots
func New(size int) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}
	return &Pool{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}, nil
}

// Do runs fn once a slot is free. It returns ctx.Err() if ctx ends first,
// otherwise the error returned by fn.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	p.waiting.Add(1)
	err := p.sem.Acquire(ctx, 1)
	p.waiting.Add(-1)
	if err != nil {
		p.cancelled.Add(1)
		return err
	}
	defer p.sem.Release(1)

	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	defer func() {
		p.active.Add(-1)
		p.completed.Add(1)
	}()

	return fn()
}

// Size returns the number of slots
func (p *Pool) Size() int {
	return int(p.size)
}

// Active returns the number of jobs currently running
func (p *Pool) Active() int {
	return int(p.active.Load())
}

func (p *Pool) GetStats() map[string]any {
	return map[string]any{
		"size":      p.size,
		"active":    p.active.Load(),
		"peak":      p.peak.Load(),
		"waiting":   p.waiting.Load(),
		"completed": p.completed.Load(),
		"cancelled": p.cancelled.Load(),
	}
}
