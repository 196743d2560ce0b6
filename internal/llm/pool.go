package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// pool bounds the number of simultaneous in-flight model calls. It is the
// single chokepoint preventing upstream rate-limit violations regardless of
// how many pipeline runs execute concurrently. Acquisition order is
// whatever the semaphore provides; fairness is not guaranteed.
type pool struct {
	sem *semaphore.Weighted
}

func newPool(size int64) *pool {
	if size <= 0 {
		size = DefaultMaxConcurrent
	}
	return &pool{sem: semaphore.NewWeighted(size)}
}

// acquire blocks until a slot is free or the context is done.
func (p *pool) acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// tryAcquire grabs a slot without blocking. Used by tests.
func (p *pool) tryAcquire() bool {
	return p.sem.TryAcquire(1)
}

func (p *pool) release() {
	p.sem.Release(1)
}
