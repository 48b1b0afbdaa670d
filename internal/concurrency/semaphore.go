// Package concurrency provides the two synchronization primitives the
// orchestrator layers on top of its worker pool: a counting semaphore
// bounding combo-level parallelism (spec.md §4.8), and a keyed mutex
// serializing EVM scenarios per facilitator (spec.md §4.9).
package concurrency

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore is a counting semaphore with N permits. Waiters are served
// FIFO by the underlying golang.org/x/sync/semaphore implementation.
type Semaphore struct {
	sem *semaphore.Weighted
}

// NewSemaphore returns a Semaphore with n permits.
func NewSemaphore(n int) *Semaphore {
	return &Semaphore{sem: semaphore.NewWeighted(int64(n))}
}

// Release is returned by Acquire; calling it more than once is a no-op.
type Release func()

// Acquire blocks until a permit is available or ctx is cancelled, returning
// a release handle on success.
func (s *Semaphore) Acquire(ctx context.Context) (Release, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		s.sem.Release(1)
	}, nil
}
