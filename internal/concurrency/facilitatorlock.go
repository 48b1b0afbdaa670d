package concurrency

import (
	"context"
	"fmt"
	"sync"
)

// FacilitatorLock is a keyed mutex serializing EVM scenarios that route
// through the same facilitator, per spec.md §4.9. Each key gets its own
// single-token channel; Acquire consumes the token (blocking if another
// holder has it) and the returned release function puts it back.
type FacilitatorLock struct {
	mu     sync.Mutex
	tokens map[string]chan struct{}
}

// NewFacilitatorLock returns an empty FacilitatorLock.
func NewFacilitatorLock() *FacilitatorLock {
	return &FacilitatorLock{tokens: make(map[string]chan struct{})}
}

// Key builds the lock key for a facilitator name, per spec.md §4.9:
// "evm:${facilitatorName}".
func Key(facilitatorName string) string {
	return fmt.Sprintf("evm:%s", facilitatorName)
}

// Acquire blocks until no prior holder of key remains, then returns a
// release function. Subsequent Acquire calls for the same key will not
// return until release is called. Fairness across waiters is best-effort.
func (l *FacilitatorLock) Acquire(ctx context.Context, key string) (Release, error) {
	ch := l.tokenFor(key)

	select {
	case <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { ch <- struct{}{} })
	}, nil
}

func (l *FacilitatorLock) tokenFor(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.tokens[key]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		l.tokens[key] = ch
	}
	return ch
}
