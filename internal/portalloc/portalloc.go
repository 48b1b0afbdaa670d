// Package portalloc hands out unique, monotonically increasing ports for
// server and facilitator subprocesses, per spec.md §4.5.
package portalloc

import "sync"

const startPort = 4022

// unsafePorts are ports the fetch layer of some client runtimes refuse to
// connect to; the allocator skips past them rather than handing them out.
var unsafePorts = map[int]bool{
	4045: true,
}

// Allocator is a monotonic port counter. Ports are never reused, even after
// the process holding one exits. Safe for concurrent use.
type Allocator struct {
	mu   sync.Mutex
	next int
}

// New returns an Allocator starting at 4022.
func New() *Allocator {
	return &Allocator{next: startPort}
}

// Next returns the next unique port, skipping any port in the unsafe set.
func (a *Allocator) Next() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	for unsafePorts[a.next] {
		a.next++
	}
	port := a.next
	a.next++
	return port
}
