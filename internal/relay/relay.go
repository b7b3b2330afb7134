// Package relay provides single-slot, latest-wins hand-off buffers between pipeline stages.
package relay

import (
	"sync"
	"sync/atomic"
)

// Relay is a single-slot mailbox connecting a producer stage to its consumers.
//
// Publish overwrites any value not yet taken, and Take removes the value it
// returns. A consumer therefore always sees the most recently published value
// and never an older one once a newer one exists.
type Relay[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	item    T
	full    bool
	closed  bool
	release func(T)
	drops   atomic.Uint64
}

// New creates an empty Relay. The release function, if non-nil, is called on
// every value the relay discards: values overwritten before being taken,
// values pending at Close, and values published after Close.
func New[T any](release func(T)) *Relay[T] {
	r := &Relay[T]{release: release}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Publish stores v in the slot, replacing any unconsumed value, and wakes a
// waiting consumer. It never blocks on consumers. Publish reports false if the
// relay is closed, in which case v has already been released.
func (r *Relay[T]) Publish(v T) bool {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		r.discard(v)
		return false
	}

	var (
		old     T
		dropped bool
	)
	if r.full {
		old, dropped = r.item, true
		r.drops.Add(1)
	}

	r.item = v
	r.full = true
	r.cond.Signal()
	r.mu.Unlock()

	if dropped {
		r.discard(old)
	}
	return true
}

// Take blocks until a value is available and removes it from the slot.
// It returns false once the relay is closed.
func (r *Relay[T]) Take() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for !r.full && !r.closed {
		r.cond.Wait()
	}

	if r.closed {
		var zero T
		return zero, false
	}

	return r.takeLocked(), true
}

// TryTake removes and returns the current value without blocking.
func (r *Relay[T]) TryTake() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full || r.closed {
		var zero T
		return zero, false
	}

	return r.takeLocked(), true
}

func (r *Relay[T]) takeLocked() T {
	v := r.item
	var zero T
	r.item = zero
	r.full = false
	return v
}

// Close releases any pending value and wakes every blocked Take.
// Calling Close more than once is a no-op.
func (r *Relay[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	r.closed = true
	pending, ok := r.item, r.full
	var zero T
	r.item = zero
	r.full = false
	r.cond.Broadcast()
	r.mu.Unlock()

	if ok {
		r.discard(pending)
	}
}

// Closed reports whether Close has been called.
func (r *Relay[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Drops returns how many published values were overwritten before a consumer took them.
func (r *Relay[T]) Drops() uint64 {
	return r.drops.Load()
}

func (r *Relay[T]) discard(v T) {
	if r.release != nil {
		r.release(v)
	}
}
