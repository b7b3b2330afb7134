package relay

import "sync"

// Fanout distributes every value taken from a source relay to a set of
// per-subscriber relays. Each subscriber receives its own copy, so one slow or
// disconnected subscriber never steals frames from another.
type Fanout[T any] struct {
	src     *Relay[T]
	clone   func(T) T
	release func(T)

	mu     sync.Mutex
	subs   map[string]*Relay[T]
	closed bool
}

// NewFanout creates a Fanout reading from src. clone produces the copy handed
// to each subscriber; release frees the original once it has been distributed
// and is also used as the release function of every subscriber relay.
func NewFanout[T any](src *Relay[T], clone func(T) T, release func(T)) *Fanout[T] {
	return &Fanout[T]{
		src:     src,
		clone:   clone,
		release: release,
		subs:    make(map[string]*Relay[T]),
	}
}

// Subscribe registers id and returns its private relay. Subscribing an id
// that is already registered replaces (and closes) the previous relay.
// After the Fanout has stopped, Subscribe returns an already closed relay.
func (f *Fanout[T]) Subscribe(id string) *Relay[T] {
	r := New(f.release)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		r.Close()
		return r
	}

	if old, ok := f.subs[id]; ok {
		old.Close()
	}
	f.subs[id] = r
	return r
}

// Unsubscribe removes id and closes its relay, waking a consumer blocked on it.
// Unknown ids are ignored.
func (f *Fanout[T]) Unsubscribe(id string) {
	f.mu.Lock()
	r, ok := f.subs[id]
	delete(f.subs, id)
	f.mu.Unlock()

	if ok {
		r.Close()
	}
}

// Subscribers returns the number of registered subscribers.
func (f *Fanout[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Run distributes values until the source relay is closed, then closes all
// subscriber relays.
func (f *Fanout[T]) Run() {
	for {
		v, ok := f.src.Take()
		if !ok {
			f.closeAll()
			return
		}

		f.mu.Lock()
		for _, r := range f.subs {
			r.Publish(f.clone(v))
		}
		f.mu.Unlock()

		if f.release != nil {
			f.release(v)
		}
	}
}

func (f *Fanout[T]) closeAll() {
	f.mu.Lock()
	subs := f.subs
	f.subs = make(map[string]*Relay[T])
	f.closed = true
	f.mu.Unlock()

	for _, r := range subs {
		r.Close()
	}
}
