// Package observable provides a small synchronous publish/subscribe value
// container used by the storefront state stores.
package observable

import "sync"

// Value holds a current value and notifies listeners on every change.
//
// Listeners run synchronously on the goroutine that committed the change, in
// registration order, before Set/Update returns. A listener must not mutate
// the Value that is notifying it.
type Value[T any] struct {
	// notify serialises fan-out so listeners observe values in commit order.
	notify sync.Mutex

	mu        sync.Mutex
	current   T
	version   uint64
	nextID    uint64
	listeners []listener[T]
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// New constructs a Value seeded with initial. Seeding does not count as a publish.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial}
}

// Get returns the most recently committed value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Version reports how many times the value has been published.
func (v *Value[T]) Version() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.version
}

// Set stores next and publishes it to every listener.
func (v *Value[T]) Set(next T) {
	v.Update(func(T) (T, bool) { return next, true })
}

// Update applies fn to the current value while holding the container lock.
// When fn reports no change nothing is published and Update returns false.
func (v *Value[T]) Update(fn func(current T) (T, bool)) bool {
	v.notify.Lock()
	defer v.notify.Unlock()

	v.mu.Lock()
	next, changed := fn(v.current)
	if !changed {
		v.mu.Unlock()
		return false
	}
	v.current = next
	v.version++
	listeners := make([]listener[T], len(v.listeners))
	copy(listeners, v.listeners)
	v.mu.Unlock()

	for _, l := range listeners {
		l.fn(next)
	}
	return true
}

// Subscribe registers fn and immediately delivers the current value to it.
// The returned cancel func removes the listener; it is safe to call more than once.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	v.notify.Lock()
	defer v.notify.Unlock()

	v.mu.Lock()
	v.nextID++
	id := v.nextID
	v.listeners = append(v.listeners, listener[T]{id: id, fn: fn})
	current := v.current
	v.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() { v.unsubscribe(id) })
	}
}

// Listeners returns the number of registered listeners.
func (v *Value[T]) Listeners() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.listeners)
}

func (v *Value[T]) unsubscribe(id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.listeners[:0:0]
	for _, l := range v.listeners {
		if l.id != id {
			kept = append(kept, l)
		}
	}
	v.listeners = kept
}
