// Package reactive provides an observable-value container: a Var holds
// a snapshot, supports atomic update-and-notify, and feeds derived Vars
// recomputed whenever an input changes.
package reactive

import (
	"reflect"
	"sync"
)

// Var wraps a value with atomic update and change notification.
// Updates are serialized by an update lock held across notification,
// so concurrent updates are linearized. The value itself sits behind a
// separate lock, which keeps Get callable from inside a listener.
type Var[T any] struct {
	updateMu sync.Mutex

	mu          sync.Mutex
	value       T
	subscribers []func(T)
}

// NewVar builds a Var holding initial.
func NewVar[T any](initial T) *Var[T] {
	return &Var[T]{value: initial}
}

// Get returns the current snapshot.
func (v *Var[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set replaces the value and notifies subscribers.
func (v *Var[T]) Set(value T) {
	v.Update(func(T) T { return value })
}

// Update applies f to the current value and notifies subscribers with
// the result.
func (v *Var[T]) Update(f func(T) T) {
	v.updateMu.Lock()
	defer v.updateMu.Unlock()

	v.mu.Lock()
	v.value = f(v.value)
	next := v.value
	subs := make([]func(T), len(v.subscribers))
	copy(subs, v.subscribers)
	v.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// setDistinct replaces the value only when it differs from the current
// one, suppressing redundant downstream settles.
func (v *Var[T]) setDistinct(value T) {
	v.updateMu.Lock()
	defer v.updateMu.Unlock()

	v.mu.Lock()
	if reflect.DeepEqual(v.value, value) {
		v.mu.Unlock()
		return
	}
	v.value = value
	subs := make([]func(T), len(v.subscribers))
	copy(subs, v.subscribers)
	v.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}

// Subscribe registers fn to run on every change. The listener also
// fires once immediately with the current value so derived state never
// starts stale.
func (v *Var[T]) Subscribe(fn func(T)) {
	v.mu.Lock()
	v.subscribers = append(v.subscribers, fn)
	current := v.value
	v.mu.Unlock()
	fn(current)
}

// Combine derives a Var from two inputs. The derived value is
// recomputed whenever either input changes; recomputations yielding a
// value equal to the previous one are suppressed.
func Combine[A, B, C any](a *Var[A], b *Var[B], f func(A, B) C) *Var[C] {
	derived := NewVar(f(a.Get(), b.Get()))
	a.Subscribe(func(av A) { derived.setDistinct(f(av, b.Get())) })
	b.Subscribe(func(bv B) { derived.setDistinct(f(a.Get(), bv)) })
	return derived
}
