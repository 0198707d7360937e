// Package cell implements an observable single-slot value. Reads and
// writes are synchronous; change notifications ride an internal signal
// and so arrive one scheduler tick later, in write order.
package cell

import (
	"sync"

	"github.com/solumlabs/sigbag/scheduler"
	"github.com/solumlabs/sigbag/signal"
)

// Change carries one observed transition of a Value.
type Change[T any] struct {
	Old T
	New T
}

// Value holds a current value of type T and notifies observers when it
// changes. Writing an equal value is a no-op and notifies nobody.
type Value[T comparable] struct {
	mu        sync.Mutex
	current   T
	destroyed bool

	changed *signal.Signal[Change[T]]
}

func New[T comparable](sched scheduler.Scheduler, initial T, opts ...signal.Option) *Value[T] {
	return &Value[T]{
		current: initial,
		changed: signal.New[Change[T]](sched, opts...),
	}
}

// Get returns the current value. It keeps reading the last value even
// after Destroy.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set stores next and fires a Change to observers, unless next equals
// the current value.
func (v *Value[T]) Set(next T) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return signal.ErrDestroyed
	}
	if v.current == next {
		return nil
	}
	old := v.current
	v.current = next
	// Firing under the lock keeps the notification order identical to
	// the write order when writers race.
	return v.changed.Fire(Change[T]{Old: old, New: next})
}

// Observe registers fn to receive (old, new) pairs for every change. The
// returned subscription carries the signal package's delivery semantics:
// asynchronous, FIFO, snapshot fan-out.
func (v *Value[T]) Observe(fn func(old, new T) error) (*signal.Subscription[Change[T]], error) {
	if fn == nil {
		return nil, signal.ErrNilCallback
	}
	return v.changed.Subscribe(func(c Change[T]) error {
		return fn(c.Old, c.New)
	})
}

// Destroy tears down the change signal, disconnecting all observers.
// Later Sets fail with signal.ErrDestroyed; Destroy is idempotent.
func (v *Value[T]) Destroy() error {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return nil
	}
	v.destroyed = true
	v.mu.Unlock()

	return v.changed.Destroy()
}
