package signal

import (
	"sync"
	"sync/atomic"
)

// Subscription is a live registration of one callback against one
// Signal. The back-reference to the signal is a lookup relation only: a
// subscription holds none of the signal's resources, and a destroyed
// signal invalidates all of its outstanding subscriptions in one pass.
type Subscription[T any] struct {
	signal *Signal[T]
	fn     func(T) error

	disconnectOnce sync.Once
	disconnected   atomic.Bool
}

// Connected reports whether the subscription is still live. It reads
// false forever after Disconnect or the owning signal's Destroy.
func (sub *Subscription[T]) Connected() bool {
	return !sub.disconnected.Load()
}

// Disconnect removes the subscription from the signal's live set. It is
// idempotent and takes effect for all future drain rounds; a round
// already fanning out is not retracted.
func (sub *Subscription[T]) Disconnect() {
	sub.disconnectOnce.Do(func() {
		sub.disconnected.Store(true)
		sub.signal.removeSub(sub)
	})
}

// invalidate flips the connected flag without touching the signal, which
// is tearing itself down.
func (sub *Subscription[T]) invalidate() {
	sub.disconnectOnce.Do(func() {
		sub.disconnected.Store(true)
	})
}
