// Package signal implements an asynchronous, FIFO, multi-subscriber
// event channel.
//
// A Signal never delivers synchronously from Fire. Payloads queue up and
// the signal drains exactly one of them per scheduler tick, fanning it
// out to a snapshot of the subscribers connected at drain time. The one
// tick of latency is the point: callers cannot observe a half-updated
// subscriber set, and a subscriber added or removed between Fire and the
// drain sees exactly the connected set of the round that delivers to it.
package signal

import (
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/solumlabs/sigbag/scheduler"
)

var (
	// ErrDestroyed is returned by operations on a destroyed Signal.
	ErrDestroyed = errors.New("signal: destroyed")
	// ErrNilCallback is returned by Subscribe when given a nil callback.
	ErrNilCallback = errors.New("signal: nil callback")
)

// Signal is a single-producer, multi-subscriber event channel carrying
// payloads of type T.
type Signal[T any] struct {
	mu        sync.Mutex
	sched     scheduler.Scheduler
	subs      mapset.Set[*Subscription[T]]
	pending   []T
	stopTick  func()
	dropped   uint64
	destroyed bool

	onError OnErrorFunc
}

// New creates an empty signal driven by sched. The drain loop is started
// lazily on the first subscriber, so idle signals cost the scheduler
// nothing.
func New[T any](sched scheduler.Scheduler, opts ...Option) *Signal[T] {
	o := resolveOptions(opts)
	return &Signal[T]{
		sched:   sched,
		subs:    mapset.NewThreadUnsafeSet[*Subscription[T]](),
		onError: o.onError,
	}
}

// Subscribe registers fn and returns its live subscription. fn runs once
// per drained payload; returning an error (or panicking) routes the
// failure to the signal's error handler without affecting sibling
// subscribers.
func (s *Signal[T]) Subscribe(fn func(T) error) (*Subscription[T], error) {
	if fn == nil {
		return nil, ErrNilCallback
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil, ErrDestroyed
	}
	sub := &Subscription[T]{signal: s, fn: fn}
	s.subs.Add(sub)
	if s.stopTick == nil {
		s.stopTick = s.sched.OnTick(s.drain)
	}
	s.mu.Unlock()

	return sub, nil
}

// Fire enqueues v as one payload. It never blocks and never delivers
// synchronously. With no live subscribers the payload is dropped and
// counted instead of queued.
func (s *Signal[T]) Fire(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrDestroyed
	}
	if s.subs.Cardinality() == 0 {
		s.dropped++
		return nil
	}
	s.pending = append(s.pending, v)
	return nil
}

// Destroy disconnects every subscription, discards pending payloads and
// stops the drain loop. Later calls to Subscribe and Fire return
// ErrDestroyed; Destroy itself is idempotent.
func (s *Signal[T]) Destroy() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}
	s.destroyed = true
	s.pending = nil
	targets := s.subs.ToSlice()
	s.subs.Clear()
	stop := s.stopTick
	s.stopTick = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	for _, sub := range targets {
		sub.invalidate()
	}
	return nil
}

// Dropped reports how many payloads were discarded because no subscriber
// was connected when they were fired.
func (s *Signal[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// drain runs once per scheduler tick. It pops the oldest payload, if
// any, and fans it out to a snapshot of the connected set. Exactly one
// payload per tick keeps fire-order delivery strict: payload k reaches
// every recipient before payload k+1 reaches anyone.
func (s *Signal[T]) drain() {
	s.mu.Lock()
	if s.destroyed || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	v := s.pending[0]
	s.pending = s.pending[1:]
	targets := s.subs.ToSlice()
	s.mu.Unlock()

	// Callbacks run outside the lock so they may fire, subscribe or
	// disconnect without corrupting this round's snapshot.
	for _, sub := range targets {
		s.deliver(sub, v)
	}
}

func (s *Signal[T]) deliver(sub *Subscription[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			s.onError(sub, fmt.Errorf("subscriber panic: %v", r))
		}
	}()
	if err := sub.fn(v); err != nil {
		s.onError(sub, err)
	}
}

// removeSub drops sub from the live set. When the last subscriber
// leaves, the drain loop is unregistered and anything still queued is
// discarded; only a live subscriber can restart the loop.
func (s *Signal[T]) removeSub(sub *Subscription[T]) {
	s.mu.Lock()
	s.subs.Remove(sub)
	if s.subs.Cardinality() > 0 || s.stopTick == nil {
		s.mu.Unlock()
		return
	}
	stop := s.stopTick
	s.stopTick = nil
	s.pending = nil
	s.mu.Unlock()

	stop()
}
