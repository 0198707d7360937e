// Package bag implements a disposal container: an unordered collection
// of heterogeneous resources, each disposed at most once, either
// individually via Remove or all together via DisposeAll/Destroy.
//
// The dispose action for a resource is decided when it is added, by
// probing a fixed order of capability traits (see Add). A bag never owns
// the signals its subscriptions came from; it owns the subscriptions,
// timers, callbacks and nested bags created from them.
package bag

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/multierr"
)

var (
	// ErrDestroyed is returned by operations on a destroyed Bag.
	ErrDestroyed = errors.New("bag: destroyed")
	// ErrNoDisposeMethod is returned by Add when no dispose strategy
	// can be inferred for a resource and no override was given.
	ErrNoDisposeMethod = errors.New("bag: no dispose method")
	// ErrNotAttachable is returned by Attach for a nil host.
	ErrNotAttachable = errors.New("bag: host is not attachable")
)

// Disposer releases a resource that reports no failure.
type Disposer interface {
	Dispose()
}

// Disconnector detaches a live registration, e.g. a signal subscription.
type Disconnector interface {
	Disconnect()
}

// Destroyer tears down a component, possibly reporting failure. Signals,
// zones, value cells and bags themselves are Destroyers.
type Destroyer interface {
	Destroy() error
}

// Task is a schedulable unit of work that can be cancelled. Cancel
// errors are swallowed by the bag: a task that already finished is not a
// disposal failure.
type Task interface {
	Cancel() error
}

// Host emits a single teardown notification, e.g. a scene object about
// to be removed. cancel revokes the registration before it fires.
type Host interface {
	NotifyTeardown(fn func()) (cancel func(), err error)
}

type entry struct {
	resource any
	dispose  func() error
}

// Bag collects disposable resources.
type Bag struct {
	mu        sync.Mutex
	entries   []entry
	detach    func()
	destroyed bool
}

func New() *Bag {
	return &Bag{}
}

// AddOption adjusts how Add binds a resource.
type AddOption func(*addOptions)

type addOptions struct {
	override func() error
}

// WithDispose overrides strategy inference and disposes the resource by
// calling fn.
func WithDispose(fn func() error) AddOption {
	return func(o *addOptions) {
		o.override = fn
	}
}

// Add registers resource with the bag and returns it unchanged, so a
// resource can be bound and assigned in one expression.
//
// The dispose strategy is probed in a fixed order: an explicit
// WithDispose override, then plain func() and func() error values
// (invoked), then Task (cancelled, errors swallowed), then the Destroyer,
// Disposer and Disconnector traits. A resource satisfying several traits
// binds to the first match; one satisfying none fails with
// ErrNoDisposeMethod.
func Add[T any](b *Bag, resource T, opts ...AddOption) (T, error) {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}

	action := o.override
	if action == nil {
		action = inferDispose(any(resource))
	}
	if action == nil {
		return resource, ErrNoDisposeMethod
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return resource, ErrDestroyed
	}
	b.entries = append(b.entries, entry{resource: any(resource), dispose: action})
	return resource, nil
}

func inferDispose(resource any) func() error {
	switch r := resource.(type) {
	case func():
		return func() error {
			r()
			return nil
		}
	case func() error:
		return r
	case Task:
		return func() error {
			_ = r.Cancel()
			return nil
		}
	case Destroyer:
		return r.Destroy
	case Disposer:
		return func() error {
			r.Dispose()
			return nil
		}
	case Disconnector:
		return func() error {
			r.Disconnect()
			return nil
		}
	}
	return nil
}

// Remove finds resource by identity among the current entries. If found,
// the entry is dropped from the bag before its dispose action runs, and
// the action's error (if any) is returned alongside true.
func (b *Bag) Remove(resource any) (bool, error) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return false, ErrDestroyed
	}
	idx := -1
	for i, e := range b.entries {
		if sameResource(e.resource, resource) {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return false, nil
	}
	target := b.entries[idx]
	b.entries = append(b.entries[:idx], b.entries[idx+1:]...)
	b.mu.Unlock()

	return true, target.dispose()
}

// DisposeAll disposes every entry and clears the bag. Ordering across
// entries is unspecified. Errors from individual dispose actions are
// aggregated and returned; one failing entry does not stop the rest.
func (b *Bag) DisposeAll() error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return ErrDestroyed
	}
	drained := b.entries
	b.entries = nil
	b.mu.Unlock()

	return disposeEntries(drained)
}

// Destroy disposes all remaining entries, cancels any Attach binding and
// marks the bag unusable. Add, Remove, DisposeAll and Attach fail with
// ErrDestroyed afterwards; Destroy itself is idempotent.
func (b *Bag) Destroy() error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil
	}
	b.destroyed = true
	drained := b.entries
	b.entries = nil
	detach := b.detach
	b.detach = nil
	b.mu.Unlock()

	if detach != nil {
		detach()
	}
	return disposeEntries(drained)
}

// Attach binds the bag's lifetime to host: when host signals teardown,
// the bag destroys itself. Only one attachment is active at a time;
// attaching again tears down the previous binding first.
func (b *Bag) Attach(host Host) error {
	if host == nil {
		return ErrNotAttachable
	}

	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return ErrDestroyed
	}
	prev := b.detach
	b.detach = nil
	b.mu.Unlock()

	if prev != nil {
		prev()
	}

	cancel, err := host.NotifyTeardown(func() {
		_ = b.Destroy()
	})
	if err != nil {
		return fmt.Errorf("bag: attach: %w", err)
	}

	b.mu.Lock()
	if b.destroyed {
		// Teardown raced the registration; drop the fresh binding.
		b.mu.Unlock()
		cancel()
		return ErrDestroyed
	}
	b.detach = cancel
	b.mu.Unlock()
	return nil
}

// Len reports the number of entries not yet disposed.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Entries are detached from the bag before any action runs, so a dispose
// action that reenters the bag (even Destroy) cannot double-dispose.
func disposeEntries(entries []entry) error {
	var err error
	for _, e := range entries {
		err = multierr.Append(err, e.dispose())
	}
	return err
}

// sameResource is identity, not equality: pointers, maps and slices
// match only themselves, comparable values held directly fall back to
// ==. Funcs match by code pointer, so two closures over the same
// function body alias each other; first match wins.
func sameResource(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}
	switch av.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice, reflect.Chan:
		return av.Pointer() == bv.Pointer()
	}
	if !av.Type().Comparable() {
		return false
	}
	return a == b
}
