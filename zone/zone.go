// Package zone implements a proximity detector over an injected spatial
// query service. Each scheduler tick the zone polls the querier once,
// diffs the reported membership against the previous poll and fires the
// difference through its Entered and Exited signals. The spatial engine
// itself stays outside this package; Querier is its only surface.
package zone

import (
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/multierr"

	"github.com/solumlabs/sigbag/scheduler"
	"github.com/solumlabs/sigbag/signal"
)

// ErrNilQuerier is returned by New when no querier is given.
var ErrNilQuerier = errors.New("zone: nil querier")

// Querier reports the members currently inside the zone. M is whatever
// identifies a member to the host: an entity id, a handle, a player key.
type Querier[M comparable] interface {
	Query() ([]M, error)
}

// QuerierFunc adapts a plain function to the Querier interface.
type QuerierFunc[M comparable] func() ([]M, error)

func (f QuerierFunc[M]) Query() ([]M, error) {
	return f()
}

// Zone polls a Querier once per tick and signals membership changes.
type Zone[M comparable] struct {
	mu        sync.Mutex
	querier   Querier[M]
	members   mapset.Set[M]
	stopTick  func()
	destroyed bool

	entered *signal.Signal[M]
	exited  *signal.Signal[M]
	onError signal.OnErrorFunc
}

// New starts polling q on sched. Query failures are reported to the
// error handler and the previous membership is kept until a poll
// succeeds.
func New[M comparable](sched scheduler.Scheduler, q Querier[M], opts ...Option) (*Zone[M], error) {
	if q == nil {
		return nil, ErrNilQuerier
	}
	o := resolveOptions(opts)
	z := &Zone[M]{
		querier: q,
		members: mapset.NewThreadUnsafeSet[M](),
		entered: signal.New[M](sched, o.signalOpts()...),
		exited:  signal.New[M](sched, o.signalOpts()...),
		onError: o.onError,
	}
	z.stopTick = sched.OnTick(z.poll)
	return z, nil
}

// Entered fires once per member that appears in the zone.
func (z *Zone[M]) Entered() *signal.Signal[M] {
	return z.entered
}

// Exited fires once per member that leaves the zone.
func (z *Zone[M]) Exited() *signal.Signal[M] {
	return z.exited
}

// Members returns a snapshot of the membership as of the last successful
// poll.
func (z *Zone[M]) Members() []M {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.members.ToSlice()
}

// Destroy stops polling and destroys both signals. Idempotent.
func (z *Zone[M]) Destroy() error {
	z.mu.Lock()
	if z.destroyed {
		z.mu.Unlock()
		return nil
	}
	z.destroyed = true
	stop := z.stopTick
	z.stopTick = nil
	z.mu.Unlock()

	if stop != nil {
		stop()
	}
	return multierr.Append(z.entered.Destroy(), z.exited.Destroy())
}

func (z *Zone[M]) poll() {
	z.mu.Lock()
	if z.destroyed {
		z.mu.Unlock()
		return
	}
	prev := z.members
	z.mu.Unlock()

	current, err := z.querier.Query()
	if err != nil {
		z.onError(z, fmt.Errorf("zone: query: %w", err))
		return
	}
	next := mapset.NewThreadUnsafeSet(current...)
	arrived := next.Difference(prev)
	departed := prev.Difference(next)

	z.mu.Lock()
	if z.destroyed {
		z.mu.Unlock()
		return
	}
	z.members = next
	z.mu.Unlock()

	for _, m := range arrived.ToSlice() {
		_ = z.entered.Fire(m)
	}
	for _, m := range departed.ToSlice() {
		_ = z.exited.Fire(m)
	}
}
