// Package scheduler provides the tick sources that drive deferred
// delivery elsewhere in the module. A Scheduler stands in for whatever
// the host environment uses as its frame or update loop: signals drain
// one payload per tick, zones poll their querier once per tick.
package scheduler

// Scheduler delivers recurring ticks to registered callbacks.
type Scheduler interface {
	// OnTick registers fn to run once per tick. The returned stop
	// function unregisters it and is idempotent.
	OnTick(fn func()) (stop func())
}
