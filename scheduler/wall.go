package scheduler

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Wall is a Scheduler that ticks in real time at a fixed interval. The
// clock is injected so tests can drive it with clock.NewMock.
type Wall struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWall starts a tick loop on c with the given interval. Passing a nil
// clock uses the wall clock. Close must be called to stop the loop.
func NewWall(interval time.Duration, c clock.Clock) *Wall {
	if c == nil {
		c = clock.New()
	}
	w := &Wall{done: make(chan struct{})}

	ticker := c.Ticker(interval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-w.done:
				return
			case <-ticker.C:
				w.step()
			}
		}
	}()
	return w
}

func (w *Wall) OnTick(fn func()) (stop func()) {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.entries = append(w.entries, entry{id: id, fn: fn})
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.entries = removeEntry(w.entries, id)
			w.mu.Unlock()
		})
	}
}

func (w *Wall) step() {
	w.mu.Lock()
	snapshot := make([]entry, len(w.entries))
	copy(snapshot, w.entries)
	w.mu.Unlock()

	for _, e := range snapshot {
		e.fn()
	}
}

// Close stops the tick loop and waits for it to exit. Idempotent.
func (w *Wall) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	w.wg.Wait()
}
