package scheduler

import "sync"

type entry struct {
	id uint64
	fn func()
}

// Manual is a Scheduler stepped explicitly by the caller. Each Step is
// one tick. It keeps tests deterministic: nothing runs until Step does.
type Manual struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) OnTick(fn func()) (stop func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.entries = append(m.entries, entry{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.entries = removeEntry(m.entries, id)
			m.mu.Unlock()
		})
	}
}

// Step runs every registered callback once, in registration order.
// Callbacks registered or stopped during a step take effect on the next
// one.
func (m *Manual) Step() {
	m.mu.Lock()
	snapshot := make([]entry, len(m.entries))
	copy(snapshot, m.entries)
	m.mu.Unlock()

	for _, e := range snapshot {
		e.fn()
	}
}

// Advance runs n steps.
func (m *Manual) Advance(n int) {
	for i := 0; i < n; i++ {
		m.Step()
	}
}

// Len reports how many callbacks are currently registered.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func removeEntry(entries []entry, id uint64) []entry {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}
