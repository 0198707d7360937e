package signal_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solumlabs/sigbag/scheduler"
	"github.com/solumlabs/sigbag/signal"
)

// should deliver fired payloads in fire order, one per round
func TestFIFODelivery(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	got := []int{}
	_, err := s.Subscribe(func(v int) error {
		got = append(got, v)
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Fire(1))
	assert.NoError(t, s.Fire(2))
	assert.NoError(t, s.Fire(3))
	assert.Empty(t, got)

	sched.Step()
	assert.Equal(t, []int{1}, got)
	sched.Step()
	assert.Equal(t, []int{1, 2}, got)
	sched.Step()
	assert.Equal(t, []int{1, 2, 3}, got)
	sched.Step()
	assert.Equal(t, []int{1, 2, 3}, got)
}

// should complete payload k's fan-out before payload k+1 reaches anyone
func TestFIFOAcrossSubscribers(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[string](sched)

	order := []string{}
	for _, name := range []string{"a", "b"} {
		name := name
		_, err := s.Subscribe(func(v string) error {
			order = append(order, name+":"+v)
			return nil
		})
		assert.NoError(t, err)
	}

	assert.NoError(t, s.Fire("x"))
	assert.NoError(t, s.Fire("y"))
	sched.Advance(2)

	assert.Len(t, order, 4)
	assert.ElementsMatch(t, []string{"a:x", "b:x"}, order[:2])
	assert.ElementsMatch(t, []string{"a:y", "b:y"}, order[2:])
}

// should not deliver a payload to a subscriber added after it was fired
func TestSnapshotSubscribeAfterFire(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	first := 0
	late := 0
	_, err := s.Subscribe(func(int) error {
		first++
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Fire(42))
	_, err = s.Subscribe(func(int) error {
		late++
		return nil
	})
	assert.NoError(t, err)

	sched.Step()
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, late)
}

// should not deliver a payload to a subscriber removed before the drain
func TestSnapshotUnsubscribeBeforeDrain(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	stayCalls := 0
	goneCalls := 0
	_, err := s.Subscribe(func(int) error {
		stayCalls++
		return nil
	})
	assert.NoError(t, err)
	gone, err := s.Subscribe(func(int) error {
		goneCalls++
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Fire(1))
	gone.Disconnect()
	sched.Step()

	assert.Equal(t, 1, stayCalls)
	assert.Equal(t, 0, goneCalls)
}

// should treat a second disconnect as a no-op
func TestIdempotentDisconnect(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	sub, err := s.Subscribe(func(int) error { return nil })
	assert.NoError(t, err)
	assert.True(t, sub.Connected())

	sub.Disconnect()
	assert.False(t, sub.Connected())
	sub.Disconnect()
	assert.False(t, sub.Connected())
}

// should keep delivering to siblings when one callback errors or panics
func TestIsolationUnderFailure(t *testing.T) {
	sched := scheduler.NewManual()

	var failures []error
	s := signal.New[int](sched, signal.WithOnError(func(_ any, err error) {
		failures = append(failures, err)
	}))

	okCalls := 0
	_, err := s.Subscribe(func(int) error {
		return errors.New("boom")
	})
	assert.NoError(t, err)
	_, err = s.Subscribe(func(int) error {
		panic("kaboom")
	})
	assert.NoError(t, err)
	_, err = s.Subscribe(func(int) error {
		okCalls++
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Fire(7))
	sched.Step()

	assert.Equal(t, 1, okCalls)
	assert.Len(t, failures, 2)
}

// should drop payloads fired while no subscriber is connected
func TestDropWithoutSubscribers(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	assert.NoError(t, s.Fire(1))
	assert.NoError(t, s.Fire(2))
	assert.EqualValues(t, 2, s.Dropped())

	called := 0
	_, err := s.Subscribe(func(int) error {
		called++
		return nil
	})
	assert.NoError(t, err)
	sched.Advance(3)
	assert.Equal(t, 0, called)
}

// should fail fast on a destroyed signal, with destroy itself idempotent
func TestUseAfterDestroy(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	sub, err := s.Subscribe(func(int) error { return nil })
	assert.NoError(t, err)
	assert.NoError(t, s.Fire(1))

	assert.NoError(t, s.Destroy())
	assert.NoError(t, s.Destroy())

	assert.False(t, sub.Connected())
	assert.ErrorIs(t, s.Fire(1), signal.ErrDestroyed)
	_, err = s.Subscribe(func(int) error { return nil })
	assert.ErrorIs(t, err, signal.ErrDestroyed)
}

// should reject a nil callback at the call site
func TestSubscribeNilCallback(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	_, err := s.Subscribe(nil)
	assert.ErrorIs(t, err, signal.ErrNilCallback)
}

// should start the drain loop on first subscribe and stop it on last disconnect
func TestLazyDrainLoop(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)
	assert.Equal(t, 0, sched.Len())

	a, err := s.Subscribe(func(int) error { return nil })
	assert.NoError(t, err)
	b, err := s.Subscribe(func(int) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, sched.Len())

	a.Disconnect()
	assert.Equal(t, 1, sched.Len())
	b.Disconnect()
	assert.Equal(t, 0, sched.Len())

	// a fresh subscriber restarts the loop
	_, err = s.Subscribe(func(int) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, sched.Len())
}

// should tolerate a callback firing its own signal
func TestReentrantFire(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	got := []int{}
	_, err := s.Subscribe(func(v int) error {
		got = append(got, v)
		if v < 3 {
			return s.Fire(v + 1)
		}
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Fire(1))
	sched.Advance(5)
	assert.Equal(t, []int{1, 2, 3}, got)
}

// should tolerate a callback disconnecting itself mid-round
func TestReentrantDisconnect(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	calls := 0
	other := 0
	var sub *signal.Subscription[int]
	sub, err := s.Subscribe(func(int) error {
		calls++
		sub.Disconnect()
		return nil
	})
	assert.NoError(t, err)
	_, err = s.Subscribe(func(int) error {
		other++
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Fire(1))
	sched.Step()
	assert.NoError(t, s.Fire(2))
	sched.Step()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
	assert.False(t, sub.Connected())
}

// should fire the payload through end to end exactly once
func TestEndToEnd(t *testing.T) {
	sched := scheduler.NewManual()
	s := signal.New[int](sched)

	got := []int{}
	_, err := s.Subscribe(func(v int) error {
		got = append(got, v)
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Fire(42))
	sched.Step()
	assert.Equal(t, []int{42}, got)

	assert.NoError(t, s.Destroy())
	assert.ErrorIs(t, s.Fire(1), signal.ErrDestroyed)
	sched.Step()
	assert.Equal(t, []int{42}, got)
}
