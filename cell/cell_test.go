package cell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solumlabs/sigbag/cell"
	"github.com/solumlabs/sigbag/scheduler"
	"github.com/solumlabs/sigbag/signal"
)

// should read back the latest written value synchronously
func TestGetSet(t *testing.T) {
	sched := scheduler.NewManual()
	v := cell.New(sched, 10)

	assert.Equal(t, 10, v.Get())
	assert.NoError(t, v.Set(20))
	assert.Equal(t, 20, v.Get())
}

// should notify observers with old and new values, one tick later
func TestObserve(t *testing.T) {
	sched := scheduler.NewManual()
	v := cell.New(sched, "idle")

	changes := [][2]string{}
	_, err := v.Observe(func(old, new string) error {
		changes = append(changes, [2]string{old, new})
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, v.Set("running"))
	assert.Empty(t, changes)
	sched.Step()
	assert.Equal(t, [][2]string{{"idle", "running"}}, changes)

	assert.NoError(t, v.Set("done"))
	sched.Step()
	assert.Equal(t, [][2]string{{"idle", "running"}, {"running", "done"}}, changes)
}

// should not notify when the written value equals the current one
func TestSetEqualIsNoop(t *testing.T) {
	sched := scheduler.NewManual()
	v := cell.New(sched, 5)

	calls := 0
	_, err := v.Observe(func(_, _ int) error {
		calls++
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, v.Set(5))
	sched.Advance(2)
	assert.Equal(t, 0, calls)
}

// should reject a nil observer
func TestObserveNil(t *testing.T) {
	sched := scheduler.NewManual()
	v := cell.New(sched, 0)

	_, err := v.Observe(nil)
	assert.ErrorIs(t, err, signal.ErrNilCallback)
}

// should fail writes and disconnect observers after destroy
func TestDestroy(t *testing.T) {
	sched := scheduler.NewManual()
	v := cell.New(sched, 1)

	sub, err := v.Observe(func(_, _ int) error { return nil })
	assert.NoError(t, err)

	assert.NoError(t, v.Destroy())
	assert.NoError(t, v.Destroy())
	assert.False(t, sub.Connected())
	assert.ErrorIs(t, v.Set(2), signal.ErrDestroyed)
	assert.Equal(t, 1, v.Get())
}
