package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreewheelAdvancesVirtualClockExactly(t *testing.T) {
	s := NewScheduler()
	calls := 0
	task := New(func() { calls++ }, 60.0, WithFreewheel())
	s.Add(task)

	for i := 0; i < 600; i++ {
		require.NotNil(t, s.Next(true))
	}

	assert.Equal(t, 600, calls)
	// 600 calls at 60Hz should advance the virtual clock by exactly 10s,
	// with zero wallclock drift since freewheel tasks never sleep.
	assert.Equal(t, 10*time.Second, task.nextCall.Sub(task.started))
}

func TestOnceTasksSortBeforePeriodic(t *testing.T) {
	s := NewScheduler()
	var order []string

	periodic := New(func() { order = append(order, "periodic") }, 1000.0, WithFreewheel())
	once := New(func() { order = append(order, "once") }, 1000.0, WithFreewheel(), WithOnce())

	s.Add(periodic)
	s.Add(once)

	s.Next(true)
	require.Equal(t, []string{"once"}, order)
	assert.Equal(t, 1, s.Len(), "the completed once-task should be compacted away")
}

func TestFrameskipClampsDtToPeriod(t *testing.T) {
	s := NewScheduler()
	var gotDT time.Duration
	task := NewDT(func(dt time.Duration) { gotDT = dt }, 10.0, WithFreewheel(), WithFrameskip(false))
	s.Add(task)

	// Simulate lag by pushing last_call far behind next_call.
	task.lastCall = task.lastCall.Add(-5 * time.Second)

	s.Next(true)
	assert.Equal(t, task.Period(), gotDT)
}
