package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_Run_TimestampOrdering(t *testing.T) {
	// GIVEN events scheduled out of order
	s := New(1)
	var order []Time
	record := func() { order = append(order, s.Now()) }
	s.ScheduleFunc(Seconds(3), record)
	s.ScheduleFunc(Seconds(1), record)
	s.ScheduleFunc(Seconds(2), record)

	// WHEN the simulation runs
	stats := s.Run()

	// THEN they execute in timestamp order and the clock ends at the last one
	assert.Equal(t, []Time{Seconds(1), Seconds(2), Seconds(3)}, order)
	assert.Equal(t, uint64(3), stats.Executed)
	assert.Equal(t, Seconds(3), stats.EndTime)
}

func TestSimulator_Run_SameTimestampIsFIFO(t *testing.T) {
	s := New(1)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.ScheduleFunc(Seconds(1), func() { order = append(order, i) })
	}
	s.Run()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSimulator_ScheduleNow_RunsAfterAlreadyScheduledEvents(t *testing.T) {
	s := New(1)
	var order []string
	s.ScheduleFunc(Seconds(1), func() {
		s.ScheduleNow(func() { order = append(order, "now") })
		order = append(order, "first")
	})
	s.ScheduleFunc(Seconds(1), func() { order = append(order, "second") })
	s.Run()
	assert.Equal(t, []string{"first", "second", "now"}, order)
}

func TestSimulator_EventsScheduleFutureEvents(t *testing.T) {
	// GIVEN a self-rescheduling periodic event
	s := New(1)
	count := 0
	var tick func()
	tick = func() {
		count++
		s.ScheduleFunc(Seconds(1), tick)
	}
	s.ScheduleNow(tick)

	// WHEN stopped at 5 s
	s.Stop(Seconds(5))
	stats := s.Run()

	// THEN ticks at 0..5 inclusive ran and the clock ends at the stop time
	assert.Equal(t, 6, count)
	assert.Equal(t, Seconds(5), stats.EndTime)
	assert.Equal(t, 1, stats.Pending)
}

func TestSimulator_Stop_EventsAfterStopNeverRun(t *testing.T) {
	s := New(1)
	ran := false
	s.ScheduleFunc(Seconds(11), func() { ran = true })
	s.Stop(Seconds(10))
	stats := s.Run()
	assert.False(t, ran)
	assert.Equal(t, Seconds(10), stats.EndTime)
}

func TestSimulator_Cancel(t *testing.T) {
	s := New(1)
	ran := false
	id := s.ScheduleFunc(Seconds(1), func() { ran = true })
	require.True(t, s.IsPending(id))

	s.Cancel(id)
	s.Cancel(id) // second cancel is a no-op
	assert.False(t, s.IsPending(id))

	stats := s.Run()
	assert.False(t, ran)
	assert.Equal(t, uint64(0), stats.Executed)
	assert.Equal(t, uint64(1), stats.Cancelled)
}

func TestSimulator_Cancel_ZeroIDIsNoop(t *testing.T) {
	s := New(1)
	s.Cancel(0)
	assert.False(t, s.IsPending(0))
}

func TestSimulator_Halt(t *testing.T) {
	s := New(1)
	var ran []int
	s.ScheduleFunc(Seconds(1), func() { ran = append(ran, 1); s.Halt() })
	s.ScheduleFunc(Seconds(2), func() { ran = append(ran, 2) })
	s.Run()
	assert.Equal(t, []int{1}, ran)
	assert.Equal(t, Seconds(1), s.Now())
}

func TestSimulator_ScheduleAt(t *testing.T) {
	s := New(1)
	var at Time
	s.ScheduleFunc(Seconds(2), func() {
		_, err := s.ScheduleAt(Seconds(1), EventFunc(func(*Simulator) {}))
		assert.Error(t, err, "scheduling in the past must fail")
	})
	_, err := s.ScheduleAt(Seconds(4), EventFunc(func(sim *Simulator) { at = sim.Now() }))
	require.NoError(t, err)
	s.Run()
	assert.Equal(t, Seconds(4), at)
}

func TestSimulator_Schedule_NegativeDelayPanics(t *testing.T) {
	s := New(1)
	assert.Panics(t, func() { s.Schedule(-1, EventFunc(func(*Simulator) {})) })
}

func TestSimulator_Destroy_RunsHooksInReverse(t *testing.T) {
	s := New(1)
	var order []int
	s.OnDestroy(func() { order = append(order, 1) })
	s.OnDestroy(func() { order = append(order, 2) })
	s.ScheduleFunc(Seconds(100), func() {})
	s.Destroy()
	assert.Equal(t, []int{2, 1}, order)
	assert.Equal(t, 0, s.queue.Len())
}

func TestSimulator_ClockMonotonic(t *testing.T) {
	// GIVEN a mix of events that schedule further events at random offsets
	s := New(99)
	rng := s.RNG.ForSubsystem("test")
	last := Time(0)
	var spawn func()
	n := 0
	spawn = func() {
		assert.GreaterOrEqual(t, s.Now(), last)
		last = s.Now()
		n++
		if n < 500 {
			s.ScheduleFunc(Time(rng.Int64N(int64(Second))), spawn)
			s.ScheduleFunc(Time(rng.Int64N(int64(Second))), func() {
				assert.GreaterOrEqual(t, s.Now(), last)
				last = s.Now()
			})
		}
	}
	s.ScheduleNow(spawn)
	s.Run()
	assert.Equal(t, 500, n)
}

func TestTime_Conversions(t *testing.T) {
	assert.Equal(t, Time(2_500_000_000), Seconds(2.5))
	assert.Equal(t, 2.5, Seconds(2.5).Seconds())
	assert.Equal(t, Microsecond*192, Microseconds(192))
	assert.Equal(t, Second, Milliseconds(1000))
	assert.Equal(t, "+2.5s", Seconds(2.5).String())
	assert.Equal(t, "-1s", (-Second).String())
	assert.Equal(t, "+2000000000ns", (2 * Second).NanoString())
}

func TestTraceSource_FireInConnectionOrder(t *testing.T) {
	var ts TraceSource[int]
	assert.False(t, ts.Connected())
	var got []int
	ts.Connect(func(v int) { got = append(got, v) })
	ts.Connect(func(v int) { got = append(got, v*10) })
	ts.Fire(3)
	assert.True(t, ts.Connected())
	assert.Equal(t, []int{3, 30}, got)
}
