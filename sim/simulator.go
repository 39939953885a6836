// sim/simulator.go
package sim

import (
	"container/heap"
	"fmt"

	"github.com/sirupsen/logrus"
)

// RunStats summarizes a completed Run.
type RunStats struct {
	Executed  uint64 // events dispatched
	Cancelled uint64 // events removed by Cancel before they ran
	Pending   int    // events left in the queue past the stop time
	EndTime   Time   // clock value when Run returned
}

// Simulator is the core object that holds simulation time, the event queue
// and the event loop. It is single-threaded: models must only call it from
// inside events or before Run.
type Simulator struct {
	clock    Time
	stopAt   Time
	halted   bool
	queue    EventQueue
	nextSeq  EventID
	pending  map[EventID]struct{}
	executed uint64
	removed  uint64
	destroy  []func()

	// RNG hands out per-subsystem random streams derived from the seed.
	RNG *PartitionedRNG
}

// New creates a simulator at time zero with no stop time.
func New(seed int64) *Simulator {
	return &Simulator{
		stopAt:  MaxTime,
		queue:   make(EventQueue, 0),
		pending: make(map[EventID]struct{}),
		RNG:     NewPartitionedRNG(NewSimulationKey(seed)),
	}
}

// Now returns the current simulation time.
func (s *Simulator) Now() Time {
	return s.clock
}

// StopTime returns the configured stop time, or MaxTime when none was set.
func (s *Simulator) StopTime() Time {
	return s.stopAt
}

// Schedule pushes ev to run delay after the current time.
// A negative delay is an error in the caller and panics.
func (s *Simulator) Schedule(delay Time, ev Event) EventID {
	if delay < 0 {
		panic(fmt.Sprintf("negative schedule delay %d at %v", delay, s.clock))
	}
	return s.push(s.clock+delay, ev)
}

// ScheduleFunc is Schedule for a plain function.
func (s *Simulator) ScheduleFunc(delay Time, fn func()) EventID {
	return s.Schedule(delay, EventFunc(func(*Simulator) { fn() }))
}

// ScheduleNow runs fn at the current time, after every event already
// scheduled for this instant.
func (s *Simulator) ScheduleNow(fn func()) EventID {
	return s.ScheduleFunc(0, fn)
}

// ScheduleAt pushes ev at an absolute time. Times in the past are rejected.
func (s *Simulator) ScheduleAt(at Time, ev Event) (EventID, error) {
	if at < s.clock {
		return 0, fmt.Errorf("cannot schedule at %v: clock is already %v", at, s.clock)
	}
	return s.push(at, ev), nil
}

func (s *Simulator) push(at Time, ev Event) EventID {
	s.nextSeq++
	id := s.nextSeq
	heap.Push(&s.queue, eventEntry{at: at, seqID: id, event: ev})
	s.pending[id] = struct{}{}
	return id
}

// Cancel prevents a scheduled event from running. Cancelling an event that
// already ran, or the zero EventID, is a no-op.
func (s *Simulator) Cancel(id EventID) {
	if _, ok := s.pending[id]; !ok {
		return
	}
	delete(s.pending, id)
	s.removed++
}

// IsPending reports whether id is scheduled and has neither run nor been cancelled.
func (s *Simulator) IsPending(id EventID) bool {
	_, ok := s.pending[id]
	return ok
}

// Stop sets the stop time to delay after now. Events scheduled strictly
// after the stop time never execute.
func (s *Simulator) Stop(delay Time) {
	s.stopAt = s.clock + delay
}

// Halt ends Run after the currently executing event returns.
func (s *Simulator) Halt() {
	s.halted = true
}

// Run dispatches events in timestamp order until the queue is empty, the
// stop time is passed or Halt is called.
func (s *Simulator) Run() RunStats {
	for len(s.queue) > 0 && !s.halted {
		next := s.queue.peek()
		if next.at > s.stopAt {
			s.clock = s.stopAt
			break
		}
		entry := heap.Pop(&s.queue).(eventEntry)
		if _, ok := s.pending[entry.seqID]; !ok {
			// cancelled
			continue
		}
		delete(s.pending, entry.seqID)

		if entry.at < s.clock {
			panic(fmt.Sprintf("Clock went backwards: %d < %d", entry.at, s.clock))
		}
		s.clock = entry.at
		logrus.Tracef("[%v] Executing %T", s.clock, entry.event)
		entry.event.Execute(s)
		s.executed++
	}

	logrus.Debugf("[%v] Simulation ended after %d events", s.clock, s.executed)
	return RunStats{
		Executed:  s.executed,
		Cancelled: s.removed,
		Pending:   len(s.pending),
		EndTime:   s.clock,
	}
}

// OnDestroy registers fn to run from Destroy. Trace writers use it to flush
// and close their files.
func (s *Simulator) OnDestroy(fn func()) {
	s.destroy = append(s.destroy, fn)
}

// Destroy runs the destroy hooks in reverse registration order and drops
// every pending event. The simulator must not be reused afterwards.
func (s *Simulator) Destroy() {
	for i := len(s.destroy) - 1; i >= 0; i-- {
		s.destroy[i]()
	}
	s.destroy = nil
	s.queue = s.queue[:0]
	s.pending = make(map[EventID]struct{})
}
