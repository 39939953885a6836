package sim

// Event defines the interface for all simulation events.
// Execute is invoked once the simulator clock reaches the event's timestamp.
type Event interface {
	Execute(*Simulator)
}

// EventFunc adapts an ordinary function to the Event interface.
type EventFunc func(*Simulator)

// Execute calls f(s).
func (f EventFunc) Execute(s *Simulator) {
	f(s)
}

// EventID identifies a scheduled event so it can be cancelled.
// The zero value never refers to a scheduled event.
type EventID uint64

// eventEntry wraps an Event with its timestamp and a sequence ID for
// deterministic FIFO tie-breaking when timestamps are equal.
type eventEntry struct {
	at    Time
	seqID EventID
	event Event
}

// EventQueue is a min-heap ordered by (timestamp, seqID).
// Implements heap.Interface.
type EventQueue []eventEntry

func (q EventQueue) Len() int { return len(q) }

func (q EventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seqID < q[j].seqID
}

func (q EventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *EventQueue) Push(x any) {
	*q = append(*q, x.(eventEntry))
}

func (q *EventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = eventEntry{}
	*q = old[:n-1]
	return item
}

// peek returns the earliest entry without removing it. The queue must be non-empty.
func (q EventQueue) peek() eventEntry {
	return q[0]
}
