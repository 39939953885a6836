package mobility

import (
	"github.com/inference-sim/netsim/sim"
)

// Hierarchical positions a child model relative to a parent: the reported
// position is parent + child. The parent belongs to another node and is
// started by that node, so Start only starts the child.
type Hierarchical struct {
	parent  Model
	child   Model
	changes sim.TraceSource[CourseChangeEvent]
}

func NewHierarchical(parent, child Model) *Hierarchical {
	h := &Hierarchical{parent: parent, child: child}
	relay := func(ev CourseChangeEvent) {
		h.changes.Fire(CourseChangeEvent{
			Time:     ev.Time,
			Position: h.Position(ev.Time),
			Velocity: h.Velocity(ev.Time),
		})
	}
	parent.CourseChange().Connect(relay)
	child.CourseChange().Connect(relay)
	return h
}

func (h *Hierarchical) Parent() Model { return h.parent }

func (h *Hierarchical) Child() Model { return h.child }

func (h *Hierarchical) Position(now sim.Time) Vector {
	return h.parent.Position(now).Add(h.child.Position(now))
}

func (h *Hierarchical) Velocity(now sim.Time) Vector {
	return h.parent.Velocity(now).Add(h.child.Velocity(now))
}

// SetPosition moves the child so that the absolute position becomes p.
func (h *Hierarchical) SetPosition(now sim.Time, p Vector) {
	h.child.SetPosition(now, p.Sub(h.parent.Position(now)))
}

func (h *Hierarchical) Start(s *sim.Simulator) { h.child.Start(s) }

func (h *Hierarchical) CourseChange() *sim.TraceSource[CourseChangeEvent] { return &h.changes }
