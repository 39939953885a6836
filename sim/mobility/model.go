// Package mobility moves nodes through 3D space. Models keep a reference
// position and velocity, schedule their own leg changes on the simulator,
// and fire CourseChange whenever the velocity changes.
package mobility

import (
	"github.com/inference-sim/netsim/sim"
)

// CourseChangeEvent is fired on every change of velocity.
type CourseChangeEvent struct {
	Time     sim.Time
	Position Vector
	Velocity Vector
}

// Model is the interface every mobility model implements.
type Model interface {
	Position(now sim.Time) Vector
	Velocity(now sim.Time) Vector
	// SetPosition places the model at p. It is used for initial placement
	// before Start.
	SetPosition(now sim.Time, p Vector)
	// Start schedules the model's first movement, if any.
	Start(s *sim.Simulator)
	CourseChange() *sim.TraceSource[CourseChangeEvent]
}

// kinematics tracks a position that moves at constant velocity from a
// reference point in time.
type kinematics struct {
	base     Vector
	baseTime sim.Time
	velocity Vector
	changes  sim.TraceSource[CourseChangeEvent]
}

func (k *kinematics) position(now sim.Time) Vector {
	if k.velocity.IsZero() {
		return k.base
	}
	return k.base.Add(k.velocity.Scale((now - k.baseTime).Seconds()))
}

func (k *kinematics) update(now sim.Time) {
	k.base = k.position(now)
	k.baseTime = now
}

func (k *kinematics) setVelocity(now sim.Time, v Vector) {
	k.update(now)
	k.velocity = v
}

func (k *kinematics) notify(now sim.Time) {
	k.changes.Fire(CourseChangeEvent{Time: now, Position: k.position(now), Velocity: k.velocity})
}

func (k *kinematics) Position(now sim.Time) Vector { return k.position(now) }

func (k *kinematics) Velocity(sim.Time) Vector { return k.velocity }

func (k *kinematics) SetPosition(now sim.Time, p Vector) {
	k.base = p
	k.baseTime = now
	k.notify(now)
}

func (k *kinematics) CourseChange() *sim.TraceSource[CourseChangeEvent] { return &k.changes }

// ConstantPosition never moves on its own.
type ConstantPosition struct {
	kinematics
}

func NewConstantPosition(p Vector) *ConstantPosition {
	m := &ConstantPosition{}
	m.base = p
	return m
}

func (m *ConstantPosition) Start(*sim.Simulator) {}
