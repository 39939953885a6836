package mobility

import (
	"math"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/random"
)

// RandomDirection2D travels in a straight line until it reaches the edge of
// Bounds, pauses, then picks a new heading pointing back into the area.
type RandomDirection2D struct {
	kinematics
	Bounds    Rectangle
	Speed     random.Variable
	Pause     random.Variable
	Direction random.Variable // uniform in [0, 1), scaled to an angle

	sim *sim.Simulator
}

func NewRandomDirection2D(bounds Rectangle, speed, pause, direction random.Variable) *RandomDirection2D {
	return &RandomDirection2D{Bounds: bounds, Speed: speed, Pause: pause, Direction: direction}
}

func (m *RandomDirection2D) Start(s *sim.Simulator) {
	m.sim = s
	m.update(s.Now())
	m.base = m.Bounds.Clamp(m.base)
	m.head(2 * math.Pi * m.Direction.Value())
}

func (m *RandomDirection2D) head(angle float64) {
	now := m.sim.Now()
	speed := m.Speed.Value()
	if speed <= 0 {
		m.setVelocity(now, Vector{})
		m.notify(now)
		return
	}
	v := Vector{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed}
	m.setVelocity(now, v)
	t := m.Bounds.TimeToBoundary(m.base, v)
	m.notify(now)
	m.sim.ScheduleFunc(sim.Seconds(t), m.beginPause)
}

func (m *RandomDirection2D) beginPause() {
	now := m.sim.Now()
	m.setVelocity(now, Vector{})
	m.base = m.Bounds.Clamp(m.base)
	m.notify(now)
	pause := m.Pause.Value()
	if pause < 0 {
		pause = 0
	}
	m.sim.ScheduleFunc(sim.Seconds(pause), m.resetDirection)
}

// resetDirection picks a heading in the half plane facing away from the
// closest edge.
func (m *RandomDirection2D) resetDirection() {
	m.update(m.sim.Now())
	angle := math.Pi * m.Direction.Value()
	switch m.Bounds.ClosestSide(m.base) {
	case SideRight:
		angle += math.Pi / 2
	case SideLeft:
		angle -= math.Pi / 2
	case SideTop:
		angle += math.Pi
	}
	m.head(angle)
}
