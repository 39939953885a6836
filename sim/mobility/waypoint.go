package mobility

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/random"
)

// RandomWaypoint walks to a destination drawn from Destinations at a speed
// drawn from Speed, pauses for a time drawn from Pause, then repeats.
// A non-positive speed leaves the node where it is for the rest of the run.
type RandomWaypoint struct {
	kinematics
	Speed        random.Variable
	Pause        random.Variable
	Destinations PositionAllocator

	sim  *sim.Simulator
	next sim.EventID
}

func NewRandomWaypoint(speed, pause random.Variable, destinations PositionAllocator) *RandomWaypoint {
	return &RandomWaypoint{Speed: speed, Pause: pause, Destinations: destinations}
}

func (m *RandomWaypoint) Start(s *sim.Simulator) {
	m.sim = s
	m.update(s.Now())
	m.beginWalk()
}

func (m *RandomWaypoint) beginWalk() {
	now := m.sim.Now()
	m.update(now)
	from := m.base
	to := m.Destinations.Next()
	speed := m.Speed.Value()
	if speed <= 0 {
		logrus.Debugf("[mobility] waypoint speed %g, staying at %s", speed, from)
		m.setVelocity(now, Vector{})
		m.notify(now)
		return
	}
	dist := Distance(from, to)
	var v Vector
	if dist > 0 {
		v = to.Sub(from).Scale(speed / dist)
	}
	m.setVelocity(now, v)
	m.notify(now)
	m.next = m.sim.ScheduleFunc(sim.Seconds(dist/speed), m.arrive)
}

func (m *RandomWaypoint) arrive() {
	now := m.sim.Now()
	m.setVelocity(now, Vector{})
	m.notify(now)
	pause := m.Pause.Value()
	if pause < 0 {
		pause = 0
	}
	m.next = m.sim.ScheduleFunc(sim.Seconds(pause), m.beginWalk)
}
