package wifi

import (
	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/mobility"
	"github.com/inference-sim/netsim/sim/network"
)

// DefaultMaxRange is the reception radius in meters.
const DefaultMaxRange = 250.0

// SpeedOfLight is the propagation speed in meters per second.
const SpeedOfLight = 299792458.0

// Channel delivers every transmitted frame to all devices within MaxRange
// of the sender.
type Channel struct {
	sim      *sim.Simulator
	MaxRange float64
	devices  []*Device
}

func NewChannel(s *sim.Simulator, maxRange float64) *Channel {
	if maxRange <= 0 {
		maxRange = DefaultMaxRange
	}
	return &Channel{sim: s, MaxRange: maxRange}
}

func (c *Channel) add(d *Device) { c.devices = append(c.devices, d) }

func (c *Channel) Devices() []network.NetDevice {
	out := make([]network.NetDevice, len(c.devices))
	for i, d := range c.devices {
		out[i] = d
	}
	return out
}

// Reachable reports whether a and b are distinct devices on this channel
// within range of each other right now.
func (c *Channel) Reachable(a, b network.NetDevice) bool {
	if a == b || a.Channel() != network.Channel(c) || b.Channel() != network.Channel(c) {
		return false
	}
	return mobility.Distance(a.Node().Position(), b.Node().Position()) <= c.MaxRange
}

// transmit schedules reception of f at every device in range. Each receiver
// gets its own copy of the packet.
func (c *Channel) transmit(from *Device, f frame, airtime sim.Time) {
	src := from.node.Position()
	for _, d := range c.devices {
		if d == from {
			continue
		}
		dist := mobility.Distance(src, d.node.Position())
		if dist > c.MaxRange {
			continue
		}
		delay := sim.Seconds(dist/SpeedOfLight) + airtime
		rx := d
		copied := f
		copied.packet = f.packet.Copy()
		c.sim.ScheduleFunc(delay, func() { rx.receive(copied) })
	}
}
