package app

import (
	"net/netip"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/network"
)

// Burst sends Count datagrams of PacketSize bytes, one every Interval,
// starting immediately, then closes.
type Burst struct {
	node       *network.Node
	sim        *sim.Simulator
	Remote     netip.AddrPort
	PacketSize int
	Count      int
	Interval   sim.Time

	localPort uint16
	remaining int
	event     sim.EventID
	closed    bool
	sent      int
}

func NewBurst(node *network.Node, remote netip.AddrPort, size, count int, interval sim.Time) *Burst {
	return &Burst{
		node:       node,
		sim:        node.Network().Sim(),
		Remote:     remote,
		PacketSize: size,
		Count:      count,
		Interval:   interval,
	}
}

func (b *Burst) Sent() int { return b.sent }

// Closed reports whether every packet has been sent.
func (b *Burst) Closed() bool { return b.closed }

func (b *Burst) StartApplication() {
	b.localPort = b.node.AllocatePort()
	b.remaining = b.Count
	b.closed = false
	b.generate()
}

func (b *Burst) StopApplication() {
	b.sim.Cancel(b.event)
}

func (b *Burst) generate() {
	if b.remaining <= 0 {
		b.closed = true
		logrus.Debugf("[%v] burst on node %d: closed after %d packets", b.sim.Now(), b.node.ID(), b.sent)
		return
	}
	p := b.node.Network().NewPacket(network.UDP, b.PacketSize)
	p.Dst, p.DstPort = b.Remote.Addr(), b.Remote.Port()
	p.SrcPort = b.localPort
	b.node.Send(p)
	b.sent++
	b.remaining--
	b.event = b.sim.ScheduleFunc(b.Interval, b.generate)
}
