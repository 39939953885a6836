package wifi

import (
	"bytes"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/network"
)

// FrameOverhead is the 802.11 MAC header, LLC/SNAP header and FCS in bytes.
const FrameOverhead = 24 + 8 + 4

// DefaultQueueLimit is the transmit queue capacity in packets.
const DefaultQueueLimit = 500

var broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

type frame struct {
	packet *network.Packet
	from   net.HardwareAddr
	to     net.HardwareAddr
}

func (f frame) size() int { return f.packet.WireSize() + FrameOverhead }

// FrameEvent is fired by the device trace sources.
type FrameEvent struct {
	Time   sim.Time
	Device *Device
	Packet *network.Packet
	From   net.HardwareAddr
	To     net.HardwareAddr
	Size   int
	Reason network.DropReason
}

// Device is an ad-hoc 802.11 interface with a FIFO transmit queue. Frames
// are sent one at a time; the next leaves when the previous airtime ends.
type Device struct {
	sim        *sim.Simulator
	node       *network.Node
	index      int
	mac        net.HardwareAddr
	channel    *Channel
	mode       PhyMode
	QueueLimit int

	queue    []frame
	busy     bool
	receiver func(network.NetDevice, *network.Packet)

	Enqueue sim.TraceSource[FrameEvent]
	Dequeue sim.TraceSource[FrameEvent]
	PhyTx   sim.TraceSource[FrameEvent]
	PhyRx   sim.TraceSource[FrameEvent]
	Drop    sim.TraceSource[FrameEvent]
}

func NewDevice(s *sim.Simulator, ch *Channel, mode PhyMode) *Device {
	d := &Device{sim: s, channel: ch, mode: mode, QueueLimit: DefaultQueueLimit}
	ch.add(d)
	return d
}

// Attach binds the device to its node and derives its MAC from the node ID
// and device index.
func (d *Device) Attach(n *network.Node, index int) {
	d.node, d.index = n, index
	id := n.ID()
	d.mac = net.HardwareAddr{0x00, 0x00, byte(id >> 16), byte(id >> 8), byte(id), byte(index + 1)}
}

func (d *Device) Node() *network.Node { return d.node }

func (d *Device) Index() int { return d.index }

func (d *Device) MAC() net.HardwareAddr { return d.mac }

func (d *Device) Channel() network.Channel { return d.channel }

func (d *Device) Mode() PhyMode { return d.mode }

func (d *Device) QueueLen() int { return len(d.queue) }

func (d *Device) SetReceiver(fn func(network.NetDevice, *network.Packet)) { d.receiver = fn }

func (d *Device) event(f frame, reason network.DropReason) FrameEvent {
	return FrameEvent{Time: d.sim.Now(), Device: d, Packet: f.packet, From: f.from, To: f.to, Size: f.size(), Reason: reason}
}

// Send queues p for the device with MAC to.
func (d *Device) Send(p *network.Packet, to net.HardwareAddr) bool {
	f := frame{packet: p, from: d.mac, to: to}
	if d.QueueLimit > 0 && len(d.queue) >= d.QueueLimit {
		logrus.Debugf("[%v] node %d dev %d: queue full, dropping uid=%d", d.sim.Now(), d.node.ID(), d.index, p.UID)
		d.Drop.Fire(d.event(f, network.DropQueueFull))
		d.node.ReportDrop(d, p, network.DropQueueFull)
		return false
	}
	d.queue = append(d.queue, f)
	d.Enqueue.Fire(d.event(f, ""))
	if !d.busy {
		d.startTx()
	}
	return true
}

func (d *Device) startTx() {
	f := d.queue[0]
	d.queue[0] = frame{}
	d.queue = d.queue[1:]
	d.Dequeue.Fire(d.event(f, ""))

	d.busy = true
	airtime := d.mode.TxDuration(f.size())
	d.PhyTx.Fire(d.event(f, ""))
	d.channel.transmit(d, f, airtime)
	d.sim.ScheduleFunc(airtime, func() {
		d.busy = false
		if len(d.queue) > 0 {
			d.startTx()
		}
	})
}

func (d *Device) receive(f frame) {
	d.PhyRx.Fire(d.event(f, ""))
	if !bytes.Equal(f.to, d.mac) && !bytes.Equal(f.to, broadcast) {
		return
	}
	if d.receiver != nil {
		d.receiver(d, f.packet)
	}
}
