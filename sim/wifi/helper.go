package wifi

import (
	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/network"
	"github.com/inference-sim/netsim/sim/trace"
)

// Helper installs devices of one phy mode on nodes.
type Helper struct {
	Mode       PhyMode
	QueueLimit int
}

// NewHelper returns a helper for the named constant-rate mode.
func NewHelper(mode string) (*Helper, error) {
	m, err := LookupPhyMode(mode)
	if err != nil {
		return nil, err
	}
	return &Helper{Mode: m, QueueLimit: DefaultQueueLimit}, nil
}

// Install creates one device per node on ch.
func (h *Helper) Install(s *sim.Simulator, ch *Channel, nodes ...*network.Node) []*Device {
	devs := make([]*Device, 0, len(nodes))
	for _, n := range nodes {
		d := NewDevice(s, ch, h.Mode)
		d.QueueLimit = h.QueueLimit
		n.AddDevice(d)
		devs = append(devs, d)
	}
	return devs
}

// NetDevices converts devices for the address helper.
func NetDevices(devs []*Device) []network.NetDevice {
	out := make([]network.NetDevice, len(devs))
	for i, d := range devs {
		out[i] = d
	}
	return out
}

// EnableAscii connects every device trace source of devs to r.
func EnableAscii(r trace.Recorder, devs ...*Device) {
	for _, d := range devs {
		d := d
		record := func(op trace.Op) func(FrameEvent) {
			return func(ev FrameEvent) {
				r.RecordPacket(trace.PacketRecord{
					Op:      op,
					Clock:   ev.Time.Nanoseconds(),
					Node:    d.node.ID(),
					Device:  d.index,
					UID:     ev.Packet.UID,
					Size:    ev.Size,
					Summary: ev.Packet.String() + " " + ev.From.String() + ">" + ev.To.String(),
					Reason:  string(ev.Reason),
				})
			}
		}
		d.Enqueue.Connect(record(trace.OpEnqueue))
		d.Dequeue.Connect(record(trace.OpDequeue))
		d.PhyTx.Connect(record(trace.OpTransmit))
		d.PhyRx.Connect(record(trace.OpReceive))
		d.Drop.Connect(record(trace.OpDrop))
	}
}
