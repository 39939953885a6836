package app

import (
	"fmt"
	"net/netip"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/network"
	"github.com/inference-sim/netsim/sim/random"
)

// OnOffConfig parameterizes an OnOff application.
type OnOffConfig struct {
	Remote     netip.AddrPort
	PacketSize int
	DataRate   float64 // bits per second while on
	OnTime     random.Variable
	OffTime    random.Variable
	MaxBytes   int64 // 0 means unlimited
}

// OnOff alternates between off periods of OffTime seconds and on periods
// of OnTime seconds. While on it sends PacketSize datagrams at DataRate.
// Every on period sends at least one packet, so an on time of zero yields
// one packet per off period.
type OnOff struct {
	cfg       OnOffConfig
	node      *network.Node
	sim       *sim.Simulator
	localPort uint16

	running   bool
	onEnd     sim.Time
	event     sim.EventID
	sentBytes int64
	sent      int

	Tx sim.TraceSource[*network.Packet]
}

func NewOnOff(node *network.Node, cfg OnOffConfig) (*OnOff, error) {
	if cfg.PacketSize <= 0 {
		return nil, fmt.Errorf("onoff: packet size must be positive, got %d", cfg.PacketSize)
	}
	if cfg.DataRate <= 0 {
		return nil, fmt.Errorf("onoff: data rate must be positive, got %g", cfg.DataRate)
	}
	if cfg.OnTime == nil {
		cfg.OnTime = random.Constant{}
	}
	if cfg.OffTime == nil {
		cfg.OffTime = random.Constant{V: 1}
	}
	return &OnOff{cfg: cfg, node: node, sim: node.Network().Sim()}, nil
}

func (o *OnOff) Sent() int { return o.sent }

func (o *OnOff) SentBytes() int64 { return o.sentBytes }

func (o *OnOff) StartApplication() {
	if o.running {
		return
	}
	o.running = true
	if o.localPort == 0 {
		o.localPort = o.node.AllocatePort()
	}
	logrus.Infof("[%v] onoff on node %d: sending to %s", o.sim.Now(), o.node.ID(), o.cfg.Remote)
	o.scheduleStart()
}

func (o *OnOff) StopApplication() {
	if !o.running {
		return
	}
	o.running = false
	o.sim.Cancel(o.event)
	logrus.Infof("[%v] onoff on node %d: stopped after %d packets", o.sim.Now(), o.node.ID(), o.sent)
}

func (o *OnOff) scheduleStart() {
	off := sim.Seconds(nonNegative(o.cfg.OffTime.Value()))
	o.event = o.sim.ScheduleFunc(off, o.startSending)
}

func (o *OnOff) startSending() {
	o.onEnd = o.sim.Now() + sim.Seconds(nonNegative(o.cfg.OnTime.Value()))
	o.scheduleNextTx()
}

func (o *OnOff) scheduleNextTx() {
	if o.cfg.MaxBytes > 0 && o.sentBytes >= o.cfg.MaxBytes {
		return
	}
	bits := float64(o.cfg.PacketSize * 8)
	o.event = o.sim.ScheduleFunc(sim.Seconds(bits/o.cfg.DataRate), o.sendPacket)
}

func (o *OnOff) sendPacket() {
	p := o.node.Network().NewPacket(network.UDP, o.cfg.PacketSize)
	p.Dst, p.DstPort = o.cfg.Remote.Addr(), o.cfg.Remote.Port()
	p.SrcPort = o.localPort
	o.Tx.Fire(p)
	o.node.Send(p)
	o.sent++
	o.sentBytes += int64(o.cfg.PacketSize)
	logrus.Debugf("[%v] onoff on node %d: sent %d bytes to %s total Tx %d bytes",
		o.sim.Now(), o.node.ID(), o.cfg.PacketSize, o.cfg.Remote, o.sentBytes)
	if o.sim.Now() >= o.onEnd {
		o.scheduleStart()
		return
	}
	o.scheduleNextTx()
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
