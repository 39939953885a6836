package app

import (
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/network"
)

// PacketSink accepts UDP datagrams on a port and counts them.
type PacketSink struct {
	node    *network.Node
	port    uint16
	bound   bool
	packets int
	bytes   int64

	Rx sim.TraceSource[*network.Packet]
}

func NewPacketSink(node *network.Node, port uint16) *PacketSink {
	return &PacketSink{node: node, port: port}
}

func (s *PacketSink) Port() uint16 { return s.port }

func (s *PacketSink) Packets() int { return s.packets }

// TotalRx is the number of payload bytes received.
func (s *PacketSink) TotalRx() int64 { return s.bytes }

func (s *PacketSink) StartApplication() {
	if s.bound {
		return
	}
	if err := s.node.Bind(s.port, s.receive); err != nil {
		logrus.Warnf("packet sink on node %d: %v", s.node.ID(), err)
		return
	}
	s.bound = true
}

func (s *PacketSink) StopApplication() {
	if !s.bound {
		return
	}
	s.node.Unbind(s.port)
	s.bound = false
}

func (s *PacketSink) receive(p *network.Packet) {
	s.packets++
	s.bytes += int64(p.PayloadSize)
	logrus.Debug("Received one packet!")
	s.Rx.Fire(p)
}
