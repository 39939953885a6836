// Package flowmon measures end-to-end flow statistics from the stack-wide
// trace sources of a network: per-flow delay, jitter, loss and drops, plus
// per-node probe counters.
package flowmon

import (
	"net/netip"

	"github.com/inference-sim/netsim/sim/network"
)

// FlowID numbers flows from 1 in first-seen order.
type FlowID uint32

// FiveTuple identifies a flow.
type FiveTuple struct {
	Src      netip.Addr
	Dst      netip.Addr
	Protocol network.Protocol
	SrcPort  uint16
	DstPort  uint16
}

// Classifier maps packets to flows.
type Classifier struct {
	ids    map[FiveTuple]FlowID
	tuples []FiveTuple
}

func NewClassifier() *Classifier {
	return &Classifier{ids: make(map[FiveTuple]FlowID)}
}

// Classify returns the flow of p, creating it on first sight.
func (c *Classifier) Classify(p *network.Packet) FlowID {
	t := FiveTuple{Src: p.Src, Dst: p.Dst, Protocol: p.Protocol, SrcPort: p.SrcPort, DstPort: p.DstPort}
	if id, ok := c.ids[t]; ok {
		return id
	}
	c.tuples = append(c.tuples, t)
	id := FlowID(len(c.tuples))
	c.ids[t] = id
	return id
}

// Tuple returns the five-tuple of id.
func (c *Classifier) Tuple(id FlowID) (FiveTuple, bool) {
	if id == 0 || int(id) > len(c.tuples) {
		return FiveTuple{}, false
	}
	return c.tuples[id-1], true
}

// Flows returns every known flow ID in order.
func (c *Classifier) Flows() []FlowID {
	out := make([]FlowID, len(c.tuples))
	for i := range c.tuples {
		out[i] = FlowID(i + 1)
	}
	return out
}
