// Package network holds nodes, packets and the IPv4 forwarding path shared
// by every link technology.
package network

import (
	"net"
	"net/netip"

	"github.com/inference-sim/netsim/sim"
)

// PacketEvent is fired by the stack-wide trace sources.
type PacketEvent struct {
	Time      sim.Time
	Node      *Node
	Interface int
	Packet    *Packet
	Reason    DropReason
}

type binding struct {
	node  *Node
	iface int
}

// Network is the node list of one simulation. It also plays the part of an
// ideal ARP: every assigned address is registered so next hops resolve
// without any exchange on the air.
type Network struct {
	sim     *sim.Simulator
	nodes   []*Node
	nextUID uint64
	addrs   map[netip.Addr]binding

	SendOutgoing   sim.TraceSource[PacketEvent]
	UnicastForward sim.TraceSource[PacketEvent]
	LocalDeliver   sim.TraceSource[PacketEvent]
	Drop           sim.TraceSource[PacketEvent]
}

func New(s *sim.Simulator) *Network {
	return &Network{sim: s, addrs: make(map[netip.Addr]binding)}
}

func (n *Network) Sim() *sim.Simulator { return n.sim }

// CreateNodes appends count nodes with consecutive IDs.
func (n *Network) CreateNodes(count int) []*Node {
	created := make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		node := newNode(n, len(n.nodes))
		n.nodes = append(n.nodes, node)
		created = append(created, node)
	}
	return created
}

func (n *Network) Nodes() []*Node { return n.nodes }

// Node returns the node with the given ID, or nil.
func (n *Network) Node(id int) *Node {
	if id < 0 || id >= len(n.nodes) {
		return nil
	}
	return n.nodes[id]
}

// NewPacket allocates a packet with a fresh UID stamped with the current time.
func (n *Network) NewPacket(proto Protocol, payload int) *Packet {
	n.nextUID++
	return &Packet{
		UID:         n.nextUID,
		Protocol:    proto,
		TTL:         DefaultTTL,
		PayloadSize: payload,
		Created:     n.sim.Now(),
	}
}

func (n *Network) register(addr netip.Addr, node *Node, iface int) {
	n.addrs[addr] = binding{node: node, iface: iface}
}

// Lookup returns the node and interface owning addr.
func (n *Network) Lookup(addr netip.Addr) (*Node, int, bool) {
	b, ok := n.addrs[addr]
	if !ok {
		return nil, 0, false
	}
	return b.node, b.iface, true
}

// ResolveMAC returns the hardware address of the device owning addr.
func (n *Network) ResolveMAC(addr netip.Addr) (net.HardwareAddr, bool) {
	b, ok := n.addrs[addr]
	if !ok {
		return nil, false
	}
	dev := b.node.interfaces[b.iface].Device
	if dev == nil {
		return nil, false
	}
	return dev.MAC(), true
}

func (n *Network) fire(ts *sim.TraceSource[PacketEvent], node *Node, iface int, p *Packet, reason DropReason) {
	if !ts.Connected() {
		return
	}
	ts.Fire(PacketEvent{Time: n.sim.Now(), Node: node, Interface: iface, Packet: p, Reason: reason})
}
