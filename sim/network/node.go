package network

import (
	"fmt"
	"net/netip"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/mobility"
)

// Interface is an IPv4 interface. Index 0 of every node is the loopback
// interface, which has no device.
type Interface struct {
	Index  int
	Device NetDevice
	Prefix netip.Prefix // address plus mask length
}

// Addr is the interface's local address.
func (i *Interface) Addr() netip.Addr { return i.Prefix.Addr() }

// Handler receives UDP packets delivered to a bound port.
type Handler func(p *Packet)

// Node is a host or router with devices, an IPv4 stack and an optional
// mobility model.
type Node struct {
	id         int
	net        *Network
	devices    []NetDevice
	interfaces []*Interface
	routing    RoutingProtocol
	mobility   mobility.Model
	ports      map[uint16]Handler
	ephemeral  uint16
}

var loopback = netip.MustParsePrefix("127.0.0.1/8")

func newNode(n *Network, id int) *Node {
	node := &Node{id: id, net: n, ports: make(map[uint16]Handler)}
	node.interfaces = append(node.interfaces, &Interface{Index: 0, Prefix: loopback})
	return node
}

func (n *Node) ID() int { return n.id }

func (n *Node) Network() *Network { return n.net }

// AddDevice attaches dev and returns its device index.
func (n *Node) AddDevice(dev NetDevice) int {
	idx := len(n.devices)
	n.devices = append(n.devices, dev)
	dev.Attach(n, idx)
	dev.SetReceiver(n.receive)
	return idx
}

func (n *Node) Devices() []NetDevice { return n.devices }

// AddInterface creates an IPv4 interface on dev with the given address and
// registers the address with the network.
func (n *Node) AddInterface(dev NetDevice, prefix netip.Prefix) int {
	idx := len(n.interfaces)
	n.interfaces = append(n.interfaces, &Interface{Index: idx, Device: dev, Prefix: prefix})
	n.net.register(prefix.Addr(), n, idx)
	return idx
}

func (n *Node) Interfaces() []*Interface { return n.interfaces }

// Interface returns the interface at idx, or nil.
func (n *Node) Interface(idx int) *Interface {
	if idx < 0 || idx >= len(n.interfaces) {
		return nil
	}
	return n.interfaces[idx]
}

// InterfaceForDevice returns the index of the interface bound to dev, or -1.
func (n *Node) InterfaceForDevice(dev NetDevice) int {
	for _, iface := range n.interfaces {
		if iface.Device == dev {
			return iface.Index
		}
	}
	return -1
}

// Address returns the local address of interface idx, or the zero Addr.
func (n *Node) Address(idx int) netip.Addr {
	if iface := n.Interface(idx); iface != nil {
		return iface.Addr()
	}
	return netip.Addr{}
}

// IsLocal reports whether addr belongs to one of the node's interfaces.
func (n *Node) IsLocal(addr netip.Addr) bool {
	for _, iface := range n.interfaces {
		if iface.Addr() == addr {
			return true
		}
	}
	return addr.IsLoopback()
}

// SetRouting installs r and attaches it to the node.
func (n *Node) SetRouting(r RoutingProtocol) {
	n.routing = r
	r.Attach(n)
}

func (n *Node) Routing() RoutingProtocol { return n.routing }

func (n *Node) SetMobility(m mobility.Model) { n.mobility = m }

func (n *Node) Mobility() mobility.Model { return n.mobility }

// Position is the node's current position; nodes without a mobility model
// sit at the origin.
func (n *Node) Position() mobility.Vector {
	if n.mobility == nil {
		return mobility.Vector{}
	}
	return n.mobility.Position(n.net.sim.Now())
}

// Bind registers h for UDP packets arriving on port.
func (n *Node) Bind(port uint16, h Handler) error {
	if _, ok := n.ports[port]; ok {
		return fmt.Errorf("node %d: port %d already bound", n.id, port)
	}
	n.ports[port] = h
	return nil
}

func (n *Node) Unbind(port uint16) { delete(n.ports, port) }

// EphemeralPortStart is the first port handed out by AllocatePort.
const EphemeralPortStart = 49153

// AllocatePort returns an unbound port from the ephemeral range.
func (n *Node) AllocatePort() uint16 {
	if n.ephemeral < EphemeralPortStart {
		n.ephemeral = EphemeralPortStart
	}
	for {
		p := n.ephemeral
		n.ephemeral++
		if n.ephemeral < EphemeralPortStart {
			n.ephemeral = EphemeralPortStart
		}
		if _, used := n.ports[p]; !used {
			return p
		}
	}
}

// Send originates p. The source address is filled from the route when unset.
func (n *Node) Send(p *Packet) {
	if n.IsLocal(p.Dst) {
		if !p.Src.IsValid() {
			p.Src = p.Dst
		}
		n.net.fire(&n.net.SendOutgoing, n, 0, p, "")
		n.deliver(0, p)
		return
	}
	route, ok := n.route(p.Dst)
	if !ok {
		n.drop(0, p, DropNoRoute)
		return
	}
	if !p.Src.IsValid() {
		p.Src = route.Source
		if !p.Src.IsValid() {
			p.Src = n.Address(route.Interface)
		}
	}
	n.net.fire(&n.net.SendOutgoing, n, route.Interface, p, "")
	n.transmit(route, p)
}

func (n *Node) route(dst netip.Addr) (Route, bool) {
	if n.routing == nil {
		return Route{}, false
	}
	return n.routing.RouteOutput(dst)
}

func (n *Node) receive(dev NetDevice, p *Packet) {
	iface := n.InterfaceForDevice(dev)
	if n.IsLocal(p.Dst) {
		n.deliver(iface, p)
		return
	}
	if p.TTL <= 1 {
		n.drop(iface, p, DropTTLExpired)
		return
	}
	p.TTL--
	route, ok := n.route(p.Dst)
	if !ok {
		n.drop(iface, p, DropNoRoute)
		return
	}
	n.net.fire(&n.net.UnicastForward, n, iface, p, "")
	n.transmit(route, p)
}

func (n *Node) deliver(iface int, p *Packet) {
	h, ok := n.ports[p.DstPort]
	if !ok || p.Protocol != UDP {
		n.drop(iface, p, DropNoSocket)
		return
	}
	n.net.fire(&n.net.LocalDeliver, n, iface, p, "")
	h(p)
}

func (n *Node) transmit(route Route, p *Packet) {
	out := n.Interface(route.Interface)
	if out == nil || out.Device == nil {
		n.drop(route.Interface, p, DropNoRoute)
		return
	}
	next := route.Gateway
	if !next.IsValid() || next.IsUnspecified() {
		next = p.Dst
	}
	peer, peerIface, ok := n.net.Lookup(next)
	if !ok || peer.interfaces[peerIface].Device == nil || peer.interfaces[peerIface].Device.Channel() != out.Device.Channel() {
		n.drop(route.Interface, p, DropUnresolved)
		return
	}
	out.Device.Send(p, peer.interfaces[peerIface].Device.MAC())
}

func (n *Node) drop(iface int, p *Packet, reason DropReason) {
	logrus.Debugf("[%v] node %d: drop %s (%s)", n.net.sim.Now(), n.id, p, reason)
	n.net.fire(&n.net.Drop, n, iface, p, reason)
}

// Now is a convenience for applications running on the node.
func (n *Node) Now() sim.Time { return n.net.sim.Now() }

// ReportDrop lets a device on n publish a link-layer drop on the stack-wide
// Drop trace source.
func (n *Node) ReportDrop(dev NetDevice, p *Packet, reason DropReason) {
	n.drop(n.InterfaceForDevice(dev), p, reason)
}
