package network

import (
	"net"
	"net/netip"
)

// NetDevice is a link-layer device attached to a node and a channel.
type NetDevice interface {
	// Attach is called once by Node.AddDevice.
	Attach(node *Node, index int)
	Node() *Node
	// Index is the device's position in its node's device list.
	Index() int
	MAC() net.HardwareAddr
	Channel() Channel
	// Send queues p for transmission to the device with address to. It
	// returns false when the device dropped the packet.
	Send(p *Packet, to net.HardwareAddr) bool
	// SetReceiver installs the upcall for frames addressed to this device.
	SetReceiver(fn func(dev NetDevice, p *Packet))
}

// Channel connects devices. Reachable is evaluated at the current
// simulation time.
type Channel interface {
	Devices() []NetDevice
	Reachable(a, b NetDevice) bool
}

// Route is the answer of a routing protocol for one destination.
type Route struct {
	Interface int
	// Gateway is invalid for destinations on a directly connected link.
	Gateway netip.Addr
	Source  netip.Addr
}

// RoutingProtocol decides the outgoing interface and next hop for a
// destination on one node.
type RoutingProtocol interface {
	Attach(n *Node)
	RouteOutput(dst netip.Addr) (Route, bool)
}
