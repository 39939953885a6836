package network

import (
	"fmt"
	"net/netip"

	"github.com/inference-sim/netsim/sim"
)

// Protocol is the IP protocol number carried in a packet.
type Protocol uint8

const (
	TCP Protocol = 6
	UDP Protocol = 17
)

func (p Protocol) String() string {
	switch p {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	}
	return fmt.Sprintf("proto-%d", uint8(p))
}

// Header sizes in bytes.
const (
	IPv4HeaderSize = 20
	UDPHeaderSize  = 8
	TCPHeaderSize  = 20
)

// DefaultTTL is the TTL stamped on locally originated packets.
const DefaultTTL = 64

// Packet is an IPv4 datagram with a transport header. The payload is only
// a size; no bytes are carried.
type Packet struct {
	UID         uint64
	Protocol    Protocol
	Src, Dst    netip.Addr
	SrcPort     uint16
	DstPort     uint16
	TTL         uint8
	PayloadSize int
	Created     sim.Time
}

// WireSize is the size of the packet on the wire above the link layer.
func (p *Packet) WireSize() int {
	n := IPv4HeaderSize + p.PayloadSize
	switch p.Protocol {
	case UDP:
		n += UDPHeaderSize
	case TCP:
		n += TCPHeaderSize
	}
	return n
}

// Copy returns an independent copy that keeps the UID.
func (p *Packet) Copy() *Packet {
	c := *p
	return &c
}

func (p *Packet) String() string {
	return fmt.Sprintf("uid=%d %s %s:%d > %s:%d ttl=%d size=%d",
		p.UID, p.Protocol, p.Src, p.SrcPort, p.Dst, p.DstPort, p.TTL, p.WireSize())
}

// DropReason says why the stack discarded a packet.
type DropReason string

const (
	DropTTLExpired DropReason = "ttl-expired"
	DropNoRoute    DropReason = "no-route"
	DropUnresolved DropReason = "unresolved"
	DropNoSocket   DropReason = "no-socket"
	DropQueueFull  DropReason = "queue-full"
)
