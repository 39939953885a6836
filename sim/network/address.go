package network

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// AddressHelper hands out consecutive host addresses from a network, the
// way a scenario numbers the devices of one link.
type AddressHelper struct {
	network uint32
	bits    int
	host    uint32
}

// SetBase sets the network and dotted-quad mask. Host numbering restarts at 1.
func (h *AddressHelper) SetBase(network, mask string) error {
	addr, err := netip.ParseAddr(network)
	if err != nil || !addr.Is4() {
		return fmt.Errorf("invalid network address %q", network)
	}
	m, err := netip.ParseAddr(mask)
	if err != nil || !m.Is4() {
		return fmt.Errorf("invalid mask %q", mask)
	}
	bits, ok := maskBits(toUint32(m))
	if !ok {
		return fmt.Errorf("non-contiguous mask %q", mask)
	}
	h.bits = bits
	h.network = toUint32(addr) & prefixMask(bits)
	h.host = 1
	return nil
}

// Prefix is the current network.
func (h *AddressHelper) Prefix() netip.Prefix {
	return netip.PrefixFrom(fromUint32(h.network), h.bits)
}

// Next returns the next host address without binding it.
func (h *AddressHelper) Next() (netip.Addr, error) {
	if h.bits == 0 && h.network == 0 {
		return netip.Addr{}, fmt.Errorf("address helper has no base")
	}
	size := uint32(1) << (32 - h.bits)
	if h.host >= size-1 {
		return netip.Addr{}, fmt.Errorf("address space %s exhausted", h.Prefix())
	}
	a := fromUint32(h.network + h.host)
	h.host++
	return a, nil
}

// Assign creates an interface on each device's node, in order.
func (h *AddressHelper) Assign(devs ...NetDevice) ([]netip.Addr, error) {
	out := make([]netip.Addr, 0, len(devs))
	for _, dev := range devs {
		a, err := h.Next()
		if err != nil {
			return out, err
		}
		dev.Node().AddInterface(dev, netip.PrefixFrom(a, h.bits))
		out = append(out, a)
	}
	return out, nil
}

// NewNetwork advances to the next network of the same size.
func (h *AddressHelper) NewNetwork() {
	h.network += uint32(1) << (32 - h.bits)
	h.host = 1
}

func toUint32(a netip.Addr) uint32 {
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}

func fromUint32(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

func prefixMask(bits int) uint32 {
	if bits == 0 {
		return 0
	}
	return ^uint32(0) << (32 - bits)
}

func maskBits(m uint32) (int, bool) {
	for bits := 0; bits <= 32; bits++ {
		if prefixMask(bits) == m {
			return bits, true
		}
	}
	return 0, false
}
