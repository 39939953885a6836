// Package routing provides the routing protocols a node can run: explicit
// static routes, a link-state protocol computed over the instantaneous
// connectivity graph, and a priority list combining several protocols.
package routing

import (
	"net/netip"

	"github.com/inference-sim/netsim/sim/network"
)

// StaticRoute is one configured route. An invalid Gateway means the
// destination is on the link of Interface.
type StaticRoute struct {
	Dest      netip.Prefix
	Gateway   netip.Addr
	Interface int
}

// Static answers from explicitly added routes, then from the prefixes of
// the node's own interfaces. The longest matching prefix wins.
type Static struct {
	node   *network.Node
	routes []StaticRoute
}

func NewStatic() *Static { return &Static{} }

func (s *Static) Attach(n *network.Node) { s.node = n }

func (s *Static) AddHostRoute(dst, gateway netip.Addr, iface int) {
	s.routes = append(s.routes, StaticRoute{Dest: netip.PrefixFrom(dst, dst.BitLen()), Gateway: gateway, Interface: iface})
}

func (s *Static) AddNetworkRoute(dst netip.Prefix, gateway netip.Addr, iface int) {
	s.routes = append(s.routes, StaticRoute{Dest: dst.Masked(), Gateway: gateway, Interface: iface})
}

func (s *Static) SetDefaultRoute(gateway netip.Addr, iface int) {
	s.routes = append(s.routes, StaticRoute{Dest: netip.PrefixFrom(netip.IPv4Unspecified(), 0), Gateway: gateway, Interface: iface})
}

// Routes returns the explicit routes followed by the connected ones.
func (s *Static) Routes() []StaticRoute {
	out := append([]StaticRoute(nil), s.routes...)
	if s.node == nil {
		return out
	}
	for _, iface := range s.node.Interfaces() {
		if iface.Device == nil {
			continue
		}
		out = append(out, StaticRoute{Dest: iface.Prefix.Masked(), Interface: iface.Index})
	}
	return out
}

func (s *Static) RouteOutput(dst netip.Addr) (network.Route, bool) {
	best, bits := StaticRoute{}, -1
	for _, r := range s.Routes() {
		if r.Dest.Contains(dst) && r.Dest.Bits() > bits {
			best, bits = r, r.Dest.Bits()
		}
	}
	if bits < 0 {
		return network.Route{}, false
	}
	rt := network.Route{Interface: best.Interface, Gateway: best.Gateway}
	if s.node != nil {
		rt.Source = s.node.Address(best.Interface)
	}
	return rt, true
}
