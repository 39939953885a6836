package routing

import (
	"net/netip"
	"sort"

	"github.com/inference-sim/netsim/sim/network"
)

type listEntry struct {
	protocol network.RoutingProtocol
	priority int
}

// List consults its protocols from the highest priority down and returns
// the first route found.
type List struct {
	entries []listEntry
}

func NewList() *List { return &List{} }

// Add registers p. Protocols with equal priority keep insertion order.
func (l *List) Add(p network.RoutingProtocol, priority int) {
	l.entries = append(l.entries, listEntry{protocol: p, priority: priority})
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].priority > l.entries[j].priority
	})
}

// Protocols returns the protocols in consultation order.
func (l *List) Protocols() []network.RoutingProtocol {
	out := make([]network.RoutingProtocol, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.protocol
	}
	return out
}

func (l *List) Attach(n *network.Node) {
	for _, e := range l.entries {
		e.protocol.Attach(n)
	}
}

func (l *List) RouteOutput(dst netip.Addr) (network.Route, bool) {
	for _, e := range l.entries {
		if rt, ok := e.protocol.RouteOutput(dst); ok {
			return rt, true
		}
	}
	return network.Route{}, false
}
