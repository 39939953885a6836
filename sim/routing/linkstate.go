package routing

import (
	"math"
	"net"
	"net/netip"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/network"
)

// DefaultHelloInterval is how often a Domain recomputes its tables.
const DefaultHelloInterval = 2 * sim.Second

// Neighbor is a node heard directly on one of our interfaces.
type Neighbor struct {
	NodeID    int
	Addr      netip.Addr
	MAC       net.HardwareAddr
	Interface int // our interface
}

// Entry is one row of a link-state routing table.
type Entry struct {
	Destination netip.Addr
	NextHop     netip.Addr
	Interface   int
	Distance    int // hops
}

// Domain is the set of nodes running link-state routing together. Every
// HelloInterval it rebuilds neighbor sets from channel reachability and
// runs Dijkstra from every member over the resulting hop-count graph. The
// tables are what a converged proactive protocol would hold at that
// instant; no control traffic is simulated.
type Domain struct {
	sim           *sim.Simulator
	HelloInterval sim.Time
	members       []*LinkState
	updates       int
	started       bool
}

func NewDomain(s *sim.Simulator) *Domain {
	return &Domain{sim: s, HelloInterval: DefaultHelloInterval}
}

// Members returns the protocols in join order.
func (d *Domain) Members() []*LinkState { return d.members }

// Updates is the number of table recomputations so far.
func (d *Domain) Updates() int { return d.updates }

// Start schedules the first update at the current time and every
// HelloInterval after that.
func (d *Domain) Start() {
	if d.started {
		return
	}
	d.started = true
	var tick func()
	tick = func() {
		d.Update()
		d.sim.ScheduleFunc(d.HelloInterval, tick)
	}
	d.sim.ScheduleNow(tick)
}

func (d *Domain) member(nodeID int) *LinkState {
	for _, m := range d.members {
		if m.node.ID() == nodeID {
			return m
		}
	}
	return nil
}

// Update recomputes neighbor sets and routing tables of every member.
func (d *Domain) Update() {
	d.updates++
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for _, m := range d.members {
		g.AddNode(simple.Node(m.node.ID()))
	}
	for _, m := range d.members {
		m.neighbors = d.discover(m)
		for _, nb := range m.neighbors {
			from, to := simple.Node(m.node.ID()), simple.Node(nb.NodeID)
			if !g.HasEdgeFromTo(from.ID(), to.ID()) {
				g.SetWeightedEdge(simple.WeightedEdge{F: from, T: to, W: 1})
			}
		}
	}

	paths := path.DijkstraAllPaths(g)
	for _, m := range d.members {
		table := make(map[netip.Addr]Entry)
		for _, other := range d.members {
			if other == m {
				continue
			}
			via, hops, ok := m.nextHop(paths, int64(other.node.ID()))
			if !ok {
				continue
			}
			for _, iface := range other.node.Interfaces() {
				if iface.Device == nil {
					continue
				}
				table[iface.Addr()] = Entry{
					Destination: iface.Addr(),
					NextHop:     via.Addr,
					Interface:   via.Interface,
					Distance:    hops,
				}
			}
		}
		m.table = table
	}
	logrus.Debugf("[%v] link-state: recomputed tables for %d nodes", d.sim.Now(), len(d.members))
}

// discover lists the members reachable from m's devices right now.
func (d *Domain) discover(m *LinkState) []Neighbor {
	var out []Neighbor
	for _, iface := range m.node.Interfaces() {
		dev := iface.Device
		if dev == nil {
			continue
		}
		for _, peer := range dev.Channel().Devices() {
			if peer == dev || d.member(peer.Node().ID()) == nil {
				continue
			}
			peerIface := peer.Node().InterfaceForDevice(peer)
			if peerIface < 0 || !dev.Channel().Reachable(dev, peer) {
				continue
			}
			out = append(out, Neighbor{
				NodeID:    peer.Node().ID(),
				Addr:      peer.Node().Address(peerIface),
				MAC:       peer.MAC(),
				Interface: iface.Index,
			})
		}
	}
	return out
}

// LinkState is the per-node half of a Domain.
type LinkState struct {
	domain    *Domain
	node      *network.Node
	neighbors []Neighbor
	table     map[netip.Addr]Entry
}

func NewLinkState(d *Domain) *LinkState {
	return &LinkState{domain: d, table: make(map[netip.Addr]Entry)}
}

// Attach joins the node to the domain.
func (l *LinkState) Attach(n *network.Node) {
	l.node = n
	l.domain.members = append(l.domain.members, l)
}

func (l *LinkState) Node() *network.Node { return l.node }

// nextHop picks, among the neighbors one hop closer to dst, the one with
// the lowest node ID, so equal-cost paths resolve the same way every run.
func (l *LinkState) nextHop(paths path.AllShortest, dst int64) (Neighbor, int, bool) {
	dist := paths.Weight(int64(l.node.ID()), dst)
	if math.IsInf(dist, 1) || dist < 1 {
		return Neighbor{}, 0, false
	}
	var best Neighbor
	found := false
	for _, nb := range l.neighbors {
		if found && nb.NodeID >= best.NodeID {
			continue
		}
		if paths.Weight(int64(nb.NodeID), dst) == dist-1 {
			best, found = nb, true
		}
	}
	return best, int(dist), found
}

func (l *LinkState) Neighbors() []Neighbor { return l.neighbors }

// Table returns the routing table sorted by destination.
func (l *LinkState) Table() []Entry {
	out := make([]Entry, 0, len(l.table))
	for _, e := range l.table {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Destination.Less(out[j].Destination) })
	return out
}

func (l *LinkState) RouteOutput(dst netip.Addr) (network.Route, bool) {
	e, ok := l.table[dst]
	if !ok {
		return network.Route{}, false
	}
	rt := network.Route{Interface: e.Interface, Gateway: e.NextHop}
	if l.node != nil {
		rt.Source = l.node.Address(e.Interface)
	}
	return rt, true
}
