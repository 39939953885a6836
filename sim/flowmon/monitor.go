package flowmon

import (
	"sort"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/network"
)

// DefaultMaxPerHopDelay is how long a packet may go unseen before it is
// counted as lost.
const DefaultMaxPerHopDelay = 10 * sim.Second

// Default histogram bin widths.
const (
	DelayBinWidth      = 0.001 // seconds
	JitterBinWidth     = 0.001 // seconds
	PacketSizeBinWidth = 20    // bytes
)

// FlowStats accumulates the end-to-end statistics of one flow.
type FlowStats struct {
	TimeFirstTxPacket sim.Time
	TimeFirstRxPacket sim.Time
	TimeLastTxPacket  sim.Time
	TimeLastRxPacket  sim.Time
	DelaySum          sim.Time
	JitterSum         sim.Time
	LastDelay         sim.Time
	TxBytes           uint64
	RxBytes           uint64
	TxPackets         uint32
	RxPackets         uint32
	LostPackets       uint32
	TimesForwarded    uint32

	PacketsDropped map[network.DropReason]uint32
	BytesDropped   map[network.DropReason]uint64

	DelayHistogram      *Histogram
	JitterHistogram     *Histogram
	PacketSizeHistogram *Histogram

	delays []float64 // seconds, one per received packet
}

func newFlowStats() *FlowStats {
	return &FlowStats{
		PacketsDropped:      make(map[network.DropReason]uint32),
		BytesDropped:        make(map[network.DropReason]uint64),
		DelayHistogram:      NewHistogram(DelayBinWidth),
		JitterHistogram:     NewHistogram(JitterBinWidth),
		PacketSizeHistogram: NewHistogram(PacketSizeBinWidth),
	}
}

// ProbeStats counts what one node saw of a flow.
type ProbeStats struct {
	Packets                uint32
	Bytes                  uint64
	DelayFromFirstProbeSum sim.Time
}

// Probe is the per-node observation point.
type Probe struct {
	NodeID int
	Flows  map[FlowID]*ProbeStats
}

func (p *Probe) record(id FlowID, size int, delay sim.Time) {
	st, ok := p.Flows[id]
	if !ok {
		st = &ProbeStats{}
		p.Flows[id] = st
	}
	st.Packets++
	st.Bytes += uint64(size)
	st.DelayFromFirstProbeSum += delay
}

type tracked struct {
	flow           FlowID
	firstSeen      sim.Time
	lastSeen       sim.Time
	timesForwarded uint32
}

// Monitor tracks every packet from its first transmission to its delivery,
// drop, or loss timeout.
type Monitor struct {
	sim            *sim.Simulator
	classifier     *Classifier
	flows          map[FlowID]*FlowStats
	tracked        map[uint64]*tracked
	probes         map[int]*Probe
	MaxPerHopDelay sim.Time
	// RunID is written into the XML output.
	RunID string
}

func NewMonitor(s *sim.Simulator) *Monitor {
	return &Monitor{
		sim:            s,
		classifier:     NewClassifier(),
		flows:          make(map[FlowID]*FlowStats),
		tracked:        make(map[uint64]*tracked),
		probes:         make(map[int]*Probe),
		MaxPerHopDelay: DefaultMaxPerHopDelay,
	}
}

func (m *Monitor) Classifier() *Classifier { return m.classifier }

// InstallAll connects the monitor to the stack-wide trace sources of nw.
func (m *Monitor) InstallAll(nw *network.Network) {
	nw.SendOutgoing.Connect(m.sendOutgoing)
	nw.UnicastForward.Connect(m.forward)
	nw.LocalDeliver.Connect(m.deliver)
	nw.Drop.Connect(m.drop)
}

func (m *Monitor) stats(id FlowID) *FlowStats {
	st, ok := m.flows[id]
	if !ok {
		st = newFlowStats()
		m.flows[id] = st
	}
	return st
}

func (m *Monitor) probe(node int) *Probe {
	p, ok := m.probes[node]
	if !ok {
		p = &Probe{NodeID: node, Flows: make(map[FlowID]*ProbeStats)}
		m.probes[node] = p
	}
	return p
}

func (m *Monitor) sendOutgoing(ev network.PacketEvent) {
	id := m.classifier.Classify(ev.Packet)
	now := ev.Time
	size := ev.Packet.WireSize()
	st := m.stats(id)
	if st.TxPackets == 0 {
		st.TimeFirstTxPacket = now
	}
	st.TimeLastTxPacket = now
	st.TxPackets++
	st.TxBytes += uint64(size)
	m.tracked[ev.Packet.UID] = &tracked{flow: id, firstSeen: now, lastSeen: now}
	m.probe(ev.Node.ID()).record(id, size, 0)
}

func (m *Monitor) forward(ev network.PacketEvent) {
	t, ok := m.tracked[ev.Packet.UID]
	if !ok {
		return
	}
	t.timesForwarded++
	t.lastSeen = ev.Time
	m.probe(ev.Node.ID()).record(t.flow, ev.Packet.WireSize(), ev.Time-t.firstSeen)
}

func (m *Monitor) deliver(ev network.PacketEvent) {
	t, ok := m.tracked[ev.Packet.UID]
	if !ok {
		return
	}
	delete(m.tracked, ev.Packet.UID)
	now := ev.Time
	size := ev.Packet.WireSize()
	delay := now - t.firstSeen
	st := m.stats(t.flow)
	st.DelaySum += delay
	st.DelayHistogram.Add(delay.Seconds())
	if st.RxPackets > 0 {
		jitter := delay - st.LastDelay
		if jitter < 0 {
			jitter = -jitter
		}
		st.JitterSum += jitter
		st.JitterHistogram.Add(jitter.Seconds())
	}
	st.LastDelay = delay
	st.delays = append(st.delays, delay.Seconds())
	st.RxBytes += uint64(size)
	st.PacketSizeHistogram.Add(float64(size))
	if st.RxPackets == 0 {
		st.TimeFirstRxPacket = now
	}
	st.RxPackets++
	st.TimeLastRxPacket = now
	st.TimesForwarded += t.timesForwarded
	m.probe(ev.Node.ID()).record(t.flow, size, delay)
}

// drop accounts only packets the monitor saw leave their origin; a packet
// dropped before SendOutgoing has no flow yet.
func (m *Monitor) drop(ev network.PacketEvent) {
	t, ok := m.tracked[ev.Packet.UID]
	if !ok {
		return
	}
	st := m.stats(t.flow)
	st.PacketsDropped[ev.Reason]++
	st.BytesDropped[ev.Reason] += uint64(ev.Packet.WireSize())
	delete(m.tracked, ev.Packet.UID)
}

// CheckForLostPackets counts as lost every tracked packet not seen for at
// least maxDelay. A non-positive maxDelay uses MaxPerHopDelay.
func (m *Monitor) CheckForLostPackets(maxDelay sim.Time) {
	if maxDelay <= 0 {
		maxDelay = m.MaxPerHopDelay
	}
	now := m.sim.Now()
	for uid, t := range m.tracked {
		if now-t.lastSeen >= maxDelay {
			m.stats(t.flow).LostPackets++
			delete(m.tracked, uid)
		}
	}
}

// InFlight is the number of packets sent but not yet delivered, dropped or lost.
func (m *Monitor) InFlight() int { return len(m.tracked) }

// FlowStats returns the stats of every flow keyed by ID.
func (m *Monitor) FlowStats() map[FlowID]*FlowStats { return m.flows }

// Probes returns the per-node probes sorted by node ID.
func (m *Monitor) Probes() []*Probe {
	out := make([]*Probe, 0, len(m.probes))
	for _, p := range m.probes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}
