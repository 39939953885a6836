package flowmon

import (
	"bytes"
	"encoding/xml"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/mobility"
	"github.com/inference-sim/netsim/sim/network"
	"github.com/inference-sim/netsim/sim/routing"
	"github.com/inference-sim/netsim/sim/wifi"
)

type fixture struct {
	sim   *sim.Simulator
	net   *network.Network
	nodes []*network.Node
	mon   *Monitor
}

// line places nodes at the given x coordinates with link-state routing
// and a flow monitor installed.
func line(t *testing.T, xs ...float64) *fixture {
	t.Helper()
	s := sim.New(1)
	nw := network.New(s)
	nodes := nw.CreateNodes(len(xs))
	domain := routing.NewDomain(s)
	for i, n := range nodes {
		n.SetMobility(mobility.NewConstantPosition(mobility.Vector{X: xs[i]}))
		list := routing.NewList()
		list.Add(routing.NewStatic(), 0)
		list.Add(routing.NewLinkState(domain), 10)
		n.SetRouting(list)
	}
	h, err := wifi.NewHelper("OfdmRate54Mbps")
	require.NoError(t, err)
	devs := h.Install(s, wifi.NewChannel(s, 250), nodes...)
	var ah network.AddressHelper
	require.NoError(t, ah.SetBase("10.1.1.0", "255.255.255.0"))
	_, err = ah.Assign(wifi.NetDevices(devs)...)
	require.NoError(t, err)
	domain.Start()
	mon := NewMonitor(s)
	mon.InstallAll(nw)
	return &fixture{sim: s, net: nw, nodes: nodes, mon: mon}
}

func (f *fixture) sendEvery(from int, dst string, count int, gap sim.Time) {
	for i := 0; i < count; i++ {
		f.sim.ScheduleFunc(sim.Second+sim.Time(i)*gap, func() {
			p := f.net.NewPacket(network.UDP, 500)
			p.Dst, p.DstPort, p.SrcPort = netip.MustParseAddr(dst), 9, 49153
			f.nodes[from].Send(p)
		})
	}
}

func TestClassifier_FirstSeenOrder(t *testing.T) {
	c := NewClassifier()
	a := &network.Packet{Protocol: network.UDP, Src: netip.MustParseAddr("10.0.0.1"), Dst: netip.MustParseAddr("10.0.0.2"), DstPort: 9}
	b := &network.Packet{Protocol: network.UDP, Src: netip.MustParseAddr("10.0.0.2"), Dst: netip.MustParseAddr("10.0.0.1"), DstPort: 9}
	assert.Equal(t, FlowID(1), c.Classify(a))
	assert.Equal(t, FlowID(2), c.Classify(b))
	assert.Equal(t, FlowID(1), c.Classify(a.Copy()))
	assert.Equal(t, []FlowID{1, 2}, c.Flows())
	_, ok := c.Tuple(3)
	assert.False(t, ok)
}

func TestHistogram_Bins(t *testing.T) {
	h := NewHistogram(0.001)
	h.Add(0.0005)
	h.Add(0.0025)
	h.Add(0.0026)
	assert.Equal(t, 3, h.NBins())
	bins := h.Bins()
	require.Len(t, bins, 2)
	assert.Equal(t, uint64(1), bins[0].Count)
	assert.Equal(t, 2, bins[1].Index)
	assert.Equal(t, uint64(2), bins[1].Count)
}

func TestMonitor_MultiHopFlow(t *testing.T) {
	// GIVEN a three-node chain sending 5 packets from node 0 to node 2
	f := line(t, 0, 200, 400)
	require.NoError(t, f.nodes[2].Bind(9, func(*network.Packet) {}))
	f.sendEvery(0, "10.1.1.3", 5, 100*sim.Millisecond)

	// WHEN the simulation runs
	f.sim.Stop(sim.Seconds(3))
	f.sim.Run()

	// THEN one flow with every packet delivered through one forwarder
	stats := f.mon.FlowStats()
	require.Len(t, stats, 1)
	st := stats[1]
	assert.Equal(t, uint32(5), st.TxPackets)
	assert.Equal(t, uint32(5), st.RxPackets)
	assert.Equal(t, uint32(5), st.TimesForwarded)
	assert.Equal(t, uint64(5*528), st.RxBytes)
	assert.Equal(t, sim.Second, st.TimeFirstTxPacket)
	assert.Greater(t, st.DelaySum, sim.Time(0))
	assert.Zero(t, f.mon.InFlight())

	sums := f.mon.Summaries()
	require.Len(t, sums, 1)
	assert.Zero(t, sums[0].Lost)
	assert.Greater(t, sums[0].MeanDelay, 0.0)
	assert.GreaterOrEqual(t, sums[0].P95Delay, sums[0].MeanDelay)
	assert.Greater(t, sums[0].Throughput, 0.0)

	probes := f.mon.Probes()
	require.Len(t, probes, 3)
	assert.Equal(t, uint32(5), probes[1].Flows[1].Packets, "forwarder saw every packet")
}

func TestMonitor_LostAfterMaxDelay(t *testing.T) {
	// GIVEN a destination on the subnet but out of range
	f := line(t, 0, 1000)
	f.sendEvery(0, "10.1.1.2", 2, sim.Second)
	f.sim.Stop(sim.Seconds(5))
	f.sim.Run()
	require.Equal(t, 2, f.mon.InFlight())

	// WHEN checked too early nothing is lost
	f.mon.CheckForLostPackets(0)
	assert.Equal(t, uint32(0), f.mon.FlowStats()[1].LostPackets)

	// THEN after the per-hop timeout both are lost
	f.sim.ScheduleFunc(sim.Seconds(20), func() {})
	f.sim.Stop(sim.Seconds(30))
	f.sim.Run()
	f.mon.CheckForLostPackets(0)
	assert.Equal(t, uint32(2), f.mon.FlowStats()[1].LostPackets)
	assert.Equal(t, uint32(2), f.mon.Summaries()[0].Lost)
}

func TestMonitor_DropsByReason(t *testing.T) {
	f := line(t, 0, 100)
	f.sendEvery(0, "10.1.1.2", 3, sim.Second)
	f.sim.Stop(sim.Seconds(5))
	f.sim.Run()
	st := f.mon.FlowStats()[1]
	assert.Equal(t, uint32(3), st.PacketsDropped[network.DropNoSocket])
	assert.Equal(t, uint64(3*528), st.BytesDropped[network.DropNoSocket])
	assert.Zero(t, f.mon.InFlight())
}

func TestMonitor_IgnoresDropsBeforeFirstTransmission(t *testing.T) {
	// GIVEN two nodes too far apart to ever route to each other
	f := line(t, 0, 1000)
	f.sendEvery(0, "10.1.1.2", 5, 0)

	// WHEN every send is dropped at the origin for lack of a route
	var drops int
	f.net.Drop.Connect(func(ev network.PacketEvent) {
		if ev.Reason == network.DropNoRoute {
			drops++
		}
	})
	f.sim.Stop(sim.Seconds(5))
	f.sim.Run()

	// THEN the stack saw the drops but no flow was created for them
	assert.Equal(t, 5, drops)
	assert.Empty(t, f.mon.FlowStats())
	assert.Empty(t, f.mon.Summaries())
	assert.Empty(t, f.mon.Classifier().Flows())
}

func TestMonitor_SerializeToXML(t *testing.T) {
	// GIVEN a delivered flow
	f := line(t, 0, 100)
	require.NoError(t, f.nodes[1].Bind(9, func(*network.Packet) {}))
	f.sendEvery(0, "10.1.1.2", 2, sim.Second)
	f.sim.Stop(sim.Seconds(5))
	f.sim.Run()
	f.mon.RunID = "run-1"

	// WHEN serialized with histograms and probes
	var buf bytes.Buffer
	require.NoError(t, f.mon.SerializeToXML(&buf, true, true))

	// THEN the document round-trips and carries the classifier and probes
	assert.Contains(t, buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, buf.String(), `<delayHistogram nBins=`)
	var doc xmlMonitor
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.RunID)
	require.Len(t, doc.FlowStats.Flows, 1)
	assert.Equal(t, uint32(2), doc.FlowStats.Flows[0].RxPackets)
	require.Len(t, doc.Classifier.Flows, 1)
	assert.Equal(t, "10.1.1.1", doc.Classifier.Flows[0].SourceAddress)
	assert.Equal(t, uint8(17), doc.Classifier.Flows[0].Protocol)
	require.NotNil(t, doc.Probes)
	assert.Len(t, doc.Probes.Probes, 2)
}

func TestMonitor_SerializeToXMLFile(t *testing.T) {
	f := line(t, 0, 100)
	path := filepath.Join(t.TempDir(), "flows.xml")
	require.NoError(t, f.mon.SerializeToXMLFile(path, false, false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<FlowMonitor>")

	assert.Error(t, f.mon.SerializeToXMLFile(filepath.Join(t.TempDir(), "missing", "x.xml"), false, false))
}

func TestMonitor_Print(t *testing.T) {
	f := line(t, 0, 100)
	require.NoError(t, f.nodes[1].Bind(9, func(*network.Packet) {}))
	f.sendEvery(0, "10.1.1.2", 1, sim.Second)
	f.sim.Stop(sim.Seconds(3))
	f.sim.Run()
	var buf bytes.Buffer
	require.NoError(t, f.mon.Print(&buf))
	assert.Contains(t, buf.String(), "Flow 1 (10.1.1.1:49153 -> 10.1.1.2:9 udp)")
	assert.Contains(t, buf.String(), "Rx Packets: 1")
}
