package wifi

import (
	"net/netip"
	"os"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/mobility"
	"github.com/inference-sim/netsim/sim/network"
	"github.com/inference-sim/netsim/sim/trace"
)

// directRouting sends everything straight to the destination on interface 1.
type directRouting struct{}

func (directRouting) Attach(*network.Node) {}

func (directRouting) RouteOutput(netip.Addr) (network.Route, bool) {
	return network.Route{Interface: 1}, true
}

// line places nodes on the x axis at the given coordinates with 10.1.1.0/24
// addresses on one channel.
func line(t *testing.T, mode string, xs ...float64) (*sim.Simulator, *network.Network, []*Device) {
	t.Helper()
	s := sim.New(1)
	nw := network.New(s)
	nodes := nw.CreateNodes(len(xs))
	for i, n := range nodes {
		n.SetMobility(mobility.NewConstantPosition(mobility.Vector{X: xs[i]}))
		n.SetRouting(directRouting{})
	}
	h, err := NewHelper(mode)
	require.NoError(t, err)
	devs := h.Install(s, NewChannel(s, 0), nodes...)
	var addrs network.AddressHelper
	require.NoError(t, addrs.SetBase("10.1.1.0", "255.255.255.0"))
	_, err = addrs.Assign(NetDevices(devs)...)
	require.NoError(t, err)
	return s, nw, devs
}

func udpTo(nw *network.Network, dst string, size int) *network.Packet {
	p := nw.NewPacket(network.UDP, size)
	p.Dst, p.DstPort = netip.MustParseAddr(dst), 9
	return p
}

func TestPhyMode_TxDuration(t *testing.T) {
	m, err := LookupPhyMode("DsssRate1Mbps")
	require.NoError(t, err)
	assert.Equal(t, 192*sim.Microsecond+8512*sim.Microsecond, m.TxDuration(1064))

	o, err := LookupPhyMode("OfdmRate54Mbps")
	require.NoError(t, err)
	assert.Equal(t, 20*sim.Microsecond+sim.Time(149), o.TxDuration(1))
}

func TestPhyMode_UnknownIsError(t *testing.T) {
	_, err := LookupPhyMode("DsssRate3Mbps")
	assert.ErrorContains(t, err, "unknown phy mode")
	assert.Contains(t, PhyModeNames(), "OfdmRate54Mbps")
}

func TestChannel_ReachableIsRangeDisk(t *testing.T) {
	_, _, devs := line(t, "DsssRate1Mbps", 0, 250, 501)
	ch := devs[0].channel
	assert.True(t, ch.Reachable(devs[0], devs[1]))
	assert.False(t, ch.Reachable(devs[0], devs[2]))
	assert.False(t, ch.Reachable(devs[0], devs[0]))
	assert.Len(t, ch.Devices(), 3)
}

func TestDevice_DeliversWithAirtimeAndPropagation(t *testing.T) {
	// GIVEN two nodes 150 m apart
	s, nw, devs := line(t, "DsssRate1Mbps", 0, 150)
	var at sim.Time
	require.NoError(t, devs[1].Node().Bind(9, func(*network.Packet) { at = s.Now() }))

	// WHEN node 0 sends a 1000-byte datagram
	devs[0].Node().Send(udpTo(nw, "10.1.1.2", 1000))
	s.Run()

	// THEN it arrives after airtime plus 0.5 µs of propagation
	airtime := devs[0].Mode().TxDuration(1000 + network.IPv4HeaderSize + network.UDPHeaderSize + FrameOverhead)
	assert.Equal(t, airtime+sim.Seconds(150/SpeedOfLight), at)
}

func TestDevice_OutOfRangeNeverDelivers(t *testing.T) {
	s, nw, devs := line(t, "DsssRate1Mbps", 0, 300)
	var got int
	require.NoError(t, devs[1].Node().Bind(9, func(*network.Packet) { got++ }))
	devs[0].Node().Send(udpTo(nw, "10.1.1.2", 100))
	s.Run()
	assert.Equal(t, 0, got)
}

func TestDevice_UnicastFilterButPhyRxForEveryoneInRange(t *testing.T) {
	// GIVEN three nodes in range of each other
	s, nw, devs := line(t, "OfdmRate54Mbps", 0, 10, 20)
	var rx1, rx2, delivered2 int
	devs[1].PhyRx.Connect(func(FrameEvent) { rx1++ })
	devs[2].PhyRx.Connect(func(FrameEvent) { rx2++ })
	require.NoError(t, devs[2].Node().Bind(9, func(*network.Packet) { delivered2++ }))

	// WHEN node 0 sends to node 1
	devs[0].Node().Send(udpTo(nw, "10.1.1.2", 100))
	s.Run()

	// THEN both hear the frame but node 2 does not deliver it
	assert.Equal(t, 1, rx1)
	assert.Equal(t, 1, rx2)
	assert.Equal(t, 0, delivered2)
}

func TestDevice_SerializesTransmissions(t *testing.T) {
	// GIVEN a device that is handed three packets at once
	s, nw, devs := line(t, "DsssRate1Mbps", 0, 1)
	var tx []sim.Time
	devs[0].PhyTx.Connect(func(ev FrameEvent) { tx = append(tx, ev.Time) })

	for i := 0; i < 3; i++ {
		devs[0].Node().Send(udpTo(nw, "10.1.1.2", 100))
	}
	assert.Equal(t, 2, devs[0].QueueLen())
	s.Run()

	// THEN they leave back to back, one airtime apart
	air := devs[0].Mode().TxDuration(100 + network.IPv4HeaderSize + network.UDPHeaderSize + FrameOverhead)
	assert.Equal(t, []sim.Time{0, air, 2 * air}, tx)
}

func TestDevice_QueueFullDrops(t *testing.T) {
	s, nw, devs := line(t, "DsssRate1Mbps", 0, 1)
	devs[0].QueueLimit = 1
	require.NoError(t, devs[1].Node().Bind(9, func(*network.Packet) {}))
	var reasons []network.DropReason
	nw.Drop.Connect(func(ev network.PacketEvent) { reasons = append(reasons, ev.Reason) })
	var devDrops int
	devs[0].Drop.Connect(func(FrameEvent) { devDrops++ })

	// first goes straight to the air, second waits, third overflows
	for i := 0; i < 3; i++ {
		devs[0].Node().Send(udpTo(nw, "10.1.1.2", 100))
	}
	s.Run()

	assert.Equal(t, []network.DropReason{network.DropQueueFull}, reasons)
	assert.Equal(t, 1, devDrops)
}

func TestEnableAscii_RecordsEveryOp(t *testing.T) {
	s, nw, devs := line(t, "DsssRate1Mbps", 0, 1)
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelPackets})
	EnableAscii(st, devs...)

	devs[0].Node().Send(udpTo(nw, "10.1.1.2", 100))
	s.Run()

	sum := trace.Summarize(st)
	assert.Equal(t, 1, sum.OpCounts[trace.OpEnqueue])
	assert.Equal(t, 1, sum.OpCounts[trace.OpDequeue])
	assert.Equal(t, 1, sum.OpCounts[trace.OpTransmit])
	assert.Equal(t, 1, sum.OpCounts[trace.OpReceive])
	assert.Equal(t, 1, sum.UniquePackets)
}

func TestEnablePcap_WritesRadiotapCapture(t *testing.T) {
	// GIVEN pcap enabled on both devices
	s, nw, devs := line(t, "DsssRate1Mbps", 0, 1)
	dir := t.TempDir()
	paths, err := EnablePcap(s, dir, "grid", devs...)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	// WHEN two packets are exchanged and the simulator is destroyed
	devs[0].Node().Send(udpTo(nw, "10.1.1.2", 100))
	devs[0].Node().Send(udpTo(nw, "10.1.1.2", 200))
	s.Run()
	s.Destroy()

	// THEN the receiver's capture holds two radiotap frames
	f, err := os.Open(paths[1])
	require.NoError(t, err)
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeIEEE80211Radio, r.LinkType())
	var frames int
	for {
		data, _, err := r.ReadPacketData()
		if err != nil {
			break
		}
		frames++
		assert.Equal(t, byte(8), data[2])
	}
	assert.Equal(t, 2, frames)
}
