package scenario

import (
	"fmt"
	"net/netip"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/anim"
	"github.com/inference-sim/netsim/sim/app"
	"github.com/inference-sim/netsim/sim/flowmon"
	"github.com/inference-sim/netsim/sim/mobility"
	"github.com/inference-sim/netsim/sim/network"
	"github.com/inference-sim/netsim/sim/random"
	"github.com/inference-sim/netsim/sim/routing"
	"github.com/inference-sim/netsim/sim/trace"
	"github.com/inference-sim/netsim/sim/wifi"
)

// Mobility modes of the grid scenario.
const (
	MobilityWaypoint = "waypoint"
	MobilityGrid     = "grid"
)

// Traffic kinds of the grid scenario.
const (
	TrafficOnOff = "onoff"
	TrafficBurst = "burst"
)

const (
	gridWidth     = 5
	gridArea      = 500.0
	gridSinkPort  = 80
	trafficRate   = 50e6
	dumpInterval  = 2 * sim.Second
	gridBase      = "10.1.1.0"
	gridMask      = "255.255.255.0"
	flowmonOutput = "third.xml"
)

// GridConfig configures the ad-hoc grid scenario.
type GridConfig struct {
	PhyMode    string  `mapstructure:"phyMode"`
	Distance   float64 `mapstructure:"distance"`
	PacketSize int     `mapstructure:"packetSize"`
	NumPackets int     `mapstructure:"numPackets"`
	Interval   float64 `mapstructure:"interval"` // seconds between burst packets
	Verbose    bool    `mapstructure:"verbose"`
	Tracing    bool    `mapstructure:"tracing"`
	NumNodes   int     `mapstructure:"numNodes"`
	SinkNode   int     `mapstructure:"sinkNode"`
	SourceNode int     `mapstructure:"sourceNode"`
	MeanRate   float64 `mapstructure:"meanPacketsPerSecond"`
	Mobility   string  `mapstructure:"mobility"`
	Traffic    string  `mapstructure:"traffic"`
	Range      float64 `mapstructure:"range"` // meters; 0 selects the channel default
	StopTime   float64 `mapstructure:"stopTime"`
	TraceLevel string  `mapstructure:"traceLevel"`
	OutDir     string  `mapstructure:"outDir"`
	Prefix     string  `mapstructure:"prefix"`
	RunID      string  `mapstructure:"runId"`
	Seed       int64   `mapstructure:"seed"`

	// Random variable descriptions, in any form random.Parse accepts.
	Speed   string `mapstructure:"speed"` // waypoint speed, m/s
	Pause   string `mapstructure:"pause"` // waypoint pause, seconds
	OnTime  string `mapstructure:"onTime"`
	OffTime string `mapstructure:"offTime"` // empty: exponential with mean 1/meanPacketsPerSecond
}

// DefaultGridConfig returns the 5x5 grid sending from node 24 to node 0.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		PhyMode:    "DsssRate1Mbps",
		Distance:   125,
		PacketSize: 1000,
		NumPackets: 1,
		Interval:   1,
		Tracing:    true,
		NumNodes:   25,
		SinkNode:   0,
		SourceNode: 24,
		MeanRate:   10,
		Mobility:   MobilityWaypoint,
		Traffic:    TrafficOnOff,
		StopTime:   33,
		TraceLevel: string(trace.TraceLevelNone),
		OutDir:     ".",
		Prefix:     "taller1",
		Speed:      "ns3::UniformRandomVariable[Min=0.0|Max=1.0]",
		Pause:      "ns3::ConstantRandomVariable[Constant=0.0]",
		OnTime:     "ns3::ConstantRandomVariable[Constant=0.0]",
	}
}

// Validate reports the first inconsistent setting.
func (c GridConfig) Validate() error {
	if c.NumNodes < 2 {
		return fmt.Errorf("numNodes must be at least 2, got %d", c.NumNodes)
	}
	if c.SinkNode < 0 || c.SinkNode >= c.NumNodes {
		return fmt.Errorf("sinkNode %d out of range [0, %d)", c.SinkNode, c.NumNodes)
	}
	if c.SourceNode < 0 || c.SourceNode >= c.NumNodes {
		return fmt.Errorf("sourceNode %d out of range [0, %d)", c.SourceNode, c.NumNodes)
	}
	if _, err := wifi.LookupPhyMode(c.PhyMode); err != nil {
		return err
	}
	if c.Distance <= 0 {
		return fmt.Errorf("distance must be positive, got %g", c.Distance)
	}
	if c.PacketSize <= 0 {
		return fmt.Errorf("packetSize must be positive, got %d", c.PacketSize)
	}
	if c.StopTime <= 0 {
		return fmt.Errorf("stopTime must be positive, got %g", c.StopTime)
	}
	if c.Range < 0 {
		return fmt.Errorf("range must not be negative, got %g", c.Range)
	}
	switch c.Mobility {
	case MobilityWaypoint, MobilityGrid:
	default:
		return fmt.Errorf("unknown mobility mode %q", c.Mobility)
	}
	switch c.Traffic {
	case TrafficOnOff:
		if c.MeanRate <= 0 {
			return fmt.Errorf("meanPacketsPerSecond must be positive, got %g", c.MeanRate)
		}
	case TrafficBurst:
		if c.NumPackets < 1 {
			return fmt.Errorf("numPackets must be at least 1, got %d", c.NumPackets)
		}
		if c.Interval <= 0 {
			return fmt.Errorf("interval must be positive, got %g", c.Interval)
		}
	default:
		return fmt.Errorf("unknown traffic kind %q", c.Traffic)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	if c.Prefix == "" {
		return fmt.Errorf("prefix must not be empty")
	}
	return checkVariables(
		namedVariable{"speed", c.Speed},
		namedVariable{"pause", c.Pause},
		namedVariable{"onTime", c.OnTime},
		namedVariable{"offTime", offTime(c.OffTime, c.MeanRate)},
	)
}

// RunGrid builds and runs the grid scenario: NumNodes ad-hoc wifi nodes
// routed by link state, one traffic source and one sink.
func RunGrid(cfg GridConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Verbose {
		prev := logrus.GetLevel()
		logrus.SetLevel(logrus.DebugLevel)
		defer logrus.SetLevel(prev)
	}
	out, err := newOutputs(cfg.OutDir)
	if err != nil {
		return nil, err
	}
	defer out.close()

	id := runID(cfg.RunID)
	s := sim.New(cfg.Seed)
	defer s.Destroy()
	nw := network.New(s)
	nodes := nw.CreateNodes(cfg.NumNodes)

	helper, err := wifi.NewHelper(cfg.PhyMode)
	if err != nil {
		return nil, err
	}
	devs := helper.Install(s, wifi.NewChannel(s, cfg.Range), nodes...)

	domain := routing.NewDomain(s)
	for _, n := range nodes {
		list := routing.NewList()
		list.Add(routing.NewStatic(), 0)
		list.Add(routing.NewLinkState(domain), 10)
		n.SetRouting(list)
	}

	var addrs network.AddressHelper
	if err := addrs.SetBase(gridBase, gridMask); err != nil {
		return nil, err
	}
	if _, err := addrs.Assign(wifi.NetDevices(devs)...); err != nil {
		return nil, err
	}

	if err := installGridMobility(s, cfg, nodes); err != nil {
		return nil, err
	}
	domain.Start()

	sinkNode, sourceNode := nodes[cfg.SinkNode], nodes[cfg.SourceNode]
	remote := netip.AddrPortFrom(sinkNode.Address(1), gridSinkPort)
	sink := app.NewPacketSink(sinkNode, gridSinkPort)
	sinks := app.NewContainer(s, sink)
	if err := sinks.Start(sim.Seconds(1)); err != nil {
		return nil, err
	}
	if err := sinks.Stop(sim.Seconds(10)); err != nil {
		return nil, err
	}
	sent, err := installGridSource(s, cfg, sourceNode, remote)
	if err != nil {
		return nil, err
	}

	var flush []flusher
	memTrace, err := recorder(cfg.TraceLevel, 0)
	if err != nil {
		return nil, err
	}
	var recorders trace.Tee
	if memTrace != nil {
		recorders = append(recorders, memTrace)
	}
	if cfg.Tracing {
		ws, err := enableGridTracing(s, out, cfg.Prefix, domain, nodes, devs, &recorders)
		if err != nil {
			return nil, err
		}
		flush = append(flush, ws...)
	}
	if len(recorders) > 0 {
		wifi.EnableAscii(recorders, devs...)
	}

	animation, err := anim.NewInterface(s, nw, out.path(cfg.Prefix+".xml"))
	if err != nil {
		return nil, err
	}
	animation.RunID = id
	out.add(out.path(cfg.Prefix + ".xml"))
	for i, n := range nodes {
		animation.SetConstantPosition(n, cfg.Distance*float64(i%gridWidth), cfg.Distance*float64(i/gridWidth))
	}

	monitor := flowmon.NewMonitor(s)
	monitor.RunID = id
	monitor.InstallAll(nw)

	logrus.WithField("run", id).Infof("Testing from node %d to %d with grid distance %g", cfg.SourceNode, cfg.SinkNode, cfg.Distance)

	s.Stop(sim.Seconds(cfg.StopTime))
	stats := s.Run()

	flowPath := out.path(flowmonOutput)
	if err := monitor.SerializeToXMLFile(flowPath, true, true); err != nil {
		return nil, err
	}
	out.add(flowPath)
	s.Destroy()
	if err := out.finish(flush...); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       id,
		Stats:       stats,
		SinkPackets: sink.Packets(),
		SinkBytes:   sink.TotalRx(),
		SourceSent:  sent(),
		Flows:       monitor.Summaries(),
		Files:       out.paths,
	}
	if memTrace != nil {
		res.Trace = trace.Summarize(memTrace)
	}
	logRun("grid", id, res)
	return res, nil
}

func targets(nodes []*network.Node) []mobility.Target {
	ts := make([]mobility.Target, len(nodes))
	for i, n := range nodes {
		ts[i] = n
	}
	return ts
}

func installGridMobility(s *sim.Simulator, cfg GridConfig, nodes []*network.Node) error {
	h := mobility.NewHelper()
	switch cfg.Mobility {
	case MobilityGrid:
		h.SetPositionAllocator(&mobility.Grid{
			DeltaX:    cfg.Distance,
			DeltaY:    cfg.Distance,
			GridWidth: gridWidth,
			Layout:    mobility.RowFirst,
		})
	default:
		posRNG := s.RNG.ForSubsystem(sim.SubsystemPosition)
		area := &mobility.RandomRectangle{
			X: random.NewUniform(0, gridArea, posRNG),
			Y: random.NewUniform(0, gridArea, posRNG),
		}
		speed, err := random.Parse(cfg.Speed)
		if err != nil {
			return fmt.Errorf("speed: %w", err)
		}
		pause, err := random.Parse(cfg.Pause)
		if err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		h.SetPositionAllocator(area)
		h.SetModel(func(nodeID int) mobility.Model {
			rng := s.RNG.ForSubsystem(sim.SubsystemMobility(nodeID))
			return mobility.NewRandomWaypoint(speed.MustBuild(rng), pause.MustBuild(rng), area)
		})
	}
	h.Install(s, targets(nodes)...)
	return nil
}

// installGridSource starts the traffic generator and returns a counter of
// the packets it sent.
func installGridSource(s *sim.Simulator, cfg GridConfig, node *network.Node, remote netip.AddrPort) (func() int, error) {
	var a app.Application
	var sent func() int
	switch cfg.Traffic {
	case TrafficBurst:
		b := app.NewBurst(node, remote, cfg.PacketSize, cfg.NumPackets, sim.Seconds(cfg.Interval))
		a, sent = b, b.Sent
	default:
		rng := s.RNG.ForSubsystem(sim.SubsystemApplication(node.ID(), "onoff"))
		on, err := variable("onTime", cfg.OnTime, rng)
		if err != nil {
			return nil, err
		}
		off, err := variable("offTime", offTime(cfg.OffTime, cfg.MeanRate), rng)
		if err != nil {
			return nil, err
		}
		o, err := app.NewOnOff(node, app.OnOffConfig{
			Remote:     remote,
			PacketSize: cfg.PacketSize,
			DataRate:   trafficRate,
			OnTime:     on,
			OffTime:    off,
		})
		if err != nil {
			return nil, err
		}
		a, sent = o, o.Sent
	}
	c := app.NewContainer(s, a)
	if err := c.Start(sim.Seconds(2)); err != nil {
		return nil, err
	}
	if err := c.Stop(sim.Seconds(10)); err != nil {
		return nil, err
	}
	return sent, nil
}

// enableGridTracing opens the ascii, pcap, routing and mobility traces.
func enableGridTracing(s *sim.Simulator, out *outputs, prefix string, domain *routing.Domain,
	nodes []*network.Node, devs []*wifi.Device, recorders *trace.Tee) ([]flusher, error) {
	tr, err := out.create(prefix + ".tr")
	if err != nil {
		return nil, err
	}
	ascii := trace.NewAsciiWriter(tr)
	*recorders = append(*recorders, ascii)

	pcaps, err := wifi.EnablePcap(s, out.dir, prefix, devs...)
	if err != nil {
		return nil, err
	}
	out.add(pcaps...)

	routes, err := out.create(prefix + ".routes")
	if err != nil {
		return nil, err
	}
	domain.PrintRoutingTableAllEvery(dumpInterval, routes)
	neighbors, err := out.create(prefix + ".neighbors")
	if err != nil {
		return nil, err
	}
	domain.PrintNeighborCacheAllEvery(dumpInterval, neighbors)

	mob, err := out.create(prefix + ".mob")
	if err != nil {
		return nil, err
	}
	mw := trace.NewMobilityWriter(mob)
	traceCourseChanges(nodes, func(id int, ev mobility.CourseChangeEvent) {
		mw.CourseChange(ev.Time.Nanoseconds(), id, ev.Position.String(), ev.Velocity.String())
	})
	return []flusher{ascii, mw}, nil
}

// traceCourseChanges connects fn to the mobility model of every node.
func traceCourseChanges(nodes []*network.Node, fn func(nodeID int, ev mobility.CourseChangeEvent)) {
	for _, n := range nodes {
		m := n.Mobility()
		if m == nil {
			continue
		}
		id := n.ID()
		m.CourseChange().Connect(func(ev mobility.CourseChangeEvent) { fn(id, ev) })
	}
}
