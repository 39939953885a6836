package scenario

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"

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

// ErrStopTimeTooShort is returned for mixed runs shorter than ten seconds.
var ErrStopTimeTooShort = errors.New("Use a simulation stop time >= 10 seconds")

const (
	mixedPhyMode  = "OfdmRate54Mbps"
	mixedPort     = 9
	backboneBase  = "192.168.0.0"
	lanBase       = "172.16.0.0"
	mixedMask     = "255.255.255.0"
	mixedPrefix   = "mixed-wireless"
	mixedAnimFile = "uno.xml"
)

// MixedConfig configures the backbone scenario.
type MixedConfig struct {
	BackboneNodes           int     `mapstructure:"backboneNodes"`
	InfraNodes              int     `mapstructure:"infraNodes"`
	LanNodes                int     `mapstructure:"lanNodes"`
	StopTime                float64 `mapstructure:"stopTime"`
	UseCourseChangeCallback bool    `mapstructure:"useCourseChangeCallback"`
	PacketSize              int     `mapstructure:"packetSize"`
	MeanRate                float64 `mapstructure:"meanPacketsPerSecond"`
	Tracing                 bool    `mapstructure:"tracing"`
	Range                   float64 `mapstructure:"range"`
	TraceLevel              string  `mapstructure:"traceLevel"`
	OutDir                  string  `mapstructure:"outDir"`
	RunID                   string  `mapstructure:"runId"`
	Seed                    int64   `mapstructure:"seed"`

	// Random variable descriptions of the backbone mobility and the OnOff
	// source; an empty OffTime is exponential with mean 1/meanPacketsPerSecond.
	Speed   string `mapstructure:"speed"`
	Pause   string `mapstructure:"pause"`
	OnTime  string `mapstructure:"onTime"`
	OffTime string `mapstructure:"offTime"`

	// Layout orders the backbone and LAN grids: RowFirst or ColumnFirst.
	Layout string `mapstructure:"layout"`

	// CourseChanges receives the course change lines; stdout when nil.
	CourseChanges io.Writer `mapstructure:"-"`
}

// DefaultMixedConfig returns ten backbone nodes with one station each and
// file tracing off.
func DefaultMixedConfig() MixedConfig {
	return MixedConfig{
		BackboneNodes: 10,
		InfraNodes:    2,
		LanNodes:      2,
		StopTime:      20,
		PacketSize:    1000,
		MeanRate:      10,
		TraceLevel:    string(trace.TraceLevelNone),
		OutDir:        ".",
		Speed:         "ns3::ConstantRandomVariable[Constant=2]",
		Pause:         "ns3::ConstantRandomVariable[Constant=0.2]",
		OnTime:        "ns3::ConstantRandomVariable[Constant=0]",
		Layout:        "RowFirst",
	}
}

// Validate reports the first inconsistent setting.
func (c MixedConfig) Validate() error {
	if c.StopTime < 10 {
		return ErrStopTimeTooShort
	}
	if c.BackboneNodes < 1 {
		return fmt.Errorf("backboneNodes must be at least 1, got %d", c.BackboneNodes)
	}
	if c.LanNodes <= 1 || c.InfraNodes <= 1 {
		return fmt.Errorf("lanNodes and infraNodes must both be greater than 1, got %d and %d", c.LanNodes, c.InfraNodes)
	}
	if c.PacketSize <= 0 {
		return fmt.Errorf("packetSize must be positive, got %d", c.PacketSize)
	}
	if c.MeanRate <= 0 {
		return fmt.Errorf("meanPacketsPerSecond must be positive, got %g", c.MeanRate)
	}
	if c.Range < 0 {
		return fmt.Errorf("range must not be negative, got %g", c.Range)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	if _, err := mobility.ParseLayout(c.Layout); err != nil {
		return err
	}
	return checkVariables(
		namedVariable{"speed", c.Speed},
		namedVariable{"pause", c.Pause},
		namedVariable{"onTime", c.OnTime},
		namedVariable{"offTime", offTime(c.OffTime, c.MeanRate)},
	)
}

// stationsPerLAN is the number of nodes created for each backbone LAN; the
// backbone node itself is the remaining member.
func (c MixedConfig) stationsPerLAN() int { return c.InfraNodes - 1 }

// SinkNodeID is the index of the last node created.
func (c MixedConfig) SinkNodeID() int {
	return c.BackboneNodes + c.BackboneNodes*c.stationsPerLAN() - 1
}

// mixedGrid is the placement used for the backbone and, relative to each
// backbone node, for its stations.
func mixedGrid(layout mobility.Layout) *mobility.Grid {
	return &mobility.Grid{MinX: 20, MinY: 20, DeltaX: 20, DeltaY: 20, GridWidth: 5, Layout: layout}
}

func mixedDirection(s *sim.Simulator, cfg MixedConfig) (mobility.Factory, error) {
	speed, err := random.Parse(cfg.Speed)
	if err != nil {
		return nil, fmt.Errorf("speed: %w", err)
	}
	pause, err := random.Parse(cfg.Pause)
	if err != nil {
		return nil, fmt.Errorf("pause: %w", err)
	}
	bounds := mobility.Rectangle{XMin: -500, XMax: 500, YMin: -500, YMax: 500}
	return func(nodeID int) mobility.Model {
		rng := s.RNG.ForSubsystem(sim.SubsystemMobility(nodeID))
		return mobility.NewRandomDirection2D(bounds, speed.MustBuild(rng), pause.MustBuild(rng), random.NewUniform(0, 1, rng))
	}, nil
}

// RunMixed builds and runs the backbone scenario: an ad-hoc backbone with one
// infrastructure LAN per backbone node, and a flow from the first station of
// the first LAN to the last station of the last LAN.
func RunMixed(cfg MixedConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
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
	log := logrus.WithFields(logrus.Fields{"scenario": "mixed", "run": id})

	helper, err := wifi.NewHelper(mixedPhyMode)
	if err != nil {
		return nil, err
	}
	domain := routing.NewDomain(s)
	useLinkState := func(nodes []*network.Node) {
		for _, n := range nodes {
			n.SetRouting(routing.NewLinkState(domain))
		}
	}

	backbone := nw.CreateNodes(cfg.BackboneNodes)
	backboneDevs := helper.Install(s, wifi.NewChannel(s, cfg.Range), backbone...)
	useLinkState(backbone)
	var addrs network.AddressHelper
	if err := addrs.SetBase(backboneBase, mixedMask); err != nil {
		return nil, err
	}
	if _, err := addrs.Assign(wifi.NetDevices(backboneDevs)...); err != nil {
		return nil, err
	}

	layout, err := mobility.ParseLayout(cfg.Layout)
	if err != nil {
		return nil, err
	}
	direction, err := mixedDirection(s, cfg)
	if err != nil {
		return nil, err
	}
	mob := mobility.NewHelper()
	mob.SetPositionAllocator(mixedGrid(layout))
	mob.SetModel(direction)
	backboneModels := mob.Install(s, targets(backbone)...)

	if err := addrs.SetBase(lanBase, mixedMask); err != nil {
		return nil, err
	}
	allDevs := append([]*wifi.Device(nil), backboneDevs...)
	for i, bb := range backbone {
		log.Debugf("Configuring local area network for backbone node %d", i)
		stas := nw.CreateNodes(cfg.stationsPerLAN())
		members := append([]*network.Node{bb}, stas...)
		lanDevs := helper.Install(s, wifi.NewChannel(s, cfg.Range), members...)
		useLinkState(stas)
		if _, err := addrs.Assign(wifi.NetDevices(lanDevs)...); err != nil {
			return nil, err
		}
		addrs.NewNetwork()
		allDevs = append(allDevs, lanDevs...)

		mob.PushReference(backboneModels[i])
		mob.SetPositionAllocator(mixedGrid(layout))
		mob.Install(s, targets(stas)...)
		mob.PopReference()
	}
	domain.Start()

	nodes := nw.Nodes()
	source, sinkNode := nodes[cfg.BackboneNodes], nodes[cfg.SinkNodeID()]
	remote := netip.AddrPortFrom(sinkNode.Address(1), mixedPort)
	rng := s.RNG.ForSubsystem(sim.SubsystemApplication(source.ID(), "onoff"))
	on, err := variable("onTime", cfg.OnTime, rng)
	if err != nil {
		return nil, err
	}
	off, err := variable("offTime", offTime(cfg.OffTime, cfg.MeanRate), rng)
	if err != nil {
		return nil, err
	}
	onoff, err := app.NewOnOff(source, app.OnOffConfig{
		Remote:     remote,
		PacketSize: cfg.PacketSize,
		DataRate:   trafficRate,
		OnTime:     on,
		OffTime:    off,
	})
	if err != nil {
		return nil, err
	}
	sources := app.NewContainer(s, onoff)
	if err := sources.Start(sim.Seconds(3)); err != nil {
		return nil, err
	}
	if err := sources.Stop(sim.Seconds(cfg.StopTime - 1)); err != nil {
		return nil, err
	}
	sink := app.NewPacketSink(sinkNode, mixedPort)
	if err := app.NewContainer(s, sink).Start(sim.Seconds(3)); err != nil {
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
		tr, err := out.create(mixedPrefix + ".tr")
		if err != nil {
			return nil, err
		}
		ascii := trace.NewAsciiWriter(tr)
		recorders = append(recorders, ascii)
		flush = append(flush, ascii)

		captured := append([]*wifi.Device(nil), backboneDevs...)
		if d, ok := sinkNode.Devices()[0].(*wifi.Device); ok {
			captured = append(captured, d)
		}
		pcaps, err := wifi.EnablePcap(s, out.dir, mixedPrefix, captured...)
		if err != nil {
			return nil, err
		}
		out.add(pcaps...)
	}
	if len(recorders) > 0 {
		wifi.EnableAscii(recorders, allDevs...)
	}

	if cfg.UseCourseChangeCallback {
		w := cfg.CourseChanges
		if w == nil {
			w = os.Stdout
		}
		traceCourseChanges(nodes, func(nodeID int, ev mobility.CourseChangeEvent) {
			fmt.Fprintf(w, "CourseChange /NodeList/%d/$ns3::MobilityModel/CourseChange x=%v, y=%v, z=%v\n",
				nodeID, ev.Position.X, ev.Position.Y, ev.Position.Z)
		})
	}

	animPath := out.path(mixedAnimFile)
	animation, err := anim.NewInterface(s, nw, animPath)
	if err != nil {
		return nil, err
	}
	animation.RunID = id
	out.add(animPath)

	monitor := flowmon.NewMonitor(s)
	monitor.RunID = id
	monitor.InstallAll(nw)

	log.Infof("Run Simulation: %d nodes, flow %v -> %v", len(nodes), source.Address(1), remote)
	s.Stop(sim.Seconds(cfg.StopTime))
	stats := s.Run()
	monitor.CheckForLostPackets(flowmon.DefaultMaxPerHopDelay)
	s.Destroy()
	if err := out.finish(flush...); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       id,
		Stats:       stats,
		SinkPackets: sink.Packets(),
		SinkBytes:   sink.TotalRx(),
		SourceSent:  onoff.Sent(),
		Flows:       monitor.Summaries(),
		Files:       out.paths,
	}
	if memTrace != nil {
		res.Trace = trace.Summarize(memTrace)
	}
	logRun("mixed", id, res)
	return res, nil
}
