package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inference-sim/netsim/sim/flowmon"
	"github.com/inference-sim/netsim/sim/scenario"
	"github.com/inference-sim/netsim/sim/wifi"
)

// gridCmd runs the ad-hoc grid scenario.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Run the ad-hoc grid scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := scenario.DefaultGridConfig()
		settings := struct {
			Grid *scenario.GridConfig `mapstructure:"grid"`
		}{&cfg}
		if err := v.Unmarshal(&settings); err != nil {
			return fmt.Errorf("decoding grid settings: %w", err)
		}
		cfg.Seed = v.GetInt64("seed")
		cfg.OutDir = v.GetString("out-dir")
		res, err := scenario.RunGrid(cfg)
		if err != nil {
			return err
		}
		return report(cmd, res)
	},
}

// report prints the run summary and the flow statistics.
func report(cmd *cobra.Command, res *scenario.Result) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s: %d events, ended at %v\n", res.RunID, res.Stats.Executed, res.Stats.EndTime)
	fmt.Fprintf(w, "Sent %d packets, sink received %d packets (%d bytes)\n", res.SourceSent, res.SinkPackets, res.SinkBytes)
	if res.Trace != nil {
		fmt.Fprintf(w, "Trace: %d records, %d unique packets, %d bytes transmitted\n",
			res.Trace.TotalRecords, res.Trace.UniquePackets, res.Trace.BytesSent)
	}
	return flowmon.PrintSummaries(w, res.Flows)
}

func init() {
	d := scenario.DefaultGridConfig()
	f := gridCmd.Flags()
	f.StringVar(&d.PhyMode, "phyMode", d.PhyMode, fmt.Sprintf("Wifi phy mode (%v)", wifi.PhyModeNames()))
	f.Float64Var(&d.Distance, "distance", d.Distance, "Grid spacing in meters")
	f.IntVar(&d.PacketSize, "packetSize", d.PacketSize, "Size of application packets in bytes")
	f.IntVar(&d.NumPackets, "numPackets", d.NumPackets, "Number of packets generated by burst traffic")
	f.Float64Var(&d.Interval, "interval", d.Interval, "Interval between burst packets in seconds")
	f.BoolVar(&d.Verbose, "verbose", d.Verbose, "Turn on all wifi log components")
	f.BoolVar(&d.Tracing, "tracing", d.Tracing, "Turn on ascii, pcap, routing and mobility tracing")
	f.IntVar(&d.NumNodes, "numNodes", d.NumNodes, "Number of nodes")
	f.IntVar(&d.SinkNode, "sinkNode", d.SinkNode, "Receiver node number")
	f.IntVar(&d.SourceNode, "sourceNode", d.SourceNode, "Sender node number")
	f.Float64Var(&d.MeanRate, "meanPacketsPerSecond", d.MeanRate, "Mean OnOff packets per second")
	f.StringVar(&d.Mobility, "mobility", d.Mobility, "Mobility mode (waypoint, grid)")
	f.StringVar(&d.Traffic, "traffic", d.Traffic, "Traffic kind (onoff, burst)")
	f.Float64Var(&d.Range, "range", d.Range, "Radio range in meters (0 for the channel default)")
	f.Float64Var(&d.StopTime, "stopTime", d.StopTime, "Simulation stop time in seconds")
	f.StringVar(&d.TraceLevel, "traceLevel", d.TraceLevel, "In-memory trace level (none, packets)")
	f.StringVar(&d.Prefix, "prefix", d.Prefix, "Prefix of trace file names")
	f.StringVar(&d.RunID, "runId", d.RunID, "Run identifier (random when empty)")
	f.StringVar(&d.Speed, "speed", d.Speed, "Random waypoint speed in m/s (random variable)")
	f.StringVar(&d.Pause, "pause", d.Pause, "Random waypoint pause in seconds (random variable)")
	f.StringVar(&d.OnTime, "onTime", d.OnTime, "OnOff on period in seconds (random variable)")
	f.StringVar(&d.OffTime, "offTime", d.OffTime, "OnOff off period in seconds (random variable, exponential from meanPacketsPerSecond when empty)")
	bindFlags("grid", f)
}
