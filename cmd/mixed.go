package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inference-sim/netsim/sim/scenario"
)

// mixedCmd runs the backbone scenario with one LAN per backbone node.
var mixedCmd = &cobra.Command{
	Use:   "mixed",
	Short: "Run the mixed backbone and LAN scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := scenario.DefaultMixedConfig()
		settings := struct {
			Mixed *scenario.MixedConfig `mapstructure:"mixed"`
		}{&cfg}
		if err := v.Unmarshal(&settings); err != nil {
			return fmt.Errorf("decoding mixed settings: %w", err)
		}
		cfg.Seed = v.GetInt64("seed")
		cfg.OutDir = v.GetString("out-dir")
		cfg.CourseChanges = cmd.OutOrStdout()
		res, err := scenario.RunMixed(cfg)
		if err != nil {
			return err
		}
		return report(cmd, res)
	},
}

func init() {
	d := scenario.DefaultMixedConfig()
	f := mixedCmd.Flags()
	f.IntVar(&d.BackboneNodes, "backboneNodes", d.BackboneNodes, "number of backbone nodes")
	f.IntVar(&d.InfraNodes, "infraNodes", d.InfraNodes, "number of leaf nodes")
	f.IntVar(&d.LanNodes, "lanNodes", d.LanNodes, "number of LAN nodes")
	f.Float64Var(&d.StopTime, "stopTime", d.StopTime, "simulation stop time (seconds)")
	f.BoolVar(&d.UseCourseChangeCallback, "useCourseChangeCallback", d.UseCourseChangeCallback, "whether to enable course change tracing")
	f.IntVar(&d.PacketSize, "packetSize", d.PacketSize, "Size of application packets in bytes")
	f.Float64Var(&d.MeanRate, "meanPacketsPerSecond", d.MeanRate, "Mean OnOff packets per second")
	f.BoolVar(&d.Tracing, "tracing", d.Tracing, "Turn on ascii and pcap tracing")
	f.Float64Var(&d.Range, "range", d.Range, "Radio range in meters (0 for the channel default)")
	f.StringVar(&d.TraceLevel, "traceLevel", d.TraceLevel, "In-memory trace level (none, packets)")
	f.StringVar(&d.RunID, "runId", d.RunID, "Run identifier (random when empty)")
	f.StringVar(&d.Speed, "speed", d.Speed, "Backbone speed in m/s (random variable)")
	f.StringVar(&d.Pause, "pause", d.Pause, "Backbone pause in seconds (random variable)")
	f.StringVar(&d.OnTime, "onTime", d.OnTime, "OnOff on period in seconds (random variable)")
	f.StringVar(&d.OffTime, "offTime", d.OffTime, "OnOff off period in seconds (random variable, exponential from meanPacketsPerSecond when empty)")
	f.StringVar(&d.Layout, "layout", d.Layout, "Grid layout of backbone and LAN nodes (RowFirst, ColumnFirst)")
	bindFlags("mixed", f)
}
