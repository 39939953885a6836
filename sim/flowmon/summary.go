package flowmon

import (
	"fmt"
	"io"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Summary condenses one flow for reporting.
type Summary struct {
	FlowID     FlowID
	Tuple      FiveTuple
	TxPackets  uint32
	RxPackets  uint32
	Lost       uint32 // TxPackets - RxPackets
	LossRatio  float64
	MeanDelay  float64 // seconds
	P95Delay   float64 // seconds
	MeanJitter float64 // seconds
	Throughput float64 // received bits per second between first tx and last rx
	Forwarded  uint32
}

// Summaries returns one Summary per flow in flow ID order.
func (m *Monitor) Summaries() []Summary {
	var out []Summary
	for _, id := range m.classifier.Flows() {
		st := m.stats(id)
		t, _ := m.classifier.Tuple(id)
		s := Summary{
			FlowID:    id,
			Tuple:     t,
			TxPackets: st.TxPackets,
			RxPackets: st.RxPackets,
			Forwarded: st.TimesForwarded,
		}
		if st.TxPackets > st.RxPackets {
			s.Lost = st.TxPackets - st.RxPackets
		}
		if st.TxPackets > 0 {
			s.LossRatio = float64(s.Lost) / float64(st.TxPackets)
		}
		if len(st.delays) > 0 {
			sorted := slices.Clone(st.delays)
			slices.Sort(sorted)
			s.MeanDelay = stat.Mean(sorted, nil)
			s.P95Delay = stat.Quantile(0.95, stat.Empirical, sorted, nil)
		}
		if st.RxPackets > 1 {
			s.MeanJitter = st.JitterSum.Seconds() / float64(st.RxPackets-1)
		}
		if span := (st.TimeLastRxPacket - st.TimeFirstTxPacket).Seconds(); st.RxPackets > 0 && span > 0 {
			s.Throughput = float64(st.RxBytes*8) / span
		}
		out = append(out, s)
	}
	return out
}

// Print writes a human readable table of the flow summaries.
func (m *Monitor) Print(w io.Writer) error {
	return PrintSummaries(w, m.Summaries())
}

// PrintSummaries writes ss in the format of Monitor.Print.
func PrintSummaries(w io.Writer, ss []Summary) error {
	for _, s := range ss {
		_, err := fmt.Fprintf(w,
			"Flow %d (%s:%d -> %s:%d %s)\n  Tx Packets: %d\n  Rx Packets: %d\n  Lost Packets: %d (%.2f%%)\n  Mean Delay: %.6f s\n  P95 Delay: %.6f s\n  Mean Jitter: %.6f s\n  Throughput: %.3f kbps\n  Times Forwarded: %d\n",
			s.FlowID, s.Tuple.Src, s.Tuple.SrcPort, s.Tuple.Dst, s.Tuple.DstPort, s.Tuple.Protocol,
			s.TxPackets, s.RxPackets, s.Lost, 100*s.LossRatio,
			s.MeanDelay, s.P95Delay, s.MeanJitter, s.Throughput/1e3, s.Forwarded)
		if err != nil {
			return err
		}
	}
	return nil
}
