package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalRecords  int
	UniquePackets int
	UniqueNodes   int
	BytesSent     int64          // sum of sizes over transmit records
	OpCounts      map[Op]int     // op → number of records
	DropReasons   map[string]int // reason → number of drop records
	NodeTransmits map[int]int    // node → number of transmit records
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		OpCounts:      make(map[Op]int),
		DropReasons:   make(map[string]int),
		NodeTransmits: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalRecords = len(st.Packets)
	uids := make(map[uint64]struct{})
	nodes := make(map[int]struct{})
	for _, r := range st.Packets {
		summary.OpCounts[r.Op]++
		uids[r.UID] = struct{}{}
		nodes[r.Node] = struct{}{}
		switch r.Op {
		case OpTransmit:
			summary.BytesSent += int64(r.Size)
			summary.NodeTransmits[r.Node]++
		case OpDrop:
			summary.DropReasons[r.Reason]++
		}
	}
	summary.UniquePackets = len(uids)
	summary.UniqueNodes = len(nodes)

	return summary
}
