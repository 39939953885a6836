package trace

// TraceLevel controls the verbosity of packet tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelPackets captures every device-level packet event.
	TraceLevelPackets TraceLevel = "packets"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:    true,
	TraceLevelPackets: true,
	"":                true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// MaxRecords caps the number of retained records; 0 means unlimited.
	MaxRecords int
}

// SimulationTrace collects packet records in memory during a run.
type SimulationTrace struct {
	Config  TraceConfig
	Packets []PacketRecord
	// Dropped counts records discarded because MaxRecords was reached.
	Dropped int
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:  config,
		Packets: make([]PacketRecord, 0),
	}
}

// RecordPacket appends a packet record.
func (st *SimulationTrace) RecordPacket(record PacketRecord) {
	if st.Config.Level == TraceLevelNone || st.Config.Level == "" {
		return
	}
	if st.Config.MaxRecords > 0 && len(st.Packets) >= st.Config.MaxRecords {
		st.Dropped++
		return
	}
	st.Packets = append(st.Packets, record)
}
