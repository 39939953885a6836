// Package trace provides packet-trace recording and the text trace formats.
// This package has no dependencies on sim/ or its sub-packages; it stores pure data types.
package trace

// Op is the ascii trace operation code.
type Op byte

const (
	OpEnqueue  Op = '+'
	OpDequeue  Op = '-'
	OpTransmit Op = 't'
	OpReceive  Op = 'r'
	OpDrop     Op = 'd'
)

func (o Op) String() string { return string(rune(o)) }

// PacketRecord captures a single packet event on a device.
type PacketRecord struct {
	Op      Op
	Clock   int64 // nanoseconds
	Node    int
	Device  int
	UID     uint64
	Size    int    // bytes on the wire including link overhead
	Summary string // human readable header summary
	Reason  string // drop reason; empty unless Op is OpDrop
}

// Recorder consumes packet records.
type Recorder interface {
	RecordPacket(PacketRecord)
}

// Tee forwards every record to each of its recorders in order.
type Tee []Recorder

func (t Tee) RecordPacket(r PacketRecord) {
	for _, rec := range t {
		rec.RecordPacket(r)
	}
}
