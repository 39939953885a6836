package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// AsciiWriter writes packet records as ns-2 style text lines:
//
//	<op> <seconds> /NodeList/<node>/DeviceList/<dev> <summary> [reason]
type AsciiWriter struct {
	w   *bufio.Writer
	err error
}

func NewAsciiWriter(w io.Writer) *AsciiWriter {
	return &AsciiWriter{w: bufio.NewWriter(w)}
}

// RecordPacket writes one line. The first write error is kept and returned by Flush.
func (a *AsciiWriter) RecordPacket(r PacketRecord) {
	if a.err != nil {
		return
	}
	line := fmt.Sprintf("%c %s /NodeList/%d/DeviceList/%d %s",
		byte(r.Op), formatSeconds(r.Clock), r.Node, r.Device, r.Summary)
	if r.Op == OpDrop && r.Reason != "" {
		line += " reason=" + r.Reason
	}
	_, a.err = a.w.WriteString(line + "\n")
}

func (a *AsciiWriter) Flush() error {
	if a.err != nil {
		return a.err
	}
	return a.w.Flush()
}

func formatSeconds(ns int64) string {
	return strconv.FormatFloat(float64(ns)/1e9, 'f', 9, 64)
}

// MobilityWriter writes one line per course change:
//
//	now=+<ns>ns node=<id> pos=x:y:z vel=x:y:z
type MobilityWriter struct {
	w   *bufio.Writer
	err error
}

func NewMobilityWriter(w io.Writer) *MobilityWriter {
	return &MobilityWriter{w: bufio.NewWriter(w)}
}

// CourseChange records a change of velocity. pos and vel are preformatted
// "x:y:z" strings.
func (m *MobilityWriter) CourseChange(clock int64, node int, pos, vel string) {
	if m.err != nil {
		return
	}
	_, m.err = fmt.Fprintf(m.w, "now=%+dns node=%d pos=%s vel=%s\n", clock, node, pos, vel)
}

func (m *MobilityWriter) Flush() error {
	if m.err != nil {
		return m.err
	}
	return m.w.Flush()
}
