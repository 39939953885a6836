package flowmon

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/inference-sim/netsim/sim"
)

type xmlMonitor struct {
	XMLName    xml.Name       `xml:"FlowMonitor"`
	RunID      string         `xml:"runId,attr,omitempty"`
	FlowStats  xmlFlowStats   `xml:"FlowStats"`
	Classifier xmlClassifier  `xml:"Ipv4FlowClassifier"`
	Probes     *xmlFlowProbes `xml:"FlowProbes,omitempty"`
}

type xmlFlowStats struct {
	Flows []xmlFlow `xml:"Flow"`
}

type xmlFlow struct {
	FlowID            FlowID         `xml:"flowId,attr"`
	TimeFirstTxPacket string         `xml:"timeFirstTxPacket,attr"`
	TimeFirstRxPacket string         `xml:"timeFirstRxPacket,attr"`
	TimeLastTxPacket  string         `xml:"timeLastTxPacket,attr"`
	TimeLastRxPacket  string         `xml:"timeLastRxPacket,attr"`
	DelaySum          string         `xml:"delaySum,attr"`
	JitterSum         string         `xml:"jitterSum,attr"`
	LastDelay         string         `xml:"lastDelay,attr"`
	TxBytes           uint64         `xml:"txBytes,attr"`
	TxPackets         uint32         `xml:"txPackets,attr"`
	RxBytes           uint64         `xml:"rxBytes,attr"`
	RxPackets         uint32         `xml:"rxPackets,attr"`
	LostPackets       uint32         `xml:"lostPackets,attr"`
	TimesForwarded    uint32         `xml:"timesForwarded,attr"`
	PacketsDropped    []xmlDrop      `xml:"packetsDropped"`
	BytesDropped      []xmlDrop      `xml:"bytesDropped"`
	Histograms        []xmlHistogram `xml:",any"`
}

type xmlDrop struct {
	Reason string `xml:"reasonCode,attr"`
	Number uint64 `xml:"number,attr"`
}

type xmlHistogram struct {
	XMLName xml.Name
	NBins   int      `xml:"nBins,attr"`
	Bins    []xmlBin `xml:"bin"`
}

type xmlBin struct {
	Index int     `xml:"index,attr"`
	Start float64 `xml:"start,attr"`
	Width float64 `xml:"width,attr"`
	Count uint64  `xml:"count,attr"`
}

type xmlClassifier struct {
	Flows []xmlTuple `xml:"Flow"`
}

type xmlTuple struct {
	FlowID          FlowID `xml:"flowId,attr"`
	SourceAddress   string `xml:"sourceAddress,attr"`
	DestinationAddr string `xml:"destinationAddress,attr"`
	Protocol        uint8  `xml:"protocol,attr"`
	SourcePort      uint16 `xml:"sourcePort,attr"`
	DestinationPort uint16 `xml:"destinationPort,attr"`
}

type xmlFlowProbes struct {
	Probes []xmlProbe `xml:"FlowProbe"`
}

type xmlProbe struct {
	Index int            `xml:"index,attr"`
	Stats []xmlProbeFlow `xml:"FlowStats"`
}

type xmlProbeFlow struct {
	FlowID                 FlowID `xml:"flowId,attr"`
	Packets                uint32 `xml:"packets,attr"`
	Bytes                  uint64 `xml:"bytes,attr"`
	DelayFromFirstProbeSum string `xml:"delayFromFirstProbeSum,attr"`
}

func histogram(name string, h *Histogram) xmlHistogram {
	out := xmlHistogram{XMLName: xml.Name{Local: name}, NBins: h.NBins()}
	for _, b := range h.Bins() {
		out.Bins = append(out.Bins, xmlBin{Index: b.Index, Start: b.Start, Width: b.Width, Count: b.Count})
	}
	return out
}

func drops[T uint32 | uint64](m map[string]T) []xmlDrop {
	reasons := make([]string, 0, len(m))
	for r := range m {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	out := make([]xmlDrop, len(reasons))
	for i, r := range reasons {
		out[i] = xmlDrop{Reason: r, Number: uint64(m[r])}
	}
	return out
}

func nanos(t sim.Time) string { return t.NanoString() }

// SerializeToXML checks for lost packets and writes the monitor state.
func (m *Monitor) SerializeToXML(w io.Writer, histograms, probes bool) error {
	m.CheckForLostPackets(0)
	doc := xmlMonitor{RunID: m.RunID}
	for _, id := range m.classifier.Flows() {
		st := m.stats(id)
		pd := make(map[string]uint32, len(st.PacketsDropped))
		for r, n := range st.PacketsDropped {
			pd[string(r)] = n
		}
		bd := make(map[string]uint64, len(st.BytesDropped))
		for r, n := range st.BytesDropped {
			bd[string(r)] = n
		}
		f := xmlFlow{
			FlowID:            id,
			TimeFirstTxPacket: nanos(st.TimeFirstTxPacket),
			TimeFirstRxPacket: nanos(st.TimeFirstRxPacket),
			TimeLastTxPacket:  nanos(st.TimeLastTxPacket),
			TimeLastRxPacket:  nanos(st.TimeLastRxPacket),
			DelaySum:          nanos(st.DelaySum),
			JitterSum:         nanos(st.JitterSum),
			LastDelay:         nanos(st.LastDelay),
			TxBytes:           st.TxBytes,
			TxPackets:         st.TxPackets,
			RxBytes:           st.RxBytes,
			RxPackets:         st.RxPackets,
			LostPackets:       st.LostPackets,
			TimesForwarded:    st.TimesForwarded,
			PacketsDropped:    drops(pd),
			BytesDropped:      drops(bd),
		}
		if histograms {
			f.Histograms = []xmlHistogram{
				histogram("delayHistogram", st.DelayHistogram),
				histogram("jitterHistogram", st.JitterHistogram),
				histogram("packetSizeHistogram", st.PacketSizeHistogram),
			}
		}
		doc.FlowStats.Flows = append(doc.FlowStats.Flows, f)

		t, _ := m.classifier.Tuple(id)
		doc.Classifier.Flows = append(doc.Classifier.Flows, xmlTuple{
			FlowID:          id,
			SourceAddress:   t.Src.String(),
			DestinationAddr: t.Dst.String(),
			Protocol:        uint8(t.Protocol),
			SourcePort:      t.SrcPort,
			DestinationPort: t.DstPort,
		})
	}
	if probes {
		doc.Probes = &xmlFlowProbes{}
		for _, p := range m.Probes() {
			xp := xmlProbe{Index: p.NodeID}
			ids := make([]FlowID, 0, len(p.Flows))
			for id := range p.Flows {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			for _, id := range ids {
				ps := p.Flows[id]
				xp.Stats = append(xp.Stats, xmlProbeFlow{
					FlowID:                 id,
					Packets:                ps.Packets,
					Bytes:                  ps.Bytes,
					DelayFromFirstProbeSum: nanos(ps.DelayFromFirstProbeSum),
				})
			}
			doc.Probes.Probes = append(doc.Probes.Probes, xp)
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding flow monitor xml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// SerializeToXMLFile writes the XML to path.
func (m *Monitor) SerializeToXMLFile(path string, histograms, probes bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := m.SerializeToXML(f, histograms, probes); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
