package wifi

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/network"
)

const (
	pcapSnapLen = 65535
	radiotapLen = 8
)

var net48Zero = net.HardwareAddr{0, 0, 0, 0, 0, 0}

// EnablePcap writes a capture file <dir>/<prefix>-<node>-<dev>.pcap for each
// device, with one record per transmitted and received frame. Files are
// flushed and closed when the simulator is destroyed.
func EnablePcap(s *sim.Simulator, dir, prefix string, devs ...*Device) ([]string, error) {
	var paths []string
	for _, d := range devs {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d-%d.pcap", prefix, d.node.ID(), d.index))
		f, err := os.Create(path)
		if err != nil {
			return paths, fmt.Errorf("creating pcap %s: %w", path, err)
		}
		w := pcapgo.NewWriter(f)
		if err := w.WriteFileHeader(pcapSnapLen, layers.LinkTypeIEEE80211Radio); err != nil {
			f.Close()
			return paths, fmt.Errorf("writing pcap header %s: %w", path, err)
		}
		write := func(ev FrameEvent) {
			data, err := encodeFrame(ev)
			if err != nil {
				logrus.Warnf("pcap %s: encoding uid=%d: %v", path, ev.Packet.UID, err)
				return
			}
			ci := gopacket.CaptureInfo{
				Timestamp:     time.Unix(0, ev.Time.Nanoseconds()).UTC(),
				CaptureLength: len(data),
				Length:        len(data),
			}
			if err := w.WritePacket(ci, data); err != nil {
				logrus.Warnf("pcap %s: %v", path, err)
			}
		}
		d.PhyTx.Connect(write)
		d.PhyRx.Connect(write)
		s.OnDestroy(func() {
			if err := f.Close(); err != nil {
				logrus.Warnf("closing pcap %s: %v", path, err)
			}
		})
		paths = append(paths, path)
	}
	return paths, nil
}

// encodeFrame renders a data frame as radiotap + 802.11 + LLC/SNAP + IPv4 +
// UDP (or raw) + zero payload.
func encodeFrame(ev FrameEvent) ([]byte, error) {
	p := ev.Packet
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	dot11 := &layers.Dot11{
		Type:           layers.Dot11TypeData,
		Address1:       ev.To,
		Address2:       ev.From,
		Address3:       net48Zero,
		SequenceNumber: uint16(p.UID & 0x0fff),
	}
	llc := &layers.LLC{DSAP: 0xaa, SSAP: 0xaa, Control: 0x03}
	snap := &layers.SNAP{OrganizationalCode: []byte{0, 0, 0}, Type: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      p.TTL,
		Protocol: layers.IPProtocol(p.Protocol),
		SrcIP:    p.Src.AsSlice(),
		DstIP:    p.Dst.AsSlice(),
		Id:       uint16(p.UID),
	}
	payload := gopacket.Payload(make([]byte, p.PayloadSize))

	var err error
	switch p.Protocol {
	case network.UDP:
		udp := &layers.UDP{SrcPort: layers.UDPPort(p.SrcPort), DstPort: layers.UDPPort(p.DstPort)}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		err = gopacket.SerializeLayers(buf, opts, dot11, llc, snap, ip, udp, payload)
	default:
		err = gopacket.SerializeLayers(buf, opts, dot11, llc, snap, ip, payload)
	}
	if err != nil {
		return nil, err
	}

	hdr, err := buf.PrependBytes(radiotapLen)
	if err != nil {
		return nil, err
	}
	hdr[0], hdr[1] = 0, 0 // version, pad
	binary.LittleEndian.PutUint16(hdr[2:4], radiotapLen)
	binary.LittleEndian.PutUint32(hdr[4:8], 0) // no fields present
	return buf.Bytes(), nil
}
