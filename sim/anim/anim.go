// Package anim writes an animation trace: node descriptors, position
// updates on every course change and one record per received frame.
package anim

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/mobility"
	"github.com/inference-sim/netsim/sim/network"
	"github.com/inference-sim/netsim/sim/wifi"
)

// Version is written in the root element.
const Version = "netanim-3.108"

// DefaultMaxPackets caps the number of packet records.
const DefaultMaxPackets = 100000

type txKey struct {
	uid  uint64
	from *wifi.Device
}

// Interface streams the animation XML of one simulation.
type Interface struct {
	sim  *sim.Simulator
	net  *network.Network
	w    *bufio.Writer
	c    io.Closer
	err  error
	path string

	MaxPackets int
	// RunID is written as an info record when set before the simulation starts.
	RunID string

	packets int
	started bool
	closed  bool
	txStart map[txKey]sim.Time
	lastTx  map[*wifi.Device]uint64
}

// NewInterface creates path and schedules the animation start at the
// current time. The file is completed when the simulator is destroyed.
func NewInterface(s *sim.Simulator, nw *network.Network, path string) (*Interface, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating animation file %s: %w", path, err)
	}
	a := newInterface(s, nw, f, f)
	a.path = path
	return a, nil
}

// NewInterfaceWriter is NewInterface over an arbitrary writer.
func NewInterfaceWriter(s *sim.Simulator, nw *network.Network, w io.Writer) *Interface {
	return newInterface(s, nw, w, nil)
}

func newInterface(s *sim.Simulator, nw *network.Network, w io.Writer, c io.Closer) *Interface {
	a := &Interface{
		sim:        s,
		net:        nw,
		w:          bufio.NewWriter(w),
		c:          c,
		MaxPackets: DefaultMaxPackets,
		txStart:    make(map[txKey]sim.Time),
		lastTx:     make(map[*wifi.Device]uint64),
	}
	s.ScheduleNow(a.start)
	s.OnDestroy(func() {
		if err := a.Close(); err != nil {
			logrus.Warnf("animation %s: %v", a.path, err)
		}
	})
	return a
}

// SetConstantPosition moves node to (x, y). A node without a mobility
// model gets a ConstantPosition one.
func (a *Interface) SetConstantPosition(node *network.Node, x, y float64) {
	p := mobility.Vector{X: x, Y: y}
	if m := node.Mobility(); m != nil {
		m.SetPosition(a.sim.Now(), p)
		return
	}
	node.SetMobility(mobility.NewConstantPosition(p))
}

// PacketsWritten is the number of packet records emitted.
func (a *Interface) PacketsWritten() int { return a.packets }

func (a *Interface) printf(format string, args ...any) {
	if a.err != nil || a.closed {
		return
	}
	_, a.err = fmt.Fprintf(a.w, format, args...)
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func (a *Interface) start() {
	a.started = true
	a.printf("<anim ver=\"%s\" filetype=\"animation\" >\n", Version)
	if a.RunID != "" {
		a.printf("<info runId=\"%s\" />\n", html.EscapeString(a.RunID))
	}
	for _, n := range a.net.Nodes() {
		pos := n.Position()
		a.printf("<node id=\"%d\" sysId=\"0\" locX=\"%s\" locY=\"%s\" />\n", n.ID(), ftoa(pos.X), ftoa(pos.Y))
	}
	for _, n := range a.net.Nodes() {
		n := n
		if m := n.Mobility(); m != nil {
			m.CourseChange().Connect(func(ev mobility.CourseChangeEvent) { a.courseChange(n, ev) })
		}
		for _, d := range n.Devices() {
			dev, ok := d.(*wifi.Device)
			if !ok {
				continue
			}
			dev.PhyTx.Connect(a.phyTx)
			dev.PhyRx.Connect(a.phyRx)
		}
	}
}

func (a *Interface) courseChange(n *network.Node, ev mobility.CourseChangeEvent) {
	a.printf("<nu p=\"p\" t=\"%s\" id=\"%d\" x=\"%s\" y=\"%s\" />\n",
		ftoa(ev.Time.Seconds()), n.ID(), ftoa(ev.Position.X), ftoa(ev.Position.Y))
}

// phyTx keeps one start time per device: receptions of a frame end before
// its sender can transmit again.
func (a *Interface) phyTx(ev wifi.FrameEvent) {
	if uid, ok := a.lastTx[ev.Device]; ok {
		delete(a.txStart, txKey{uid: uid, from: ev.Device})
	}
	a.lastTx[ev.Device] = ev.Packet.UID
	a.txStart[txKey{uid: ev.Packet.UID, from: ev.Device}] = ev.Time
}

func (a *Interface) phyRx(ev wifi.FrameEvent) {
	if a.MaxPackets > 0 && a.packets >= a.MaxPackets {
		return
	}
	from := a.sender(ev)
	if from == nil {
		return
	}
	fbTx, ok := a.txStart[txKey{uid: ev.Packet.UID, from: from}]
	if !ok {
		return
	}
	airtime := from.Mode().TxDuration(ev.Size)
	a.packets++
	a.printf("<p fId=\"%d\" fbTx=\"%s\" lbTx=\"%s\" tId=\"%d\" fbRx=\"%s\" lbRx=\"%s\" />\n",
		from.Node().ID(),
		ftoa(fbTx.Seconds()), ftoa((fbTx + airtime).Seconds()),
		ev.Device.Node().ID(),
		ftoa((ev.Time - airtime).Seconds()), ftoa(ev.Time.Seconds()))
}

// sender finds the transmitting device on the receiver's channel by MAC.
func (a *Interface) sender(ev wifi.FrameEvent) *wifi.Device {
	for _, d := range ev.Device.Channel().Devices() {
		if dev, ok := d.(*wifi.Device); ok && dev.MAC().String() == ev.From.String() {
			return dev
		}
	}
	return nil
}

// Close writes the closing tag, flushes and closes the file. It is safe to
// call more than once.
func (a *Interface) Close() error {
	if a.closed {
		return a.err
	}
	if a.started {
		a.printf("</anim>\n")
	}
	a.closed = true
	if a.err == nil {
		a.err = a.w.Flush()
	}
	if a.c != nil {
		if err := a.c.Close(); err != nil && a.err == nil {
			a.err = err
		}
	}
	return a.err
}
