package routing

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/netsim/sim"
)

// PrintRoutingTableAllEvery writes every member's table to w at interval,
// 2*interval, and so on until the simulation stops.
func (d *Domain) PrintRoutingTableAllEvery(interval sim.Time, w io.Writer) {
	d.every(interval, w, d.WriteRoutingTables)
}

// PrintNeighborCacheAllEvery writes every member's neighbor set to w at
// interval, 2*interval, and so on.
func (d *Domain) PrintNeighborCacheAllEvery(interval sim.Time, w io.Writer) {
	d.every(interval, w, d.WriteNeighborCaches)
}

func (d *Domain) every(interval sim.Time, w io.Writer, dump func(io.Writer) error) {
	var tick func()
	tick = func() {
		if err := dump(w); err != nil {
			logrus.Warnf("[%v] routing dump: %v", d.sim.Now(), err)
			return
		}
		d.sim.ScheduleFunc(interval, tick)
	}
	d.sim.ScheduleFunc(interval, tick)
}

// WriteRoutingTables dumps all tables once.
func (d *Domain) WriteRoutingTables(w io.Writer) error {
	bw := bufio.NewWriter(w)
	now := d.sim.Now()
	for _, m := range d.members {
		fmt.Fprintf(bw, "Node: %d, Time: %v, Link-state routing table\n", m.node.ID(), now)
		fmt.Fprintf(bw, "Destination\t\tNextHop\t\tInterface\tDistance\n")
		for _, e := range m.Table() {
			fmt.Fprintf(bw, "%s\t\t%s\t\t%d\t\t%d\n", e.Destination, e.NextHop, e.Interface, e.Distance)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteNeighborCaches dumps all neighbor sets once.
func (d *Domain) WriteNeighborCaches(w io.Writer) error {
	bw := bufio.NewWriter(w)
	now := d.sim.Now()
	for _, m := range d.members {
		fmt.Fprintf(bw, "Neighbor cache of node %d at time %v\n", m.node.ID(), now)
		for _, nb := range m.Neighbors() {
			fmt.Fprintf(bw, "%s dev %d lladdr %s REACHABLE\n", nb.Addr, nb.Interface, nb.MAC)
		}
	}
	return bw.Flush()
}
