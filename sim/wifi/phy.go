// Package wifi is a placeholder 802.11 physical layer: a reception-range
// disk, a constant propagation speed and a per-mode transmission time.
// There is no interference model and frames never collide.
package wifi

import (
	"fmt"
	"math"
	"sort"

	"github.com/inference-sim/netsim/sim"
)

// PhyMode is a fixed transmission rate with its preamble duration.
type PhyMode struct {
	Name     string
	DataRate float64 // bits per second
	Preamble sim.Time
}

var phyModes = map[string]PhyMode{}

func init() {
	for _, m := range []struct {
		name string
		mbps float64
		pre  sim.Time
	}{
		{"DsssRate1Mbps", 1, 192 * sim.Microsecond},
		{"DsssRate2Mbps", 2, 192 * sim.Microsecond},
		{"DsssRate5_5Mbps", 5.5, 192 * sim.Microsecond},
		{"DsssRate11Mbps", 11, 192 * sim.Microsecond},
		{"OfdmRate6Mbps", 6, 20 * sim.Microsecond},
		{"OfdmRate9Mbps", 9, 20 * sim.Microsecond},
		{"OfdmRate12Mbps", 12, 20 * sim.Microsecond},
		{"OfdmRate18Mbps", 18, 20 * sim.Microsecond},
		{"OfdmRate24Mbps", 24, 20 * sim.Microsecond},
		{"OfdmRate36Mbps", 36, 20 * sim.Microsecond},
		{"OfdmRate48Mbps", 48, 20 * sim.Microsecond},
		{"OfdmRate54Mbps", 54, 20 * sim.Microsecond},
	} {
		phyModes[m.name] = PhyMode{Name: m.name, DataRate: m.mbps * 1e6, Preamble: m.pre}
	}
}

// LookupPhyMode returns the mode with the given name.
func LookupPhyMode(name string) (PhyMode, error) {
	m, ok := phyModes[name]
	if !ok {
		return PhyMode{}, fmt.Errorf("unknown phy mode %q (valid: %v)", name, PhyModeNames())
	}
	return m, nil
}

// PhyModeNames lists the supported modes in sorted order.
func PhyModeNames() []string {
	names := make([]string, 0, len(phyModes))
	for n := range phyModes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TxDuration is the airtime of a frame of the given size.
func (m PhyMode) TxDuration(bytes int) sim.Time {
	payload := sim.Time(math.Ceil(float64(bytes*8) * 1e9 / m.DataRate))
	return m.Preamble + payload
}
