package flowmon

import (
	"math"
	"sort"
)

// Histogram counts samples in fixed-width bins starting at zero.
type Histogram struct {
	BinWidth float64
	counts   map[int]uint64
}

func NewHistogram(width float64) *Histogram {
	return &Histogram{BinWidth: width, counts: make(map[int]uint64)}
}

func (h *Histogram) Add(v float64) {
	if v < 0 {
		v = 0
	}
	h.counts[int(math.Floor(v/h.BinWidth))]++
}

// NBins is one past the highest occupied bin index.
func (h *Histogram) NBins() int {
	n := 0
	for i := range h.counts {
		if i+1 > n {
			n = i + 1
		}
	}
	return n
}

// Bin is one occupied histogram bin.
type Bin struct {
	Index int
	Start float64
	Width float64
	Count uint64
}

// Bins returns the occupied bins in index order.
func (h *Histogram) Bins() []Bin {
	idx := make([]int, 0, len(h.counts))
	for i := range h.counts {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]Bin, len(idx))
	for k, i := range idx {
		out[k] = Bin{Index: i, Start: float64(i) * h.BinWidth, Width: h.BinWidth, Count: h.counts[i]}
	}
	return out
}
