package mobility

import (
	"fmt"

	"github.com/inference-sim/netsim/sim/random"
)

// PositionAllocator hands out initial positions, one per call.
type PositionAllocator interface {
	Next() Vector
}

// Layout selects the fill order of a Grid.
type Layout int

const (
	RowFirst Layout = iota
	ColumnFirst
)

// ParseLayout accepts "RowFirst" or "ColumnFirst".
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "RowFirst", "row-first", "row":
		return RowFirst, nil
	case "ColumnFirst", "column-first", "column":
		return ColumnFirst, nil
	}
	return RowFirst, fmt.Errorf("unknown grid layout %q", s)
}

// Grid places positions on a regular grid, GridWidth cells per row (or per
// column with ColumnFirst).
type Grid struct {
	MinX, MinY     float64
	DeltaX, DeltaY float64
	Z              float64
	GridWidth      int
	Layout         Layout

	current int
}

func (g *Grid) Next() Vector {
	width := g.GridWidth
	if width < 1 {
		width = 1
	}
	i := g.current
	g.current++
	col, row := i%width, i/width
	if g.Layout == ColumnFirst {
		col, row = row, col
	}
	return Vector{X: g.MinX + g.DeltaX*float64(col), Y: g.MinY + g.DeltaY*float64(row), Z: g.Z}
}

// RandomRectangle draws X and Y independently.
type RandomRectangle struct {
	X, Y random.Variable
	Z    float64
}

func (r *RandomRectangle) Next() Vector {
	return Vector{X: r.X.Value(), Y: r.Y.Value(), Z: r.Z}
}

// List returns its positions in order and wraps around when exhausted.
type List struct {
	Positions []Vector

	current int
}

func (l *List) Next() Vector {
	if len(l.Positions) == 0 {
		return Vector{}
	}
	p := l.Positions[l.current%len(l.Positions)]
	l.current++
	return p
}
