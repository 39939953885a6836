package mobility

import (
	"math"
	"strconv"
)

// Vector is a position or velocity in meters (or meters per second).
type Vector struct {
	X, Y, Z float64
}

func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vector) Scale(f float64) Vector {
	return Vector{v.X * f, v.Y * f, v.Z * f}
}

// Length returns the Euclidean norm of v.
func (v Vector) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// IsZero reports whether every component is zero.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// String formats v as "x:y:z", the form used by the mobility trace.
func (v Vector) String() string {
	f := func(x float64) string { return strconv.FormatFloat(x, 'f', 3, 64) }
	return f(v.X) + ":" + f(v.Y) + ":" + f(v.Z)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vector) float64 {
	return a.Sub(b).Length()
}

// Side names an edge of a Rectangle.
type Side int

const (
	SideRight Side = iota
	SideLeft
	SideTop
	SideBottom
)

// Rectangle is an axis-aligned 2D area.
type Rectangle struct {
	XMin, XMax, YMin, YMax float64
}

// Contains reports whether p lies inside r (inclusive).
func (r Rectangle) Contains(p Vector) bool {
	return p.X >= r.XMin && p.X <= r.XMax && p.Y >= r.YMin && p.Y <= r.YMax
}

// Clamp moves p onto the nearest point inside r.
func (r Rectangle) Clamp(p Vector) Vector {
	p.X = math.Min(math.Max(p.X, r.XMin), r.XMax)
	p.Y = math.Min(math.Max(p.Y, r.YMin), r.YMax)
	return p
}

// ClosestSide returns the edge of r nearest to p.
func (r Rectangle) ClosestSide(p Vector) Side {
	best, side := p.X-r.XMin, SideLeft
	if d := r.XMax - p.X; d < best {
		best, side = d, SideRight
	}
	if d := p.Y - r.YMin; d < best {
		best, side = d, SideBottom
	}
	if d := r.YMax - p.Y; d < best {
		side = SideTop
	}
	return side
}

// TimeToBoundary returns how many seconds a point at p moving with velocity
// v stays inside r. A zero velocity never leaves.
func (r Rectangle) TimeToBoundary(p, v Vector) float64 {
	t := math.Inf(1)
	if v.X > 0 {
		t = math.Min(t, (r.XMax-p.X)/v.X)
	} else if v.X < 0 {
		t = math.Min(t, (r.XMin-p.X)/v.X)
	}
	if v.Y > 0 {
		t = math.Min(t, (r.YMax-p.Y)/v.Y)
	} else if v.Y < 0 {
		t = math.Min(t, (r.YMin-p.Y)/v.Y)
	}
	return math.Max(t, 0)
}
