package mobility

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/netsim/sim"
	"github.com/inference-sim/netsim/sim/random"
)

type fakeNode struct {
	id    int
	model Model
}

func (n *fakeNode) ID() int             { return n.id }
func (n *fakeNode) SetMobility(m Model) { n.model = m }

func TestGrid_RowFirstAndColumnFirst(t *testing.T) {
	g := &Grid{MinX: 20, MinY: 20, DeltaX: 20, DeltaY: 20, GridWidth: 5}
	var got []Vector
	for i := 0; i < 7; i++ {
		got = append(got, g.Next())
	}
	assert.Equal(t, Vector{X: 20, Y: 20}, got[0])
	assert.Equal(t, Vector{X: 100, Y: 20}, got[4])
	assert.Equal(t, Vector{X: 20, Y: 40}, got[5])
	assert.Equal(t, Vector{X: 40, Y: 40}, got[6])

	c := &Grid{DeltaX: 10, DeltaY: 10, GridWidth: 2, Layout: ColumnFirst}
	c.Next()
	assert.Equal(t, Vector{X: 0, Y: 10}, c.Next())
	assert.Equal(t, Vector{X: 10, Y: 0}, c.Next())
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("ColumnFirst")
	require.NoError(t, err)
	assert.Equal(t, ColumnFirst, l)
	_, err = ParseLayout("diagonal")
	assert.Error(t, err)
}

func TestList_Wraps(t *testing.T) {
	l := &List{Positions: []Vector{{X: 1}, {X: 2}}}
	assert.Equal(t, 1.0, l.Next().X)
	assert.Equal(t, 2.0, l.Next().X)
	assert.Equal(t, 1.0, l.Next().X)
}

func TestRandomRectangle_StaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	r := &RandomRectangle{X: random.NewUniform(0, 500, rng), Y: random.NewUniform(0, 500, rng)}
	area := Rectangle{XMin: 0, XMax: 500, YMin: 0, YMax: 500}
	for i := 0; i < 1000; i++ {
		assert.True(t, area.Contains(r.Next()))
	}
}

func TestRectangle_TimeToBoundaryAndClosestSide(t *testing.T) {
	r := Rectangle{XMin: -500, XMax: 500, YMin: -500, YMax: 500}
	assert.InDelta(t, 240.0, r.TimeToBoundary(Vector{X: 20}, Vector{X: 2}), 1e-9)
	assert.InDelta(t, 260.0, r.TimeToBoundary(Vector{X: 20}, Vector{X: -2}), 1e-9)
	assert.True(t, math.IsInf(r.TimeToBoundary(Vector{}, Vector{}), 1))

	assert.Equal(t, SideRight, r.ClosestSide(Vector{X: 499}))
	assert.Equal(t, SideLeft, r.ClosestSide(Vector{X: -499}))
	assert.Equal(t, SideTop, r.ClosestSide(Vector{Y: 499}))
	assert.Equal(t, SideBottom, r.ClosestSide(Vector{Y: -499}))
}

func TestVector_String(t *testing.T) {
	assert.Equal(t, "1.500:-2.000:0.000", Vector{X: 1.5, Y: -2}.String())
}

func TestConstantPosition_DoesNotMove(t *testing.T) {
	m := NewConstantPosition(Vector{X: 3, Y: 4})
	assert.Equal(t, Vector{X: 3, Y: 4}, m.Position(sim.Seconds(100)))
	assert.True(t, m.Velocity(0).IsZero())
}

func TestRandomWaypoint_ReachesDestinationAndPauses(t *testing.T) {
	// GIVEN a walker at the origin heading for (10,0) at 2 m/s with a 1 s pause
	s := sim.New(1)
	dest := &List{Positions: []Vector{{X: 10}, {X: 0}}}
	m := NewRandomWaypoint(random.Constant{V: 2}, random.Constant{V: 1}, dest)
	m.SetPosition(0, Vector{})
	var changes []CourseChangeEvent
	m.CourseChange().Connect(func(ev CourseChangeEvent) { changes = append(changes, ev) })
	s.ScheduleNow(func() { m.Start(s) })

	// WHEN the simulation runs for 6 s
	s.Stop(sim.Seconds(6))
	s.Run()

	// THEN it arrives at 5 s, pauses, and starts back at 6 s
	require.GreaterOrEqual(t, len(changes), 2)
	assert.Equal(t, sim.Time(0), changes[0].Time)
	assert.InDelta(t, 2.0, changes[0].Velocity.X, 1e-9)
	assert.Equal(t, sim.Seconds(5), changes[1].Time)
	assert.InDelta(t, 10.0, changes[1].Position.X, 1e-9)
	assert.True(t, changes[1].Velocity.IsZero())
	assert.InDelta(t, 5.0, m.Position(sim.Seconds(2.5)).X, 1e-9)
}

func TestRandomWaypoint_ZeroSpeedStaysPut(t *testing.T) {
	s := sim.New(1)
	m := NewRandomWaypoint(random.Constant{V: 0}, random.Constant{V: 0}, &List{Positions: []Vector{{X: 50}}})
	m.SetPosition(0, Vector{X: 1})
	s.ScheduleNow(func() { m.Start(s) })
	stats := s.Run()
	assert.Equal(t, Vector{X: 1}, m.Position(sim.Seconds(10)))
	assert.Equal(t, uint64(1), stats.Executed)
}

func TestRandomDirection2D_StaysInsideBounds(t *testing.T) {
	// GIVEN a fast mover in a small box
	s := sim.New(1)
	rng := rand.New(rand.NewPCG(7, 7))
	bounds := Rectangle{XMin: -10, XMax: 10, YMin: -10, YMax: 10}
	m := NewRandomDirection2D(bounds, random.Constant{V: 5}, random.Constant{V: 0.2}, random.NewUniform(0, 1, rng))
	m.SetPosition(0, Vector{X: 2, Y: 3})
	var changes int
	m.CourseChange().Connect(func(CourseChangeEvent) { changes++ })
	s.ScheduleNow(func() { m.Start(s) })

	// WHEN it runs for a minute, sampling every 100 ms
	inside := true
	var sample func()
	sample = func() {
		p := m.Position(s.Now())
		if p.X < bounds.XMin-1e-6 || p.X > bounds.XMax+1e-6 || p.Y < bounds.YMin-1e-6 || p.Y > bounds.YMax+1e-6 {
			inside = false
		}
		s.ScheduleFunc(sim.Milliseconds(100), sample)
	}
	s.ScheduleNow(sample)
	s.Stop(sim.Seconds(60))
	s.Run()

	// THEN it never leaves the box and changes course many times
	assert.True(t, inside)
	assert.Greater(t, changes, 10)
}

func TestHierarchical_PositionIsParentPlusChild(t *testing.T) {
	parent := NewConstantPosition(Vector{X: 100, Y: 100})
	child := NewConstantPosition(Vector{X: 5, Y: -5})
	h := NewHierarchical(parent, child)
	assert.Equal(t, Vector{X: 105, Y: 95}, h.Position(0))

	var got []CourseChangeEvent
	h.CourseChange().Connect(func(ev CourseChangeEvent) { got = append(got, ev) })
	parent.SetPosition(0, Vector{X: 0, Y: 0})
	require.Len(t, got, 1)
	assert.Equal(t, Vector{X: 5, Y: -5}, got[0].Position)

	h.SetPosition(0, Vector{X: 1, Y: 1})
	assert.Equal(t, Vector{X: 1, Y: 1}, child.Position(0))
}

func TestHelper_InstallWithReference(t *testing.T) {
	// GIVEN a backbone node and a helper with that node pushed as reference
	s := sim.New(1)
	backbone := &fakeNode{id: 0}
	h := NewHelper()
	h.SetPositionAllocator(&List{Positions: []Vector{{X: 100, Y: 100}}})
	h.Install(s, backbone)

	stations := []Target{&fakeNode{id: 1}, &fakeNode{id: 2}}
	h.PushReference(backbone.model)
	h.SetPositionAllocator(&Grid{MinX: 20, MinY: 20, DeltaX: 20, DeltaY: 20, GridWidth: 5})

	// WHEN stations are installed
	models := h.Install(s, stations...)

	// THEN their positions are relative to the backbone node
	require.Len(t, models, 2)
	_, ok := models[0].(*Hierarchical)
	assert.True(t, ok)
	assert.Equal(t, Vector{X: 120, Y: 120}, models[0].Position(0))
	assert.Equal(t, Vector{X: 140, Y: 120}, models[1].Position(0))
	assert.Same(t, models[1], stations[1].(*fakeNode).model)

	h.PopReference()
	plain := h.Install(s, &fakeNode{id: 3})
	_, ok = plain[0].(*Hierarchical)
	assert.False(t, ok)
}
