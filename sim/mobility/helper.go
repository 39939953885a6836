package mobility

import (
	"github.com/inference-sim/netsim/sim"
)

// Target is anything that can carry a mobility model.
type Target interface {
	ID() int
	SetMobility(Model)
}

// Factory builds the model for one node.
type Factory func(nodeID int) Model

// Helper installs models on nodes the way a scenario describes them: one
// allocator for initial positions, one factory for models, and an optional
// stack of reference models that make the installed models hierarchical.
type Helper struct {
	allocator  PositionAllocator
	factory    Factory
	references []Model
}

// NewHelper returns a helper that installs ConstantPosition models at the
// origin until configured otherwise.
func NewHelper() *Helper {
	return &Helper{
		allocator: &List{Positions: []Vector{{}}},
		factory:   func(int) Model { return NewConstantPosition(Vector{}) },
	}
}

func (h *Helper) SetPositionAllocator(a PositionAllocator) { h.allocator = a }

func (h *Helper) SetModel(f Factory) { h.factory = f }

// PushReference makes subsequently installed models relative to parent.
func (h *Helper) PushReference(parent Model) {
	h.references = append(h.references, parent)
}

func (h *Helper) PopReference() {
	if len(h.references) > 0 {
		h.references = h.references[:len(h.references)-1]
	}
}

// Install creates, places and attaches a model to every target, and
// schedules each model's Start at the current simulation time.
func (h *Helper) Install(s *sim.Simulator, targets ...Target) []Model {
	models := make([]Model, 0, len(targets))
	for _, t := range targets {
		m := h.factory(t.ID())
		m.SetPosition(s.Now(), h.allocator.Next())
		if n := len(h.references); n > 0 {
			m = NewHierarchical(h.references[n-1], m)
		}
		t.SetMobility(m)
		s.ScheduleNow(func() { m.Start(s) })
		models = append(models, m)
	}
	return models
}
