package system

import (
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
)

// MovementSystem applies velocities to transforms.
type MovementSystem struct{}

func NewMovementSystem() *MovementSystem {
	return &MovementSystem{}
}

func (s *MovementSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}

	ecs.ForEach2(w, component.TransformComponent.Kind(), component.VelocityComponent.Kind(), func(e ecs.Entity, t *component.Transform, v *component.Velocity) {
		if t == nil || v == nil {
			return
		}
		t.Position = t.Position.Add(v.Value)
	})
}
