package system

import (
	"github.com/milk9111/stagestream/camera"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
)

// VisibilitySystem flags the visual parts that land on screen, standing in
// for a renderer's per-frame visibility report.
type VisibilitySystem struct {
	camera *camera.Camera
}

func NewVisibilitySystem(cam *camera.Camera) *VisibilitySystem {
	return &VisibilitySystem{camera: cam}
}

func (s *VisibilitySystem) Update(w *ecs.World) {
	if w == nil || s.camera == nil {
		return
	}

	view := s.camera.View()
	ecs.ForEach2(w, component.RenderableComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, r *component.Renderable, t *component.Transform) {
		if r == nil || t == nil {
			return
		}
		local := view.ToLocal(t.Position)
		marked := ecs.Has(w, e, component.MarkedForDeathComponent.Kind())
		for i := range r.Parts {
			r.Parts[i].Rendered = !marked && r.Parts[i].Box.Translate(local).OverlapsXY(view.Frustum)
		}
	})
}
