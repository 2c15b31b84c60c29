package stage

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/camera"
	"github.com/milk9111/stagestream/common"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
)

// InLoadRange reports whether a descriptor at pos, with an optional box
// relative to pos, falls inside the frustum padded by the load padding. Deeper
// positions get proportionally more x/y slack. With forceNoPopIn the box must
// also miss the unpadded screen, so entities are created before they can be
// seen.
func InLoadRange(pos mgl64.Vec3, box *common.Box, view camera.View, forceNoPopIn bool) bool {
	return inRange(pos, box, view, view.LoadPadding, forceNoPopIn)
}

// InCameraRange is the unload-side test for a live entity. An entity with a
// visual part on screen is always in range; otherwise its current position
// and stored box are tested against the frustum padded by both paddings.
func InCameraRange(w *ecs.World, e ecs.Entity, view camera.View) bool {
	if r, ok := ecs.Get(w, e, component.RenderableComponent.Kind()); ok && r.AnyRendered() {
		return true
	}
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return true
	}
	box := common.MinimumBox
	if s, ok := ecs.Get(w, e, component.StreamedComponent.Kind()); ok && s.ValidBox {
		box = s.Box
	}
	return inRange(t.Position, &box, view, view.LoadPadding+view.UnloadPadding, false)
}

func inRange(pos mgl64.Vec3, box *common.Box, view camera.View, padding float64, forceNoPopIn bool) bool {
	local := view.ToLocal(pos)
	pad := padding + math.Abs(local[2])
	zone := view.Frustum.Expand(pad, pad, padding)

	var bounds common.Box
	if box != nil {
		bounds = *box
	}
	bounds = bounds.Translate(local)
	if !bounds.Overlaps(zone) {
		return false
	}
	if forceNoPopIn && bounds.OverlapsXY(view.Frustum) {
		return false
	}
	return true
}
