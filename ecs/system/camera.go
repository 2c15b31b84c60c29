package system

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/camera"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
)

// CameraSystem centers the camera on the entity tagged CameraTarget. With no
// target it pans the camera by Pan every tick.
type CameraSystem struct {
	camera *camera.Camera
	target ecs.Entity
	Pan    mgl64.Vec3
}

func NewCameraSystem(cam *camera.Camera) *CameraSystem {
	return &CameraSystem{camera: cam}
}

func (cs *CameraSystem) Update(w *ecs.World) {
	if w == nil || cs.camera == nil {
		return
	}

	if !ecs.IsAlive(w, cs.target) {
		cs.target = 0
		if e, ok := ecs.First(w, component.CameraTargetComponent.Kind()); ok {
			cs.target = e
		}
	}

	if !cs.target.Valid() {
		cs.camera.Move(cs.Pan)
		return
	}

	targetTransform, ok := ecs.Get(w, cs.target, component.TransformComponent.Kind())
	if !ok {
		return
	}
	tag, _ := ecs.Get(w, cs.target, component.CameraTargetComponent.Kind())

	sw, sh := cs.camera.ScreenSize()
	pos := targetTransform.Position
	cs.camera.SetPosition(mgl64.Vec3{
		pos[0] + tag.OffsetX - sw/2,
		pos[1] + tag.OffsetY - sh/2,
		cs.camera.Position()[2],
	})
}
