package stage

import (
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
)

// unloadOutOfRange unloads the first live child that left the camera range,
// skipping children that never stream out and pinned ones. It reports whether
// a child was unloaded; at most one is per call.
func (s *Stage) unloadOutOfRange() bool {
	view := s.camera.View()
	for _, e := range ecs.Children(s.world, s.root) {
		if !ecs.IsAlive(s.world, e) || ecs.Has(s.world, e, component.MarkedForDeathComponent.Kind()) {
			continue
		}
		streamed, ok := ecs.Get(s.world, e, component.StreamedComponent.Kind())
		if ok && streamed.DontStreamOut {
			continue
		}
		if InCameraRange(s.world, e, view) {
			continue
		}

		i := -1
		if ok {
			i = s.registry.find(streamed.InternalID)
		}
		if i >= 0 && s.registry.At(i).Pinned() {
			continue
		}

		s.unload(e)
		if i >= 0 {
			if streamed.AlwaysRespawn {
				s.registry.At(i).InternalID = component.NoInternalID
			} else {
				s.registry.remove(i, false)
			}
		}
		return true
	}
	return false
}

// unload detaches e from the root and leaves it for the next purge.
func (s *Stage) unload(e ecs.Entity) {
	ecs.Detach(s.world, e)
	if err := ecs.MarkForDeath(s.world, e); err != nil {
		s.fail("unload %v: %v", e, err)
		return
	}
	s.world.Events().Push(ecs.Event{Type: EventEntityUnloaded, Data: e})
}
