package stage

import (
	"math"

	"github.com/milk9111/stagestream/ecs/component"
)

// loadInRange walks the registry from the cursor, wrapping at the tail. Only
// entries that are not instantiated count against the streaming amplitude,
// and no entry is visited twice in one call. Deferred loads hand every match
// to the factory; a synchronous load stops after the first instantiation. It
// reports whether anything was loaded or handed off.
func (s *Stage) loadInRange(deferred bool) bool {
	r := s.registry
	if r.Len() == 0 {
		return false
	}

	view := s.camera.View()
	budget := s.amplitude
	visits := r.Len()
	loaded := false
	for ; visits > 0 && budget > 0 && r.Len() > 0; visits-- {
		if r.cursor < 0 || r.cursor >= r.Len() {
			r.cursor = 0
		}
		entry := r.At(r.cursor)
		r.cursor = (r.cursor + 1) % r.Len()

		if entry.Loaded() {
			continue
		}
		budget--
		if !InLoadRange(entry.Position(), entry.box(), view, s.forceNoPopIn) {
			continue
		}

		if deferred {
			entry.InternalID = s.takeID()
			s.factory.Spawn(entry.Descriptor, s.root, s.onEntityLoaded, entry.InternalID)
			loaded = true
			continue
		}
		if _, ok := s.instantiate(entry); ok {
			return true
		}
	}
	return loaded
}

func (s *Stage) takeID() component.InternalID {
	id := s.nextID
	if s.nextID == math.MaxInt64 {
		// Ids stay non-negative so none collides with NoInternalID.
		s.nextID = 0
	} else {
		s.nextID++
	}
	return id
}
