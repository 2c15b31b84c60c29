package ecs

import "github.com/milk9111/stagestream/ecs/component"

// MarkForDeath flags e for destruction at the next purge.
func MarkForDeath(w *World, e Entity) error {
	return Add(w, e, component.MarkedForDeathComponent.Kind(), &component.MarkedForDeath{})
}

// PurgeMarked destroys every entity flagged for death along with its
// descendants and returns the number of entities destroyed.
func PurgeMarked(w *World) int {
	destroyed := 0
	ForEach(w, component.MarkedForDeathComponent.Kind(), func(e Entity, _ *component.MarkedForDeath) {
		destroyed += DestroyTree(w, e)
	})
	return destroyed
}
