package ecs

// intersect returns slot ids present in both sets.
func intersect(a, b *SparseSet) []entityID {
	if a == nil || b == nil {
		return nil
	}
	// iterate smaller set
	if len(a.denseEntities) > len(b.denseEntities) {
		a, b = b, a
	}
	out := make([]entityID, 0, len(a.denseEntities))
	for _, id := range a.denseEntities {
		if b.has(id) {
			out = append(out, id)
		}
	}
	return out
}
