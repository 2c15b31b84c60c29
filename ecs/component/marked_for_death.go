package component

// MarkedForDeath tags an entity that has been detached from the scene graph
// and must be destroyed by the next purge.
type MarkedForDeath struct{}

var MarkedForDeathComponent = NewComponent[MarkedForDeath]()
