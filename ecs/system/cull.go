package system

import (
	"github.com/milk9111/stagestream/ecs"
)

// CullSystem destroys entities the stage unloaded this tick. It runs last so
// every other system still sees them during the tick they leave the stage.
type CullSystem struct {
	Destroyed int
}

func NewCullSystem() *CullSystem {
	return &CullSystem{}
}

func (s *CullSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	s.Destroyed += ecs.PurgeMarked(w)
}
