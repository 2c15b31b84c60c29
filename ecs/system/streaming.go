package system

import (
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/stage"
)

// StreamingStats accumulates what the streaming system did since it started.
type StreamingStats struct {
	Ticks     int
	BusyTicks int
	Loaded    int
	Unloaded  int
}

// StreamingSystem drives one stage streaming tick per world update.
type StreamingSystem struct {
	stage *stage.Stage
	Stats StreamingStats
}

func NewStreamingSystem(s *stage.Stage) *StreamingSystem {
	return &StreamingSystem{stage: s}
}

func (s *StreamingSystem) Update(w *ecs.World) {
	if w == nil || s.stage == nil {
		return
	}

	before := w.Events().Len()
	s.Stats.Ticks++
	if s.stage.Stream() {
		s.Stats.BusyTicks++
	}

	events := w.Events().Peek()
	if before > len(events) {
		return
	}
	for _, evt := range events[before:] {
		switch evt.Type {
		case stage.EventEntityLoaded:
			s.Stats.Loaded++
		case stage.EventEntityUnloaded:
			s.Stats.Unloaded++
		}
	}
}
