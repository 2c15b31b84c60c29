package stage

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/common"
	"github.com/milk9111/stagestream/ecs/component"
	"github.com/milk9111/stagestream/ecs/entity"
	"github.com/milk9111/stagestream/levels"
)

// Entry is the streaming bookkeeping for one level descriptor.
type Entry struct {
	// InternalID is component.NoInternalID while the descriptor is not instantiated.
	InternalID component.InternalID
	Descriptor *levels.PositionedEntity
	Box        common.Box
	ValidBox   bool
	// Distance orders the registry. It is fixed at registration.
	Distance float64
}

// BuildEntry computes the box and ordering distance of a descriptor.
func BuildEntry(desc *levels.PositionedEntity, blueprints entity.BlueprintSource) (*Entry, error) {
	if desc == nil {
		return nil, ErrNilDescriptor
	}
	box, ok, err := entity.DescriptorBox(desc, blueprints)
	if err != nil {
		return nil, err
	}
	if !ok {
		box = common.MinimumBox
	}
	return &Entry{
		InternalID: component.NoInternalID,
		Descriptor: desc,
		Box:        box,
		ValidBox:   !box.IsZero(),
		Distance:   common.SquaredLength(desc.Position.Vec3()),
	}, nil
}

func (e *Entry) Position() mgl64.Vec3 {
	return e.Descriptor.Position.Vec3()
}

func (e *Entry) Loaded() bool {
	return e.InternalID != component.NoInternalID
}

// Pinned entries load regardless of position and are never streamed out.
func (e *Entry) Pinned() bool {
	return e.Descriptor.LoadRegardlessOfPosition
}

// box returns the box to range-test, or nil when it is degenerate.
func (e *Entry) box() *common.Box {
	if !e.ValidBox {
		return nil
	}
	return &e.Box
}
