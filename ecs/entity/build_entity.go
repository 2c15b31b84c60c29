package entity

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/common"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
	"github.com/milk9111/stagestream/levels"
	"github.com/milk9111/stagestream/prefabs"
)

var ErrNilDescriptor = errors.New("build entity: descriptor is nil")

// BlueprintSource resolves blueprint names. prefabs.Library implements it.
type BlueprintSource interface {
	Blueprint(name string) (*prefabs.Blueprint, error)
}

type buildContext struct {
	Desc      *levels.PositionedEntity
	Blueprint *prefabs.Blueprint
	// Origin is the world position the descriptor's position is relative to.
	Origin mgl64.Vec3
}

func (c *buildContext) position() mgl64.Vec3 {
	return c.Origin.Add(c.Desc.Position.Vec3())
}

func (c *buildContext) scale() mgl64.Vec3 {
	return common.ScaleOrOne(c.Desc.Scale.Vec3())
}

type componentBuildFn func(w *ecs.World, e ecs.Entity, raw any, ctx *buildContext) error

var componentRegistry = map[string]componentBuildFn{
	"transform":     addTransform,
	"renderable":    addRenderable,
	"velocity":      addVelocity,
	"camera_target": addCameraTarget,
	"props":         addProps,
}

var componentBuildOrder = []string{
	"transform",
	"renderable",
	"velocity",
	"camera_target",
	"props",
}

// Builder turns level descriptors into live entities.
type Builder struct {
	blueprints BlueprintSource
	scripts    *ScriptRunner
}

func NewBuilder(blueprints BlueprintSource, scripts *ScriptRunner) *Builder {
	return &Builder{blueprints: blueprints, scripts: scripts}
}

// Build instantiates desc with all of its components and children in one go
// and attaches it to parent when parent is valid.
func (b *Builder) Build(w *ecs.World, desc *levels.PositionedEntity, parent ecs.Entity, id component.InternalID) (ecs.Entity, error) {
	e, ctx, err := b.instantiate(w, desc, id, mgl64.Vec3{})
	if err != nil {
		return 0, err
	}
	for _, unit := range b.plan(ctx) {
		if err := b.apply(w, e, unit, ctx); err != nil {
			ecs.DestroyTree(w, e)
			return 0, err
		}
	}
	if err := b.ready(w, e, ctx); err != nil {
		ecs.DestroyTree(w, e)
		return 0, err
	}
	if parent.Valid() {
		if err := ecs.Attach(w, parent, e); err != nil {
			ecs.DestroyTree(w, e)
			return 0, fmt.Errorf("build entity: %q: attach: %w", desc.Blueprint, err)
		}
	}
	return e, nil
}

// instantiate creates the entity and its streaming record. Everything else is
// added by the units returned from plan.
func (b *Builder) instantiate(w *ecs.World, desc *levels.PositionedEntity, id component.InternalID, origin mgl64.Vec3) (ecs.Entity, *buildContext, error) {
	if w == nil {
		return 0, nil, fmt.Errorf("build entity: world is nil")
	}
	if desc == nil {
		return 0, nil, ErrNilDescriptor
	}
	bp, err := b.blueprints.Blueprint(desc.Blueprint)
	if err != nil {
		return 0, nil, fmt.Errorf("build entity: blueprint %q: %w", desc.Blueprint, err)
	}

	box, ok, err := DescriptorBox(desc, b.blueprints)
	if err != nil {
		return 0, nil, err
	}

	ctx := &buildContext{Desc: desc, Blueprint: bp, Origin: origin}
	streamed := &component.Streamed{
		InternalID:    id,
		Blueprint:     bp.Name,
		DontStreamOut: bp.DontStreamOut,
		AlwaysRespawn: bp.Respawns(),
		Box:           box,
		ValidBox:      ok && !box.IsZero(),
	}

	e := ecs.CreateEntity(w)
	if err := ecs.Add(w, e, component.StreamedComponent.Kind(), streamed); err != nil {
		ecs.DestroyEntity(w, e)
		return 0, nil, fmt.Errorf("build entity: %q: add streamed: %w", desc.Blueprint, err)
	}
	return e, ctx, nil
}

// plan lists the units of work that complete an instantiated entity, in build
// order. Blueprint components without a builder are reported by apply.
func (b *Builder) plan(ctx *buildContext) []string {
	units := []string{"transform"}
	if len(ctx.Blueprint.Sprites) > 0 {
		units = append(units, "renderable")
	}

	remaining := maps.Clone(ctx.Blueprint.Components)
	if remaining == nil {
		remaining = make(map[string]any)
	}
	if len(ctx.Desc.Extra) > 0 || ctx.Desc.Name != "" {
		if _, ok := remaining["props"]; !ok {
			remaining["props"] = nil
		}
	}
	for _, name := range componentBuildOrder {
		if _, ok := remaining[name]; ok {
			units = append(units, name)
			delete(remaining, name)
		}
	}
	units = append(units, slices.Sorted(maps.Keys(remaining))...)

	if len(ctx.Desc.Children) > 0 {
		units = append(units, "children")
	}
	return units
}

func (b *Builder) apply(w *ecs.World, e ecs.Entity, unit string, ctx *buildContext) error {
	if unit == "children" {
		return b.buildChildren(w, e, ctx)
	}
	builder, ok := componentRegistry[unit]
	if !ok {
		return fmt.Errorf("build entity: %q: no builder for component %q", ctx.Desc.Blueprint, unit)
	}
	if err := builder(w, e, ctx.Blueprint.Components[unit], ctx); err != nil {
		return fmt.Errorf("build entity: %q: add %q: %w", ctx.Desc.Blueprint, unit, err)
	}
	return nil
}

// buildChildren builds nested descriptors synchronously. Children are not
// streamed on their own and carry no internal id.
func (b *Builder) buildChildren(w *ecs.World, e ecs.Entity, ctx *buildContext) error {
	for i := range ctx.Desc.Children {
		child, cctx, err := b.instantiate(w, &ctx.Desc.Children[i], component.NoInternalID, ctx.position())
		if err != nil {
			return err
		}
		for _, unit := range b.plan(cctx) {
			if err := b.apply(w, child, unit, cctx); err != nil {
				ecs.DestroyTree(w, child)
				return err
			}
		}
		if err := ecs.Attach(w, e, child); err != nil {
			ecs.DestroyTree(w, child)
			return err
		}
	}
	return nil
}

// ready runs the blueprint's spawn script, if any.
func (b *Builder) ready(w *ecs.World, e ecs.Entity, ctx *buildContext) error {
	if ctx.Blueprint.Script == "" || b.scripts == nil {
		return nil
	}
	streamed, ok := ecs.Get(w, e, component.StreamedComponent.Kind())
	if !ok {
		return nil
	}
	var props map[string]any
	if p, ok := ecs.Get(w, e, component.PropsComponent.Kind()); ok {
		props = p.Values
	}
	if err := b.scripts.Run(ctx.Blueprint.Script, streamed, ctx.position(), props); err != nil {
		return fmt.Errorf("build entity: %q: script %q: %w", ctx.Desc.Blueprint, ctx.Blueprint.Script, err)
	}
	return nil
}

// DescriptorBox computes the bounding box of a descriptor relative to its
// position: the blueprint size when authored, otherwise the union of the
// blueprint sprites and the boxes of nested children. ok is false when nothing
// resolves.
func DescriptorBox(desc *levels.PositionedEntity, blueprints BlueprintSource) (common.Box, bool, error) {
	if desc == nil {
		return common.Box{}, false, ErrNilDescriptor
	}
	bp, err := blueprints.Blueprint(desc.Blueprint)
	if err != nil {
		return common.Box{}, false, fmt.Errorf("build entity: blueprint %q: %w", desc.Blueprint, err)
	}
	box, ok := bp.Box()
	if bp.Size == nil {
		for i := range desc.Children {
			child := &desc.Children[i]
			cb, cok, err := DescriptorBox(child, blueprints)
			if err != nil {
				return common.Box{}, false, err
			}
			if !cok {
				continue
			}
			cb = cb.Translate(child.Position.Vec3())
			if ok {
				box = box.Union(cb)
			} else {
				box, ok = cb, true
			}
		}
	}
	if ok {
		box = box.Scale(desc.Scale.Vec3())
	}
	return box, ok, nil
}

func addTransform(w *ecs.World, e ecs.Entity, _ any, ctx *buildContext) error {
	return ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{
		Position: ctx.position(),
		Rotation: ctx.Desc.Rotation.Vec3(),
		Scale:    ctx.scale(),
	})
}

func addRenderable(w *ecs.World, e ecs.Entity, _ any, ctx *buildContext) error {
	parts := make([]component.VisualPart, 0, len(ctx.Blueprint.Sprites))
	for _, sp := range ctx.Blueprint.Sprites {
		parts = append(parts, component.VisualPart{
			Name:  sp.Name,
			Image: sp.Image,
			Box:   sp.Box().Scale(ctx.scale()),
			Layer: sp.Layer,
		})
	}
	return ecs.Add(w, e, component.RenderableComponent.Kind(), &component.Renderable{Parts: parts})
}

func addVelocity(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.VelocityComponentSpec](raw)
	if err != nil {
		return err
	}
	return ecs.Add(w, e, component.VelocityComponent.Kind(), &component.Velocity{
		Value: mgl64.Vec3{spec.X, spec.Y, spec.Z},
	})
}

func addCameraTarget(w *ecs.World, e ecs.Entity, raw any, _ *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.CameraTargetComponentSpec](raw)
	if err != nil {
		return err
	}
	return ecs.Add(w, e, component.CameraTargetComponent.Kind(), &component.CameraTarget{
		OffsetX: spec.OffsetX,
		OffsetY: spec.OffsetY,
	})
}

// addProps merges blueprint defaults with the descriptor's extra data; the
// descriptor wins.
func addProps(w *ecs.World, e ecs.Entity, raw any, ctx *buildContext) error {
	spec, err := prefabs.DecodeComponentSpec[prefabs.PropsComponentSpec](raw)
	if err != nil {
		return err
	}
	values := make(map[string]any, len(spec.Values)+len(ctx.Desc.Extra))
	maps.Copy(values, spec.Values)
	maps.Copy(values, ctx.Desc.Extra)
	return ecs.Add(w, e, component.PropsComponent.Kind(), &component.Props{
		Name:   ctx.Desc.Name,
		Values: values,
	})
}
