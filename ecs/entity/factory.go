package entity

import (
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
	"github.com/milk9111/stagestream/levels"
)

type spawnJob struct {
	desc     *levels.PositionedEntity
	parent   ecs.Entity
	onLoaded func(ecs.Entity)
	id       component.InternalID

	entity ecs.Entity
	ctx    *buildContext
	units  []string
	next   int
}

// Factory builds entities across several ticks. Every PrepareOne call does
// one unit of work: instantiate a queued descriptor, add one of its
// components, or make a finished entity ready and attach it to its parent.
type Factory struct {
	*Builder
	world *ecs.World

	spawning  []*spawnJob
	building  []*spawnJob
	finishing []*spawnJob

	dropped func(desc *levels.PositionedEntity, id component.InternalID)
}

func NewFactory(w *ecs.World, builder *Builder) *Factory {
	return &Factory{Builder: builder, world: w}
}

// Spawn queues desc for construction as a child of parent. onLoaded may be nil.
func (f *Factory) Spawn(desc *levels.PositionedEntity, parent ecs.Entity, onLoaded func(ecs.Entity), id component.InternalID) {
	if desc == nil {
		return
	}
	f.spawning = append(f.spawning, &spawnJob{
		desc:     desc,
		parent:   parent,
		onLoaded: onLoaded,
		id:       id,
	})
}

// PrepareOne performs one unit of queued work and reports whether more remains.
func (f *Factory) PrepareOne() bool {
	switch {
	case len(f.finishing) > 0:
		f.attachNext()
	case len(f.building) > 0:
		f.transformNext()
	case len(f.spawning) > 0:
		f.instantiateNext()
	}
	return f.HasPending()
}

// OnDrop registers a callback for jobs abandoned before their entity was
// attached, either because building failed or because the parent died.
func (f *Factory) OnDrop(fn func(desc *levels.PositionedEntity, id component.InternalID)) {
	f.dropped = fn
}

func (f *Factory) HasPending() bool {
	return len(f.spawning)+len(f.building)+len(f.finishing) > 0
}

// Pending returns the number of queued jobs.
func (f *Factory) Pending() int {
	return len(f.spawning) + len(f.building) + len(f.finishing)
}

// Drain runs every queued job to completion.
func (f *Factory) Drain() {
	for f.PrepareOne() {
	}
}

func (f *Factory) instantiateNext() {
	job := f.spawning[0]
	f.spawning = f.spawning[1:]
	if !f.alive(job) {
		return
	}
	e, ctx, err := f.Builder.instantiate(f.world, job.desc, job.id, mgl64.Vec3{})
	if err != nil {
		f.fail(job, err)
		return
	}
	job.entity = e
	job.ctx = ctx
	job.units = f.Builder.plan(ctx)
	f.building = append(f.building, job)
}

func (f *Factory) transformNext() {
	job := f.building[0]
	if !f.alive(job) {
		f.building = f.building[1:]
		return
	}
	if job.next < len(job.units) {
		if err := f.Builder.apply(f.world, job.entity, job.units[job.next], job.ctx); err != nil {
			f.building = f.building[1:]
			f.fail(job, err)
			return
		}
		job.next++
	}
	if job.next >= len(job.units) {
		f.building = f.building[1:]
		f.finishing = append(f.finishing, job)
	}
}

func (f *Factory) attachNext() {
	job := f.finishing[0]
	f.finishing = f.finishing[1:]
	if !f.alive(job) {
		return
	}
	if err := f.Builder.ready(f.world, job.entity, job.ctx); err != nil {
		f.fail(job, err)
		return
	}
	if err := ecs.Attach(f.world, job.parent, job.entity); err != nil {
		f.fail(job, fmt.Errorf("attach %q: %w", job.desc.Blueprint, err))
		return
	}
	if job.onLoaded != nil {
		job.onLoaded(job.entity)
	}
}

// alive drops a job whose parent, or whose partial entity, died in the meantime.
func (f *Factory) alive(job *spawnJob) bool {
	if !ecs.IsAlive(f.world, job.parent) {
		f.fail(job, fmt.Errorf("dropping %q: parent %v is gone", job.desc.Blueprint, job.parent))
		return false
	}
	if job.entity.Valid() && !ecs.IsAlive(f.world, job.entity) {
		f.fail(job, fmt.Errorf("dropping %q: entity %v destroyed while building", job.desc.Blueprint, job.entity))
		return false
	}
	return true
}

func (f *Factory) fail(job *spawnJob, err error) {
	log.Printf("factory: %v", err)
	if job.entity.Valid() {
		ecs.DestroyTree(f.world, job.entity)
	}
	if f.dropped != nil {
		f.dropped(job.desc, job.id)
	}
}
