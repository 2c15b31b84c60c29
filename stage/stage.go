// Package stage streams level entities in and out of the live world around
// the camera under a bounded per-tick budget.
package stage

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/camera"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
	"github.com/milk9111/stagestream/ecs/entity"
	"github.com/milk9111/stagestream/levels"
)

var (
	ErrNilDescriptor = errors.New("stage: descriptor is nil")
	ErrNilWorld      = errors.New("stage: world is nil")
	ErrNilLevel      = errors.New("stage: level is nil")
	ErrNilCamera     = errors.New("stage: camera is nil")
	ErrNilBlueprints = errors.New("stage: blueprints are nil")
	ErrNilFactory    = errors.New("stage: factory is nil")
)

const (
	EventEntityLoaded   = "stage.entity_loaded"
	EventEntityUnloaded = "stage.entity_unloaded"
)

// Builder instantiates a descriptor synchronously and attaches it to parent.
type Builder interface {
	Build(w *ecs.World, desc *levels.PositionedEntity, parent ecs.Entity, id component.InternalID) (ecs.Entity, error)
}

// Factory is the deferred construction service. Spawn queues work without
// blocking; PrepareOne does one unit of it and reports whether more remains.
type Factory interface {
	Builder
	Spawn(desc *levels.PositionedEntity, parent ecs.Entity, onLoaded func(ecs.Entity), id component.InternalID)
	PrepareOne() bool
	HasPending() bool
}

// dropNotifier is implemented by factories that can report abandoned jobs.
type dropNotifier interface {
	OnDrop(fn func(desc *levels.PositionedEntity, id component.InternalID))
}

type Config struct {
	// Strict panics on invariant violations instead of logging them.
	Strict bool
	Logger *log.Logger
}

// Stage owns the registry of one loaded level and the root every streamed
// entity is attached to.
type Stage struct {
	world      *ecs.World
	level      *levels.Level
	camera     *camera.Camera
	blueprints entity.BlueprintSource
	factory    Factory
	cfg        Config

	root     ecs.Entity
	registry *Registry
	nextID   component.InternalID

	phase        int
	amplitude    int
	forceNoPopIn bool

	listeners []func(ecs.Entity)

	suspended      bool
	suspendedFocus mgl64.Vec3
}

func New(w *ecs.World, lvl *levels.Level, cam *camera.Camera, blueprints entity.BlueprintSource, factory Factory, cfg Config) (*Stage, error) {
	switch {
	case w == nil:
		return nil, ErrNilWorld
	case lvl == nil:
		return nil, ErrNilLevel
	case cam == nil:
		return nil, ErrNilCamera
	case blueprints == nil:
		return nil, ErrNilBlueprints
	case factory == nil:
		return nil, ErrNilFactory
	}

	s := &Stage{
		world:      w,
		level:      lvl,
		camera:     cam,
		blueprints: blueprints,
		factory:    factory,
		cfg:        cfg,
		registry:   newRegistry(),
		amplitude:  lvl.Streaming.Amplitude,
	}
	if s.amplitude <= 0 {
		s.amplitude = levels.DefaultStreamingAmplitude
	}

	s.root = ecs.CreateEntity(w)
	if err := ecs.Add(w, s.root, component.TransformComponent.Kind(), &component.Transform{Scale: mgl64.Vec3{1, 1, 1}}); err != nil {
		return nil, fmt.Errorf("stage: create root: %w", err)
	}
	if n, ok := factory.(dropNotifier); ok {
		n.OnDrop(s.onSpawnDropped)
	}
	return s, nil
}

// Load registers the level's descriptors, minus ignore, and synchronously
// instantiates the pinned ones and those already in range. The cursor is left
// on the last streamed entry that was loaded.
func (s *Stage) Load(ignore ...*levels.PositionedEntity) error {
	if s.registry.Registered() {
		return nil
	}
	err := s.registry.Register(s.level.Descriptors(), s.blueprints, ignore...)
	if err != nil {
		s.fail("level %q: %v", s.level.Name, err)
		err = fmt.Errorf("stage: level %q: %w", s.level.Name, err)
	}

	view := s.camera.View()
	for _, entry := range s.registry.Entries() {
		if entry.Loaded() {
			continue
		}
		if !entry.Pinned() && !InLoadRange(entry.Position(), entry.box(), view, false) {
			continue
		}
		if _, ok := s.instantiate(entry); !ok {
			continue
		}
		if !entry.Pinned() {
			if i := s.registry.find(entry.InternalID); i >= 0 {
				s.registry.cursor = i
			}
		}
	}
	return err
}

// Stream runs one tick of streaming. Pending deferred construction takes the
// whole tick; otherwise the unload and load phases alternate, starting with
// load. It reports whether any work was done.
func (s *Stage) Stream() bool {
	if s.suspended || s.registry.Len() == 0 {
		return false
	}
	deferred := s.level.Streaming.Deferred
	if deferred && s.factory.HasPending() {
		s.factory.PrepareOne()
		return true
	}

	s.phase = (s.phase + 1) % 2
	if s.phase == 0 {
		return s.unloadOutOfRange()
	}
	return s.loadInRange(deferred)
}

// StreamAll runs one unbudgeted pass from the head of the registry, purging
// unloaded entities before and after. It reports whether work remains, so
// callers that need a settled stage loop until it returns false.
func (s *Stage) StreamAll() bool {
	s.phase = 0
	s.registry.resetCursor()
	amplitude := s.amplitude
	s.amplitude = math.MaxInt
	s.Purge()

	var more bool
	if s.factory.HasPending() {
		more = s.factory.PrepareOne()
	} else {
		unloaded := s.unloadOutOfRange()
		loaded := s.loadInRange(s.level.Streaming.Deferred)
		more = unloaded || loaded
	}

	s.amplitude = amplitude
	s.Purge()
	return more || s.factory.HasPending()
}

// StreamAllOut unloads everything out of range at once, then purges.
func (s *Stage) StreamAllOut() {
	for s.unloadOutOfRange() {
	}
	s.Purge()
}

// Unload tears the level down. Pending construction is finished, every live
// child is unloaded and purged, and the registry is emptied so that Load can
// build it again. It returns the number of entities destroyed.
func (s *Stage) Unload() int {
	for s.factory.HasPending() {
		s.factory.PrepareOne()
	}
	destroyed := s.Purge()
	for _, e := range ecs.Children(s.world, s.root) {
		s.unload(e)
	}
	destroyed += s.Purge()
	s.registry.Purge()
	s.phase = 0
	return destroyed
}

// Purge destroys the entities unloaded since the last purge.
func (s *Stage) Purge() int {
	return ecs.PurgeMarked(s.world)
}

// SpawnChild instantiates desc outside of the registry. A permanent child is
// never streamed out; other children are unloaded for good once out of range.
func (s *Stage) SpawnChild(desc *levels.PositionedEntity, permanent bool) (ecs.Entity, error) {
	if desc == nil {
		return 0, ErrNilDescriptor
	}
	id := s.takeID()
	e, err := s.factory.Build(s.world, desc, s.root, id)
	if err != nil {
		return 0, fmt.Errorf("stage: spawn %q: %w", desc.Blueprint, err)
	}
	if permanent {
		if streamed, ok := ecs.Get(s.world, e, component.StreamedComponent.Kind()); ok {
			streamed.DontStreamOut = true
		}
	}
	s.alertLoaded(e)
	return e, nil
}

// DestroyChild unloads a live child and removes its registry entry for good.
func (s *Stage) DestroyChild(e ecs.Entity) error {
	if !ecs.IsAlive(s.world, e) {
		s.fail("destroy child %v: %v", e, component.ErrEntityNotAlive)
		return component.ErrEntityNotAlive
	}
	id := component.NoInternalID
	if streamed, ok := ecs.Get(s.world, e, component.StreamedComponent.Kind()); ok {
		id = streamed.InternalID
	}
	s.unload(e)
	if i := s.registry.find(id); i >= 0 {
		s.registry.remove(i, true)
	}
	return nil
}

// FindChildByInternalID returns the live child carrying id.
func (s *Stage) FindChildByInternalID(id component.InternalID) (ecs.Entity, bool) {
	for _, e := range ecs.Children(s.world, s.root) {
		if streamed, ok := ecs.Get(s.world, e, component.StreamedComponent.Kind()); ok && streamed.InternalID == id {
			return e, true
		}
	}
	return 0, false
}

// AddLoadingListener registers fn to be called for every entity the stage
// loads, synchronously or through the factory.
func (s *Stage) AddLoadingListener(fn func(ecs.Entity)) {
	if fn != nil {
		s.listeners = append(s.listeners, fn)
	}
}

// Suspend finishes all deferred construction and stops streaming until
// Resume. The camera position is kept so Resume can restore it.
func (s *Stage) Suspend() {
	if s.suspended {
		return
	}
	for s.factory.HasPending() {
		s.factory.PrepareOne()
	}
	s.suspendedFocus = s.camera.Position()
	s.suspended = true
}

func (s *Stage) Resume() {
	if !s.suspended {
		return
	}
	s.camera.SetPosition(s.suspendedFocus)
	s.suspended = false
}

func (s *Stage) Suspended() bool {
	return s.suspended
}

func (s *Stage) SetForceNoPopIn(v bool) {
	s.forceNoPopIn = v
}

func (s *Stage) ForceNoPopIn() bool {
	return s.forceNoPopIn
}

// SetStreamingAmplitude sets how many pending entries a load pass may visit.
func (s *Stage) SetStreamingAmplitude(n int) {
	s.amplitude = max(n, 1)
}

func (s *Stage) StreamingAmplitude() int {
	return s.amplitude
}

func (s *Stage) RegistrySize() int {
	return s.registry.Len()
}

func (s *Stage) LiveChildCount() int {
	return ecs.ChildCount(s.world, s.root)
}

func (s *Stage) Cursor() int {
	return s.registry.Cursor()
}

func (s *Stage) Registry() *Registry {
	return s.registry
}

func (s *Stage) Camera() *camera.Camera {
	return s.camera
}

// CheckInvariants reports registry corruption: broken ordering, duplicate
// ids, and loaded entries without a live entity once construction settled.
func (s *Stage) CheckInvariants() error {
	var errs []error
	if !s.registry.Registered() {
		errs = append(errs, errors.New("stage: registry was never built"))
	}

	entries := s.registry.entries
	seen := make(map[component.InternalID]int, len(entries))
	for i, e := range entries {
		if i > 0 && entries[i-1].Distance > e.Distance {
			errs = append(errs, fmt.Errorf("stage: entry %d out of order: %v > %v", i, entries[i-1].Distance, e.Distance))
		}
		if !e.Loaded() {
			continue
		}
		if j, ok := seen[e.InternalID]; ok {
			errs = append(errs, fmt.Errorf("stage: entries %d and %d share id %d", j, i, e.InternalID))
		}
		seen[e.InternalID] = i
	}

	if !s.factory.HasPending() {
		for id, i := range seen {
			if _, ok := s.FindChildByInternalID(id); !ok {
				errs = append(errs, fmt.Errorf("stage: entry %d holds id %d but no live child has it", i, id))
			}
		}
	}
	return errors.Join(errs...)
}

// instantiate builds entry synchronously. An entry that fails to build would
// fail on every sweep, so it is dropped from the registry.
func (s *Stage) instantiate(entry *Entry) (ecs.Entity, bool) {
	entry.InternalID = s.takeID()
	e, err := s.factory.Build(s.world, entry.Descriptor, s.root, entry.InternalID)
	if err != nil {
		s.fail("load %q: %v", entry.Descriptor.Blueprint, err)
		if i := s.registry.find(entry.InternalID); i >= 0 {
			s.registry.remove(i, false)
		}
		return 0, false
	}
	s.alertLoaded(e)
	return e, true
}

func (s *Stage) onEntityLoaded(e ecs.Entity) {
	s.alertLoaded(e)
}

func (s *Stage) onSpawnDropped(desc *levels.PositionedEntity, id component.InternalID) {
	if i := s.registry.find(id); i >= 0 {
		s.registry.remove(i, false)
	}
}

func (s *Stage) alertLoaded(e ecs.Entity) {
	for _, fn := range s.listeners {
		fn(e)
	}
	s.world.Events().Push(ecs.Event{Type: EventEntityLoaded, Data: e})
}

func (s *Stage) fail(format string, args ...any) {
	msg := fmt.Sprintf("stage: "+format, args...)
	if s.cfg.Strict {
		panic(msg)
	}
	if s.cfg.Logger != nil {
		s.cfg.Logger.Print(msg)
		return
	}
	log.Print(msg)
}
