package stage

import (
	"errors"
	"io"
	"math"
	"log"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/camera"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
	"github.com/milk9111/stagestream/ecs/entity"
	"github.com/milk9111/stagestream/levels"
)

func TestLoadInRangeScenarioOne(t *testing.T) {
	// A d=10, B d=50, C d=200, all on screen.
	lvl := newTestLevel(1, false, at("block", 10, 10), at("block", 1, 3), at("block", 5, 5))
	s := newTestStage(t, lvl)
	s.register(t)

	wantCursor := []int{1, 2, 0}
	for call, want := range wantCursor {
		if !s.loadInRange(false) {
			t.Fatalf("call %d: expected an entity to load", call+1)
		}
		if s.loadedCount() != call+1 {
			t.Fatalf("call %d: expected %d loaded entries, got %d", call+1, call+1, s.loadedCount())
		}
		if !s.registry.At(call).Loaded() {
			t.Fatalf("call %d: expected entry %d to be the one loaded", call+1, call)
		}
		if s.Cursor() != want {
			t.Fatalf("call %d: expected cursor %d, got %d", call+1, want, s.Cursor())
		}
	}
	if s.loadInRange(false) {
		t.Fatalf("call 4: expected no candidates")
	}
	if s.LiveChildCount() != 3 {
		t.Fatalf("expected 3 live children, got %d", s.LiveChildCount())
	}
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestUnloadOutOfRangeScenarioTwo(t *testing.T) {
	s := newTestStage(t, newTestLevel(4, false, at("block", 5000, 0)))
	s.register(t)

	d := at("fixture", 5000, 100)
	if _, err := s.SpawnChild(&d, false); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if s.unloadOutOfRange() {
		t.Fatalf("expected fixture to be skipped")
	}
	if s.LiveChildCount() != 1 {
		t.Fatalf("expected fixture to stay live, got %d children", s.LiveChildCount())
	}
}

func TestStreamAllScenarioThree(t *testing.T) {
	descs := make([]levels.PositionedEntity, 0, 500)
	for i := range 20 {
		descs = append(descs, at("block", 10+float64(i)*15, 100))
	}
	for i := range 480 {
		descs = append(descs, at("block", 2000+float64(i)*20, 100))
	}

	for _, deferred := range []bool{false, true} {
		name := "sync"
		if deferred {
			name = "deferred"
		}
		t.Run(name, func(t *testing.T) {
			s := newTestStage(t, newTestLevel(8, deferred, descs...))
			s.register(t)
			if s.RegistrySize() != 500 {
				t.Fatalf("expected 500 entries, got %d", s.RegistrySize())
			}

			passes := 0
			for s.StreamAll() {
				passes++
				if passes > 10000 {
					t.Fatalf("stream all did not settle")
				}
			}
			if s.LiveChildCount() != 20 {
				t.Fatalf("expected 20 live children, got %d", s.LiveChildCount())
			}
			if s.factory.HasPending() {
				t.Fatalf("expected no pending construction")
			}
			if s.StreamingAmplitude() != 8 {
				t.Fatalf("expected amplitude restored to 8, got %d", s.StreamingAmplitude())
			}
			if err := s.CheckInvariants(); err != nil {
				t.Fatalf("invariants: %v", err)
			}
		})
	}
}

func TestLoadBudgetCountsOnlyPendingEntries(t *testing.T) {
	descs := make([]levels.PositionedEntity, 0, 10)
	for i := range 10 {
		descs = append(descs, at("block", 5000+float64(i)*100, 0))
	}
	s := newTestStage(t, newTestLevel(3, false, descs...))
	s.register(t)
	s.registry.At(1).InternalID = 99
	s.registry.At(2).InternalID = 100

	if s.loadInRange(false) {
		t.Fatalf("expected nothing in range")
	}
	// Entries 0, 3 and 4 use the budget; 1 and 2 are passed over for free.
	if s.Cursor() != 5 {
		t.Fatalf("expected cursor 5, got %d", s.Cursor())
	}
}

func TestLoadVisitsRegistryOnceWhenBudgetExceedsIt(t *testing.T) {
	s := newTestStage(t, newTestLevel(100, false, at("block", 5000, 0), at("block", 6000, 0), at("block", 7000, 0)))
	s.register(t)
	s.registry.cursor = 1
	if s.loadInRange(false) {
		t.Fatalf("expected nothing in range")
	}
	if s.Cursor() != 1 {
		t.Fatalf("expected a single lap back to cursor 1, got %d", s.Cursor())
	}
}

func TestLoadInRangeIsResumable(t *testing.T) {
	const n, amplitude = 12, 3
	descs := make([]levels.PositionedEntity, 0, n)
	for i := range n {
		descs = append(descs, at("block", 5000+float64(i)*100, 0))
	}
	s := newTestStage(t, newTestLevel(amplitude, false, descs...))
	s.register(t)

	visited := make(map[int]int)
	start := 0
	for call := 0; call < n/amplitude; call++ {
		s.loadInRange(false)
		end := s.Cursor()
		for i := start; i != end; i = (i + 1) % n {
			visited[i]++
		}
		if (end-start+n)%n != amplitude {
			t.Fatalf("call %d: expected %d visits, cursor went %d -> %d", call+1, amplitude, start, end)
		}
		start = end
	}
	if len(visited) != n {
		t.Fatalf("expected every entry visited, got %d", len(visited))
	}
	for i, count := range visited {
		if count != 1 {
			t.Fatalf("entry %d visited %d times", i, count)
		}
	}
}

func TestUnloadDestroysAtMostOne(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false, at("block", 10, 10), at("block", 50, 10), at("block", 90, 10), at("block", 130, 10)))
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.LiveChildCount() != 4 {
		t.Fatalf("expected 4 initial children, got %d", s.LiveChildCount())
	}

	s.Camera().SetPosition(mgl64.Vec3{10000, 0, 0})
	for want := 3; want >= 0; want-- {
		if !s.unloadOutOfRange() {
			t.Fatalf("expected an unload")
		}
		if s.LiveChildCount() != want {
			t.Fatalf("expected %d children, got %d", want, s.LiveChildCount())
		}
	}
	if s.unloadOutOfRange() {
		t.Fatalf("expected nothing left to unload")
	}
	if s.loadedCount() != 0 {
		t.Fatalf("expected respawning entries reset, %d still loaded", s.loadedCount())
	}
	if s.RegistrySize() != 4 {
		t.Fatalf("expected respawning entries kept, got %d", s.RegistrySize())
	}
	if purged := s.Purge(); purged != 4 {
		t.Fatalf("expected 4 purged entities, got %d", purged)
	}
}

func TestNonRespawningEntryIsRemovedOnUnload(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false, at("once", 10, 10), at("block", 20, 10)))
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.registry.cursor = 0

	s.Camera().SetPosition(mgl64.Vec3{10000, 0, 0})
	s.StreamAllOut()
	if s.RegistrySize() != 1 || s.registry.At(0).Descriptor.Blueprint != "block" {
		t.Fatalf("expected only the respawning entry to remain, got %d", s.RegistrySize())
	}
	if s.Cursor() != noCursor {
		t.Fatalf("expected cursor invalidated, got %d", s.Cursor())
	}

	s.Camera().SetPosition(mgl64.Vec3{})
	for s.StreamAll() {
	}
	if s.LiveChildCount() != 1 {
		t.Fatalf("expected only the respawning entity back, got %d", s.LiveChildCount())
	}
}

func TestPinnedEntityIsNeverUnloaded(t *testing.T) {
	pinned := at("block", 5000, 5000)
	pinned.LoadRegardlessOfPosition = true
	s := newTestStage(t, newTestLevel(16, false, pinned, at("block", 10, 10)))
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.LiveChildCount() != 2 {
		t.Fatalf("expected pinned and in-range entity, got %d", s.LiveChildCount())
	}

	for _, pos := range []mgl64.Vec3{{-9000, 0, 0}, {0, 9000, 0}, {4000, 4000, 0}} {
		s.Camera().SetPosition(pos)
		s.StreamAllOut()
		if s.LiveChildCount() != 1 {
			t.Fatalf("camera at %v: expected the pinned entity alone, got %d", pos, s.LiveChildCount())
		}
		if s.unloadOutOfRange() {
			t.Fatalf("camera at %v: pinned entity was unloaded", pos)
		}
	}
}

func TestForceNoPopIn(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false, at("block", 100, 100)))
	s.register(t)
	s.SetForceNoPopIn(true)

	if s.loadInRange(false) {
		t.Fatalf("expected on-screen entity to be held back")
	}
	// The box spans 92..108; at camera x=118 it sits just left of the screen.
	s.Camera().SetPosition(mgl64.Vec3{118, 0, 0})
	if !s.loadInRange(false) {
		t.Fatalf("expected off-screen entity in padding to load")
	}
}

func TestStreamAlternatesPhasesAndDefersToFactory(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, true, at("block", 10, 10), at("block", 40, 10)))
	s.register(t)

	var loaded []ecs.Entity
	s.AddLoadingListener(func(e ecs.Entity) { loaded = append(loaded, e) })

	if !s.Stream() {
		t.Fatalf("expected first tick to hand entities to the factory")
	}
	if !s.factory.HasPending() || s.loadedCount() != 2 {
		t.Fatalf("expected two queued spawns, pending=%v loaded=%d", s.factory.HasPending(), s.loadedCount())
	}

	ticks := 0
	for s.factory.HasPending() {
		if !s.Stream() {
			t.Fatalf("expected construction ticks to report work")
		}
		ticks++
	}
	if ticks < 2 {
		t.Fatalf("expected construction spread over several ticks, got %d", ticks)
	}
	if len(loaded) != 2 || s.LiveChildCount() != 2 {
		t.Fatalf("expected 2 loaded entities, listeners=%d children=%d", len(loaded), s.LiveChildCount())
	}

	events := 0
	for _, evt := range s.world.Events().Drain() {
		if evt.Type == EventEntityLoaded {
			events++
		}
	}
	if events != 2 {
		t.Fatalf("expected 2 loaded events, got %d", events)
	}

	// Unload phase: nothing out of range.
	if s.Stream() {
		t.Fatalf("expected unload phase to find nothing")
	}
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestStreamOnEmptyRegistry(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false))
	if s.Stream() {
		t.Fatalf("expected empty registry to do nothing")
	}
}

func TestDestroyChildRemovesEntry(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false, at("block", 10, 10), at("block", 40, 10), at("block", 80, 10)))
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	id := s.registry.At(1).InternalID
	e, ok := s.FindChildByInternalID(id)
	if !ok {
		t.Fatalf("expected child with id %d", id)
	}
	s.registry.cursor = 1

	if err := s.DestroyChild(e); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if s.RegistrySize() != 2 || s.LiveChildCount() != 2 {
		t.Fatalf("expected 2 entries and children, got %d and %d", s.RegistrySize(), s.LiveChildCount())
	}
	if s.Cursor() != 0 {
		t.Fatalf("expected cursor stepped back to 0, got %d", s.Cursor())
	}
	s.Purge()
	if ecs.IsAlive(s.world, e) {
		t.Fatalf("expected destroyed child purged")
	}
	if err := s.DestroyChild(e); err == nil {
		t.Fatalf("expected error destroying a dead child")
	}
}

func TestSyncBuildFailureDropsEntry(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false, at("broken", 10, 10), at("block", 40, 10)))
	s.register(t)

	for s.StreamAll() {
	}
	if s.RegistrySize() != 1 || s.LiveChildCount() != 1 {
		t.Fatalf("expected broken entry dropped, registry=%d children=%d", s.RegistrySize(), s.LiveChildCount())
	}
	if ecs.Count(s.world) != 2 {
		t.Fatalf("expected root and one child alive, got %d entities", ecs.Count(s.world))
	}
}

func TestStrictModePanicsOnBuildFailure(t *testing.T) {
	lvl := newTestLevel(16, false, at("broken", 10, 10))
	w := ecs.NewWorld()
	lib := testBlueprints()
	s, err := New(w, lvl, camera.FromLevel(lvl), lib, entity.NewFactory(w, entity.NewBuilder(lib, nil)), Config{Strict: true})
	if err != nil {
		t.Fatalf("new stage: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic in strict mode")
		}
	}()
	_ = s.Load()
}

func TestDeferredBuildFailureDropsEntry(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, true, at("broken", 10, 10), at("block", 40, 10)))
	s.register(t)

	for s.StreamAll() {
	}
	if s.RegistrySize() != 1 || s.LiveChildCount() != 1 {
		t.Fatalf("expected broken entry dropped, registry=%d children=%d", s.RegistrySize(), s.LiveChildCount())
	}
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestLoadSetsCursorOnLastStreamedEntry(t *testing.T) {
	pinned := at("block", 9000, 0)
	pinned.LoadRegardlessOfPosition = true
	s := newTestStage(t, newTestLevel(16, false, at("block", 10, 10), at("block", 40, 10), at("block", 3000, 0), pinned))
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.LiveChildCount() != 3 {
		t.Fatalf("expected 3 initial children, got %d", s.LiveChildCount())
	}
	if s.Cursor() != 1 {
		t.Fatalf("expected cursor on entry 1, got %d", s.Cursor())
	}
	if err := s.Load(); err != nil || s.LiveChildCount() != 3 {
		t.Fatalf("expected second load to be a no-op")
	}
}

func TestSpawnChildPermanent(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false, at("block", 10, 10)))
	s.register(t)

	far := at("block", 9000, 0)
	kept, err := s.SpawnChild(&far, true)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	temp, err := s.SpawnChild(&far, false)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	s.StreamAllOut()
	if !ecs.IsAlive(s.world, kept) {
		t.Fatalf("expected permanent child to survive")
	}
	if ecs.IsAlive(s.world, temp) {
		t.Fatalf("expected unregistered child to be unloaded")
	}
	if _, err := s.SpawnChild(nil, false); err == nil {
		t.Fatalf("expected error for nil descriptor")
	}
}

func TestSuspendDrainsFactory(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, true, at("block", 10, 10)))
	s.register(t)
	s.Stream()
	if !s.factory.HasPending() {
		t.Fatalf("expected queued spawn")
	}

	s.Suspend()
	if s.factory.HasPending() || s.LiveChildCount() != 1 {
		t.Fatalf("expected suspend to finish construction")
	}
	s.Camera().Move(mgl64.Vec3{500, 0, 0})
	if s.Stream() {
		t.Fatalf("expected no streaming while suspended")
	}
	s.Resume()
	if s.Camera().Position() != (mgl64.Vec3{}) {
		t.Fatalf("expected camera restored, got %v", s.Camera().Position())
	}
}

func TestSetStreamingAmplitude(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false))
	s.SetStreamingAmplitude(0)
	if s.StreamingAmplitude() != 1 {
		t.Fatalf("expected amplitude clamped to 1, got %d", s.StreamingAmplitude())
	}
	s.SetStreamingAmplitude(5)
	if s.StreamingAmplitude() != 5 {
		t.Fatalf("expected amplitude 5, got %d", s.StreamingAmplitude())
	}
}

func TestCheckInvariantsReportsCorruption(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false, at("block", 10, 10), at("block", 40, 10)))
	if err := s.CheckInvariants(); err == nil {
		t.Fatalf("expected unbuilt registry to be reported")
	}
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}

	s.registry.At(1).InternalID = s.registry.At(0).InternalID
	if err := s.CheckInvariants(); err == nil {
		t.Fatalf("expected duplicate id to be reported")
	}

	s.registry.At(1).InternalID = 42
	if err := s.CheckInvariants(); err == nil {
		t.Fatalf("expected dangling id to be reported")
	}
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	lvl := newTestLevel(16, false)
	w := ecs.NewWorld()
	lib := testBlueprints()
	f := entity.NewFactory(w, entity.NewBuilder(lib, nil))
	cam := camera.FromLevel(lvl)
	quiet := Config{Logger: log.New(io.Discard, "", 0)}

	tests := []struct {
		name       string
		world      *ecs.World
		level      *levels.Level
		camera     *camera.Camera
		blueprints entity.BlueprintSource
		factory    Factory
		want       error
	}{
		{"world", nil, lvl, cam, lib, f, ErrNilWorld},
		{"level", w, nil, cam, lib, f, ErrNilLevel},
		{"camera", w, lvl, nil, lib, f, ErrNilCamera},
		{"blueprints", w, lvl, cam, nil, f, ErrNilBlueprints},
		{"factory", w, lvl, cam, lib, nil, ErrNilFactory},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.world, tc.level, tc.camera, tc.blueprints, tc.factory, quiet)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if s != nil {
				t.Fatalf("expected no stage")
			}
		})
	}

	s, err := New(w, lvl, cam, lib, f, quiet)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := ecs.Get(w, s.root, component.TransformComponent.Kind()); !ok {
		t.Fatalf("expected root transform")
	}
}

func TestUnloadTearsDownLevel(t *testing.T) {
	pinned := at("block", 5000, 5000)
	pinned.LoadRegardlessOfPosition = true
	lvl := newTestLevel(16, true, pinned, at("block", 10, 10), at("fixture", 20, 20), at("block", 9000, 0))
	s := newTestStage(t, lvl)
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.Stream()
	if s.LiveChildCount() != 3 {
		t.Fatalf("expected three live children, got %d", s.LiveChildCount())
	}

	if got := s.Unload(); got != 3 {
		t.Fatalf("expected 3 entities destroyed, got %d", got)
	}
	if s.LiveChildCount() != 0 || s.RegistrySize() != 0 || s.registry.Registered() {
		t.Fatalf("expected empty stage, live=%d registry=%d", s.LiveChildCount(), s.RegistrySize())
	}
	if s.Cursor() != noCursor {
		t.Fatalf("expected cursor invalidated, got %d", s.Cursor())
	}
	if s.factory.HasPending() {
		t.Fatalf("expected no pending construction")
	}
	if ecs.Count(s.world) != 1 || !ecs.IsAlive(s.world, s.root) {
		t.Fatalf("expected only the root to survive, got %d entities", ecs.Count(s.world))
	}

	if err := s.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s.RegistrySize() != 4 || s.LiveChildCount() != 3 {
		t.Fatalf("expected level rebuilt, registry=%d live=%d", s.RegistrySize(), s.LiveChildCount())
	}
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestTakeIDWrapsBeforeOverflow(t *testing.T) {
	s := newTestStage(t, newTestLevel(16, false))
	s.nextID = math.MaxInt64
	if id := s.takeID(); id != math.MaxInt64 {
		t.Fatalf("expected max id, got %d", id)
	}
	if id := s.takeID(); id != 0 {
		t.Fatalf("expected id to wrap to 0, got %d", id)
	}
	if id := s.takeID(); id != 1 {
		t.Fatalf("expected 1, got %d", id)
	}
}
