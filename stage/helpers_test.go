package stage

import (
	"io"
	"log"
	"testing"

	"github.com/milk9111/stagestream/camera"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/entity"
	"github.com/milk9111/stagestream/levels"
	"github.com/milk9111/stagestream/prefabs"
)

func testBlueprints() *prefabs.Library {
	no := false
	return prefabs.NewStaticLibrary(
		&prefabs.Blueprint{Name: "block", Size: &prefabs.SizeSpec{X: 16, Y: 16}},
		&prefabs.Blueprint{Name: "wide", Size: &prefabs.SizeSpec{X: 40, Y: 16}},
		&prefabs.Blueprint{Name: "flat", Size: &prefabs.SizeSpec{}},
		&prefabs.Blueprint{Name: "fixture", Size: &prefabs.SizeSpec{X: 16, Y: 16}, DontStreamOut: true},
		&prefabs.Blueprint{Name: "once", Size: &prefabs.SizeSpec{X: 16, Y: 16}, AlwaysRespawn: &no},
		&prefabs.Blueprint{Name: "broken", Size: &prefabs.SizeSpec{X: 16, Y: 16}, Components: map[string]any{"bogus": 1}},
		&prefabs.Blueprint{Name: "empty"},
		&prefabs.Blueprint{Name: "group"},
		&prefabs.Blueprint{
			Name: "sprited",
			Sprites: []prefabs.SpriteSpec{
				{Name: "a", Width: 10, Height: 20, OffsetX: 5},
				{Name: "b", Width: 4, Height: 4, OffsetY: 20},
			},
		},
	)
}

// testFrustum is a 320x240 screen with the camera at its top-left corner.
var testFrustum = levels.Frustum{X0: 0, X1: 320, Y0: 0, Y1: 240, Z0: -16, Z1: 256}

func at(blueprint string, x, y float64) levels.PositionedEntity {
	return levels.PositionedEntity{Blueprint: blueprint, Position: levels.Vec{X: x, Y: y}}
}

func newTestLevel(amplitude int, deferred bool, descs ...levels.PositionedEntity) *levels.Level {
	return &levels.Level{
		Name: "test",
		Camera: levels.CameraSpec{
			Frustum: testFrustum,
		},
		Streaming: levels.StreamingSpec{
			LoadPadding:   32,
			UnloadPadding: 16,
			Amplitude:     amplitude,
			Deferred:      deferred,
		},
		Entities: descs,
	}
}

type testStage struct {
	*Stage
	world   *ecs.World
	factory *entity.Factory
}

func newTestStage(t *testing.T, lvl *levels.Level) *testStage {
	t.Helper()
	w := ecs.NewWorld()
	lib := testBlueprints()
	factory := entity.NewFactory(w, entity.NewBuilder(lib, nil))
	s, err := New(w, lvl, camera.FromLevel(lvl), lib, factory, Config{Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		t.Fatalf("new stage: %v", err)
	}
	return &testStage{Stage: s, world: w, factory: factory}
}

// register builds the registry without the initial load.
func (s *testStage) register(t *testing.T) {
	t.Helper()
	if err := s.registry.Register(s.level.Descriptors(), s.blueprints); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func (s *testStage) loadedCount() int {
	n := 0
	for _, e := range s.registry.entries {
		if e.Loaded() {
			n++
		}
	}
	return n
}
