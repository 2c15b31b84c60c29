package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ebitenui/ebitenui"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/milk9111/stagestream/camera"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/entity"
	"github.com/milk9111/stagestream/ecs/system"
	"github.com/milk9111/stagestream/levels"
	"github.com/milk9111/stagestream/prefabs"
	"github.com/milk9111/stagestream/stage"
	"golang.org/x/image/font/basicfont"
)

const (
	screenWidth  = 1280
	screenHeight = 720
)

type options struct {
	level   string
	zoom    float64
	pan     float64
	strict  bool
	noPopIn bool
	watch   bool
}

type viewer struct {
	opts options

	world     *ecs.World
	stage     *stage.Stage
	camera    *camera.Camera
	library   *prefabs.Library
	scripts   *entity.ScriptRunner
	factory   *entity.Factory
	watcher   *prefabs.Watcher
	cameraSys *system.CameraSystem
	streaming *system.StreamingSystem
	cull      *system.CullSystem

	face      ebtext.Face
	ui        *ebitenui.UI
	showPanel bool
	paused    bool
	ticks     int
}

func newViewer(opts options) (*viewer, error) {
	lvl, err := levels.LoadLevel(opts.level)
	if err != nil {
		return nil, err
	}

	v := &viewer{
		opts:    opts,
		world:   ecs.NewWorld(),
		library: prefabs.NewLibrary(),
		scripts: entity.NewScriptRunner(),
		face:    ebtext.NewGoXFace(basicfont.Face7x13),
	}
	v.camera = camera.FromLevel(lvl)
	v.factory = entity.NewFactory(v.world, entity.NewBuilder(v.library, v.scripts))

	logger := log.New(os.Stderr, "stageview: ", log.LstdFlags)
	v.stage, err = stage.New(v.world, lvl, v.camera, v.library, v.factory, stage.Config{Strict: opts.strict, Logger: logger})
	if err != nil {
		return nil, err
	}
	v.stage.SetForceNoPopIn(opts.noPopIn)
	if err := v.stage.Load(); err != nil {
		logger.Printf("load: %v", err)
	}

	v.cameraSys = system.NewCameraSystem(v.camera)
	v.streaming = system.NewStreamingSystem(v.stage)
	v.cull = system.NewCullSystem()
	v.world.AddSystem(v.cameraSys)
	v.world.AddSystem(system.NewMovementSystem())
	v.world.AddSystem(system.NewVisibilitySystem(v.camera))
	v.world.AddSystem(v.streaming)
	v.world.AddSystem(v.cull)

	if opts.watch {
		w, err := prefabs.NewWatcher("prefabs", filepath.Join("prefabs", "scripts"))
		if err != nil {
			logger.Printf("hot reload disabled: %v", err)
		} else {
			v.watcher = w
		}
	}

	v.ui = newControlPanel(v)
	return v, nil
}

func (v *viewer) Close() {
	if v.watcher != nil {
		_ = v.watcher.Close()
	}
}

func (v *viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		v.showPanel = !v.showPanel
	}
	if v.showPanel {
		v.ui.Update()
	}

	v.reload()
	v.handleKeys()
	if v.paused {
		return nil
	}

	v.ticks++
	v.world.Update()
	return nil
}

func (v *viewer) handleKeys() {
	var pan mgl64.Vec3
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		pan[0] -= v.opts.pan
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		pan[0] += v.opts.pan
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		pan[1] -= v.opts.pan
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		pan[1] += v.opts.pan
	}
	v.cameraSys.Pan = pan

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		v.paused = !v.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		v.togglePopIn()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		v.toggleSuspend()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		v.stage.SetStreamingAmplitude(v.stage.StreamingAmplitude() * 2)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) {
		v.stage.SetStreamingAmplitude(v.stage.StreamingAmplitude() / 2)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		v.streamAll()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		v.stage.StreamAllOut()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		v.reloadLevel()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		if err := v.stage.CheckInvariants(); err != nil {
			log.Printf("stageview: invariants: %v", err)
		} else {
			log.Printf("stageview: invariants hold (%d entries, %d live)", v.stage.RegistrySize(), v.stage.LiveChildCount())
		}
	}
}

func (v *viewer) togglePopIn() {
	v.stage.SetForceNoPopIn(!v.stage.ForceNoPopIn())
}

func (v *viewer) toggleSuspend() {
	if v.stage.Suspended() {
		v.stage.Resume()
		return
	}
	v.stage.Suspend()
}

func (v *viewer) streamAll() {
	passes := 0
	for v.stage.StreamAll() {
		passes++
	}
	log.Printf("stageview: stream all settled after %d passes", passes+1)
}

// reloadLevel tears the level down and loads it again around the current
// camera position.
func (v *viewer) reloadLevel() {
	destroyed := v.stage.Unload()
	if err := v.stage.Load(); err != nil {
		log.Printf("stageview: reload level: %v", err)
	}
	log.Printf("stageview: level reloaded (%d destroyed, %d entries, %d live)", destroyed, v.stage.RegistrySize(), v.stage.LiveChildCount())
}

// reload applies pending file changes between ticks. Registered entries keep
// the boxes they were registered with; live entities pick up edits the next
// time they stream in.
func (v *viewer) reload() {
	if v.watcher == nil {
		return
	}
	for _, path := range v.watcher.Pending() {
		if prefabs.IsScriptFile(path) {
			v.scripts.Invalidate(filepath.Base(path))
			log.Printf("stageview: reloaded script %s", filepath.Base(path))
			continue
		}
		name := v.library.Invalidate(path)
		log.Printf("stageview: reloaded blueprint %s", name)
	}
}

func (v *viewer) Draw(screen *ebiten.Image) {
	drawStage(screen, v)
	v.drawHUD(screen)
	if v.showPanel {
		v.ui.Draw(screen)
	}
}

func (v *viewer) drawHUD(screen *ebiten.Image) {
	stats := v.streaming.Stats
	pos := v.camera.Position()
	lines := []string{
		fmt.Sprintf("FPS: %.1f  tick: %d  paused: %v", ebiten.ActualFPS(), v.ticks, v.paused),
		fmt.Sprintf("camera: (%.0f, %.0f, %.0f)", pos[0], pos[1], pos[2]),
		fmt.Sprintf("registry: %d  live: %d  cursor: %d  pending: %d", v.stage.RegistrySize(), v.stage.LiveChildCount(), v.stage.Cursor(), v.factory.Pending()),
		fmt.Sprintf("amplitude: %d  no pop-in: %v  suspended: %v", v.stage.StreamingAmplitude(), v.stage.ForceNoPopIn(), v.stage.Suspended()),
		fmt.Sprintf("loaded: %d  unloaded: %d  culled: %d  busy: %d/%d", stats.Loaded, stats.Unloaded, v.cull.Destroyed, stats.BusyTicks, stats.Ticks),
		"arrows pan  F pop-in  space suspend  R stream all  O stream out  L reload  -/= amplitude  C check  P pause  tab panel",
	}
	for i, line := range lines {
		op := &ebtext.DrawOptions{}
		op.GeoM.Translate(8, float64(8+i*16))
		op.ColorScale.ScaleWithColor(hudColor)
		ebtext.Draw(screen, line, v.face, op)
	}
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}
