// Profiling:
// go build ./cmd/streambench
// ./streambench -profile cpu -ticks 20000
// go tool pprof -http=":8000" ./streambench cpu.pprof

package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/camera"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/entity"
	"github.com/milk9111/stagestream/ecs/system"
	"github.com/milk9111/stagestream/levels"
	"github.com/milk9111/stagestream/prefabs"
	"github.com/milk9111/stagestream/stage"
	"github.com/pkg/profile"
)

func main() {
	levelName := flag.String("level", "demo", "level name in levels/ (basename, .json optional)")
	ticks := flag.Int("ticks", 5000, "world updates to run")
	pan := flag.Float64("pan", 2, "camera pan per tick along x; the camera turns around at the level edge")
	amplitude := flag.Int("amplitude", 0, "override the level's streaming amplitude")
	mode := flag.String("profile", "", "profile to record: cpu, mem or allocs")
	check := flag.Int("check", 0, "check registry invariants every n ticks")
	flag.Parse()

	switch *mode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "allocs":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatalf("streambench: unknown profile %q", *mode)
	}

	if err := run(*levelName, *ticks, *pan, *amplitude, *check); err != nil {
		log.Fatal(err)
	}
}

func run(levelName string, ticks int, pan float64, amplitude, check int) error {
	lvl, err := levels.LoadLevel(levelName)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "streambench: ", log.LstdFlags)
	w := ecs.NewWorld()
	lib := prefabs.NewLibrary()
	factory := entity.NewFactory(w, entity.NewBuilder(lib, entity.NewScriptRunner()))
	cam := camera.FromLevel(lvl)

	s, err := stage.New(w, lvl, cam, lib, factory, stage.Config{Logger: logger})
	if err != nil {
		return err
	}
	if amplitude > 0 {
		s.SetStreamingAmplitude(amplitude)
	}

	start := time.Now()
	if err := s.Load(); err != nil {
		logger.Printf("load: %v", err)
	}
	logger.Printf("level %q: %d entries, %d loaded in %v", lvl.Name, s.RegistrySize(), s.LiveChildCount(), time.Since(start))

	cameraSys := system.NewCameraSystem(cam)
	streaming := system.NewStreamingSystem(s)
	cull := system.NewCullSystem()
	w.AddSystem(cameraSys)
	w.AddSystem(system.NewMovementSystem())
	w.AddSystem(system.NewVisibilitySystem(cam))
	w.AddSystem(streaming)
	w.AddSystem(cull)

	width, _ := cam.ScreenSize()
	maxX := lvl.PixelSize.X - width
	cameraSys.Pan = mgl64.Vec3{pan, 0, 0}

	peakLive := 0
	start = time.Now()
	for i := 1; i <= ticks; i++ {
		x := cam.Position()[0]
		if (x >= maxX && cameraSys.Pan[0] > 0) || (x <= 0 && cameraSys.Pan[0] < 0) {
			cameraSys.Pan[0] = -cameraSys.Pan[0]
		}

		w.Update()
		peakLive = max(peakLive, s.LiveChildCount())

		if check > 0 && i%check == 0 {
			if err := s.CheckInvariants(); err != nil {
				logger.Printf("tick %d: %v", i, err)
			}
		}
	}
	elapsed := time.Since(start)

	factory.Drain()
	if err := s.CheckInvariants(); err != nil {
		logger.Printf("final: %v", err)
	}

	stats := streaming.Stats
	logger.Printf("%d ticks in %v (%v/tick)", ticks, elapsed, elapsed/time.Duration(max(ticks, 1)))
	logger.Printf("loaded %d, unloaded %d, culled %d, busy ticks %d, peak live %d, entities %d",
		stats.Loaded, stats.Unloaded, cull.Destroyed, stats.BusyTicks, peakLive, ecs.Count(w))

	destroyed := s.Unload()
	logger.Printf("unload: %d destroyed, %d entities left", destroyed, ecs.Count(w))
	return nil
}
