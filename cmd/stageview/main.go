package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	levelName := flag.String("level", "demo", "level name in levels/ (basename, .json optional)")
	zoom := flag.Float64("zoom", 1.5, "pixels drawn per world pixel")
	pan := flag.Float64("pan", 4, "camera pan speed in pixels per tick")
	strict := flag.Bool("strict", false, "panic on streaming invariant violations")
	noPopIn := flag.Bool("nopopin", false, "never load entities inside the visible frustum")
	watch := flag.Bool("watch", true, "reload blueprints and scripts when their files change")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	flag.Parse()

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("stageview")

	v, err := newViewer(options{
		level:   *levelName,
		zoom:    *zoom,
		pan:     *pan,
		strict:  *strict,
		noPopIn: *noPopIn,
		watch:   *watch,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer v.Close()

	if err := ebiten.RunGame(v); err != nil {
		log.Fatal(err)
	}
}
