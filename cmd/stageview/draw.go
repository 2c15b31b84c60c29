package main

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/milk9111/stagestream/camera"
	"github.com/milk9111/stagestream/common"
	"github.com/milk9111/stagestream/ecs"
	"github.com/milk9111/stagestream/ecs/component"
	"golang.org/x/image/colornames"
)

var (
	background   = color.RGBA{R: 0x12, G: 0x14, B: 0x1c, A: 0xff}
	hudColor     = colornames.White
	frustumColor = colornames.White
	loadColor    = color.RGBA{R: 0x40, G: 0xa0, B: 0x40, A: 0xff}
	unloadColor  = color.RGBA{R: 0xa0, G: 0x40, B: 0x40, A: 0xff}
	pendingColor = color.RGBA{R: 0x60, G: 0x60, B: 0x70, A: 0xff}
	cursorColor  = colornames.Yellow
)

// projector maps camera-local pixels to screen pixels, centering the frustum.
type projector struct {
	view   camera.View
	zoom   float64
	ox, oy float64
}

func newProjector(view camera.View, zoom float64) projector {
	size := view.Frustum.Size()
	return projector{
		view: view,
		zoom: zoom,
		ox:   (screenWidth-size[0]*zoom)/2 - view.Frustum.X0*zoom,
		oy:   (screenHeight-size[1]*zoom)/2 - view.Frustum.Y0*zoom,
	}
}

func (p projector) rect(screen *ebiten.Image, b common.Box, clr color.Color, fill bool) {
	x := float32(p.ox + b.X0*p.zoom)
	y := float32(p.oy + b.Y0*p.zoom)
	w := float32((b.X1 - b.X0) * p.zoom)
	h := float32((b.Y1 - b.Y0) * p.zoom)
	if fill {
		vector.FillRect(screen, x, y, w, h, clr, false)
		return
	}
	vector.StrokeRect(screen, x, y, w, h, 1, clr, false)
}

// worldBox projects a world-space box placed at pos into camera-local space.
func (p projector) worldBox(pos mgl64.Vec3, b common.Box) common.Box {
	return b.Translate(p.view.ToLocal(pos))
}

func drawStage(screen *ebiten.Image, v *viewer) {
	screen.Fill(background)

	view := v.camera.View()
	p := newProjector(view, v.opts.zoom)

	pad := view.LoadPadding
	p.rect(screen, view.Frustum.Expand(pad+view.UnloadPadding, pad+view.UnloadPadding, 0), unloadColor, false)
	p.rect(screen, view.Frustum.Expand(pad, pad, 0), loadColor, false)
	p.rect(screen, view.Frustum, frustumColor, false)

	registry := v.stage.Registry()
	for i, entry := range registry.Entries() {
		if entry.Loaded() {
			continue
		}
		clr := pendingColor
		if i == registry.Cursor() {
			clr = cursorColor
		}
		p.rect(screen, p.worldBox(entry.Position(), entry.Box), clr, false)
	}

	w := v.world
	ecs.ForEach2(w, component.StreamedComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, s *component.Streamed, t *component.Transform) {
		if ecs.Has(w, e, component.MarkedForDeathComponent.Kind()) {
			return
		}
		box := s.Box
		if !s.ValidBox {
			box = common.MinimumBox
		}
		p.rect(screen, p.worldBox(t.Position, box), entityColor(w, e, s), true)
	})
}

func entityColor(w *ecs.World, e ecs.Entity, s *component.Streamed) color.Color {
	switch {
	case s.DontStreamOut:
		return colornames.Skyblue
	case !s.AlwaysRespawn:
		return colornames.Orchid
	}
	if r, ok := ecs.Get(w, e, component.RenderableComponent.Kind()); ok && r.AnyRendered() {
		return colornames.Limegreen
	}
	return colornames.Darkorange
}
