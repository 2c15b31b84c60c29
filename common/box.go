package common

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
)

// Box is an axis-aligned right box in pixel space. Its bounds are relative to
// the position it is attached to unless it was translated.
type Box struct {
	X0, X1 float64
	Y0, Y1 float64
	Z0, Z1 float64
}

// MinimumBox is substituted when nothing else resolves a descriptor's size.
var MinimumBox = NewBoxForExtents(16, 16, 16)

// NewBoxForExtents returns a box of the given size centered on the origin.
func NewBoxForExtents(width, height, depth float64) Box {
	return Box{
		X0: -width / 2, X1: width / 2,
		Y0: -height / 2, Y1: height / 2,
		Z0: -depth / 2, Z1: depth / 2,
	}
}

func (b Box) Size() mgl64.Vec3 {
	return mgl64.Vec3{b.X1 - b.X0, b.Y1 - b.Y0, b.Z1 - b.Z0}
}

// IsZero reports whether the box is zero-sized on every axis.
func (b Box) IsZero() bool {
	return b.X1-b.X0 == 0 && b.Y1-b.Y0 == 0 && b.Z1-b.Z0 == 0
}

func (b Box) Translate(v mgl64.Vec3) Box {
	return Box{
		X0: b.X0 + v[0], X1: b.X1 + v[0],
		Y0: b.Y0 + v[1], Y1: b.Y1 + v[1],
		Z0: b.Z0 + v[2], Z1: b.Z1 + v[2],
	}
}

// Expand grows the box by x, y and z on both sides of each axis.
func (b Box) Expand(x, y, z float64) Box {
	return Box{
		X0: b.X0 - x, X1: b.X1 + x,
		Y0: b.Y0 - y, Y1: b.Y1 + y,
		Z0: b.Z0 - z, Z1: b.Z1 + z,
	}
}

func (b Box) Scale(s mgl64.Vec3) Box {
	s = ScaleOrOne(s)
	return Box{
		X0: b.X0 * s[0], X1: b.X1 * s[0],
		Y0: b.Y0 * s[1], Y1: b.Y1 * s[1],
		Z0: b.Z0 * s[2], Z1: b.Z1 * s[2],
	}
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	xy := b.XY().Merge(o.XY())
	return Box{
		X0: xy.L, X1: xy.R,
		Y0: xy.B, Y1: xy.T,
		Z0: min(b.Z0, o.Z0), Z1: max(b.Z1, o.Z1),
	}
}

// XY projects the box onto the screen plane.
func (b Box) XY() cp.BB {
	return cp.BB{L: b.X0, B: b.Y0, R: b.X1, T: b.Y1}
}

func (b Box) OverlapsXY(o Box) bool {
	return b.XY().Intersects(o.XY())
}

func (b Box) OverlapsZ(o Box) bool {
	return b.Z0 <= o.Z1 && o.Z0 <= b.Z1
}

func (b Box) Overlaps(o Box) bool {
	return b.OverlapsXY(o) && b.OverlapsZ(o)
}

