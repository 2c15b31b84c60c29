// Package camera holds the view state the stage streams against.
package camera

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/common"
	"github.com/milk9111/stagestream/levels"
)

// Camera is a pixel-space camera. Position is the top-left corner of the
// screen in world pixels; the frustum is expressed relative to it.
type Camera struct {
	position mgl64.Vec3
	rotation mgl64.Quat
	inverse  mgl64.Quat
	frustum  common.Box

	LoadPadding   float64
	UnloadPadding float64
}

// New returns a camera at the origin with no rotation.
func New(frustum common.Box, loadPadding, unloadPadding float64) *Camera {
	return &Camera{
		rotation:      mgl64.QuatIdent(),
		inverse:       mgl64.QuatIdent(),
		frustum:       frustum,
		LoadPadding:   loadPadding,
		UnloadPadding: unloadPadding,
	}
}

// FromLevel configures a camera from the level's camera and streaming specs.
func FromLevel(lvl *levels.Level) *Camera {
	c := New(lvl.Camera.Frustum.Box(), lvl.Streaming.LoadPadding, lvl.Streaming.UnloadPadding)
	c.SetPosition(lvl.Camera.InitialPosition.Vec3())
	r := lvl.Camera.Rotation
	c.SetRotation(mgl64.AnglesToQuat(mgl64.DegToRad(r.X), mgl64.DegToRad(r.Y), mgl64.DegToRad(r.Z), mgl64.XYZ))
	return c
}

func (c *Camera) Position() mgl64.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(p mgl64.Vec3) {
	c.position = p
}

// Move translates the camera by d pixels.
func (c *Camera) Move(d mgl64.Vec3) {
	c.position = c.position.Add(d)
}

func (c *Camera) Rotation() mgl64.Quat {
	return c.rotation
}

// SetRotation sets the camera orientation and caches its inverse, which the
// range tests use on every candidate.
func (c *Camera) SetRotation(q mgl64.Quat) {
	c.rotation = q.Normalize()
	c.inverse = c.rotation.Inverse()
}

func (c *Camera) InverseRotation() mgl64.Quat {
	return c.inverse
}

func (c *Camera) Frustum() common.Box {
	return c.frustum
}

// ScreenSize returns the width and height of the visible rectangle.
func (c *Camera) ScreenSize() (float64, float64) {
	return c.frustum.X1 - c.frustum.X0, c.frustum.Y1 - c.frustum.Y0
}

// ToLocal maps a world position into camera space: translated by the camera
// position, then rotated by the inverse camera rotation.
func (c *Camera) ToLocal(p mgl64.Vec3) mgl64.Vec3 {
	return c.inverse.Rotate(p.Sub(c.position))
}

// View is a snapshot of the camera used by a single range test.
type View struct {
	Position      mgl64.Vec3
	Inverse       mgl64.Quat
	Frustum       common.Box
	LoadPadding   float64
	UnloadPadding float64
}

func (c *Camera) View() View {
	return View{
		Position:      c.position,
		Inverse:       c.inverse,
		Frustum:       c.frustum,
		LoadPadding:   c.LoadPadding,
		UnloadPadding: c.UnloadPadding,
	}
}

// ToLocal is Camera.ToLocal on the snapshot.
func (v View) ToLocal(p mgl64.Vec3) mgl64.Vec3 {
	return v.Inverse.Rotate(p.Sub(v.Position))
}
