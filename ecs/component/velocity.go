package component

import "github.com/go-gl/mathgl/mgl64"

// Velocity is in pixels per tick.
type Velocity struct {
	Value mgl64.Vec3
}

var VelocityComponent = NewComponent[Velocity]()
