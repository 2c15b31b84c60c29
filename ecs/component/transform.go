package component

import "github.com/go-gl/mathgl/mgl64"

// Transform holds an entity's pixel-space placement. Streamed entities are
// direct children of the stage root, which sits at the origin, so local and
// world placement coincide.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Vec3
	Scale    mgl64.Vec3
}

var TransformComponent = NewComponent[Transform]()
