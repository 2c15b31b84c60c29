package component

// CameraTarget tags the entity the camera follows.
type CameraTarget struct {
	OffsetX float64
	OffsetY float64
}

var CameraTargetComponent = NewComponent[CameraTarget]()
