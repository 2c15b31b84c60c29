package levels

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/common"
)

var ErrNoEntities = errors.New("levels: level has no entities")

const (
	DefaultStreamingAmplitude = 16
	DefaultLoadPadding        = 32
	DefaultUnloadPadding      = 16
)

// Level is the authored stage: camera setup, streaming configuration and the
// positioned entities the stage streams in and out.
type Level struct {
	Name      string             `json:"name"`
	PixelSize Vec                `json:"pixel_size"`
	Camera    CameraSpec         `json:"camera"`
	Streaming StreamingSpec      `json:"streaming"`
	Entities  []PositionedEntity `json:"entities"`
}

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// CameraSpec configures the camera when the stage loads. Rotation is in
// degrees around x, y and z. The frustum is in camera-local pixels, with the
// camera position as the top-left corner of the screen.
type CameraSpec struct {
	InitialPosition Vec     `json:"initial_position"`
	Rotation        Vec     `json:"rotation"`
	Frustum         Frustum `json:"frustum"`
}

type Frustum struct {
	X0 float64 `json:"x0"`
	X1 float64 `json:"x1"`
	Y0 float64 `json:"y0"`
	Y1 float64 `json:"y1"`
	Z0 float64 `json:"z0"`
	Z1 float64 `json:"z1"`
}

func (f Frustum) Box() common.Box {
	return common.Box{X0: f.X0, X1: f.X1, Y0: f.Y0, Y1: f.Y1, Z0: f.Z0, Z1: f.Z1}
}

// StreamingSpec is the per-level streaming configuration.
type StreamingSpec struct {
	LoadPadding   float64 `json:"load_padding"`
	UnloadPadding float64 `json:"unload_padding"`
	// Amplitude is the number of pending registry entries a load pass may visit.
	Amplitude int  `json:"amplitude"`
	Deferred  bool `json:"deferred"`
}

// PositionedEntity is one level-authored descriptor. It is immutable once the
// level is loaded; the stage keeps pointers into Level.Entities.
type PositionedEntity struct {
	Blueprint                string             `json:"blueprint"`
	Name                     string             `json:"name,omitempty"`
	Position                 Vec                `json:"position"`
	Rotation                 Vec                `json:"rotation"`
	Scale                    Vec                `json:"scale"`
	Children                 []PositionedEntity `json:"children,omitempty"`
	LoadRegardlessOfPosition bool               `json:"load_regardless_of_position,omitempty"`
	Extra                    map[string]any     `json:"extra,omitempty"`
}

// Descriptors returns the level's descriptors up to, not including, the first
// one with an empty blueprint, which terminates the list.
func (l *Level) Descriptors() []PositionedEntity {
	if l == nil {
		return nil
	}
	for i := range l.Entities {
		if l.Entities[i].Blueprint == "" {
			return l.Entities[:i]
		}
	}
	return l.Entities
}

func (l *Level) normalize() error {
	if l.Streaming.Amplitude <= 0 {
		l.Streaming.Amplitude = DefaultStreamingAmplitude
	}
	if l.Streaming.LoadPadding < 0 || l.Streaming.UnloadPadding < 0 {
		return fmt.Errorf("levels: %q: negative streaming padding", l.Name)
	}
	f := l.Camera.Frustum
	if f.X1 <= f.X0 || f.Y1 <= f.Y0 || f.Z1 < f.Z0 {
		return fmt.Errorf("levels: %q: invalid camera frustum %+v", l.Name, f)
	}
	if len(l.Descriptors()) == 0 {
		return fmt.Errorf("levels: %q: %w", l.Name, ErrNoEntities)
	}
	return nil
}
