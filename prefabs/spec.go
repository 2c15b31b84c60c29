package prefabs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/common"
	"gopkg.in/yaml.v3"
)

var ErrEmptyBlueprintName = errors.New("prefabs: empty blueprint name")

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// Blueprint describes how to build one kind of streamed entity.
type Blueprint struct {
	Name string `yaml:"name"`
	// Size is the authored bounding box. When absent the box is inferred
	// from the sprites.
	Size          *SizeSpec      `yaml:"size"`
	Sprites       []SpriteSpec   `yaml:"sprites"`
	DontStreamOut bool           `yaml:"dont_stream_out"`
	AlwaysRespawn *bool          `yaml:"always_respawn"`
	Script        string         `yaml:"script"`
	Components    map[string]any `yaml:"components"`
}

// Respawns reports whether an unloaded instance may be streamed in again.
// Blueprints respawn unless they say otherwise.
func (b *Blueprint) Respawns() bool {
	return b == nil || b.AlwaysRespawn == nil || *b.AlwaysRespawn
}

// Box returns the blueprint's bounding box relative to the entity position:
// the authored size if present, otherwise the union of its sprites. ok is
// false when neither resolves.
func (b *Blueprint) Box() (box common.Box, ok bool) {
	if b == nil {
		return common.Box{}, false
	}
	if b.Size != nil {
		return common.NewBoxForExtents(b.Size.X, b.Size.Y, b.Size.Z), true
	}
	for _, sp := range b.Sprites {
		sb := sp.Box()
		if !ok {
			box, ok = sb, true
			continue
		}
		box = box.Union(sb)
	}
	return box, ok
}

type SizeSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type SpriteSpec struct {
	Name    string  `yaml:"name"`
	Image   string  `yaml:"image"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Depth   float64 `yaml:"depth"`
	OffsetX float64 `yaml:"offset_x"`
	OffsetY float64 `yaml:"offset_y"`
	OffsetZ float64 `yaml:"offset_z"`
	Layer   int     `yaml:"layer"`
}

func (s SpriteSpec) Box() common.Box {
	return common.NewBoxForExtents(s.Width, s.Height, s.Depth).
		Translate(mgl64.Vec3{s.OffsetX, s.OffsetY, s.OffsetZ})
}

// LoadBlueprint reads "<name>.yaml". The blueprint name defaults to the file name.
func LoadBlueprint(name string) (*Blueprint, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyBlueprintName
	}
	file := name
	if !isBlueprintFile(file) {
		file += ".yaml"
	}
	bp, err := LoadSpec[Blueprint](file)
	if err != nil {
		return nil, err
	}
	if bp.Name == "" {
		bp.Name = strings.TrimSuffix(name, ".yaml")
	}
	return &bp, nil
}
