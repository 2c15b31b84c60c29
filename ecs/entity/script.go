package entity

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/stagestream/ecs/component"
	"github.com/milk9111/stagestream/prefabs"
)

// ScriptRunner runs blueprint spawn scripts. A script sees internal_id, x, y,
// z and props, and may reassign dont_stream_out and always_respawn.
type ScriptRunner struct {
	cache map[string]*tengo.Compiled
	load  func(name string) ([]byte, error)
}

func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{
		cache: make(map[string]*tengo.Compiled),
		load:  prefabs.LoadScript,
	}
}

// NewScriptRunnerFromSources serves scripts from memory, keyed by name.
func NewScriptRunnerFromSources(sources map[string]string) *ScriptRunner {
	return &ScriptRunner{
		cache: make(map[string]*tengo.Compiled),
		load: func(name string) ([]byte, error) {
			src, ok := sources[name]
			if !ok {
				return nil, fmt.Errorf("script %q not found", name)
			}
			return []byte(src), nil
		},
	}
}

// Invalidate drops a compiled script so the next run recompiles it.
func (r *ScriptRunner) Invalidate(name string) {
	delete(r.cache, name)
}

func (r *ScriptRunner) compiled(name string) (*tengo.Compiled, error) {
	if c, ok := r.cache[name]; ok {
		return c, nil
	}
	src, err := r.load(name)
	if err != nil {
		return nil, err
	}

	script := tengo.NewScript(src)
	_ = script.Add("internal_id", 0)
	_ = script.Add("x", 0.0)
	_ = script.Add("y", 0.0)
	_ = script.Add("z", 0.0)
	_ = script.Add("props", map[string]any{})
	_ = script.Add("dont_stream_out", false)
	_ = script.Add("always_respawn", true)

	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	c, err := script.Compile()
	if err != nil {
		return nil, err
	}
	r.cache[name] = c
	return c, nil
}

// Run executes the named script against a freshly built entity and writes the
// capability flags back into streamed.
func (r *ScriptRunner) Run(name string, streamed *component.Streamed, pos mgl64.Vec3, props map[string]any) error {
	if r == nil || streamed == nil {
		return nil
	}
	base, err := r.compiled(name)
	if err != nil {
		return err
	}
	if props == nil {
		props = map[string]any{}
	}

	c := base.Clone()
	for key, value := range map[string]any{
		"internal_id":     int(streamed.InternalID),
		"x":               pos[0],
		"y":               pos[1],
		"z":               pos[2],
		"props":           props,
		"dont_stream_out": streamed.DontStreamOut,
		"always_respawn":  streamed.AlwaysRespawn,
	} {
		if err := c.Set(key, value); err != nil {
			return err
		}
	}
	if err := c.Run(); err != nil {
		return err
	}

	streamed.DontStreamOut = c.Get("dont_stream_out").Bool()
	streamed.AlwaysRespawn = c.Get("always_respawn").Bool()
	return nil
}
