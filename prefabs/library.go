package prefabs

import (
	"path/filepath"
	"strings"
)

// Library caches blueprints by name. It is not safe for concurrent use; the
// game loop owns it and applies watcher events between ticks.
type Library struct {
	blueprints map[string]*Blueprint
	load       func(name string) (*Blueprint, error)
}

func NewLibrary() *Library {
	return &Library{
		blueprints: make(map[string]*Blueprint),
		load:       LoadBlueprint,
	}
}

// NewStaticLibrary serves only the given blueprints, never touching disk.
func NewStaticLibrary(bps ...*Blueprint) *Library {
	l := &Library{blueprints: make(map[string]*Blueprint, len(bps))}
	for _, bp := range bps {
		l.Put(bp)
	}
	return l
}

// Blueprint returns the named blueprint, loading it on first use.
func (l *Library) Blueprint(name string) (*Blueprint, error) {
	if bp, ok := l.blueprints[name]; ok {
		return bp, nil
	}
	if l.load == nil {
		return nil, &UnknownBlueprintError{Name: name}
	}
	bp, err := l.load(name)
	if err != nil {
		return nil, err
	}
	l.blueprints[name] = bp
	return bp, nil
}

func (l *Library) Put(bp *Blueprint) {
	if bp == nil || bp.Name == "" {
		return
	}
	l.blueprints[bp.Name] = bp
}

// Invalidate drops the cached blueprint behind a changed file so the next
// lookup reloads it. It returns the blueprint name.
func (l *Library) Invalidate(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	delete(l.blueprints, name)
	return name
}

func (l *Library) Len() int {
	return len(l.blueprints)
}

type UnknownBlueprintError struct {
	Name string
}

func (e *UnknownBlueprintError) Error() string {
	return "prefabs: unknown blueprint " + e.Name
}
