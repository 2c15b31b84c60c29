package stage

import (
	"errors"
	"fmt"

	"github.com/milk9111/stagestream/ecs/component"
	"github.com/milk9111/stagestream/ecs/entity"
	"github.com/milk9111/stagestream/levels"
)

const noCursor = -1

// Registry holds one entry per level descriptor in ascending distance order,
// plus the cursor the load phase resumes from.
type Registry struct {
	entries    []*Entry
	cursor     int
	registered bool
}

func newRegistry() *Registry {
	return &Registry{cursor: noCursor}
}

// Register builds the registry from descs, stopping at the first empty
// blueprint and skipping ignored descriptors. Descriptors that fail to build
// are left out and reported. Once a registry exists further calls do nothing.
func (r *Registry) Register(descs []levels.PositionedEntity, blueprints entity.BlueprintSource, ignore ...*levels.PositionedEntity) error {
	if r.registered {
		return nil
	}
	r.registered = true
	r.cursor = noCursor

	skip := make(map[*levels.PositionedEntity]struct{}, len(ignore))
	for _, d := range ignore {
		skip[d] = struct{}{}
	}

	var errs []error
	for i := range descs {
		desc := &descs[i]
		if desc.Blueprint == "" {
			break
		}
		if _, ok := skip[desc]; ok {
			continue
		}
		entry, err := BuildEntry(desc, blueprints)
		if err != nil {
			errs = append(errs, fmt.Errorf("register descriptor %d: %w", i, err))
			continue
		}
		r.insert(entry)
	}
	return errors.Join(errs...)
}

// insert places entry before the first entry whose distance is not smaller.
func (r *Registry) insert(entry *Entry) {
	at := len(r.entries)
	for i, e := range r.entries {
		if e.Distance >= entry.Distance {
			at = i
			break
		}
	}
	r.entries = append(r.entries, nil)
	copy(r.entries[at+1:], r.entries[at:])
	r.entries[at] = entry
	if r.cursor >= at {
		r.cursor++
	}
}

func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) Registered() bool {
	return r.registered
}

func (r *Registry) At(i int) *Entry {
	return r.entries[i]
}

// Entries returns a copy of the entry list in registry order.
func (r *Registry) Entries() []*Entry {
	return append([]*Entry(nil), r.entries...)
}

// Cursor returns the index the next load pass starts from, or -1.
func (r *Registry) Cursor() int {
	return r.cursor
}

func (r *Registry) resetCursor() {
	r.cursor = noCursor
}

// find returns the index of the entry holding id, or -1.
func (r *Registry) find(id component.InternalID) int {
	if id == component.NoInternalID {
		return -1
	}
	for i, e := range r.entries {
		if e.InternalID == id {
			return i
		}
	}
	return -1
}

// remove deletes the entry at i. A cursor pointing at it is invalidated, or
// stepped back to the previous entry when stepBack is set.
func (r *Registry) remove(i int, stepBack bool) {
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	switch {
	case r.cursor == i && stepBack:
		r.cursor = i - 1
	case r.cursor == i:
		r.cursor = noCursor
	case r.cursor > i:
		r.cursor--
	}
	if r.cursor >= len(r.entries) {
		r.cursor = noCursor
	}
}

// Purge drops every entry and allows the registry to be built again.
func (r *Registry) Purge() {
	r.entries = nil
	r.cursor = noCursor
	r.registered = false
}
