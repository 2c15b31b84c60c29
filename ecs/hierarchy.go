package ecs

import (
	"errors"

	"github.com/milk9111/stagestream/ecs/component"
)

var (
	ErrSelfParent    = errors.New("ecs: entity cannot parent itself")
	ErrAlreadyParent = errors.New("ecs: entity already has a parent")
)

// node is the scene-graph record of one entity. The parent relationship is a
// plain handle, so parent and child never hold references to each other.
type node struct {
	parent   Entity
	children []Entity
}

func (w *World) node(e Entity, create bool) *node {
	n, ok := w.nodes[e.id()]
	if !ok && create {
		if w.nodes == nil {
			w.nodes = make(map[entityID]*node)
		}
		n = &node{}
		w.nodes[e.id()] = n
	}
	return n
}

// Attach appends child to parent's children. Attachment order is preserved.
func Attach(w *World, parent, child Entity) error {
	if !IsAlive(w, parent) || !IsAlive(w, child) {
		return component.ErrEntityNotAlive
	}
	if parent == child {
		return ErrSelfParent
	}
	cn := w.node(child, true)
	if cn.parent.Valid() && IsAlive(w, cn.parent) {
		return ErrAlreadyParent
	}
	cn.parent = parent
	pn := w.node(parent, true)
	pn.children = append(pn.children, child)
	return nil
}

// Detach removes child from its parent. It returns false if child had no parent.
func Detach(w *World, child Entity) bool {
	if w == nil {
		return false
	}
	cn := w.node(child, false)
	if cn == nil || !cn.parent.Valid() {
		return false
	}
	if pn := w.node(cn.parent, false); pn != nil {
		for i, c := range pn.children {
			if c == child {
				pn.children = append(pn.children[:i], pn.children[i+1:]...)
				break
			}
		}
	}
	cn.parent = 0
	return true
}

// Parent returns the entity's parent, if it has a live one.
func Parent(w *World, e Entity) (Entity, bool) {
	if !IsAlive(w, e) {
		return 0, false
	}
	n := w.node(e, false)
	if n == nil || !IsAlive(w, n.parent) {
		return 0, false
	}
	return n.parent, true
}

// Children returns a copy of e's children in attachment order.
func Children(w *World, e Entity) []Entity {
	if !IsAlive(w, e) {
		return nil
	}
	n := w.node(e, false)
	if n == nil || len(n.children) == 0 {
		return nil
	}
	return append([]Entity(nil), n.children...)
}

// ChildCount returns the number of children attached to e.
func ChildCount(w *World, e Entity) int {
	if !IsAlive(w, e) {
		return 0
	}
	if n := w.node(e, false); n != nil {
		return len(n.children)
	}
	return 0
}

// DestroyTree detaches e and destroys it together with all of its descendants.
func DestroyTree(w *World, e Entity) int {
	if !IsAlive(w, e) {
		return 0
	}
	Detach(w, e)
	return destroySubtree(w, e)
}

func destroySubtree(w *World, e Entity) int {
	destroyed := 0
	if n := w.node(e, false); n != nil {
		for _, c := range n.children {
			if IsAlive(w, c) {
				destroyed += destroySubtree(w, c)
			}
		}
	}
	delete(w.nodes, e.id())
	if DestroyEntity(w, e) {
		destroyed++
	}
	return destroyed
}
