package component

import "github.com/milk9111/stagestream/common"

// VisualPart is one drawable piece of an entity. Rendered is owned by the
// renderer and reports whether the part was drawn last frame.
type VisualPart struct {
	Name     string
	Image    string
	Box      common.Box
	Layer    int
	Rendered bool
}

type Renderable struct {
	Parts []VisualPart
}

// AnyRendered reports whether any visual part is currently on screen.
func (r *Renderable) AnyRendered() bool {
	if r == nil {
		return false
	}
	for _, p := range r.Parts {
		if p.Rendered {
			return true
		}
	}
	return false
}

var RenderableComponent = NewComponent[Renderable]()
